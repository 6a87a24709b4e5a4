package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chat-auth/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
// Las busquedas sin resultado devuelven pgx.ErrNoRows.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByNickname(ctx context.Context, nickname string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
	Delete(ctx context.Context, user domain.User) error
	ListActive(ctx context.Context) ([]domain.User, error)
}

// pgxPool es el subconjunto de pgxpool.Pool que usa el repositorio.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgUserRepository implementa UserRepository usando pgx.
type PgUserRepository struct {
	pool pgxPool
}

func NewPgUserRepository(pool pgxPool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, email, nickname, password_hash, first_name, last_name, date_of_birth,
	description, verification_link, privacy_status, verified, verification_code,
	user_type, user_status, muted, token, last_login, created_at
`

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) GetByNickname(ctx context.Context, nickname string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE nickname = $1`
	return scanUser(r.pool.QueryRow(ctx, query, nickname))
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// Save inserta el usuario si no tiene id y lo actualiza en caso contrario.
func (r *PgUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == 0 {
		return r.insert(ctx, user)
	}
	const query = `
		UPDATE users SET
			email = $2, nickname = $3, password_hash = $4, first_name = $5,
			last_name = $6, date_of_birth = $7, description = $8,
			verification_link = $9, privacy_status = $10, verified = $11,
			verification_code = $12, user_type = $13, user_status = $14,
			muted = $15, token = $16, last_login = $17
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		nullableText(user.Email),
		user.Nickname,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.DateOfBirth,
		user.Description,
		user.VerificationLink,
		string(user.PrivacyStatus),
		user.Verified,
		user.VerificationCode,
		string(user.Type),
		string(user.Status),
		user.Muted,
		user.Token,
		user.LastLogin,
	)
	if err != nil {
		return domain.User{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (r *PgUserRepository) insert(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (
			email, nickname, password_hash, first_name, last_name, date_of_birth,
			description, verification_link, privacy_status, verified,
			verification_code, user_type, user_status, muted, token, last_login,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		nullableText(user.Email),
		user.Nickname,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.DateOfBirth,
		user.Description,
		user.VerificationLink,
		string(user.PrivacyStatus),
		user.Verified,
		user.VerificationCode,
		string(user.Type),
		string(user.Status),
		user.Muted,
		user.Token,
		user.LastLogin,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgUserRepository) Delete(ctx context.Context, user domain.User) error {
	const query = `DELETE FROM users WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActive devuelve los usuarios que no estan OFFLINE.
func (r *PgUserRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_status <> $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, string(domain.UserStatusOffline))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u             domain.User
		email         *string
		privacyStatus string
		userType      string
		userStatus    string
	)
	err := row.Scan(
		&u.ID,
		&email,
		&u.Nickname,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.DateOfBirth,
		&u.Description,
		&u.VerificationLink,
		&privacyStatus,
		&u.Verified,
		&u.VerificationCode,
		&userType,
		&userStatus,
		&u.Muted,
		&u.Token,
		&u.LastLogin,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, err
	}
	if email != nil {
		u.Email = *email
	}
	u.PrivacyStatus = domain.PrivacyStatus(privacyStatus)
	u.Type = domain.UserType(userType)
	u.Status = domain.UserStatus(userStatus)
	return u, nil
}

// Los invitados no tienen email; NULL evita chocar con el indice unico.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
