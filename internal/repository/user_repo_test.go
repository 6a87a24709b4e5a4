package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-auth/internal/domain"
)

var userColumnNames = []string{
	"id", "email", "nickname", "password_hash", "first_name", "last_name", "date_of_birth",
	"description", "verification_link", "privacy_status", "verified", "verification_code",
	"user_type", "user_status", "muted", "token", "last_login", "created_at",
}

// anyArgs completa los argumentos posicionales que el test no fija.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func userRow(rows *pgxmock.Rows, id int64, email *string, nickname string, status domain.UserStatus, lastLogin *time.Time) *pgxmock.Rows {
	token := "tok"
	return rows.AddRow(
		id, email, nickname, "hash", "First", "Last", (*time.Time)(nil),
		"", "", string(domain.PrivacyPublic), true, "code",
		string(domain.UserTypeRegular), string(status), false, &token, lastLogin, time.Unix(0, 0).UTC(),
	)
}

func TestPgUserRepository_GetByNickname(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantNick  string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				email := "a@x.com"
				rows := userRow(pgxmock.NewRows(userColumnNames), 7, &email, "alice", domain.UserStatusOnline, nil)
				mock.ExpectQuery(`SELECT .+ FROM users WHERE nickname = \$1`).
					WithArgs("alice").
					WillReturnRows(rows)
			},
			wantNick: "alice",
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM users WHERE nickname = \$1`).
					WithArgs("alice").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: pgx.ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewPgUserRepository(mock)
			got, err := repo.GetByNickname(context.Background(), "alice")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantNick, got.Nickname)
				assert.Equal(t, int64(7), got.ID)
				assert.Equal(t, "a@x.com", got.Email)
				assert.Equal(t, domain.UserStatusOnline, got.Status)
				assert.Equal(t, domain.UserTypeRegular, got.Type)
				require.NotNil(t, got.Token)
				assert.Equal(t, "tok", *got.Token)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPgUserRepository_SaveInsertAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// email, nickname, 9 columnas de perfil/verificacion, tipo, estado, muted, token, last_login, created_at
	insertArgs := []interface{}{pgxmock.AnyArg(), "alice"}
	insertArgs = append(insertArgs, anyArgs(9)...)
	insertArgs = append(insertArgs, string(domain.UserTypeRegular), string(domain.UserStatusOffline))
	insertArgs = append(insertArgs, anyArgs(4)...)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(insertArgs...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	repo := NewPgUserRepository(mock)
	saved, err := repo.Save(context.Background(), domain.User{
		Email:    "a@x.com",
		Nickname: "alice",
		Type:     domain.UserTypeRegular,
		Status:   domain.UserStatusOffline,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.ID)
	assert.Equal(t, "alice", saved.Nickname)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_SaveUpdate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "missing row", affected: 0, wantErr: pgx.ErrNoRows},
		{name: "db error", execErr: errors.New("connection refused"), wantErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			updateArgs := append([]interface{}{int64(3), pgxmock.AnyArg(), "bob"}, anyArgs(14)...)
			exp := mock.ExpectExec(`UPDATE users SET`).WithArgs(updateArgs...)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			}

			repo := NewPgUserRepository(mock)
			_, err = repo.Save(context.Background(), domain.User{ID: 3, Nickname: "bob"})
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, pgx.ErrNoRows):
				require.ErrorIs(t, err, pgx.ErrNoRows)
			default:
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgUserRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPgUserRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), domain.User{ID: 9}))
	require.ErrorIs(t, repo.Delete(context.Background(), domain.User{ID: 9}), pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	last := time.Now().UTC().Add(-time.Minute)
	rows := pgxmock.NewRows(userColumnNames)
	userRow(rows, 1, nil, "guest1", domain.UserStatusOnline, &last)
	userRow(rows, 2, nil, "guest2", domain.UserStatusAway, &last)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE user_status <> \$1`).
		WithArgs(string(domain.UserStatusOffline)).
		WillReturnRows(rows)

	repo := NewPgUserRepository(mock)
	users, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "guest1", users[0].Nickname)
	assert.Equal(t, "", users[0].Email)
	assert.Equal(t, domain.UserStatusAway, users[1].Status)
	require.NotNil(t, users[1].LastLogin)
	assert.True(t, users[1].LastLogin.Equal(last))
	assert.NoError(t, mock.ExpectationsWereMet())
}
