package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"chat-auth/internal/domain"
	"chat-auth/internal/email"
	"chat-auth/internal/metrics"
	"chat-auth/internal/repository"
	"chat-auth/internal/session"
)

// LogoutMessage es la respuesta que recibe el cliente tras un logout exitoso.
const LogoutMessage = "The user logged out successfully"

// DefaultIdleTimeout es el tiempo sin keepalive tras el cual se cierra la sesion.
const DefaultIdleTimeout = 30 * time.Second

var (
	ErrDuplicateEmail          = errors.New("email already registered")
	ErrDuplicateNickname       = errors.New("nickname already taken")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrNotRegistered           = errors.New("user not registered")
	ErrNotVerified             = errors.New("user not verified")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAlreadyLoggedIn         = errors.New("user already logged in")
	ErrAlreadyOffline          = errors.New("user already offline")
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrInvalidNickname         = errors.New("invalid nickname")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrInvalidPassword         = errors.New("invalid password")
)

// AuthConfig agrupa los parametros ajustables del servicio.
type AuthConfig struct {
	PublicBaseURL string
	IdleTimeout   time.Duration
}

// AuthService coordina registro, sesiones y presencia de usuarios del chat.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	sessions    *session.Registry
	emailSender email.Sender
	publisher   StatusPublisher
	baseURL     string
	idleTimeout time.Duration
	now         func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	sessions *session.Registry,
	emailSender email.Sender,
	publisher StatusPublisher,
	cfg AuthConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.NewRegistry()
	}
	if publisher == nil {
		publisher = NewNoopStatusPublisher()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		sessions:    sessions,
		emailSender: emailSender,
		publisher:   publisher,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		idleTimeout: cfg.IdleTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email            string
	Nickname         string
	Password         string
	FirstName        string
	LastName         string
	DateOfBirth      *time.Time
	Description      string
	PrivacyStatus    domain.PrivacyStatus
	VerificationCode string
}

type GuestInput struct {
	Nickname string
}

// AddUser registra un usuario nuevo y le envia el enlace de verificacion.
func (s *AuthService) AddUser(ctx context.Context, input RegisterInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	nickname, err := validNickname(input.Nickname)
	if err != nil {
		return domain.User{}, err
	}
	if input.Password == "" {
		return domain.User{}, ErrInvalidPassword
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, emailAddr)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	if _, err := s.users.GetByNickname(ctx, nickname); err == nil {
		return domain.User{}, fmt.Errorf("%w: %s", ErrDuplicateNickname, nickname)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	code := strings.TrimSpace(input.VerificationCode)
	if code == "" {
		if code, err = newVerificationCode(); err != nil {
			return domain.User{}, err
		}
	}
	privacy := input.PrivacyStatus
	if privacy == "" {
		privacy = domain.PrivacyPublic
	}

	user := domain.User{
		Email:            emailAddr,
		Nickname:         nickname,
		PasswordHash:     passwordHash,
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		DateOfBirth:      input.DateOfBirth,
		Description:      strings.TrimSpace(input.Description),
		PrivacyStatus:    privacy,
		VerificationCode: code,
		Type:             domain.UserTypeRegular,
		Status:           domain.UserStatusOffline,
		CreatedAt:        s.now(),
	}

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return domain.User{}, mapUniqueViolation(err)
	}

	// El enlace necesita el id asignado por la base.
	saved.VerificationLink = s.verificationLink(saved.ID, code)
	withLink, err := s.users.Save(ctx, saved)
	if err != nil {
		// Sin enlace la cuenta no se puede verificar; se descarta el alta.
		if delErr := s.users.Delete(ctx, saved); delErr != nil && !errors.Is(delErr, pgx.ErrNoRows) {
			s.logger.Error("rollback registration failed", zap.Error(delErr), zap.Int64("user_id", saved.ID))
		}
		return domain.User{}, err
	}
	saved = withLink

	s.sendVerification(ctx, saved)
	return saved, nil
}

// ValidateAccount activa la cuenta si el codigo coincide con el almacenado.
func (s *AuthService) ValidateAccount(ctx context.Context, id int64, code string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.VerificationCode == "" ||
		subtle.ConstantTimeCompare([]byte(user.VerificationCode), []byte(code)) != 1 {
		return ErrInvalidVerificationCode
	}

	user.Verified = true
	if _, err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("account verified", zap.Int64("user_id", user.ID), zap.String("nickname", user.Nickname))
	return nil
}

// LogIn abre una sesion para un usuario registrado y verificado.
func (s *AuthService) LogIn(ctx context.Context, emailAddr, password string) (domain.NicknameTokenPair, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.Logins.WithLabelValues(metrics.LoginNotRegistered).Inc()
			return domain.NicknameTokenPair{}, ErrNotRegistered
		}
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return domain.NicknameTokenPair{}, err
	}
	if !user.Verified {
		metrics.Logins.WithLabelValues(metrics.LoginNotVerified).Inc()
		return domain.NicknameTokenPair{}, ErrNotVerified
	}
	ok, err := checkPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Warn("password check failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	if !ok {
		metrics.Logins.WithLabelValues(metrics.LoginInvalid).Inc()
		return domain.NicknameTokenPair{}, ErrInvalidCredentials
	}

	token, err := s.openSession(user.Nickname)
	if err != nil {
		if errors.Is(err, ErrAlreadyLoggedIn) {
			metrics.Logins.WithLabelValues(metrics.LoginAlreadyOnline).Inc()
		} else {
			metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		}
		return domain.NicknameTokenPair{}, err
	}

	now := s.now()
	user.Token = &token
	user.Status = domain.UserStatusOnline
	user.LastLogin = &now
	if _, err := s.users.Save(ctx, user); err != nil {
		s.removeSession(user.Nickname)
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return domain.NicknameTokenPair{}, err
	}

	metrics.Logins.WithLabelValues(metrics.LoginSuccess).Inc()
	s.logger.Info("user logged in", zap.String("nickname", user.Nickname))
	s.publish(ctx, user)
	return domain.NicknameTokenPair{Nickname: user.Nickname, Token: token}, nil
}

// LogOut cierra la sesion indicada. Los invitados se eliminan por completo.
func (s *AuthService) LogOut(ctx context.Context, pair domain.NicknameTokenPair) error {
	nickname := domain.BareNickname(pair.Nickname)
	user, err := s.lookupNickname(ctx, nickname)
	s.removeSession(nickname)
	if err != nil {
		return err
	}
	return s.closeSession(ctx, user, metrics.LogoutUser)
}

// AddGuest admite un invitado sin registro y le abre una sesion.
// El par devuelto lleva el nickname con prefijo de invitado.
func (s *AuthService) AddGuest(ctx context.Context, input GuestInput) (domain.NicknameTokenPair, error) {
	nickname, err := validNickname(input.Nickname)
	if err != nil {
		return domain.NicknameTokenPair{}, err
	}
	if _, err := s.users.GetByNickname(ctx, nickname); err == nil {
		return domain.NicknameTokenPair{}, fmt.Errorf("%w: %s", ErrDuplicateNickname, nickname)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.NicknameTokenPair{}, err
	}

	token, err := s.openSession(nickname)
	if err != nil {
		return domain.NicknameTokenPair{}, err
	}

	now := s.now()
	guest := domain.User{
		Nickname:      nickname,
		PrivacyStatus: domain.PrivacyPublic,
		Type:          domain.UserTypeGuest,
		Status:        domain.UserStatusOnline,
		Muted:         false,
		Token:         &token,
		LastLogin:     &now,
		CreatedAt:     now,
	}
	saved, err := s.users.Save(ctx, guest)
	if err != nil {
		s.removeSession(nickname)
		return domain.NicknameTokenPair{}, mapUniqueViolation(err)
	}

	metrics.GuestsAdmitted.Inc()
	s.logger.Info("guest admitted", zap.String("nickname", nickname))
	s.publish(ctx, saved)
	return domain.NicknameTokenPair{Nickname: domain.DisplayNickname(saved), Token: token}, nil
}

// AuthenticateUser compara el token recibido con el de la sesion activa.
// Devuelve ErrAuthenticationFailed si el nickname no tiene sesion.
func (s *AuthService) AuthenticateUser(nickname, token string) (bool, error) {
	stored, ok := s.sessions.Get(domain.BareNickname(nickname))
	if !ok {
		return false, ErrAuthenticationFailed
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// KeepAlive renueva la marca de ultimo acceso de una sesion autenticada.
func (s *AuthService) KeepAlive(ctx context.Context, nickname, token string) error {
	ok, err := s.AuthenticateUser(nickname, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthenticationFailed
	}
	user, err := s.lookupNickname(ctx, domain.BareNickname(nickname))
	if err != nil {
		return err
	}
	now := s.now()
	user.LastLogin = &now
	user.Status = domain.UserStatusOnline
	_, err = s.users.Save(ctx, user)
	return err
}

// CheckOfflineUsers cierra la sesion de los usuarios inactivos mas alla del
// umbral configurado. Los fallos por usuario no detienen el barrido.
func (s *AuthService) CheckOfflineUsers(ctx context.Context, users []domain.User) error {
	now := s.now()
	var errs []error
	for _, u := range users {
		if !s.isIdle(u, now) {
			continue
		}
		if err := s.logOutIdle(ctx, u.Nickname, now); err != nil {
			if errors.Is(err, ErrAlreadyOffline) || errors.Is(err, ErrUserNotFound) {
				continue
			}
			s.logger.Warn("idle logout failed", zap.String("nickname", u.Nickname), zap.Error(err))
			errs = append(errs, fmt.Errorf("logout %s: %w", u.Nickname, err))
		}
	}
	return errors.Join(errs...)
}

// EmailExists indica si ya hay un usuario registrado con ese email.
func (s *AuthService) EmailExists(ctx context.Context, emailAddr string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// DeleteUserByNickname elimina un usuario y descarta su sesion si la tenia.
func (s *AuthService) DeleteUserByNickname(ctx context.Context, nickname string) error {
	nickname = domain.BareNickname(nickname)
	user, err := s.lookupNickname(ctx, nickname)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if s.sessions.Contains(nickname) {
		s.removeSession(nickname)
		metrics.Logouts.WithLabelValues(metrics.LogoutAdmin).Inc()
	}
	user.Status = domain.UserStatusOffline
	s.publish(ctx, user)
	s.logger.Info("user deleted", zap.String("nickname", nickname))
	return nil
}

func (s *AuthService) logOutIdle(ctx context.Context, nickname string, now time.Time) error {
	user, err := s.lookupNickname(ctx, nickname)
	if err != nil {
		s.removeSession(nickname)
		return err
	}
	if user.Status == domain.UserStatusOffline {
		s.removeSession(nickname)
		return nil
	}
	// El snapshot puede estar desactualizado si hubo keepalive entretanto.
	if !s.isIdle(user, now) {
		return nil
	}
	s.removeSession(nickname)
	return s.closeSession(ctx, user, metrics.LogoutIdle)
}

func (s *AuthService) closeSession(ctx context.Context, user domain.User, reason string) error {
	if user.Status == domain.UserStatusOffline {
		return ErrAlreadyOffline
	}
	if user.IsGuest() {
		if err := s.users.Delete(ctx, user); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	} else {
		user.Status = domain.UserStatusOffline
		user.Token = nil
		if _, err := s.users.Save(ctx, user); err != nil {
			return err
		}
	}

	user.Status = domain.UserStatusOffline
	metrics.Logouts.WithLabelValues(reason).Inc()
	s.logger.Info("user logged out", zap.String("nickname", user.Nickname), zap.String("reason", reason))
	s.publish(ctx, user)
	return nil
}

func (s *AuthService) isIdle(u domain.User, now time.Time) bool {
	if u.Status == domain.UserStatusOffline || u.LastLogin == nil {
		return false
	}
	return now.Sub(*u.LastLogin) > s.idleTimeout
}

func (s *AuthService) openSession(nickname string) (string, error) {
	token, err := CreateToken()
	if err != nil {
		return "", err
	}
	if !s.sessions.PutIfAbsent(nickname, token) {
		return "", ErrAlreadyLoggedIn
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	return token, nil
}

func (s *AuthService) removeSession(nickname string) {
	s.sessions.Remove(nickname)
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
}

func (s *AuthService) lookupNickname(ctx context.Context, nickname string) (domain.User, error) {
	user, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, user domain.User) {
	event := StatusEvent{
		Nickname: domain.DisplayNickname(user),
		Type:     user.Type,
		Status:   user.Status,
		At:       s.now(),
	}
	if err := s.publisher.PublishStatus(ctx, event); err != nil {
		s.logger.Warn("publish status failed", zap.Error(err), zap.String("nickname", user.Nickname))
	}
}

func (s *AuthService) sendVerification(ctx context.Context, user domain.User) {
	if s.emailSender == nil {
		s.logger.Warn("verification email skipped: sender not configured", zap.Int64("user_id", user.ID))
		return
	}
	if err := s.emailSender.SendVerificationLink(ctx, user.Email, user.Nickname, user.VerificationLink); err != nil {
		s.logger.Warn("send verification link failed", zap.Error(err), zap.String("email", user.Email))
	}
}

func (s *AuthService) verificationLink(id int64, code string) string {
	return fmt.Sprintf("%s/auth/verify?id=%d&code=%s", s.baseURL, id, url.QueryEscape(code))
}

func validNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || domain.HasGuestPrefix(nickname) {
		return "", ErrInvalidNickname
	}
	return nickname, nil
}

// mapUniqueViolation traduce las violaciones de indice unico de Postgres.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "email") {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: %s", ErrDuplicateNickname, pgErr.ConstraintName)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
