package domain

import (
	"strings"
	"time"
)

// GuestPrefix se muestra delante del nickname de los invitados.
const GuestPrefix = "Guest-"

type UserType string

const (
	UserTypeRegular UserType = "REGULAR"
	UserTypeGuest   UserType = "GUEST"
)

type UserStatus string

const (
	UserStatusOnline  UserStatus = "ONLINE"
	UserStatusOffline UserStatus = "OFFLINE"
	UserStatusAway    UserStatus = "AWAY"
)

type PrivacyStatus string

const (
	PrivacyPublic  PrivacyStatus = "PUBLIC"
	PrivacyPrivate PrivacyStatus = "PRIVATE"
)

type User struct {
	ID               int64         `json:"id"`
	Email            string        `json:"email,omitempty"`
	Nickname         string        `json:"nickname"`
	PasswordHash     string        `json:"-"`
	FirstName        string        `json:"first_name,omitempty"`
	LastName         string        `json:"last_name,omitempty"`
	DateOfBirth      *time.Time    `json:"date_of_birth,omitempty"`
	Description      string        `json:"description,omitempty"`
	VerificationLink string        `json:"-"`
	PrivacyStatus    PrivacyStatus `json:"privacy_status"`
	Verified         bool          `json:"verified"`
	VerificationCode string        `json:"-"`
	Type             UserType      `json:"user_type"`
	Status           UserStatus    `json:"user_status"`
	Muted            bool          `json:"muted"`
	Token            *string       `json:"-"`
	LastLogin        *time.Time    `json:"last_login,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

func (u User) IsGuest() bool {
	return u.Type == UserTypeGuest
}

// NicknameTokenPair identifica una sesion activa. No se persiste.
type NicknameTokenPair struct {
	Nickname string `json:"nickname"`
	Token    string `json:"token"`
}

// DisplayNickname devuelve el nickname tal como lo ve el cliente.
func DisplayNickname(u User) string {
	if u.IsGuest() {
		return GuestPrefix + u.Nickname
	}
	return u.Nickname
}

// BareNickname quita el prefijo de invitado de un nickname recibido del cliente.
func BareNickname(nickname string) string {
	return strings.TrimPrefix(strings.TrimSpace(nickname), GuestPrefix)
}

// HasGuestPrefix indica si el nickname trae el prefijo reservado para invitados.
func HasGuestPrefix(nickname string) bool {
	return strings.HasPrefix(strings.TrimSpace(nickname), GuestPrefix)
}
