package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-auth/internal/domain"
	"chat-auth/internal/service"
)

const dateOfBirthLayout = "2006-01-02"

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger: logger,
		auth:   auth,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required,email"`
		Nickname      string `json:"nickname" binding:"required"`
		Password      string `json:"password" binding:"required"`
		FirstName     string `json:"first_name"`
		LastName      string `json:"last_name"`
		DateOfBirth   string `json:"date_of_birth"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status" binding:"omitempty,oneof=PUBLIC PRIVATE"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(dateOfBirthLayout, req.DateOfBirth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_of_birth"})
			return
		}
		dob = &parsed
	}

	user, err := h.auth.AddUser(c.Request.Context(), service.RegisterInput{
		Email:         req.Email,
		Nickname:      req.Nickname,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DateOfBirth:   dob,
		Description:   req.Description,
		PrivacyStatus: domain.PrivacyStatus(req.PrivacyStatus),
	})
	if err != nil {
		h.writeAuthError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Verify maneja GET /auth/verify?id=&code=.
func (h *AuthHandler) Verify(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	code := strings.TrimSpace(c.Query("code"))
	if err != nil || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.ValidateAccount(c.Request.Context(), id, code); err != nil {
		h.writeAuthError(c, "verify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.auth.LogIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Guest maneja POST /auth/guest.
func (h *AuthHandler) Guest(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid guest request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.auth.AddGuest(c.Request.Context(), service.GuestInput{Nickname: req.Nickname})
	if err != nil {
		h.writeAuthError(c, "guest", err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// Logout maneja POST /auth/logout. Requiere SessionAuthMiddleware.
func (h *AuthHandler) Logout(c *gin.Context) {
	pair, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	if err := h.auth.LogOut(c.Request.Context(), pair); err != nil {
		h.writeAuthError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": service.LogoutMessage})
}

// KeepAlive maneja POST /auth/keepalive.
func (h *AuthHandler) KeepAlive(c *gin.Context) {
	pair, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	if err := h.auth.KeepAlive(c.Request.Context(), pair.Nickname, pair.Token); err != nil {
		h.writeAuthError(c, "keepalive", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EmailExists maneja GET /auth/email-exists?email=.
func (h *AuthHandler) EmailExists(c *gin.Context) {
	emailAddr := strings.TrimSpace(c.Query("email"))
	if emailAddr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	exists, err := h.auth.EmailExists(c.Request.Context(), emailAddr)
	if err != nil {
		h.writeAuthError(c, "email exists", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// DeleteUser maneja DELETE /users/:nickname. Solo se puede borrar la cuenta propia.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	pair, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	target := domain.BareNickname(c.Param("nickname"))
	if target != domain.BareNickname(pair.Nickname) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user"})
		return
	}

	if err := h.auth.DeleteUserByNickname(c.Request.Context(), target); err != nil {
		h.writeAuthError(c, "delete user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) writeAuthError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateNickname),
		errors.Is(err, service.ErrAlreadyLoggedIn),
		errors.Is(err, service.ErrAlreadyOffline):
		c.JSON(http.StatusConflict, gin.H{"error": rootMessage(err)})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotRegistered):
		c.JSON(http.StatusNotFound, gin.H{"error": rootMessage(err)})
	case errors.Is(err, service.ErrInvalidVerificationCode),
		errors.Is(err, service.ErrInvalidNickname),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": rootMessage(err)})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": rootMessage(err)})
	case errors.Is(err, service.ErrNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": rootMessage(err)})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
	}
}

// rootMessage quita el detalle agregado con %w para no filtrar datos del usuario.
func rootMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[:i]
	}
	return msg
}
