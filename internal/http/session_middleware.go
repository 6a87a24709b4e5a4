package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-auth/internal/domain"
	"chat-auth/internal/service"
)

const (
	sessionKey     = "chat_session"
	nicknameHeader = "X-Nickname"
)

type sessionAuthenticator interface {
	AuthenticateUser(nickname, token string) (bool, error)
}

// SessionAuthMiddleware valida el par nickname/token contra el registro de
// sesiones y lo guarda en el contexto.
func SessionAuthMiddleware(auth sessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}
		nickname := strings.TrimSpace(c.GetHeader(nicknameHeader))
		if nickname == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing nickname"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		ok, err := auth.AuthenticateUser(nickname, token)
		if err != nil && !errors.Is(err, service.ErrAuthenticationFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not authenticate"})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(sessionKey, domain.NicknameTokenPair{Nickname: nickname, Token: token})
		c.Next()
	}
}

// GetSession obtiene el par autenticado desde el contexto.
func GetSession(c *gin.Context) (domain.NicknameTokenPair, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return domain.NicknameTokenPair{}, false
	}
	pair, ok := val.(domain.NicknameTokenPair)
	return pair, ok
}
