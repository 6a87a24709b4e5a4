package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// NewRouter configura el router de Gin con middlewares y rutas.
// metricsHandler puede ser nil si no se exponen metricas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	sessions sessionAuthenticator,
	metricsHandler http.Handler,
) *gin.Engine {
	r := gin.New()

	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())

	requireSession := SessionAuthMiddleware(sessions)

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.GET("/verify", authH.Verify)
	auth.POST("/login", authH.Login)
	auth.POST("/guest", authH.Guest)
	auth.GET("/email-exists", authH.EmailExists)
	auth.POST("/logout", requireSession, authH.Logout)
	auth.POST("/keepalive", requireSession, authH.KeepAlive)

	users := r.Group("/users")
	users.DELETE("/:nickname", requireSession, authH.DeleteUser)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return r
}

// requestIDMiddleware propaga X-Request-ID o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
