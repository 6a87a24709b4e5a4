package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chat-auth/internal/domain"
	"chat-auth/internal/metrics"
)

// DefaultSweepInterval mantiene el barrido por debajo del umbral de inactividad.
const DefaultSweepInterval = 15 * time.Second

type activeUserLister interface {
	ListActive(ctx context.Context) ([]domain.User, error)
}

// OfflineSweeper ejecuta CheckOfflineUsers de forma periodica.
type OfflineSweeper struct {
	logger   *zap.Logger
	users    activeUserLister
	auth     *AuthService
	interval time.Duration
}

func NewOfflineSweeper(logger *zap.Logger, users activeUserLister, auth *AuthService, interval time.Duration) *OfflineSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &OfflineSweeper{
		logger:   logger,
		users:    users,
		auth:     auth,
		interval: interval,
	}
}

// Run bloquea hasta que ctx se cancela.
func (w *OfflineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("offline sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("offline sweeper stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Warn("offline sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep ejecuta una pasada sobre los usuarios no desconectados.
func (w *OfflineSweeper) Sweep(ctx context.Context) error {
	users, err := w.users.ListActive(ctx)
	if err != nil {
		return err
	}
	metrics.Sweeps.Inc()
	return w.auth.CheckOfflineUsers(ctx, users)
}
