package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBRunMigrations bool          `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"15s"`
	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string        `env:"SMTP_USER"`
	SMTPPass        string        `env:"SMTP_PASS"`
	SMTPFrom        string        `env:"SMTP_FROM"`
	SMTPFromName    string        `env:"SMTP_FROM_NAME"`
	SMTPUseTLS      bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	StatusChannel   string        `env:"STATUS_CHANNEL" envDefault:"chat:user-status"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
