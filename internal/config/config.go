package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	SMTP SMTPConfig

	SessionTTL         time.Duration `env:"SESSION_TTL"          envDefault:"168h"`
	SessionUpdateAge   time.Duration `env:"SESSION_UPDATE_AGE"   envDefault:"24h"`
	OTPTTL             time.Duration `env:"OTP_TTL"              envDefault:"5m"`
	OTPAllowedAttempts int           `env:"OTP_ALLOWED_ATTEMPTS" envDefault:"3"`
	CookieSecure       bool          `env:"COOKIE_SECURE"        envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// SMTPConfig describes the relay used to deliver one-time codes.
type SMTPConfig struct {
	Host   string `env:"SMTP_HOST"`
	Port   int    `env:"SMTP_PORT"   envDefault:"587"`
	Secure bool   `env:"SMTP_SECURE"`
	User   string `env:"SMTP_USER"`
	Pass   string `env:"SMTP_PASS"`
	From   string `env:"EMAIL_FROM"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.OTPAllowedAttempts <= 0 {
		cfg.OTPAllowedAttempts = 3
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.SessionUpdateAge <= 0 {
		cfg.SessionUpdateAge = 24 * time.Hour
	}

	return cfg, nil
}

// GoogleEnabled reports whether both Google credentials are configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GitHubEnabled reports whether both GitHub credentials are configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// RedirectURL returns the OAuth callback registered with the given provider.
func (c Config) RedirectURL(provider string) string {
	return c.BaseURL + "/api/auth/callback/" + provider
}
