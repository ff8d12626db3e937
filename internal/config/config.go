package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Env         string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiry        time.Duration `envconfig:"JWT_EXPIRY" default:"2h"`
	ResetTokenExpiry time.Duration `envconfig:"RESET_TOKEN_EXPIRY" default:"1h"`

	FrontendBaseURL string `envconfig:"FRONTEND_BASE_URL" default:"http://localhost:4200"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	RedisURL  string          `envconfig:"REDIS_URL"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`

	SMTP SMTPConfig `envconfig:"SMTP"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"WINDOW" default:"1m"`
	Auth   int           `envconfig:"AUTH" default:"10"`
}

type SMTPConfig struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"587"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM"`
}

// Load reads an optional .env file and then decodes the process environment.
// Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("failed to load config: JWT_SECRET must not be empty")
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
