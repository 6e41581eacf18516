package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envProduction = "production"

// Config holds application configuration values.
type Config struct {
	AppEnv       string        `envconfig:"APP_ENV" default:"development"`
	AppPort      string        `envconfig:"PORT" default:"8000"`
	DatabaseURL  string        `envconfig:"DB_URL" required:"true"`
	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"`
	TokenExpires time.Duration `envconfig:"JWT_TOKEN_EXPIRES_IN" default:"24h"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"json"`

	// CORSAllowOrigins is a comma separated origin list; empty allows any origin.
	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS"`

	Khalti   KhaltiConfig
	Telegram TelegramConfig
	Admin    AdminConfig
}

// KhaltiConfig configures the payment verification gateway.
type KhaltiConfig struct {
	SecretKey string        `envconfig:"KHALTI_SECRET_KEY"`
	VerifyURL string        `envconfig:"KHALTI_VERIFY_URL" default:"https://khalti.com/api/v2/payment/verify/"`
	Timeout   time.Duration `envconfig:"KHALTI_TIMEOUT" default:"15s"`
}

// TelegramConfig configures the bot used for admin notifications.
type TelegramConfig struct {
	BotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminChatID string `envconfig:"TELEGRAM_ADMIN_CHAT_ID"`
}

// AdminConfig describes an optional administrator account created at startup.
type AdminConfig struct {
	Email              string `envconfig:"ADMIN_EMAIL"`
	Password           string `envconfig:"ADMIN_PASSWORD"`
	RegistrationNumber string `envconfig:"ADMIN_REGISTRATION_NUMBER" default:"ADMIN-0001"`
	PhoneNumber        string `envconfig:"ADMIN_PHONE_NUMBER" default:"0000000000"`
}

// Enabled reports whether enough values are set to bootstrap an admin.
func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// Load reads environment variables (and an optional .env file) and returns a populated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.TokenExpires <= 0 {
		return nil, fmt.Errorf("JWT_TOKEN_EXPIRES_IN must be positive, got %s", cfg.TokenExpires)
	}

	return &cfg, nil
}

// IsProduction controls secure-cookie behaviour.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, envProduction)
}
