package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Log        LogConfig        `envPrefix:"LOG_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Revocation RevocationConfig `envPrefix:"REVOCATION_"`
	Telegram   TelegramConfig   `envPrefix:"TELEGRAM_"`
	Scheduler  SchedulerConfig  `envPrefix:"SCHEDULER_"`
	Ledger     LedgerConfig     `envPrefix:"LEDGER_"`
	Reset      ResetConfig      `envPrefix:"RESET_"`
	Admin      AdminConfig      `envPrefix:"ADMIN_"`
	Mail       MailConfig       `envPrefix:"MAIL_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Seed       SeedConfig       `envPrefix:"SEED_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"ChatGPTPlus2FABot"`
}

type ServerConfig struct {
	Enabled        bool     `env:"ENABLED" envDefault:"true"`
	Port           string   `env:"PORT" envDefault:"8080"`
	Host           string   `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	LogSkipPaths   []string `env:"LOG_SKIP_PATHS" envSeparator:"," envDefault:"/healthz"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"bot.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Issuer       string        `env:"ISSUER" envDefault:"ChatGPTPlus2FABot"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
}

type TelegramConfig struct {
	Enabled        bool          `env:"ENABLED" envDefault:"false"`
	Token          string        `env:"TOKEN"`
	PollTimeout    int           `env:"POLL_TIMEOUT" envDefault:"60"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ButtonLabel    string        `env:"BUTTON_LABEL" envDefault:"Get code"`
}

type RevocationConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	CleanupPeriod time.Duration `env:"CLEANUP_PERIOD" envDefault:"1h"`
}

type SchedulerConfig struct {
	DefaultCadence  int           `env:"DEFAULT_CADENCE" envDefault:"10"`
	DefaultStyle    string        `env:"DEFAULT_STYLE" envDefault:"full"`
	DefaultTimezone string        `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`
	CadenceUnit     time.Duration `env:"CADENCE_UNIT" envDefault:"1m"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" envDefault:"15s"`
	TemplatesDir    string        `env:"TEMPLATES_DIR"`
}

// LedgerConfig.DefaultAttempts is the global attempt budget for a (group,
// user) pair seen for the first time. Groups may override it.
type LedgerConfig struct {
	DefaultAttempts int `env:"DEFAULT_ATTEMPTS" envDefault:"5"`
}

type ResetConfig struct {
	DailyEnabled  bool   `env:"DAILY_ENABLED" envDefault:"false"`
	DailySpec     string `env:"DAILY_SPEC" envDefault:"@midnight"`
	DailyTimezone string `env:"DAILY_TIMEZONE" envDefault:"UTC"`
}

type AdminConfig struct {
	SeedID      int64         `env:"SEED_ID"`
	ProtectSeed bool          `env:"PROTECT_SEED" envDefault:"true"`
	ConfirmTTL  time.Duration `env:"CONFIRM_TTL" envDefault:"2m"`
}

type MailConfig struct {
	Enabled     bool     `env:"ENABLED" envDefault:"false"`
	Host        string   `env:"HOST" envDefault:"localhost"`
	Port        int      `env:"PORT" envDefault:"587"`
	Username    string   `env:"USERNAME"`
	Password    string   `env:"PASSWORD"`
	Encryption  string   `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress string   `env:"FROM_ADDRESS"`
	FromName    string   `env:"FROM_NAME" envDefault:"ChatGPTPlus2FABot"`
	AlertTo     []string `env:"ALERT_TO" envSeparator:","`
}

type RateLimitConfig struct {
	Rate   int           `env:"RATE" envDefault:"10"`
	Period time.Duration `env:"PERIOD" envDefault:"1m"`
}

type SeedConfig struct {
	File string `env:"FILE"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateLedgerConfig(&c.Ledger); err != nil {
		return err
	}
	if err := validateSchedulerConfig(&c.Scheduler); err != nil {
		return err
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required when the Telegram transport is enabled")
	}
	return nil
}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.SecretKey == "" {
		return nil
	}

	if len(cfg.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range []string{"password", "secret", "test", "example", "default", "change"} {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	return nil
}

func validateLedgerConfig(cfg *LedgerConfig) error {
	if cfg.DefaultAttempts < 0 {
		return fmt.Errorf("LEDGER_DEFAULT_ATTEMPTS must not be negative, got %d", cfg.DefaultAttempts)
	}
	return nil
}

func validateSchedulerConfig(cfg *SchedulerConfig) error {
	if cfg.DefaultCadence <= 0 {
		return fmt.Errorf("SCHEDULER_DEFAULT_CADENCE must be a positive number of minutes, got %d", cfg.DefaultCadence)
	}
	if cfg.CadenceUnit <= 0 {
		return fmt.Errorf("SCHEDULER_CADENCE_UNIT must be positive, got %s", cfg.CadenceUnit)
	}
	return nil
}
