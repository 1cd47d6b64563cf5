package testutils

import (
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
)

const (
	TestSecret  = "JBSWY3DPEHPK3PXP"
	TestGroupID = int64(-1001234567890)
	TestAdminID = int64(1001)
	TestUserID  = int64(424242)
	TestJWTKey  = "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9t0u1v2w3x4y5z6"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test Bot",
		},
		Server: config.ServerConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    "8080",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		JWT: config.JWTConfig{
			SecretKey:    TestJWTKey,
			Issuer:       "test-issuer",
			AccessExpiry: 15 * time.Minute,
		},
		Revocation: config.RevocationConfig{
			Enabled:       true,
			CleanupPeriod: time.Hour,
		},
		Scheduler: config.SchedulerConfig{
			DefaultCadence:  10,
			DefaultStyle:    "full",
			DefaultTimezone: "UTC",
			CadenceUnit:     time.Millisecond,
			SendTimeout:     time.Second,
		},
		Telegram: config.TelegramConfig{
			ButtonLabel: "Get code",
		},
		Ledger: config.LedgerConfig{
			DefaultAttempts: 3,
		},
		Reset: config.ResetConfig{
			DailySpec:     "@midnight",
			DailyTimezone: "UTC",
		},
		Admin: config.AdminConfig{
			SeedID:      TestAdminID,
			ProtectSeed: true,
			ConfirmTTL:  time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Rate:   100,
			Period: time.Minute,
		},
	}
}
