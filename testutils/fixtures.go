package testutils

import (
	"time"

	"github.com/tech-arch1tect/votegate/config"
)

// FixedTime is a fixed instant used as the starting point of test clocks.
var FixedTime = time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test Elections",
			Env:  config.EnvTest,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		OTP: config.OTPConfig{
			ExpiryMinutes:      5,
			CodeLength:         6,
			AllowedVoterStates: []string{"active", "in-training", "suspended", "pending", "conditional"},
			LookupScope:        config.LookupGlobal,
			ElectionTimezone:   "America/Bogota",
			SweepEnabled:       false,
			SweepSchedule:      "@every 1m",
		},
		Mail: config.MailConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        2525,
			Encryption:  "none",
			FromAddress: "noreply@votegate.test",
			Timeout:     time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:    false,
			Store:      config.StoreMemory,
			IssueRate:  5,
			VerifyRate: 10,
			Period:     time.Minute,
		},
		Redis: config.RedisConfig{
			Addr: "localhost:6379",
		},
		VotingPass: config.VotingPassConfig{
			Enabled: true,
			Secret:  "test-voting-pass-secret-32-chars!!",
			Issuer:  "votegate-test",
			Expiry:  10 * time.Minute,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
