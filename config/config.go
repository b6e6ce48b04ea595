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

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type LookupScope string

const (
	LookupGlobal LookupScope = "global"
	LookupScoped LookupScope = "scoped"
)

type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreRedis  StoreType = "redis"
)

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Log        LogConfig        `envPrefix:"LOG_"`
	Database   DatabaseConfig   `envPrefix:"DATABASE_"`
	OTP        OTPConfig        `envPrefix:"OTP_"`
	Mail       MailConfig       `envPrefix:"MAIL_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	VotingPass VotingPassConfig `envPrefix:"VOTING_PASS_"`
	Metrics    MetricsConfig    `envPrefix:"METRICS_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"votegate"`
	Env  string `env:"ENV" envDefault:"development"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"votegate.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type OTPConfig struct {
	ExpiryMinutes      int         `env:"EXPIRY_MINUTES" envDefault:"5"`
	CodeLength         int         `env:"CODE_LENGTH" envDefault:"6"`
	AllowedVoterStates []string    `env:"ALLOWED_VOTER_STATES" envDefault:"active,in-training,suspended,pending,conditional" envSeparator:","`
	LookupScope        LookupScope `env:"LOOKUP_SCOPE" envDefault:"global"`
	ElectionWindow     bool        `env:"ELECTION_WINDOW_CHECK" envDefault:"false"`
	ElectionTimezone   string      `env:"ELECTION_TIMEZONE" envDefault:"America/Bogota"`
	SweepEnabled       bool        `env:"SWEEP_ENABLED" envDefault:"true"`
	SweepSchedule      string      `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`
}

func (c OTPConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

type MailConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"false"`
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT" envDefault:"587"`
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	Encryption   string        `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string        `env:"FROM_ADDRESS" envDefault:"noreply@votegate.local"`
	FromName     string        `env:"FROM_NAME"`
	TemplatesDir string        `env:"TEMPLATES_DIR"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type RateLimitConfig struct {
	Enabled    bool          `env:"ENABLED" envDefault:"true"`
	Store      StoreType     `env:"STORE" envDefault:"memory"`
	IssueRate  int           `env:"ISSUE_RATE" envDefault:"5"`
	VerifyRate int           `env:"VERIFY_RATE" envDefault:"10"`
	Period     time.Duration `env:"PERIOD" envDefault:"1m"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type VotingPassConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	Secret  string        `env:"SECRET"`
	Issuer  string        `env:"ISSUER" envDefault:"votegate"`
	Expiry  time.Duration `env:"EXPIRY" envDefault:"10m"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Env), EnvProduction)
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if c.OTP.ExpiryMinutes <= 0 {
		errs = append(errs, fmt.Errorf("OTP_EXPIRY_MINUTES must be greater than zero, got %d", c.OTP.ExpiryMinutes))
	}
	if c.OTP.CodeLength < 4 || c.OTP.CodeLength > 12 {
		errs = append(errs, fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 12, got %d", c.OTP.CodeLength))
	}
	if len(c.OTP.AllowedVoterStates) == 0 {
		errs = append(errs, errors.New("OTP_ALLOWED_VOTER_STATES cannot be empty"))
	}
	switch c.OTP.LookupScope {
	case LookupGlobal, LookupScoped:
	default:
		errs = append(errs, fmt.Errorf("unsupported OTP_LOOKUP_SCOPE: %q (supported: global, scoped)", c.OTP.LookupScope))
	}
	if c.OTP.ElectionWindow {
		if _, err := time.LoadLocation(c.OTP.ElectionTimezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid OTP_ELECTION_TIMEZONE: %w", err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.App.Env)) {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("unsupported APP_ENV: %q", c.App.Env))
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Store {
		case StoreMemory:
		case StoreRedis:
			if c.Redis.Addr == "" {
				errs = append(errs, errors.New("REDIS_ADDR is required when RATE_LIMIT_STORE=redis"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported RATE_LIMIT_STORE: %q (supported: memory, redis)", c.RateLimit.Store))
		}
	}

	if c.VotingPass.Enabled && len(c.VotingPass.Secret) < 32 {
		errs = append(errs, errors.New("VOTING_PASS_SECRET must be at least 32 characters when voting passes are enabled"))
	}

	if c.Mail.Enabled && c.Mail.FromAddress == "" {
		errs = append(errs, errors.New("MAIL_FROM_ADDRESS is required when mail is enabled"))
	}

	return errors.Join(errs...)
}
