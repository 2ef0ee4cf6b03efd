// Package config loads service configuration from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is shared by cmd/server and cmd/remindctl.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`

	Database DatabaseConfig

	Sweep SweepConfig

	// Delivery
	DeliveryDriver  string        `env:"DELIVERY_DRIVER" envDefault:"sendgrid"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"20s"`
	SendGridAPIKey  string        `env:"SENDGRID_API_KEY"`
	FromEmail       string        `env:"SENDGRID_NOTIFICATIONS_FROM_EMAIL"`
	FromName        string        `env:"SENDGRID_FROM_NAME" envDefault:"Appointments"`

	// AdminSecret signs admin JWTs; the admin routes are disabled without it.
	AdminSecret      string        `env:"ADMIN_JWT_SECRET"`
	AdminTokenTTL    time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	CORSAllowOrigins []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// DatabaseConfig selects and configures the store. DATABASE_URL wins over the
// individual DB_* parameters.
type DatabaseConfig struct {
	Driver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	LogSQL   bool   `env:"DB_LOG_SQL" envDefault:"false"`
}

// SweepConfig controls the reminder sweep cadence.
type SweepConfig struct {
	Schedule   string        `env:"SWEEP_SCHEDULE" envDefault:"*/15 * * * *"`
	Window     time.Duration `env:"SWEEP_WINDOW" envDefault:"15m"`
	Workers    int           `env:"SWEEP_WORKERS" envDefault:"4"`
	Timezone   string        `env:"SWEEP_TIMEZONE" envDefault:"UTC"`
	ClaimLease time.Duration `env:"CLAIM_LEASE" envDefault:"2m"`
	Enabled    bool          `env:"SWEEP_ENABLED" envDefault:"true"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
			errs = append(errs, errors.New("DATABASE_URL or DB_HOST, DB_USER and DB_NAME must be set"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}

	if c.Sweep.Window <= 0 {
		errs = append(errs, errors.New("SWEEP_WINDOW must be > 0"))
	}
	if c.Sweep.Workers < 1 {
		errs = append(errs, errors.New("SWEEP_WORKERS must be >= 1"))
	}
	if c.Sweep.ClaimLease <= 0 {
		errs = append(errs, errors.New("CLAIM_LEASE must be > 0"))
	}
	if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_SCHEDULE: %w", err))
	}
	if _, err := time.LoadLocation(c.Sweep.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_TIMEZONE: %w", err))
	}

	switch c.DeliveryDriver {
	case "sendgrid":
		if c.SendGridAPIKey == "" || c.FromEmail == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and SENDGRID_NOTIFICATIONS_FROM_EMAIL must be set for the sendgrid driver"))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("unknown DELIVERY_DRIVER %q", c.DeliveryDriver))
	}
	if c.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("DELIVERY_TIMEOUT must be > 0"))
	}
	if c.Sweep.ClaimLease > 0 && c.Sweep.ClaimLease <= c.DeliveryTimeout {
		errs = append(errs, fmt.Errorf("CLAIM_LEASE (%s) must be longer than DELIVERY_TIMEOUT (%s)", c.Sweep.ClaimLease, c.DeliveryTimeout))
	}
	if c.AdminSecret != "" && len(c.AdminSecret) < 32 {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET must be at least 32 bytes"))
	}
	if c.AdminTokenTTL <= 0 {
		errs = append(errs, errors.New("ADMIN_TOKEN_TTL must be > 0"))
	}
	return errors.Join(errs...)
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
