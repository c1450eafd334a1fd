// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Signer) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the accounts API server and worker.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AppURL is the public base URL used to build links inside outbound emails.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing and throttling
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Outbound mail delivery
	Mail MailConfig `envPrefix:"MAIL_"`

	// Notification job queue
	Notify NotifyConfig `envPrefix:"NOTIFY_"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// AuthConfig carries the per-purpose secrets and lifetimes of every token kind.
//
// Each purpose has its own secret so that leaking one (e.g. the password
// reset secret) cannot be used to forge another (e.g. access tokens).
type AuthConfig struct {
	Issuer    string        `env:"ISSUER"     envDefault:"accounts"`
	ClockSkew time.Duration `env:"CLOCK_SKEW" envDefault:"0s"`

	AccessSecret string        `env:"JWT_SECRET,required"`
	AccessTTL    time.Duration `env:"JWT_TOKEN_EXPIRES_IN" envDefault:"15m"`

	RefreshSecret string        `env:"REFRESH_SECRET,required"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRES_IN" envDefault:"720h"`

	ResetSecret        string        `env:"FORGOT_SECRET,required"`
	ResetTTL           time.Duration `env:"FORGOT_TOKEN_EXPIRES_IN" envDefault:"30m"`
	ResetMaxAttempts   int           `env:"FORGOT_MAX_ATTEMPT" envDefault:"5"`
	ResetAttemptWindow time.Duration `env:"FORGOT_MAX_ATTEMPT_EXPIRES_IN" envDefault:"24h"`

	VerifySecret string        `env:"CONFIRM_EMAIL_SECRET,required"`
	VerifyTTL    time.Duration `env:"CONFIRM_EMAIL_TOKEN_EXPIRES_IN" envDefault:"24h"`
}

// MailConfig selects and configures the outbound mail sender.
//
// When SMTPAddr is empty the worker falls back to a sender that only logs.
type MailConfig struct {
	From         string `env:"FROM"          envDefault:"no-reply@localhost"`
	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

// NotifyConfig tunes the Redis-backed notification queue.
type NotifyConfig struct {
	Queue       string        `env:"QUEUE"        envDefault:"email"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	Backoff     time.Duration `env:"BACKOFF"      envDefault:"6s"`
	BufferSize  int           `env:"BUFFER_SIZE"  envDefault:"256"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field invariants that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	a := c.Auth
	secrets := map[string]string{
		"AUTH_JWT_SECRET":           a.AccessSecret,
		"AUTH_REFRESH_SECRET":       a.RefreshSecret,
		"AUTH_FORGOT_SECRET":        a.ResetSecret,
		"AUTH_CONFIRM_EMAIL_SECRET": a.VerifySecret,
	}
	seen := make(map[string]string, len(secrets))
	for name, value := range secrets {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
			continue
		}
		if other, dup := seen[value]; dup {
			errs = append(errs, fmt.Errorf("%s must differ from %s", name, other))
		}
		seen[value] = name
	}

	ttls := map[string]time.Duration{
		"AUTH_JWT_TOKEN_EXPIRES_IN":           a.AccessTTL,
		"AUTH_REFRESH_TOKEN_EXPIRES_IN":       a.RefreshTTL,
		"AUTH_FORGOT_TOKEN_EXPIRES_IN":        a.ResetTTL,
		"AUTH_FORGOT_MAX_ATTEMPT_EXPIRES_IN":  a.ResetAttemptWindow,
		"AUTH_CONFIRM_EMAIL_TOKEN_EXPIRES_IN": a.VerifyTTL,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if a.ClockSkew < 0 {
		errs = append(errs, errors.New("AUTH_CLOCK_SKEW must not be negative"))
	}
	if a.ResetMaxAttempts < 1 {
		errs = append(errs, errors.New("AUTH_FORGOT_MAX_ATTEMPT must be at least 1"))
	}
	if c.Notify.MaxAttempts < 1 {
		errs = append(errs, errors.New("NOTIFY_MAX_ATTEMPTS must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
