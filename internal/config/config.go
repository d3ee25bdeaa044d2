// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath        = "config.toml"
	DefaultHTTPAddr          = ":8080"
	DefaultSessionExpiresIn  = "24h"
	DefaultSessionCookie     = "typoreporter_session"
	DefaultPGHost            = "127.0.0.1"
	DefaultPGPort            = 5432
	DefaultPGUser            = "postgres"
	DefaultPGDatabase        = "typoreporter"
	DefaultPGSSLMode         = "disable"
	DefaultPasswordMinLength = 8
	DefaultAuthRatePerMinute = 30
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Admin      AdminConfig      `toml:"admin"`
	Auth       AuthConfig       `toml:"auth"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Validation ValidationConfig `toml:"validation"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and browser-facing protections.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	SecureCookies bool   `toml:"secure_cookies"`
	CSRF          bool   `toml:"csrf"`
	// AuthRatePerMinute limits login and signup submissions per client IP.
	AuthRatePerMinute int `toml:"auth_rate_per_minute"`
}

// AdminConfig holds the bootstrap account created on an empty database.
type AdminConfig struct {
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Email     string `toml:"email"`
	FirstName string `toml:"first_name"`
	LastName  string `toml:"last_name"`
}

// AuthConfig holds the session signing secret, lifetime (e.g. 24h) and cookie name.
type AuthConfig struct {
	SessionSecret    string `toml:"session_secret"`
	SessionExpiresIn string `toml:"session_expires_in"`
	CookieName       string `toml:"cookie_name"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ValidationConfig tunes the form rules that are not fixed by the data model.
type ValidationConfig struct {
	PasswordMinLength int `toml:"password_min_length"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:              DefaultHTTPAddr,
			CSRF:              true,
			AuthRatePerMinute: DefaultAuthRatePerMinute,
		},
		Admin: AdminConfig{
			Username:  "admin",
			Password:  "change-your-password-here",
			Email:     "admin@example.com",
			FirstName: "Admin",
			LastName:  "Admin",
		},
		Auth: AuthConfig{
			SessionExpiresIn: DefaultSessionExpiresIn,
			CookieName:       DefaultSessionCookie,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Validation: ValidationConfig{
			PasswordMinLength: DefaultPasswordMinLength,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
