// Package boot turns the loaded configuration into validated runtime settings.
package boot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hexlet/typoreporter/internal/config"
)

// RuntimeConfig holds parsed runtime settings (session secret, lifetime, server address).
// Values may be overridden by environment variables (HTTP_ADDR, SESSION_SECRET).
type RuntimeConfig struct {
	SessionSecret    string
	SessionExpiresIn time.Duration
	CookieName       string
	SecureCookies    bool
	ServerAddr       string
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		SessionSecret: cfg.Auth.SessionSecret,
		CookieName:    strings.TrimSpace(cfg.Auth.CookieName),
		SecureCookies: cfg.Server.SecureCookies,
		ServerAddr:    cfg.Server.Addr,
	}
	if value := os.Getenv("SESSION_SECRET"); value != "" {
		ret.SessionSecret = value
	}
	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}

	if strings.TrimSpace(ret.SessionSecret) == "" {
		return nil, errors.New("session secret is required")
	}
	expiresIn, err := time.ParseDuration(cfg.Auth.SessionExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid session expires in: %w", err)
	}
	if expiresIn <= 0 {
		return nil, fmt.Errorf("session expires in must be positive, got %s", expiresIn)
	}
	ret.SessionExpiresIn = expiresIn
	if ret.CookieName == "" {
		ret.CookieName = config.DefaultSessionCookie
	}
	return ret, nil
}
