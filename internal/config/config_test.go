package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9090"
csrf = false

[auth]
session_secret = "s3cret"

[postgres]
database = "typos"

[validation]
password_min_length = 12
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.False(t, cfg.Server.CSRF)
	assert.Equal(t, DefaultAuthRatePerMinute, cfg.Server.AuthRatePerMinute)
	assert.Equal(t, "s3cret", cfg.Auth.SessionSecret)
	assert.Equal(t, DefaultSessionExpiresIn, cfg.Auth.SessionExpiresIn)
	assert.Equal(t, DefaultSessionCookie, cfg.Auth.CookieName)
	assert.Equal(t, "typos", cfg.Postgres.Database)
	assert.Equal(t, DefaultPGHost, cfg.Postgres.Host)
	assert.Equal(t, 12, cfg.Validation.PasswordMinLength)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr ="), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
