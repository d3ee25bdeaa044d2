package boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexlet/typoreporter/internal/config"
)

func TestProvideRuntimeConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("HTTP_ADDR", "")

	cfg := config.Defaults()
	cfg.Auth.SessionSecret = "secret"
	cfg.Auth.SessionExpiresIn = "2h"
	cfg.Auth.CookieName = " "

	rc, err := ProvideRuntimeConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "secret", rc.SessionSecret)
	assert.Equal(t, 2*time.Hour, rc.SessionExpiresIn)
	assert.Equal(t, config.DefaultSessionCookie, rc.CookieName)
	assert.Equal(t, config.DefaultHTTPAddr, rc.ServerAddr)
}

func TestProvideRuntimeConfigEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "from-env")
	t.Setenv("HTTP_ADDR", ":7070")

	rc, err := ProvideRuntimeConfig(config.Defaults())
	require.NoError(t, err)
	assert.Equal(t, "from-env", rc.SessionSecret)
	assert.Equal(t, ":7070", rc.ServerAddr)
}

func TestProvideRuntimeConfigErrors(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("HTTP_ADDR", "")

	_, err := ProvideRuntimeConfig(config.Defaults())
	assert.EqualError(t, err, "session secret is required")

	cfg := config.Defaults()
	cfg.Auth.SessionSecret = "secret"
	cfg.Auth.SessionExpiresIn = "soon"
	_, err = ProvideRuntimeConfig(cfg)
	assert.ErrorContains(t, err, "invalid session expires in")

	cfg.Auth.SessionExpiresIn = "-1h"
	_, err = ProvideRuntimeConfig(cfg)
	assert.ErrorContains(t, err, "must be positive")
}
