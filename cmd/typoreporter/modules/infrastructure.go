package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/boot"
	"github.com/hexlet/typoreporter/internal/config"
	"github.com/hexlet/typoreporter/internal/db"
	"github.com/hexlet/typoreporter/internal/logger"
	"github.com/hexlet/typoreporter/internal/render"
	"github.com/hexlet/typoreporter/web"
)

var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		provideConfig,
		provideLogger,
		provideDBConn,
		boot.ProvideRuntimeConfig,
		provideSessionIssuer,
		provideRenderer,
	),
)

// NewFxLogger routes fx lifecycle events through the application logger.
func NewFxLogger(log *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
}

// ---------------------------------------------------------------------------
// infrastructure providers
// ---------------------------------------------------------------------------

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	return logger.Init(cfg.Log.Level, cfg.Log.Format)
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideSessionIssuer(rc *boot.RuntimeConfig) (*auth.Issuer, error) {
	return auth.NewIssuer(auth.Options{
		Secret:     rc.SessionSecret,
		TTL:        rc.SessionExpiresIn,
		CookieName: rc.CookieName,
		Secure:     rc.SecureCookies,
	})
}

func provideRenderer() (*render.Renderer, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return render.New(templates)
}
