package modules

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/config"
	"github.com/hexlet/typoreporter/internal/forms"
)

var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		provideAccountStore,
		accounts.NewService,
		provideValidator,
	),
)

// ---------------------------------------------------------------------------
// domain providers
// ---------------------------------------------------------------------------

func provideAccountStore(conn *pgxpool.Pool) accounts.Store {
	return accounts.NewPostgresStore(conn)
}

func provideValidator(log *slog.Logger, cfg config.Config) *forms.Validator {
	v := forms.New(forms.Rules{PasswordMinLength: cfg.Validation.PasswordMinLength})
	log.Debug("form rules loaded", slog.Int("password_min_length", v.Rules().PasswordMinLength))
	return v
}
