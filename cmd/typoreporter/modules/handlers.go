package modules

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/config"
	"github.com/hexlet/typoreporter/internal/forms"
	"github.com/hexlet/typoreporter/internal/handlers"
	"github.com/hexlet/typoreporter/internal/server"
)

var HandlersModule = fx.Module(
	"handlers",
	fx.Provide(
		annotateHandler(handlers.NewAccountHandler),
		annotateHandler(provideAuthHandler),
		annotateHandler(providePingHandler),
	),
)

// annotateHandler wraps a handler provider function with fx.Annotate
// to register it as a server.Handler with the correct group tag
func annotateHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

// ---------------------------------------------------------------------------
// handler providers (config extraction)
// ---------------------------------------------------------------------------

func provideAuthHandler(log *slog.Logger, service *accounts.Service, validator *forms.Validator, sessions *auth.Issuer, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, service, validator, sessions, cfg.Server.AuthRatePerMinute)
}

func providePingHandler(log *slog.Logger, conn *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log, conn)
}
