package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.uber.org/fx"

	dbfs "github.com/hexlet/typoreporter/db"
	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/boot"
	"github.com/hexlet/typoreporter/internal/config"
	"github.com/hexlet/typoreporter/internal/db"
	"github.com/hexlet/typoreporter/internal/forms"
	"github.com/hexlet/typoreporter/internal/render"
	"github.com/hexlet/typoreporter/internal/server"
	"github.com/hexlet/typoreporter/web"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServer,
	),
	fx.Invoke(startServer),
)

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	Config         config.Config
	Sessions       *auth.Issuer
	Accounts       *accounts.Service
	Renderer       *render.Renderer
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) (*server.Server, error) {
	static, err := web.Static()
	if err != nil {
		return nil, err
	}
	return server.NewServer(params.Logger, server.Options{
		Addr:          params.RuntimeConfig.ServerAddr,
		Sessions:      params.Sessions,
		Accounts:      params.Accounts,
		Renderer:      params.Renderer,
		Static:        static,
		CSRF:          params.Config.Server.CSRF,
		SecureCookies: params.RuntimeConfig.SecureCookies,
	}, params.ServerHandlers...), nil
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config, accountService *accounts.Service, validator *forms.Validator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			migrations, err := dbfs.Migrations()
			if err != nil {
				return err
			}
			if err := db.CheckSchema(logger, cfg.Postgres, migrations); err != nil {
				return err
			}
			if err := ensureAdminUser(ctx, logger, accountService, validator, cfg.Admin); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// ensureAdminUser creates the configured account when the accounts table is empty. The account
// must pass the same form rules as a signup.
func ensureAdminUser(ctx context.Context, log *slog.Logger, accountService *accounts.Service, validator *forms.Validator, admin config.AdminConfig) error {
	if accountService == nil || validator == nil {
		return errors.New("account service not configured")
	}
	count, err := accountService.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(admin.Username)
	password := strings.TrimSpace(admin.Password)
	if username == "" || password == "" {
		return errors.New("admin username/password required in config.toml")
	}

	form := accounts.CreateAccount{
		Username:  username,
		Email:     strings.TrimSpace(admin.Email),
		Password:  password,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
	}
	if errs := validator.Validate(form); len(errs) > 0 {
		problems := make([]string, 0, len(errs))
		for _, fe := range errs {
			problems = append(problems, fe.Field+": "+fe.Message)
		}
		return fmt.Errorf("admin account in config.toml is invalid: %s", strings.Join(problems, "; "))
	}

	out, err := accountService.Create(ctx, form)
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	if !out.OK() {
		return fmt.Errorf("create admin account: %s", out.Failure.FieldError().Message)
	}
	log.Info("Admin account created", slog.String("username", out.Account.Username))
	return nil
}
