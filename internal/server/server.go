// Package server provides the HTTP server and Echo setup for the typoreporter web pages.
package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/logger"
	"github.com/hexlet/typoreporter/internal/render"
)

// CSRFField is the hidden form field carrying the CSRF token.
const CSRFField = "_csrf"

// Server is the HTTP server (Echo) with session middleware and registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// Options configure NewServer.
type Options struct {
	Addr          string
	Sessions      *auth.Issuer
	Accounts      auth.AccountLookup
	Renderer      *render.Renderer
	Static        fs.FS
	CSRF          bool
	SecureCookies bool
}

// publicPrefixes are served without a session.
var publicPrefixes = []string{"/login", "/logout", "/signup", "/ping", "/health", "/static/"}

// NewServer builds the Echo server with method override, recovery, request logging, security
// headers, CSRF, session verification and the given handlers.
func NewServer(log *slog.Logger, opts Options, handlers ...Handler) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	log = log.With(slog.String("component", "server"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if opts.Renderer != nil {
		e.Renderer = opts.Renderer
	}
	e.HTTPErrorHandler = errorHandler(log, opts.Renderer)

	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "same-origin",
	}))
	if opts.CSRF {
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:" + CSRFField,
			CookieName:     CSRFField,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   opts.SecureCookies,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}
	if opts.Sessions != nil {
		e.Use(opts.Sessions.Middleware(isPublic, opts.Accounts))
	}
	if opts.Static != nil {
		e.StaticFS("/static", opts.Static)
	}

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   opts.Addr,
		logger: log,
	}
}

func isPublic(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, prefix := range publicPrefixes {
		if path == prefix || (strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, prefix)) {
			return true
		}
	}
	return false
}

// requestLogger logs each request and stores a request-scoped logger in the request context.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	attach := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqLog := log.With(slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), reqLog)))
			return next(c)
		}
	}
	logRequest := middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return logRequest(attach(next))
	}
}

// errorHandler renders error-general for every error that escapes a handler. A missing account
// behind a valid session is logged at error level with the request context.
func errorHandler(log *slog.Logger, renderer *render.Renderer) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := "Unexpected error"
		var httpErr *echo.HTTPError
		switch {
		case errors.Is(err, accounts.ErrAccountNotFound):
			reqLog := logger.FromContext(c.Request().Context())
			if reqLog == logger.L {
				reqLog = log
			}
			reqLog.Error("account not found",
				slog.Any("error", err),
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.String("username", auth.SessionFromContext(c).Principal().Username),
			)
			message = "Account not found"
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(status)
			}
		default:
			log.Error("request failed", slog.Any("error", err), slog.String("uri", c.Request().RequestURI))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else if renderer != nil && renderer.Has(render.ErrorGeneral) {
			err = c.Render(status, render.ErrorGeneral, render.ErrorPage{
				Page:    render.Page{Principal: auth.SessionFromContext(c).Principal()},
				Status:  status,
				Message: message,
			})
		} else {
			err = c.String(status, message)
		}
		if err != nil {
			log.Error("write error response", slog.Any("error", err))
		}
	}
}

// Echo exposes the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
