package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hexlet/typoreporter/internal/handlers"
	"github.com/hexlet/typoreporter/internal/logger"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingHead(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		db     handlers.Pinger
		status int
	}{
		{name: "no database", db: nil, status: http.StatusOK},
		{name: "database up", db: pingerFunc(func(context.Context) error { return nil }), status: http.StatusOK},
		{name: "database down", db: pingerFunc(func(context.Context) error { return errors.New("refused") }), status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			handlers.NewPingHandler(logger.Discard(), tc.db).Register(e)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
