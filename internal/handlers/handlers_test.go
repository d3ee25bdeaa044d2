package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/accounts/accountstest"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/forms"
	"github.com/hexlet/typoreporter/internal/handlers"
	"github.com/hexlet/typoreporter/internal/logger"
	"github.com/hexlet/typoreporter/internal/render"
	"github.com/hexlet/typoreporter/internal/server"
	"github.com/hexlet/typoreporter/web"
)

const alicePassword = "wonder1and"

type testApp struct {
	echo     *echo.Echo
	store    *accountstest.Store
	sessions *auth.Issuer
	logs     *bytes.Buffer
	alice    accounts.Account
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logs := &bytes.Buffer{}
	log := logger.New(logs, "debug", "text")

	store := accountstest.NewStore()
	alice := store.Seed("alice", "alice@example.com", alicePassword, "Alice", "Liddell")
	service := accounts.NewService(log, store)
	service.SetHashCost(bcrypt.MinCost)

	sessions, err := auth.NewIssuer(auth.Options{Secret: "test-secret", TTL: time.Hour, CookieName: "typoreporter_session"})
	require.NoError(t, err)
	templates, err := web.Templates()
	require.NoError(t, err)
	renderer, err := render.New(templates)
	require.NoError(t, err)

	validator := forms.New(forms.DefaultRules())
	srv := server.NewServer(log, server.Options{Sessions: sessions, Accounts: service, Renderer: renderer},
		handlers.NewAccountHandler(log, service, validator, sessions),
		handlers.NewAuthHandler(log, service, validator, sessions, 0),
		handlers.NewPingHandler(log, nil),
	)
	return &testApp{echo: srv.Echo(), store: store, sessions: sessions, logs: logs, alice: alice}
}

func (a *testApp) sessionCookie(t *testing.T, account accounts.Account) *http.Cookie {
	t.Helper()
	token, _, err := a.sessions.Issue(auth.PrincipalFromAccount(account))
	require.NoError(t, err)
	return &http.Cookie{Name: a.sessions.CookieName(), Value: token}
}

func (a *testApp) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

// put submits form the way a browser does: POST with the _method override field.
func (a *testApp) put(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body := url.Values{"_method": {http.MethodPut}}
	for k, v := range form {
		body[k] = v
	}
	return a.post(t, path, body, cookie)
}

func (a *testApp) post(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

// sessionFrom returns the session cookie set by the response, if any.
func (a *testApp) sessionFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == a.sessions.CookieName() && c.Value != "" {
			return c
		}
	}
	return nil
}

func (a *testApp) principalFrom(t *testing.T, rec *httptest.ResponseRecorder) (auth.Principal, bool) {
	t.Helper()
	c := a.sessionFrom(rec)
	if c == nil {
		return auth.Principal{}, false
	}
	p, err := a.sessions.Parse(c.Value)
	require.NoError(t, err)
	return p, true
}

func profileValues(username, email, firstName, lastName string) url.Values {
	return url.Values{
		"username":  {username},
		"email":     {email},
		"firstName": {firstName},
		"lastName":  {lastName},
	}
}

func passwordValues(oldPassword, newPassword, confirm string) url.Values {
	return url.Values{
		"oldPassword":        {oldPassword},
		"newPassword":        {newPassword},
		"confirmNewPassword": {confirm},
	}
}
