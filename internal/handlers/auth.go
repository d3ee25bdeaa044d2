package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/forms"
	"github.com/hexlet/typoreporter/internal/render"
)

// AuthHandler serves sign in, sign out and sign up.
type AuthHandler struct {
	service   *accounts.Service
	validator *forms.Validator
	sessions  *auth.Issuer
	perMinute int
	logger    *slog.Logger
}

// LoginForm is the body of POST /login. Username also accepts an email.
type LoginForm struct {
	Username string `form:"username" validate:"notblank"`
	Password string `form:"password" validate:"required"`
}

type loginPage struct {
	render.Page
	Login LoginForm
}

type signupPage struct {
	render.Page
	CreateAccount accounts.CreateAccount
}

// NewAuthHandler creates the auth handler. perMinute limits POST /login and POST /signup per
// client IP; zero disables the limit.
func NewAuthHandler(log *slog.Logger, service *accounts.Service, validator *forms.Validator, sessions *auth.Issuer, perMinute int) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validator,
		sessions:  sessions,
		perMinute: perMinute,
		logger:    log.With(slog.String("handler", "auth")),
	}
}

// Register mounts /login, /logout and /signup.
func (h *AuthHandler) Register(e *echo.Echo) {
	var limit []echo.MiddlewareFunc
	if h.perMinute > 0 {
		limit = append(limit, h.rateLimiter())
	}
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, limit...)
	e.POST("/logout", h.Logout)
	e.GET("/signup", h.SignupForm)
	e.POST("/signup", h.Signup, limit...)
}

func (h *AuthHandler) rateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(time.Minute / time.Duration(h.perMinute)),
		Burst:     h.perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			h.logger.Warn("auth rate limit exceeded", slog.String("remote_ip", identifier), slog.String("path", c.Path()))
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
		},
	})
}

// LoginForm renders the sign-in page.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, render.Login, loginPage{Page: newPage(c)})
}

// Login checks credentials and issues the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.submitLogin(c.Request().Context(), newPage(c), form)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

// Logout drops the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if h.sessions != nil {
		h.sessions.Clear(c)
	}
	return c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

// SignupForm renders the registration page.
func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, render.Signup, signupPage{Page: newPage(c)})
}

// Signup registers an account and signs it in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var form accounts.CreateAccount
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.submitSignup(c.Request().Context(), newPage(c), form)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

func (h *AuthHandler) submitLogin(ctx context.Context, page render.Page, form LoginForm) (pageResult, error) {
	page.FormModified = true
	if errs := h.validator.Validate(form); len(errs) > 0 {
		page.Errors = errs
		return rendered(render.Login, loginPage{Page: page, Login: form}, auth.Session{}), nil
	}
	account, err := h.service.Login(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("identity", form.Username))
			page.Errors.Add("", "Invalid username or password")
			return rendered(render.Login, loginPage{Page: page, Login: form}, auth.Session{}), nil
		}
		return pageResult{}, err
	}
	return redirected(AccountPath, auth.Session{}.Replace(auth.PrincipalFromAccount(account))), nil
}

func (h *AuthHandler) submitSignup(ctx context.Context, page render.Page, form accounts.CreateAccount) (pageResult, error) {
	page.FormModified = true
	if errs := h.validator.Validate(form); len(errs) > 0 {
		page.Errors = errs
		return rendered(render.Signup, signupPage{Page: page, CreateAccount: form}, auth.Session{}), nil
	}
	out, err := h.service.Create(ctx, form)
	if err != nil {
		return pageResult{}, err
	}
	switch failure := out.Failure.(type) {
	case nil:
		return redirected(AccountPath, auth.Session{}.Replace(auth.PrincipalFromAccount(out.Account))), nil
	case accounts.AlreadyExists:
		page.Errors = append(page.Errors, failure.FieldError())
		return rendered(render.Signup, signupPage{Page: page, CreateAccount: form}, auth.Session{}), nil
	default:
		return pageResult{}, fmt.Errorf("create account: unexpected failure %T", failure)
	}
}
