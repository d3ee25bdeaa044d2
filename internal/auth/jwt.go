package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/logger"
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

const contextKey = "session"

// Errors returned by token parsing.
var (
	ErrInvalidToken  = errors.New("invalid session token")
	ErrMissingSecret = errors.New("session secret is required")
)

// Claims is the JWT payload of the session cookie. The subject is the username.
type Claims struct {
	Credential string   `json:"cred"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// AccountLookup loads the stored account a session names.
type AccountLookup interface {
	GetAccount(ctx context.Context, username string) (accounts.Account, error)
}

// Options configure the session Issuer.
type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Issuer signs principals into session cookies and verifies them on the way back.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	now    func() time.Time
}

// NewIssuer validates opts and returns an Issuer.
func NewIssuer(opts Options) (*Issuer, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, ErrMissingSecret
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", opts.TTL)
	}
	name := strings.TrimSpace(opts.CookieName)
	if name == "" {
		return nil, errors.New("session cookie name is required")
	}
	return &Issuer{
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		cookie: name,
		secure: opts.Secure,
		now:    time.Now,
	}, nil
}

// CookieName returns the name of the session cookie.
func (i *Issuer) CookieName() string {
	return i.cookie
}

// Issue signs p and returns the token with its expiry.
func (i *Issuer) Issue(p Principal) (string, time.Time, error) {
	if strings.TrimSpace(p.Username) == "" {
		return "", time.Time{}, errors.New("principal username is required")
	}
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Credential: p.Credential,
		Roles:      p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token produced by Issue and returns its principal.
func (i *Issuer) Parse(token string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, new(Claims), i.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	return claims.principal()
}

func (i *Issuer) keyFunc(*jwt.Token) (any, error) {
	return i.secret, nil
}

func (c *Claims) principal() (Principal, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{
		Username:   c.Subject,
		Credential: c.Credential,
		Roles:      c.Roles,
	}, nil
}

// Middleware verifies the session cookie on every request not matched by skipper. Requests
// without a valid cookie are redirected to the login page and any stale cookie is dropped.
// With a non-nil lookup the cookie must also carry the credential of the account it names, so
// a password change or a reused username invalidates earlier cookies.
func (i *Issuer) Middleware(skipper func(c echo.Context) bool, lookup AccountLookup) echo.MiddlewareFunc {
	verifyToken := echojwt.WithConfig(echojwt.Config{
		Skipper:       skipper,
		SigningKey:    i.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		TokenLookup:   "cookie:" + i.cookie,
		ContextKey:    "token",
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("token").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return
			}
			if p, err := claims.principal(); err == nil {
				c.Set(contextKey, NewSession(p))
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if _, cookieErr := c.Cookie(i.cookie); cookieErr == nil {
				logger.FromContext(c.Request().Context()).Debug("dropping session cookie", slog.Any("error", err))
				i.Clear(c)
			}
			return c.Redirect(http.StatusFound, LoginPath)
		},
	})
	verifyCredential := i.checkCredential(lookup)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verifyToken(verifyCredential(next))
	}
}

// checkCredential compares the session credential with the stored account. A missing account
// is passed through so the page handlers report it.
func (i *Issuer) checkCredential(lookup AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFromContext(c)
			if lookup == nil || !session.Authenticated() {
				return next(c)
			}
			p := session.Principal()
			account, err := lookup.GetAccount(c.Request().Context(), p.Username)
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return next(c)
			}
			if err != nil {
				return fmt.Errorf("verify session: %w", err)
			}
			if Fingerprint(account.PasswordHash) != p.Credential {
				logger.FromContext(c.Request().Context()).Info("session credential revoked",
					slog.String("username", p.Username))
				i.Clear(c)
				return c.Redirect(http.StatusFound, LoginPath)
			}
			return next(c)
		}
	}
}

// SessionFromContext returns the session resolved by Middleware, or an anonymous Session.
func SessionFromContext(c echo.Context) Session {
	if s, ok := c.Get(contextKey).(Session); ok {
		return s
	}
	return Session{}
}

// PrincipalFromContext returns the signed-in principal or a 401 error.
func PrincipalFromContext(c echo.Context) (Principal, error) {
	s := SessionFromContext(c)
	if !s.Authenticated() {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return s.Principal(), nil
}

// Write issues a token for s and stores it in the session cookie.
func (i *Issuer) Write(c echo.Context, s Session) error {
	token, expiresAt, err := i.Issue(s.Principal())
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     i.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(i.ttl.Seconds()),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(contextKey, s)
	return nil
}

// Clear expires the session cookie.
func (i *Issuer) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     i.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(contextKey, Session{})
}
