// Package handlers provides the HTML page handlers of the typoreporter web server.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/render"
)

// AccountPath is the landing page after a successful account change.
const AccountPath = "/account/"

// view is a page to render: template name plus data.
type view struct {
	Name string
	Data any
}

// pageResult is what a page flow decides: render a view or redirect, and the session the
// client should hold afterwards.
type pageResult struct {
	View     view
	Redirect string
	Session  auth.Session
}

func rendered(name string, data any, session auth.Session) pageResult {
	return pageResult{View: view{Name: name, Data: data}, Session: session}
}

func redirected(to string, session auth.Session) pageResult {
	return pageResult{Redirect: to, Session: session}
}

// newPage fills the layout data shared by every template.
func newPage(c echo.Context) render.Page {
	page := render.Page{Principal: auth.SessionFromContext(c).Principal()}
	if token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		page.CSRF = token
	}
	return page
}

// respond writes out a pageResult: the replacement session cookie first, then the redirect
// (303 so the browser follows with GET) or the rendered page.
func respond(c echo.Context, sessions *auth.Issuer, res pageResult) error {
	if res.Session.Replaced() {
		if sessions == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "session issuer not configured")
		}
		if err := sessions.Write(c, res.Session); err != nil {
			return err
		}
	}
	if res.Redirect != "" {
		return c.Redirect(http.StatusSeeOther, res.Redirect)
	}
	return c.Render(http.StatusOK, res.View.Name, res.View.Data)
}
