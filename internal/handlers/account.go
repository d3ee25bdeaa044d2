package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/forms"
	"github.com/hexlet/typoreporter/internal/render"
)

// AccountHandler serves the self-service account pages under /account.
type AccountHandler struct {
	service   *accounts.Service
	validator *forms.Validator
	sessions  *auth.Issuer
	logger    *slog.Logger
}

type accountInfoPage struct {
	render.Page
	AccInfo               accounts.AccountInfo
	WorkspaceRoleInfoList []accounts.WorkspaceRoleInfo
}

type profileUpdatePage struct {
	render.Page
	UpdateProfile accounts.UpdateProfile
}

type passwordUpdatePage struct {
	render.Page
	UpdatePassword accounts.UpdatePassword
}

// NewAccountHandler creates the account page handler.
func NewAccountHandler(log *slog.Logger, service *accounts.Service, validator *forms.Validator, sessions *auth.Issuer) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: validator,
		sessions:  sessions,
		logger:    log.With(slog.String("handler", "account")),
	}
}

// Register mounts the account routes. PUT arrives as POST with _method=PUT from HTML forms.
func (h *AccountHandler) Register(e *echo.Echo) {
	e.GET("/", h.Home)
	e.GET("/account", h.AccountInfo)
	e.GET("/account/", h.AccountInfo)
	e.GET("/account/update", h.ProfileForm)
	e.PUT("/account/update", h.UpdateProfile)
	e.GET("/account/password", h.PasswordForm)
	e.PUT("/account/password", h.UpdatePassword)
}

// Home sends signed-in users to their account page.
func (h *AccountHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, AccountPath)
}

// AccountInfo renders account/acc-info for the signed-in user.
func (h *AccountHandler) AccountInfo(c echo.Context) error {
	session := auth.SessionFromContext(c)
	res, err := h.viewAccountInfo(c.Request().Context(), newPage(c), session)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

// ProfileForm renders account/prof-update prefilled with the stored profile.
func (h *AccountHandler) ProfileForm(c echo.Context) error {
	session := auth.SessionFromContext(c)
	res, err := h.viewProfileEditForm(c.Request().Context(), newPage(c), session)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

// UpdateProfile handles the profile form submission.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	var form accounts.UpdateProfile
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session := auth.SessionFromContext(c)
	res, err := h.submitProfileEdit(c.Request().Context(), newPage(c), form, session)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

// PasswordForm renders an empty account/pass-update.
func (h *AccountHandler) PasswordForm(c echo.Context) error {
	return respond(c, h.sessions, h.viewPasswordEditForm(newPage(c), auth.SessionFromContext(c)))
}

// UpdatePassword handles the password form submission.
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	var form accounts.UpdatePassword
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session := auth.SessionFromContext(c)
	res, err := h.submitPasswordEdit(c.Request().Context(), newPage(c), form, session)
	if err != nil {
		return err
	}
	return respond(c, h.sessions, res)
}

func (h *AccountHandler) viewAccountInfo(ctx context.Context, page render.Page, session auth.Session) (pageResult, error) {
	info, err := h.service.GetInfo(ctx, session.Principal().Username)
	if err != nil {
		return pageResult{}, err
	}
	roles, err := h.service.ListWorkspaceRoles(ctx, info.Username)
	if err != nil {
		return pageResult{}, err
	}
	return rendered(render.AccountInfo, accountInfoPage{
		Page:                  page,
		AccInfo:               info,
		WorkspaceRoleInfoList: roles,
	}, session), nil
}

func (h *AccountHandler) viewProfileEditForm(ctx context.Context, page render.Page, session auth.Session) (pageResult, error) {
	form, err := h.service.GetUpdateProfile(ctx, session.Principal().Username)
	if err != nil {
		return pageResult{}, err
	}
	page.FormModified = false
	return rendered(render.ProfileUpdate, profileUpdatePage{Page: page, UpdateProfile: form}, session), nil
}

func (h *AccountHandler) submitProfileEdit(ctx context.Context, page render.Page, form accounts.UpdateProfile, session auth.Session) (pageResult, error) {
	page.FormModified = true
	if errs := h.validator.Validate(form); len(errs) > 0 {
		page.Errors = errs
		return rendered(render.ProfileUpdate, profileUpdatePage{Page: page, UpdateProfile: form}, session), nil
	}

	out, err := h.service.UpdateProfile(ctx, form, session.Principal().Username)
	if err != nil {
		return pageResult{}, err
	}
	switch failure := out.Failure.(type) {
	case nil:
		return redirected(AccountPath, session.Replace(auth.PrincipalFromAccount(out.Account))), nil
	case accounts.AlreadyExists:
		page.Errors = append(page.Errors, failure.FieldError())
		return rendered(render.ProfileUpdate, profileUpdatePage{Page: page, UpdateProfile: form}, session), nil
	default:
		return pageResult{}, fmt.Errorf("update profile: unexpected failure %T", failure)
	}
}

func (h *AccountHandler) viewPasswordEditForm(page render.Page, session auth.Session) pageResult {
	page.FormModified = false
	return rendered(render.PasswordUpdate, passwordUpdatePage{Page: page}, session)
}

func (h *AccountHandler) submitPasswordEdit(ctx context.Context, page render.Page, form accounts.UpdatePassword, session auth.Session) (pageResult, error) {
	page.FormModified = true
	if errs := h.validator.Validate(form); len(errs) > 0 {
		page.Errors = errs
		return rendered(render.PasswordUpdate, passwordUpdatePage{Page: page, UpdatePassword: form}, session), nil
	}

	out, err := h.service.UpdatePassword(ctx, form, session.Principal().Username)
	if err != nil {
		return pageResult{}, err
	}
	switch failure := out.Failure.(type) {
	case nil:
		return redirected(AccountPath, session.Replace(auth.PrincipalFromAccount(out.Account))), nil
	case accounts.OldPasswordWrong, accounts.NewPasswordSame:
		page.Errors = append(page.Errors, failure.FieldError())
		return rendered(render.PasswordUpdate, passwordUpdatePage{Page: page, UpdatePassword: form}, session), nil
	default:
		return pageResult{}, fmt.Errorf("update password: unexpected failure %T", failure)
	}
}
