// Package accounts provides the account directory: profile reads, self-service updates,
// registration and credential checks.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Errors returned by account operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreNotConfigured = errors.New("account store not configured")
)

// Service is the account directory consumed by the page handlers.
type Service struct {
	store    Store
	logger   *slog.Logger
	hashCost int
}

// NewService creates a new accounts service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		logger:   log.With(slog.String("service", "accounts")),
		hashCost: bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost for new hashes.
func (s *Service) SetHashCost(cost int) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	s.hashCost = cost
}

// GetAccount returns the stored account for username.
func (s *Service) GetAccount(ctx context.Context, username string) (Account, error) {
	if s.store == nil {
		return Account{}, ErrStoreNotConfigured
	}
	return s.store.GetByUsername(ctx, username)
}

// GetInfo returns the account page read model for username.
func (s *Service) GetInfo(ctx context.Context, username string) (AccountInfo, error) {
	if s.store == nil {
		return AccountInfo{}, ErrStoreNotConfigured
	}
	account, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return AccountInfo{}, err
	}
	return toInfo(account), nil
}

// ListWorkspaceRoles returns the workspace memberships of username, ordered by workspace name.
func (s *Service) ListWorkspaceRoles(ctx context.Context, username string) ([]WorkspaceRoleInfo, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	items, err := s.store.ListWorkspaceRoles(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list workspace roles: %w", err)
	}
	if items == nil {
		items = []WorkspaceRoleInfo{}
	}
	return items, nil
}

// GetUpdateProfile returns the current profile of username as an editable form.
func (s *Service) GetUpdateProfile(ctx context.Context, username string) (UpdateProfile, error) {
	if s.store == nil {
		return UpdateProfile{}, ErrStoreNotConfigured
	}
	account, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return UpdateProfile{}, err
	}
	return toUpdateProfile(account), nil
}

// UpdateProfile applies a validated profile form to the account of username.
// A username or email held by another account yields an AlreadyExists failure.
func (s *Service) UpdateProfile(ctx context.Context, form UpdateProfile, username string) (Outcome, error) {
	if s.store == nil {
		return Outcome{}, ErrStoreNotConfigured
	}
	existing, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return Outcome{}, err
	}
	params := ProfileParams{
		Username:  strings.TrimSpace(form.Username),
		Email:     normalizeEmail(form.Email),
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
	}
	if failure, err := s.checkConflict(ctx, params.Username, params.Email, existing.ID); err != nil || failure != nil {
		return Outcome{Failure: failure}, err
	}
	updated, err := s.store.UpdateProfile(ctx, existing.ID, params)
	if err != nil {
		if failure := conflictFailure(err, params.Username, params.Email); failure != nil {
			return Outcome{Failure: failure}, nil
		}
		return Outcome{}, err
	}
	s.logger.Info("profile updated",
		slog.String("account_id", updated.ID),
		slog.String("username", updated.Username),
		slog.Bool("username_changed", updated.Username != existing.Username),
	)
	return Outcome{Account: updated}, nil
}

// UpdatePassword replaces the password of username after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, form UpdatePassword, username string) (Outcome, error) {
	if s.store == nil {
		return Outcome{}, ErrStoreNotConfigured
	}
	existing, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return Outcome{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(form.OldPassword)) != nil {
		return Outcome{Failure: OldPasswordWrong{}}, nil
	}
	if form.OldPassword == form.NewPassword {
		return Outcome{Failure: NewPasswordSame{}}, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(form.NewPassword), s.hashCost)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash password: %w", err)
	}
	updated, err := s.store.UpdatePassword(ctx, existing.ID, string(hashed))
	if err != nil {
		return Outcome{}, err
	}
	s.logger.Info("password updated", slog.String("account_id", updated.ID))
	return Outcome{Account: updated}, nil
}

// Create registers a new account from a validated registration form.
func (s *Service) Create(ctx context.Context, form CreateAccount) (Outcome, error) {
	if s.store == nil {
		return Outcome{}, ErrStoreNotConfigured
	}
	params := CreateParams{
		Username:  strings.TrimSpace(form.Username),
		Email:     normalizeEmail(form.Email),
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
	}
	if params.Username == "" || form.Password == "" {
		return Outcome{}, errors.New("username and password are required")
	}
	if failure, err := s.checkConflict(ctx, params.Username, params.Email, ""); err != nil || failure != nil {
		return Outcome{Failure: failure}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.hashCost)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash password: %w", err)
	}
	params.PasswordHash = string(hashed)
	created, err := s.store.Create(ctx, params)
	if err != nil {
		if failure := conflictFailure(err, params.Username, params.Email); failure != nil {
			return Outcome{Failure: failure}, nil
		}
		return Outcome{}, err
	}
	s.logger.Info("account created", slog.String("account_id", created.ID), slog.String("username", created.Username))
	return Outcome{Account: created}, nil
}

// Login authenticates by identity (username or email) and password.
func (s *Service) Login(ctx context.Context, identity, password string) (Account, error) {
	if s.store == nil {
		return Account{}, ErrStoreNotConfigured
	}
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return Account{}, ErrInvalidCredentials
	}
	account, err := s.store.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Count returns the number of registered accounts.
func (s *Service) Count(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	return s.store.Count(ctx)
}

func (s *Service) checkConflict(ctx context.Context, username, email, excludeID string) (Failure, error) {
	field, err := s.store.FindConflict(ctx, username, email, excludeID)
	if err != nil {
		return nil, fmt.Errorf("check account conflict: %w", err)
	}
	return alreadyExists(field, username, email), nil
}

func conflictFailure(err error, username, email string) Failure {
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		return nil
	}
	return alreadyExists(conflict.Field, username, email)
}

func alreadyExists(field, username, email string) Failure {
	switch field {
	case "username":
		return AlreadyExists{Field: "username", Value: username}
	case "email":
		return AlreadyExists{Field: "email", Value: email}
	default:
		return nil
	}
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
