package accounts

import (
	"context"
	"errors"
	"fmt"
)

// ErrAccountNotFound is returned when no account backs the requested username or id.
var ErrAccountNotFound = errors.New("account not found")

// ConflictError reports a unique constraint hit on Field ("username" or "email").
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("account %s already taken", e.Field)
}

// CreateParams are the normalized values of a new account.
type CreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// ProfileParams are the normalized profile values of an existing account.
type ProfileParams struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Store persists accounts. Lookups return ErrAccountNotFound when nothing matches;
// Create and UpdateProfile return *ConflictError on unique violations.
type Store interface {
	GetByUsername(ctx context.Context, username string) (Account, error)
	// GetByIdentity matches a username or an email.
	GetByIdentity(ctx context.Context, identity string) (Account, error)
	// FindConflict returns the first of "username", "email" already used by an account
	// other than excludeID, or "" when both are free. An empty excludeID checks all accounts.
	FindConflict(ctx context.Context, username, email, excludeID string) (string, error)
	Create(ctx context.Context, params CreateParams) (Account, error)
	UpdateProfile(ctx context.Context, id string, params ProfileParams) (Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (Account, error)
	Count(ctx context.Context) (int64, error)
	ListWorkspaceRoles(ctx context.Context, username string) ([]WorkspaceRoleInfo, error)
}
