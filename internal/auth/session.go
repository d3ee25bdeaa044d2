// Package auth carries the signed-in principal between requests in a signed session cookie.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/hexlet/typoreporter/internal/accounts"
)

// Principal is the identity stored in a session: who the user is, a fingerprint of the
// credential they signed in with, and their roles.
type Principal struct {
	Username   string
	Credential string
	Roles      []string
}

// PrincipalFromAccount builds the principal for a freshly loaded or updated account.
func PrincipalFromAccount(a accounts.Account) Principal {
	return Principal{
		Username:   a.Username,
		Credential: Fingerprint(a.PasswordHash),
		Roles:      []string{accounts.RoleUser},
	}
}

// Fingerprint returns a short digest of a password hash. It changes whenever the password does
// and never exposes the hash itself.
func Fingerprint(passwordHash string) string {
	if passwordHash == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:16])
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Session is the per-request view of the session cookie. Values are immutable: Replace returns
// a new Session that the transport writes back to the client.
type Session struct {
	principal Principal
	present   bool
	replaced  bool
}

// NewSession wraps the principal read from a verified cookie.
func NewSession(p Principal) Session {
	return Session{principal: p, present: true}
}

// Principal returns the signed-in identity; the zero Principal for anonymous requests.
func (s Session) Principal() Principal {
	return s.principal
}

// Authenticated reports whether the request carried a valid session.
func (s Session) Authenticated() bool {
	return s.present
}

// Replace returns a session holding p that must be written back to the client.
func (s Session) Replace(p Principal) Session {
	p.Roles = slices.Clone(p.Roles)
	return Session{principal: p, present: true, replaced: true}
}

// Replaced reports whether the session differs from the one the request arrived with.
func (s Session) Replaced() bool {
	return s.replaced
}
