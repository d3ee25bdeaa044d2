package forms

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// PasswordMaxBytes is the bcrypt input limit; longer passwords cannot be hashed.
const PasswordMaxBytes = 72

// EmailMaxLength matches the width of the accounts.email column.
const EmailMaxLength = 254

// DefaultPasswordMinLength applies when Rules.PasswordMinLength is not positive.
const DefaultPasswordMinLength = 8

// UsernameMessage is shown when the account_username rule fails.
const UsernameMessage = "must be 2 to 20 characters long and contain only latin letters, digits, '-' or '_'"

var usernamePattern = regexp.MustCompile(`^[-_A-Za-z0-9]{2,20}$`)

// Rules holds the pluggable shape predicates behind the custom validation tags.
type Rules struct {
	Username          func(string) bool
	Email             func(string) bool
	PasswordMinLength int
	// Password overrides the built-in policy when set.
	Password func(string) bool
}

// DefaultRules returns the built-in predicates.
func DefaultRules() Rules {
	return Rules{}.withDefaults()
}

func (r Rules) withDefaults() Rules {
	if r.Username == nil {
		r.Username = ValidUsername
	}
	if r.Email == nil {
		r.Email = ValidEmail
	}
	if r.PasswordMinLength <= 0 {
		r.PasswordMinLength = DefaultPasswordMinLength
	}
	if r.Password == nil {
		minLen := r.PasswordMinLength
		r.Password = func(s string) bool { return validPassword(s, minLen) }
	}
	return r
}

// ValidUsername accepts 2-20 characters of latin letters, digits, '-' and '_'.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidEmail accepts a bare RFC 5322 address with a dotted domain of at most EmailMaxLength
// bytes; display names are rejected.
func ValidEmail(s string) bool {
	if s == "" || len(s) > EmailMaxLength || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	_, domain, ok := strings.Cut(addr.Address, "@")
	return ok && strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

func validPassword(s string, minLen int) bool {
	if len([]rune(s)) < minLen || len(s) > PasswordMaxBytes {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
