package accounts

import (
	"fmt"

	"github.com/hexlet/typoreporter/internal/forms"
)

// Failure is a user-correctable outcome of a mutation. The set of implementations is closed:
// AlreadyExists, OldPasswordWrong and NewPasswordSame.
type Failure interface {
	FieldError() forms.FieldError
	failure()
}

// Outcome is the result of a mutation: the updated Account, or a Failure.
type Outcome struct {
	Account Account
	Failure Failure
}

// OK reports whether the mutation succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// AlreadyExists means another account already uses the submitted username or email.
type AlreadyExists struct {
	Field string
	Value string
}

func (AlreadyExists) failure() {}

// FieldError targets the colliding field.
func (f AlreadyExists) FieldError() forms.FieldError {
	return forms.FieldError{
		Field:   f.Field,
		Message: fmt.Sprintf("Account with %s %q already exists", f.Field, f.Value),
	}
}

// OldPasswordWrong means the submitted current password does not match the stored one.
type OldPasswordWrong struct{}

func (OldPasswordWrong) failure() {}

// FieldError targets oldPassword.
func (OldPasswordWrong) FieldError() forms.FieldError {
	return forms.FieldError{Field: "oldPassword", Message: "Wrong current password"}
}

// NewPasswordSame means the new password equals the current one.
type NewPasswordSame struct{}

func (NewPasswordSame) failure() {}

// FieldError targets newPassword.
func (NewPasswordSame) FieldError() forms.FieldError {
	return forms.FieldError{Field: "newPassword", Message: "New password must differ from the current one"}
}
