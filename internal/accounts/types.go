package accounts

import "time"

// RoleUser is the single role granted to every signed-in account.
const RoleUser = "ROLE_USER"

// Account is the authoritative account record.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountInfo is the read model rendered on the account page.
type AccountInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkspaceRoleInfo describes one workspace the account belongs to.
type WorkspaceRoleInfo struct {
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	Description   string `json:"description"`
	Role          string `json:"role"`
}

// CreateAccount is the registration form.
type CreateAccount struct {
	Username  string `form:"username" validate:"account_username"`
	Email     string `form:"email" validate:"account_email"`
	Password  string `form:"password" validate:"password_policy"`
	FirstName string `form:"firstName" validate:"notblank,min=1,max=50"`
	LastName  string `form:"lastName" validate:"notblank,min=1,max=50"`
}

// UpdateProfile is the self-service profile form.
type UpdateProfile struct {
	Username  string `form:"username" validate:"account_username"`
	Email     string `form:"email" validate:"account_email"`
	FirstName string `form:"firstName" validate:"notblank,min=1,max=50"`
	LastName  string `form:"lastName" validate:"notblank,min=1,max=50"`
}

// UpdatePassword is the password change form.
type UpdatePassword struct {
	OldPassword        string `form:"oldPassword" validate:"required"`
	NewPassword        string `form:"newPassword" validate:"password_policy"`
	ConfirmNewPassword string `form:"confirmNewPassword" validate:"eqfield=NewPassword"`
}

func toInfo(a Account) AccountInfo {
	return AccountInfo{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toUpdateProfile(a Account) UpdateProfile {
	return UpdateProfile{
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
	}
}
