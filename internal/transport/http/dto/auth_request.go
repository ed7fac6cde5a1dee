package dto

// -------- Authentication --------

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RefreshRequest is optional: the tokens normally travel as cookies.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// -------- Password lifecycle --------

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,min=3,max=100,email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,min=3,max=100,email"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// ChangePasswordRequest leaves confirm matching to the service, which
// reports password_mismatch.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required,min=8,max=100"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=100"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,min=8,max=100"`
}

// -------- Account administration --------

type RegisterRequest struct {
	Identifier      string   `json:"identifier" validate:"required,len=11,numeric,taxid"`
	FullName        string   `json:"fullName" validate:"required,min=3,max=100"`
	Email           string   `json:"email" validate:"required,min=3,max=100,email"`
	PhoneNumber     string   `json:"phoneNumber" validate:"omitempty,len=11,numeric"`
	Password        string   `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string   `json:"confirmPassword" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"required,min=1,dive,required"`
}

// UpdateAccountRequest: an absent roles field keeps the current roles,
// an empty array clears them.
type UpdateAccountRequest struct {
	Identifier  string   `json:"identifier" validate:"required,len=11,numeric,taxid"`
	FullName    string   `json:"fullName" validate:"required,min=3,max=100"`
	Email       string   `json:"email" validate:"required,min=3,max=100,email"`
	PhoneNumber string   `json:"phoneNumber" validate:"omitempty,len=11,numeric"`
	Roles       []string `json:"roles" validate:"omitempty,dive,required"`
}

// UpdateRolesRequest carries the complete desired role set; empty clears it.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,required"`
}
