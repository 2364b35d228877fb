package domain

import "time"

// VerificationPurpose separates registration codes from password reset
// codes so that one flow never overwrites the other's pending entry.
type VerificationPurpose string

const (
	PurposeRegistration  VerificationPurpose = "register"
	PurposePasswordReset VerificationPurpose = "reset"
)

const (
	RegistrationCodeTTL  = 300 * time.Second
	PasswordResetCodeTTL = 600 * time.Second
)

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72,bcrypt"`
}
