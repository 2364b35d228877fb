package domain

import "time"

type User struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;size:255;not null"`
	StudentID    *string   `json:"student_id,omitempty" gorm:"size:50"`
	Role         string    `json:"role" gorm:"size:20;not null;default:student"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=2,max=50"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=6,max=72,bcrypt"`
	StudentID *string `json:"student_id" validate:"omitempty,max=50"`
	Role      string  `json:"role" validate:"omitempty,oneof=student"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	User  *User
	Token string
}

type UpdateUserRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72,bcrypt"`
}
