package dto

import "time"

// ==================== AUTHENTICATION REQUEST DTOs ====================

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Username string `json:"username" validate:"required,min=3,max=30,alphanum" example:"johndoe"`
	Password string `json:"password" validate:"required,strong_password" example:"SecurePass123!"`
}

func (r RegisterRequest) Validate() error {
	return GetValidator().Struct(r)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"johndoe"`
	Password string `json:"password" validate:"required" example:"SecurePass123!"`
}

func (l LoginRequest) Validate() error {
	return GetValidator().Struct(l)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" example:"dGhpcyBpcyBhIHJhbmRvbSB0b2tlbg"`
}

func (r RefreshTokenRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" example:"OldPass123!"`
	NewPassword     string `json:"new_password" validate:"required,strong_password" example:"NewPass123!"`
}

func (c ChangePasswordRequest) Validate() error {
	return GetValidator().Struct(c)
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty" example:"dGhpcyBpcyBhIHJhbmRvbSB0b2tlbg"`
}

// ==================== AUTHENTICATION RESPONSE DTOs ====================

type RegisterResponse struct {
	UserID  string `json:"user_id" example:"usr_123456789"`
	Message string `json:"message" example:"Registration successful"`
}

type LoginResponse struct {
	AccessToken  string   `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string   `json:"refreshToken" example:"dGhpcyBpcyBhIHJhbmRvbSB0b2tlbg"`
	Type         string   `json:"type" example:"Bearer"`
	ExpiresIn    int64    `json:"expiresIn" example:"3600"`
	Username     string   `json:"username" example:"johndoe"`
	Roles        []string `json:"roles" example:"user"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refreshToken" example:"dGhpcyBpcyBhIHJhbmRvbSB0b2tlbg"`
	Type         string `json:"type" example:"Bearer"`
	ExpiresIn    int64  `json:"expiresIn" example:"3600"`
}

type UserInfo struct {
	ID        string     `json:"id" example:"usr_123456789"`
	Username  string     `json:"username" example:"johndoe"`
	Email     string     `json:"email" example:"user@example.com"`
	Role      string     `json:"role" example:"user"`
	CreatedAt time.Time  `json:"created_at" example:"2023-01-01T00:00:00Z"`
	LastLogin *time.Time `json:"last_login,omitempty" example:"2023-01-15T10:30:00Z"`
}

// ==================== ERROR RESPONSE DTOs ====================

type ValidationError struct {
	Field   string `json:"field" example:"email"`
	Message string `json:"message" example:"invalid email format"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code" example:"400"`
	Message string            `json:"message" example:"Validation failed"`
	Errors  []ValidationError `json:"errors"`
}
