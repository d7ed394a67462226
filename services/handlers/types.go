package handlers

import (
	"time"

	"github.com/taskforge/taskforge-api/dto"
)

type AuthServiceInterface interface {
	Register(req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(req dto.LoginRequest, clientIP, userAgent string) (*dto.LoginResponse, error)
	RefreshToken(req dto.RefreshTokenRequest, clientIP, userAgent string) (*dto.TokenPair, error)
	Logout(userID, jti string, tokenExpiry time.Time, refreshToken, clientIP string) error
	LogoutAllDevices(userID, jti string, tokenExpiry time.Time, clientIP string) error
	ChangePassword(userID string, req dto.ChangePasswordRequest) error
	GetUserInfo(userID string) (*dto.UserInfo, error)
}

type JWTServiceInterface interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	ParseSubject(token string) (string, error)
}
