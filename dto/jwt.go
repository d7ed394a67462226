package dto

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the signed access-token payload. Subject carries the user ID.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
