package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alphabatem/common/context"
	"github.com/taskforge/taskforge-api/dto"
)

type JWTService struct {
	context.DefaultService

	AccessTokenDuration time.Duration
	jwtSecretKey        string
	issuer              string
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

// NewJWTService builds a token codec outside the service container.
func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	return &JWTService{
		AccessTokenDuration: accessTTL,
		jwtSecretKey:        secret,
		issuer:              "taskforge",
	}
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.jwtSecretKey = os.Getenv("JWT_SECRET")
	if svc.jwtSecretKey == "" {
		// Misconfiguration, not a per-request condition.
		return errors.New("JWT_SECRET is not set")
	}

	svc.AccessTokenDuration = envDuration("JWT_ACCESS_TTL", time.Hour)
	svc.issuer = "taskforge"

	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// Issue signs a new access token for the user. Returns the token and its JTI
// so logout can blacklist the exact credential.
func (svc *JWTService) Issue(userID, username, role string) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := &dto.AccessClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    svc.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.jwtSecretKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, jti, nil
}

// ParseClaims verifies the signature and expiry before returning any claim.
// A malformed or tampered token fails closed.
func (svc *JWTService) ParseClaims(jwtToken string) (*dto.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(jwtToken, &dto.AccessClaims{}, svc.getJWTKey)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*dto.AccessClaims)
	if !ok || claims == nil {
		return nil, errors.New("unsupported JWT format")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

func (svc *JWTService) ParseSubject(jwtToken string) (string, error) {
	claims, err := svc.ParseClaims(jwtToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether the token verifies, matches the expected subject and
// is unexpired. Invalidity is an answer, not an error.
func (svc *JWTService) IsValid(jwtToken, expectedSubject string) bool {
	claims, err := svc.ParseClaims(jwtToken)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.jwtSecretKey), nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", errors.New("invalid authorization header format")
	}

	return authHeader[7:], nil
}
