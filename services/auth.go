package services

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/dto"
	"github.com/taskforge/taskforge-api/services/repositories"
	"github.com/taskforge/taskforge-api/shared"
)

// AuthService owns the credential and token lifecycle: login, refresh-token
// rotation, logout and revocation. Every internal failure variety collapses
// into one generic 401 at the boundary; only storage faults surface as 5xx.
type AuthService struct {
	context.DefaultService

	sqlSvc   *SqlService
	jwtSvc   *JWTService
	redisSvc *RedisService

	userRepo  *repositories.UserRepository
	tokenRepo *repositories.TokenRepository

	refreshTTL time.Duration

	// dummyHash absorbs a bcrypt comparison when the username does not
	// exist, so both failure paths cost the same.
	dummyHash []byte

	stopPurge chan struct{}
}

const AUTH_SVC = "auth_svc"

const revokedRetention = 30 * 24 * time.Hour

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *context.Context) error {
	svc.refreshTTL = envDuration("JWT_REFRESH_TTL", 7*24*time.Hour)
	svc.stopPurge = make(chan struct{})

	dummy, err := bcrypt.GenerateFromPassword([]byte("taskforge-credential-pad"), 12)
	if err != nil {
		return err
	}
	svc.dummyHash = dummy

	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.sqlSvc = svc.Service(SQL_SVC).(*SqlService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)

	svc.userRepo = repositories.NewUserRepository(svc.sqlSvc.Db())
	svc.tokenRepo = repositories.NewTokenRepository(svc.sqlSvc.Db())

	go svc.startPurgeJob()

	return nil
}

func (svc *AuthService) Shutdown() {
	close(svc.stopPurge)
}

// NewAuthService wires the service outside the container.
func NewAuthService(sqlSvc *SqlService, jwtSvc *JWTService, redisSvc *RedisService, refreshTTL time.Duration) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("taskforge-credential-pad"), 12)
	return &AuthService{
		sqlSvc:     sqlSvc,
		jwtSvc:     jwtSvc,
		redisSvc:   redisSvc,
		userRepo:   repositories.NewUserRepository(sqlSvc.Db()),
		tokenRepo:  repositories.NewTokenRepository(sqlSvc.Db()),
		refreshTTL: refreshTTL,
		dummyHash:  dummy,
		stopPurge:  make(chan struct{}),
	}
}

// ==================== REGISTRATION ====================

func (svc *AuthService) Register(req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	user, err := svc.userRepo.CreateUser(req.Email, req.Username, req.Password)
	if err != nil {
		appErr := svc.sqlSvc.HandleError(err)
		if ae, ok := shared.GetAppError(appErr); ok && ae.StatusCode == 409 {
			return nil, shared.NewConflictError(err, "Email or username already taken")
		}
		return nil, appErr
	}

	log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")

	return &dto.RegisterResponse{
		UserID:  user.ID,
		Message: "Registration successful",
	}, nil
}

// ==================== LOGIN ====================

func (svc *AuthService) Login(req dto.LoginRequest, clientIP, userAgent string) (*dto.LoginResponse, error) {
	user, err := svc.userRepo.GetUserByUsernameOrEmail(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn the same bcrypt cost as the wrong-password path.
			_ = bcrypt.CompareHashAndPassword(svc.dummyHash, []byte(req.Password))
			return nil, shared.NewUnauthorizedError(errors.New("unknown user"))
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	if !svc.userRepo.VerifyPassword(user, req.Password) {
		return nil, shared.NewUnauthorizedError(errors.New("password mismatch"))
	}

	if !user.IsActive {
		return nil, shared.NewUnauthorizedError(errors.New("account disabled"))
	}

	accessToken, _, err := svc.jwtSvc.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, shared.NewInternalError(err)
	}

	refreshToken, _, err := svc.tokenRepo.Issue(user.ID, svc.refreshTTL, clientIP, userAgent)
	if err != nil {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if err := svc.userRepo.UpdateLastLogin(user.ID, clientIP); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Type:         shared.TokenTypeBearer,
		ExpiresIn:    int64(svc.jwtSvc.AccessTokenDuration.Seconds()),
		Username:     user.Username,
		Roles:        []string{user.Role},
	}, nil
}

// ==================== REFRESH ====================

// RefreshToken rotates the presented refresh token and issues a fresh access
// token. Reuse of an already-rotated token revokes every token the user
// holds: a rotated value coming back can only mean theft or a very stale
// client, and a stale client re-authenticating is the cheaper failure.
func (svc *AuthService) RefreshToken(req dto.RefreshTokenRequest, clientIP, userAgent string) (*dto.TokenPair, error) {
	newRaw, successor, err := svc.tokenRepo.Rotate(req.RefreshToken, svc.refreshTTL, clientIP, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRefreshTokenReused):
			svc.handleTokenReuse(req.RefreshToken, clientIP)
			return nil, shared.NewUnauthorizedError(err)
		case errors.Is(err, repositories.ErrRefreshTokenInvalid):
			return nil, shared.NewUnauthorizedError(err)
		default:
			return nil, svc.sqlSvc.HandleError(err)
		}
	}

	user, err := svc.userRepo.GetUserByID(successor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewUnauthorizedError(err)
		}
		return nil, svc.sqlSvc.HandleError(err)
	}
	if !user.IsActive {
		return nil, shared.NewUnauthorizedError(errors.New("account disabled"))
	}

	accessToken, _, err := svc.jwtSvc.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, shared.NewInternalError(err)
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRaw,
		Type:         shared.TokenTypeBearer,
		ExpiresIn:    int64(svc.jwtSvc.AccessTokenDuration.Seconds()),
	}, nil
}

func (svc *AuthService) handleTokenReuse(raw, clientIP string) {
	stale, err := svc.tokenRepo.GetByRawToken(raw)
	if err != nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":   stale.UserID,
		"client_ip": clientIP,
	}).Warn("Rotated refresh token presented again, revoking all tokens for user")

	if err := svc.tokenRepo.RevokeAllForUser(stale.UserID); err != nil {
		log.WithError(err).WithField("user_id", stale.UserID).Error("Failed to revoke token family")
	}
}

// ==================== LOGOUT ====================

func (svc *AuthService) Logout(userID, jti string, tokenExpiry time.Time, refreshToken, clientIP string) error {
	if err := svc.blacklistAccessToken(userID, jti, tokenExpiry); err != nil {
		return err
	}

	if refreshToken != "" {
		if err := svc.tokenRepo.RevokeByRawToken(refreshToken); err != nil {
			return svc.sqlSvc.HandleError(err)
		}
	}

	log.WithFields(log.Fields{"user_id": userID, "client_ip": clientIP}).Info("User logged out")
	return nil
}

func (svc *AuthService) LogoutAllDevices(userID, jti string, tokenExpiry time.Time, clientIP string) error {
	if err := svc.blacklistAccessToken(userID, jti, tokenExpiry); err != nil {
		return err
	}

	if err := svc.tokenRepo.RevokeAllForUser(userID); err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	log.WithFields(log.Fields{"user_id": userID, "client_ip": clientIP}).Info("User logged out everywhere")
	return nil
}

func (svc *AuthService) blacklistAccessToken(userID, jti string, tokenExpiry time.Time) error {
	if jti == "" {
		return nil
	}

	if err := svc.tokenRepo.BlacklistJTI(jti, userID, tokenExpiry); err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	if svc.redisSvc != nil && svc.redisSvc.Enabled() {
		ttl := time.Until(tokenExpiry)
		if err := svc.redisSvc.CacheBlacklistedJTI(stdcontext.Background(), jti, ttl); err != nil {
			log.WithError(err).Warn("Failed to cache blacklisted JTI in redis")
		}
	}
	return nil
}

// IsAccessTokenRevoked consults the redis fast path, then the database. A
// lookup fault is logged and treated as not-revoked so a cache outage cannot
// lock out every holder of a live token.
func (svc *AuthService) IsAccessTokenRevoked(jti string) bool {
	if jti == "" {
		return false
	}

	if svc.redisSvc != nil && svc.redisSvc.Enabled() {
		hit, err := svc.redisSvc.IsJTIBlacklisted(stdcontext.Background(), jti)
		if err == nil && hit {
			return true
		}
		if err != nil {
			log.WithError(err).Warn("Redis blacklist lookup failed")
		}
	}

	revoked, err := svc.tokenRepo.IsJTIBlacklisted(jti)
	if err != nil {
		log.WithError(err).Warn("Blacklist lookup failed")
		return false
	}
	return revoked
}

// ==================== PASSWORD ====================

// ChangePassword verifies the current credential, stores the new hash and
// revokes every refresh token the user holds.
func (svc *AuthService) ChangePassword(userID string, req dto.ChangePasswordRequest) error {
	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	if !svc.userRepo.VerifyPassword(user, req.CurrentPassword) {
		return shared.NewUnauthorizedError(errors.New("current password mismatch"))
	}

	if err := svc.userRepo.UpdatePassword(userID, req.NewPassword); err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	if err := svc.tokenRepo.RevokeAllForUser(userID); err != nil {
		return svc.sqlSvc.HandleError(err)
	}

	log.WithField("user_id", userID).Info("Password changed, all refresh tokens revoked")
	return nil
}

// ==================== PROFILE ====================

func (svc *AuthService) GetUserInfo(userID string) (*dto.UserInfo, error) {
	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	return &dto.UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}, nil
}

// GetActiveUser loads a user for request authentication. Disabled accounts
// come back as not found.
func (svc *AuthService) GetActiveUser(userID string) (*dto.UserInfo, error) {
	user, err := svc.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &dto.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

// ==================== BACKGROUND JOBS ====================

func (svc *AuthService) purgeStaleTokens() {
	now := time.Now()
	if err := svc.tokenRepo.PurgeExpired(now); err != nil {
		log.WithError(err).Error("Refresh token purge failed")
	}
	if err := svc.tokenRepo.PurgeRevokedBefore(now.Add(-revokedRetention)); err != nil {
		log.WithError(err).Error("Revoked token purge failed")
	}
	if err := svc.tokenRepo.PurgeExpiredBlacklist(now); err != nil {
		log.WithError(err).Error("Blacklist purge failed")
	}
}

func (svc *AuthService) startPurgeJob() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.purgeStaleTokens()
		case <-svc.stopPurge:
			return
		}
	}
}
