package repositories

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/model"
)

var (
	// ErrRefreshTokenInvalid covers absent, expired and revoked tokens. The
	// caller must not tell the client which one it was.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")

	// ErrRefreshTokenReused means a token that was already rotated came back.
	// Strong signal of token theft.
	ErrRefreshTokenReused = errors.New("refresh token reused")
)

// TokenRepository handles refresh-token and token-blacklist persistence
type TokenRepository struct {
	BaseRepository
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// HashToken derives the stored form of an opaque token value. Raw values are
// never persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates a fresh refresh token for the user and returns the raw value
// alongside the persisted row.
func (ds *TokenRepository) Issue(userID string, ttl time.Duration, ipAddress, userAgent string) (string, *model.RefreshToken, error) {
	raw, err := generateOpaqueToken()
	if err != nil {
		return "", nil, err
	}

	id, _ := uuid.NewV7()
	now := time.Now()
	token := &model.RefreshToken{
		ID:         id.String(),
		UserID:     userID,
		TokenHash:  HashToken(raw),
		ExpiryDate: now.Add(ttl),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := ds.db.Create(token).Error; err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

func (ds *TokenRepository) GetByRawToken(raw string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	if err := ds.db.Where("token_hash = ?", HashToken(raw)).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Rotate retires the presented token and mints its successor in one
// transaction. The conditional update on revoked = false makes concurrent
// rotations of the same token single-winner: the loser sees zero rows.
func (ds *TokenRepository) Rotate(raw string, ttl time.Duration, ipAddress, userAgent string) (string, *model.RefreshToken, error) {
	var newRaw string
	var successor *model.RefreshToken

	err := ds.db.Transaction(func(tx *gorm.DB) error {
		var current model.RefreshToken
		if err := tx.Where("token_hash = ?", HashToken(raw)).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshTokenInvalid
			}
			return err
		}

		now := time.Now()

		if current.Used || current.Revoked {
			return ErrRefreshTokenReused
		}
		if current.IsExpired(now) {
			return ErrRefreshTokenInvalid
		}

		res := tx.Model(&model.RefreshToken{}).
			Where("id = ? AND revoked = ?", current.ID, false).
			Updates(map[string]interface{}{
				"revoked":      true,
				"used":         true,
				"last_used_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent rotation.
			return ErrRefreshTokenReused
		}

		var err error
		newRaw, err = generateOpaqueToken()
		if err != nil {
			return err
		}

		id, _ := uuid.NewV7()
		successor = &model.RefreshToken{
			ID:         id.String(),
			UserID:     current.UserID,
			TokenHash:  HashToken(newRaw),
			ExpiryDate: now.Add(ttl),
			IPAddress:  ipAddress,
			UserAgent:  userAgent,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(successor).Error; err != nil {
			return err
		}

		return tx.Model(&model.RefreshToken{}).
			Where("id = ?", current.ID).
			Update("replaced_by_id", successor.ID).Error
	})
	if err != nil {
		return "", nil, err
	}

	return newRaw, successor, nil
}

// RevokeByRawToken marks a single token revoked. Used on logout.
func (ds *TokenRepository) RevokeByRawToken(raw string) error {
	return ds.db.Model(&model.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", HashToken(raw), false).
		Updates(map[string]interface{}{
			"revoked":    true,
			"updated_at": time.Now(),
		}).Error
}

// RevokeAllForUser marks every live token for the user revoked. Used on
// logout-everywhere, password change and detected token reuse.
func (ds *TokenRepository) RevokeAllForUser(userID string) error {
	return ds.db.Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"revoked":    true,
			"updated_at": time.Now(),
		}).Error
}

func (ds *TokenRepository) PurgeExpired(now time.Time) error {
	return ds.db.Where("expiry_date < ?", now).Delete(&model.RefreshToken{}).Error
}

func (ds *TokenRepository) PurgeRevokedBefore(cutoff time.Time) error {
	return ds.db.Where("revoked = ? AND updated_at < ?", true, cutoff).Delete(&model.RefreshToken{}).Error
}

// ==================== ACCESS TOKEN BLACKLIST ====================

func (ds *TokenRepository) BlacklistJTI(jti, userID string, expiresAt time.Time) error {
	entry := &model.BlacklistedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return ds.db.Create(entry).Error
}

func (ds *TokenRepository) IsJTIBlacklisted(jti string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.BlacklistedToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	return count > 0, err
}

func (ds *TokenRepository) PurgeExpiredBlacklist(now time.Time) error {
	return ds.db.Where("expires_at < ?", now).Delete(&model.BlacklistedToken{}).Error
}
