package model

import "time"

// RefreshToken tracks one opaque refresh credential. The raw value is never
// stored, only its SHA-256 hash. Rotation marks the old row used+revoked and
// links the successor through ReplacedByID so replay of a rotated token is
// detectable.
type RefreshToken struct {
	ID           string     `json:"id" gorm:"primaryKey;type:text;not null"`
	UserID       string     `json:"user_id" gorm:"not null;index;size:64"`
	TokenHash    string     `json:"-" gorm:"uniqueIndex;not null;size:64"`
	ExpiryDate   time.Time  `json:"expiry_date" gorm:"not null;index"`
	Revoked      bool       `json:"revoked" gorm:"not null;default:false;index"`
	Used         bool       `json:"used" gorm:"not null;default:false"`
	ReplacedByID *string    `json:"replaced_by_id,omitempty" gorm:"size:64"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	IPAddress    string     `json:"ip_address,omitempty" gorm:"size:45"`
	UserAgent    string     `json:"user_agent,omitempty" gorm:"size:255"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiryDate)
}

// IsValid reports whether the token can still mint new access tokens.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
