package model

import "time"

// BlacklistedToken records access-token JTIs revoked before their natural
// expiry (logout, logout-everywhere). Rows older than ExpiresAt are purged.
type BlacklistedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"index;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}
