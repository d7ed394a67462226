package model

import "time"

type User struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;not null"`
	Username  string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Role      string `gorm:"not null;default:user;size:20"`
	IsActive  bool   `gorm:"not null;default:true"`
	LastLogin *time.Time
	LastIP    string `gorm:"size:45"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
