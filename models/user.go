package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"userId"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	UserName     string    `gorm:"size:64;not null" json:"userName"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Info         string    `gorm:"size:255" json:"info"`
	ImgName      string    `gorm:"size:255" json:"-"`
	ImgURL       string    `gorm:"size:1024" json:"imgUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeSave normalizes the email so the unique index is case-insensitive in practice.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
