package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Username            string        `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email               string        `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password            string        `gorm:"not null" json:"-"`
	IsActive            bool          `gorm:"default:true" json:"is_active"`
	IsSuperuser         bool          `gorm:"default:false" json:"-"`
	RefreshTokenHash    string        `gorm:"size:64" json:"-"`
	FailedLoginAttempts int           `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time    `json:"-"`
	LastLoginAt         *time.Time    `json:"last_login_at,omitempty"`
	Budgets             []Budget      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"budgets,omitempty"`
	Transactions        []Transaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
}
