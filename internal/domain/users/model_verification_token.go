package users

import "time"

type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	Token     string `gorm:"uniqueIndex"`
	Purpose   string `gorm:"type:varchar(30);not null;default:'verify_email'"` // "verify_email" | "reset_password"
	ExpiresAt time.Time
	CreatedAt time.Time
}
