package users

import (
	"time"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Tel          string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string  // "shipper" | "driver" | "admin"
	IsVerified   bool

	// Entitlement. SubscriptionExpiresAt is null only for the permanent
	// driver_free tier; every paid/trial activation writes a fresh expiry.
	SubscriptionActive    bool       `gorm:"column:subscription_active;not null;default:false"`
	SubscriptionType      *string    `gorm:"column:subscription_type;type:varchar(20)"`
	SubscriptionExpiresAt *time.Time `gorm:"column:subscription_expires_at"`
	PaymentRequired       bool       `gorm:"column:payment_required;not null;default:false"`
	RefundedAt            *time.Time `gorm:"column:refunded_at"`

	StripeCustomerID      *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`
	MercadoPagoCustomerID *string `gorm:"column:mercadopago_customer_id"`

	TrialStartAt *time.Time `gorm:"column:trial_start_at"`
	TrialEndAt   *time.Time `gorm:"column:trial_end_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
