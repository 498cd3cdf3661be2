package billing

import (
	"time"
)

// Ledger statuses for a payment attempt.
const (
	StatusPending      = "pending"
	StatusCompleted    = "completed"
	StatusRefunded     = "refunded"
	StatusExpired      = "expired"
	StatusRejected     = "rejected"
	StatusUserNotFound = "user_not_found"
)

// Gateway names as stored on ledger rows.
const (
	GatewayStripe      = "stripe"
	GatewayMercadoPago = "mercadopago"
	GatewayOpenPix     = "openpix"
)

// Payment is the append-only ledger of gateway charge attempts. One row per
// charge; rows are resolved, never deleted. (gateway, gateway_charge_id) is
// the idempotency key: the processed flag flips false→true exactly once.
type Payment struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index"`
	PlanType        string `gorm:"type:varchar(20)"`
	Gateway         string `gorm:"type:varchar(20);not null;uniqueIndex:idx_payments_gateway_charge,priority:1"`
	GatewayChargeID string `gorm:"not null;uniqueIndex:idx_payments_gateway_charge,priority:2"`
	CorrelationID   string `gorm:"index:idx_payments_correlation"`
	AmountCents     int64
	Status          string `gorm:"type:varchar(20);not null;default:'pending'"`

	Processed             bool `gorm:"not null;default:false"`
	SubscriptionActivated bool `gorm:"not null;default:false"`

	PaidAt     *time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
