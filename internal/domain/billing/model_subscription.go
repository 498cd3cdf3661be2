package billing

import "time"

// Subscription record statuses.
const (
	SubStatusActive   = "active"
	SubStatusPending  = "pending"
	SubStatusCanceled = "canceled"
	SubStatusExpired  = "expired"
)

// SubscriptionRecord is the per-billing-period history trail. A user may
// have many rows; the reconciliation engine keeps at most one active.
type SubscriptionRecord struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             uint   `gorm:"index"`
	Status             string `gorm:"type:varchar(20);not null"`
	PlanType           string `gorm:"type:varchar(20);not null"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           string `gorm:"type:text"` // gateway references, JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}
