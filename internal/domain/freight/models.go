package freight

import (
	"time"
)

// Freight posting statuses.
const (
	FreightOpen      = "open"
	FreightAssigned  = "assigned"
	FreightInTransit = "in_transit"
	FreightDelivered = "delivered"
	FreightCanceled  = "canceled"
)

// Freight is a load posted by a shipper client looking for a driver.
type Freight struct {
	ID          uint `gorm:"primaryKey"`
	ShipperID   uint `gorm:"index"`
	Origin      string
	Destination string
	Cargo       string
	WeightKg    float64
	PriceCents  int64
	Status      string `gorm:"type:varchar(20);not null;default:'open'"`
	DriverID    *uint  `gorm:"index"`
	PickupAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle belongs to a driver user.
type Vehicle struct {
	ID         uint `gorm:"primaryKey"`
	DriverID   uint `gorm:"index"`
	Plate      string `gorm:"uniqueIndex:idx_vehicles_plate"`
	Model      string
	BodyType   string // "bau" | "graneleiro" | "sider" | "prancha"
	CapacityKg float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DriverProfile holds driver-only data beyond the user row.
type DriverProfile struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex"`
	CNH       string `gorm:"column:cnh"`
	CNHType   string `gorm:"column:cnh_type;type:varchar(5)"`
	City      string
	State     string `gorm:"type:varchar(2)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
