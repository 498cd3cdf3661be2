package plans

import "strings"

// Plan type constants (single source of truth)
const (
	TypeTrial      = "trial"
	TypeMonthly    = "monthly"
	TypeAnnual     = "annual"
	TypeDriverFree = "driver_free"
)

// Durations in days. Calendar-approximate on purpose: monthly is always
// +30 days and annual always +365, regardless of entry point.
const (
	TrialDays   = 14
	MonthlyDays = 30
	AnnualDays  = 365
)

// Prices in centavos. All plan arithmetic happens in minor units;
// conversion to BRL happens only at the display boundary.
const (
	MonthlyPriceCents int64 = 4990
	AnnualPriceCents  int64 = 49900
)

type Plan struct {
	ID            uint `gorm:"primaryKey"`
	Name          string
	Type          string `gorm:"column:plan_type;not null;uniqueIndex:idx_plans_type"`
	PriceCents    int64  `gorm:"column:price_cents"`
	DurationDays  int
	StripePriceID string `gorm:"column:stripe_price_id;uniqueIndex:idx_plans_stripe_price_id"`
	Interval      string
}

// NormalizeType lowercases and trims a plan type. Gateway metadata is not
// guaranteed to carry our casing; every lookup keyed on a plan type must go
// through the normalized form.
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// IsValidType reports whether t is one of the paid/trial plan types a
// payment event may carry.
func IsValidType(t string) bool {
	switch NormalizeType(t) {
	case TypeTrial, TypeMonthly, TypeAnnual, TypeDriverFree:
		return true
	}
	return false
}

// DurationDaysFor returns the entitlement window a paid plan grants.
// driver_free has no expiry and returns 0.
func DurationDaysFor(planType string) int {
	switch planType {
	case TypeMonthly:
		return MonthlyDays
	case TypeAnnual:
		return AnnualDays
	case TypeTrial:
		return TrialDays
	default:
		return 0
	}
}

// PriceCentsFor returns the charge amount for a paid plan in minor units.
func PriceCentsFor(planType string) int64 {
	switch planType {
	case TypeAnnual:
		return AnnualPriceCents
	case TypeMonthly:
		return MonthlyPriceCents
	default:
		return 0
	}
}

// TypeForAmount infers the plan from a charge amount in minor units.
// Fallback for gateways whose notification carries no plan reference.
func TypeForAmount(amountCents int64) string {
	if amountCents >= AnnualPriceCents {
		return TypeAnnual
	}
	return TypeMonthly
}
