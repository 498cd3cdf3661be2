package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidType(t *testing.T) {
	assert.True(t, IsValidType("monthly"))
	assert.True(t, IsValidType("ANNUAL"))
	assert.True(t, IsValidType(" trial "))
	assert.True(t, IsValidType(TypeDriverFree))
	assert.False(t, IsValidType(""))
	assert.False(t, IsValidType("platinum"))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, TypeAnnual, NormalizeType("ANNUAL"))
	assert.Equal(t, TypeTrial, NormalizeType(" Trial "))
	assert.Equal(t, TypeMonthly, NormalizeType(TypeMonthly))
}

func TestDurationDaysFor(t *testing.T) {
	assert.Equal(t, 30, DurationDaysFor(TypeMonthly))
	assert.Equal(t, 365, DurationDaysFor(TypeAnnual))
	assert.Equal(t, 14, DurationDaysFor(TypeTrial))
	assert.Equal(t, 0, DurationDaysFor(TypeDriverFree))
}

func TestTypeForAmount(t *testing.T) {
	assert.Equal(t, TypeAnnual, TypeForAmount(AnnualPriceCents))
	assert.Equal(t, TypeAnnual, TypeForAmount(AnnualPriceCents+100))
	assert.Equal(t, TypeMonthly, TypeForAmount(MonthlyPriceCents))
	assert.Equal(t, TypeMonthly, TypeForAmount(1))
}

func TestPriceCentsFor(t *testing.T) {
	assert.Equal(t, MonthlyPriceCents, PriceCentsFor(TypeMonthly))
	assert.Equal(t, AnnualPriceCents, PriceCentsFor(TypeAnnual))
	assert.Equal(t, int64(0), PriceCentsFor(TypeDriverFree))
}
