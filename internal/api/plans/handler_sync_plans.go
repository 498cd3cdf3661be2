package plans

import (
	"net/http"

	"freight-app/database"
	"freight-app/internal/domain/plans"
	infrastripe "freight-app/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
)

// SyncPlansFromStripe pulls active recurring prices from Stripe and upserts
// them into the local plan table. Admin-only; the local table stays the
// source of truth for checkout amounts.
func SyncPlansFromStripe(c *gin.Context) {
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.AddExpand("data.product")

	it := price.List(params)

	synced := 0
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Product == nil || !p.Product.Active {
			continue
		}
		if p.Metadata["visible"] == "false" {
			continue
		}

		planType := p.Metadata["plan_type"]
		if planType == "" {
			planType = plans.TypeForAmount(p.UnitAmount)
		}

		row := plans.Plan{
			Name:          p.Product.Name,
			Type:          planType,
			PriceCents:    p.UnitAmount,
			DurationDays:  plans.DurationDaysFor(planType),
			StripePriceID: p.ID,
			Interval:      infrastripe.PlanIntervalFor(planType),
		}

		var existing plans.Plan
		if err := database.DB.Where("stripe_price_id = ?", p.ID).First(&existing).Error; err == nil {
			row.ID = existing.ID
		}
		if err := database.DB.Save(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save plan", "details": err.Error()})
			return
		}
		synced++
	}

	if err := it.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"synced": synced})
}
