package plans

import (
	"net/http"

	"freight-app/database"
	"freight-app/internal/domain/plans"

	"github.com/gin-gonic/gin"
)

type planDTO struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PriceCents   int64  `json:"price_cents"`
	DurationDays int    `json:"duration_days"`
}

// GET /plans — the public plan list. Falls back to the built-in table when
// the database has none seeded.
func ListPlans(c *gin.Context) {
	var rows []plans.Plan
	if err := database.DB.Order("price_cents").Find(&rows).Error; err == nil && len(rows) > 0 {
		out := make([]planDTO, 0, len(rows))
		for _, p := range rows {
			out = append(out, planDTO{
				Name:         p.Name,
				Type:         p.Type,
				PriceCents:   p.PriceCents,
				DurationDays: p.DurationDays,
			})
		}
		c.JSON(http.StatusOK, out)
		return
	}

	c.JSON(http.StatusOK, []planDTO{
		{Name: "Mensal", Type: plans.TypeMonthly, PriceCents: plans.MonthlyPriceCents, DurationDays: plans.MonthlyDays},
		{Name: "Anual", Type: plans.TypeAnnual, PriceCents: plans.AnnualPriceCents, DurationDays: plans.AnnualDays},
	})
}
