package billing

import (
	"net/http"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
)

// SimulatePayment builds a synthetic notification with the same shape a
// real webhook produces and routes it through the identical engine call.
// Dedup applies to simulated events exactly as to real ones. Answers 404
// in production.
func (h *Handler) SimulatePayment(c *gin.Context) {
	if h.cfg.AppEnv == "production" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	var body struct {
		Gateway     string `json:"gateway"`
		ChargeID    string `json:"charge_id"`
		Reference   string `json:"reference"`
		Plan        string `json:"plan"`
		AmountCents int64  `json:"amount_cents"`
		Lifecycle   string `json:"lifecycle"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ChargeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing charge_id"})
		return
	}
	if body.Gateway == "" {
		body.Gateway = billing.GatewayOpenPix
	}
	lifecycle := recon.Lifecycle(body.Lifecycle)
	if lifecycle == "" {
		lifecycle = recon.LifecycleCompleted
	}

	result, err := h.engine.Apply(c.Request.Context(), recon.Event{
		Gateway:       body.Gateway,
		ChargeID:      body.ChargeID,
		CorrelationID: body.Reference,
		UserID:        c.GetUint("user_id"),
		PlanType:      body.Plan,
		AmountCents:   body.AmountCents,
		Lifecycle:     lifecycle,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome})
}
