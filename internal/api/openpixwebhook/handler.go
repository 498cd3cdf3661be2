package openpixwebhooks

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/infra/openpix"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
)

// Handler receives OpenPix webhook events. The charge's correlationID is
// the reference we issued at creation, so the payload is self-contained and
// needs no enrichment call.
type Handler struct {
	engine *recon.Engine
}

func NewHandler(engine *recon.Engine) *Handler {
	return &Handler{engine: engine}
}

const processingTimeout = 15 * time.Second

type webhookBody struct {
	Event  string         `json:"event"`
	Charge openpix.Charge `json:"charge"`
	Pix    struct {
		EndToEndID string `json:"endToEndId"`
	} `json:"pix"`
}

func (h *Handler) HandlePost(c *gin.Context) {
	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed notification"})
		return
	}

	lifecycle, ok := lifecycleForEvent(body.Event, body.Charge.Status)
	if !ok {
		// Test pings and events outside the charge lifecycle.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if body.Charge.CorrelationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing correlationID"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), processingTimeout)
	defer cancel()

	ev := recon.Event{
		Gateway:       billing.GatewayOpenPix,
		ChargeID:      body.Charge.CorrelationID,
		CorrelationID: body.Charge.CorrelationID,
		PayerEmail:    body.Charge.Customer.Email,
		AmountCents:   body.Charge.Value,
		Lifecycle:     lifecycle,
		OccurredAt:    time.Now(),
	}

	result, err := h.engine.Apply(ctx, ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed"})
		return
	}
	log.Printf("⚡ openpix %s %s → %s", body.Event, body.Charge.CorrelationID, result.Outcome)
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": result.Outcome})
}

func lifecycleForEvent(event string, chargeStatus string) (recon.Lifecycle, bool) {
	switch strings.ToUpper(event) {
	case "OPENPIX:CHARGE_COMPLETED", "OPENPIX:TRANSACTION_RECEIVED":
		return recon.LifecycleCompleted, true
	case "OPENPIX:CHARGE_CREATED":
		return recon.LifecyclePending, true
	case "OPENPIX:CHARGE_EXPIRED":
		return recon.LifecycleExpired, true
	case "OPENPIX:TRANSACTION_REFUND_RECEIVED", "OPENPIX:CHARGE_REFUNDED":
		return recon.LifecycleRefunded, true
	}
	// Some deliveries only carry the charge with its status.
	return openpix.LifecycleForChargeStatus(chargeStatus)
}
