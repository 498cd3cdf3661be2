package billing

import (
	"context"
	"log"
	"net/http"
	"time"

	"freight-app/database"
	"freight-app/internal/domain/billing"
	"freight-app/internal/infra/mercadopago"
	"freight-app/internal/infra/openpix"
	infrastripe "freight-app/internal/infra/stripe"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// ForceSync re-reads the caller's unresolved charges straight from the
// gateways and funnels whatever they report through the reconciliation
// engine. Same idempotent path as the webhooks — this is the backstop for
// a notification that never arrived, not a second activation route.
func (h *Handler) ForceSync(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	h.syncUser(c, userID)
}

// ForceSyncUser is the admin variant, syncing an arbitrary user.
func (h *Handler) ForceSyncUser(c *gin.Context) {
	var body struct {
		UserID uint `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user_id"})
		return
	}
	h.syncUser(c, body.UserID)
}

func (h *Handler) syncUser(c *gin.Context, userID uint) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var open []billing.Payment
	if err := database.DB.WithContext(ctx).
		Where("user_id = ? AND processed = ? AND status = ?", userID, false, billing.StatusPending).
		Order("created_at DESC").
		Limit(10).
		Find(&open).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load open charges"})
		return
	}

	outcomes := make(map[string]string)
	for _, entry := range open {
		outcome, err := h.syncEntry(ctx, entry)
		if err != nil {
			log.Printf("⚠️ force-sync: %s/%s: %v", entry.Gateway, entry.GatewayChargeID, err)
			outcomes[entry.GatewayChargeID] = "error"
			continue
		}
		outcomes[entry.GatewayChargeID] = outcome
	}

	c.JSON(http.StatusOK, gin.H{"checked": len(open), "outcomes": outcomes})
}

func (h *Handler) syncEntry(ctx context.Context, entry billing.Payment) (string, error) {
	switch entry.Gateway {
	case billing.GatewayMercadoPago:
		payments, err := h.mp.SearchByReference(ctx, entry.CorrelationID)
		if err != nil {
			return "", err
		}
		last := "unchanged"
		for _, payment := range payments {
			lifecycle, ok := mercadopago.LifecycleForStatus(payment.Status)
			if !ok {
				continue
			}
			result, err := h.engine.Apply(ctx, recon.Event{
				Gateway:       billing.GatewayMercadoPago,
				ChargeID:      payment.IDString(),
				CorrelationID: payment.ExternalReference,
				PayerEmail:    payment.Payer.Email,
				AmountCents:   payment.AmountCents(),
				Lifecycle:     lifecycle,
				OccurredAt:    time.Now(),
			})
			if err != nil {
				return "", err
			}
			last = string(result.Outcome)
		}
		return last, nil

	case billing.GatewayOpenPix:
		charge, err := h.openpix.GetCharge(ctx, entry.CorrelationID)
		if err != nil {
			return "", err
		}
		lifecycle, ok := openpix.LifecycleForChargeStatus(charge.Status)
		if !ok {
			return "unchanged", nil
		}
		result, err := h.engine.Apply(ctx, recon.Event{
			Gateway:       billing.GatewayOpenPix,
			ChargeID:      charge.CorrelationID,
			CorrelationID: charge.CorrelationID,
			PayerEmail:    charge.Customer.Email,
			AmountCents:   charge.Value,
			Lifecycle:     lifecycle,
			OccurredAt:    time.Now(),
		})
		if err != nil {
			return "", err
		}
		return string(result.Outcome), nil

	case billing.GatewayStripe:
		stripe.Key = h.cfg.StripeSecretKey
		session, err := checkoutsession.Get(entry.GatewayChargeID, nil)
		if err != nil {
			return "", err
		}
		lifecycle, ok := infrastripe.LifecycleForPaymentStatus(string(session.PaymentStatus))
		if !ok || lifecycle == recon.LifecyclePending {
			return "unchanged", nil
		}
		result, err := h.engine.Apply(ctx, recon.Event{
			Gateway:       billing.GatewayStripe,
			ChargeID:      session.ID,
			CorrelationID: session.ClientReferenceID,
			UserID:        entry.UserID,
			AmountCents:   session.AmountTotal,
			Lifecycle:     lifecycle,
			OccurredAt:    time.Now(),
		})
		if err != nil {
			return "", err
		}
		return string(result.Outcome), nil
	}
	return "unchanged", nil
}
