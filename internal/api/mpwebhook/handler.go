package mpwebhooks

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/infra/mercadopago"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
)

// Handler receives Mercado Pago payment notifications. MP delivers both the
// current JSON POST form and the legacy IPN GET form; both resolve to the
// same payment lookup and the same engine call.
type Handler struct {
	client *mercadopago.Client
	engine *recon.Engine
}

func NewHandler(client *mercadopago.Client, engine *recon.Engine) *Handler {
	return &Handler{client: client, engine: engine}
}

const processingTimeout = 15 * time.Second

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandlePost handles {"type":"payment","data":{"id":...}} notifications.
func (h *Handler) HandlePost(c *gin.Context) {
	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed notification"})
		return
	}
	if body.Type != "payment" {
		// Merchant orders, plans etc. are not ours; acknowledge.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	paymentID := body.Data.ID.String()
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment id"})
		return
	}
	h.process(c, paymentID)
}

// HandleGet handles the legacy ?topic=payment&id=... form.
func (h *Handler) HandleGet(c *gin.Context) {
	topic := c.Query("topic")
	if topic != "" && topic != "payment" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	paymentID := c.Query("id")
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment id"})
		return
	}
	h.process(c, paymentID)
}

func (h *Handler) process(c *gin.Context, paymentID string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), processingTimeout)
	defer cancel()

	// Enrichment happens before any state change: if MP is unreachable we
	// answer 500 and let the gateway retry with nothing half-written.
	payment, err := h.client.GetPayment(ctx, paymentID)
	if err != nil {
		log.Println("❌ mercadopago payment fetch failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return
	}

	lifecycle, ok := mercadopago.LifecycleForStatus(payment.Status)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ev := recon.Event{
		Gateway:       billing.GatewayMercadoPago,
		ChargeID:      strconv.FormatInt(payment.ID, 10),
		CorrelationID: payment.ExternalReference,
		PayerEmail:    payment.Payer.Email,
		AmountCents:   payment.AmountCents(),
		Lifecycle:     lifecycle,
		OccurredAt:    time.Now(),
	}

	result, err := h.engine.Apply(ctx, ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed"})
		return
	}
	log.Printf("💠 mercadopago payment %s (%s) → %s", paymentID, payment.Status, result.Outcome)
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": result.Outcome})
}
