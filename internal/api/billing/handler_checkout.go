package billing

import (
	"fmt"
	"net/http"
	"time"

	"freight-app/config"
	"freight-app/database"
	"freight-app/internal/correlate"
	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	customer "github.com/stripe/stripe-go/v75/customer"

	"freight-app/internal/infra/mercadopago"
	"freight-app/internal/infra/openpix"
)

type checkoutInput struct {
	Plan string `json:"plan"`
}

// loadPayer validates the request body and loads the paying user.
func (h *Handler) loadPayer(c *gin.Context) (*users.User, string, bool) {
	var body checkoutInput
	if err := c.ShouldBindJSON(&body); err != nil ||
		(body.Plan != plans.TypeMonthly && body.Plan != plans.TypeAnnual) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid plan (monthly|annual)"})
		return nil, "", false
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return nil, "", false
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return nil, "", false
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return nil, "", false
	}
	return &user, body.Plan, true
}

// issueAttempt mints the correlation reference for a new charge together
// with the session token the frontend uses to poll CheckoutStatus after the
// gateway redirect. Both carry the same clock reading so they decode to the
// same attempt.
func (h *Handler) issueAttempt(userID uint, planType string) (string, string, error) {
	now := time.Now()
	ref := correlate.NewChargeRef(userID, planType, now)
	session, err := correlate.NewSessionToken(config.JWT_SECRET, userID, planType, now, h.cfg.SessionTokenTTL)
	return ref, session, err
}

// recordIssued writes the pending ledger row for a freshly created charge.
func (h *Handler) recordIssued(c *gin.Context, gateway, chargeID, ref string, userID uint, planType string, amountCents int64) error {
	_, err := h.engine.Apply(c.Request.Context(), recon.Event{
		Gateway:       gateway,
		ChargeID:      chargeID,
		CorrelationID: ref,
		UserID:        userID,
		PlanType:      planType,
		AmountCents:   amountCents,
		Lifecycle:     recon.LifecyclePending,
		OccurredAt:    time.Now(),
	})
	return err
}

// CreateStripeCheckout starts a Stripe Checkout session for one billing
// period. Payment mode, amount in centavos; the correlation reference rides
// in ClientReferenceID and the payment intent metadata so both the session
// and the eventual charge map back to the user.
func (h *Handler) CreateStripeCheckout(c *gin.Context) {
	user, planType, ok := h.loadPayer(c)
	if !ok {
		return
	}

	stripe.Key = h.cfg.StripeSecretKey
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	// ensure stripe customer
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		cus, err := customer.New(&stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"app_env": h.cfg.AppEnv,
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe customer"})
			return
		}
		if err := database.DB.Model(&users.User{}).
			Where("id = ?", user.ID).
			Update("stripe_customer_id", cus.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}
		user.StripeCustomerID = stripe.String(cus.ID)
	}

	ref, session, err := h.issueAttempt(user.ID, planType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue payment session"})
		return
	}
	amount := plans.PriceCentsFor(planType)

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(h.cfg.AppURL + "/account"),
		CancelURL:  stripe.String(h.cfg.AppURL + "/account?canceled=1"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:   stripe.String(*user.StripeCustomerID),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("brl"),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Assinatura %s", planType)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},

		ClientReferenceID: stripe.String(ref),

		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"user_id":        fmt.Sprint(user.ID),
				"plan":           planType,
				"correlation_id": ref,
			},
		},
	}
	params.AddMetadata("user_id", fmt.Sprint(user.ID))
	params.AddMetadata("plan", planType)

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}

	if err := h.recordIssued(c, billing.GatewayStripe, s.ID, ref, user.ID, planType, amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record charge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL, "session": session})
}

// CreateMercadoPagoCheckout creates an MP preference and returns its init
// point. The preference id goes on the ledger; the payment notification
// later carries a different id, reconciled through the external reference.
func (h *Handler) CreateMercadoPagoCheckout(c *gin.Context) {
	user, planType, ok := h.loadPayer(c)
	if !ok {
		return
	}

	ref, session, err := h.issueAttempt(user.ID, planType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue payment session"})
		return
	}
	amount := plans.PriceCentsFor(planType)

	pref, err := h.mp.CreatePreference(c.Request.Context(), mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{
			{
				Title:     fmt.Sprintf("Assinatura %s", planType),
				Quantity:  1,
				UnitPrice: float64(amount) / 100.0,
			},
		},
		ExternalReference: ref,
		BackURLs: map[string]string{
			"success": h.cfg.AppURL + "/account",
			"failure": h.cfg.AppURL + "/account?canceled=1",
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create preference", "details": err.Error()})
		return
	}

	if err := h.recordIssued(c, billing.GatewayMercadoPago, pref.ID, ref, user.ID, planType, amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record charge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": pref.InitPoint, "reference": ref, "session": session})
}

// CreateOpenPixCharge creates a PIX charge and returns the QR payload.
func (h *Handler) CreateOpenPixCharge(c *gin.Context) {
	user, planType, ok := h.loadPayer(c)
	if !ok {
		return
	}

	ref, session, err := h.issueAttempt(user.ID, planType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue payment session"})
		return
	}
	amount := plans.PriceCentsFor(planType)

	charge, err := h.openpix.CreateCharge(c.Request.Context(), openpix.CreateChargeRequest{
		CorrelationID: ref,
		Value:         amount,
		Comment:       fmt.Sprintf("Assinatura %s", planType),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create charge", "details": err.Error()})
		return
	}

	if err := h.recordIssued(c, billing.GatewayOpenPix, charge.CorrelationID, ref, user.ID, planType, amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record charge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"br_code":       charge.BRCode,
		"qr_code_image": charge.QRCodeImage,
		"reference":     ref,
		"session":       session,
	})
}
