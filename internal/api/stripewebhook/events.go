package stripewebhooks

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/recon"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	// Checkout sessions we create carry the user/plan in metadata and the
	// correlation reference in ClientReferenceID, so most payloads need no
	// enrichment. Fetch the full session only when the payload is thin —
	// before that fetch nothing has been written, so a failure is retryable.
	if session.ClientReferenceID == "" && userIDFromMetadata(session.Metadata) == 0 {
		full, err := checkoutsession.Get(session.ID, &stripe.CheckoutSessionParams{
			Params: stripe.Params{
				Expand: []*string{stripe.String("customer")},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to fetch expanded checkout session: %w", err)
		}
		session = full
	}

	lifecycle := recon.LifecycleCompleted
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		lifecycle = recon.LifecyclePending
	}

	ev := recon.Event{
		Gateway:       billing.GatewayStripe,
		ChargeID:      session.ID,
		CorrelationID: session.ClientReferenceID,
		UserID:        userIDFromMetadata(session.Metadata),
		PlanType:      planFromMetadata(session.Metadata),
		AmountCents:   session.AmountTotal,
		Lifecycle:     lifecycle,
		OccurredAt:    time.Now(),
	}
	if session.CustomerDetails != nil {
		ev.PayerEmail = session.CustomerDetails.Email
	}

	result, err := h.engine.Apply(ctx, ev)
	if err != nil {
		return err
	}
	log.Printf("💳 stripe checkout %s → %s", session.ID, result.Outcome)
	return nil
}

func (h *Handler) handleChargeRefunded(ctx context.Context, charge *stripe.Charge) error {
	// Charges inherit the payment intent metadata our checkout sets, so
	// the correlation reference rides along on the refund notification.
	ev := recon.Event{
		Gateway:       billing.GatewayStripe,
		ChargeID:      charge.ID,
		CorrelationID: charge.Metadata["correlation_id"],
		UserID:        userIDFromMetadata(charge.Metadata),
		AmountCents:   charge.AmountRefunded,
		Lifecycle:     recon.LifecycleRefunded,
		OccurredAt:    time.Now(),
	}
	if charge.BillingDetails != nil {
		ev.PayerEmail = charge.BillingDetails.Email
	}

	result, err := h.engine.Apply(ctx, ev)
	if err != nil {
		return err
	}
	log.Printf("💳 stripe refund %s → %s", charge.ID, result.Outcome)
	return nil
}

func (h *Handler) handlePaymentFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	ev := recon.Event{
		Gateway:       billing.GatewayStripe,
		ChargeID:      intent.ID,
		CorrelationID: intent.Metadata["correlation_id"],
		UserID:        userIDFromMetadata(intent.Metadata),
		PlanType:      planFromMetadata(intent.Metadata),
		AmountCents:   intent.Amount,
		Lifecycle:     recon.LifecycleRejected,
		OccurredAt:    time.Now(),
	}

	result, err := h.engine.Apply(ctx, ev)
	if err != nil {
		return err
	}
	log.Printf("💳 stripe payment failed %s → %s", intent.ID, result.Outcome)
	return nil
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}

func planFromMetadata(md map[string]string) string {
	if md == nil {
		return ""
	}
	return md["plan"]
}
