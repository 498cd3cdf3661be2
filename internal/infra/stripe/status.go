package stripe

import (
	"strings"

	"freight-app/internal/recon"
)

// LifecycleForPaymentStatus maps a Stripe payment/charge status onto our
// normalized lifecycle vocabulary.
func LifecycleForPaymentStatus(s string) (recon.Lifecycle, bool) {
	switch strings.TrimSpace(s) {
	case "succeeded", "paid", "complete":
		return recon.LifecycleCompleted, true
	case "pending", "processing", "requires_action", "requires_payment_method":
		return recon.LifecyclePending, true
	case "refunded":
		return recon.LifecycleRefunded, true
	case "failed", "canceled":
		return recon.LifecycleRejected, true
	}
	return "", false
}

// PlanIntervalFor maps a local plan type to the Stripe price interval.
func PlanIntervalFor(planType string) string {
	if planType == "annual" {
		return "year"
	}
	return "month"
}
