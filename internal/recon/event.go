package recon

import "time"

// Lifecycle is a gateway charge status normalized into our vocabulary.
// Adapters own the gateway-specific mapping; the engine only ever sees these.
type Lifecycle string

const (
	LifecyclePending   Lifecycle = "pending"
	LifecycleCompleted Lifecycle = "completed"
	LifecycleRefunded  Lifecycle = "refunded"
	LifecycleRejected  Lifecycle = "rejected"
	LifecycleExpired   Lifecycle = "expired"
)

// Event is a normalized payment notification. One shape for every gateway,
// one reconciliation path. UserID is 0 when the adapter could not resolve
// the user itself; the engine then falls back to the correlation reference
// and finally the payer email.
type Event struct {
	Gateway       string
	ChargeID      string
	CorrelationID string
	UserID        uint
	PayerEmail    string
	PlanType      string
	AmountCents   int64
	Lifecycle     Lifecycle
	OccurredAt    time.Time
}

// Outcome tells the adapter what the engine did, mostly for logging and for
// webhook responses. Duplicates and unknown users are outcomes, not errors.
type Outcome string

const (
	OutcomeActivated       Outcome = "activated"
	OutcomePendingRecorded Outcome = "pending_recorded"
	OutcomeRefunded        Outcome = "refunded"
	OutcomeRejectedCharge  Outcome = "rejected"
	OutcomeExpiredCharge   Outcome = "expired"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeUserNotFound    Outcome = "user_not_found"
)

type Result struct {
	Outcome Outcome
	Intents []Intent
}
