package recon

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"freight-app/internal/correlate"
	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"

	"gorm.io/gorm"
)

var ErrInvalidEvent = errors.New("recon: event missing gateway, charge id or lifecycle")

// Engine applies normalized payment events to the entitlement, the ledger
// and the subscription history as one idempotent transition. It is the only
// writer of those rows during a payment transition; the sweeper is the only
// other component allowed to deactivate, and only on time.
type Engine struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	now        func() time.Time
}

func NewEngine(db *gorm.DB, dispatcher *Dispatcher) *Engine {
	return &Engine{db: db, dispatcher: dispatcher, now: time.Now}
}

// WithClock overrides the engine clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Apply runs the state transition for one event. Duplicates, late
// deliveries and unknown users come back as outcomes, not errors: webhook
// retries are the gateway's recovery mechanism, and erroring a replay only
// causes retry storms.
func (e *Engine) Apply(ctx context.Context, ev Event) (Result, error) {
	if ev.Gateway == "" || ev.ChargeID == "" || ev.Lifecycle == "" {
		return Result{}, ErrInvalidEvent
	}
	now := e.now()

	user, ok := e.resolveUser(ctx, ev)
	if !ok {
		// Accept and stop: ledger row (if any) is flagged, entitlement untouched.
		e.markUserNotFound(ctx, ev)
		return Result{Outcome: OutcomeUserNotFound}, nil
	}

	planType := e.resolvePlan(ev)

	var (
		result Result
		err    error
	)
	switch ev.Lifecycle {
	case LifecyclePending:
		result, err = e.recordPending(ctx, ev, user, planType)
	case LifecycleCompleted:
		result, err = e.applyCompleted(ctx, ev, user, planType, now)
	case LifecycleRefunded:
		result, err = e.applyRefunded(ctx, ev, user, now)
	case LifecycleRejected:
		result, err = e.applyClosed(ctx, ev, user, planType, billing.StatusRejected, OutcomeRejectedCharge)
	case LifecycleExpired:
		result, err = e.applyClosed(ctx, ev, user, planType, billing.StatusExpired, OutcomeExpiredCharge)
	default:
		return Result{}, ErrInvalidEvent
	}
	if err != nil {
		return Result{}, err
	}

	e.dispatcher.Dispatch(result.Intents)
	return result, nil
}

// resolveUser follows the precedence: adapter-resolved id, then the
// correlation reference, then the payer email.
func (e *Engine) resolveUser(ctx context.Context, ev Event) (*users.User, bool) {
	var user users.User

	if ev.UserID != 0 {
		if err := e.db.WithContext(ctx).Where("id = ?", ev.UserID).First(&user).Error; err == nil {
			return &user, true
		}
	}
	if ref, err := correlate.ParseChargeRef(ev.CorrelationID); err == nil {
		if err := e.db.WithContext(ctx).Where("id = ?", ref.UserID).First(&user).Error; err == nil {
			return &user, true
		}
	}
	if ev.PayerEmail != "" {
		if err := e.db.WithContext(ctx).Where("email = ?", ev.PayerEmail).First(&user).Error; err == nil {
			return &user, true
		}
	}
	return nil, false
}

func (e *Engine) resolvePlan(ev Event) string {
	if plans.IsValidType(ev.PlanType) {
		return plans.NormalizeType(ev.PlanType)
	}
	if ref, err := correlate.ParseChargeRef(ev.CorrelationID); err == nil {
		return ref.PlanType
	}
	if ev.AmountCents > 0 {
		return plans.TypeForAmount(ev.AmountCents)
	}
	return plans.TypeMonthly
}

// findLedgerEntry locates the attempt row: the gateway charge id is
// primary, the correlation reference secondary. The fallback covers
// gateways whose creation-time id differs from the notification-time id
// (Mercado Pago preference vs payment): a second charge id decoding to the
// same correlation is the same attempt on a duplicate channel.
func (e *Engine) findLedgerEntry(tx *gorm.DB, ev Event) (*billing.Payment, error) {
	var entry billing.Payment
	err := tx.Where("gateway = ? AND gateway_charge_id = ?", ev.Gateway, ev.ChargeID).First(&entry).Error
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if ev.CorrelationID == "" {
		return nil, nil
	}
	err = tx.Where("gateway = ? AND correlation_id = ?", ev.Gateway, ev.CorrelationID).
		Order("id").First(&entry).Error
	if err == nil {
		return &entry, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (e *Engine) recordPending(ctx context.Context, ev Event, user *users.User, planType string) (Result, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := e.findLedgerEntry(tx, ev)
		if err != nil {
			return err
		}
		if entry != nil {
			return nil // already on file, nothing to update yet
		}
		return tx.Create(&billing.Payment{
			UserID:          user.ID,
			PlanType:        planType,
			Gateway:         ev.Gateway,
			GatewayChargeID: ev.ChargeID,
			CorrelationID:   ev.CorrelationID,
			AmountCents:     ev.AmountCents,
			Status:          billing.StatusPending,
		}).Error
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomePendingRecorded}, nil
}

func (e *Engine) applyCompleted(ctx context.Context, ev Event, user *users.User, planType string, now time.Time) (Result, error) {
	outcome := OutcomeDuplicate
	var intents []Intent

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := e.findLedgerEntry(tx, ev)
		if err != nil {
			return err
		}
		if entry == nil {
			entry = &billing.Payment{
				UserID:          user.ID,
				PlanType:        planType,
				Gateway:         ev.Gateway,
				GatewayChargeID: ev.ChargeID,
				CorrelationID:   ev.CorrelationID,
				AmountCents:     ev.AmountCents,
				Status:          billing.StatusPending,
			}
			if createErr := tx.Create(entry).Error; createErr != nil {
				// Unique index hit: a concurrent delivery created the row
				// first. Reload it and let the guard below decide.
				var existing billing.Payment
				if err := tx.Where("gateway = ? AND gateway_charge_id = ?", ev.Gateway, ev.ChargeID).
					First(&existing).Error; err != nil {
					return createErr
				}
				entry = &existing
			}
		}

		if entry.Status == billing.StatusRefunded {
			return nil // terminal: a refunded charge never reactivates
		}

		amount := entry.AmountCents
		if ev.AmountCents > 0 {
			amount = ev.AmountCents
		}

		// The idempotency guard. A conditional update on processed=false:
		// of two concurrent deliveries only one flips the flag, the loser
		// sees zero rows and exits as a no-op.
		claim := tx.Model(&billing.Payment{}).
			Where("id = ? AND processed = ? AND status <> ?", entry.ID, false, billing.StatusRefunded).
			Updates(map[string]interface{}{
				"processed":              true,
				"subscription_activated": true,
				"status":                 billing.StatusCompleted,
				"paid_at":                now,
				"user_id":                user.ID,
				"plan_type":              planType,
				"amount_cents":           amount,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		// Expiry always resets to now + duration; renewals do not stack.
		expiresAt := now.AddDate(0, 0, plans.DurationDaysFor(planType))
		if err := tx.Model(&users.User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"subscription_active":     true,
				"subscription_type":       planType,
				"subscription_expires_at": expiresAt,
				"payment_required":        false,
				"refunded_at":             nil,
			}).Error; err != nil {
			return err
		}

		// At most one active record per user: supersede before inserting.
		if err := tx.Model(&billing.SubscriptionRecord{}).
			Where("user_id = ? AND status = ?", user.ID, billing.SubStatusActive).
			Update("status", billing.SubStatusCanceled).Error; err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]string{"gateway": ev.Gateway, "charge_id": ev.ChargeID})
		if err := tx.Create(&billing.SubscriptionRecord{
			UserID:             user.ID,
			Status:             billing.SubStatusActive,
			PlanType:           planType,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   expiresAt,
			Metadata:           string(meta),
		}).Error; err != nil {
			return err
		}

		outcome = OutcomeActivated
		intents = append(intents, Intent{
			Kind:        IntentPaymentConfirmed,
			UserID:      user.ID,
			Email:       user.Email,
			Phone:       user.Tel,
			PlanType:    planType,
			AmountCents: amount,
		})
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: outcome, Intents: intents}, nil
}

func (e *Engine) applyRefunded(ctx context.Context, ev Event, user *users.User, now time.Time) (Result, error) {
	outcome := OutcomeRefunded
	var intents []Intent

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := e.findLedgerEntry(tx, ev)
		if err != nil {
			return err
		}
		if entry != nil && entry.Status == billing.StatusRefunded {
			outcome = OutcomeDuplicate
			return nil
		}

		if err := tx.Model(&users.User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"subscription_active":     false,
				"subscription_type":       nil,
				"subscription_expires_at": nil,
				"refunded_at":             now,
			}).Error; err != nil {
			return err
		}

		// Lenient on the ledger: a refund with no local row still
		// deactivates, and the row is created so terminality survives a
		// late completed delivery for the same charge.
		if entry != nil {
			if err := tx.Model(&billing.Payment{}).Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"status":      billing.StatusRefunded,
					"refunded_at": now,
				}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&billing.Payment{
				UserID:          user.ID,
				Gateway:         ev.Gateway,
				GatewayChargeID: ev.ChargeID,
				CorrelationID:   ev.CorrelationID,
				AmountCents:     ev.AmountCents,
				Status:          billing.StatusRefunded,
				RefundedAt:      &now,
			}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&billing.SubscriptionRecord{}).
			Where("user_id = ? AND status = ?", user.ID, billing.SubStatusActive).
			Update("status", billing.SubStatusCanceled).Error; err != nil {
			return err
		}

		intents = append(intents, Intent{
			Kind:   IntentSubscriptionCanceled,
			UserID: user.ID,
			Email:  user.Email,
			Phone:  user.Tel,
		})
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: outcome, Intents: intents}, nil
}

// applyClosed records a charge that died without being paid: rejected by
// the gateway or expired unpaid. Entitlement is never touched either way.
func (e *Engine) applyClosed(ctx context.Context, ev Event, user *users.User, planType, status string, outcome Outcome) (Result, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := e.findLedgerEntry(tx, ev)
		if err != nil {
			return err
		}
		if entry == nil {
			return tx.Create(&billing.Payment{
				UserID:          user.ID,
				PlanType:        planType,
				Gateway:         ev.Gateway,
				GatewayChargeID: ev.ChargeID,
				CorrelationID:   ev.CorrelationID,
				AmountCents:     ev.AmountCents,
				Status:          status,
			}).Error
		}
		// Never downgrade a processed or refunded row; the user keeps
		// whatever entitlement they had before this charge.
		return tx.Model(&billing.Payment{}).
			Where("id = ? AND processed = ? AND status NOT IN ?", entry.ID, false,
				[]string{billing.StatusRefunded, billing.StatusCompleted}).
			Update("status", status).Error
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: outcome}, nil
}

// markUserNotFound flags an existing ledger row when a notification cannot
// be mapped to any user. No row, no write: the event is dropped on purpose.
func (e *Engine) markUserNotFound(ctx context.Context, ev Event) {
	_ = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := e.findLedgerEntry(tx, ev)
		if err != nil || entry == nil {
			return err
		}
		return tx.Model(&billing.Payment{}).
			Where("id = ? AND processed = ?", entry.ID, false).
			Update("status", billing.StatusUserNotFound).Error
	})
}
