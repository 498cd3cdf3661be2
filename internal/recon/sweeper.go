package recon

import (
	"context"
	"log"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"

	"gorm.io/gorm"
)

// Sweeper periodically downgrades entitlements whose expiry has lapsed.
// It is the only component allowed to deactivate purely on time; payment
// events always go through the engine. Safe to overlap with the engine:
// it only touches rows whose expiry was already past at read time, and the
// per-row update re-checks the expiry, so a payment landing mid-sweep wins.
type Sweeper struct {
	db        *gorm.DB
	interval  time.Duration
	trialDays int
	now       func() time.Time
}

func NewSweeper(db *gorm.DB, interval time.Duration, trialDays int) *Sweeper {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if trialDays <= 0 {
		trialDays = plans.TrialDays
	}
	return &Sweeper{db: db, interval: interval, trialDays: trialDays, now: time.Now}
}

// WithClock overrides the sweeper clock. Tests only.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run blocks until ctx is cancelled. When immediate is true the first pass
// happens right away instead of one interval in.
func (s *Sweeper) Run(ctx context.Context, immediate bool) {
	log.Printf("🧹 expiration sweeper started (interval %s)", s.interval)

	if immediate {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🧹 expiration sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		log.Println("❌ sweep failed:", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 sweep downgraded %d expired subscription(s)", n)
	}
}

// SweepOnce scans active, non-permanent entitlements and downgrades every
// one already past its expiry. Legacy rows without an explicit expiry fall
// back to created_at + trial days. A failure on one row never aborts the
// rest of the pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()

	var candidates []users.User
	err := s.db.WithContext(ctx).
		Where("subscription_active = ? AND (subscription_type IS NULL OR subscription_type <> ?)",
			true, plans.TypeDriverFree).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for _, user := range candidates {
		expiry := user.SubscriptionExpiresAt
		if expiry == nil {
			fallback := user.CreatedAt.AddDate(0, 0, s.trialDays)
			expiry = &fallback
		}
		if !expiry.Before(now) {
			continue
		}

		if err := s.downgrade(ctx, user.ID, now); err != nil {
			log.Printf("❌ sweep: failed to downgrade user %d: %v", user.ID, err)
			continue
		}
		downgraded++
	}
	return downgraded, nil
}

func (s *Sweeper) downgrade(ctx context.Context, userID uint, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check expiry inside the update so a fresh activation written
		// between read and write is left alone.
		res := tx.Model(&users.User{}).
			Where("id = ? AND subscription_active = ? AND (subscription_expires_at IS NULL OR subscription_expires_at < ?)",
				userID, true, now).
			Updates(map[string]interface{}{
				"subscription_active": false,
				"payment_required":    true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&billing.SubscriptionRecord{}).
			Where("user_id = ? AND status = ?", userID, billing.SubStatusActive).
			Update("status", billing.SubStatusExpired).Error
	})
}
