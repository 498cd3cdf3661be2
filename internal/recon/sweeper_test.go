package recon

import (
	"context"
	"testing"
	"time"

	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSubscribed(t *testing.T, db *gorm.DB, email, planType string, expiresAt *time.Time) *users.User {
	t.Helper()
	user := &users.User{
		Email:                 email,
		Role:                  "shipper",
		SubscriptionActive:    true,
		SubscriptionType:      &planType,
		SubscriptionExpiresAt: expiresAt,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&billing.SubscriptionRecord{
		UserID:   user.ID,
		Status:   billing.SubStatusActive,
		PlanType: planType,
	}).Error)
	return user
}

func TestSweeper_DowngradesExpired(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 10)
	expired := seedSubscribed(t, db, "expired@example.com", plans.TypeMonthly, &past)
	current := seedSubscribed(t, db, "current@example.com", plans.TypeMonthly, &future)

	sweeper := NewSweeper(db, time.Hour, plans.TrialDays).WithClock(fixedClock(now))
	n, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got users.User
	require.NoError(t, db.First(&got, expired.ID).Error)
	assert.False(t, got.SubscriptionActive)
	assert.True(t, got.PaymentRequired)

	var record billing.SubscriptionRecord
	require.NoError(t, db.Where("user_id = ?", expired.ID).First(&record).Error)
	assert.Equal(t, billing.SubStatusExpired, record.Status)

	got = users.User{}
	require.NoError(t, db.First(&got, current.ID).Error)
	assert.True(t, got.SubscriptionActive)
	assert.False(t, got.PaymentRequired)
}

func TestSweeper_DriverFreeNeverExpires(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	driver := seedSubscribed(t, db, "driver@example.com", plans.TypeDriverFree, nil)

	sweeper := NewSweeper(db, time.Hour, plans.TrialDays).WithClock(fixedClock(now))
	n, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var got users.User
	require.NoError(t, db.First(&got, driver.ID).Error)
	assert.True(t, got.SubscriptionActive)
}

func TestSweeper_LegacyRowFallsBackToTrialWindow(t *testing.T) {
	db := newTestDB(t)
	planType := plans.TypeTrial

	// No explicit expiry: created_at + trial days decides.
	stale := &users.User{
		Email:              "legacy@example.com",
		Role:               "shipper",
		SubscriptionActive: true,
		SubscriptionType:   &planType,
	}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Model(stale).
		Update("created_at", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).Error)

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	sweeper := NewSweeper(db, time.Hour, plans.TrialDays).WithClock(fixedClock(now))
	n, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got users.User
	require.NoError(t, db.First(&got, stale.ID).Error)
	assert.False(t, got.SubscriptionActive)
}

func TestSweeper_PaymentDuringSweepWins(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	past := now.AddDate(0, 0, -1)
	user := seedSubscribed(t, db, "racing@example.com", plans.TypeMonthly, &past)

	// A payment lands after the sweeper read the candidate list.
	fresh := now.AddDate(0, 0, 30)
	require.NoError(t, db.Model(&users.User{}).Where("id = ?", user.ID).
		Update("subscription_expires_at", fresh).Error)

	sweeper := NewSweeper(db, time.Hour, plans.TrialDays).WithClock(fixedClock(now))
	require.NoError(t, sweeper.downgrade(context.Background(), user.ID, now))

	var got users.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.True(t, got.SubscriptionActive)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewSweeper(db, time.Hour, plans.TrialDays)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, false)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
