package billing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freight-app/config"
	"freight-app/database"
	"freight-app/internal/correlate"
	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"
	"freight-app/internal/recon"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	prevSecret := config.JWT_SECRET
	config.JWT_SECRET = "test-secret"
	t.Cleanup(func() { config.JWT_SECRET = prevSecret })

	return db
}

func statusRequest(t *testing.T, h *Handler, session string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/checkout/status", h.CheckoutStatus)

	req := httptest.NewRequest("GET", "/checkout/status?session="+session, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCheckoutStatus_FindsAttempt(t *testing.T) {
	db := setTestDB(t)
	h := NewHandler(&config.Config{SessionTokenTTL: time.Hour}, recon.NewEngine(db, nil), nil, nil)

	user := &users.User{Email: "payer@example.com", Role: "shipper"}
	require.NoError(t, db.Create(user).Error)

	now := time.Now()
	ref := correlate.NewChargeRef(user.ID, plans.TypeMonthly, now)
	require.NoError(t, db.Create(&billing.Payment{
		UserID:          user.ID,
		PlanType:        plans.TypeMonthly,
		Gateway:         billing.GatewayOpenPix,
		GatewayChargeID: ref,
		CorrelationID:   ref,
		AmountCents:     plans.MonthlyPriceCents,
		Status:          billing.StatusPending,
	}).Error)

	session, err := correlate.NewSessionToken(config.JWT_SECRET, user.ID, plans.TypeMonthly, now, time.Hour)
	require.NoError(t, err)

	rr := statusRequest(t, h, session)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), billing.StatusPending)
	assert.Contains(t, rr.Body.String(), billing.GatewayOpenPix)
}

func TestCheckoutStatus_ExpiredSession(t *testing.T) {
	db := setTestDB(t)
	h := NewHandler(&config.Config{SessionTokenTTL: time.Hour}, recon.NewEngine(db, nil), nil, nil)

	session, err := correlate.NewSessionToken(config.JWT_SECRET, 1, plans.TypeMonthly, time.Now(), -time.Minute)
	require.NoError(t, err)

	rr := statusRequest(t, h, session)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "expired")
}

func TestCheckoutStatus_MissingToken(t *testing.T) {
	db := setTestDB(t)
	h := NewHandler(&config.Config{SessionTokenTTL: time.Hour}, recon.NewEngine(db, nil), nil, nil)

	rr := statusRequest(t, h, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckoutStatus_NoMatchingCharge(t *testing.T) {
	db := setTestDB(t)
	h := NewHandler(&config.Config{SessionTokenTTL: time.Hour}, recon.NewEngine(db, nil), nil, nil)

	user := &users.User{Email: "empty@example.com", Role: "shipper"}
	require.NoError(t, db.Create(user).Error)

	session, err := correlate.NewSessionToken(config.JWT_SECRET, user.ID, plans.TypeMonthly, time.Now(), time.Hour)
	require.NoError(t, err)

	rr := statusRequest(t, h, session)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
