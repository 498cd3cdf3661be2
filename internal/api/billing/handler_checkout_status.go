package billing

import (
	"errors"
	"net/http"

	"freight-app/config"
	"freight-app/database"
	"freight-app/internal/correlate"
	"freight-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// CheckoutStatus reports where a charge attempt stands. The frontend calls
// it after the gateway redirects back, presenting the session token issued
// at checkout; the attempt is located by decoding ledger correlation
// references, never by trusting a client-supplied charge id.
func (h *Handler) CheckoutStatus(c *gin.Context) {
	tokenString := c.Query("session")
	if tokenString == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session token"})
		return
	}

	ref, err := correlate.ParseSessionToken(config.JWT_SECRET, tokenString)
	if err != nil {
		if errors.Is(err, correlate.ErrExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Payment session expired"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session token"})
		return
	}

	var rows []billing.Payment
	if err := database.DB.
		Where("user_id = ?", ref.UserID).
		Order("created_at DESC").Limit(20).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	for _, row := range rows {
		chargeRef, err := correlate.ParseChargeRef(row.CorrelationID)
		if err != nil {
			continue
		}
		if !correlate.SameAttempt(ref, chargeRef) {
			continue
		}
		c.JSON(http.StatusOK, gin.H{
			"gateway":   row.Gateway,
			"status":    row.Status,
			"processed": row.Processed,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "No charge found for this session"})
}
