package middleware

import (
	"net/http"
	"time"

	"freight-app/database"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription gates paid features on the entitlement row.
// The expiry re-check mirrors the sweeper's rule, so a lapsed user is shut
// out immediately even if the next sweep hasn't run yet.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
			return
		}

		var user users.User
		if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Subscription not found"})
			return
		}

		if !user.SubscriptionActive {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "An active subscription is required",
			})
			return
		}

		// driver_free never expires; everything else must have a future expiry.
		if user.SubscriptionType == nil || *user.SubscriptionType != plans.TypeDriverFree {
			if user.SubscriptionExpiresAt == nil || time.Now().After(*user.SubscriptionExpiresAt) {
				c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
					"error": "Your subscription has expired",
				})
				return
			}
		}

		c.Next()
	}
}
