package admin

import (
	"net/http"
	"time"

	"freight-app/database"
	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type AdminUser struct {
	ID                    uint       `json:"id"`
	Name                  string     `json:"name"`
	Lastname              string     `json:"lastname"`
	Tel                   string     `json:"tel"`
	Email                 string     `json:"email"`
	Role                  string     `json:"role"`
	IsVerified            bool       `json:"is_verified"`
	SubscriptionActive    bool       `json:"subscription_active"`
	SubscriptionType      *string    `json:"subscription_type,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	PaymentRequired       bool       `json:"payment_required"`
	StripeCustomerID      *string    `json:"stripe_customer_id,omitempty"`
}

type AdminPayment struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	PlanType        string `json:"plan_type"`
	Gateway         string `json:"gateway"`
	GatewayChargeID string `json:"gateway_charge_id"`
	AmountCents     int64  `json:"amount_cents"`
	Status          string `json:"status"`
	Processed       bool   `json:"processed"`
	CreatedAt       string `json:"created_at"`
}

type AdminStats struct {
	TotalUsers         int            `json:"total_users"`
	TotalRevenueCents  int64          `json:"total_revenue_cents"`
	RecentRevenueCents int64          `json:"recent_revenue_cents"`
	UsersPerPlan       map[string]int `json:"users_per_plan"`
	PaymentsByStatus   map[string]int `json:"payments_by_status"`
}

func AdminDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the admin dashboard 👑",
	})
}

func ListAllUsers(c *gin.Context) {
	var rows []users.User
	err := database.DB.Order("created_at DESC").Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var adminUsers []AdminUser
	for _, u := range rows {
		adminUsers = append(adminUsers, AdminUser{
			ID:                    u.ID,
			Name:                  u.Name,
			Lastname:              u.Lastname,
			Tel:                   u.Tel,
			Email:                 u.Email,
			Role:                  u.Role,
			IsVerified:            u.IsVerified,
			SubscriptionActive:    u.SubscriptionActive,
			SubscriptionType:      u.SubscriptionType,
			SubscriptionExpiresAt: u.SubscriptionExpiresAt,
			PaymentRequired:       u.PaymentRequired,
			StripeCustomerID:      u.StripeCustomerID,
		})
	}

	c.JSON(http.StatusOK, adminUsers)
}

func ListAllPayments(c *gin.Context) {
	var payments []billing.Payment
	err := database.DB.Order("created_at DESC").Limit(500).Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	emails := map[uint]string{}
	var result []AdminPayment
	for _, p := range payments {
		email, ok := emails[p.UserID]
		if !ok && p.UserID != 0 {
			var u users.User
			if err := database.DB.Select("email").First(&u, p.UserID).Error; err == nil {
				email = u.Email
			}
			emails[p.UserID] = email
		}
		result = append(result, AdminPayment{
			ID:              p.ID,
			Email:           email,
			PlanType:        p.PlanType,
			Gateway:         p.Gateway,
			GatewayChargeID: p.GatewayChargeID,
			AmountCents:     p.AmountCents,
			Status:          p.Status,
			Processed:       p.Processed,
			CreatedAt:       p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

func GetAdminStats(c *gin.Context) {
	var stats AdminStats

	var totalUsers int64
	var totalRevenue int64
	var recentRevenue int64

	database.DB.Model(&users.User{}).Count(&totalUsers)
	database.DB.Model(&billing.Payment{}).
		Where("status = ?", billing.StatusCompleted).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&totalRevenue)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&billing.Payment{}).
		Where("status = ? AND created_at >= ?", billing.StatusCompleted, thirtyDaysAgo).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&recentRevenue)

	stats.TotalUsers = int(totalUsers)
	stats.TotalRevenueCents = totalRevenue
	stats.RecentRevenueCents = recentRevenue

	type groupCount struct {
		Key   *string
		Count int
	}

	var planCounts []groupCount
	database.DB.
		Table("users").
		Select("subscription_type as key, COUNT(id) as count").
		Where("subscription_active = ?", true).
		Group("subscription_type").
		Scan(&planCounts)

	stats.UsersPerPlan = map[string]int{}
	for _, pc := range planCounts {
		name := "none"
		if pc.Key != nil {
			name = *pc.Key
		}
		stats.UsersPerPlan[name] = pc.Count
	}

	var statusCounts []groupCount
	database.DB.
		Table("payments").
		Select("status as key, COUNT(id) as count").
		Group("status").
		Scan(&statusCounts)

	stats.PaymentsByStatus = map[string]int{}
	for _, sc := range statusCounts {
		if sc.Key != nil {
			stats.PaymentsByStatus[*sc.Key] = sc.Count
		}
	}

	c.JSON(http.StatusOK, stats)
}

func GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var payments []billing.Payment
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	var records []billing.SubscriptionRecord
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"payments":      payments,
		"subscriptions": records,
	})
}
