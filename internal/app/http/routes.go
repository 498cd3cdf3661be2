package routes

import (
	adminapi "freight-app/internal/api/admin"
	authapi "freight-app/internal/api/auth"
	"freight-app/internal/api/billing"
	"freight-app/internal/api/freights"
	mpwebhooks "freight-app/internal/api/mpwebhook"
	openpixwebhooks "freight-app/internal/api/openpixwebhook"
	"freight-app/internal/api/plans"
	stripewebhooks "freight-app/internal/api/stripewebhook"
	"freight-app/internal/api/users"
	"freight-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers collects the stateful handler groups built in main.
type Handlers struct {
	Auth    *authapi.Handler
	Billing *billing.Handler
	Stripe  *stripewebhooks.Handler
	MP      *mpwebhooks.Handler
	OpenPix *openpixwebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	// Webhooks stay outside the sanitizer: payloads are verified by
	// signature or enrichment, never rendered back to a browser.
	r.POST("/webhooks/stripe", h.Stripe.HandleWebhook)
	r.POST("/webhooks/mercadopago", h.MP.HandlePost)
	r.GET("/webhooks/mercadopago", h.MP.HandleGet)
	r.POST("/webhooks/openpix", h.OpenPix.HandlePost)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.GET("/plans", plans.ListPlans)
	public.GET("/verify", users.VerifyEmail)
	public.POST("/resend-verification", h.Auth.ResendVerification)
	public.POST("/request-password-reset", h.Auth.RequestPasswordReset)
	public.POST("/reset-password", h.Auth.ResetPassword)

	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", users.GetCurrentUser)
	auth.POST("/change-password", h.Auth.ChangePassword)

	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.GET("/subscriptions", h.Billing.GetSubscriptionHistory)
	auth.POST("/checkout/stripe", h.Billing.CreateStripeCheckout)
	auth.POST("/checkout/mercadopago", h.Billing.CreateMercadoPagoCheckout)
	auth.POST("/checkout/openpix", h.Billing.CreateOpenPixCharge)
	auth.GET("/checkout/status", h.Billing.CheckoutStatus)
	auth.POST("/billing/sync", h.Billing.ForceSync)
	auth.POST("/billing/simulate", h.Billing.SimulatePayment)

	auth.GET("/freights", freights.ListFreights)
	auth.GET("/freights/mine", freights.ListMyFreights)
	auth.GET("/vehicles", freights.ListVehicles)
	auth.POST("/vehicles", freights.CreateVehicle)
	auth.DELETE("/vehicles/:id", freights.DeleteVehicle)

	// Posting and accepting loads requires an active entitlement.
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription())
	subscribed.POST("/freights", freights.CreateFreight)
	subscribed.PUT("/freights/:id", freights.UpdateFreight)
	subscribed.DELETE("/freights/:id", freights.CancelFreight)
	subscribed.POST("/freights/:id/accept", freights.AcceptFreight)
	subscribed.POST("/freights/:id/status", freights.UpdateFreightStatus)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/stats", adminapi.GetAdminStats)
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/payments", adminapi.ListAllPayments)
	admin.GET("/user/:id", adminapi.GetUserDetails)
	admin.POST("/sync-plans", plans.SyncPlansFromStripe)
	admin.POST("/force-sync", h.Billing.ForceSyncUser)
}
