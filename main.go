package main

import (
	"context"
	"os"
	"time"

	"freight-app/config"
	"freight-app/database"
	authapi "freight-app/internal/api/auth"
	"freight-app/internal/api/billing"
	mpwebhooks "freight-app/internal/api/mpwebhook"
	openpixwebhooks "freight-app/internal/api/openpixwebhook"
	stripewebhooks "freight-app/internal/api/stripewebhook"
	routes "freight-app/internal/app/http"
	"freight-app/internal/infra/mercadopago"
	"freight-app/internal/infra/notify"
	"freight-app/internal/infra/openpix"
	"freight-app/internal/recon"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	cfg := config.LoadEnv()
	database.InitDB()
	stripe.Key = cfg.StripeSecretKey

	mailer := notify.NewMailer(cfg.SMTPFrom, cfg.SMTPPassword, cfg.SMTPHost, cfg.SMTPPort, cfg.AppURL)
	var whatsapp recon.WhatsAppSender
	if cfg.WhatsAppAPIURL != "" {
		whatsapp = notify.NewWhatsAppNotifier(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey)
	}
	dispatcher := &recon.Dispatcher{Mailer: mailer, WhatsApp: whatsapp}

	engine := recon.NewEngine(database.DB, dispatcher)
	mpClient := mercadopago.NewClient(cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken)
	opClient := openpix.NewClient(cfg.OpenPixBaseURL, cfg.OpenPixAppID)

	handlers := &routes.Handlers{
		Auth:    authapi.NewHandler(cfg, mailer),
		Billing: billing.NewHandler(cfg, engine, mpClient, opClient),
		Stripe:  stripewebhooks.NewHandler(cfg, engine),
		MP:      mpwebhooks.NewHandler(mpClient, engine),
		OpenPix: openpixwebhooks.NewHandler(engine),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := recon.NewSweeper(database.DB, cfg.SweepInterval, cfg.TrialDays)
	go sweeper.Run(ctx, cfg.SweepOnStartup)

	r := gin.Default()

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, handlers)

	r.Run(":" + config.PORT)
}
