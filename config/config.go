package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string
)

// Config carries everything the billing core and its adapters need.
// Built once in main and passed down explicitly; gateway and notification
// settings are never read back from globals after startup.
type Config struct {
	AppEnv string
	AppURL string

	StripeSecretKey     string
	StripeWebhookSecret string

	MercadoPagoBaseURL     string
	MercadoPagoAccessToken string

	OpenPixBaseURL string
	OpenPixAppID   string

	SMTPFrom     string
	SMTPPassword string
	SMTPHost     string
	SMTPPort     string

	WhatsAppAPIURL string
	WhatsAppAPIKey string

	SweepInterval   time.Duration
	SweepOnStartup  bool
	TrialDays       int
	SessionTokenTTL time.Duration
}

func LoadEnv() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = getEnv("DB_URL", "")
	JWT_SECRET = mustEnv("JWT_SECRET")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		AppURL: getEnv("APP_URL", "http://localhost:5173"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		MercadoPagoBaseURL:     getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		MercadoPagoAccessToken: getEnv("MP_ACCESS_TOKEN", ""),

		OpenPixBaseURL: getEnv("OPENPIX_BASE_URL", "https://api.openpix.com.br"),
		OpenPixAppID:   getEnv("OPENPIX_APP_ID", ""),

		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),

		WhatsAppAPIURL: getEnv("WHATSAPP_API_URL", ""),
		WhatsAppAPIKey: getEnv("WHATSAPP_API_KEY", ""),

		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 6*time.Hour),
		SweepOnStartup:  getEnvBool("SWEEP_ON_STARTUP", true),
		TrialDays:       getEnvInt("TRIAL_DAYS", 14),
		SessionTokenTTL: getEnvDuration("SESSION_TOKEN_TTL", time.Hour),
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
