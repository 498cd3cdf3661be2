package database

import (
	"fmt"
	"log"
	"os"

	"freight-app/internal/domain/billing"
	"freight-app/internal/domain/freight"
	"freight-app/internal/domain/plans"
	"freight-app/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")

	var (
		db  *gorm.DB
		err error
	)
	if dsn == "" {
		// Local development fallback
		log.Println("DB_URL not set, using local SQLite database")
		db, err = gorm.Open(sqlite.Open("freight-app.db"), &gorm.Config{})
	} else {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if dsn != "" {
		// ✅ REQUIRED for UUID generation
		if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
			log.Fatal("❌ Failed to enable pgcrypto extension:", err)
		}
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}

// Migrate creates/updates all domain tables. Split out so tests can run it
// against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// core
		&users.User{},
		&users.VerificationToken{},
		&plans.Plan{},

		// billing
		&billing.Payment{},
		&billing.SubscriptionRecord{},

		// freight
		&freight.Freight{},
		&freight.Vehicle{},
		&freight.DriverProfile{},
	)
}
