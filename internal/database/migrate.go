package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/cuistot-app/backend/internal/models"
)

// Migrate brings the schema up to date via GORM auto-migration.
func Migrate(db *gorm.DB) error {
	log.Printf("[Database] Running migrations")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Chat{},
		&models.Recipe{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[Database] Migrations complete")
	return nil
}
