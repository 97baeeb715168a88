package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// MigrateDB creates or updates the schema for every persisted model.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("setup: cannot migrate database with nil DB connection")
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.ChatMessage{},
		&domain.Execution{},
	)
	if err != nil {
		return fmt.Errorf("setup: auto-migrate schema: %w", err)
	}

	logrus.Info("Database migrated")
	return nil
}
