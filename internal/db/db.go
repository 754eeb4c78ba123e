package db

import (
	"fmt"
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the PostgreSQL connection, retrying a few times to let the
// database come up first.
func Connect(dsn string) (*gorm.DB, error) {
	var conn *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return conn, nil
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("database connection failed: %w", err)
}

// Migrate applies the GORM schema migrations for all models.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Project{},
		&models.Task{},
		&models.ChecklistItem{},
		&models.TaskComment{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceEmail{},
		&models.InvoiceSequence{},
	); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	return nil
}
