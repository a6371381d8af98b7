package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database with the full schema and
// no seed data.
func SetupTestDB() (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	// each new connection would get its own empty :memory: database
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := gdb.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return gdb, nil
}

// CleanupTestDB closes the test database
func CleanupTestDB(gdb *gorm.DB) {
	if err := Close(gdb); err != nil {
		log.Printf("Failed to close test database: %v", err)
	}
}

// TruncateAllTables removes all rows, children first.
func TruncateAllTables(gdb *gorm.DB) error {
	tables := []string{"order_items", "orders", "cart_items", "carts", "product_options", "products", "customization_options", "users"}
	for _, table := range tables {
		if err := gdb.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
