package db

import (
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models is every table the storefront owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.CustomizationOption{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate creates or updates the schema and seeds the default option catalog.
func Migrate(gdb *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := gdb.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedOptions(gdb); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// DefaultOptions is the starter catalog installed into an empty database.
func DefaultOptions() []model.CustomizationOption {
	return []model.CustomizationOption{
		{Kind: model.OptionKindScent, Name: "Lavender Fields", Notes: []string{"lavender", "chamomile"}, Available: true, InStock: true, AdditionalPrice: 0, SortOrder: 1},
		{Kind: model.OptionKindScent, Name: "Cedar & Smoke", Notes: []string{"cedarwood", "vetiver", "smoke"}, Available: true, InStock: true, AdditionalPrice: 2.00, SortOrder: 2},
		{Kind: model.OptionKindScent, Name: "Vanilla Bean", Notes: []string{"vanilla", "tonka"}, Available: true, InStock: true, AdditionalPrice: 1.00, SortOrder: 3},
		{Kind: model.OptionKindScent, Name: "Sea Salt & Sage", Notes: []string{"sea salt", "sage"}, Available: true, InStock: true, AdditionalPrice: 2.00, SortOrder: 4},
		{Kind: model.OptionKindColor, Name: "Ivory", HexCode: "#FFFFF0", Available: true, InStock: true, AdditionalPrice: 0, SortOrder: 1},
		{Kind: model.OptionKindColor, Name: "Charcoal", HexCode: "#36454F", Available: true, InStock: true, AdditionalPrice: 1.50, SortOrder: 2},
		{Kind: model.OptionKindColor, Name: "Blush", HexCode: "#DE5D83", Available: true, InStock: true, AdditionalPrice: 1.50, SortOrder: 3},
		{Kind: model.OptionKindSize, Name: "Small (4 oz)", BurnTimeHours: 25, Available: true, InStock: true, AdditionalPrice: 0, SortOrder: 1},
		{Kind: model.OptionKindSize, Name: "Medium (8 oz)", BurnTimeHours: 50, Available: true, InStock: true, AdditionalPrice: 3.00, SortOrder: 2},
		{Kind: model.OptionKindSize, Name: "Large (16 oz)", BurnTimeHours: 90, Available: true, InStock: true, AdditionalPrice: 8.00, SortOrder: 3},
	}
}

// SeedOptions inserts DefaultOptions when the options table is empty.
func SeedOptions(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&model.CustomizationOption{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Customization options already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	options := DefaultOptions()
	if err := gdb.Create(&options).Error; err != nil {
		logger.Error("Failed to seed customization options", err)
		return err
	}

	logger.Info("Customization options seeded successfully", map[string]interface{}{
		"total_records": len(options),
	})
	return nil
}
