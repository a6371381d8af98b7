package repository

import (
	"testing"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createOption(t *testing.T, testDB *gorm.DB, kind model.OptionKind, name string, price float64) *model.CustomizationOption {
	t.Helper()
	opt := &model.CustomizationOption{Kind: kind, Name: name, Available: true, InStock: true, AdditionalPrice: price}
	require.NoError(t, testDB.Create(opt).Error)
	return opt
}

func createProduct(t *testing.T, testDB *gorm.DB, slug string, price float64, stock int, options ...model.CustomizationOption) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          "Candle " + slug,
		Slug:          slug,
		BasePrice:     price,
		StockQuantity: stock,
		Category:      model.CategoryJar,
		IsActive:      true,
		Options:       options,
	}
	require.NoError(t, NewProductRepository(testDB).Create(product))
	return product
}
