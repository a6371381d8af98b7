package repository

import (
	"fmt"
	"strings"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductSort string

const (
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortName      ProductSort = "name"
)

type ProductFilter struct {
	Category      *model.ProductCategory
	Search        string
	Tag           string
	ActiveOnly    bool
	SortBy        ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindWithFilter(filter ProductFilter) ([]model.Product, int64, error)
	FindByID(id uint) (*model.Product, error)
	FindBySlug(slug string) (*model.Product, error)
	Update(product *model.Product) error
	ReplaceOptions(product *model.Product, options []model.CustomizationOption) error
	Delete(id uint) error
	UpdateStock(id uint, quantity int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.Order("customization_options.kind ASC, customization_options.sort_order ASC, customization_options.id ASC")
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"slug":     product.Slug,
		"category": product.Category,
		"options":  len(product.Options),
	})

	// existing option rows are left untouched, only membership rows are inserted
	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
			"slug": product.Slug,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":    filter.Category,
		"search":      filter.Search,
		"tag":         filter.Tag,
		"active_only": filter.ActiveOnly,
		"sort_by":     filter.SortBy,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if filter.ActiveOnly {
		query = query.Where("products.is_active = ?", true)
	}
	if filter.Category != nil {
		query = query.Where("products.category = ?", *filter.Category)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	if filter.Tag != "" {
		// tags are stored in array literal form: {"soy","gift"}
		query = query.Where("products.tags LIKE ?", fmt.Sprintf("%%%s%%", filter.Tag))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err, nil)
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	switch filter.SortBy {
	case ProductSortPrice:
		query = query.Order("products.base_price " + direction)
	case ProductSortName:
		query = query.Order("products.name " + direction)
	default:
		query = query.Order("products.created_at " + direction)
	}
	query = query.Order("products.id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Preload("Options", preloadOptions).Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, nil)
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.db.Preload("Options", preloadOptions).First(&product, id).Error; err != nil {
		logger.Debug("Product lookup by ID failed", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySlug(slug string) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Options", preloadOptions).Where("slug = ?", slug).First(&product).Error; err != nil {
		logger.Debug("Product lookup by slug failed", map[string]interface{}{
			"slug":  slug,
			"error": err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

// Update writes the product's own columns; membership changes go through ReplaceOptions.
func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) ReplaceOptions(product *model.Product, options []model.CustomizationOption) error {
	logger.Debug("Replacing product option membership", map[string]interface{}{
		"product_id": product.ID,
		"options":    len(options),
	})

	if err := r.db.Model(product).Association("Options").Replace(options); err != nil {
		logger.Error("Failed to replace product options", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	product.Options = options
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) UpdateStock(id uint, quantity int) error {
	logger.Debug("Updating product stock", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})

	result := r.db.Model(&model.Product{}).Where("id = ?", id).Update("stock_quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to update product stock", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
