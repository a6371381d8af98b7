package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/logger"
	cache "github.com/ikkim/candle-backend/pkg/redis"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProductListOptions struct {
	Category        *model.ProductCategory
	Search          string
	Tag             string
	Sort            repository.ProductSort
	SortAscending   bool
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name          string                `json:"name" binding:"required"`
	Slug          string                `json:"slug"`
	Description   string                `json:"description"`
	BasePrice     float64               `json:"base_price" binding:"gte=0"`
	StockQuantity int                   `json:"stock_quantity" binding:"gte=0"`
	Category      model.ProductCategory `json:"category" binding:"required"`
	ImageURL      string                `json:"image_url"`
	Tags          []string              `json:"tags"`
	IsActive      *bool                 `json:"is_active"`
	OptionIDs     []uint                `json:"option_ids"`
}

// ProductDetail is a product with its soft customization warnings.
type ProductDetail struct {
	*model.Product
	Warnings []string `json:"warnings,omitempty"`
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, int64, error)
	GetProductByID(id uint) (*model.Product, error)
	GetProductBySlug(slug string) (*model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDetail, error)
	UpdateProduct(ctx context.Context, id uint, input ProductInput) (*ProductDetail, error)
	DeleteProduct(ctx context.Context, id uint) error
	AdjustStock(id uint, quantity int) (*model.Product, error)
}

type productService struct {
	productRepo   repository.ProductRepository
	optionRepo    repository.OptionRepository
	customization CustomizationService
	cache         *cache.Client
}

func NewProductService(
	productRepo repository.ProductRepository,
	optionRepo repository.OptionRepository,
	customization CustomizationService,
	cacheClient *cache.Client,
) ProductService {
	return &productService{
		productRepo:   productRepo,
		optionRepo:    optionRepo,
		customization: customization,
		cache:         cacheClient,
	}
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, int64, error) {
	limit, offset := pageBounds(opts.Limit, opts.Offset)

	logger.Debug("Listing products", map[string]interface{}{
		"category": opts.Category,
		"search":   opts.Search,
		"tag":      opts.Tag,
		"sort":     opts.Sort,
		"limit":    limit,
		"offset":   offset,
	})

	products, total, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		Category:      opts.Category,
		Search:        strings.TrimSpace(opts.Search),
		Tag:           strings.TrimSpace(opts.Tag),
		ActiveOnly:    !opts.IncludeInactive,
		SortBy:        opts.Sort,
		SortAscending: opts.SortAscending,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err, nil)
		return nil, 0, apperrors.Internal(err)
	}
	return products, total, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, apperrors.Internal(err)
	}
	return product, nil
}

func (s *productService) GetProductBySlug(slug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return product, nil
}

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *productService) resolveOptions(ids []uint) ([]model.CustomizationOption, error) {
	if len(ids) == 0 {
		return []model.CustomizationOption{}, nil
	}

	unique := make([]uint, 0, len(ids))
	seen := map[uint]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	options, err := s.optionRepo.FindByIDs(unique)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(options) != len(unique) {
		found := map[uint]bool{}
		for _, opt := range options {
			found[opt.ID] = true
		}
		for _, id := range unique {
			if !found[id] {
				return nil, apperrors.FieldValidation(apperrors.CatalogOptionNotFound, "option_ids",
					fmt.Sprintf("option %d does not exist", id))
			}
		}
	}
	return options, nil
}

func (s *productService) applyInput(product *model.Product, input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.FieldValidation(apperrors.ValidationRequired, "name", "name is required")
	}
	if input.BasePrice < 0 {
		return apperrors.FieldValidation(apperrors.ValidationInvalidRange, "base_price", "base_price must not be negative")
	}
	if input.StockQuantity < 0 {
		return apperrors.FieldValidation(apperrors.ValidationInvalidRange, "stock_quantity", "stock_quantity must not be negative")
	}
	if !input.Category.Valid() {
		return apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "category", "category is not recognised")
	}

	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(input.Name)
	}
	if slug == "" {
		return apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "slug", "slug must contain letters or digits")
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Slug = slug
	product.Description = input.Description
	product.BasePrice = input.BasePrice
	product.StockQuantity = input.StockQuantity
	product.Category = input.Category
	product.ImageURL = input.ImageURL
	product.Tags = append([]string{}, input.Tags...)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return nil
}

func (s *productService) detail(product *model.Product) *ProductDetail {
	warnings := s.customization.CustomizableWarnings(product)
	for _, w := range warnings {
		logger.Warn("Product customization warning", map[string]interface{}{
			"product_id": product.ID,
			"warning":    w,
		})
	}
	return &ProductDetail{Product: product, Warnings: warnings}
}

func (s *productService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateOptions(ctx); err != nil {
		logger.Warn("Failed to invalidate options cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*ProductDetail, error) {
	product := &model.Product{IsActive: true}
	if err := s.applyInput(product, input); err != nil {
		return nil, err
	}

	options, err := s.resolveOptions(input.OptionIDs)
	if err != nil {
		return nil, err
	}
	product.Options = options

	logger.Info("Creating product", map[string]interface{}{
		"name":    product.Name,
		"slug":    product.Slug,
		"options": len(options),
	})

	if err := s.productRepo.Create(product); err != nil {
		appErr := apperrors.ParseError(err, "product")
		if appErr.Status == ErrSlugTaken.Status {
			return nil, ErrSlugTaken
		}
		return nil, appErr
	}

	s.invalidate(ctx)
	return s.detail(product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*ProductDetail, error) {
	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(product, input); err != nil {
		return nil, err
	}

	options, err := s.resolveOptions(input.OptionIDs)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(product); err != nil {
		appErr := apperrors.ParseError(err, "product")
		if appErr.Status == ErrSlugTaken.Status {
			return nil, ErrSlugTaken
		}
		return nil, appErr
	}
	if err := s.productRepo.ReplaceOptions(product, options); err != nil {
		logger.Error("Failed to replace product options", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, apperrors.Internal(err)
	}
	product.Options = options

	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
		"options":    len(options),
	})

	s.invalidate(ctx)
	return s.detail(product), nil
}

// DeleteProduct soft deletes, so order snapshots and cart rows stay intact.
func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return apperrors.Internal(err)
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	s.invalidate(ctx)
	return nil
}

func (s *productService) AdjustStock(id uint, quantity int) (*model.Product, error) {
	if quantity < 0 {
		return nil, apperrors.FieldValidation(apperrors.ValidationInvalidRange, "stock_quantity", "stock_quantity must not be negative")
	}
	if err := s.productRepo.UpdateStock(id, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, apperrors.Internal(err)
	}

	logger.Info("Product stock adjusted", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})
	return s.GetProductByID(id)
}
