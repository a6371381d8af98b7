package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type ProductController struct {
	productService       service.ProductService
	customizationService service.CustomizationService
}

func NewProductController(
	productService service.ProductService,
	customizationService service.CustomizationService,
) *ProductController {
	return &ProductController{
		productService:       productService,
		customizationService: customizationService,
	}
}

// ListProducts returns active products
// GET /api/v1/products?category=&search=&tag=&sort=price|name|created_at&order=asc&limit=&offset=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		fail(c, err)
		return
	}

	opts := service.ProductListOptions{
		Search:        c.Query("search"),
		Tag:           c.Query("tag"),
		Sort:          repository.ProductSort(c.Query("sort")),
		SortAscending: c.Query("order") == "asc",
		Limit:         limit,
		Offset:        offset,
	}
	if raw := c.Query("category"); raw != "" {
		category := model.ProductCategory(raw)
		if !category.Valid() {
			fail(c, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "category", "category is not recognised"))
			return
		}
		opts.Category = &category
	}

	products, total, err := ctrl.productService.ListProducts(opts)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"count":    len(products),
	})
}

// GetProduct returns an active product by numeric id or slug
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	ref := c.Param("id")

	var (
		product *model.Product
		err     error
	)
	if id, parseErr := strconv.ParseUint(ref, 10, 32); parseErr == nil {
		product, err = ctrl.productService.GetProductByID(uint(id))
	} else {
		product, err = ctrl.productService.GetProductBySlug(ref)
	}
	if err != nil {
		fail(c, err)
		return
	}
	if !product.IsActive {
		fail(c, service.ErrProductNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// GetCustomizationOptions returns the product's selectable options by kind
// GET /api/v1/products/:id/customization-options
func (ctrl *ProductController) GetCustomizationOptions(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	options, err := ctrl.customizationService.AvailableOptions(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    options,
	})
}

// ValidateCustomization checks a combination and quotes its unit price. An
// invalid combination is a normal 200 answer with isValid false.
// POST /api/v1/products/:id/validate-customization
func (ctrl *ProductController) ValidateCustomization(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var input service.CustomizationInput
	if err := bindJSON(c, &input); err != nil {
		fail(c, err)
		return
	}

	result, err := ctrl.customizationService.ValidateAndPrice(id, input)
	if err != nil {
		appErr := apperrors.As(err)
		if appErr.Status != http.StatusBadRequest {
			fail(c, err)
			return
		}
		log.Debug("Customization rejected", map[string]interface{}{
			"product_id": id,
			"code":       appErr.Code,
			"field":      appErr.Field(),
		})
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"isValid":  false,
			"is_valid": false,
			"message":  appErr.Message,
			"field":    appErr.Field(),
			"price":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"isValid":       true,
		"is_valid":      true,
		"message":       "Customization is valid",
		"price":         result.Price,
		"customization": result.Snapshot,
	})
}
