package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
)

// OrderFeed attaches an admin connection to the live order feed.
// *websocket.Hub satisfies it.
type OrderFeed interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uint) error
}

type AdminController struct {
	optionService  service.OptionService
	productService service.ProductService
	orderService   service.OrderService
	feed           OrderFeed
}

func NewAdminController(
	optionService service.OptionService,
	productService service.ProductService,
	orderService service.OrderService,
	feed OrderFeed,
) *AdminController {
	return &AdminController{
		optionService:  optionService,
		productService: productService,
		orderService:   orderService,
		feed:           feed,
	}
}

type StockRequest struct {
	StockQuantity *int `json:"stock_quantity" binding:"required"`
}

// ==================== Options ====================

// ListOptions GET /api/v1/admin/options?kind=scent|color|size
func (ctrl *AdminController) ListOptions(c *gin.Context) {
	var kind *model.OptionKind
	if raw := c.Query("kind"); raw != "" {
		k := model.OptionKind(raw)
		kind = &k
	}

	options, err := ctrl.optionService.ListOptions(kind)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"options": options,
		"count":   len(options),
	})
}

// GetOption GET /api/v1/admin/options/:id
func (ctrl *AdminController) GetOption(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	option, err := ctrl.optionService.GetOption(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"option": option})
}

// CreateOption POST /api/v1/admin/options
func (ctrl *AdminController) CreateOption(c *gin.Context) {
	var req service.OptionInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	option, err := ctrl.optionService.CreateOption(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"option": option})
}

// UpdateOption PUT /api/v1/admin/options/:id
func (ctrl *AdminController) UpdateOption(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req service.OptionInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	option, err := ctrl.optionService.UpdateOption(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"option": option})
}

// DeleteOption DELETE /api/v1/admin/options/:id
func (ctrl *AdminController) DeleteOption(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	if err := ctrl.optionService.DeleteOption(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Option deleted"})
}

// ==================== Products ====================

// ListProducts includes inactive products
// GET /api/v1/admin/products
func (ctrl *AdminController) ListProducts(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		fail(c, err)
		return
	}

	products, total, err := ctrl.productService.ListProducts(service.ProductListOptions{
		Search:          c.Query("search"),
		Sort:            repository.ProductSort(c.Query("sort")),
		SortAscending:   c.Query("order") == "asc",
		IncludeInactive: true,
		Limit:           limit,
		Offset:          offset,
	})
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

// CreateProduct POST /api/v1/admin/products
func (ctrl *AdminController) CreateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	detail, err := ctrl.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": detail})
}

// UpdateProduct replaces a product's fields and option membership
// PUT /api/v1/admin/products/:id
func (ctrl *AdminController) UpdateProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req service.ProductInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	detail, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": detail})
}

// UpdateStock PUT /api/v1/admin/products/:id/stock
func (ctrl *AdminController) UpdateStock(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req StockRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	product, err := ctrl.productService.AdjustStock(id, *req.StockQuantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct DELETE /api/v1/admin/products/:id
func (ctrl *AdminController) DeleteProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// ==================== Orders ====================

// ListOrders GET /api/v1/admin/orders?status=&email=&limit=&offset=
func (ctrl *AdminController) ListOrders(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		fail(c, err)
		return
	}
	status, err := statusFilter(c)
	if err != nil {
		fail(c, err)
		return
	}

	orders, total, err := ctrl.orderService.ListOrders(service.OrderListOptions{
		Status: status,
		Email:  c.Query("email"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"count":  len(orders),
	})
}

// GetOrder GET /api/v1/admin/orders/:id
func (ctrl *AdminController) GetOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	order, err := ctrl.orderService.GetOrder(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus PUT /api/v1/admin/orders/:id/status
func (ctrl *AdminController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req service.StatusUpdate
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(id, req)
	if err != nil {
		fail(c, err)
		return
	}

	adminID, _ := middleware.GetUserID(c)
	log.Info("Order status changed by admin", map[string]interface{}{
		"admin_id": adminID,
		"order_id": id,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Dashboard GET /api/v1/admin/dashboard
func (ctrl *AdminController) Dashboard(c *gin.Context) {
	stats, err := ctrl.orderService.GetStats()
	if err != nil {
		fail(c, err)
		return
	}

	_, productCount, err := ctrl.productService.ListProducts(service.ProductListOptions{IncludeInactive: true, Limit: 1})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":         stats,
		"total_products": productCount,
	})
}

// OrderFeed upgrades to a websocket streaming order events
// GET /api/v1/admin/ws
func (ctrl *AdminController) OrderFeed(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.feed == nil {
		fail(c, apperrors.NotFound(apperrors.ResourceNotFound, "Live order feed is not enabled"))
		return
	}

	adminID, _ := middleware.GetUserID(c)
	if err := ctrl.feed.Serve(c.Writer, c.Request, adminID); err != nil {
		// The upgrader has already written the HTTP error.
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"admin_id": adminID,
			"error":    err.Error(),
		})
	}
}
