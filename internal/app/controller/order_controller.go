package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/service"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type LookupOrderRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
}

func statusFilter(c *gin.Context) (*model.OrderStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	status := model.OrderStatus(raw)
	if !status.Valid() {
		return nil, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "status", "status is not recognised")
	}
	return &status, nil
}

// GetOrders lists the caller's orders
// GET /api/v1/orders?status=&limit=&offset=
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		fail(c, apperrors.Unauthorized(apperrors.AuthUnauthorized, "Login required"))
		return
	}

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

	orders, total, err := ctrl.orderService.GetUserOrders(userID, service.OrderListOptions{
		Status: status,
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

// GetOrderByID returns one of the caller's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		fail(c, apperrors.Unauthorized(apperrors.AuthUnauthorized, "Login required"))
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	order, err := ctrl.orderService.GetUserOrder(userID, id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// LookupOrder finds a guest order by number and the email used at checkout
// POST /api/v1/orders/lookup
func (ctrl *OrderController) LookupOrder(c *gin.Context) {
	var req LookupOrderRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	order, err := ctrl.orderService.LookupGuestOrder(req.OrderNumber, req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
