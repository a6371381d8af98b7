package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
	cookieName      string
}

func NewCheckoutController(checkoutService service.CheckoutService, cookieName string) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		cookieName:      cookieName,
	}
}

// ProcessCheckout turns the caller's cart into an order
// POST /api/v1/checkout/process
func (ctrl *CheckoutController) ProcessCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	var req service.CheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	order, err := ctrl.checkoutService.ProcessCheckout(c.Request.Context(), owner, req)
	if err != nil {
		fail(c, err)
		return
	}

	log.Info("Checkout completed", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}
