package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
	cookieName  string
}

func NewCartController(cartService service.CartService, cookieName string) *CartController {
	return &CartController{
		cartService: cartService,
		cookieName:  cookieName,
	}
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (ctrl *CartController) respondCart(c *gin.Context, status int, cart *model.Cart) {
	count := 0
	for _, item := range cart.Items {
		count += item.Quantity
	}
	c.JSON(status, gin.H{
		"cart":       cart,
		"item_count": count,
	})
}

// GetCart returns the caller's cart, empty when none exists yet
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	cart, err := ctrl.cartService.GetCart(owner)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.respondCart(c, http.StatusOK, cart)
}

// AddItem validates, prices and adds a customized product
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	var req service.AddItemInput
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(owner, req)
	if err != nil {
		fail(c, err)
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"cart_id":    cart.ID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
	ctrl.respondCart(c, http.StatusCreated, cart)
}

// UpdateItem changes a line's quantity
// PUT /api/v1/cart/items/:item_id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	itemID, err := parseID(c, "item_id")
	if err != nil {
		fail(c, err)
		return
	}

	var req UpdateCartItemRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	cart, err := ctrl.cartService.UpdateItem(owner, itemID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.respondCart(c, http.StatusOK, cart)
}

// RemoveItem deletes a line
// DELETE /api/v1/cart/items/:item_id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	itemID, err := parseID(c, "item_id")
	if err != nil {
		fail(c, err)
		return
	}

	cart, err := ctrl.cartService.RemoveItem(owner, itemID)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.respondCart(c, http.StatusOK, cart)
}

// ClearCart deletes the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	owner, err := cartOwner(c, ctrl.cookieName)
	if err != nil {
		fail(c, err)
		return
	}

	cart, err := ctrl.cartService.ClearCart(owner)
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.respondCart(c, http.StatusOK, cart)
}
