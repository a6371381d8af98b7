package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/controller"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/middleware"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	orderController    *controller.OrderController
	adminController    *controller.AdminController
	uploadController   *controller.UploadController
	authMiddleware     *middleware.AuthMiddleware
	alerts             middleware.AlertNotifier
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	orderController *controller.OrderController,
	adminController *controller.AdminController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	alerts middleware.AlertNotifier,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		orderController:    orderController,
		adminController:    adminController,
		uploadController:   uploadController,
		authMiddleware:     authMiddleware,
		alerts:             alerts,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	router.Use(middleware.ErrorHandler(r.alerts))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Candle shop API is running",
		})
	})

	guestCart := middleware.GuestCart(r.config.Cart)
	requireAdmin := r.authMiddleware.RequireRole(model.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)
			products.GET("/:id/customization-options", r.productController.GetCustomizationOptions)
			products.POST("/:id/validate-customization", r.productController.ValidateCustomization)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate(), guestCart)
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:item_id", r.cartController.UpdateItem)
			cart.DELETE("/items/:item_id", r.cartController.RemoveItem)
		}

		checkout := v1.Group("/checkout")
		checkout.Use(r.authMiddleware.OptionalAuthenticate(), guestCart)
		{
			checkout.POST("/process", r.checkoutController.ProcessCheckout)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("/lookup", r.orderController.LookupOrder)
			orders.GET("", r.authMiddleware.Authenticate(), r.orderController.GetOrders)
			orders.GET("/:id", r.authMiddleware.Authenticate(), r.orderController.GetOrderByID)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), requireAdmin)
		{
			admin.GET("/dashboard", r.adminController.Dashboard)
			admin.GET("/ws", r.adminController.OrderFeed)

			admin.GET("/options", r.adminController.ListOptions)
			admin.GET("/options/:id", r.adminController.GetOption)
			admin.POST("/options", r.adminController.CreateOption)
			admin.PUT("/options/:id", r.adminController.UpdateOption)
			admin.DELETE("/options/:id", r.adminController.DeleteOption)

			admin.GET("/products", r.adminController.ListProducts)
			admin.POST("/products", r.adminController.CreateProduct)
			admin.PUT("/products/:id", r.adminController.UpdateProduct)
			admin.PUT("/products/:id/stock", r.adminController.UpdateStock)
			admin.DELETE("/products/:id", r.adminController.DeleteProduct)

			admin.GET("/orders", r.adminController.ListOrders)
			admin.GET("/orders/:id", r.adminController.GetOrder)
			admin.PUT("/orders/:id/status", r.adminController.UpdateOrderStatus)

			admin.POST("/uploads/product-image", r.uploadController.PresignProductImage)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
