package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/ikkim/candle-backend/internal/middleware"
	"github.com/ikkim/candle-backend/internal/storage"
	"github.com/ikkim/candle-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "controller-test-secret"

type fakePresigner struct {
	err error
}

func (p *fakePresigner) PresignProductImage(_ context.Context, filename, contentType string) (*storage.PresignedUpload, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &storage.PresignedUpload{
		UploadURL: "https://bucket.s3.amazonaws.com/products/key.png?X-Amz-Signature=abc",
		FileURL:   "https://cdn.example.com/products/key.png",
		Key:       "products/key.png",
	}, nil
}

type harness struct {
	db        *gorm.DB
	router    *gin.Engine
	options   repository.OptionRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	carts     service.CartService
	checkout  service.CheckoutService
	auth      service.AuthService
	presigner *fakePresigner
	cartCfg   config.CartConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	h := &harness{
		db:        testDB,
		options:   repository.NewOptionRepository(testDB),
		products:  repository.NewProductRepository(testDB),
		users:     repository.NewUserRepository(testDB),
		presigner: &fakePresigner{},
		cartCfg:   config.CartConfig{GuestCookieName: "guest_cart_id", Retention: 24 * time.Hour},
	}

	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	customization := service.NewCustomizationService(h.products, h.options, nil)
	productService := service.NewProductService(h.products, h.options, customization, nil)
	optionService := service.NewOptionService(h.options, nil)
	h.carts = service.NewCartService(cartRepo, customization, h.cartCfg.Retention)
	h.checkout = service.NewCheckoutService(testDB, cartRepo, nil, nil, nil)
	orderService := service.NewOrderService(orderRepo, nil, nil)
	h.auth = service.NewAuthService(h.users, h.carts, nil, testSecret, time.Hour)

	products := NewProductController(productService, customization)
	carts := NewCartController(h.carts, h.cartCfg.GuestCookieName)
	checkout := NewCheckoutController(h.checkout, h.cartCfg.GuestCookieName)
	orders := NewOrderController(orderService)
	auth := NewAuthController(h.auth, h.cartCfg)
	admin := NewAdminController(optionService, productService, orderService, nil)
	upload := NewUploadController(h.presigner)

	authMW := middleware.NewAuthMiddleware(testSecret, nil)
	guest := middleware.GuestCart(h.cartCfg)

	r := gin.New()
	r.Use(middleware.ErrorHandler(nil))

	r.POST("/auth/register", auth.Register)
	r.POST("/auth/login", auth.Login)
	r.POST("/auth/logout", authMW.Authenticate(), auth.Logout)
	r.GET("/auth/me", authMW.Authenticate(), auth.GetMe)

	r.GET("/products", products.ListProducts)
	r.GET("/products/:id", products.GetProduct)
	r.GET("/products/:id/customization-options", products.GetCustomizationOptions)
	r.POST("/products/:id/validate-customization", products.ValidateCustomization)

	cart := r.Group("/cart", authMW.OptionalAuthenticate(), guest)
	cart.GET("", carts.GetCart)
	cart.DELETE("", carts.ClearCart)
	cart.POST("/items", carts.AddItem)
	cart.PUT("/items/:item_id", carts.UpdateItem)
	cart.DELETE("/items/:item_id", carts.RemoveItem)

	r.POST("/checkout/process", authMW.OptionalAuthenticate(), guest, checkout.ProcessCheckout)

	r.POST("/orders/lookup", orders.LookupOrder)
	r.GET("/orders", authMW.Authenticate(), orders.GetOrders)
	r.GET("/orders/:id", authMW.Authenticate(), orders.GetOrderByID)

	adm := r.Group("/admin", authMW.Authenticate(), authMW.RequireRole(model.RoleAdmin))
	adm.GET("/dashboard", admin.Dashboard)
	adm.GET("/ws", admin.OrderFeed)
	adm.GET("/options", admin.ListOptions)
	adm.POST("/options", admin.CreateOption)
	adm.PUT("/options/:id", admin.UpdateOption)
	adm.DELETE("/options/:id", admin.DeleteOption)
	adm.GET("/products", admin.ListProducts)
	adm.POST("/products", admin.CreateProduct)
	adm.PUT("/products/:id", admin.UpdateProduct)
	adm.PUT("/products/:id/stock", admin.UpdateStock)
	adm.DELETE("/products/:id", admin.DeleteProduct)
	adm.GET("/orders", admin.ListOrders)
	adm.GET("/orders/:id", admin.GetOrder)
	adm.PUT("/orders/:id/status", admin.UpdateOrderStatus)
	adm.POST("/uploads/product-image", upload.PresignProductImage)

	h.router = r
	return h
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(name, value string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (h *harness) option(t *testing.T, kind model.OptionKind, name string, price float64) *model.CustomizationOption {
	t.Helper()
	opt := &model.CustomizationOption{Kind: kind, Name: name, Available: true, InStock: true, AdditionalPrice: price}
	require.NoError(t, h.options.Create(opt))
	return opt
}

func (h *harness) product(t *testing.T, slug string, basePrice float64, stock int, opts ...*model.CustomizationOption) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          slug,
		Slug:          slug,
		BasePrice:     basePrice,
		StockQuantity: stock,
		Category:      model.CategoryJar,
		IsActive:      true,
	}
	for _, opt := range opts {
		product.Options = append(product.Options, *opt)
	}
	require.NoError(t, h.products.Create(product))
	return product
}

// token signs in a user with the given role, creating it on first use.
func (h *harness) token(t *testing.T, email string, role model.UserRole) (string, *model.User) {
	t.Helper()

	user, err := h.users.FindByEmail(email)
	if err != nil {
		hash, hashErr := util.HashPassword("lavender-fields")
		require.NoError(t, hashErr)
		user = &model.User{Email: email, PasswordHash: hash, Name: email, Role: role}
		require.NoError(t, h.users.Create(user))
	}

	token, _, err := util.GenerateToken(user.ID, user.Email, string(user.Role), testSecret, time.Hour)
	require.NoError(t, err)
	return token, user
}

func guestCookie(t *testing.T, w *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	t.Fatalf("response did not set cookie %s", name)
	return ""
}

func testAddress() map[string]interface{} {
	return map[string]interface{}{
		"full_name":   "Ada Wick",
		"line1":       "1 Wick Way",
		"city":        "Salem",
		"postal_code": "01970",
		"country":     "US",
	}
}
