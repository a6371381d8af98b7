package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/controller"
	"github.com/ikkim/candle-backend/internal/app/repository"
	"github.com/ikkim/candle-backend/internal/app/service"
	"github.com/ikkim/candle-backend/internal/db"
	"github.com/ikkim/candle-backend/internal/middleware"
	"github.com/ikkim/candle-backend/internal/router"
	"github.com/ikkim/candle-backend/internal/storage"
	"github.com/ikkim/candle-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationSecret = "integration-secret"

type TestServer struct {
	URL         string
	Client      *http.Client
	Hub         *websocket.Hub
	AuthService service.AuthService
}

func setupIntegrationTest(t *testing.T) *TestServer {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: "test"},
		JWT:    config.JWTConfig{Secret: integrationSecret, AccessTokenExpiry: time.Hour},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Cart:   config.CartConfig{GuestCookieName: "guest_cart_id", Retention: 24 * time.Hour},
	}

	hub := websocket.NewHub(cfg.CORS.AllowedOrigins)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	optionRepo := repository.NewOptionRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	customizationService := service.NewCustomizationService(productRepo, optionRepo, nil)
	productService := service.NewProductService(productRepo, optionRepo, customizationService, nil)
	optionService := service.NewOptionService(optionRepo, nil)
	cartService := service.NewCartService(cartRepo, customizationService, cfg.Cart.Retention)
	checkoutService := service.NewCheckoutService(testDB, cartRepo, nil, nil, hub)
	orderService := service.NewOrderService(orderRepo, nil, hub)
	authService := service.NewAuthService(userRepo, cartService, nil, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	presigner := storage.NewS3Storage(config.S3Config{
		Region:          "us-east-1",
		Bucket:          "candle-images",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
	})

	r := router.NewRouter(
		controller.NewAuthController(authService, cfg.Cart),
		controller.NewProductController(productService, customizationService),
		controller.NewCartController(cartService, cfg.Cart.GuestCookieName),
		controller.NewCheckoutController(checkoutService, cfg.Cart.GuestCookieName),
		controller.NewOrderController(orderService),
		controller.NewAdminController(optionService, productService, orderService, hub),
		controller.NewUploadController(presigner),
		middleware.NewAuthMiddleware(cfg.JWT.Secret, nil),
		nil,
		cfg,
	)

	server := httptest.NewServer(r.Setup())
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &TestServer{
		URL:         server.URL,
		Client:      &http.Client{Jar: jar, Timeout: 5 * time.Second},
		Hub:         hub,
		AuthService: authService,
	}
}

func (ts *TestServer) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func readEvent(t *testing.T, conn *gorillaws.Conn) websocket.OrderEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event websocket.OrderEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHealthEchoesRequestID(t *testing.T) {
	ts := setupIntegrationTest(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCompleteShopperJourney(t *testing.T) {
	ts := setupIntegrationTest(t)

	// 1. Admin signs in and builds the catalog
	t.Log("Step 1: Build catalog")
	_, err := ts.AuthService.EnsureAdmin("admin@example.com", "admin-password", "Admin")
	require.NoError(t, err)

	status, body := ts.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "admin-password",
	})
	require.Equal(t, http.StatusOK, status, body)
	adminToken := body["access_token"].(string)

	optionIDs := map[string]interface{}{}
	for _, opt := range []map[string]interface{}{
		{"kind": "scent", "name": "Lavender", "additional_price": 2},
		{"kind": "color", "name": "Ivory", "additional_price": 1.5},
		{"kind": "size", "name": "Large", "additional_price": 3},
	} {
		status, body = ts.call(t, http.MethodPost, "/api/v1/admin/options", adminToken, opt)
		require.Equal(t, http.StatusCreated, status, body)
		optionIDs[opt["kind"].(string)] = body["option"].(map[string]interface{})["id"]
	}

	status, body = ts.call(t, http.MethodPost, "/api/v1/admin/products", adminToken, map[string]interface{}{
		"name":           "Hearth Candle",
		"base_price":     15.99,
		"stock_quantity": 10,
		"category":       "jar",
		"option_ids":     []interface{}{optionIDs["scent"], optionIDs["color"], optionIDs["size"]},
	})
	require.Equal(t, http.StatusCreated, status, body)
	productID := body["product"].(map[string]interface{})["id"]

	// 2. Admin dashboard listens for order events
	t.Log("Step 2: Open live order feed")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/admin/ws?token=" + adminToken
	feed, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer feed.Close()
	require.Eventually(t, func() bool { return ts.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// 3. Guest prices and carts a customized candle
	t.Log("Step 3: Guest shopping")
	customizations := map[string]interface{}{
		"scent_id": optionIDs["scent"],
		"color_id": optionIDs["color"],
		"size_id":  optionIDs["size"],
	}
	status, body = ts.call(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%v/validate-customization", productID), "", customizations)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["is_valid"])
	assert.InDelta(t, 22.49, body["price"], 1e-9)

	status, body = ts.call(t, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{
		"product_id":     productID,
		"quantity":       3,
		"customizations": customizations,
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.InDelta(t, 67.47, body["cart"].(map[string]interface{})["total_price"], 1e-9)

	// 4. Guest registers and signs in, carrying the cart along
	t.Log("Step 4: Register and merge cart")
	status, body = ts.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Test Buyer",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = ts.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), body["cart_merge"].(map[string]interface{})["merged"])
	token := body["access_token"].(string)

	status, body = ts.call(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(3), body["item_count"])
	cartID := body["cart"].(map[string]interface{})["id"]

	// 5. Checkout: subtotal over the free shipping threshold
	t.Log("Step 5: Checkout")
	status, body = ts.call(t, http.MethodPost, "/api/v1/checkout/process", token, map[string]interface{}{
		"cart_id": cartID,
		"email":   "buyer@example.com",
		"shipping_address": map[string]string{
			"full_name":   "Test Buyer",
			"line1":       "1 Wick Way",
			"city":        "Salem",
			"postal_code": "01970",
			"country":     "US",
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	order := body["order"].(map[string]interface{})
	assert.InDelta(t, 67.47, order["subtotal"], 1e-9)
	assert.InDelta(t, 5.40, order["tax"], 1e-9)
	assert.InDelta(t, 0.0, order["shipping"], 1e-9)
	assert.InDelta(t, 72.87, order["total"], 1e-9)
	orderID := order["id"]

	event := readEvent(t, feed)
	assert.Equal(t, service.EventOrderCreated, event.Type)
	assert.Equal(t, order["order_number"], event.OrderNumber)
	assert.InDelta(t, 72.87, event.Total, 1e-9)

	// 6. Admin moves the order forward; customer sees it
	t.Log("Step 6: Fulfil order")
	status, body = ts.call(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%v/status", orderID), adminToken, map[string]string{
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, status, body)

	event = readEvent(t, feed)
	assert.Equal(t, service.EventOrderStatusChanged, event.Type)
	assert.Equal(t, "processing", string(event.Status))

	status, body = ts.call(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%v", orderID), token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "processing", body["order"].(map[string]interface{})["status"])

	status, body = ts.call(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%v", productID), "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(7), body["product"].(map[string]interface{})["stock_quantity"])

	status, body = ts.call(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Zero(t, body["item_count"])
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	ts := setupIntegrationTest(t)

	status, body := ts.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "buyer@example.com",
		"password": "password123",
		"name":     "Test Buyer",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = ts.call(t, http.MethodGet, "/api/v1/admin/orders", body["access_token"].(string), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "AUTHZ_ADMIN_ONLY", body["error"])

	status, body = ts.call(t, http.MethodGet, "/api/v1/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["message"])
}
