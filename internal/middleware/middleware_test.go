package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/config"
	"github.com/ikkim/candle-backend/internal/app/model"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

type alertCall struct {
	subject string
	detail  string
}

type recordingNotifier struct {
	calls chan alertCall
	err   error
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{calls: make(chan alertCall, 4), err: err}
}

func (n *recordingNotifier) SendAdminAlert(subject, detail string) error {
	n.calls <- alertCall{subject: subject, detail: detail}
	return n.err
}

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware(), ErrorHandler(nil))
	return router, NewAuthMiddleware(testJWTSecret, nil)
}

func generateTestToken(t *testing.T, userID uint, role model.UserRole, expiry time.Duration) string {
	token, _, err := util.GenerateToken(userID, "test@example.com", string(role), testJWTSecret, expiry)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthenticate_Success(t *testing.T) {
	router, auth := setupMiddlewareTest()
	token := generateTestToken(t, 7, model.RoleCustomer, 15*time.Minute)

	router.GET("/test", auth.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetUserRole(c)
		claims, ok := GetClaims(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role, "jti": claims.ID})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
	assert.Contains(t, w.Body.String(), `"role":"customer"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthenticate_QueryToken(t *testing.T) {
	router, auth := setupMiddlewareTest()
	token := generateTestToken(t, 1, model.RoleAdmin, 15*time.Minute)

	router.GET("/ws", auth.Authenticate(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	expired := generateTestToken(t, 1, model.RoleCustomer, -time.Minute)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"no header", "", apperrors.AuthUnauthorized},
		{"missing bearer prefix", "invalid-token", apperrors.AuthTokenInvalid},
		{"wrong prefix", "Basic token123", apperrors.AuthTokenInvalid},
		{"empty token", "Bearer ", apperrors.AuthTokenInvalid},
		{"garbage token", "Bearer invalid.jwt.token", apperrors.AuthTokenInvalid},
		{"expired token", "Bearer " + expired, apperrors.AuthTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.OptionalAuthenticate(), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": userID})
	})

	token := generateTestToken(t, 3, model.RoleCustomer, 15*time.Minute)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"guest", "", `"authenticated":false`},
		{"invalid token is ignored", "Bearer nope", `"authenticated":false`},
		{"valid token", "Bearer " + token, `"user_id":3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestRequireRole(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/admin", auth.Authenticate(), auth.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "admin access granted"})
	})

	tests := []struct {
		name string
		role model.UserRole
		want int
	}{
		{"admin", model.RoleAdmin, http.StatusOK},
		{"customer", model.RoleCustomer, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 1, tt.role, 15*time.Minute))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	notifier := newRecordingNotifier(nil)
	router.Use(ErrorHandler(notifier))

	router.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperrors.FieldValidation(apperrors.ValidationInvalidID, "scent_id", "scent_id must be a valid option id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperrors.ValidationInvalidID, body.Error)
	assert.Equal(t, "scent_id must be a valid option id", body.Fields["scent_id"])

	select {
	case call := <-notifier.calls:
		t.Fatalf("unexpected alert for a client error: %s", call.subject)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestErrorHandler_ServerErrorAlertsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	notifier := newRecordingNotifier(errors.New("smtp down"))
	router.Use(ErrorHandler(notifier))

	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("connection reset"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperrors.InternalServerError, body.Error)
	assert.NotContains(t, w.Body.String(), "connection reset")

	select {
	case call := <-notifier.calls:
		assert.Contains(t, call.subject, "500")
		assert.Contains(t, call.detail, "connection reset")
	case <-time.After(2 * time.Second):
		t.Fatal("admin alert was not sent")
	}
}

func TestGuestCart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.CartConfig{GuestCookieName: "guest_cart_id", Retention: time.Hour}
	auth := NewAuthMiddleware(testJWTSecret, nil)

	router := gin.New()
	router.GET("/cart", auth.OptionalAuthenticate(), GuestCart(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, GuestToken(c, cfg.GuestCookieName))
	})

	t.Run("issues a cookie when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		require.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "guest_cart_id", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, cookies[0].Value, w.Body.String())
	})

	t.Run("reuses an existing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.AddCookie(&http.Cookie{Name: "guest_cart_id", Value: "existing-token"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-token", w.Body.String())
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("authenticated users get no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 1, model.RoleCustomer, time.Minute))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Body.String())
		assert.Empty(t, w.Result().Cookies())
	})
}
