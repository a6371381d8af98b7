package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/candle-backend/config"
)

const GuestTokenKey = "guest_token"

// GuestCart resolves the guest cart cookie for anonymous requests and issues
// a fresh token when none is present. Authenticated requests are left alone.
// It must run after OptionalAuthenticate.
func GuestCart(cfg config.CartConfig) gin.HandlerFunc {
	maxAge := int(cfg.Retention.Seconds())
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); ok {
			c.Next()
			return
		}

		token, err := c.Cookie(cfg.GuestCookieName)
		if err != nil || token == "" {
			token = uuid.NewString()
			setGuestCookie(c, cfg, token, maxAge)
			GetLoggerFromContext(c).Debug("Issued guest cart token", nil)
		}

		c.Set(GuestTokenKey, token)
		c.Next()
	}
}

// GuestToken returns the request's guest cart token, from the context when
// GuestCart ran or straight from the cookie otherwise.
func GuestToken(c *gin.Context, cookieName string) string {
	if token := c.GetString(GuestTokenKey); token != "" {
		return token
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

// ClearGuestCookie expires the guest cart cookie after a merge.
func ClearGuestCookie(c *gin.Context, cfg config.CartConfig) {
	setGuestCookie(c, cfg, "", -1)
}

func setGuestCookie(c *gin.Context, cfg config.CartConfig, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.GuestCookieName, value, maxAge, "/", "", cfg.SecureCookie, true)
}
