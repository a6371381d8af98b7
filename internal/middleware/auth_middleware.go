package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/candle-backend/internal/app/model"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	cache "github.com/ikkim/candle-backend/pkg/redis"
	"github.com/ikkim/candle-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
	ClaimsKey    = "claims"
)

type AuthMiddleware struct {
	jwtSecret string
	cache     *cache.Client
}

// NewAuthMiddleware builds the JWT middleware. cacheClient may be nil, in which
// case revoked tokens are not checked.
func NewAuthMiddleware(jwtSecret string, cacheClient *cache.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		cache:     cacheClient,
	}
}

// abortWithError hands err to ErrorHandler and stops the chain.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// resolve validates token and checks it against the logout blacklist.
func (m *AuthMiddleware) resolve(c *gin.Context, token string) (*util.Claims, *apperrors.AppError) {
	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		if err == util.ErrExpiredToken {
			return nil, apperrors.Unauthorized(apperrors.AuthTokenExpired, "Your session has expired. Please log in again")
		}
		return nil, apperrors.Unauthorized(apperrors.AuthTokenInvalid, "Invalid authentication token")
	}

	revoked, err := m.cache.IsTokenBlacklisted(c.Request.Context(), claims.ID)
	if err != nil {
		GetLoggerFromContext(c).Warn("Token blacklist lookup failed, allowing request", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if revoked {
		return nil, apperrors.Unauthorized(apperrors.AuthTokenRevoked, "This token has been revoked. Please log in again")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *util.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
	c.Set(ClaimsKey, claims)
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			var ok bool
			token, ok = bearerToken(authHeader)
			if !ok {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				abortWithError(c, apperrors.Unauthorized(apperrors.AuthTokenInvalid, "Authorization header must be a Bearer token"))
				return
			}
		} else {
			// Browsers cannot set headers on a websocket handshake.
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				abortWithError(c, apperrors.Unauthorized(apperrors.AuthUnauthorized, "Login required"))
				return
			}
		}

		claims, appErr := m.resolve(c, token)
		if appErr != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path": c.Request.URL.Path,
				"code": appErr.Code,
			})
			abortWithError(c, appErr)
			return
		}

		setClaims(c, claims)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate validates JWT token if present (optional)
// - If token is present and valid: sets user info in context
// - If token is missing or invalid: continues as a guest
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, appErr := m.resolve(c, token)
		if appErr != nil {
			log.Debug("Token rejected - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
				"code": appErr.Code,
			})
			c.Next()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole checks if user has required role
func (m *AuthMiddleware) RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetUserRole(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			abortWithError(c, apperrors.Forbidden(apperrors.AuthzRoleNotFound, "Role information is missing"))
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		abortWithError(c, apperrors.Forbidden(apperrors.AuthzAdminOnly, "Insufficient permissions"))
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(model.UserRole)
	return r, ok
}

// GetClaims returns the validated token claims, used by logout.
func GetClaims(c *gin.Context) (*util.Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	cl, ok := claims.(*util.Claims)
	return cl, ok
}
