package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/logger"
	cache "github.com/ikkim/candle-backend/pkg/redis"
	"github.com/ikkim/candle-backend/pkg/util"
	"gorm.io/gorm"
)

// AuthResult is a signed in user with a fresh access token. Merge is set when
// a guest cart was folded into the user's cart during login.
type AuthResult struct {
	User      *model.User  `json:"user"`
	Token     string       `json:"access_token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Merge     *MergeResult `json:"cart_merge,omitempty"`
}

type AuthService interface {
	Register(email, password, name string) (*AuthResult, error)
	Login(email, password, guestToken string) (*AuthResult, error)
	Logout(ctx context.Context, claims *util.Claims) error
	GetUserByID(id uint) (*model.User, error)
	EnsureAdmin(email, password, name string) (*model.User, error)
}

type authService struct {
	userRepo     repository.UserRepository
	carts        CartService
	cache        *cache.Client
	jwtSecret    string
	accessExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	carts CartService,
	cacheClient *cache.Client,
	jwtSecret string,
	accessExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		carts:        carts,
		cache:        cacheClient,
		jwtSecret:    jwtSecret,
		accessExpiry: accessExpiry,
	}
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, util.ErrPasswordTooShort):
		return apperrors.FieldValidation(apperrors.ValidationInvalidRange, "password", "password must be at least 8 characters")
	case errors.Is(err, util.ErrPasswordTooLong):
		return apperrors.FieldValidation(apperrors.ValidationInvalidRange, "password", "password must be at most 72 bytes")
	}
	return apperrors.Internal(err)
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, claims, err := util.GenerateToken(user.ID, user.Email, string(user.Role), s.jwtSecret, s.accessExpiry)
	if err != nil {
		logger.Error("Failed to generate token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *authService) Register(email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	existing, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, ErrEmailAlreadyExists
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, passwordError(err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         model.RoleCustomer,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, apperrors.ParseError(err, "user email")
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return s.issue(user)
}

// Login verifies credentials and, when guestToken names a guest cart, merges
// it into the user's cart. A failed merge is logged and does not fail login.
func (s *authService) Login(email, password, guestToken string) (*AuthResult, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, apperrors.Internal(err)
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	if guestToken != "" && s.carts != nil {
		merge, err := s.carts.MergeGuestCart(guestToken, user.ID)
		if err != nil {
			logger.Error("Guest cart merge failed during login", err, map[string]interface{}{
				"user_id": user.ID,
			})
		} else {
			result.Merge = merge
		}
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return result, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, claims *util.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.RemainingTTL(time.Now())
	if err := s.cache.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		return apperrors.Internal(err)
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// EnsureAdmin creates the admin account, or promotes an existing account
// with that email.
func (s *authService) EnsureAdmin(email, password, name string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err)
	}

	if user != nil {
		if user.Role != model.RoleAdmin {
			user.Role = model.RoleAdmin
			if err := s.userRepo.Update(user); err != nil {
				return nil, apperrors.Internal(err)
			}
			logger.Info("Existing user promoted to admin", map[string]interface{}{
				"user_id": user.ID,
			})
		}
		return user, nil
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, passwordError(err)
	}
	user = &model.User{Email: email, PasswordHash: hash, Name: name, Role: model.RoleAdmin}
	if err := s.userRepo.Create(user); err != nil {
		return nil, apperrors.ParseError(err, "user email")
	}

	logger.Info("Admin user created", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, nil
}
