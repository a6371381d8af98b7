package service

import (
	"errors"
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
)

// CartOwner is either a signed in user or a guest cookie token.
type CartOwner struct {
	UserID     *uint
	GuestToken string
}

func UserOwner(userID uint) CartOwner {
	return CartOwner{UserID: &userID}
}

func GuestOwner(token string) CartOwner {
	return CartOwner{GuestToken: token}
}

func (o CartOwner) fields() map[string]interface{} {
	if o.UserID != nil {
		return map[string]interface{}{"user_id": *o.UserID}
	}
	return map[string]interface{}{"guest": true}
}

// Owns reports whether cart belongs to this owner.
func (o CartOwner) Owns(cart *model.Cart) bool {
	if o.UserID != nil {
		return cart.UserID != nil && *cart.UserID == *o.UserID
	}
	return cart.GuestToken != nil && o.GuestToken != "" && *cart.GuestToken == o.GuestToken
}

type AddItemInput struct {
	ProductID      uint               `json:"product_id" binding:"required"`
	Quantity       int                `json:"quantity"`
	Customizations CustomizationInput `json:"customizations"`
}

// Reasons reported for guest cart lines left out of a merge.
const (
	SkipOutOfStock    = "out of stock"
	SkipAlreadyInCart = "quantity already in cart"
)

// MergeSkip is a guest cart line that did not make it into the user's cart.
type MergeSkip struct {
	ProductID uint   `json:"product_id"`
	Reason    string `json:"reason"`
}

type MergeResult struct {
	Merged  int         `json:"merged"`
	Clamped int         `json:"clamped"`
	Skipped []MergeSkip `json:"skipped"`
}

type CartService interface {
	GetCart(owner CartOwner) (*model.Cart, error)
	AddItem(owner CartOwner, input AddItemInput) (*model.Cart, error)
	UpdateItem(owner CartOwner, itemID uint, quantity int) (*model.Cart, error)
	RemoveItem(owner CartOwner, itemID uint) (*model.Cart, error)
	ClearCart(owner CartOwner) (*model.Cart, error)
	MergeGuestCart(guestToken string, userID uint) (*MergeResult, error)
	PurgeExpired(now time.Time) (int64, error)
}

type cartService struct {
	cartRepo      repository.CartRepository
	customization CustomizationService
	retention     time.Duration
	now           func() time.Time
}

func NewCartService(
	cartRepo repository.CartRepository,
	customization CustomizationService,
	retention time.Duration,
) CartService {
	return &cartService{
		cartRepo:      cartRepo,
		customization: customization,
		retention:     retention,
		now:           time.Now,
	}
}

// findCart returns the owner's live cart. A cart past its expiry counts as
// missing and is removed so a fresh one can take its place.
func (s *cartService) findCart(owner CartOwner) (*model.Cart, error) {
	var (
		cart *model.Cart
		err  error
	)
	switch {
	case owner.UserID != nil:
		cart, err = s.cartRepo.FindByUserID(*owner.UserID)
	case owner.GuestToken != "":
		cart, err = s.cartRepo.FindByGuestToken(owner.GuestToken)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if !cart.ExpiresAt.After(s.now()) {
		logger.Info("Discarding expired cart", map[string]interface{}{
			"cart_id":    cart.ID,
			"expired_at": cart.ExpiresAt,
		})
		if err := s.cartRepo.Delete(cart.ID); err != nil {
			return nil, err
		}
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

// withRepo returns a copy of the service that writes through repo.
func (s *cartService) withRepo(repo repository.CartRepository) *cartService {
	clone := *s
	clone.cartRepo = repo
	return &clone
}

func (s *cartService) findOrCreateCart(owner CartOwner) (*model.Cart, error) {
	cart, err := s.findCart(owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to fetch cart", err, owner.fields())
		return nil, apperrors.Internal(err)
	}
	if owner.UserID == nil && owner.GuestToken == "" {
		return nil, ErrCartNotFound
	}

	cart = &model.Cart{
		UserID:    owner.UserID,
		ExpiresAt: s.now().Add(s.retention),
		Items:     []model.CartItem{},
	}
	if owner.UserID == nil {
		token := owner.GuestToken
		cart.GuestToken = &token
	}
	if err := s.cartRepo.Create(cart); err != nil {
		logger.Error("Failed to create cart", err, owner.fields())
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

// refresh reloads the cart, recomputes the total from every line and pushes
// the expiry out by the retention window.
func (s *cartService) refresh(cartID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByID(cartID)
	if err != nil {
		logger.Error("Failed to reload cart", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, apperrors.Internal(err)
	}

	cart.RecalculateTotal()
	cart.ExpiresAt = s.now().Add(s.retention)
	if err := s.cartRepo.SaveTotals(cart); err != nil {
		logger.Error("Failed to save cart totals", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

// GetCart returns an empty, unsaved cart when the owner has none yet.
func (s *cartService) GetCart(owner CartOwner) (*model.Cart, error) {
	cart, err := s.findCart(owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Cart{UserID: owner.UserID, Items: []model.CartItem{}}, nil
		}
		logger.Error("Failed to fetch cart", err, owner.fields())
		return nil, apperrors.Internal(err)
	}
	return cart, nil
}

func (s *cartService) AddItem(owner CartOwner, input AddItemInput) (*model.Cart, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	fields := owner.fields()
	fields["product_id"] = input.ProductID
	fields["quantity"] = input.Quantity
	logger.Info("Adding item to cart", fields)

	priced, err := s.customization.ValidateAndPrice(input.ProductID, input.Customizations)
	if err != nil {
		return nil, err
	}

	cart, err := s.findOrCreateCart(owner)
	if err != nil {
		return nil, err
	}

	existing := cart.FindItem(input.ProductID, priced.Customization)
	requested := input.Quantity
	if existing != nil {
		requested += existing.Quantity
	}

	if priced.Product.StockQuantity < requested {
		logger.Warn("Cannot add to cart: insufficient product stock", map[string]interface{}{
			"cart_id":    cart.ID,
			"product_id": input.ProductID,
			"requested":  requested,
			"available":  priced.Product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	if existing != nil {
		existing.Quantity = requested
		existing.Price = priced.Price
		existing.Snapshot = priced.Snapshot
		if err := s.cartRepo.UpdateItem(existing); err != nil {
			logger.Error("Failed to update cart item", err, map[string]interface{}{
				"cart_item_id": existing.ID,
			})
			return nil, apperrors.Internal(err)
		}
	} else {
		item := &model.CartItem{
			CartID:        cart.ID,
			ProductID:     input.ProductID,
			Quantity:      input.Quantity,
			Customization: priced.Customization,
			Price:         priced.Price,
			Snapshot:      priced.Snapshot,
		}
		if err := s.cartRepo.AddItem(item); err != nil {
			logger.Error("Failed to add cart item", err, map[string]interface{}{
				"cart_id":    cart.ID,
				"product_id": input.ProductID,
			})
			return nil, apperrors.Internal(err)
		}
	}

	return s.refresh(cart.ID)
}

func (s *cartService) ownedItem(owner CartOwner, itemID uint) (*model.Cart, *model.CartItem, error) {
	cart, err := s.findCart(owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCartItemNotFound
		}
		return nil, nil, apperrors.Internal(err)
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}

	logger.Warn("Cart item not found in owner's cart", map[string]interface{}{
		"cart_id":      cart.ID,
		"cart_item_id": itemID,
	})
	return nil, nil, ErrCartItemNotFound
}

func (s *cartService) UpdateItem(owner CartOwner, itemID uint, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, item, err := s.ownedItem(owner, itemID)
	if err != nil {
		return nil, err
	}

	if item.Product.StockQuantity < quantity {
		logger.Warn("Cannot update cart item: insufficient product stock", map[string]interface{}{
			"cart_item_id": itemID,
			"requested":    quantity,
			"available":    item.Product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	item.Quantity = quantity
	if err := s.cartRepo.UpdateItem(item); err != nil {
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return nil, apperrors.Internal(err)
	}

	logger.Info("Cart item updated", map[string]interface{}{
		"cart_item_id": itemID,
		"quantity":     quantity,
	})
	return s.refresh(cart.ID)
}

func (s *cartService) RemoveItem(owner CartOwner, itemID uint) (*model.Cart, error) {
	cart, _, err := s.ownedItem(owner, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, apperrors.Internal(err)
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"cart_id":      cart.ID,
		"cart_item_id": itemID,
	})
	return s.refresh(cart.ID)
}

func (s *cartService) ClearCart(owner CartOwner) (*model.Cart, error) {
	cart, err := s.findCart(owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Cart{UserID: owner.UserID, Items: []model.CartItem{}}, nil
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.cartRepo.ClearItems(cart.ID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, apperrors.Internal(err)
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return s.refresh(cart.ID)
}

// MergeGuestCart moves a guest cart's lines into the user's cart. Every line
// is validated and priced again; quantities are clamped to current stock and
// lines that cannot be kept are reported in Skipped. The writes and the
// removal of the guest cart happen in one transaction, so a failed merge
// leaves both carts as they were.
func (s *cartService) MergeGuestCart(guestToken string, userID uint) (*MergeResult, error) {
	result := &MergeResult{Skipped: []MergeSkip{}}
	if guestToken == "" {
		return result, nil
	}

	guest, err := s.findCart(GuestOwner(guestToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, apperrors.Internal(err)
	}

	type mergeLine struct {
		item      model.CartItem
		validated *ValidatedCombination
	}
	lines := make([]mergeLine, 0, len(guest.Items))
	for _, item := range guest.Items {
		validated, err := s.customization.ValidateCustomization(item.ProductID, item.Customization)
		if err != nil {
			appErr := apperrors.As(err)
			if appErr.Status >= 500 {
				return nil, err
			}
			result.Skipped = append(result.Skipped, MergeSkip{ProductID: item.ProductID, Reason: appErr.Message})
			continue
		}
		lines = append(lines, mergeLine{item: item, validated: validated})
	}

	err = s.cartRepo.Transaction(func(repo repository.CartRepository) error {
		tx := s.withRepo(repo)
		if len(lines) == 0 {
			return repo.Delete(guest.ID)
		}

		userCart, err := tx.findOrCreateCart(UserOwner(userID))
		if err != nil {
			return err
		}

		for _, line := range lines {
			item := line.item
			existing := userCart.FindItem(item.ProductID, item.Customization)
			alreadyInCart := 0
			if existing != nil {
				alreadyInCart = existing.Quantity
			}

			stock := line.validated.Product.StockQuantity
			if stock <= 0 {
				result.Skipped = append(result.Skipped, MergeSkip{ProductID: item.ProductID, Reason: SkipOutOfStock})
				continue
			}
			quantity := item.Quantity
			if room := stock - alreadyInCart; quantity > room {
				if room <= 0 {
					result.Skipped = append(result.Skipped, MergeSkip{ProductID: item.ProductID, Reason: SkipAlreadyInCart})
					continue
				}
				quantity = room
				result.Clamped++
			}

			priced := priceValidated(line.validated)
			if existing != nil {
				existing.Quantity += quantity
				existing.Price = priced.Price
				existing.Snapshot = priced.Snapshot
				err = repo.UpdateItem(existing)
			} else {
				added := model.CartItem{
					CartID:        userCart.ID,
					ProductID:     item.ProductID,
					Quantity:      quantity,
					Customization: item.Customization,
					Price:         priced.Price,
					Snapshot:      priced.Snapshot,
				}
				err = repo.AddItem(&added)
				userCart.Items = append(userCart.Items, added)
			}
			if err != nil {
				logger.Error("Failed to merge cart line", err, map[string]interface{}{
					"cart_id":    userCart.ID,
					"product_id": item.ProductID,
				})
				return err
			}
			result.Merged++
		}

		if err := repo.Delete(guest.ID); err != nil {
			logger.Error("Failed to delete merged guest cart", err, map[string]interface{}{
				"cart_id": guest.ID,
			})
			return err
		}

		_, err = tx.refresh(userCart.ID)
		return err
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal(err)
	}

	logger.Info("Guest cart merged", map[string]interface{}{
		"user_id": userID,
		"merged":  result.Merged,
		"clamped": result.Clamped,
		"skipped": len(result.Skipped),
	})
	for _, skip := range result.Skipped {
		logger.Warn("Guest cart line skipped during merge", map[string]interface{}{
			"user_id":    userID,
			"product_id": skip.ProductID,
			"reason":     skip.Reason,
		})
	}
	return result, nil
}

func (s *cartService) PurgeExpired(now time.Time) (int64, error) {
	deleted, err := s.cartRepo.DeleteExpired(now)
	if err != nil {
		logger.Error("Failed to purge expired carts", err, nil)
		return 0, err
	}
	if deleted > 0 {
		logger.Info("Expired carts purged", map[string]interface{}{
			"deleted": deleted,
		})
	}
	return deleted, nil
}
