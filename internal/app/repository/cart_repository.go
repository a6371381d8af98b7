package repository

import (
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Create(cart *model.Cart) error
	FindByID(id uint) (*model.Cart, error)
	FindByUserID(userID uint) (*model.Cart, error)
	FindByGuestToken(token string) (*model.Cart, error)
	SaveTotals(cart *model.Cart) error
	AddItem(item *model.CartItem) error
	UpdateItem(item *model.CartItem) error
	DeleteItem(cartID, itemID uint) error
	ClearItems(cartID uint) error
	Delete(cartID uint) error
	DeleteExpired(now time.Time) (int64, error)
	Transaction(fn func(repo CartRepository) error) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func preloadCart(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Preload("Items.Product").
		Preload("Items.Product.Options")
}

func (r *cartRepository) Create(cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"user_id":  cart.UserID,
		"is_guest": cart.IsGuest(),
	})

	if err := r.db.Omit(clause.Associations).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"user_id": cart.UserID,
		})
		return err
	}

	logger.Debug("Cart created in database", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

func (r *cartRepository) FindByID(id uint) (*model.Cart, error) {
	var cart model.Cart
	if err := preloadCart(r.db).First(&cart, id).Error; err != nil {
		logger.Debug("Cart lookup by ID failed", map[string]interface{}{
			"cart_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	if err := preloadCart(r.db).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"cart_id": cart.ID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

func (r *cartRepository) FindByGuestToken(token string) (*model.Cart, error) {
	var cart model.Cart
	if err := preloadCart(r.db).Where("guest_token = ?", token).First(&cart).Error; err != nil {
		return nil, err
	}

	logger.Debug("Cart found by guest token in database", map[string]interface{}{
		"cart_id": cart.ID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

// SaveTotals persists the recomputed total and the extended expiry.
func (r *cartRepository) SaveTotals(cart *model.Cart) error {
	err := r.db.Model(cart).
		Select("total_price", "expires_at").
		Updates(map[string]interface{}{
			"total_price": cart.TotalPrice,
			"expires_at":  cart.ExpiresAt,
		}).Error
	if err != nil {
		logger.Error("Failed to save cart totals", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return err
	}

	logger.Debug("Cart totals saved", map[string]interface{}{
		"cart_id":     cart.ID,
		"total_price": cart.TotalPrice,
	})
	return nil
}

func (r *cartRepository) AddItem(item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	if err := r.db.Omit(clause.Associations).Create(item).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) UpdateItem(item *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})

	if err := r.db.Omit(clause.Associations).Save(item).Error; err != nil {
		logger.Error("Failed to update cart item in database", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

// DeleteItem removes a line only if it belongs to the cart.
func (r *cartRepository) DeleteItem(cartID, itemID uint) error {
	result := r.db.Where("cart_id = ? AND id = ?", cartID, itemID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_id":      cartID,
			"cart_item_id": itemID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) ClearItems(cartID uint) error {
	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) Delete(cartID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, cartID).Error
	})
}

// DeleteExpired removes carts whose expiry has passed, items included.
func (r *cartRepository) DeleteExpired(now time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&model.Cart{}).Select("id").Where("expires_at < ?", now)
		if err := tx.Where("cart_id IN (?)", expired).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("expires_at < ?", now).Delete(&model.Cart{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete expired carts", err, nil)
		return 0, err
	}

	logger.Debug("Expired carts deleted", map[string]interface{}{
		"count": deleted,
	})
	return deleted, nil
}

// Transaction runs fn against a repository bound to a single database
// transaction. Any error from fn rolls every write back.
func (r *cartRepository) Transaction(fn func(repo CartRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&cartRepository{db: tx})
	})
}
