package model

import (
	"time"

	"github.com/ikkim/candle-backend/internal/pricing"
)

// Cart belongs to exactly one of a user or a guest token.
type Cart struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	UserID     *uint      `gorm:"uniqueIndex" json:"user_id,omitempty"`
	GuestToken *string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	TotalPrice float64    `gorm:"not null;default:0" json:"total_price"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string {
	return "carts"
}

func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

// RecalculateTotal recomputes TotalPrice from every line. Saving a cart twice
// without touching its items yields the same total.
func (c *Cart) RecalculateTotal() float64 {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity})
	}
	c.TotalPrice = pricing.SumLines(lines)
	return c.TotalPrice
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItem returns the line for the same product and identical customization.
func (c *Cart) FindItem(productID uint, custom Customization) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Customization.Equal(custom) {
			return &c.Items[i]
		}
	}
	return nil
}

// CartItem keeps the unit price computed when it was added; it is not
// recomputed when option prices change later.
type CartItem struct {
	ID            uint                  `gorm:"primarykey" json:"id"`
	CartID        uint                  `gorm:"not null;index" json:"cart_id"`
	ProductID     uint                  `gorm:"not null;index" json:"product_id"`
	Quantity      int                   `gorm:"not null;default:1" json:"quantity"`
	Customization Customization         `gorm:"embedded" json:"customization"`
	Price         float64               `gorm:"not null" json:"price"`
	Snapshot      CustomizationSnapshot `gorm:"type:text;serializer:json" json:"customization_details"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i *CartItem) LineTotal() float64 {
	return pricing.Round2(i.Price * float64(i.Quantity))
}
