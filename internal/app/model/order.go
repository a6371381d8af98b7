package model

import (
	"time"

	"github.com/ikkim/candle-backend/internal/pricing"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Statuses only move forward. Cancellation is possible until the parcel ships.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Address struct {
	FullName   string `gorm:"size:100" json:"full_name" binding:"required"`
	Line1      string `gorm:"size:200" json:"line1" binding:"required"`
	Line2      string `gorm:"size:200" json:"line2"`
	City       string `gorm:"size:100" json:"city" binding:"required"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code" binding:"required"`
	Country    string `gorm:"size:2" json:"country" binding:"required,len=2"`
	Phone      string `gorm:"size:30" json:"phone"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Order is written once at checkout. Only status, payment and fulfilment
// timestamps change afterwards, and orders are never deleted.
type Order struct {
	ID              uint          `gorm:"primarykey" json:"id"`
	OrderNumber     string        `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID          *uint         `gorm:"index" json:"user_id,omitempty"`
	Email           string        `gorm:"not null;index" json:"email"`
	Subtotal        float64       `gorm:"not null" json:"subtotal"`
	Tax             float64       `gorm:"not null" json:"tax"`
	Shipping        float64       `gorm:"not null" json:"shipping"`
	Total           float64       `gorm:"not null" json:"total"`
	ShippingAddress Address       `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address       `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	PaymentIntentID string        `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	Status          OrderStatus   `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	ShippedAt       *time.Time    `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ProductSnapshot is the product as it looked at checkout.
type ProductSnapshot struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	BasePrice   float64         `json:"base_price"`
	Category    ProductCategory `json:"category"`
	ImageURL    string          `json:"image_url"`
	Tags        []string        `json:"tags,omitempty"`
}

func NewProductSnapshot(p *Product) ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Tags:        append([]string(nil), p.Tags...),
	}
}

type OrderItem struct {
	ID              uint                  `gorm:"primarykey" json:"id"`
	OrderID         uint                  `gorm:"not null;index" json:"order_id"`
	ProductID       uint                  `gorm:"not null;index" json:"product_id"`
	ProductSnapshot ProductSnapshot       `gorm:"type:text;serializer:json;not null" json:"product_snapshot"`
	Customization   CustomizationSnapshot `gorm:"type:text;serializer:json" json:"customization"`
	Quantity        int                   `gorm:"not null" json:"quantity"`
	Price           float64               `gorm:"not null" json:"price"`
	LineTotal       float64               `gorm:"not null" json:"line_total"`
	CreatedAt       time.Time             `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem freezes a cart line into an order line.
func NewOrderItem(item *CartItem) OrderItem {
	return OrderItem{
		ProductID:       item.ProductID,
		ProductSnapshot: NewProductSnapshot(&item.Product),
		Customization:   item.Snapshot,
		Quantity:        item.Quantity,
		Price:           item.Price,
		LineTotal:       pricing.Round2(item.Price * float64(item.Quantity)),
	}
}
