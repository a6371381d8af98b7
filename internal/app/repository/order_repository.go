package repository

import (
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderFilter struct {
	UserID *uint
	Status *model.OrderStatus
	Email  string
	Limit  int
	Offset int
}

// OrderStats feeds the admin dashboard. Revenue excludes cancelled orders.
type OrderStats struct {
	TotalOrders  int64                       `json:"total_orders"`
	ByStatus     map[model.OrderStatus]int64 `json:"by_status"`
	TotalRevenue float64                     `json:"total_revenue"`
	PaidOrders   int64                       `json:"paid_orders"`
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByNumberAndEmail(orderNumber, email string) (*model.Order, error)
	FindWithFilter(filter OrderFilter) ([]model.Order, int64, error)
	UpdateStatus(order *model.Order) error
	Stats() (*OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_number": order.OrderNumber,
		"items":        len(order.Items),
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_number": order.OrderNumber,
		})
		return err
	}
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.Preload("Items", preloadItems).First(&order, id).Error; err != nil {
		logger.Debug("Order lookup by ID failed", map[string]interface{}{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByNumberAndEmail(orderNumber, email string) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Items", preloadItems).
		Where("order_number = ? AND LOWER(email) = LOWER(?)", orderNumber, email).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindWithFilter(filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders with filter", map[string]interface{}{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"email":   filter.Email,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	query := r.db.Model(&model.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) = LOWER(?)", filter.Email)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err, nil)
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Preload("Items", preloadItems).Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter", err, nil)
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus writes the mutable lifecycle columns only.
func (r *orderRepository) UpdateStatus(order *model.Order) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	err := r.db.Model(order).
		Select("status", "payment_status", "paid_at", "shipped_at", "delivered_at", "cancelled_at").
		Updates(order).Error
	if err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return err
	}
	return nil
}

func (r *orderRepository) Stats() (*OrderStats, error) {
	stats := &OrderStats{ByStatus: map[model.OrderStatus]int64{}}

	var rows []struct {
		Status model.OrderStatus
		Count  int64
	}
	if err := r.db.Model(&model.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		logger.Error("Failed to aggregate orders by status", err, nil)
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
	}

	var revenue struct {
		Total float64
	}
	if err := r.db.Model(&model.Order{}).
		Select("COALESCE(SUM(total), 0) AS total").
		Where("status <> ?", model.OrderStatusCancelled).
		Scan(&revenue).Error; err != nil {
		logger.Error("Failed to sum order revenue", err, nil)
		return nil, err
	}
	stats.TotalRevenue = revenue.Total

	if err := r.db.Model(&model.Order{}).
		Where("payment_status = ?", model.PaymentStatusCompleted).
		Count(&stats.PaidOrders).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
