package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderListOptions struct {
	Status *model.OrderStatus
	Email  string
	Limit  int
	Offset int
}

// StatusUpdate is the admin request to move an order forward.
type StatusUpdate struct {
	Status        model.OrderStatus    `json:"status" binding:"required"`
	PaymentStatus *model.PaymentStatus `json:"payment_status"`
}

type OrderService interface {
	GetUserOrders(userID uint, opts OrderListOptions) ([]model.Order, int64, error)
	GetUserOrder(userID, orderID uint) (*model.Order, error)
	LookupGuestOrder(orderNumber, email string) (*model.Order, error)
	ListOrders(opts OrderListOptions) ([]model.Order, int64, error)
	GetOrder(orderID uint) (*model.Order, error)
	UpdateOrderStatus(orderID uint, update StatusUpdate) (*model.Order, error)
	GetStats() (*repository.OrderStats, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	mailer    OrderMailer
	publisher OrderEventPublisher
	now       func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	mailer OrderMailer,
	publisher OrderEventPublisher,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		mailer:    mailer,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *orderService) GetUserOrders(userID uint, opts OrderListOptions) ([]model.Order, int64, error) {
	opts.Email = ""
	return s.list(&userID, opts)
}

func (s *orderService) ListOrders(opts OrderListOptions) ([]model.Order, int64, error) {
	return s.list(nil, opts)
}

func (s *orderService) list(userID *uint, opts OrderListOptions) ([]model.Order, int64, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, 0, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "status", "status is not recognised")
	}
	limit, offset := pageBounds(opts.Limit, opts.Offset)

	orders, total, err := s.orderRepo.FindWithFilter(repository.OrderFilter{
		UserID: userID,
		Status: opts.Status,
		Email:  strings.TrimSpace(opts.Email),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logger.Error("Failed to list orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, 0, apperrors.Internal(err)
	}
	return orders, total, nil
}

func (s *orderService) GetOrder(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, apperrors.Internal(err)
	}
	return order, nil
}

// GetUserOrder hides other users' orders behind a 404.
func (s *orderService) GetUserOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) LookupGuestOrder(orderNumber, email string) (*model.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	email = strings.TrimSpace(email)
	if orderNumber == "" || email == "" {
		return nil, apperrors.Validation(apperrors.ValidationRequired, "order_number and email are required")
	}

	order, err := s.orderRepo.FindByNumberAndEmail(orderNumber, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order forward and stamps the matching timestamp.
func (s *orderService) UpdateOrderStatus(orderID uint, update StatusUpdate) (*model.Order, error) {
	if !update.Status.Valid() {
		return nil, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "status", "status is not recognised")
	}

	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return nil, apperrors.FieldValidation(apperrors.ValidationInvalidFormat, "payment_status", "payment_status is not recognised")
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if !previous.CanTransitionTo(update.Status) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     previous,
			"to":       update.Status,
		})
		return nil, apperrors.Conflict(apperrors.OrderInvalidTransition,
			fmt.Sprintf("Order cannot move from %s to %s", previous, update.Status))
	}

	now := s.now()
	order.Status = update.Status
	switch update.Status {
	case model.OrderStatusShipped:
		order.ShippedAt = &now
	case model.OrderStatusDelivered:
		order.DeliveredAt = &now
	case model.OrderStatusCancelled:
		order.CancelledAt = &now
	}

	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
		if order.PaymentStatus == model.PaymentStatusCompleted && order.PaidAt == nil {
			order.PaidAt = &now
		}
	}

	if err := s.orderRepo.UpdateStatus(order); err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, apperrors.Internal(err)
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     previous,
		"to":       order.Status,
	})

	if s.mailer != nil {
		sendAsync("status_change", order, s.mailer.SendStatusChange)
	}
	publish(s.publisher, EventOrderStatusChanged, order)

	return order, nil
}

func (s *orderService) GetStats() (*repository.OrderStats, error) {
	stats, err := s.orderRepo.Stats()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}
