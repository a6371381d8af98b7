package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/candle-backend/internal/app/model"
	"github.com/ikkim/candle-backend/internal/app/repository"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/pricing"
	"github.com/ikkim/candle-backend/pkg/logger"
	"github.com/ikkim/candle-backend/pkg/payment/stripepay"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentDetails struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type CheckoutRequest struct {
	CartID          uint           `json:"cart_id" binding:"required"`
	Email           string         `json:"email" binding:"required,email"`
	ShippingAddress model.Address  `json:"shipping_address"`
	BillingAddress  *model.Address `json:"billing_address"`
	PaymentDetails  PaymentDetails `json:"payment_details"`
}

type CheckoutService interface {
	ProcessCheckout(ctx context.Context, owner CartOwner, req CheckoutRequest) (*model.Order, error)
}

type checkoutService struct {
	db        *gorm.DB
	cartRepo  repository.CartRepository
	verifier  stripepay.Verifier
	mailer    OrderMailer
	publisher OrderEventPublisher
	now       func() time.Time
}

func NewCheckoutService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	verifier stripepay.Verifier,
	mailer OrderMailer,
	publisher OrderEventPublisher,
) CheckoutService {
	return &checkoutService{
		db:        db,
		cartRepo:  cartRepo,
		verifier:  verifier,
		mailer:    mailer,
		publisher: publisher,
		now:       time.Now,
	}
}

// NewOrderNumber returns an id like ORD-20261019-3F9A1C7B.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), suffix)
}

func (s *checkoutService) ProcessCheckout(ctx context.Context, owner CartOwner, req CheckoutRequest) (*model.Order, error) {
	fields := owner.fields()
	fields["cart_id"] = req.CartID
	logger.Info("Processing checkout", fields)

	cart, err := s.cartRepo.FindByID(req.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		logger.Error("Failed to fetch cart for checkout", err, fields)
		return nil, apperrors.Internal(err)
	}
	if !cart.ExpiresAt.After(s.now()) {
		logger.Warn("Checkout rejected: cart has expired", fields)
		return nil, ErrCartNotFound
	}

	if !owner.Owns(cart) {
		logger.Warn("Checkout denied: cart ownership mismatch", fields)
		return nil, ErrCartForbidden
	}
	if len(cart.Items) == 0 {
		logger.Warn("Checkout rejected: cart is empty", fields)
		return nil, ErrEmptyCart
	}

	totals := pricing.ComputeOrderTotals(cart.TotalPrice)

	billing := req.ShippingAddress
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		billing = *req.BillingAddress
	}

	order := &model.Order{
		OrderNumber:     NewOrderNumber(s.now()),
		UserID:          owner.UserID,
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentIntentID: req.PaymentDetails.PaymentIntentID,
		PaymentStatus:   model.PaymentStatusPending,
		Status:          model.OrderStatusPending,
	}

	if err := s.verifyPayment(ctx, order); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range cart.Items {
			item := cart.Items[i]

			var product model.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, item.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !product.IsActive) {
				logger.Warn("Checkout failed: product no longer available", map[string]interface{}{
					"cart_id":    cart.ID,
					"product_id": item.ProductID,
				})
				return apperrors.Validation(apperrors.CatalogProductNotFound,
					"A product in your cart is no longer available")
			}
			if err != nil {
				return err
			}

			if product.StockQuantity < item.Quantity {
				logger.Warn("Checkout failed: insufficient product stock", map[string]interface{}{
					"cart_id":    cart.ID,
					"product_id": item.ProductID,
					"requested":  item.Quantity,
					"available":  product.StockQuantity,
				})
				return apperrors.Validation(apperrors.CheckoutInsufficientStock,
					fmt.Sprintf("Only %d left of %s", product.StockQuantity, product.Name))
			}

			if err := tx.Model(&product).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity)).Error; err != nil {
				return err
			}

			item.Product = product
			order.Items = append(order.Items, model.NewOrderItem(&item))
		}

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, cart.ID).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		logger.Error("Checkout transaction failed", err, fields)
		return nil, apperrors.Internal(err)
	}

	logger.Info("Order created", map[string]interface{}{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"total":          order.Total,
		"payment_status": order.PaymentStatus,
	})

	if s.mailer != nil {
		sendAsync("confirmation", order, s.mailer.SendOrderConfirmation)
	}
	publish(s.publisher, EventOrderCreated, order)

	return order, nil
}

// verifyPayment checks the supplied payment intent against the order total
// and marks the order paid. Without an intent or a configured verifier the
// order stays pending payment.
func (s *checkoutService) verifyPayment(ctx context.Context, order *model.Order) error {
	if order.PaymentIntentID == "" {
		return nil
	}
	if s.verifier == nil {
		logger.Warn("Payment intent supplied but verification is not configured", map[string]interface{}{
			"payment_intent_id": order.PaymentIntentID,
		})
		return nil
	}

	_, err := s.verifier.Verify(ctx, order.PaymentIntentID, stripepay.ToCents(order.Total))
	switch {
	case err == nil:
		paidAt := s.now()
		order.PaymentStatus = model.PaymentStatusCompleted
		order.PaidAt = &paidAt
		return nil
	case errors.Is(err, stripepay.ErrNotConfigured):
		logger.Warn("Payment intent supplied but verification is not configured", map[string]interface{}{
			"payment_intent_id": order.PaymentIntentID,
		})
		return nil
	case errors.Is(err, stripepay.ErrIntentNotSucceeded),
		errors.Is(err, stripepay.ErrAmountMismatch),
		errors.Is(err, stripepay.ErrCurrencyMismatch):
		return &apperrors.AppError{
			Status:  ErrPaymentNotVerified.Status,
			Code:    ErrPaymentNotVerified.Code,
			Message: fmt.Sprintf("%s: %s", ErrPaymentNotVerified.Message, err.Error()),
			Err:     err,
		}
	default:
		return &apperrors.AppError{
			Status:  http.StatusBadGateway,
			Code:    apperrors.InternalExternalAPI,
			Message: "Payment provider is unavailable. Please try again later",
			Err:     err,
		}
	}
}
