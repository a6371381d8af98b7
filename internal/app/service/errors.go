package service

import (
	apperrors "github.com/ikkim/candle-backend/internal/errors"
)

var (
	ErrProductNotFound   = apperrors.NotFound(apperrors.CatalogProductNotFound, "Product not found")
	ErrOptionNotFound    = apperrors.NotFound(apperrors.CatalogOptionNotFound, "Customization option not found")
	ErrOptionInUse       = apperrors.Conflict(apperrors.CatalogOptionInUse, "Option is still offered by at least one product")
	ErrSlugTaken         = apperrors.Conflict(apperrors.ResourceAlreadyExists, "A product with this slug already exists")
	ErrInsufficientStock = apperrors.Validation(apperrors.CartInsufficientStock, "Not enough stock for the requested quantity")
	ErrInvalidQuantity   = apperrors.FieldValidation(apperrors.ValidationInvalidRange, "quantity", "quantity must be at least 1")

	ErrCartNotFound     = apperrors.NotFound(apperrors.CartNotFound, "Cart not found")
	ErrCartItemNotFound = apperrors.NotFound(apperrors.CartItemNotFound, "Cart item not found")
	ErrEmptyCart        = apperrors.Validation(apperrors.CartEmpty, "Cart is empty")
	ErrCartForbidden    = apperrors.Forbidden(apperrors.AuthzOwnerOnly, "This cart does not belong to you")

	ErrPaymentNotVerified = apperrors.Validation(apperrors.CheckoutPaymentNotVerified, "Payment could not be verified")
	ErrOrderNotFound      = apperrors.NotFound(apperrors.OrderNotFound, "Order not found")

	ErrEmailAlreadyExists = apperrors.Conflict(apperrors.AuthEmailAlreadyExists, "An account with this email already exists")
	ErrInvalidCredentials = apperrors.Unauthorized(apperrors.AuthInvalidCredentials, "Invalid email or password")
	ErrUserNotFound       = apperrors.NotFound(apperrors.ResourceNotFound, "User not found")
)
