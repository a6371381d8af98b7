package errors

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"
)

// ParseError converts a persistence error into an AppError a client can act on.
// Driver details stay out of the message; the original error is kept for logging.
// context is a short description such as "product" or "create option".
func ParseError(err error, context string) *AppError {
	if err == nil {
		return Internal(nil)
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return &AppError{Status: 404, Code: notFoundCode(context), Message: notFoundMessage(context), Err: err}
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(err, context)
	}

	errLower := strings.ToLower(err.Error())

	// postgres 23505 / sqlite UNIQUE
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(err, context)
	}

	// postgres 23503
	if strings.Contains(errLower, "foreign key constraint") {
		if strings.Contains(errLower, "still referenced") {
			return &AppError{Status: 409, Code: ResourceConflict, Message: "The " + subject(context) + " is still referenced and cannot be removed", Err: err}
		}
		return &AppError{Status: 404, Code: ResourceNotFound, Message: "A referenced record does not exist", Err: err}
	}

	// postgres 23514
	if strings.Contains(errLower, "check constraint") {
		return &AppError{Status: 400, Code: ValidationInvalidRange, Message: "A value is out of the allowed range", Err: err}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return &AppError{Status: 500, Code: InternalExternalAPI, Message: "A backing service is unavailable. Please try again later", Err: err}
	}

	return Internal(err)
}

func parseDuplicateKeyError(err error, context string) *AppError {
	errLower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errLower, "email"):
		return &AppError{Status: 409, Code: AuthEmailAlreadyExists, Message: "This email is already registered", Err: err}
	case strings.Contains(errLower, "slug"):
		return &AppError{Status: 409, Code: ResourceAlreadyExists, Message: "A product with this slug already exists", Err: err}
	case strings.Contains(errLower, "order_number"):
		return &AppError{Status: 409, Code: ResourceAlreadyExists, Message: "Order number collision. Please retry", Err: err}
	}

	return &AppError{Status: 409, Code: ResourceAlreadyExists, Message: "The " + subject(context) + " already exists", Err: err}
}

func subject(context string) string {
	if context == "" {
		return "record"
	}
	return context
}

func notFoundCode(context string) string {
	contextLower := strings.ToLower(context)
	switch {
	case strings.Contains(contextLower, "product"):
		return CatalogProductNotFound
	case strings.Contains(contextLower, "option"):
		return CatalogOptionNotFound
	case strings.Contains(contextLower, "cart item"):
		return CartItemNotFound
	case strings.Contains(contextLower, "cart"):
		return CartNotFound
	case strings.Contains(contextLower, "order"):
		return OrderNotFound
	}
	return ResourceNotFound
}

func notFoundMessage(context string) string {
	contextLower := strings.ToLower(context)
	switch {
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "option"):
		return "Customization option not found"
	case strings.Contains(contextLower, "cart item"):
		return "Cart item not found"
	case strings.Contains(contextLower, "cart"):
		return "Cart not found"
	case strings.Contains(contextLower, "order"):
		return "Order not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "The requested record was not found"
}
