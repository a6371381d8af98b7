package stripepay

import "errors"

var (
	// ErrNotConfigured is returned when no secret key was supplied
	ErrNotConfigured = errors.New("payment verification is not configured")

	// ErrIntentNotSucceeded is returned when the intent has not been captured
	ErrIntentNotSucceeded = errors.New("payment intent has not succeeded")

	// ErrAmountMismatch is returned when the captured amount differs from the order total
	ErrAmountMismatch = errors.New("payment intent amount does not match order total")

	// ErrCurrencyMismatch is returned when the intent was charged in another currency
	ErrCurrencyMismatch = errors.New("payment intent currency does not match store currency")
)
