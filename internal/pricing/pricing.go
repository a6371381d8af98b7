// Package pricing holds the store-wide money rules: rounding, tax and shipping.
// The constants are fixed policy and are not configurable per product or region.
package pricing

import "math"

const (
	TaxRate               = 0.08
	FlatShipping          = 5.99
	FreeShippingThreshold = 50.0
)

// OrderTotals is the breakdown shown at checkout and stored on the order.
type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Line is one priced cart or order row.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SumLines is the full recomputation of a cart total. There is no incremental path.
func SumLines(lines []Line) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.UnitPrice * float64(l.Quantity)
	}
	return Round2(sum)
}

// ShippingFor returns zero only when the subtotal strictly exceeds the threshold.
func ShippingFor(subtotal float64) float64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return FlatShipping
}

// ComputeOrderTotals applies tax and shipping to a cart subtotal.
func ComputeOrderTotals(subtotal float64) OrderTotals {
	subtotal = Round2(subtotal)
	tax := Round2(subtotal * TaxRate)
	shipping := ShippingFor(subtotal)
	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    Round2(subtotal + tax + shipping),
	}
}
