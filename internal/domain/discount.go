package domain

import "github.com/shopspring/decimal"

// DiscountType distinguishes flat-amount and percentage discounts.
type DiscountType string

const (
	DiscountFlat    DiscountType = "Flat"
	DiscountPercent DiscountType = "Percentage"
)

// Discount is a resolved offer or promo code.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// Amount computes the discount against a base amount. Percentage
// discounts round up to the next whole unit; a nil discount is zero.
func (d *Discount) Amount(base decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	if d.Type == DiscountPercent {
		return PercentCeil(base, d.Value)
	}
	return d.Value
}
