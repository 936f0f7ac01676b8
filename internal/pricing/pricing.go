package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal computes the charge for a single order line:
// unitPrice * quantity * (1 - discountPercent/100), rounded to currency
// precision. Inputs are validated upstream (quantity >= 1, discount 0..100),
// so the result is never negative.
func LineTotal(unitPrice decimal.Decimal, quantity int, discountPercent decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	multiplier := hundred.Sub(discountPercent).Div(hundred)
	return unitPrice.Mul(qty).Mul(multiplier).Round(2)
}
