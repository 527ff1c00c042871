package order

import "github.com/shopspring/decimal"

// TaxRate is the flat tax applied to the subtotal.
var TaxRate = decimal.RequireFromString("0.09")

// Totals is the pricing breakdown of an order. Every field is rounded to
// 2 decimal places.
type Totals struct {
	Subtotal     decimal.Decimal
	Taxes        decimal.Decimal
	ShippingCost decimal.Decimal
	GrossTotal   decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// Subtotal sums price times quantity over items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(qty(it)))
	}
	return sum.Round(2)
}

func qty(it Item) decimal.Decimal {
	return decimal.NewFromInt(int64(it.Quantity))
}

// Gross computes everything up to the coupon discount.
func Gross(subtotal, shippingCost decimal.Decimal) Totals {
	subtotal = subtotal.Round(2)
	taxes := subtotal.Mul(TaxRate).Round(2)
	shippingCost = shippingCost.Round(2)
	gross := subtotal.Add(taxes).Add(shippingCost).Round(2)
	return Totals{
		Subtotal:     subtotal,
		Taxes:        taxes,
		ShippingCost: shippingCost,
		GrossTotal:   gross,
		Discount:     decimal.Zero,
		Total:        gross,
	}
}

// WithDiscount returns t with discount applied to the gross total. The
// total never goes below zero.
func (t Totals) WithDiscount(discount decimal.Decimal) Totals {
	discount = discount.Round(2)
	if discount.GreaterThan(t.GrossTotal) {
		discount = t.GrossTotal
	}
	t.Discount = discount
	t.Total = t.GrossTotal.Sub(discount).Round(2)
	return t
}
