package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineInput is one billable row as submitted by the caller.
type LineInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Totals is the result of ComputeTotals, each amount rounded to 2 decimals.
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals sums quantity x unit price over all items, applies the tax
// rate percentage, and rounds only the final amounts. Pure and
// order-independent.
func ComputeTotals(items []LineInput, taxRate decimal.Decimal) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, fmt.Errorf("%w: at least one line item required", ErrInvalidInput)
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return Totals{}, fmt.Errorf("%w: tax rate must be between 0 and 100", ErrInvalidInput)
	}

	subtotal := decimal.Zero
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return Totals{}, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidInput, i)
		}
		if it.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("%w: item %d unit price must not be negative", ErrInvalidInput, i)
		}
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
	}

	tax := subtotal.Mul(taxRate).Div(hundred)
	total := subtotal.Add(tax)
	return Totals{
		Subtotal:    subtotal.Round(2),
		TaxAmount:   tax.Round(2),
		TotalAmount: total.Round(2),
	}, nil
}
