package core

import (
	"context"
	"fmt"
)

// recomputeTotals derives the order header from its live lines. The discount is
// carried over unchanged; tax is charged on the discounted subtotal.
func recomputeTotals(ctx context.Context, tax TaxCalculator, order *Order, items []OrderItem) (Totals, error) {
	subtotal := subtotalOf(items)
	taxable := subtotal - order.Discount
	if taxable < 0 {
		taxable = 0
	}
	taxCents, err := tax.ComputeTax(ctx, taxable, order.TaxJurisdiction)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to compute tax for order %d: %w", order.ID, err)
	}
	return Totals{
		Subtotal: subtotal,
		Discount: order.Discount,
		Tax:      taxCents,
		Total:    taxable + taxCents,
	}, nil
}

// refreshTotals recomputes and persists the order header inside r's transaction.
func refreshTotals(ctx context.Context, r Repos, tax TaxCalculator, order *Order) (Totals, error) {
	items, err := r.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return Totals{}, err
	}
	totals, err := recomputeTotals(ctx, tax, order, items)
	if err != nil {
		return Totals{}, err
	}
	if totals == order.Totals() {
		return totals, nil
	}
	if err := r.Orders().UpdateTotals(ctx, order.ID, totals); err != nil {
		return Totals{}, err
	}
	order.Subtotal, order.Discount, order.Tax, order.Total = totals.Subtotal, totals.Discount, totals.Tax, totals.Total
	return totals, nil
}
