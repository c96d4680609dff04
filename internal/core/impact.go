package core

import (
	"fmt"
	"time"
)

// PriceBook holds the catalog and quote prices gathered for a change batch, so
// that ComputeImpact itself does no I/O.
type PriceBook struct {
	Products   map[int]Product
	QuoteLines map[int]QuoteLine
}

func (pb PriceBook) input(productID int, override *Cents, useQuotePrices bool) PriceInput {
	in := PriceInput{Override: override, UseQuotePrices: useQuotePrices}
	if p, ok := pb.Products[productID]; ok {
		in.Product = &p
	}
	if q, ok := pb.QuoteLines[productID]; ok {
		in.QuoteLine = &q
	}
	return in
}

// ItemChange is the computed effect of a change on one product.
type ItemChange struct {
	ProductID        int         `json:"product_id"`
	ProductName      string      `json:"product_name"`
	ChangeType       ChangeType  `json:"change_type"`
	PreviousQuantity int         `json:"previous_quantity"`
	NewQuantity      int         `json:"new_quantity"`
	PreviousPrice    Cents       `json:"previous_price_cents"`
	QuotePrice       *Cents      `json:"quote_price_cents,omitempty"`
	CatalogPrice     *Cents      `json:"catalog_price_cents,omitempty"`
	AppliedPrice     Cents       `json:"applied_price_cents"`
	PriceSource      PriceSource `json:"price_source"`
	HasPriceChange   bool        `json:"has_price_change"`
	LineDelta        Cents       `json:"line_delta_cents"`
}

// Impact is the effect of a change batch on an order's merchandise subtotal.
type Impact struct {
	PreviousTotal Cents        `json:"previous_total_cents"`
	NewTotal      Cents        `json:"new_total_cents"`
	Difference    Cents        `json:"difference_cents"`
	ItemChanges   []ItemChange `json:"item_changes"`
}

// ComputeImpact computes the line deltas and the resulting subtotal of applying
// changes to items. It mutates nothing and returns identical output for
// identical input.
//
// Removing a line cancels only its unshipped remainder, so the shipped part of
// a removed line stays in the new total.
func ComputeImpact(order *Order, items []OrderItem, changes ChangeSet, prices PriceBook, now time.Time) (*Impact, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	working := make(map[int]OrderItem, len(items))
	for _, it := range items {
		if it.Active() {
			working[it.ProductID] = it
		}
	}

	impact := &Impact{PreviousTotal: subtotalOf(items)}
	var newTotal Cents

	for _, a := range changes.Add {
		if _, exists := working[a.ProductID]; exists {
			return nil, &ValidationError{
				Field:  "add_items",
				Detail: fmt.Sprintf("product %d is already on the order; modify it instead", a.ProductID),
			}
		}
		product, ok := prices.Products[a.ProductID]
		if !ok {
			return nil, &NotFoundError{Entity: "product", ID: a.ProductID}
		}
		res := ResolvePrice(order, prices.input(a.ProductID, a.PriceOverride, changes.UseQuotePrices), now)
		line := lineValue(a.Quantity, res.Price)
		newTotal += line
		impact.ItemChanges = append(impact.ItemChanges, ItemChange{
			ProductID:      a.ProductID,
			ProductName:    product.Name,
			ChangeType:     ChangeAdd,
			NewQuantity:    a.Quantity,
			QuotePrice:     res.QuotePrice,
			CatalogPrice:   res.CatalogPrice,
			AppliedPrice:   res.Price,
			PriceSource:    res.Source,
			HasPriceChange: res.HasPriceChange,
			LineDelta:      line,
		})
	}

	for _, r := range changes.Remove {
		item, ok := working[r.ProductID]
		if !ok {
			return nil, &NotFoundError{Entity: "order line for product", ID: r.ProductID}
		}
		delete(working, r.ProductID)

		if item.Remaining() == 0 {
			return nil, &ConsistencyError{
				Entity: "order_item",
				ID:     item.ID,
				Detail: "line fully shipped, nothing left to cancel",
			}
		}
		kept := lineValue(item.QuantityFulfilled, item.PriceAtOrder)
		newTotal += kept
		impact.ItemChanges = append(impact.ItemChanges, ItemChange{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			ChangeType:       ChangeRemove,
			PreviousQuantity: item.ActiveQuantity(),
			NewQuantity:      item.QuantityFulfilled,
			PreviousPrice:    item.PriceAtOrder,
			AppliedPrice:     item.PriceAtOrder,
			PriceSource:      PriceSourceOrder,
			LineDelta:        kept - item.Value(),
		})
	}

	for _, m := range changes.Modify {
		item, ok := working[m.ProductID]
		if !ok {
			return nil, &NotFoundError{Entity: "order line for product", ID: m.ProductID}
		}
		delete(working, m.ProductID)

		if m.Quantity < item.QuantityFulfilled {
			return nil, &ConsistencyError{
				Entity: "order_item",
				ID:     item.ID,
				Detail: fmt.Sprintf("cannot reduce quantity to %d: %d already shipped", m.Quantity, item.QuantityFulfilled),
			}
		}
		if _, ok := prices.Products[m.ProductID]; !ok && m.PriceOverride == nil {
			return nil, &NotFoundError{Entity: "product", ID: m.ProductID}
		}

		res := ResolvePrice(order, prices.input(m.ProductID, m.PriceOverride, changes.UseQuotePrices), now)
		prevQty := item.ActiveQuantity()
		prevLine := lineValue(prevQty, item.PriceAtOrder)
		newLine := lineValue(m.Quantity, res.Price)
		newTotal += newLine

		if prevQty == m.Quantity && item.PriceAtOrder == res.Price {
			continue
		}
		impact.ItemChanges = append(impact.ItemChanges, ItemChange{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			ChangeType:       ChangeModify,
			PreviousQuantity: prevQty,
			NewQuantity:      m.Quantity,
			PreviousPrice:    item.PriceAtOrder,
			QuotePrice:       res.QuotePrice,
			CatalogPrice:     res.CatalogPrice,
			AppliedPrice:     res.Price,
			PriceSource:      res.Source,
			HasPriceChange:   res.HasPriceChange,
			LineDelta:        newLine - prevLine,
		})
	}

	for _, it := range working {
		newTotal += it.Value()
	}

	impact.NewTotal = newTotal
	impact.Difference = newTotal - impact.PreviousTotal
	return impact, nil
}
