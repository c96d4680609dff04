package core

import "time"

// Order is a placed customer order. Orders are created by order placement
// outside this package; here they are only mutated by amendment application
// and fulfillment recording.
//
// QuoteID is a one-directional reference to the quote the initial prices came
// from. The order does not own the quote.
type Order struct {
	ID                 int        `json:"id"`
	OrderNumber        string     `json:"order_number"`
	Status             string     `json:"status"`
	QuoteID            *int       `json:"quote_id,omitempty"`
	TaxJurisdiction    string     `json:"tax_jurisdiction"`
	VersionNumber      int        `json:"version_number"`
	PriceLocked        bool       `json:"price_locked"`
	PriceLockUntil     *time.Time `json:"price_lock_until,omitempty"`
	QuotePricesHonored bool       `json:"quote_prices_honored"`
	Subtotal           Cents      `json:"subtotal_cents"`
	Discount           Cents      `json:"discount_cents"`
	Tax                Cents      `json:"tax_cents"`
	Total              Cents      `json:"total_cents"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PriceLockActive reports whether the order must keep honoring its quote
// prices at the given instant.
func (o *Order) PriceLockActive(now time.Time) bool {
	if !o.PriceLocked {
		return false
	}
	return o.PriceLockUntil == nil || now.Before(*o.PriceLockUntil)
}

// Totals is the monetary header of an order.
type Totals struct {
	Subtotal Cents `json:"subtotal_cents"`
	Discount Cents `json:"discount_cents"`
	Tax      Cents `json:"tax_cents"`
	Total    Cents `json:"total_cents"`
}

// Totals returns the order's current monetary header.
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, Discount: o.Discount, Tax: o.Tax, Total: o.Total}
}

// OrderItem is one line of an order with its fulfillment counters.
// Invariant: QuantityFulfilled + QuantityBackordered + QuantityCancelled <= Quantity.
type OrderItem struct {
	ID                  int       `json:"id"`
	OrderID             int       `json:"order_id"`
	ProductID           int       `json:"product_id"`
	ProductName         string    `json:"product_name"`
	SKU                 string    `json:"sku"`
	Quantity            int       `json:"quantity"`
	PriceAtOrder        Cents     `json:"price_at_order_cents"`
	LineTotal           Cents     `json:"line_total_cents"`
	QuantityFulfilled   int       `json:"quantity_fulfilled"`
	QuantityBackordered int       `json:"quantity_backordered"`
	QuantityCancelled   int       `json:"quantity_cancelled"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ActiveQuantity is the part of the line that has not been cancelled.
func (i *OrderItem) ActiveQuantity() int {
	return i.Quantity - i.QuantityCancelled
}

// Active reports whether the line still carries any billable quantity.
func (i *OrderItem) Active() bool {
	return i.ActiveQuantity() > 0
}

// Value is the billable value of the line at its charged price.
func (i *OrderItem) Value() Cents {
	return lineValue(i.ActiveQuantity(), i.PriceAtOrder)
}

// Remaining is the active quantity not yet shipped.
func (i *OrderItem) Remaining() int {
	return i.ActiveQuantity() - i.QuantityFulfilled
}

// FulfillmentStatus derives the line's label from its counters. It is never stored
// as an independent fact.
func (i *OrderItem) FulfillmentStatus() FulfillmentStatus {
	active := i.ActiveQuantity()
	switch {
	case active <= 0:
		return FulfillmentCancelled
	case i.QuantityFulfilled >= active:
		return FulfillmentShipped
	case i.QuantityFulfilled > 0:
		return FulfillmentAllocated
	case i.QuantityBackordered > 0:
		return FulfillmentBackordered
	default:
		return FulfillmentPending
	}
}

// checkCounters enforces the counters invariant.
func (i *OrderItem) checkCounters() error {
	if i.QuantityFulfilled < 0 || i.QuantityBackordered < 0 || i.QuantityCancelled < 0 {
		return &ConsistencyError{Entity: "order_item", ID: i.ID, Detail: "fulfillment counters cannot be negative"}
	}
	if sum := i.QuantityFulfilled + i.QuantityBackordered + i.QuantityCancelled; sum > i.Quantity {
		return &ConsistencyError{
			Entity: "order_item",
			ID:     i.ID,
			Detail: "fulfilled + backordered + cancelled exceeds ordered quantity",
		}
	}
	return nil
}

// FulfillmentStatus is the derived label of an order item.
type FulfillmentStatus string

const (
	FulfillmentPending     FulfillmentStatus = "pending"
	FulfillmentAllocated   FulfillmentStatus = "allocated"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentBackordered FulfillmentStatus = "backordered"
	FulfillmentCancelled   FulfillmentStatus = "cancelled"
)

// subtotalOf sums the billable value of all lines.
func subtotalOf(items []OrderItem) Cents {
	var total Cents
	for i := range items {
		total += items[i].Value()
	}
	return total
}

// activeItemByProduct returns the active line for a product, if any.
func activeItemByProduct(items []OrderItem, productID int) (*OrderItem, bool) {
	for i := range items {
		if items[i].ProductID == productID && items[i].Active() {
			return &items[i], true
		}
	}
	return nil, false
}
