package core

import (
	"fmt"
	"time"
)

// ShipmentStatus tracks a shipment through the carrier. It only moves forward:
//
//	pending → shipped → in_transit → delivered
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentShipped   ShipmentStatus = "shipped"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
)

// ParseShipmentStatus validates a shipment status value.
func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	switch st := ShipmentStatus(s); st {
	case ShipmentPending, ShipmentShipped, ShipmentInTransit, ShipmentDelivered:
		return st, nil
	default:
		return "", fmt.Errorf("unknown shipment status %q", s)
	}
}

func (s ShipmentStatus) rank() int {
	switch s {
	case ShipmentPending:
		return 0
	case ShipmentShipped:
		return 1
	case ShipmentInTransit:
		return 2
	case ShipmentDelivered:
		return 3
	default:
		return -1
	}
}

// Shipment is a physical dispatch covering part or all of an order.
type Shipment struct {
	ID             int            `json:"id"`
	OrderID        int            `json:"order_id"`
	Carrier        string         `json:"carrier"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	Notes          string         `json:"notes"`
	CreatedBy      int            `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	ShippedAt      *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	Items          []ShipmentItem `json:"items"`
}

// ShipmentItem is the quantity of one order item carried by a shipment.
type ShipmentItem struct {
	ID          int `json:"id"`
	ShipmentID  int `json:"shipment_id"`
	OrderItemID int `json:"order_item_id"`
	Quantity    int `json:"quantity"`
}

// ShipmentRequest describes a shipment to record.
type ShipmentRequest struct {
	OrderID        int
	Carrier        string
	TrackingNumber string
	Status         ShipmentStatus
	Notes          string
	Items          []ShipmentLine
	CreatedBy      int
}

// ShipmentLine is one order item and the quantity shipped.
type ShipmentLine struct {
	OrderItemID int `json:"order_item_id"`
	Quantity    int `json:"quantity"`
}

// BackorderLine sets the backordered quantity of one order item.
type BackorderLine struct {
	OrderItemID int `json:"order_item_id"`
	Quantity    int `json:"quantity"`
}

// SummaryStatus is the coarse fulfillment state of a whole order.
type SummaryStatus string

const (
	SummaryPending  SummaryStatus = "pending"
	SummaryPartial  SummaryStatus = "partial"
	SummaryComplete SummaryStatus = "complete"
)

// FulfillmentSummary aggregates the fulfillment counters of an order.
type FulfillmentSummary struct {
	OrderID          int               `json:"order_id"`
	TotalItems       int               `json:"total_items"`
	TotalQuantity    int               `json:"total_quantity"`
	Fulfilled        int               `json:"fulfilled"`
	Backordered      int               `json:"backordered"`
	Cancelled        int               `json:"cancelled"`
	Pending          int               `json:"pending"`
	PercentFulfilled float64           `json:"percent_fulfilled"`
	Status           SummaryStatus     `json:"status"`
	Items            []ItemFulfillment `json:"items"`
}

// ItemFulfillment is the per-line view inside a summary.
type ItemFulfillment struct {
	OrderItemID int               `json:"order_item_id"`
	ProductID   int               `json:"product_id"`
	Quantity    int               `json:"quantity"`
	Fulfilled   int               `json:"fulfilled"`
	Backordered int               `json:"backordered"`
	Cancelled   int               `json:"cancelled"`
	Status      FulfillmentStatus `json:"status"`
}
