package app

import (
	"github.com/shopspring/decimal"
)

// AmendmentRequest is the input for previewing or creating an amendment.
// Prices are in currency units (319.00), not cents.
type AmendmentRequest struct {
	OrderID        int
	Add            []AddLine
	Remove         []int // product IDs
	Modify         []ModifyLine
	UseQuotePrices bool
	Reason         string
	UserID         int
}

// AddLine requests a new order line.
type AddLine struct {
	ProductID     int
	Quantity      int
	PriceOverride *decimal.Decimal // nil means "resolve the price"
}

// ModifyLine requests a new quantity and optionally a new price for an existing line.
type ModifyLine struct {
	ProductID     int
	Quantity      int
	PriceOverride *decimal.Decimal
}

// DecisionRequest is the input for approving or rejecting an amendment.
// Text is the approval notes or the rejection reason.
type DecisionRequest struct {
	AmendmentID int
	ApproverID  int
	Text        string
}

// ShipmentRequest is the input for recording a shipment.
type ShipmentRequest struct {
	OrderID        int
	Carrier        string
	TrackingNumber string
	Status         string // empty means "shipped"
	Notes          string
	UserID         int
	Lines          []ShipmentLine
}

// ShipmentLine is the quantity of one order item carried by a shipment.
type ShipmentLine struct {
	OrderItemID int
	Quantity    int
}

// BackorderRequest is the input for marking order items backordered.
type BackorderRequest struct {
	OrderID int
	UserID  int
	Lines   []ShipmentLine
}
