package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentService records shipments and backorders against order lines.
type FulfillmentService struct {
	store  Store
	tax    TaxCalculator
	ledger *VersionLedger
	logger *slog.Logger
}

// NewFulfillmentService wires the tracker. A nil logger uses slog.Default().
func NewFulfillmentService(store Store, tax TaxCalculator, ledger *VersionLedger, logger *slog.Logger) *FulfillmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FulfillmentService{
		store:  store,
		tax:    tax,
		ledger: ledger,
		logger: logger.With("component", "fulfillment"),
	}
}

// CreateShipment records a shipment and increments the fulfilled quantity of
// every covered line. A line can never ship more than its active quantity.
func (s *FulfillmentService) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Detail: "a shipment must cover at least one order item"}
	}
	status := req.Status
	if status == "" {
		status = ShipmentShipped
	}
	if _, err := ParseShipmentStatus(string(status)); err != nil {
		return nil, &ValidationError{Field: "status", Detail: err.Error()}
	}
	seen := make(map[int]bool, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Field: "quantity", Detail: fmt.Sprintf("order item %d must ship a quantity > 0", line.OrderItemID)}
		}
		if seen[line.OrderItemID] {
			return nil, &ValidationError{Field: "items", Detail: fmt.Sprintf("order item %d appears more than once", line.OrderItemID)}
		}
		seen[line.OrderItemID] = true
	}

	var shipment *Shipment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		order, err := r.Orders().LockOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		items, err := r.Orders().ListItems(ctx, order.ID)
		if err != nil {
			return err
		}
		byID := indexItems(items)

		// Validate every line before the first write.
		for _, line := range req.Items {
			item, ok := byID[line.OrderItemID]
			if !ok {
				return &NotFoundError{Entity: "order_item", ID: line.OrderItemID}
			}
			if line.Quantity > item.Remaining() {
				return &ConsistencyError{
					Entity: "order_item",
					ID:     item.ID,
					Detail: fmt.Sprintf("cannot ship %d: only %d of %d remain unshipped", line.Quantity, item.Remaining(), item.ActiveQuantity()),
				}
			}
		}

		now := time.Now().UTC()
		shipment = &Shipment{
			OrderID:        order.ID,
			Carrier:        strings.TrimSpace(req.Carrier),
			TrackingNumber: strings.TrimSpace(req.TrackingNumber),
			Status:         status,
			Notes:          req.Notes,
			CreatedBy:      req.CreatedBy,
			CreatedAt:      now,
		}
		stampShipment(shipment, now)
		for _, line := range req.Items {
			shipment.Items = append(shipment.Items, ShipmentItem{OrderItemID: line.OrderItemID, Quantity: line.Quantity})
		}
		if err := r.Shipments().Insert(ctx, shipment); err != nil {
			return err
		}

		for _, line := range req.Items {
			item := byID[line.OrderItemID]
			item.QuantityFulfilled += line.Quantity
			if open := item.Remaining(); item.QuantityBackordered > open {
				item.QuantityBackordered = open
			}
			if err := item.checkCounters(); err != nil {
				return err
			}
			if err := r.Orders().UpdateItem(ctx, item); err != nil {
				return err
			}
		}

		_, err = refreshTotals(ctx, r, s.tax, order)
		return err
	})
	if err != nil {
		return nil, classify("create shipment", err)
	}

	s.logger.InfoContext(ctx, "shipment recorded",
		"order_id", shipment.OrderID,
		"shipment_id", shipment.ID,
		"items", len(shipment.Items),
		"carrier", shipment.Carrier,
	)
	return shipment, nil
}

// UpdateShipmentStatus moves a shipment forward through its carrier states.
func (s *FulfillmentService) UpdateShipmentStatus(ctx context.Context, shipmentID int, status ShipmentStatus) (*Shipment, error) {
	if _, err := ParseShipmentStatus(string(status)); err != nil {
		return nil, &ValidationError{Field: "status", Detail: err.Error()}
	}

	var shipment *Shipment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		var err error
		shipment, err = r.Shipments().Get(ctx, shipmentID)
		if err != nil {
			return err
		}
		if status.rank() < shipment.Status.rank() {
			return &ValidationError{
				Field:  "status",
				Detail: fmt.Sprintf("shipment %d cannot move back from %s to %s", shipment.ID, shipment.Status, status),
			}
		}
		if status == shipment.Status {
			return nil
		}
		shipment.Status = status
		stampShipment(shipment, time.Now().UTC())
		return r.Shipments().UpdateStatus(ctx, shipment)
	})
	if err != nil {
		return nil, classify("update shipment status", err)
	}

	s.logger.InfoContext(ctx, "shipment status updated", "shipment_id", shipment.ID, "status", shipment.Status)
	return shipment, nil
}

// MarkBackordered sets the backordered quantity of the given lines and snapshots
// the order as an auditable event.
func (s *FulfillmentService) MarkBackordered(ctx context.Context, orderID int, lines []BackorderLine, userID int) ([]OrderItem, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "items", Detail: "at least one order item is required"}
	}
	seen := make(map[int]bool, len(lines))
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, &ValidationError{Field: "quantity", Detail: fmt.Sprintf("order item %d backorder quantity cannot be negative", line.OrderItemID)}
		}
		if seen[line.OrderItemID] {
			return nil, &ValidationError{Field: "items", Detail: fmt.Sprintf("order item %d appears more than once", line.OrderItemID)}
		}
		seen[line.OrderItemID] = true
	}

	var updated []OrderItem
	err := s.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().LockOrder(ctx, orderID); err != nil {
			return err
		}
		items, err := r.Orders().ListItems(ctx, orderID)
		if err != nil {
			return err
		}
		byID := indexItems(items)

		parts := make([]string, 0, len(lines))
		for _, line := range lines {
			item, ok := byID[line.OrderItemID]
			if !ok {
				return &NotFoundError{Entity: "order_item", ID: line.OrderItemID}
			}
			item.QuantityBackordered = line.Quantity
			if err := item.checkCounters(); err != nil {
				return err
			}
			if err := r.Orders().UpdateItem(ctx, item); err != nil {
				return err
			}
			updated = append(updated, *item)
			parts = append(parts, fmt.Sprintf("%s ×%d", itemLabel(item), line.Quantity))
		}

		_, err = s.ledger.SnapshotTx(ctx, r, orderID, userID, "Backordered: "+strings.Join(parts, ", "))
		return err
	})
	if err != nil {
		return nil, classify("mark backordered", err)
	}

	s.logger.InfoContext(ctx, "items backordered", "order_id", orderID, "items", len(updated))
	return updated, nil
}

// ListShipments returns the shipments of an order, oldest first.
func (s *FulfillmentService) ListShipments(ctx context.Context, orderID int) ([]Shipment, error) {
	var list []Shipment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().GetOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		list, err = r.Shipments().ListForOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, classify("list shipments", err)
	}
	return list, nil
}

// GetFulfillmentSummary aggregates the fulfillment counters of an order.
func (s *FulfillmentService) GetFulfillmentSummary(ctx context.Context, orderID int) (*FulfillmentSummary, error) {
	var items []OrderItem
	err := s.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().GetOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		items, err = r.Orders().ListItems(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, classify("fulfillment summary", err)
	}
	return Summarize(orderID, items), nil
}

// Summarize computes the fulfillment summary of a set of order lines.
func Summarize(orderID int, items []OrderItem) *FulfillmentSummary {
	sum := &FulfillmentSummary{OrderID: orderID, TotalItems: len(items), Items: make([]ItemFulfillment, 0, len(items))}
	for i := range items {
		it := &items[i]
		sum.TotalQuantity += it.Quantity
		sum.Fulfilled += it.QuantityFulfilled
		sum.Backordered += it.QuantityBackordered
		sum.Cancelled += it.QuantityCancelled
		sum.Pending += it.Quantity - it.QuantityFulfilled - it.QuantityCancelled
		sum.Items = append(sum.Items, ItemFulfillment{
			OrderItemID: it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Fulfilled:   it.QuantityFulfilled,
			Backordered: it.QuantityBackordered,
			Cancelled:   it.QuantityCancelled,
			Status:      it.FulfillmentStatus(),
		})
	}

	active := sum.TotalQuantity - sum.Cancelled
	if active > 0 {
		pct := decimal.NewFromInt(int64(sum.Fulfilled)).
			Div(decimal.NewFromInt(int64(active))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		sum.PercentFulfilled = pct.InexactFloat64()
	}

	switch {
	case active > 0 && sum.Fulfilled >= active:
		sum.Status = SummaryComplete
	case sum.Fulfilled > 0:
		sum.Status = SummaryPartial
	default:
		sum.Status = SummaryPending
	}
	return sum
}

// stampShipment fills the timestamps implied by the shipment status.
func stampShipment(s *Shipment, now time.Time) {
	if s.Status.rank() >= ShipmentShipped.rank() && s.ShippedAt == nil {
		s.ShippedAt = &now
	}
	if s.Status == ShipmentDelivered && s.DeliveredAt == nil {
		s.DeliveredAt = &now
	}
}

func indexItems(items []OrderItem) map[int]*OrderItem {
	idx := make(map[int]*OrderItem, len(items))
	for i := range items {
		idx[items[i].ID] = &items[i]
	}
	return idx
}

func itemLabel(it *OrderItem) string {
	if it.ProductName != "" {
		return it.ProductName
	}
	return fmt.Sprintf("item %d", it.ID)
}
