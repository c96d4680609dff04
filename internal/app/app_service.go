package app

import (
	"context"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type appService struct {
	amendments  *core.AmendmentService
	ledger      *core.VersionLedger
	fulfillment *core.FulfillmentService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	amendments *core.AmendmentService,
	ledger *core.VersionLedger,
	fulfillment *core.FulfillmentService,
) ApplicationService {
	return &appService{
		amendments:  amendments,
		ledger:      ledger,
		fulfillment: fulfillment,
	}
}

// PreviewAmendment computes an amendment's effect without persisting it.
func (s *appService) PreviewAmendment(ctx context.Context, req AmendmentRequest) (*PreviewResult, error) {
	changes, err := toChangeSet(req)
	if err != nil {
		return nil, err
	}
	p, err := s.amendments.Preview(ctx, req.OrderID, changes)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Preview: p,
		Amounts: impactView(p.Impact.PreviousTotal, p.Impact.NewTotal, p.Impact.Difference),
	}, nil
}

// CreateAmendment persists a change batch against an order.
func (s *appService) CreateAmendment(ctx context.Context, req AmendmentRequest) (*AmendmentResult, error) {
	changes, err := toChangeSet(req)
	if err != nil {
		return nil, err
	}
	a, err := s.amendments.Create(ctx, core.CreateAmendmentRequest{
		OrderID:   req.OrderID,
		Changes:   changes,
		Reason:    req.Reason,
		CreatedBy: req.UserID,
	})
	if err != nil {
		return nil, err
	}
	return amendmentResult(a), nil
}

func (s *appService) ApproveAmendment(ctx context.Context, req DecisionRequest) (*AmendmentResult, error) {
	a, err := s.amendments.Approve(ctx, req.AmendmentID, req.ApproverID, req.Text)
	if err != nil {
		return nil, err
	}
	return amendmentResult(a), nil
}

func (s *appService) RejectAmendment(ctx context.Context, req DecisionRequest) (*AmendmentResult, error) {
	a, err := s.amendments.Reject(ctx, req.AmendmentID, req.ApproverID, req.Text)
	if err != nil {
		return nil, err
	}
	return amendmentResult(a), nil
}

func (s *appService) ApplyAmendment(ctx context.Context, amendmentID, userID int) (*ApplyResult, error) {
	res, err := s.amendments.Apply(ctx, amendmentID, userID)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{
		Amendment:     res.Amendment,
		Totals:        totalsView(res.Totals),
		BeforeVersion: res.Before.VersionNumber,
		AfterVersion:  res.After.VersionNumber,
	}, nil
}

func (s *appService) GetAmendment(ctx context.Context, amendmentID int) (*AmendmentResult, error) {
	a, err := s.amendments.Get(ctx, amendmentID)
	if err != nil {
		return nil, err
	}
	return amendmentResult(a), nil
}

func (s *appService) ListAmendments(ctx context.Context, orderID int) (*AmendmentListResult, error) {
	list, err := s.amendments.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &AmendmentListResult{Amendments: nonNil(list)}, nil
}

func (s *appService) ListPendingAmendments(ctx context.Context) (*AmendmentListResult, error) {
	list, err := s.amendments.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return &AmendmentListResult{Amendments: nonNil(list)}, nil
}

func (s *appService) ListVersions(ctx context.Context, orderID int) (*VersionListResult, error) {
	versions, err := s.ledger.ListVersions(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &VersionListResult{OrderID: orderID, Versions: nonNil(versions)}, nil
}

func (s *appService) GetVersion(ctx context.Context, orderID, versionNumber int) (*VersionResult, error) {
	v, err := s.ledger.GetVersion(ctx, orderID, versionNumber)
	if err != nil {
		return nil, err
	}
	return &VersionResult{Version: v, Totals: totalsView(v.Totals)}, nil
}

func (s *appService) CompareVersions(ctx context.Context, orderID, fromVersion, toVersion int) (*VersionDiffResult, error) {
	d, err := s.ledger.Diff(ctx, orderID, fromVersion, toVersion)
	if err != nil {
		return nil, err
	}
	return &VersionDiffResult{Diff: d, TotalDifference: d.TotalDifference.Decimal()}, nil
}

func (s *appService) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	lines := make([]core.ShipmentLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.ShipmentLine{OrderItemID: l.OrderItemID, Quantity: l.Quantity}
	}
	sh, err := s.fulfillment.CreateShipment(ctx, core.ShipmentRequest{
		OrderID:        req.OrderID,
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		Status:         core.ShipmentStatus(req.Status),
		Notes:          req.Notes,
		Items:          lines,
		CreatedBy:      req.UserID,
	})
	if err != nil {
		return nil, err
	}
	return &ShipmentResult{Shipment: sh}, nil
}

func (s *appService) UpdateShipmentStatus(ctx context.Context, shipmentID int, status string) (*ShipmentResult, error) {
	sh, err := s.fulfillment.UpdateShipmentStatus(ctx, shipmentID, core.ShipmentStatus(status))
	if err != nil {
		return nil, err
	}
	return &ShipmentResult{Shipment: sh}, nil
}

func (s *appService) ListShipments(ctx context.Context, orderID int) (*ShipmentListResult, error) {
	list, err := s.fulfillment.ListShipments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ShipmentListResult{OrderID: orderID, Shipments: nonNil(list)}, nil
}

func (s *appService) MarkBackordered(ctx context.Context, req BackorderRequest) (*BackorderResult, error) {
	lines := make([]core.BackorderLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.BackorderLine{OrderItemID: l.OrderItemID, Quantity: l.Quantity}
	}
	items, err := s.fulfillment.MarkBackordered(ctx, req.OrderID, lines, req.UserID)
	if err != nil {
		return nil, err
	}
	return &BackorderResult{OrderID: req.OrderID, Items: items}, nil
}

func (s *appService) GetFulfillmentSummary(ctx context.Context, orderID int) (*FulfillmentSummaryResult, error) {
	sum, err := s.fulfillment.GetFulfillmentSummary(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &FulfillmentSummaryResult{Summary: sum}, nil
}

// toChangeSet converts currency-unit overrides to cents.
func toChangeSet(req AmendmentRequest) (core.ChangeSet, error) {
	cs := core.ChangeSet{UseQuotePrices: req.UseQuotePrices}
	for _, a := range req.Add {
		price, err := overrideCents(a.ProductID, a.PriceOverride)
		if err != nil {
			return cs, err
		}
		cs.Add = append(cs.Add, core.AddItem{ProductID: a.ProductID, Quantity: a.Quantity, PriceOverride: price})
	}
	for _, id := range req.Remove {
		cs.Remove = append(cs.Remove, core.RemoveItem{ProductID: id})
	}
	for _, m := range req.Modify {
		price, err := overrideCents(m.ProductID, m.PriceOverride)
		if err != nil {
			return cs, err
		}
		cs.Modify = append(cs.Modify, core.ModifyItem{ProductID: m.ProductID, Quantity: m.Quantity, PriceOverride: price})
	}
	return cs, nil
}

func overrideCents(productID int, d *decimal.Decimal) (*core.Cents, error) {
	if d == nil {
		return nil, nil
	}
	if !d.Equal(d.Round(2)) {
		return nil, &core.ValidationError{
			Field:  "price_override",
			Detail: fmt.Sprintf("product %d override %s has more than two decimal places", productID, d),
		}
	}
	c := core.CentsFromDecimal(*d)
	return &c, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
