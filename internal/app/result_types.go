package app

import (
	"retail-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// TotalsView is an order's monetary header in currency units.
type TotalsView struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func totalsView(t core.Totals) TotalsView {
	return TotalsView{
		Subtotal: t.Subtotal.Decimal(),
		Discount: t.Discount.Decimal(),
		Tax:      t.Tax.Decimal(),
		Total:    t.Total.Decimal(),
	}
}

// ImpactView is the before/after merchandise subtotal of a change batch in currency units.
type ImpactView struct {
	PreviousTotal decimal.Decimal `json:"previous_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
	Difference    decimal.Decimal `json:"difference"`
}

func impactView(prev, next, diff core.Cents) ImpactView {
	return ImpactView{PreviousTotal: prev.Decimal(), NewTotal: next.Decimal(), Difference: diff.Decimal()}
}

// PreviewResult is returned by PreviewAmendment.
type PreviewResult struct {
	Preview *core.AmendmentPreview `json:"preview"`
	Amounts ImpactView             `json:"amounts"`
}

// AmendmentResult is returned by amendment lifecycle operations.
type AmendmentResult struct {
	Amendment *core.Amendment `json:"amendment"`
	Amounts   ImpactView      `json:"amounts"`
}

func amendmentResult(a *core.Amendment) *AmendmentResult {
	return &AmendmentResult{Amendment: a, Amounts: impactView(a.PreviousTotal, a.NewTotal, a.Difference)}
}

// AmendmentListResult is returned by ListAmendments and ListPendingAmendments.
type AmendmentListResult struct {
	Amendments []core.Amendment `json:"amendments"`
}

// ApplyResult is returned by ApplyAmendment.
type ApplyResult struct {
	Amendment     *core.Amendment `json:"amendment"`
	Totals        TotalsView      `json:"totals"`
	BeforeVersion int             `json:"before_version"`
	AfterVersion  int             `json:"after_version"`
}

// VersionListResult is returned by ListVersions.
type VersionListResult struct {
	OrderID  int                 `json:"order_id"`
	Versions []core.OrderVersion `json:"versions"`
}

// VersionResult is returned by GetVersion.
type VersionResult struct {
	Version *core.OrderVersion `json:"version"`
	Totals  TotalsView         `json:"totals"`
}

// VersionDiffResult is returned by CompareVersions.
type VersionDiffResult struct {
	Diff            *core.VersionDiff `json:"diff"`
	TotalDifference decimal.Decimal   `json:"total_difference"`
}

// ShipmentResult is returned by CreateShipment and UpdateShipmentStatus.
type ShipmentResult struct {
	Shipment *core.Shipment `json:"shipment"`
}

// ShipmentListResult is returned by ListShipments.
type ShipmentListResult struct {
	OrderID   int             `json:"order_id"`
	Shipments []core.Shipment `json:"shipments"`
}

// BackorderResult is returned by MarkBackordered.
type BackorderResult struct {
	OrderID int              `json:"order_id"`
	Items   []core.OrderItem `json:"items"`
}

// FulfillmentSummaryResult is returned by GetFulfillmentSummary.
type FulfillmentSummaryResult struct {
	Summary *core.FulfillmentSummary `json:"summary"`
}
