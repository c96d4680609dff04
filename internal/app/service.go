package app

import (
	"context"
)

// ApplicationService is the single interface the HTTP adapter calls. It owns
// the conversion between decimal currency units at the edge and integer cents
// in the core. Implementations contain no HTTP or display logic.
type ApplicationService interface {
	// PreviewAmendment computes the impact and approval requirement of a change
	// batch without persisting anything.
	PreviewAmendment(ctx context.Context, req AmendmentRequest) (*PreviewResult, error)

	// CreateAmendment persists a change batch as a draft or pending_approval amendment.
	CreateAmendment(ctx context.Context, req AmendmentRequest) (*AmendmentResult, error)

	// ApproveAmendment moves a pending_approval amendment to approved.
	ApproveAmendment(ctx context.Context, req DecisionRequest) (*AmendmentResult, error)

	// RejectAmendment moves a pending_approval amendment to rejected. A reason is required.
	RejectAmendment(ctx context.Context, req DecisionRequest) (*AmendmentResult, error)

	// ApplyAmendment writes an amendment to the live order lines and recomputes totals.
	ApplyAmendment(ctx context.Context, amendmentID, userID int) (*ApplyResult, error)

	GetAmendment(ctx context.Context, amendmentID int) (*AmendmentResult, error)
	ListAmendments(ctx context.Context, orderID int) (*AmendmentListResult, error)
	ListPendingAmendments(ctx context.Context) (*AmendmentListResult, error)

	// ListVersions returns the order's versions, newest first.
	ListVersions(ctx context.Context, orderID int) (*VersionListResult, error)
	GetVersion(ctx context.Context, orderID, versionNumber int) (*VersionResult, error)
	CompareVersions(ctx context.Context, orderID, fromVersion, toVersion int) (*VersionDiffResult, error)

	// CreateShipment records a shipment and increments the covered lines' fulfilled quantities.
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)
	UpdateShipmentStatus(ctx context.Context, shipmentID int, status string) (*ShipmentResult, error)
	ListShipments(ctx context.Context, orderID int) (*ShipmentListResult, error)

	// MarkBackordered sets backordered quantities and records a version snapshot.
	MarkBackordered(ctx context.Context, req BackorderRequest) (*BackorderResult, error)
	GetFulfillmentSummary(ctx context.Context, orderID int) (*FulfillmentSummaryResult, error)
}
