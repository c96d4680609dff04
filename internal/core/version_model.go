package core

import "time"

// SnapshotItem is one active line as captured in an order version.
type SnapshotItem struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice Cents  `json:"unit_price_cents"`
	Name      string `json:"name"`
}

// Value is the snapshot line value.
func (s SnapshotItem) Value() Cents {
	return lineValue(s.Quantity, s.UnitPrice)
}

// OrderVersion is an append-only, point-in-time copy of an order.
type OrderVersion struct {
	ID            int            `json:"id"`
	OrderID       int            `json:"order_id"`
	VersionNumber int            `json:"version_number"`
	Totals        Totals         `json:"totals"`
	Items         []SnapshotItem `json:"items"`
	ChangeSummary string         `json:"change_summary"`
	CreatedBy     int            `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DiffKind classifies a product in a version diff.
type DiffKind string

const (
	DiffAdded    DiffKind = "added"
	DiffRemoved  DiffKind = "removed"
	DiffModified DiffKind = "modified"
)

// ItemDiff is the change of one product between two versions. From is nil for
// added products, To is nil for removed ones.
type ItemDiff struct {
	ProductID int           `json:"product_id"`
	Name      string        `json:"name"`
	Kind      DiffKind      `json:"kind"`
	From      *SnapshotItem `json:"from,omitempty"`
	To        *SnapshotItem `json:"to,omitempty"`
}

// VersionSide summarises one end of a diff.
type VersionSide struct {
	VersionNumber int    `json:"version_number"`
	Totals        Totals `json:"totals"`
	ItemCount     int    `json:"item_count"`
}

// VersionDiff compares two versions of the same order.
type VersionDiff struct {
	OrderID         int         `json:"order_id"`
	From            VersionSide `json:"from"`
	To              VersionSide `json:"to"`
	Changes         []ItemDiff  `json:"changes"`
	TotalDifference Cents       `json:"total_difference_cents"`
}
