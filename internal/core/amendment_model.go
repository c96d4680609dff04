package core

import (
	"fmt"
	"time"
)

// AmendmentStatus is the lifecycle state of an amendment:
//
//	draft ─────────────────────────────┐
//	pending_approval → approved ───────┴→ applied
//	pending_approval → rejected
type AmendmentStatus string

const (
	AmendmentDraft           AmendmentStatus = "draft"
	AmendmentPendingApproval AmendmentStatus = "pending_approval"
	AmendmentApproved        AmendmentStatus = "approved"
	AmendmentRejected        AmendmentStatus = "rejected"
	AmendmentApplied         AmendmentStatus = "applied"
)

// ParseAmendmentStatus validates a stored status value.
func ParseAmendmentStatus(s string) (AmendmentStatus, error) {
	switch st := AmendmentStatus(s); st {
	case AmendmentDraft, AmendmentPendingApproval, AmendmentApproved, AmendmentRejected, AmendmentApplied:
		return st, nil
	default:
		return "", fmt.Errorf("unknown amendment status %q", s)
	}
}

// Final reports whether the amendment can no longer change. Unknown values are
// not final; ParseAmendmentStatus rejects them at the storage boundary.
func (s AmendmentStatus) Final() bool {
	switch s {
	case AmendmentApplied, AmendmentRejected:
		return true
	default:
		return false
	}
}

// ChangeType is the per-line operation of an amendment.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
	ChangeModify ChangeType = "modify"
)

// ParseChangeType validates a stored change type.
func ParseChangeType(s string) (ChangeType, error) {
	switch ct := ChangeType(s); ct {
	case ChangeAdd, ChangeRemove, ChangeModify:
		return ct, nil
	default:
		return "", fmt.Errorf("unknown change type %q", s)
	}
}

// AmendmentType summarises the kinds of change in one amendment.
type AmendmentType string

const (
	AmendmentTypeAdd    AmendmentType = "add"
	AmendmentTypeRemove AmendmentType = "remove"
	AmendmentTypeModify AmendmentType = "modify"
	AmendmentTypeMixed  AmendmentType = "mixed"
)

// ParseAmendmentType validates a stored amendment type.
func ParseAmendmentType(s string) (AmendmentType, error) {
	switch at := AmendmentType(s); at {
	case AmendmentTypeAdd, AmendmentTypeRemove, AmendmentTypeModify, AmendmentTypeMixed:
		return at, nil
	default:
		return "", fmt.Errorf("unknown amendment type %q", s)
	}
}

// amendmentTypeOf derives the amendment type from its line changes.
func amendmentTypeOf(changes []ItemChange) AmendmentType {
	seen := make(map[ChangeType]bool)
	for _, c := range changes {
		seen[c.ChangeType] = true
	}
	if len(seen) != 1 {
		return AmendmentTypeMixed
	}
	for ct := range seen {
		switch ct {
		case ChangeAdd:
			return AmendmentTypeAdd
		case ChangeRemove:
			return AmendmentTypeRemove
		case ChangeModify:
			return AmendmentTypeModify
		}
	}
	return AmendmentTypeMixed
}

// Amendment is a proposed, auditable change to an order's lines.
// It is immutable once applied or rejected.
type Amendment struct {
	ID               int             `json:"id"`
	OrderID          int             `json:"order_id"`
	AmendmentNumber  string          `json:"amendment_number"`
	Sequence         int             `json:"sequence"`
	Type             AmendmentType   `json:"type"`
	Status           AmendmentStatus `json:"status"`
	PreviousTotal    Cents           `json:"previous_total_cents"`
	NewTotal         Cents           `json:"new_total_cents"`
	Difference       Cents           `json:"difference_cents"`
	UseQuotePrices   bool            `json:"use_quote_prices"`
	RequiresApproval bool            `json:"requires_approval"`
	Reason           string          `json:"reason"`
	CreatedBy        int             `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	ApprovedBy       *int            `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	ApprovalNotes    string          `json:"approval_notes,omitempty"`
	RejectedBy       *int            `json:"rejected_by,omitempty"`
	RejectedAt       *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	AppliedBy        *int            `json:"applied_by,omitempty"`
	AppliedAt        *time.Time      `json:"applied_at,omitempty"`
	Items            []AmendmentItem `json:"items"`
}

// AmendmentItem is one affected product of an amendment. Never mutated after creation.
type AmendmentItem struct {
	ID               int         `json:"id"`
	AmendmentID      int         `json:"amendment_id"`
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

// ChangeSet is a batch of requested line operations.
type ChangeSet struct {
	Add            []AddItem    `json:"add_items"`
	Remove         []RemoveItem `json:"remove_items"`
	Modify         []ModifyItem `json:"modify_items"`
	UseQuotePrices bool         `json:"use_quote_prices"`
}

// AddItem requests a new line.
type AddItem struct {
	ProductID     int    `json:"product_id"`
	Quantity      int    `json:"quantity"`
	PriceOverride *Cents `json:"price_override_cents,omitempty"`
}

// RemoveItem requests cancellation of the product's active line.
type RemoveItem struct {
	ProductID int `json:"product_id"`
}

// ModifyItem requests a new quantity and/or price for the product's active line.
type ModifyItem struct {
	ProductID     int    `json:"product_id"`
	Quantity      int    `json:"quantity"`
	PriceOverride *Cents `json:"price_override_cents,omitempty"`
}

// Empty reports whether the batch requests nothing.
func (c ChangeSet) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0 && len(c.Modify) == 0
}

// productIDs lists every product the batch touches, in request order.
func (c ChangeSet) productIDs() []int {
	ids := make([]int, 0, len(c.Add)+len(c.Remove)+len(c.Modify))
	for _, a := range c.Add {
		ids = append(ids, a.ProductID)
	}
	for _, r := range c.Remove {
		ids = append(ids, r.ProductID)
	}
	for _, m := range c.Modify {
		ids = append(ids, m.ProductID)
	}
	return ids
}

// Validate checks the batch shape. Checks against the order's lines happen in ComputeImpact.
func (c ChangeSet) Validate() error {
	if c.Empty() {
		return &ValidationError{Field: "changes", Detail: "at least one add, remove or modify item is required"}
	}
	seen := make(map[int]bool)
	for _, id := range c.productIDs() {
		if id <= 0 {
			return &ValidationError{Field: "product_id", Detail: fmt.Sprintf("%d is not a valid product id", id)}
		}
		if seen[id] {
			return &ValidationError{Field: "changes", Detail: fmt.Sprintf("product %d appears more than once", id)}
		}
		seen[id] = true
	}
	for _, a := range c.Add {
		if a.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Detail: fmt.Sprintf("add of product %d must have quantity > 0", a.ProductID)}
		}
		if a.PriceOverride != nil && *a.PriceOverride < 0 {
			return &ValidationError{Field: "price_override", Detail: fmt.Sprintf("product %d override cannot be negative", a.ProductID)}
		}
	}
	for _, m := range c.Modify {
		if m.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Detail: fmt.Sprintf("modify of product %d must have quantity > 0 (use remove instead)", m.ProductID)}
		}
		if m.PriceOverride != nil && *m.PriceOverride < 0 {
			return &ValidationError{Field: "price_override", Detail: fmt.Sprintf("product %d override cannot be negative", m.ProductID)}
		}
	}
	return nil
}
