package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AmendmentService owns the amendment lifecycle and is the only component that
// changes order lines on behalf of an amendment.
type AmendmentService struct {
	store   Store
	catalog Catalog
	quotes  QuoteLookup
	tax     TaxCalculator
	ledger  *VersionLedger
	policy  ApprovalPolicy
	logger  *slog.Logger
}

// NewAmendmentService wires the service to its collaborators. A nil logger uses slog.Default().
func NewAmendmentService(
	store Store,
	catalog Catalog,
	quotes QuoteLookup,
	tax TaxCalculator,
	ledger *VersionLedger,
	policy ApprovalPolicy,
	logger *slog.Logger,
) *AmendmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AmendmentService{
		store:   store,
		catalog: catalog,
		quotes:  quotes,
		tax:     tax,
		ledger:  ledger,
		policy:  policy,
		logger:  logger.With("component", "amendments"),
	}
}

// CreateAmendmentRequest proposes a change batch against an order.
type CreateAmendmentRequest struct {
	OrderID   int
	Changes   ChangeSet
	Reason    string
	CreatedBy int
}

// AmendmentPreview is the computed effect of a change batch before it is persisted.
type AmendmentPreview struct {
	OrderID          int           `json:"order_id"`
	Type             AmendmentType `json:"type"`
	Impact           Impact        `json:"impact"`
	RequiresApproval bool          `json:"requires_approval"`
}

// ApplyResult is the outcome of applying an amendment.
type ApplyResult struct {
	Amendment *Amendment    `json:"amendment"`
	Totals    Totals        `json:"totals"`
	Before    *OrderVersion `json:"before"`
	After     *OrderVersion `json:"after"`
}

// Preview computes what Create would persist, without writing anything.
func (s *AmendmentService) Preview(ctx context.Context, orderID int, changes ChangeSet) (*AmendmentPreview, error) {
	var preview *AmendmentPreview
	err := s.store.WithinTx(ctx, func(r Repos) error {
		order, err := r.Orders().GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		impact, err := s.computeImpact(ctx, r, order, changes)
		if err != nil {
			return err
		}
		preview = &AmendmentPreview{
			OrderID:          orderID,
			Type:             amendmentTypeOf(impact.ItemChanges),
			Impact:           *impact,
			RequiresApproval: s.policy.RequiresApproval(impact.Difference, impact.PreviousTotal),
		}
		return nil
	})
	if err != nil {
		return nil, classify("preview amendment", err)
	}
	return preview, nil
}

// Create locks the order, computes the impact of the change batch and persists
// the amendment as pending_approval when the approval policy triggers, otherwise
// as draft. The order itself is not modified.
func (s *AmendmentService) Create(ctx context.Context, req CreateAmendmentRequest) (*Amendment, error) {
	var a *Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		order, err := r.Orders().LockOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		impact, err := s.computeImpact(ctx, r, order, req.Changes)
		if err != nil {
			return err
		}
		if len(impact.ItemChanges) == 0 {
			return &ValidationError{Field: "changes", Detail: "the requested changes leave the order unchanged"}
		}

		seq, err := r.Amendments().NextSequence(ctx, order.ID)
		if err != nil {
			return err
		}

		requiresApproval := s.policy.RequiresApproval(impact.Difference, impact.PreviousTotal)
		status := AmendmentDraft
		if requiresApproval {
			status = AmendmentPendingApproval
		}

		a = &Amendment{
			OrderID:          order.ID,
			AmendmentNumber:  fmt.Sprintf("AMD-%d-%d", order.ID, seq),
			Sequence:         seq,
			Type:             amendmentTypeOf(impact.ItemChanges),
			Status:           status,
			PreviousTotal:    impact.PreviousTotal,
			NewTotal:         impact.NewTotal,
			Difference:       impact.Difference,
			UseQuotePrices:   req.Changes.UseQuotePrices,
			RequiresApproval: requiresApproval,
			Reason:           strings.TrimSpace(req.Reason),
			CreatedBy:        req.CreatedBy,
			CreatedAt:        time.Now().UTC(),
			Items:            amendmentItems(impact.ItemChanges),
		}
		return r.Amendments().Insert(ctx, a)
	})
	if err != nil {
		return nil, classify("create amendment", err)
	}

	s.logger.InfoContext(ctx, "amendment created",
		"order_id", a.OrderID,
		"amendment_id", a.ID,
		"amendment_number", a.AmendmentNumber,
		"status", a.Status,
		"difference_cents", int64(a.Difference),
	)
	return a, nil
}

// Approve moves a pending_approval amendment to approved. The order is not touched.
func (s *AmendmentService) Approve(ctx context.Context, amendmentID, approverID int, notes string) (*Amendment, error) {
	var a *Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		var err error
		a, err = r.Amendments().Lock(ctx, amendmentID)
		if err != nil {
			return err
		}
		if a.Status != AmendmentPendingApproval {
			return &StateTransitionError{AmendmentID: a.ID, Current: a.Status, Attempted: "approve"}
		}
		now := time.Now().UTC()
		a.Status = AmendmentApproved
		a.ApprovedBy = &approverID
		a.ApprovedAt = &now
		a.ApprovalNotes = strings.TrimSpace(notes)
		return r.Amendments().UpdateStatus(ctx, a)
	})
	if err != nil {
		return nil, classify("approve amendment", err)
	}

	s.logger.InfoContext(ctx, "amendment approved", "order_id", a.OrderID, "amendment_id", a.ID, "approved_by", approverID)
	return a, nil
}

// Reject moves a pending_approval amendment to rejected. The order is never touched.
func (s *AmendmentService) Reject(ctx context.Context, amendmentID, approverID int, reason string) (*Amendment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Detail: "a rejection reason is required"}
	}

	var a *Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		var err error
		a, err = r.Amendments().Lock(ctx, amendmentID)
		if err != nil {
			return err
		}
		if a.Status != AmendmentPendingApproval {
			return &StateTransitionError{AmendmentID: a.ID, Current: a.Status, Attempted: "reject"}
		}
		now := time.Now().UTC()
		a.Status = AmendmentRejected
		a.RejectedBy = &approverID
		a.RejectedAt = &now
		a.RejectionReason = reason
		return r.Amendments().UpdateStatus(ctx, a)
	})
	if err != nil {
		return nil, classify("reject amendment", err)
	}

	s.logger.InfoContext(ctx, "amendment rejected", "order_id", a.OrderID, "amendment_id", a.ID, "rejected_by", approverID)
	return a, nil
}

// Apply writes an approved (or approval-free draft) amendment to the live order
// lines. It snapshots the order before and after, recomputes the totals from the
// resulting lines and marks the amendment applied, all in one transaction.
func (s *AmendmentService) Apply(ctx context.Context, amendmentID, userID int) (*ApplyResult, error) {
	var res *ApplyResult
	err := s.store.WithinTx(ctx, func(r Repos) error {
		peek, err := r.Amendments().Get(ctx, amendmentID)
		if err != nil {
			return err
		}
		order, err := r.Orders().LockOrder(ctx, peek.OrderID)
		if err != nil {
			return err
		}
		a, err := r.Amendments().Lock(ctx, amendmentID)
		if err != nil {
			return err
		}
		if err := checkApplicable(a); err != nil {
			return err
		}

		before, err := s.ledger.SnapshotTx(ctx, r, order.ID, userID,
			fmt.Sprintf("Before %s", a.AmendmentNumber))
		if err != nil {
			return err
		}

		items, err := r.Orders().ListItems(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, ai := range a.Items {
			if err := applyItem(ctx, r, order.ID, items, ai); err != nil {
				return err
			}
			if items, err = r.Orders().ListItems(ctx, order.ID); err != nil {
				return err
			}
		}

		totals, err := refreshTotals(ctx, r, s.tax, order)
		if err != nil {
			return err
		}

		after, err := s.ledger.SnapshotTx(ctx, r, order.ID, userID, applySummary(a))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		a.Status = AmendmentApplied
		a.AppliedBy = &userID
		a.AppliedAt = &now
		if err := r.Amendments().UpdateStatus(ctx, a); err != nil {
			return err
		}

		res = &ApplyResult{Amendment: a, Totals: totals, Before: before, After: after}
		return nil
	})
	if err != nil {
		return nil, classify("apply amendment", err)
	}

	s.logger.InfoContext(ctx, "amendment applied",
		"order_id", res.Amendment.OrderID,
		"amendment_id", res.Amendment.ID,
		"version", res.After.VersionNumber,
		"total_cents", int64(res.Totals.Total),
	)
	return res, nil
}

// Get returns one amendment with its items.
func (s *AmendmentService) Get(ctx context.Context, amendmentID int) (*Amendment, error) {
	var a *Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		var err error
		a, err = r.Amendments().Get(ctx, amendmentID)
		return err
	})
	if err != nil {
		return nil, classify("get amendment", err)
	}
	return a, nil
}

// ListForOrder returns the amendments of an order, oldest first.
func (s *AmendmentService) ListForOrder(ctx context.Context, orderID int) ([]Amendment, error) {
	var list []Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		if _, err := r.Orders().GetOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		list, err = r.Amendments().ListForOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, classify("list amendments", err)
	}
	return list, nil
}

// ListPending returns every amendment waiting for a manager decision.
func (s *AmendmentService) ListPending(ctx context.Context) ([]Amendment, error) {
	var list []Amendment
	err := s.store.WithinTx(ctx, func(r Repos) error {
		var err error
		list, err = r.Amendments().ListPending(ctx)
		return err
	})
	if err != nil {
		return nil, classify("list pending amendments", err)
	}
	return list, nil
}

func (s *AmendmentService) computeImpact(ctx context.Context, r Repos, order *Order, changes ChangeSet) (*Impact, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	items, err := r.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	prices, err := s.gatherPrices(ctx, order, changes)
	if err != nil {
		return nil, err
	}
	return ComputeImpact(order, items, changes, prices, time.Now())
}

// gatherPrices fetches the catalog and quote prices ComputeImpact needs.
// Removed products need no price lookup.
func (s *AmendmentService) gatherPrices(ctx context.Context, order *Order, changes ChangeSet) (PriceBook, error) {
	pb := PriceBook{Products: make(map[int]Product), QuoteLines: make(map[int]QuoteLine)}

	lookup := func(productID int, optional bool) error {
		p, err := s.catalog.GetProduct(ctx, productID)
		switch {
		case err == nil:
			pb.Products[productID] = *p
		case optional && errors.Is(err, ErrNotFound):
		default:
			return err
		}
		if order.QuoteID == nil {
			return nil
		}
		ql, err := s.quotes.GetQuoteLineForProduct(ctx, *order.QuoteID, productID)
		if err != nil {
			return fmt.Errorf("failed to look up quote %d price for product %d: %w", *order.QuoteID, productID, err)
		}
		if ql != nil {
			pb.QuoteLines[productID] = *ql
		}
		return nil
	}

	for _, a := range changes.Add {
		if err := lookup(a.ProductID, false); err != nil {
			return pb, err
		}
	}
	for _, m := range changes.Modify {
		if err := lookup(m.ProductID, m.PriceOverride != nil); err != nil {
			return pb, err
		}
	}
	return pb, nil
}

// checkApplicable enforces the apply preconditions of the state machine.
func checkApplicable(a *Amendment) error {
	if a.Status.Final() {
		return &StateTransitionError{AmendmentID: a.ID, Current: a.Status, Attempted: "apply"}
	}
	switch a.Status {
	case AmendmentApproved:
		return nil
	case AmendmentDraft:
		if a.RequiresApproval {
			return &ApprovalRequiredError{AmendmentID: a.ID, Status: a.Status}
		}
		return nil
	case AmendmentPendingApproval:
		if a.RequiresApproval {
			return &ApprovalRequiredError{AmendmentID: a.ID, Status: a.Status}
		}
		return &StateTransitionError{AmendmentID: a.ID, Current: a.Status, Attempted: "apply"}
	default:
		return fmt.Errorf("amendment %d has unknown status %q", a.ID, a.Status)
	}
}

// applyItem writes one amendment line to the live order lines.
func applyItem(ctx context.Context, r Repos, orderID int, items []OrderItem, ai AmendmentItem) error {
	switch ai.ChangeType {
	case ChangeAdd:
		if existing, ok := activeItemByProduct(items, ai.ProductID); ok {
			return &ConsistencyError{
				Entity: "order_item",
				ID:     existing.ID,
				Detail: fmt.Sprintf("product %d was added to the order after the amendment was created", ai.ProductID),
			}
		}
		item := &OrderItem{
			OrderID:      orderID,
			ProductID:    ai.ProductID,
			ProductName:  ai.ProductName,
			Quantity:     ai.NewQuantity,
			PriceAtOrder: ai.AppliedPrice,
		}
		item.LineTotal = item.Value()
		return r.Orders().InsertItem(ctx, item)

	case ChangeRemove:
		item, ok := activeItemByProduct(items, ai.ProductID)
		if !ok {
			return &NotFoundError{Entity: "order line for product", ID: ai.ProductID}
		}
		if item.Remaining() == 0 {
			return &ConsistencyError{
				Entity: "order_item",
				ID:     item.ID,
				Detail: "line fully shipped, nothing left to cancel",
			}
		}
		item.QuantityCancelled = item.Quantity - item.QuantityFulfilled
		item.QuantityBackordered = 0
		item.LineTotal = item.Value()
		if err := item.checkCounters(); err != nil {
			return err
		}
		return r.Orders().UpdateItem(ctx, item)

	case ChangeModify:
		item, ok := activeItemByProduct(items, ai.ProductID)
		if !ok {
			return &NotFoundError{Entity: "order line for product", ID: ai.ProductID}
		}
		if ai.NewQuantity < item.QuantityFulfilled {
			return &ConsistencyError{
				Entity: "order_item",
				ID:     item.ID,
				Detail: fmt.Sprintf("cannot reduce quantity to %d: %d already shipped", ai.NewQuantity, item.QuantityFulfilled),
			}
		}
		item.Quantity = ai.NewQuantity + item.QuantityCancelled
		item.PriceAtOrder = ai.AppliedPrice
		if open := ai.NewQuantity - item.QuantityFulfilled; item.QuantityBackordered > open {
			item.QuantityBackordered = open
		}
		item.LineTotal = item.Value()
		if err := item.checkCounters(); err != nil {
			return err
		}
		return r.Orders().UpdateItem(ctx, item)

	default:
		return fmt.Errorf("amendment item %d has unknown change type %q", ai.ID, ai.ChangeType)
	}
}

func amendmentItems(changes []ItemChange) []AmendmentItem {
	out := make([]AmendmentItem, len(changes))
	for i, c := range changes {
		out[i] = AmendmentItem{
			ProductID:        c.ProductID,
			ProductName:      c.ProductName,
			ChangeType:       c.ChangeType,
			PreviousQuantity: c.PreviousQuantity,
			NewQuantity:      c.NewQuantity,
			PreviousPrice:    c.PreviousPrice,
			QuotePrice:       c.QuotePrice,
			CatalogPrice:     c.CatalogPrice,
			AppliedPrice:     c.AppliedPrice,
			PriceSource:      c.PriceSource,
			HasPriceChange:   c.HasPriceChange,
			LineDelta:        c.LineDelta,
		}
	}
	return out
}

func applySummary(a *Amendment) string {
	var added, removed, modified int
	for _, ai := range a.Items {
		switch ai.ChangeType {
		case ChangeAdd:
			added++
		case ChangeRemove:
			removed++
		case ChangeModify:
			modified++
		}
	}
	sign := ""
	if a.Difference > 0 {
		sign = "+"
	}
	return fmt.Sprintf("Applied %s (%s): %d added, %d removed, %d modified; difference %s%s",
		a.AmendmentNumber, a.Type, added, removed, modified, sign, a.Difference)
}
