package db

import (
	"context"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type amendmentRepo repos

const amendmentColumns = `
	id, order_id, amendment_number, sequence, amendment_type, status,
	previous_total, new_total, difference, use_quote_prices, requires_approval,
	reason, created_by, created_at, approved_by, approved_at, approval_notes,
	rejected_by, rejected_at, rejection_reason, applied_by, applied_at`

func scanAmendment(row pgx.Row) (*core.Amendment, error) {
	var a core.Amendment
	var typ, status string
	var prev, next, diff decimal.Decimal
	if err := row.Scan(
		&a.ID, &a.OrderID, &a.AmendmentNumber, &a.Sequence, &typ, &status,
		&prev, &next, &diff, &a.UseQuotePrices, &a.RequiresApproval,
		&a.Reason, &a.CreatedBy, &a.CreatedAt, &a.ApprovedBy, &a.ApprovedAt, &a.ApprovalNotes,
		&a.RejectedBy, &a.RejectedAt, &a.RejectionReason, &a.AppliedBy, &a.AppliedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if a.Type, err = core.ParseAmendmentType(typ); err != nil {
		return nil, fmt.Errorf("amendment %d: %w", a.ID, err)
	}
	if a.Status, err = core.ParseAmendmentStatus(status); err != nil {
		return nil, fmt.Errorf("amendment %d: %w", a.ID, err)
	}
	a.PreviousTotal, a.NewTotal, a.Difference = money(prev), money(next), money(diff)
	return &a, nil
}

func (r amendmentRepo) NextSequence(ctx context.Context, orderID int) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM order_amendments WHERE order_id = $1`, orderID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to compute amendment sequence for order %d: %w", orderID, err)
	}
	return seq, nil
}

func (r amendmentRepo) Insert(ctx context.Context, a *core.Amendment) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_amendments (
			order_id, amendment_number, sequence, amendment_type, status,
			previous_total, new_total, difference, use_quote_prices, requires_approval,
			reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, a.OrderID, a.AmendmentNumber, a.Sequence, string(a.Type), string(a.Status),
		a.PreviousTotal.Decimal(), a.NewTotal.Decimal(), a.Difference.Decimal(), a.UseQuotePrices, a.RequiresApproval,
		a.Reason, a.CreatedBy, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert amendment for order %d: %w", a.OrderID, err)
	}

	for i := range a.Items {
		it := &a.Items[i]
		it.AmendmentID = a.ID
		err := r.tx.QueryRow(ctx, `
			INSERT INTO order_amendment_items (
				amendment_id, product_id, product_name, change_type, previous_quantity, new_quantity,
				previous_price, quote_price, catalog_price, applied_price, price_source,
				has_price_change, line_delta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`, a.ID, it.ProductID, it.ProductName, string(it.ChangeType), it.PreviousQuantity, it.NewQuantity,
			it.PreviousPrice.Decimal(), optionalDecimal(it.QuotePrice), optionalDecimal(it.CatalogPrice),
			it.AppliedPrice.Decimal(), string(it.PriceSource), it.HasPriceChange, it.LineDelta.Decimal(),
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("failed to insert item for product %d of amendment %d: %w", it.ProductID, a.ID, err)
		}
	}
	return nil
}

func (r amendmentRepo) Lock(ctx context.Context, amendmentID int) (*core.Amendment, error) {
	a, err := scanAmendment(r.tx.QueryRow(ctx,
		`SELECT `+amendmentColumns+` FROM order_amendments WHERE id = $1 FOR UPDATE`, amendmentID))
	if err != nil {
		return nil, notFound(err, "amendment", amendmentID, "lock")
	}
	if a.Items, err = r.items(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (r amendmentRepo) Get(ctx context.Context, amendmentID int) (*core.Amendment, error) {
	a, err := scanAmendment(r.tx.QueryRow(ctx,
		`SELECT `+amendmentColumns+` FROM order_amendments WHERE id = $1`, amendmentID))
	if err != nil {
		return nil, notFound(err, "amendment", amendmentID, "load")
	}
	if a.Items, err = r.items(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (r amendmentRepo) ListForOrder(ctx context.Context, orderID int) ([]core.Amendment, error) {
	return r.list(ctx, `SELECT `+amendmentColumns+` FROM order_amendments WHERE order_id = $1 ORDER BY sequence`, orderID)
}

func (r amendmentRepo) ListPending(ctx context.Context) ([]core.Amendment, error) {
	return r.list(ctx, `SELECT `+amendmentColumns+` FROM order_amendments WHERE status = $1 ORDER BY created_at, id`,
		string(core.AmendmentPendingApproval))
}

// UpdateStatus writes the lifecycle fields only. The WHERE clause refuses to
// touch rows that are already rejected or applied.
func (r amendmentRepo) UpdateStatus(ctx context.Context, a *core.Amendment) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE order_amendments
		SET status = $2, approved_by = $3, approved_at = $4, approval_notes = $5,
		    rejected_by = $6, rejected_at = $7, rejection_reason = $8,
		    applied_by = $9, applied_at = $10
		WHERE id = $1 AND status NOT IN ('rejected', 'applied')
	`, a.ID, string(a.Status), a.ApprovedBy, a.ApprovedAt, a.ApprovalNotes,
		a.RejectedBy, a.RejectedAt, a.RejectionReason, a.AppliedBy, a.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to update amendment %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.ConsistencyError{Entity: "amendment", ID: a.ID, Detail: "amendment is missing or already final"}
	}
	return nil
}

func (r amendmentRepo) list(ctx context.Context, query string, args ...any) ([]core.Amendment, error) {
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query amendments: %w", err)
	}
	var list []core.Amendment
	for rows.Next() {
		a, err := scanAmendment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan amendment: %w", err)
		}
		list = append(list, *a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read amendments: %w", err)
	}

	// Items are loaded after the cursor is closed; a pgx connection runs one query at a time.
	for i := range list {
		if list[i].Items, err = r.items(ctx, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r amendmentRepo) items(ctx context.Context, amendmentID int) ([]core.AmendmentItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, amendment_id, product_id, product_name, change_type, previous_quantity, new_quantity,
		       previous_price, quote_price, catalog_price, applied_price, price_source,
		       has_price_change, line_delta
		FROM order_amendment_items
		WHERE amendment_id = $1
		ORDER BY id
	`, amendmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of amendment %d: %w", amendmentID, err)
	}
	defer rows.Close()

	items := []core.AmendmentItem{}
	for rows.Next() {
		var it core.AmendmentItem
		var changeType, source string
		var prevPrice, applied, delta decimal.Decimal
		var quote, catalog decimal.NullDecimal
		if err := rows.Scan(
			&it.ID, &it.AmendmentID, &it.ProductID, &it.ProductName, &changeType, &it.PreviousQuantity, &it.NewQuantity,
			&prevPrice, &quote, &catalog, &applied, &source,
			&it.HasPriceChange, &delta,
		); err != nil {
			return nil, fmt.Errorf("failed to scan amendment item: %w", err)
		}
		if it.ChangeType, err = core.ParseChangeType(changeType); err != nil {
			return nil, fmt.Errorf("amendment item %d: %w", it.ID, err)
		}
		if it.PriceSource, err = core.ParsePriceSource(source); err != nil {
			return nil, fmt.Errorf("amendment item %d: %w", it.ID, err)
		}
		it.PreviousPrice, it.AppliedPrice, it.LineDelta = money(prevPrice), money(applied), money(delta)
		it.QuotePrice, it.CatalogPrice = optionalMoney(quote), optionalMoney(catalog)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items of amendment %d: %w", amendmentID, err)
	}
	return items, nil
}
