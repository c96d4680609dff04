package db

import (
	"context"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type versionRepo repos

const versionColumns = `
	id, order_id, version_number, subtotal, discount, tax, total,
	items, change_summary, created_by, created_at`

func scanVersion(row pgx.Row) (*core.OrderVersion, error) {
	var v core.OrderVersion
	var subtotal, discount, tax, total decimal.Decimal
	if err := row.Scan(
		&v.ID, &v.OrderID, &v.VersionNumber, &subtotal, &discount, &tax, &total,
		&v.Items, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt,
	); err != nil {
		return nil, err
	}
	v.Totals = core.Totals{Subtotal: money(subtotal), Discount: money(discount), Tax: money(tax), Total: money(total)}
	if v.Items == nil {
		v.Items = []core.SnapshotItem{}
	}
	return &v, nil
}

func (r versionRepo) LatestNumber(ctx context.Context, orderID int) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM order_versions WHERE order_id = $1`, orderID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest version of order %d: %w", orderID, err)
	}
	return n, nil
}

// Insert appends a version. The items slice is stored as JSONB.
func (r versionRepo) Insert(ctx context.Context, v *core.OrderVersion) error {
	items := v.Items
	if items == nil {
		items = []core.SnapshotItem{}
	}
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_versions (order_id, version_number, subtotal, discount, tax, total,
		                            items, change_summary, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, v.OrderID, v.VersionNumber, v.Totals.Subtotal.Decimal(), v.Totals.Discount.Decimal(),
		v.Totals.Tax.Decimal(), v.Totals.Total.Decimal(), items, v.ChangeSummary, v.CreatedBy, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to insert version %d of order %d: %w", v.VersionNumber, v.OrderID, err)
	}
	return nil
}

func (r versionRepo) List(ctx context.Context, orderID int) ([]core.OrderVersion, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+versionColumns+` FROM order_versions WHERE order_id = $1 ORDER BY version_number DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var versions []core.OrderVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read versions of order %d: %w", orderID, err)
	}
	return versions, nil
}

func (r versionRepo) Get(ctx context.Context, orderID, versionNumber int) (*core.OrderVersion, error) {
	v, err := scanVersion(r.tx.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM order_versions WHERE order_id = $1 AND version_number = $2`,
		orderID, versionNumber))
	if err != nil {
		return nil, notFound(err, "order version", versionNumber, "load")
	}
	return v, nil
}
