package db

import (
	"context"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type orderRepo repos

const orderColumns = `
	id, order_number, status, quote_id, tax_jurisdiction, version_number,
	price_locked, price_lock_until, quote_prices_honored,
	subtotal, discount, tax, total, created_at, updated_at`

func scanOrder(row pgx.Row) (*core.Order, error) {
	var o core.Order
	var subtotal, discount, tax, total decimal.Decimal
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Status, &o.QuoteID, &o.TaxJurisdiction, &o.VersionNumber,
		&o.PriceLocked, &o.PriceLockUntil, &o.QuotePricesHonored,
		&subtotal, &discount, &tax, &total, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Subtotal, o.Discount, o.Tax, o.Total = money(subtotal), money(discount), money(tax), money(total)
	return &o, nil
}

func (r orderRepo) LockOrder(ctx context.Context, orderID int) (*core.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, notFound(err, "order", orderID, "lock")
	}
	return o, nil
}

func (r orderRepo) GetOrder(ctx context.Context, orderID int) (*core.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, notFound(err, "order", orderID, "load")
	}
	return o, nil
}

func (r orderRepo) ListItems(ctx context.Context, orderID int) ([]core.OrderItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, order_id, product_id, product_name, sku, quantity, price_at_order, line_total,
		       quantity_fulfilled, quantity_backordered, quantity_cancelled, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []core.OrderItem
	for rows.Next() {
		var it core.OrderItem
		var price, lineTotal decimal.Decimal
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.SKU, &it.Quantity, &price, &lineTotal,
			&it.QuantityFulfilled, &it.QuantityBackordered, &it.QuantityCancelled, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		it.PriceAtOrder, it.LineTotal = money(price), money(lineTotal)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items of order %d: %w", orderID, err)
	}
	return items, nil
}

func (r orderRepo) InsertItem(ctx context.Context, item *core.OrderItem) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, sku, quantity, price_at_order, line_total,
		                         quantity_fulfilled, quantity_backordered, quantity_cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, item.OrderID, item.ProductID, item.ProductName, item.SKU, item.Quantity,
		item.PriceAtOrder.Decimal(), item.LineTotal.Decimal(),
		item.QuantityFulfilled, item.QuantityBackordered, item.QuantityCancelled,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item for product %d on order %d: %w", item.ProductID, item.OrderID, err)
	}
	return nil
}

func (r orderRepo) UpdateItem(ctx context.Context, item *core.OrderItem) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE order_items
		SET quantity = $2, price_at_order = $3, line_total = $4,
		    quantity_fulfilled = $5, quantity_backordered = $6, quantity_cancelled = $7,
		    updated_at = NOW()
		WHERE id = $1
	`, item.ID, item.Quantity, item.PriceAtOrder.Decimal(), item.LineTotal.Decimal(),
		item.QuantityFulfilled, item.QuantityBackordered, item.QuantityCancelled)
	if err != nil {
		return fmt.Errorf("failed to update order item %d: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "order_item", ID: item.ID}
	}
	return nil
}

func (r orderRepo) UpdateTotals(ctx context.Context, orderID int, t core.Totals) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders
		SET subtotal = $2, discount = $3, tax = $4, total = $5, updated_at = NOW()
		WHERE id = $1
	`, orderID, t.Subtotal.Decimal(), t.Discount.Decimal(), t.Tax.Decimal(), t.Total.Decimal())
	if err != nil {
		return fmt.Errorf("failed to update totals of order %d: %w", orderID, err)
	}
	return nil
}

func (r orderRepo) SetVersionNumber(ctx context.Context, orderID, versionNumber int) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET version_number = $2, updated_at = NOW() WHERE id = $1`, orderID, versionNumber)
	if err != nil {
		return fmt.Errorf("failed to set version of order %d: %w", orderID, err)
	}
	return nil
}
