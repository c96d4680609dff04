package db

import (
	"context"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
)

type shipmentRepo repos

const shipmentColumns = `
	id, order_id, carrier, tracking_number, status, notes, created_by,
	created_at, shipped_at, delivered_at`

func scanShipment(row pgx.Row) (*core.Shipment, error) {
	var s core.Shipment
	var status string
	if err := row.Scan(
		&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &status, &s.Notes, &s.CreatedBy,
		&s.CreatedAt, &s.ShippedAt, &s.DeliveredAt,
	); err != nil {
		return nil, err
	}
	st, err := core.ParseShipmentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("shipment %d: %w", s.ID, err)
	}
	s.Status = st
	return &s, nil
}

func (r shipmentRepo) Insert(ctx context.Context, s *core.Shipment) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO shipments (order_id, carrier, tracking_number, status, notes, created_by,
		                       created_at, shipped_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, s.OrderID, s.Carrier, s.TrackingNumber, string(s.Status), s.Notes, s.CreatedBy,
		s.CreatedAt, s.ShippedAt, s.DeliveredAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert shipment for order %d: %w", s.OrderID, err)
	}

	// One round trip for all lines.
	batch := &pgx.Batch{}
	for _, it := range s.Items {
		batch.Queue(`
			INSERT INTO shipment_items (shipment_id, order_item_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id
		`, s.ID, it.OrderItemID, it.Quantity)
	}
	br := r.tx.SendBatch(ctx, batch)
	for i := range s.Items {
		s.Items[i].ShipmentID = s.ID
		if err := br.QueryRow().Scan(&s.Items[i].ID); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert shipment line for order item %d: %w", s.Items[i].OrderItemID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to insert shipment lines: %w", err)
	}
	return nil
}

func (r shipmentRepo) Get(ctx context.Context, shipmentID int) (*core.Shipment, error) {
	s, err := scanShipment(r.tx.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID))
	if err != nil {
		return nil, notFound(err, "shipment", shipmentID, "load")
	}
	if s.Items, err = r.items(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r shipmentRepo) ListForOrder(ctx context.Context, orderID int) ([]core.Shipment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments of order %d: %w", orderID, err)
	}
	var list []core.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		list = append(list, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shipments of order %d: %w", orderID, err)
	}

	for i := range list {
		if list[i].Items, err = r.items(ctx, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r shipmentRepo) UpdateStatus(ctx context.Context, s *core.Shipment) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE shipments SET status = $2, shipped_at = $3, delivered_at = $4 WHERE id = $1
	`, s.ID, string(s.Status), s.ShippedAt, s.DeliveredAt)
	if err != nil {
		return fmt.Errorf("failed to update shipment %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "shipment", ID: s.ID}
	}
	return nil
}

func (r shipmentRepo) items(ctx context.Context, shipmentID int) ([]core.ShipmentItem, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, shipment_id, order_item_id, quantity FROM shipment_items WHERE shipment_id = $1 ORDER BY id
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of shipment %d: %w", shipmentID, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[core.ShipmentItem])
	if err != nil {
		return nil, fmt.Errorf("failed to read lines of shipment %d: %w", shipmentID, err)
	}
	return items, nil
}
