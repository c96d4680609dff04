package db

import (
	"context"
	"errors"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the Postgres implementation of core.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn inside one transaction. Any error from fn rolls back every
// write made through the repos; a failed commit is reported as an error too.
func (s *Store) WithinTx(ctx context.Context, fn func(r core.Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(repos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type repos struct {
	tx pgx.Tx
}

func (r repos) Orders() core.OrderRepository         { return orderRepo(r) }
func (r repos) Amendments() core.AmendmentRepository { return amendmentRepo(r) }
func (r repos) Versions() core.VersionRepository     { return versionRepo(r) }
func (r repos) Shipments() core.ShipmentRepository   { return shipmentRepo(r) }

// notFound maps pgx.ErrNoRows to a core.NotFoundError and wraps anything else.
func notFound(err error, entity string, id int, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("failed to %s %s %d: %w", action, entity, id, err)
}

// money converts a NUMERIC column value to cents.
func money(d decimal.Decimal) core.Cents {
	return core.CentsFromDecimal(d)
}

func optionalMoney(d decimal.NullDecimal) *core.Cents {
	if !d.Valid {
		return nil
	}
	c := core.CentsFromDecimal(d.Decimal)
	return &c
}

func optionalDecimal(c *core.Cents) decimal.NullDecimal {
	if c == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: c.Decimal(), Valid: true}
}
