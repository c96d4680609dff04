// Package catalog provides the product and quote-price lookups the amendment
// engine reads from, plus a Redis read-through cache in front of them.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"retail-backoffice/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Source is everything the amendment engine needs from the catalog subsystem.
type Source interface {
	core.Catalog
	core.QuoteLookup
}

// Postgres reads products and quote lines straight from the database.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) GetProduct(ctx context.Context, productID int) (*core.Product, error) {
	var prod core.Product
	var price decimal.Decimal
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, sku, current_price FROM products WHERE id = $1`, productID,
	).Scan(&prod.ID, &prod.Name, &prod.SKU, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "product", ID: productID}
		}
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	prod.CurrentPrice = core.CentsFromDecimal(price)
	return &prod, nil
}

func (p *Postgres) GetQuoteLineForProduct(ctx context.Context, quoteID, productID int) (*core.QuoteLine, error) {
	var price decimal.Decimal
	err := p.pool.QueryRow(ctx,
		`SELECT unit_price FROM quote_items WHERE quote_id = $1 AND product_id = $2`, quoteID, productID,
	).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load quote %d line for product %d: %w", quoteID, productID, err)
	}
	return &core.QuoteLine{QuoteID: quoteID, ProductID: productID, UnitPrice: core.CentsFromDecimal(price)}, nil
}
