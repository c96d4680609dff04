package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"retail-backoffice/internal/core"

	"github.com/redis/go-redis/v9"
)

// noQuoteLine marks a cached negative quote lookup.
const noQuoteLine = "none"

// Cache is a read-through Redis cache in front of a Source. Products are
// stored as hashes, quote prices as plain integer cents. Redis failures are
// logged and the lookup falls through to the Source.
type Cache struct {
	client *redis.Client
	next   Source
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCache wraps next. A nil logger uses slog.Default().
func NewCache(client *redis.Client, next Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: "amendments",
		logger: logger.With("component", "catalog_cache"),
	}
}

func (c *Cache) productKey(id int) string {
	return fmt.Sprintf("%s:product:%d", c.prefix, id)
}

func (c *Cache) quoteKey(quoteID, productID int) string {
	return fmt.Sprintf("%s:quote:%d:%d", c.prefix, quoteID, productID)
}

func (c *Cache) GetProduct(ctx context.Context, productID int) (*core.Product, error) {
	key := c.productKey(productID)
	fields, err := c.client.HGetAll(ctx, key).Result()
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	case len(fields) > 0:
		if p, perr := productFromHash(productID, fields); perr == nil {
			return p, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed cache entry", "key", key)
	}

	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "name", p.Name, "sku", p.SKU, "price", int64(p.CurrentPrice))
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
	return p, nil
}

func (c *Cache) GetQuoteLineForProduct(ctx context.Context, quoteID, productID int) (*core.QuoteLine, error) {
	key := c.quoteKey(quoteID, productID)
	val, err := c.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		c.logger.WarnContext(ctx, "quote cache read failed", "key", key, "error", err)
	case val == noQuoteLine:
		return nil, nil
	default:
		if cents, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return &core.QuoteLine{QuoteID: quoteID, ProductID: productID, UnitPrice: core.Cents(cents)}, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed cache entry", "key", key)
	}

	ql, err := c.next.GetQuoteLineForProduct(ctx, quoteID, productID)
	if err != nil {
		return nil, err
	}

	var value any = noQuoteLine
	if ql != nil {
		value = int64(ql.UnitPrice)
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "quote cache write failed", "key", key, "error", err)
	}
	return ql, nil
}

func productFromHash(id int, fields map[string]string) (*core.Product, error) {
	price, err := strconv.ParseInt(fields["price"], 10, 64)
	if err != nil {
		return nil, err
	}
	return &core.Product{ID: id, Name: fields["name"], SKU: fields["sku"], CurrentPrice: core.Cents(price)}, nil
}
