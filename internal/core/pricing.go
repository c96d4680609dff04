package core

import (
	"fmt"
	"time"
)

// PriceSource names where a resolved unit price came from.
type PriceSource string

const (
	PriceSourceOverride    PriceSource = "override"
	PriceSourceLockedQuote PriceSource = "locked_quote"
	PriceSourceQuote       PriceSource = "quote"
	PriceSourceCatalog     PriceSource = "catalog"
	// PriceSourceOrder keeps the price already charged on the line.
	PriceSourceOrder PriceSource = "order"
)

// ParsePriceSource validates a stored price source.
func ParsePriceSource(s string) (PriceSource, error) {
	switch ps := PriceSource(s); ps {
	case PriceSourceOverride, PriceSourceLockedQuote, PriceSourceQuote, PriceSourceCatalog, PriceSourceOrder:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown price source %q", s)
	}
}

// priceChangeTolerance absorbs rounding between quote and catalog prices.
const priceChangeTolerance Cents = 1

// PriceInput is everything the resolver needs for one line.
type PriceInput struct {
	Product        *Product
	QuoteLine      *QuoteLine
	Override       *Cents
	UseQuotePrices bool
}

// PriceResolution is the price chosen for a line plus the facts it was chosen from.
type PriceResolution struct {
	Price          Cents
	Source         PriceSource
	QuotePrice     *Cents
	CatalogPrice   *Cents
	HasPriceChange bool
}

// ResolvePrice picks the unit price for a line, highest precedence first:
// explicit override, quote price under an active price lock, quote price when
// the change asks for quote prices, then the current catalog price.
//
// HasPriceChange is informational only and never affects the chosen price.
func ResolvePrice(order *Order, in PriceInput, now time.Time) PriceResolution {
	var res PriceResolution
	if in.QuoteLine != nil {
		qp := in.QuoteLine.UnitPrice
		res.QuotePrice = &qp
	}
	if in.Product != nil {
		cp := in.Product.CurrentPrice
		res.CatalogPrice = &cp
	}
	if res.QuotePrice != nil && res.CatalogPrice != nil {
		res.HasPriceChange = (*res.QuotePrice - *res.CatalogPrice).Abs() > priceChangeTolerance
	}

	switch {
	case in.Override != nil:
		res.Price, res.Source = *in.Override, PriceSourceOverride
	case res.QuotePrice != nil && order.PriceLockActive(now):
		res.Price, res.Source = *res.QuotePrice, PriceSourceLockedQuote
	case res.QuotePrice != nil && in.UseQuotePrices:
		res.Price, res.Source = *res.QuotePrice, PriceSourceQuote
	case res.CatalogPrice != nil:
		res.Price, res.Source = *res.CatalogPrice, PriceSourceCatalog
	}
	return res
}
