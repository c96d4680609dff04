package core

import "context"

// Product is the catalog view of a product.
type Product struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	CurrentPrice Cents  `json:"current_price_cents"`
}

// QuoteLine is the quoted unit price of a product on a quote.
type QuoteLine struct {
	QuoteID   int   `json:"quote_id"`
	ProductID int   `json:"product_id"`
	UnitPrice Cents `json:"unit_price_cents"`
}

// Catalog looks up products. Implementations return a *NotFoundError with
// Entity "product" when the product does not exist.
type Catalog interface {
	GetProduct(ctx context.Context, productID int) (*Product, error)
}

// QuoteLookup finds the quoted price of a product. It returns (nil, nil) when the
// quote has no line for the product.
type QuoteLookup interface {
	GetQuoteLineForProduct(ctx context.Context, quoteID, productID int) (*QuoteLine, error)
}

// TaxCalculator computes tax for a taxable amount in a jurisdiction.
type TaxCalculator interface {
	ComputeTax(ctx context.Context, taxable Cents, jurisdiction string) (Cents, error)
}
