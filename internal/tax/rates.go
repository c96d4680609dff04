// Package tax computes sales tax from a per-jurisdiction rate table.
package tax

import (
	"context"
	"fmt"
	"strings"

	"retail-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// RateTable implements core.TaxCalculator. Jurisdictions without an entry use
// the default rate.
type RateTable struct {
	defaultRate decimal.Decimal
	rates       map[string]decimal.Decimal
}

// NewRateTable copies rates; keys are matched case-insensitively.
func NewRateTable(defaultRate decimal.Decimal, rates map[string]decimal.Decimal) *RateTable {
	t := &RateTable{defaultRate: defaultRate, rates: make(map[string]decimal.Decimal, len(rates))}
	for code, r := range rates {
		t.rates[strings.ToUpper(strings.TrimSpace(code))] = r
	}
	return t
}

// Rate returns the rate applied to a jurisdiction.
func (t *RateTable) Rate(jurisdiction string) decimal.Decimal {
	if r, ok := t.rates[strings.ToUpper(strings.TrimSpace(jurisdiction))]; ok {
		return r
	}
	return t.defaultRate
}

// ComputeTax returns taxable × rate rounded half away from zero to the cent.
func (t *RateTable) ComputeTax(_ context.Context, taxable core.Cents, jurisdiction string) (core.Cents, error) {
	if taxable < 0 {
		return 0, fmt.Errorf("taxable amount %s cannot be negative", taxable)
	}
	tax := decimal.NewFromInt(int64(taxable)).Mul(t.Rate(jurisdiction)).Round(0)
	return core.Cents(tax.IntPart()), nil
}
