package app

import (
	"errors"
	"testing"

	"retail-backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestToChangeSet_ConvertsOverridesToCents(t *testing.T) {
	cs, err := toChangeSet(AmendmentRequest{
		OrderID:        1,
		Add:            []AddLine{{ProductID: 3, Quantity: 1, PriceOverride: dec("120.5")}},
		Remove:         []int{2},
		Modify:         []ModifyLine{{ProductID: 1, Quantity: 3, PriceOverride: dec("319.00")}, {ProductID: 4, Quantity: 2}},
		UseQuotePrices: true,
	})
	require.NoError(t, err)

	assert.True(t, cs.UseQuotePrices)
	require.Len(t, cs.Add, 1)
	assert.Equal(t, core.Cents(12050), *cs.Add[0].PriceOverride)
	assert.Equal(t, []core.RemoveItem{{ProductID: 2}}, cs.Remove)
	require.Len(t, cs.Modify, 2)
	assert.Equal(t, core.Cents(31900), *cs.Modify[0].PriceOverride)
	assert.Nil(t, cs.Modify[1].PriceOverride)
}

func TestToChangeSet_RejectsFractionalCents(t *testing.T) {
	_, err := toChangeSet(AmendmentRequest{
		Modify: []ModifyLine{{ProductID: 1, Quantity: 1, PriceOverride: dec("10.005")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	cs, err := toChangeSet(AmendmentRequest{
		Modify: []ModifyLine{{ProductID: 1, Quantity: 1, PriceOverride: dec("10.500")}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1050), *cs.Modify[0].PriceOverride)
}

func TestViews(t *testing.T) {
	v := totalsView(core.Totals{Subtotal: 82300, Discount: 0, Tax: 6584, Total: 88884})
	assert.Equal(t, "823", v.Subtotal.String())
	assert.Equal(t, "888.84", v.Total.StringFixed(2))

	iv := impactView(77800, 72300, -5500)
	assert.Equal(t, "-55", iv.Difference.String())

	assert.NotNil(t, nonNil[core.Amendment](nil))
}
