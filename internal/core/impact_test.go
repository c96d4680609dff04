package core_test

import (
	"errors"
	"testing"
	"time"

	"retail-backoffice/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func impactFixture() (*core.Order, []core.OrderItem, core.PriceBook) {
	order := &core.Order{ID: 1}
	items := []core.OrderItem{
		{ID: 10, OrderID: 1, ProductID: 1, ProductName: "Sofa", Quantity: 2, PriceAtOrder: 29900},
		{ID: 11, OrderID: 1, ProductID: 2, ProductName: "Lamp", Quantity: 4, PriceAtOrder: 4500},
		{ID: 12, OrderID: 1, ProductID: 4, ProductName: "Ottoman", Quantity: 1, PriceAtOrder: 8000, QuantityCancelled: 1},
	}
	prices := core.PriceBook{
		Products: map[int]core.Product{
			1: {ID: 1, Name: "Sofa", CurrentPrice: 34900},
			2: {ID: 2, Name: "Lamp", CurrentPrice: 4500},
			3: {ID: 3, Name: "Rug", CurrentPrice: 12000},
			4: {ID: 4, Name: "Ottoman", CurrentPrice: 8000},
		},
		QuoteLines: map[int]core.QuoteLine{
			1: {QuoteID: 7, ProductID: 1, UnitPrice: 29900},
		},
	}
	return order, items, prices
}

func TestComputeImpact_AddRemoveModify(t *testing.T) {
	order, items, prices := impactFixture()
	now := time.Now()

	changes := core.ChangeSet{
		Add:    []core.AddItem{{ProductID: 3, Quantity: 1}},
		Remove: []core.RemoveItem{{ProductID: 2}},
		Modify: []core.ModifyItem{{ProductID: 1, Quantity: 3, PriceOverride: cents(31900)}},
	}

	impact, err := core.ComputeImpact(order, items, changes, prices, now)
	require.NoError(t, err)

	assert.Equal(t, core.Cents(2*29900+4*4500), impact.PreviousTotal)
	assert.Equal(t, core.Cents(12000+3*31900), impact.NewTotal)
	assert.Equal(t, impact.NewTotal-impact.PreviousTotal, impact.Difference)

	require.Len(t, impact.ItemChanges, 3)

	add := impact.ItemChanges[0]
	assert.Equal(t, core.ChangeAdd, add.ChangeType)
	assert.Equal(t, 0, add.PreviousQuantity)
	assert.Equal(t, core.Cents(12000), add.LineDelta)
	assert.Equal(t, core.PriceSourceCatalog, add.PriceSource)

	remove := impact.ItemChanges[1]
	assert.Equal(t, core.ChangeRemove, remove.ChangeType)
	assert.Equal(t, core.Cents(-18000), remove.LineDelta)

	modify := impact.ItemChanges[2]
	assert.Equal(t, core.ChangeModify, modify.ChangeType)
	assert.Equal(t, 2, modify.PreviousQuantity)
	assert.Equal(t, 3, modify.NewQuantity)
	assert.Equal(t, core.PriceSourceOverride, modify.PriceSource)
	assert.Equal(t, core.Cents(3*31900-2*29900), modify.LineDelta)
	assert.True(t, modify.HasPriceChange)
}

func TestComputeImpact_IdempotentPreview(t *testing.T) {
	order, items, prices := impactFixture()
	now := time.Now()
	changes := core.ChangeSet{
		Add:    []core.AddItem{{ProductID: 3, Quantity: 2}},
		Modify: []core.ModifyItem{{ProductID: 2, Quantity: 1}},
	}

	first, err := core.ComputeImpact(order, items, changes, prices, now)
	require.NoError(t, err)
	second, err := core.ComputeImpact(order, items, changes, prices, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 4, items[1].Quantity, "input lines must not be mutated")
}

func TestComputeImpact_UnchangedModifyIsOmitted(t *testing.T) {
	order, items, prices := impactFixture()

	impact, err := core.ComputeImpact(order, items, core.ChangeSet{
		Modify: []core.ModifyItem{{ProductID: 2, Quantity: 4}},
	}, prices, time.Now())
	require.NoError(t, err)

	assert.Empty(t, impact.ItemChanges)
	assert.Equal(t, impact.PreviousTotal, impact.NewTotal)
	assert.Zero(t, impact.Difference)
}

func TestComputeImpact_ModifyRepricesToCatalog(t *testing.T) {
	order, items, prices := impactFixture()

	impact, err := core.ComputeImpact(order, items, core.ChangeSet{
		Modify: []core.ModifyItem{{ProductID: 1, Quantity: 2}},
	}, prices, time.Now())
	require.NoError(t, err)

	require.Len(t, impact.ItemChanges, 1)
	assert.Equal(t, core.Cents(34900), impact.ItemChanges[0].AppliedPrice)
	assert.Equal(t, core.Cents(2*(34900-29900)), impact.Difference)
}

func TestComputeImpact_PriceLockedModify(t *testing.T) {
	order, items, prices := impactFixture()
	order.PriceLocked = true

	impact, err := core.ComputeImpact(order, items, core.ChangeSet{
		Modify: []core.ModifyItem{{ProductID: 1, Quantity: 3}},
	}, prices, time.Now())
	require.NoError(t, err)

	require.Len(t, impact.ItemChanges, 1)
	assert.Equal(t, core.Cents(29900), impact.ItemChanges[0].AppliedPrice)
	assert.Equal(t, core.PriceSourceLockedQuote, impact.ItemChanges[0].PriceSource)
}

func TestComputeImpact_RemoveKeepsShippedPart(t *testing.T) {
	order, items, prices := impactFixture()
	items[1].QuantityFulfilled = 1

	impact, err := core.ComputeImpact(order, items, core.ChangeSet{
		Remove: []core.RemoveItem{{ProductID: 2}},
	}, prices, time.Now())
	require.NoError(t, err)

	require.Len(t, impact.ItemChanges, 1)
	assert.Equal(t, 1, impact.ItemChanges[0].NewQuantity)
	assert.Equal(t, core.Cents(-3*4500), impact.ItemChanges[0].LineDelta)
	assert.Equal(t, core.PriceSourceOrder, impact.ItemChanges[0].PriceSource)
	assert.Equal(t, core.Cents(4500), impact.ItemChanges[0].AppliedPrice)
}

func TestComputeImpact_Errors(t *testing.T) {
	order, items, prices := impactFixture()
	items[0].QuantityFulfilled = 2

	tests := []struct {
		name    string
		changes core.ChangeSet
		want    error
	}{
		{"empty batch", core.ChangeSet{}, core.ErrInvalidInput},
		{"add existing product", core.ChangeSet{Add: []core.AddItem{{ProductID: 1, Quantity: 1}}}, core.ErrInvalidInput},
		{"add unknown product", core.ChangeSet{Add: []core.AddItem{{ProductID: 99, Quantity: 1}}}, core.ErrNotFound},
		{"add zero quantity", core.ChangeSet{Add: []core.AddItem{{ProductID: 3, Quantity: 0}}}, core.ErrInvalidInput},
		{"remove missing line", core.ChangeSet{Remove: []core.RemoveItem{{ProductID: 3}}}, core.ErrNotFound},
		{"remove cancelled line", core.ChangeSet{Remove: []core.RemoveItem{{ProductID: 4}}}, core.ErrNotFound},
		{"remove fully shipped line", core.ChangeSet{Remove: []core.RemoveItem{{ProductID: 1}}}, core.ErrConsistencyViolation},
		{"modify below shipped", core.ChangeSet{Modify: []core.ModifyItem{{ProductID: 1, Quantity: 1}}}, core.ErrConsistencyViolation},
		{"duplicate product", core.ChangeSet{
			Remove: []core.RemoveItem{{ProductID: 2}},
			Modify: []core.ModifyItem{{ProductID: 2, Quantity: 1}},
		}, core.ErrInvalidInput},
		{"negative override", core.ChangeSet{Modify: []core.ModifyItem{{ProductID: 2, Quantity: 1, PriceOverride: cents(-1)}}}, core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.ComputeImpact(order, items, tt.changes, prices, time.Now())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestComputeImpact_ReAddCancelledProduct(t *testing.T) {
	order, items, prices := impactFixture()

	impact, err := core.ComputeImpact(order, items, core.ChangeSet{
		Add: []core.AddItem{{ProductID: 4, Quantity: 2}},
	}, prices, time.Now())
	require.NoError(t, err)
	assert.Equal(t, core.Cents(16000), impact.Difference)
}
