package core_test

import (
	"testing"

	"retail-backoffice/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmendmentStatus_ParseAndFinal(t *testing.T) {
	tests := []struct {
		raw   string
		final bool
	}{
		{"draft", false},
		{"pending_approval", false},
		{"approved", false},
		{"rejected", true},
		{"applied", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			st, err := core.ParseAmendmentStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.final, st.Final())
		})
	}

	_, err := core.ParseAmendmentStatus("archived")
	assert.Error(t, err)
	assert.False(t, core.AmendmentStatus("archived").Final())
}

func TestStoredEnums_RejectUnknownValues(t *testing.T) {
	_, err := core.ParseAmendmentType("swap")
	assert.Error(t, err)
	_, err = core.ParseChangeType("replace")
	assert.Error(t, err)
	_, err = core.ParseShipmentStatus("lost")
	assert.Error(t, err)
	_, err = core.ParsePriceSource("manual")
	assert.Error(t, err)

	ps, err := core.ParsePriceSource("order")
	require.NoError(t, err)
	assert.Equal(t, core.PriceSourceOrder, ps)
}
