package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafeya/cafeya-orders/internal/market"
)

func TestRenderVendorChartProducesPNG(t *testing.T) {
	totals := []market.ProductTotal{
		{Product: "Espresso", TotalQuantity: 12},
		{Product: "Latte", TotalQuantity: 5},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderVendorChart(&buf, "CafeA", totals))
	require.Greater(t, buf.Len(), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, buf.Bytes()[:8])
}

func TestRenderVendorChartRejectsEmptyTotals(t *testing.T) {
	var buf bytes.Buffer
	err := RenderVendorChart(&buf, "CafeA", nil)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
