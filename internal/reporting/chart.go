package reporting

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/cafeya/cafeya-orders/internal/market"
)

// RenderVendorChart renders total ordered quantity per product as a PNG bar
// chart. Totals must be non-empty; the caller handles the no-orders case.
func RenderVendorChart(w io.Writer, vendor string, totals []market.ProductTotal) error {
	if len(totals) == 0 {
		return fmt.Errorf("no order totals to chart")
	}

	bars := make([]chart.Value, 0, len(totals))
	var max float64
	for _, t := range totals {
		v := float64(t.TotalQuantity)
		if v > max {
			max = v
		}
		bars = append(bars, chart.Value{Label: t.Product, Value: v})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Pedidos por producto - %s", vendor),
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max * 1.1},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
