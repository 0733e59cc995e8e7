package report

import (
	"bytes"
	"testing"

	"cenaculo-pos/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayCloseReport(t *testing.T) {
	renderer := NewPDFRenderer("Cenáculo")

	url := "https://example.com/report.pdf"
	snapshot := &core.DayClose{
		CloseDate:      "2026-08-30",
		TotalSales:     decimal.NewFromInt(3100),
		TotalCash:      decimal.NewFromInt(1700),
		TotalTransfers: decimal.NewFromInt(1400),
		OrderCount:     3,
		ReportPDFURL:   &url,
		ClosedBy:       "service",
	}
	top := []core.ProductSales{
		{ProductName: "Party Combo", IsBundle: true, UnitsSold: decimal.NewFromInt(1), Revenue: decimal.NewFromInt(1400)},
		{ProductName: "Pizza", UnitsSold: decimal.NewFromInt(2), Revenue: decimal.NewFromInt(1200)},
	}

	pdf, err := renderer.DayCloseReport(snapshot, top)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), "output must be a PDF document")
	assert.Greater(t, len(pdf), 500)
}

func TestDayCloseReport_NoProducts(t *testing.T) {
	renderer := NewPDFRenderer("")

	pdf, err := renderer.DayCloseReport(&core.DayClose{
		CloseDate:  "2026-08-30",
		TotalSales: decimal.Zero,
		ClosedBy:   "service",
	}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
