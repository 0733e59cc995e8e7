// Package report renders the printable day-close document.
package report

import (
	"bytes"
	"fmt"

	"cenaculo-pos/internal/core"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer builds the one-page day-close summary handed to the cash
// office. It implements core.ReportRenderer.
type PDFRenderer struct {
	businessName string
}

func NewPDFRenderer(businessName string) *PDFRenderer {
	if businessName == "" {
		businessName = "Cenáculo"
	}
	return &PDFRenderer{businessName: businessName}
}

func (r *PDFRenderer) DayCloseReport(close *core.DayClose, topProducts []core.ProductSales) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Day close %s", close.CloseDate), true)
	pdf.AddPage()

	// Core fonts are cp1252; run every user-visible string through the
	// translator so accented names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(r.businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Day close report - %s", close.CloseDate), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	totals := []struct {
		label string
		value string
	}{
		{"Total sales", close.TotalSales.StringFixed(2)},
		{"Cash", close.TotalCash.StringFixed(2)},
		{"Transfers", close.TotalTransfers.StringFixed(2)},
		{"Orders", fmt.Sprintf("%d", close.OrderCount)},
		{"Closed by", close.ClosedBy},
	}
	for _, row := range totals {
		pdf.CellFormat(60, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(row.value), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	if len(topProducts) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Top products", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(100, 7, "Product", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, "Units", "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 7, "Revenue", "", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range topProducts {
			name := p.ProductName
			if p.IsBundle {
				name += " (bundle)"
			}
			pdf.CellFormat(100, 6, tr(name), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, p.UnitsSold.String(), "", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, p.Revenue.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render day close pdf: %w", err)
	}
	return buf.Bytes(), nil
}
