package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Renderer produces the printable PDF artifact for a composed invoice.
type Renderer struct{}

// NewRenderer constructs a PDF renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

const (
	pageMarginMM  = 12
	tableFontSize = 8.5
)

// Render lays out the invoice on an A4 page and returns the PDF bytes.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	pdf.SetAutoPageBreak(true, pageMarginMM)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMarginMM

	// Header: seller letterhead on the left, invoice metadata on the right.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth/2, 8, doc.Seller.Name, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth/2, 8, "TAX INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentWidth/2, 5, doc.Seller.Address, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, "Invoice No: "+doc.Number, "", 1, "R", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, "GSTIN: "+doc.Seller.GSTIN, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, "Order No: "+doc.OrderNumber, "", 1, "R", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, doc.Seller.Email, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentWidth/2, 5, "Date: "+doc.IssuedAt.Format("02 Jan 2006"), "", 1, "R", false, 0, "")

	if doc.Paid {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(0, 128, 0)
		pdf.CellFormat(contentWidth, 6, "PAID", "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	// Bill-to block.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentWidth, 6, "Bill To", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentWidth, 5, doc.BillTo.Name, "", 1, "L", false, 0, "")
	if line := strings.TrimSpace(doc.BillTo.Street); line != "" {
		pdf.CellFormat(contentWidth, 5, line, "", 1, "L", false, 0, "")
	}
	locality := joinNonEmpty(", ", doc.BillTo.City, doc.BillTo.State, doc.BillTo.Pincode)
	if locality != "" {
		pdf.CellFormat(contentWidth, 5, locality, "", 1, "L", false, 0, "")
	}
	if country := strings.TrimSpace(doc.BillTo.Country); country != "" {
		pdf.CellFormat(contentWidth, 5, country, "", 1, "L", false, 0, "")
	}
	if phone := strings.TrimSpace(doc.BillTo.Phone); phone != "" {
		pdf.CellFormat(contentWidth, 5, "Phone: "+phone, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Items table.
	colWidths := []float64{16, 14, 52, 10, 24, 24, 18, 28}
	headers := []string{"SKU", "HSN", "Description", "Qty", "Rate (Taxable)", "Taxable Value", "GST", "Amount"}

	pdf.SetFont("Helvetica", "B", tableFontSize)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", tableFontSize)
	for _, line := range doc.Lines {
		gst := fmt.Sprintf("%.0f%%", CGSTRatePercent+SGSTRatePercent)
		cells := []struct {
			text  string
			align string
		}{
			{line.SKU, "C"},
			{line.HSN, "C"},
			{line.Description, "L"},
			{fmt.Sprintf("%d", line.Quantity), "C"},
			{FormatAmount(line.UnitTaxableRate), "R"},
			{FormatAmount(line.TaxableValue), "R"},
			{gst, "C"},
			{FormatAmount(line.LineTotal), "R"},
		}
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], 6, cell.text, "1", 0, cell.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	// Summary block, right aligned.
	summary := []struct {
		label string
		value float64
		bold  bool
	}{
		{"Taxable Value", doc.Totals.TaxableValue, false},
		{fmt.Sprintf("CGST @ %.0f%%", CGSTRatePercent), doc.Totals.CGST, false},
		{fmt.Sprintf("SGST @ %.0f%%", SGSTRatePercent), doc.Totals.SGST, false},
		{"Grand Total", doc.Totals.GrandTotal, true},
	}
	labelWidth := contentWidth - 60
	for _, row := range summary {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelWidth, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, FormatAmount(row.value), "T", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 8.5)
	pdf.CellFormat(contentWidth, 5, "Payment Method: "+strings.ToUpper(doc.PaymentMethod), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "Dispatch Center: "+doc.Seller.DispatchHub, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 7.5)
	pdf.SetTextColor(100, 100, 100)
	terms := "Goods once sold are eligible for return within the applicable return window only. " +
		"Prices are inclusive of GST. This is a computer generated invoice and does not require a signature."
	pdf.MultiCell(contentWidth, 4, terms, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, sep)
}
