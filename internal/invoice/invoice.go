// Package invoice computes GST tax breakdowns and renders tax invoice PDFs
// for orders. Catalog prices are tax inclusive; the taxable value is derived
// by backing the combined GST rate out of each line total.
package invoice

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/primemart/api/internal/domain"
)

// GST split applied to every line. Prices are inclusive of the combined rate.
const (
	CGSTRatePercent = 9.0
	SGSTRatePercent = 9.0
)

const defaultHSNCode = "9983"

// Seller is the letterhead block printed at the top of every invoice.
type Seller struct {
	Name        string
	Address     string
	GSTIN       string
	Email       string
	DispatchHub string
}

// BillTo is the buyer block, taken from the order's shipping snapshot.
type BillTo struct {
	Name    string
	Phone   string
	Street  string
	City    string
	State   string
	Pincode string
	Country string
}

// Line is a single invoice row with its derived tax components.
type Line struct {
	SKU             string
	HSN             string
	Description     string
	Quantity        int
	UnitPrice       float64
	UnitTaxableRate float64
	TaxableValue    float64
	CGST            float64
	SGST            float64
	LineTotal       float64
}

// Totals summarises the invoice footer figures.
type Totals struct {
	TaxableValue float64
	CGST         float64
	SGST         float64
	GrandTotal   float64
}

// Document is a fully computed invoice ready for rendering.
type Document struct {
	Number        string
	OrderNumber   string
	IssuedAt      time.Time
	Seller        Seller
	BillTo        BillTo
	Lines         []Line
	Totals        Totals
	Paid          bool
	PaymentMethod string
}

// Compose derives the invoice document for an order. The order must already
// carry its invoice number.
func Compose(order domain.Order, seller Seller, issuedAt time.Time) (Document, error) {
	number := strings.TrimSpace(order.Invoice.Number)
	if number == "" {
		return Document{}, errors.New("invoice: order has no invoice number")
	}
	if len(order.Items) == 0 {
		return Document{}, errors.New("invoice: order has no items")
	}

	combined := 1 + (CGSTRatePercent+SGSTRatePercent)/100

	lines := make([]Line, 0, len(order.Items))
	for _, item := range order.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineTotal := item.Price * float64(qty)
		taxable := lineTotal / combined
		line := Line{
			SKU:             skuFromProductID(item.ProductID),
			HSN:             defaultHSNCode,
			Description:     item.Name,
			Quantity:        qty,
			UnitPrice:       item.Price,
			UnitTaxableRate: taxable / float64(qty),
			TaxableValue:    taxable,
			CGST:            taxable * CGSTRatePercent / 100,
			SGST:            taxable * SGSTRatePercent / 100,
			LineTotal:       lineTotal,
		}
		lines = append(lines, line)
	}

	totals := Totals{
		TaxableValue: order.TotalAmount - order.Tax,
		CGST:         order.Tax / 2,
		SGST:         order.Tax / 2,
		GrandTotal:   order.TotalAmount,
	}

	addr := order.ShippingAddress
	return Document{
		Number:      number,
		OrderNumber: order.OrderNumber,
		IssuedAt:    issuedAt.UTC(),
		Seller:      seller,
		BillTo: BillTo{
			Name:    addr.FullName,
			Phone:   addr.Phone,
			Street:  addr.Street,
			City:    addr.City,
			State:   addr.State,
			Pincode: addr.Pincode,
			Country: addr.Country,
		},
		Lines:         lines,
		Totals:        totals,
		Paid:          order.IsPaid,
		PaymentMethod: string(order.PaymentMethod),
	}, nil
}

// skuFromProductID derives the printed SKU: last six characters of the
// product ID, uppercased.
func skuFromProductID(productID string) string {
	id := strings.TrimSpace(productID)
	if id == "" {
		return "N/A"
	}
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatAmount renders a rupee amount with Indian digit grouping and two
// decimal places, e.g. "Rs 1,18,000.00".
func FormatAmount(v float64) string {
	return inrPrinter.Sprintf("Rs %v", number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}
