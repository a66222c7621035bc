package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/invoice"
	"github.com/primemart/api/internal/platform/storage"
	"github.com/primemart/api/internal/repositories"
)

var (
	// ErrInvoiceInvalidInput indicates the order cannot carry an invoice.
	ErrInvoiceInvalidInput = errors.New("invoice service: invalid input")
	// ErrInvoiceOrderNotFound indicates the order does not exist.
	ErrInvoiceOrderNotFound = errors.New("invoice service: order not found")
	// ErrInvoiceForbidden indicates the actor is neither the owner nor an admin.
	ErrInvoiceForbidden = errors.New("invoice service: forbidden")
)

// InvoiceUploader stores rendered invoice PDFs and returns their public URL.
type InvoiceUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error)
}

// InvoiceServiceDeps bundles collaborators for the invoice service.
type InvoiceServiceDeps struct {
	Orders   repositories.OrderRepository
	Counters CounterService
	Uploader InvoiceUploader
	Bucket   string
	Seller   invoice.Seller
	Clock    func() time.Time
}

type invoiceService struct {
	orders   repositories.OrderRepository
	counters CounterService
	uploader InvoiceUploader
	renderer *invoice.Renderer
	bucket   string
	seller   invoice.Seller
	clock    func() time.Time
}

var _ InvoiceService = (*invoiceService)(nil)

// NewInvoiceService constructs the invoice composer service.
func NewInvoiceService(deps InvoiceServiceDeps) (InvoiceService, error) {
	if deps.Orders == nil {
		return nil, errors.New("invoice service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("invoice service: counter service is required")
	}
	if deps.Uploader == nil {
		return nil, errors.New("invoice service: uploader is required")
	}
	if strings.TrimSpace(deps.Bucket) == "" {
		return nil, errors.New("invoice service: bucket is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &invoiceService{
		orders:   deps.Orders,
		counters: deps.Counters,
		uploader: deps.Uploader,
		renderer: invoice.NewRenderer(),
		bucket:   strings.TrimSpace(deps.Bucket),
		seller:   deps.Seller,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

// EnsureInvoice is the single entry point for invoice generation. An order
// that already carries a number and URL is returned as is; otherwise a number
// is allocated exactly once, the PDF rendered and uploaded, and the invoice
// fields persisted on the order.
func (s *invoiceService) EnsureInvoice(ctx context.Context, order Order) (Order, error) {
	if strings.TrimSpace(order.ID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrInvoiceInvalidInput)
	}
	if len(order.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order has no items", ErrInvoiceInvalidInput)
	}

	if order.Invoice.Number != "" && order.Invoice.URL != "" {
		return order, nil
	}

	number := order.Invoice.Number
	if number == "" {
		allocated, err := s.counters.NextInvoiceNumber(ctx)
		if err != nil {
			return Order{}, fmt.Errorf("invoice service: allocate number: %w", err)
		}
		number = allocated
	}

	now := s.clock()
	order.Invoice.Number = number
	order.Invoice.GeneratedAt = now

	pdf, err := s.render(order, now)
	if err != nil {
		return Order{}, err
	}

	object, err := storage.BuildObjectPath(storage.PurposeInvoice, storage.PathParams{
		OrderID:       order.ID,
		InvoiceNumber: number,
	})
	if err != nil {
		return Order{}, fmt.Errorf("invoice service: build object path: %w", err)
	}

	url, err := s.uploader.Upload(ctx, s.bucket, object, "application/pdf", pdf)
	if err != nil {
		return Order{}, fmt.Errorf("invoice service: upload pdf: %w", err)
	}

	order.Invoice.URL = url
	order.Invoice.PublicID = object
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.translate(err)
	}
	return order, nil
}

// RenderPDF renders the invoice document for an email attachment. The order
// must already carry an invoice number.
func (s *invoiceService) RenderPDF(ctx context.Context, order Order) ([]byte, error) {
	if order.Invoice.Number == "" {
		return nil, fmt.Errorf("%w: order has no invoice number", ErrInvoiceInvalidInput)
	}
	issuedAt := order.Invoice.GeneratedAt
	if issuedAt.IsZero() {
		issuedAt = s.clock()
	}
	return s.render(order, issuedAt)
}

// GetInvoice resolves the order and guarantees it carries an invoice. Only
// the order owner or an admin may fetch it.
func (s *invoiceService) GetInvoice(ctx context.Context, actor Actor, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrInvoiceInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translate(err)
	}

	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return Order{}, ErrInvoiceForbidden
	}

	return s.EnsureInvoice(ctx, order)
}

func (s *invoiceService) render(order Order, issuedAt time.Time) ([]byte, error) {
	doc, err := invoice.Compose(domain.Order(order), s.seller, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("invoice service: compose: %w", err)
	}
	pdf, err := s.renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("invoice service: render pdf: %w", err)
	}
	return pdf, nil
}

func (s *invoiceService) translate(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrInvoiceOrderNotFound, err)
	}
	return err
}
