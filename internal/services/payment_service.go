package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/payments"
	"github.com/primemart/api/internal/platform/mail"
	"github.com/primemart/api/internal/repositories"
)

const (
	orderEventPaid = "order.paid"

	checkoutCurrency        = "inr"
	sessionIDTemplate       = "{CHECKOUT_SESSION_ID}"
	checkoutIdempotencyStem = "checkout-"
)

var (
	// ErrPaymentInvalidInput signals the caller provided invalid data.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentOrderNotFound indicates no order matches the id or session.
	ErrPaymentOrderNotFound = errors.New("payment: order not found")
	// ErrPaymentForbidden indicates the actor owns neither the order nor the admin role.
	ErrPaymentForbidden = errors.New("payment: forbidden")
	// ErrPaymentAlreadyPaid indicates the order has already been settled.
	ErrPaymentAlreadyPaid = errors.New("payment: order already paid")
	// ErrPaymentNotCompleted indicates the gateway has not confirmed settlement.
	ErrPaymentNotCompleted = errors.New("payment: payment has not been completed")
)

// PaymentServiceDeps bundles collaborators for the payment service. The
// gateway, order and user repositories are required; invoice, mail and event
// collaborators back advisory effects and may be nil.
type PaymentServiceDeps struct {
	Orders     repositories.OrderRepository
	Users      repositories.UserRepository
	Gateway    payments.Gateway
	Invoices   InvoiceService
	Mailer     mail.Sender
	Events     OrderEventPublisher
	UnitOfWork repositories.UnitOfWork
	SuccessURL string
	CancelURL  string
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders     repositories.OrderRepository
	users      repositories.UserRepository
	gateway    payments.Gateway
	invoices   InvoiceService
	mailer     mail.Sender
	events     OrderEventPublisher
	unitOfWork repositories.UnitOfWork
	successURL string
	cancelURL  string
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

var _ PaymentService = (*paymentService)(nil)

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("payment service: user repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment service: gateway is required")
	}
	if strings.TrimSpace(deps.SuccessURL) == "" {
		return nil, errors.New("payment service: success url is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		orders:     deps.Orders,
		users:      deps.Users,
		gateway:    deps.Gateway,
		invoices:   deps.Invoices,
		mailer:     deps.Mailer,
		events:     deps.Events,
		unitOfWork: unit,
		successURL: ensureSessionTemplate(strings.TrimSpace(deps.SuccessURL)),
		cancelURL:  strings.TrimSpace(deps.CancelURL),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckoutSession opens a hosted checkout session for the order and
// records the session id on the order so the session can be reconciled later.
func (s *paymentService) CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return CheckoutSession{}, s.mapRepositoryError(err)
	}
	if !cmd.Actor.IsAdmin() && order.UserID != cmd.Actor.UserID {
		return CheckoutSession{}, fmt.Errorf("%w: order %s", ErrPaymentForbidden, orderID)
	}
	if order.IsPaid {
		return CheckoutSession{}, fmt.Errorf("%w: order %s", ErrPaymentAlreadyPaid, orderID)
	}

	var customerEmail string
	if user, lookupErr := s.users.FindByID(ctx, order.UserID); lookupErr == nil {
		customerEmail = user.Email
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Currency:       checkoutCurrency,
		CustomerEmail:  customerEmail,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		IdempotencyKey: checkoutIdempotencyStem + order.ID,
		Metadata: map[string]string{
			"orderId": order.ID,
			"userId":  order.UserID,
		},
		Items: checkoutLineItems(order.Items),
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("payment: create checkout session: %w", err)
	}

	order.StripeSessionID = session.ID
	order.UpdatedAt = s.clock()

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	return CheckoutSession{
		SessionID: session.ID,
		URL:       session.RedirectURL,
	}, nil
}

// VerifyPayment reconciles a checkout session against the gateway. Only a
// session reported as paid advances the order; the payment field writes are
// primary, the invoice and receipt email advisory.
func (s *paymentService) VerifyPayment(ctx context.Context, actor Actor, sessionID string) (Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Order{}, fmt.Errorf("%w: session id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByStripeSession(ctx, sessionID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return Order{}, fmt.Errorf("%w: order %s", ErrPaymentForbidden, order.ID)
	}
	if order.IsPaid {
		return order, nil
	}

	details, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return Order{}, fmt.Errorf("payment: retrieve checkout session: %w", err)
	}
	if details.PaymentStatus != payments.StatusPaid {
		return Order{}, fmt.Errorf("%w: session %s is %q", ErrPaymentNotCompleted, sessionID, details.PaymentStatus)
	}

	now := s.clock()
	order.PaymentState = domain.PaymentPaid
	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentIntentID = details.IntentID
	if order.Status == domain.OrderPending {
		order.Status = domain.OrderProcessing
	}
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	order = s.sendReceipt(ctx, order)

	s.publishEvent(ctx, OrderEvent{
		Type:        orderEventPaid,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		OccurredAt:  now,
	})

	return order, nil
}

// sendReceipt runs the advisory post-payment chain: ensure the invoice exists
// and mail the receipt with the PDF attached.
func (s *paymentService) sendReceipt(ctx context.Context, order Order) Order {
	var pdf []byte
	if s.invoices != nil {
		ensured, err := s.invoices.EnsureInvoice(ctx, order)
		if err != nil {
			s.logger(ctx, "payment.invoice.failed", map[string]any{
				"order": order.ID,
				"error": err.Error(),
			})
		} else {
			order = ensured
			if pdf, err = s.invoices.RenderPDF(ctx, order); err != nil {
				s.logger(ctx, "payment.invoice.render.failed", map[string]any{
					"order": order.ID,
					"error": err.Error(),
				})
				pdf = nil
			}
		}
	}

	if s.mailer == nil {
		return order
	}

	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil || strings.TrimSpace(user.Email) == "" {
		if err != nil {
			s.logger(ctx, "payment.email.recipient.lookup.failed", map[string]any{
				"order": order.ID,
				"error": err.Error(),
			})
		}
		return order
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Payment Confirmed - Order Receipt ✅",
		HTML:    receiptEmailBody(user.Name, order),
	}
	if len(pdf) > 0 {
		msg.Attachments = []mail.Attachment{invoiceAttachment(order.Invoice.Number, pdf)}
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger(ctx, "payment.email.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
	}

	return order
}

func (s *paymentService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "payment.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *paymentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPaymentOrderNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("payment: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *paymentService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

// checkoutLineItems converts order lines to gateway line items in INR minor units.
func checkoutLineItems(items []OrderItem) []payments.CheckoutLineItem {
	lines := make([]payments.CheckoutLineItem, 0, len(items))
	for _, item := range items {
		quantity := int64(item.Quantity)
		if quantity < 1 {
			quantity = 1
		}
		lines = append(lines, payments.CheckoutLineItem{
			Name:     item.Name,
			SKU:      item.ProductID,
			Quantity: quantity,
			Amount:   int64(math.Round(item.Price * 100)),
			Currency: checkoutCurrency,
		})
	}
	return lines
}

func ensureSessionTemplate(successURL string) string {
	if strings.Contains(successURL, sessionIDTemplate) {
		return successURL
	}
	separator := "?"
	if strings.Contains(successURL, "?") {
		separator = "&"
	}
	return successURL + separator + "session_id=" + sessionIDTemplate
}

func receiptEmailBody(name string, order Order) string {
	if strings.TrimSpace(name) == "" {
		name = fallbackRecipientName
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; padding: 20px; border: 1px solid #eee;">
  <h2 style="color: #10b981;">Payment Received!</h2>
  <p>Hi %s,</p>
  <p>Your payment for order <b>%s</b> has been successfully verified.</p>
  <p><strong>Total Amount Paid:</strong> ₹%s</p>
  <p>Download Link: <a href="%s">View PDF Invoice</a></p>
  <hr />
  <p>Best regards,<br />Store Team</p>
</div>`, name, order.OrderNumber, formatAmount(order.TotalAmount), order.Invoice.URL)
}
