package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/platform/mail"
	"github.com/primemart/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix = "ord_"

	fallbackRecipientName  = "Customer"
	fallbackContactPhone   = "N/A"
	defaultRejectionReason = "No specific reason provided."

	minimumOrderTotal = 1.0
	recentOrdersLimit = 5
	lowStockPanelSize = 5
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an illegal status transition or a
	// lifecycle operation attempted from the wrong state.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderForbidden indicates the actor owns neither the order nor the admin role.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderConflict indicates duplicate writes.
	ErrOrderConflict = errors.New("order: conflict")
)

// orderStateTransitions is the forward workflow graph. Rejection is reachable
// from any state, terminal orders stay editable by admins, and re-applying the
// current status is always permitted; see transitionAllowed.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:    {domain.OrderProcessing, domain.OrderRejected, domain.OrderCancelled},
	domain.OrderProcessing: {domain.OrderShipped, domain.OrderCancelled},
	domain.OrderShipped:    {domain.OrderDelivered, domain.OrderCancelled},
}

var knownOrderStatuses = []domain.OrderStatus{
	domain.OrderPending,
	domain.OrderProcessing,
	domain.OrderShipped,
	domain.OrderDelivered,
	domain.OrderRejected,
	domain.OrderCancelled,
}

// deletableStatuses lists the states an owner may remove from their history.
var deletableStatuses = []domain.OrderStatus{
	domain.OrderCancelled,
	domain.OrderRejected,
}

// statusHistogramBuckets are the statuses surfaced on the admin dashboard.
var statusHistogramBuckets = []domain.OrderStatus{
	domain.OrderPending,
	domain.OrderProcessing,
	domain.OrderShipped,
	domain.OrderDelivered,
	domain.OrderCancelled,
}

// OrderServiceDeps bundles collaborators required to construct the order service.
// Orders, Users, Products and Counters are primary dependencies; the rest
// back advisory effects and may be nil.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Users         repositories.UserRepository
	Products      repositories.ProductRepository
	Counters      CounterService
	Invoices      InvoiceService
	Notifications NotificationService
	Mailer        mail.Sender
	Events        OrderEventPublisher
	UnitOfWork    repositories.UnitOfWork
	Sanitizer     *bluemonday.Policy
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders        repositories.OrderRepository
	users         repositories.UserRepository
	products      repositories.ProductRepository
	counters      CounterService
	invoices      InvoiceService
	notifications NotificationService
	mailer        mail.Sender
	events        OrderEventPublisher
	unitOfWork    repositories.UnitOfWork
	sanitizer     *bluemonday.Policy
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter service is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = bluemonday.StrictPolicy()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return orderIDPrefix + ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:        deps.Orders,
		users:         deps.Users,
		products:      deps.Products,
		counters:      deps.Counters,
		invoices:      deps.Invoices,
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		events:        deps.Events,
		unitOfWork:    unit,
		sanitizer:     sanitizer,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Create persists a new order with immutable item and shipping snapshots,
// then runs the advisory chain: invoice, confirmation email, admin
// notification, lifecycle event. Advisory failures are logged and never undo
// the created order.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	if cmd.TotalAmount < minimumOrderTotal {
		return Order{}, fmt.Errorf("%w: total amount must be at least %d", ErrOrderInvalidInput, int(minimumOrderTotal))
	}
	method, err := normalizePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return Order{}, err
	}
	for i, item := range cmd.Items {
		if item.Quantity < 1 {
			return Order{}, fmt.Errorf("%w: item %d quantity must be at least 1", ErrOrderInvalidInput, i)
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return Order{}, fmt.Errorf("%w: user %q not found", ErrOrderInvalidInput, userID)
		}
		return Order{}, s.mapRepositoryError(err)
	}

	number, err := s.counters.NextOrderNumber(ctx)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	order := Order{
		ID:              s.newID(),
		OrderNumber:     number,
		UserID:          userID,
		Items:           s.snapshotItems(ctx, cmd.Items),
		ShippingAddress: buildShippingSnapshot(cmd.ShippingAddress, user),
		TotalAmount:     cmd.TotalAmount,
		Tax:             cmd.Tax,
		PaymentMethod:   method,
		PaymentState:    domain.PaymentPending,
		Status:          domain.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	order, pdf := s.ensureInvoiceArtifacts(ctx, order)

	subject := "Order Placed Successfully ✅"
	if method == domain.PaymentMethodStripe {
		subject = "Order Received - Awaiting Payment ⏳"
	}
	msg := mail.Message{
		To:      user.Email,
		Subject: subject,
		HTML:    fmt.Sprintf("<p>Thank you for your order (<b>%s</b>). Your invoice is attached.</p>", order.OrderNumber),
	}
	if len(pdf) > 0 {
		msg.Attachments = []mail.Attachment{invoiceAttachment(order.Invoice.Number, pdf)}
	}
	s.sendEmail(ctx, order.ID, msg)

	s.notify(ctx, PublishNotificationCommand{
		Type:    domain.NotificationOrderPlaced,
		OrderID: order.ID,
		UserID:  userID,
		Message: fmt.Sprintf("Order %s placed for ₹%s.", order.OrderNumber, formatAmount(order.TotalAmount)),
	})

	s.publishEvent(ctx, OrderEvent{
		Type:        orderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      userID,
		Status:      order.Status,
		OccurredAt:  now,
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderForbidden, orderID)
	}
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) ListAll(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Order], error) {
	return s.ListAll(ctx, OrderListFilter{
		Status:     []domain.OrderStatus{domain.OrderPending},
		Pagination: pager,
	})
}

// TransitionStatus moves an order along the lifecycle state machine. The
// status write is the primary effect; status emails, invoice generation and
// the lifecycle event are advisory.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := domain.OrderStatus(strings.TrimSpace(string(cmd.TargetStatus)))
	if !slices.Contains(knownOrderStatuses, target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, target)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	// A terminal order may be corrected administratively, but the edit does
	// not re-enter the invoice or mail workflow.
	fromTerminal := isTerminalOrderStatus(order.Status) && order.Status != target
	if err := s.applyStatusTransition(&order, target, strings.TrimSpace(cmd.ActorID), cmd.RejectionReason, now); err != nil {
		return Order{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if !fromTerminal {
		var pdf []byte
		switch target {
		case domain.OrderProcessing, domain.OrderDelivered:
			order, pdf = s.ensureInvoiceArtifacts(ctx, order)
		}
		s.sendStatusEmail(ctx, order, target, pdf)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:        orderEventStatusChanged,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		OccurredAt:  now,
	})

	return order, nil
}

// Approve is the admin shortcut to the processing state. It emits the
// approval notification and email instead of the generic status update mail.
func (s *orderService) Approve(ctx context.Context, actorID string, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	if err := s.applyStatusTransition(&order, domain.OrderProcessing, strings.TrimSpace(actorID), "", now); err != nil {
		return Order{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.notify(ctx, PublishNotificationCommand{
		Type:    domain.NotificationOrderApproved,
		OrderID: order.ID,
		UserID:  order.UserID,
		Message: fmt.Sprintf("Order %s has been approved and is now processing.", order.OrderNumber),
	})

	if user, lookupErr := s.users.FindByID(ctx, order.UserID); lookupErr == nil {
		s.sendEmail(ctx, order.ID, mail.Message{
			To:      user.Email,
			Subject: "Order Approved ✅",
			HTML:    approvalEmailBody(user.Name, order),
		})
	} else {
		s.logger(ctx, "order.email.recipient.lookup.failed", map[string]any{
			"order": order.ID,
			"error": lookupErr.Error(),
		})
	}

	s.publishEvent(ctx, OrderEvent{
		Type:        orderEventStatusChanged,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		OccurredAt:  now,
	})

	return order, nil
}

// Reject is the admin shortcut to the rejected state.
func (s *orderService) Reject(ctx context.Context, actorID string, orderID string, reason string) (Order, error) {
	order, err := s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:         orderID,
		TargetStatus:    domain.OrderRejected,
		ActorID:         actorID,
		RejectionReason: reason,
	})
	if err != nil {
		return Order{}, err
	}

	s.notify(ctx, PublishNotificationCommand{
		Type:    domain.NotificationOrderRejected,
		OrderID: order.ID,
		UserID:  order.UserID,
		Message: fmt.Sprintf("Order %s was rejected by admin.", order.OrderNumber),
	})

	return order, nil
}

// Cancel lets the owner withdraw an order that is still pending.
func (s *orderService) Cancel(ctx context.Context, userID string, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != strings.TrimSpace(userID) {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderForbidden, orderID)
	}
	if order.Status != domain.OrderPending {
		return Order{}, fmt.Errorf("%w: only pending orders can be cancelled, order is %q", ErrOrderInvalidState, order.Status)
	}

	now := s.now()
	order.Status = domain.OrderCancelled
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

	s.publishEvent(ctx, OrderEvent{
		Type:        orderEventStatusChanged,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		OccurredAt:  now,
	})

	return order, nil
}

// DeleteOwn removes a cancelled or rejected order from the owner's history.
// Non-owners get not-found rather than forbidden so order IDs stay opaque.
func (s *orderService) DeleteOwn(ctx context.Context, userID string, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if order.UserID != strings.TrimSpace(userID) {
		return fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}
	if !slices.Contains(deletableStatuses, order.Status) {
		return fmt.Errorf("%w: only cancelled or rejected orders can be deleted", ErrOrderInvalidState)
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *orderService) DeleteAny(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// Stats assembles the admin dashboard figures. Revenue counts delivered
// orders only.
func (s *orderService) Stats(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{}

	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}
	if stats.TotalProducts, err = s.products.Count(ctx); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}
	if stats.TotalOrders, err = s.orders.Count(ctx); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}
	if stats.Revenue, err = s.orders.DeliveredRevenue(ctx); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}
	if stats.RecentOrders, err = s.orders.ListRecent(ctx, recentOrdersLimit); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}

	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}
	stats.StatusCounts = make(map[domain.OrderStatus]int64, len(statusHistogramBuckets))
	for _, status := range statusHistogramBuckets {
		stats.StatusCounts[status] = counts[status]
	}

	if stats.LowStockProducts, err = s.products.ListLowStock(ctx, lowStockThreshold, lowStockPanelSize); err != nil {
		return DashboardStats{}, s.mapRepositoryError(err)
	}

	return stats, nil
}

// applyStatusTransition validates the edge against the state machine and
// stamps the per-status bookkeeping fields. Approval and rejection stamps are
// mutually exclusive: setting one clears the other.
// transitionAllowed reports whether the status change is legal. Beyond the
// forward graph: re-applying the current status is a no-op re-assert, a
// rejection overwrites whatever state came before it, and terminal orders may
// still be edited administratively.
func transitionAllowed(current, target domain.OrderStatus) bool {
	if current == target {
		return true
	}
	if target == domain.OrderRejected {
		return true
	}
	if isTerminalOrderStatus(current) {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

func isTerminalOrderStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderDelivered, domain.OrderCancelled, domain.OrderRejected:
		return true
	}
	return false
}

func (s *orderService) applyStatusTransition(order *Order, target domain.OrderStatus, actorID string, reason string, now time.Time) error {
	if !transitionAllowed(order.Status, target) {
		return fmt.Errorf("%w: cannot move order from %q to %q", ErrOrderInvalidState, order.Status, target)
	}

	order.Status = target
	order.UpdatedAt = now

	switch target {
	case domain.OrderProcessing:
		order.ApprovedBy = actorID
		order.ApprovedAt = &now
		order.RejectedBy = ""
		order.RejectedAt = nil
		order.RejectionReason = ""
	case domain.OrderRejected:
		order.RejectedBy = actorID
		order.RejectedAt = &now
		order.ApprovedBy = ""
		order.ApprovedAt = nil
		order.RejectionReason = s.sanitizeReason(reason)
	}

	return nil
}

func (s *orderService) sanitizeReason(reason string) string {
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(reason))
	if cleaned == "" {
		return defaultRejectionReason
	}
	return cleaned
}

// snapshotItems freezes order lines. Lines whose product still exists are
// enriched from the catalog; lines whose product is gone keep the submitted
// fields so historical orders survive catalog deletions.
func (s *orderService) snapshotItems(ctx context.Context, inputs []OrderItemInput) []OrderItem {
	items := make([]OrderItem, 0, len(inputs))
	for _, input := range inputs {
		item := OrderItem{
			ProductID: strings.TrimSpace(input.ProductID),
			Name:      strings.TrimSpace(input.Name),
			Price:     input.Price,
			Quantity:  input.Quantity,
			Image:     strings.TrimSpace(input.Image),
		}
		if item.ProductID != "" {
			if product, err := s.products.FindByID(ctx, item.ProductID); err == nil {
				item.Name = product.Name
				item.Price = product.Price
				if product.Image.URL != "" {
					item.Image = product.Image.URL
				}
			} else if !isRepositoryNotFound(err) {
				s.logger(ctx, "order.item.enrich.failed", map[string]any{
					"product": item.ProductID,
					"error":   err.Error(),
				})
			}
		}
		items = append(items, item)
	}
	return items
}

// ensureInvoiceArtifacts runs the invoice chain and renders the PDF for
// attachment. Both steps are advisory: failures are logged and the order is
// returned as far as the chain got.
func (s *orderService) ensureInvoiceArtifacts(ctx context.Context, order Order) (Order, []byte) {
	if s.invoices == nil {
		return order, nil
	}

	ensured, err := s.invoices.EnsureInvoice(ctx, order)
	if err != nil {
		s.logger(ctx, "order.invoice.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
		return order, nil
	}

	pdf, err := s.invoices.RenderPDF(ctx, ensured)
	if err != nil {
		s.logger(ctx, "order.invoice.render.failed", map[string]any{
			"order": ensured.ID,
			"error": err.Error(),
		})
		return ensured, nil
	}
	return ensured, pdf
}

// sendStatusEmail delivers the transition mail for the given target status.
func (s *orderService) sendStatusEmail(ctx context.Context, order Order, target domain.OrderStatus, pdf []byte) {
	if s.mailer == nil {
		return
	}

	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		s.logger(ctx, "order.email.recipient.lookup.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
		return
	}

	upper := strings.ToUpper(string(target))
	msg := mail.Message{To: user.Email}

	switch target {
	case domain.OrderRejected:
		msg.Subject = fmt.Sprintf("Order Rejected: %s ❌", order.OrderNumber)
		msg.HTML = rejectionEmailBody(user.Name, order)
	case domain.OrderProcessing, domain.OrderDelivered:
		msg.Subject = fmt.Sprintf("Order Update: %s - Invoice Attached", upper)
		msg.HTML = fmt.Sprintf("<p>Your order <b>%s</b> is now <b>%s</b>. Tax Invoice attached.</p>", order.OrderNumber, target)
		if len(pdf) > 0 {
			msg.Attachments = []mail.Attachment{invoiceAttachment(order.Invoice.Number, pdf)}
		}
	default:
		msg.Subject = fmt.Sprintf("Order Update: %s", upper)
		msg.HTML = fmt.Sprintf("<p>Your order <strong>%s</strong> status is now <strong>%s</strong>.</p>", order.OrderNumber, target)
	}

	s.sendEmail(ctx, order.ID, msg)
}

func (s *orderService) sendEmail(ctx context.Context, orderID string, msg mail.Message) {
	if s.mailer == nil || strings.TrimSpace(msg.To) == "" {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger(ctx, "order.email.failed", map[string]any{
			"order":   orderID,
			"subject": msg.Subject,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) notify(ctx context.Context, cmd PublishNotificationCommand) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Publish(ctx, cmd); err != nil {
		s.logger(ctx, "order.notification.failed", map[string]any{
			"order": cmd.OrderID,
			"type":  string(cmd.Type),
			"error": err.Error(),
		})
	}
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// buildShippingSnapshot fills gaps in the submitted address from the user's
// saved address and profile. The result is frozen onto the order.
func buildShippingSnapshot(submitted ShippingAddress, user User) ShippingAddress {
	snapshot := submitted

	if strings.TrimSpace(snapshot.FullName) == "" {
		snapshot.FullName = strings.TrimSpace(user.ShippingAddress.FullName)
	}
	if strings.TrimSpace(snapshot.FullName) == "" {
		snapshot.FullName = strings.TrimSpace(user.Name)
	}
	if strings.TrimSpace(snapshot.FullName) == "" {
		snapshot.FullName = fallbackRecipientName
	}

	if strings.TrimSpace(snapshot.Phone) == "" {
		snapshot.Phone = strings.TrimSpace(user.Mobile)
	}
	if strings.TrimSpace(snapshot.Phone) == "" {
		snapshot.Phone = strings.TrimSpace(user.ShippingAddress.Phone)
	}
	if strings.TrimSpace(snapshot.Phone) == "" {
		snapshot.Phone = fallbackContactPhone
	}

	if strings.TrimSpace(snapshot.Street) == "" {
		snapshot.Street = user.ShippingAddress.Street
	}
	if strings.TrimSpace(snapshot.City) == "" {
		snapshot.City = user.ShippingAddress.City
	}
	if strings.TrimSpace(snapshot.State) == "" {
		snapshot.State = user.ShippingAddress.State
	}
	if strings.TrimSpace(snapshot.Pincode) == "" {
		snapshot.Pincode = user.ShippingAddress.Pincode
	}
	if strings.TrimSpace(snapshot.Country) == "" {
		snapshot.Country = strings.TrimSpace(user.ShippingAddress.Country)
	}
	if strings.TrimSpace(snapshot.Country) == "" {
		snapshot.Country = defaultCountry
	}

	return snapshot
}

func normalizePaymentMethod(method domain.PaymentMethod) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(method)))) {
	case "":
		return domain.PaymentMethodCOD, nil
	case domain.PaymentMethodCOD:
		return domain.PaymentMethodCOD, nil
	case domain.PaymentMethodStripe:
		return domain.PaymentMethodStripe, nil
	default:
		return "", fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, method)
	}
}

func invoiceAttachment(invoiceNumber string, pdf []byte) mail.Attachment {
	name := strings.TrimSpace(invoiceNumber)
	if name == "" {
		name = "invoice"
	}
	return mail.Attachment{
		Filename:    name + ".pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func approvalEmailBody(name string, order Order) string {
	if strings.TrimSpace(name) == "" {
		name = fallbackRecipientName
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; line-height: 1.5; color: #333;">
  <h2>Great news! Your order is approved.</h2>
  <p>Hi %s,</p>
  <p>Your order <strong>%s</strong> has been approved by our team and is now being processed.</p>
  <p><strong>Status:</strong> Processing<br><strong>Total Amount:</strong> ₹%s</p>
  <p>We will notify you once your order is shipped.</p>
  <p>Thank you for shopping with us!</p>
</div>`, name, order.OrderNumber, formatAmount(order.TotalAmount))
}

func rejectionEmailBody(name string, order Order) string {
	if strings.TrimSpace(name) == "" {
		name = fallbackRecipientName
	}
	reason := order.RejectionReason
	if strings.TrimSpace(reason) == "" {
		reason = defaultRejectionReason
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px; border: 1px solid #fee2e2;">
  <h2 style="color: #dc2626;">Order Status: Rejected</h2>
  <p>Hi %s,</p>
  <p>Regrettably, your order <b>%s</b> has been rejected.</p>
  <p><strong>Reason:</strong> %s</p>
  <p>Please contact our support for more info.</p>
</div>`, name, order.OrderNumber, reason)
}
