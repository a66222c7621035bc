package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/repositories"
)

type memOrderRepo struct {
	mu      sync.Mutex
	store   map[string]domain.Order
	updates []domain.Order
	deleted []string

	recent    []domain.Order
	byStatus  map[domain.OrderStatus]int64
	revenue   float64
	insertErr error
	updateErr error
}

func newMemOrderRepo(orders ...domain.Order) *memOrderRepo {
	repo := &memOrderRepo{store: make(map[string]domain.Order)}
	for _, order := range orders {
		repo.store[order.ID] = order
	}
	return repo
}

func (m *memOrderRepo) Insert(_ context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.store[order.ID]; ok {
		return &storeError{err: fmt.Errorf("order %s exists", order.ID), conflict: true}
	}
	m.store[order.ID] = order
	return nil
}

func (m *memOrderRepo) Update(_ context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.store[order.ID]; !ok {
		return notFoundError("order %s not found", order.ID)
	}
	m.store[order.ID] = order
	m.updates = append(m.updates, order)
	return nil
}

func (m *memOrderRepo) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[orderID]; !ok {
		return notFoundError("order %s not found", orderID)
	}
	delete(m.store, orderID)
	m.deleted = append(m.deleted, orderID)
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store[orderID]
	if !ok {
		return domain.Order{}, notFoundError("order %s not found", orderID)
	}
	return order, nil
}

func (m *memOrderRepo) FindByStripeSession(_ context.Context, sessionID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.store {
		if order.StripeSessionID == sessionID {
			return order, nil
		}
	}
	return domain.Order{}, notFoundError("session %s not found", sessionID)
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string, _ domain.Pagination) (domain.CursorPage[domain.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Order]{}
	for _, order := range m.store {
		if order.UserID == userID {
			page.Items = append(page.Items, order)
		}
	}
	return page, nil
}

func (m *memOrderRepo) List(_ context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Order]{}
	for _, order := range m.store {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				if order.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

func (m *memOrderRepo) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *memOrderRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.store)), nil
}

func (m *memOrderRepo) CountByStatus(_ context.Context) (map[domain.OrderStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.OrderStatus]int64, len(m.byStatus))
	for status, count := range m.byStatus {
		counts[status] = count
	}
	return counts, nil
}

func (m *memOrderRepo) DeliveredRevenue(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revenue, nil
}

func (m *memOrderRepo) get(t *testing.T, orderID string) domain.Order {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store[orderID]
	if !ok {
		t.Fatalf("order %s not in store", orderID)
	}
	return order
}

type memProductRepo struct {
	mu       sync.Mutex
	store    map[string]domain.Product
	lowStock []domain.Product
}

func newMemProductRepo(products ...domain.Product) *memProductRepo {
	repo := &memProductRepo{store: make(map[string]domain.Product)}
	for _, product := range products {
		repo.store[product.ID] = product
	}
	return repo
}

func (m *memProductRepo) Insert(_ context.Context, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[product.ID] = product
	return nil
}

func (m *memProductRepo) Update(_ context.Context, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[product.ID]; !ok {
		return notFoundError("product %s not found", product.ID)
	}
	m.store[product.ID] = product
	return nil
}

func (m *memProductRepo) Delete(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[productID]; !ok {
		return notFoundError("product %s not found", productID)
	}
	delete(m.store, productID)
	return nil
}

func (m *memProductRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.store[productID]
	if !ok {
		return domain.Product{}, notFoundError("product %s not found", productID)
	}
	return product, nil
}

func (m *memProductRepo) List(_ context.Context, _ repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Product]{}
	for _, product := range m.store {
		page.Items = append(page.Items, product)
	}
	return page, nil
}

func (m *memProductRepo) ListLowStock(_ context.Context, _ int, _ int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lowStock, nil
}

func (m *memProductRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.store)), nil
}

var (
	_ repositories.OrderRepository   = (*memOrderRepo)(nil)
	_ repositories.ProductRepository = (*memProductRepo)(nil)
	_ repositories.UserRepository    = (*memUserRepo)(nil)
)

// counterSeqStub hands out sequential order and invoice numbers.
type counterSeqStub struct {
	mu      sync.Mutex
	values  map[string]int64
	nextErr error
}

func newCounterSeqStub() *counterSeqStub {
	return &counterSeqStub{values: make(map[string]int64)}
}

func (c *counterSeqStub) Next(_ context.Context, name string, opts CounterGenerationOptions) (CounterValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextErr != nil {
		return CounterValue{}, c.nextErr
	}
	step := opts.Step
	if step <= 0 {
		step = 1
	}
	c.values[name] += step
	value := c.values[name]
	formatted := fmt.Sprintf("%s%0*d", opts.Prefix, opts.PadLength, value)
	return CounterValue{Value: value, Formatted: formatted}, nil
}

func (c *counterSeqStub) NextOrderNumber(ctx context.Context) (string, error) {
	value, err := c.Next(ctx, "order", CounterGenerationOptions{Step: 1, Prefix: "ORD-", PadLength: 4})
	if err != nil {
		return "", err
	}
	return value.Formatted, nil
}

func (c *counterSeqStub) NextInvoiceNumber(ctx context.Context) (string, error) {
	value, err := c.Next(ctx, "invoice", CounterGenerationOptions{Step: 1, Prefix: "INV-", PadLength: 4})
	if err != nil {
		return "", err
	}
	return value.Formatted, nil
}

type invoiceServiceStub struct {
	mu        sync.Mutex
	ensured   []string
	rendered  []string
	ensureErr error
	renderErr error
	pdf       []byte
}

func (s *invoiceServiceStub) EnsureInvoice(_ context.Context, order Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensureErr != nil {
		return Order{}, s.ensureErr
	}
	s.ensured = append(s.ensured, order.ID)
	if order.Invoice.Number == "" {
		order.Invoice = domain.InvoiceDetails{
			Number: "INV-0001",
			URL:    "https://blobs.example.com/invoices/INV-0001.pdf",
		}
	}
	return order, nil
}

func (s *invoiceServiceStub) RenderPDF(_ context.Context, order Order) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderErr != nil {
		return nil, s.renderErr
	}
	s.rendered = append(s.rendered, order.ID)
	if s.pdf != nil {
		return s.pdf, nil
	}
	return []byte("%PDF-1.4 stub"), nil
}

func (s *invoiceServiceStub) GetInvoice(_ context.Context, _ Actor, _ string) (Order, error) {
	return Order{}, errors.New("not implemented")
}

type notifierStub struct {
	mu         sync.Mutex
	published  []PublishNotificationCommand
	publishErr error
}

func (n *notifierStub) Publish(_ context.Context, cmd PublishNotificationCommand) (Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.publishErr != nil {
		return Notification{}, n.publishErr
	}
	n.published = append(n.published, cmd)
	return Notification{ID: "ntf_test", Type: cmd.Type, OrderID: cmd.OrderID, Message: cmd.Message}, nil
}

func (n *notifierStub) ListLatest(context.Context) ([]Notification, error) { return nil, nil }
func (n *notifierStub) MarkRead(_ context.Context, _ string) (Notification, error) {
	return Notification{}, nil
}
func (n *notifierStub) MarkAllRead(context.Context) (int64, error) { return 0, nil }
func (n *notifierStub) ClearRead(context.Context) (int64, error)   { return 0, nil }

type eventRecorder struct {
	mu         sync.Mutex
	events     []OrderEvent
	publishErr error
}

func (e *eventRecorder) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.publishErr != nil {
		return e.publishErr
	}
	e.events = append(e.events, event)
	return nil
}

func (e *eventRecorder) recorded() []OrderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]OrderEvent, len(e.events))
	copy(out, e.events)
	return out
}

type orderFixture struct {
	orders   *memOrderRepo
	users    *memUserRepo
	products *memProductRepo
	counters *counterSeqStub
	invoices *invoiceServiceStub
	notifier *notifierStub
	mailer   *mailRecorder
	events   *eventRecorder
	now      time.Time
	svc      OrderService
}

func newOrderFixture(t *testing.T, orders ...domain.Order) *orderFixture {
	t.Helper()
	f := &orderFixture{
		orders:   newMemOrderRepo(orders...),
		users:    newMemUserRepo(testShopper()),
		products: newMemProductRepo(),
		counters: newCounterSeqStub(),
		invoices: &invoiceServiceStub{},
		notifier: &notifierStub{},
		mailer:   &mailRecorder{},
		events:   &eventRecorder{},
		now:      time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC),
	}

	seq := 0
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:        f.orders,
		Users:         f.users,
		Products:      f.products,
		Counters:      f.counters,
		Invoices:      f.invoices,
		Notifications: f.notifier,
		Mailer:        f.mailer,
		Events:        f.events,
		Clock:         fixedClock(f.now),
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("ord_%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	f.svc = svc
	return f
}

func pendingOrder(id, userID string) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: "ORD-0042",
		UserID:      userID,
		Items: []domain.OrderItem{
			{ProductID: "prd_1", Name: "Steel Bottle", Price: 599, Quantity: 2},
		},
		TotalAmount:   1198,
		Tax:           215.64,
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentState:  domain.PaymentPending,
		Status:        domain.OrderPending,
	}
}

func TestOrderCreateSnapshotsItemsAndAddress(t *testing.T) {
	f := newOrderFixture(t)
	f.products.store["prd_1"] = domain.Product{
		ID:    "prd_1",
		Name:  "Steel Bottle 1L",
		Price: 649,
		Image: domain.ProductImage{URL: "https://img.example.com/bottle.jpg"},
	}

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID: "usr_1",
		Items: []OrderItemInput{
			{ProductID: "prd_1", Name: "stale name", Price: 1, Quantity: 2},
			{ProductID: "prd_gone", Name: "Clay Mug", Price: 249, Quantity: 1, Image: "https://img.example.com/mug.jpg"},
		},
		ShippingAddress: ShippingAddress{Street: "7 Lake View"},
		TotalAmount:     1547,
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.OrderNumber != "ORD-0001" {
		t.Fatalf("expected ORD-0001, got %q", order.OrderNumber)
	}
	if order.Status != domain.OrderPending {
		t.Fatalf("expected pending, got %q", order.Status)
	}
	if order.PaymentState != domain.PaymentPending {
		t.Fatalf("expected payment pending, got %q", order.PaymentState)
	}

	// Catalog wins over submitted fields for live products.
	if order.Items[0].Name != "Steel Bottle 1L" || order.Items[0].Price != 649 {
		t.Fatalf("expected catalog snapshot, got %+v", order.Items[0])
	}
	if order.Items[0].Image != "https://img.example.com/bottle.jpg" {
		t.Fatalf("expected catalog image, got %q", order.Items[0].Image)
	}
	// Submitted fields survive for deleted products.
	if order.Items[1].Name != "Clay Mug" || order.Items[1].Price != 249 {
		t.Fatalf("expected submitted snapshot, got %+v", order.Items[1])
	}

	// Gaps in the submitted address are filled from the saved profile.
	addr := order.ShippingAddress
	if addr.Street != "7 Lake View" {
		t.Fatalf("expected submitted street, got %q", addr.Street)
	}
	if addr.FullName != "Asha Verma" || addr.Phone != "9876543210" {
		t.Fatalf("expected profile fallbacks, got %+v", addr)
	}
	if addr.City != "Bengaluru" || addr.Country != "India" {
		t.Fatalf("expected saved address fallbacks, got %+v", addr)
	}

	stored := f.orders.get(t, order.ID)
	if stored.OrderNumber != "ORD-0001" {
		t.Fatalf("expected order persisted, got %+v", stored)
	}
}

func TestOrderCreateSendsConfirmationAndNotifies(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:        "usr_1",
		Items:         []OrderItemInput{{Name: "Clay Mug", Price: 249, Quantity: 1}},
		TotalAmount:   249,
		PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 {
		t.Fatalf("expected one email, got %d", len(messages))
	}
	if messages[0].Subject != "Order Placed Successfully ✅" {
		t.Fatalf("unexpected subject %q", messages[0].Subject)
	}
	if messages[0].To != "asha@example.com" {
		t.Fatalf("unexpected recipient %q", messages[0].To)
	}
	if len(messages[0].Attachments) != 1 || messages[0].Attachments[0].Filename != "INV-0001.pdf" {
		t.Fatalf("expected invoice attachment, got %+v", messages[0].Attachments)
	}

	f.notifier.mu.Lock()
	published := append([]PublishNotificationCommand(nil), f.notifier.published...)
	f.notifier.mu.Unlock()
	if len(published) != 1 || published[0].Type != domain.NotificationOrderPlaced {
		t.Fatalf("expected order_placed notification, got %+v", published)
	}
	if published[0].Message != "Order ORD-0001 placed for ₹249." {
		t.Fatalf("unexpected notification message %q", published[0].Message)
	}

	events := f.events.recorded()
	if len(events) != 1 || events[0].Type != "order.created" {
		t.Fatalf("expected order.created event, got %+v", events)
	}
	if events[0].OrderID != order.ID || events[0].Status != domain.OrderPending {
		t.Fatalf("unexpected event payload %+v", events[0])
	}
}

func TestOrderCreateStripeSubjectAwaitsPayment(t *testing.T) {
	f := newOrderFixture(t)

	if _, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:        "usr_1",
		Items:         []OrderItemInput{{Name: "Clay Mug", Price: 249, Quantity: 1}},
		TotalAmount:   249,
		PaymentMethod: "STRIPE",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 || messages[0].Subject != "Order Received - Awaiting Payment ⏳" {
		t.Fatalf("expected awaiting-payment subject, got %+v", messages)
	}
}

func TestOrderCreateSurvivesAdvisoryFailures(t *testing.T) {
	f := newOrderFixture(t)
	f.invoices.ensureErr = errors.New("blob store down")
	f.mailer.sendErr = errors.New("smtp down")
	f.notifier.publishErr = errors.New("feed down")
	f.events.publishErr = errors.New("broker down")

	order, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:        "usr_1",
		Items:         []OrderItemInput{{Name: "Clay Mug", Price: 249, Quantity: 1}},
		TotalAmount:   249,
		PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("advisory failures must not fail creation: %v", err)
	}

	stored := f.orders.get(t, order.ID)
	if stored.Status != domain.OrderPending {
		t.Fatalf("expected persisted pending order, got %+v", stored)
	}
}

func TestOrderCreateValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	cases := []CreateOrderCommand{
		{UserID: "usr_1", TotalAmount: 100, PaymentMethod: "cod"},
		{UserID: "usr_1", Items: []OrderItemInput{{Name: "Mug", Price: 1, Quantity: 1}}, TotalAmount: 0.5},
		{UserID: "usr_1", Items: []OrderItemInput{{Name: "Mug", Price: 1, Quantity: 0}}, TotalAmount: 100},
		{UserID: "usr_1", Items: []OrderItemInput{{Name: "Mug", Price: 1, Quantity: 1}}, TotalAmount: 100, PaymentMethod: "upi"},
		{UserID: "usr_ghost", Items: []OrderItemInput{{Name: "Mug", Price: 1, Quantity: 1}}, TotalAmount: 100},
		{Items: []OrderItemInput{{Name: "Mug", Price: 1, Quantity: 1}}, TotalAmount: 100},
	}
	for i, cmd := range cases {
		if _, err := f.svc.Create(ctx, cmd); !errors.Is(err, ErrOrderInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestOrderCreateFailsWhenInsertFails(t *testing.T) {
	f := newOrderFixture(t)
	f.orders.insertErr = &storeError{err: errors.New("firestore unavailable"), unavailable: true}

	if _, err := f.svc.Create(context.Background(), CreateOrderCommand{
		UserID:      "usr_1",
		Items:       []OrderItemInput{{Name: "Mug", Price: 249, Quantity: 1}},
		TotalAmount: 249,
	}); err == nil {
		t.Fatalf("expected persistence failure to surface")
	}

	if msgs := f.mailer.messages(); len(msgs) != 0 {
		t.Fatalf("no advisory effects should run after a failed insert, got %d emails", len(msgs))
	}
}

func TestOrderGetOwnerAndAdmin(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))
	ctx := context.Background()

	if _, err := f.svc.GetOrder(ctx, Actor{UserID: "usr_1", Role: domain.RoleUser}, "ord_1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, Actor{UserID: "usr_admin", Role: domain.RoleAdmin}, "ord_1"); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, Actor{UserID: "usr_2", Role: domain.RoleUser}, "ord_1"); !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, Actor{UserID: "usr_1", Role: domain.RoleUser}, "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderTransitionStatusLifecycle(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))
	ctx := context.Background()

	order, err := f.svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderProcessing,
		ActorID:      "usr_admin",
	})
	if err != nil {
		t.Fatalf("pending to processing: %v", err)
	}
	if order.Status != domain.OrderProcessing {
		t.Fatalf("expected processing, got %q", order.Status)
	}
	if order.ApprovedBy != "usr_admin" || order.ApprovedAt == nil {
		t.Fatalf("expected approval stamp, got %+v", order)
	}

	order, err = f.svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderShipped,
	})
	if err != nil {
		t.Fatalf("processing to shipped: %v", err)
	}

	order, err = f.svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderDelivered,
	})
	if err != nil {
		t.Fatalf("shipped to delivered: %v", err)
	}
	if order.Status != domain.OrderDelivered {
		t.Fatalf("expected delivered, got %q", order.Status)
	}

	// Delivered orders stay editable by admins, but the correction does not
	// re-enter the invoice or mail workflow.
	mailsBefore := len(f.mailer.messages())
	order, err = f.svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderProcessing,
		ActorID:      "usr_admin",
	})
	if err != nil {
		t.Fatalf("delivered to processing correction: %v", err)
	}
	if order.Status != domain.OrderProcessing {
		t.Fatalf("expected processing after correction, got %q", order.Status)
	}
	if got := len(f.mailer.messages()); got != mailsBefore {
		t.Fatalf("expected no mail for a correction out of a terminal state, got %d extra", got-mailsBefore)
	}
}

func TestOrderTransitionStatusEnforcesWorkflowGraph(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.OrderStatus
		target domain.OrderStatus
	}{
		{"pending to shipped", domain.OrderPending, domain.OrderShipped},
		{"pending to delivered", domain.OrderPending, domain.OrderDelivered},
		{"processing to delivered", domain.OrderProcessing, domain.OrderDelivered},
		{"shipped to processing", domain.OrderShipped, domain.OrderProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := pendingOrder("ord_1", "usr_1")
			order.Status = tc.from
			f := newOrderFixture(t, order)

			if _, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
				OrderID:      "ord_1",
				TargetStatus: tc.target,
			}); !errors.Is(err, ErrOrderInvalidState) {
				t.Fatalf("expected invalid state, got %v", err)
			}
		})
	}
}

func TestOrderTransitionStatusCancelsInFlightOrders(t *testing.T) {
	for _, from := range []domain.OrderStatus{domain.OrderProcessing, domain.OrderShipped} {
		t.Run(string(from), func(t *testing.T) {
			order := pendingOrder("ord_1", "usr_1")
			order.Status = from
			f := newOrderFixture(t, order)

			cancelled, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
				OrderID:      "ord_1",
				TargetStatus: domain.OrderCancelled,
				ActorID:      "usr_admin",
			})
			if err != nil {
				t.Fatalf("cancel from %s: %v", from, err)
			}
			if cancelled.Status != domain.OrderCancelled {
				t.Fatalf("expected cancelled, got %q", cancelled.Status)
			}
		})
	}
}

func TestOrderTransitionStatusReassertResendsInvoiceMail(t *testing.T) {
	order := pendingOrder("ord_1", "usr_1")
	order.Status = domain.OrderDelivered
	f := newOrderFixture(t, order)

	reasserted, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderDelivered,
		ActorID:      "usr_admin",
	})
	if err != nil {
		t.Fatalf("re-assert delivered: %v", err)
	}
	if reasserted.Status != domain.OrderDelivered {
		t.Fatalf("expected delivered, got %q", reasserted.Status)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 {
		t.Fatalf("expected a fresh status mail, got %d", len(messages))
	}
	if len(messages[0].Attachments) != 1 {
		t.Fatalf("expected invoice attachment on re-sent mail, got %+v", messages[0].Attachments)
	}

	f.invoices.mu.Lock()
	ensured := len(f.invoices.ensured)
	f.invoices.mu.Unlock()
	if ensured != 1 {
		t.Fatalf("expected invoice chain to run on re-assert, got %d calls", ensured)
	}
}

func TestOrderTransitionStatusUnknownStatus(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	if _, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: "archived",
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
}

func TestOrderTransitionToProcessingAttachesInvoice(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	if _, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderProcessing,
		ActorID:      "usr_admin",
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 {
		t.Fatalf("expected one email, got %d", len(messages))
	}
	if messages[0].Subject != "Order Update: PROCESSING - Invoice Attached" {
		t.Fatalf("unexpected subject %q", messages[0].Subject)
	}
	if len(messages[0].Attachments) != 1 {
		t.Fatalf("expected invoice attachment, got %+v", messages[0].Attachments)
	}

	events := f.events.recorded()
	if len(events) != 1 || events[0].Type != "order.status.changed" || events[0].Status != domain.OrderProcessing {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestOrderTransitionToShippedSendsPlainUpdate(t *testing.T) {
	order := pendingOrder("ord_1", "usr_1")
	order.Status = domain.OrderProcessing
	f := newOrderFixture(t, order)

	if _, err := f.svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_1",
		TargetStatus: domain.OrderShipped,
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 || messages[0].Subject != "Order Update: SHIPPED" {
		t.Fatalf("expected plain update mail, got %+v", messages)
	}
	if len(messages[0].Attachments) != 0 {
		t.Fatalf("shipped mail carries no attachment, got %+v", messages[0].Attachments)
	}
}

func TestOrderApprove(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	order, err := f.svc.Approve(context.Background(), "usr_admin", "ord_1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if order.Status != domain.OrderProcessing {
		t.Fatalf("expected processing, got %q", order.Status)
	}
	if order.ApprovedBy != "usr_admin" || order.ApprovedAt == nil {
		t.Fatalf("expected approval stamp, got %+v", order)
	}
	if order.RejectedBy != "" || order.RejectedAt != nil {
		t.Fatalf("rejection stamp must be clear, got %+v", order)
	}

	f.notifier.mu.Lock()
	published := append([]PublishNotificationCommand(nil), f.notifier.published...)
	f.notifier.mu.Unlock()
	if len(published) != 1 || published[0].Type != domain.NotificationOrderApproved {
		t.Fatalf("expected order_approved notification, got %+v", published)
	}
	if published[0].Message != "Order ORD-0042 has been approved and is now processing." {
		t.Fatalf("unexpected message %q", published[0].Message)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 || messages[0].Subject != "Order Approved ✅" {
		t.Fatalf("expected approval mail, got %+v", messages)
	}
	if !strings.Contains(messages[0].HTML, "ORD-0042") {
		t.Fatalf("expected order number in approval mail")
	}
}

func TestOrderApproveAfterRejectOverwrites(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))
	ctx := context.Background()

	if _, err := f.svc.Reject(ctx, "usr_reviewer", "ord_1", "Suspected fraud"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	order, err := f.svc.Approve(ctx, "usr_admin", "ord_1")
	if err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if order.Status != domain.OrderProcessing {
		t.Fatalf("expected processing, got %q", order.Status)
	}
	if order.ApprovedBy != "usr_admin" || order.ApprovedAt == nil {
		t.Fatalf("expected approval stamp, got %+v", order)
	}
	if order.RejectedBy != "" || order.RejectedAt != nil || order.RejectionReason != "" {
		t.Fatalf("rejection fields must be cleared, got %+v", order)
	}

	stored := f.orders.get(t, "ord_1")
	if stored.Status != domain.OrderProcessing || stored.RejectionReason != "" {
		t.Fatalf("persisted order must reflect the last call, got %+v", stored)
	}
}

func TestOrderRejectSanitizesReason(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	order, err := f.svc.Reject(context.Background(), "usr_admin", "ord_1", `<script>alert(1)</script>Out of stock`)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if order.Status != domain.OrderRejected {
		t.Fatalf("expected rejected, got %q", order.Status)
	}
	if order.RejectionReason != "Out of stock" {
		t.Fatalf("expected sanitized reason, got %q", order.RejectionReason)
	}
	if order.RejectedBy != "usr_admin" || order.RejectedAt == nil {
		t.Fatalf("expected rejection stamp, got %+v", order)
	}

	f.notifier.mu.Lock()
	published := append([]PublishNotificationCommand(nil), f.notifier.published...)
	f.notifier.mu.Unlock()
	if len(published) != 1 || published[0].Type != domain.NotificationOrderRejected {
		t.Fatalf("expected order_rejected notification, got %+v", published)
	}

	messages := f.mailer.messages()
	if len(messages) != 1 || messages[0].Subject != "Order Rejected: ORD-0042 ❌" {
		t.Fatalf("expected rejection mail, got %+v", messages)
	}
	if !strings.Contains(messages[0].HTML, "Out of stock") {
		t.Fatalf("expected reason in rejection mail body")
	}
}

func TestOrderRejectDefaultsEmptyReason(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	order, err := f.svc.Reject(context.Background(), "usr_admin", "ord_1", "  <b></b>  ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if order.RejectionReason != "No specific reason provided." {
		t.Fatalf("expected default reason, got %q", order.RejectionReason)
	}
}

func TestOrderRejectClearsApprovalStamp(t *testing.T) {
	order := pendingOrder("ord_1", "usr_1")
	order.Status = domain.OrderProcessing
	approvedAt := time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC)
	order.ApprovedBy = "usr_admin"
	order.ApprovedAt = &approvedAt
	f := newOrderFixture(t, order)

	rejected, err := f.svc.Reject(context.Background(), "usr_other", "ord_1", "Damaged stock")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.ApprovedBy != "" || rejected.ApprovedAt != nil {
		t.Fatalf("approval stamp must be cleared, got %+v", rejected)
	}
	if rejected.RejectedBy != "usr_other" {
		t.Fatalf("expected rejection stamp, got %+v", rejected)
	}
}

func TestOrderCancel(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	order, err := f.svc.Cancel(context.Background(), "usr_1", "ord_1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != domain.OrderCancelled {
		t.Fatalf("expected cancelled, got %q", order.Status)
	}

	events := f.events.recorded()
	if len(events) != 1 || events[0].Status != domain.OrderCancelled {
		t.Fatalf("expected cancellation event, got %+v", events)
	}
}

func TestOrderCancelGuards(t *testing.T) {
	processing := pendingOrder("ord_2", "usr_1")
	processing.Status = domain.OrderProcessing
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"), processing)
	ctx := context.Background()

	if _, err := f.svc.Cancel(ctx, "usr_2", "ord_1"); !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, "usr_1", "ord_2"); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state for processing order, got %v", err)
	}
}

func TestOrderDeleteOwn(t *testing.T) {
	cancelled := pendingOrder("ord_1", "usr_1")
	cancelled.Status = domain.OrderCancelled
	pending := pendingOrder("ord_2", "usr_1")
	f := newOrderFixture(t, cancelled, pending)
	ctx := context.Background()

	if err := f.svc.DeleteOwn(ctx, "usr_1", "ord_1"); err != nil {
		t.Fatalf("delete cancelled order: %v", err)
	}
	if err := f.svc.DeleteOwn(ctx, "usr_1", "ord_2"); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state for pending order, got %v", err)
	}
	// Non-owners get not-found so order ids stay opaque.
	if err := f.svc.DeleteOwn(ctx, "usr_2", "ord_2"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}
}

func TestOrderDeleteAny(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))

	if err := f.svc.DeleteAny(context.Background(), "ord_1"); err != nil {
		t.Fatalf("delete any: %v", err)
	}
	if err := f.svc.DeleteAny(context.Background(), "ord_1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestOrderStats(t *testing.T) {
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"))
	f.orders.revenue = 50789.5
	f.orders.recent = []domain.Order{pendingOrder("ord_1", "usr_1")}
	f.orders.byStatus = map[domain.OrderStatus]int64{
		domain.OrderPending:   3,
		domain.OrderDelivered: 7,
		domain.OrderRejected:  2,
	}
	f.products.lowStock = []domain.Product{{ID: "prd_low", Name: "Clay Mug", Stock: 3}}

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 1 || stats.TotalOrders != 1 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.Revenue != 50789.5 {
		t.Fatalf("expected delivered revenue, got %v", stats.Revenue)
	}
	if len(stats.RecentOrders) != 1 {
		t.Fatalf("expected recent orders, got %d", len(stats.RecentOrders))
	}
	if stats.StatusCounts[domain.OrderPending] != 3 || stats.StatusCounts[domain.OrderDelivered] != 7 {
		t.Fatalf("unexpected histogram %+v", stats.StatusCounts)
	}
	if _, ok := stats.StatusCounts[domain.OrderRejected]; ok {
		t.Fatalf("rejected must not appear in the histogram: %+v", stats.StatusCounts)
	}
	if len(stats.LowStockProducts) != 1 || stats.LowStockProducts[0].ID != "prd_low" {
		t.Fatalf("unexpected low stock panel %+v", stats.LowStockProducts)
	}
}

func TestOrderListPendingFiltersStatus(t *testing.T) {
	delivered := pendingOrder("ord_2", "usr_1")
	delivered.Status = domain.OrderDelivered
	f := newOrderFixture(t, pendingOrder("ord_1", "usr_1"), delivered)

	page, err := f.svc.ListPending(context.Background(), Pagination{PageSize: 10})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "ord_1" {
		t.Fatalf("expected only the pending order, got %+v", page.Items)
	}
}
