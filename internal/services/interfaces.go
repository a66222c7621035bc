package services

import (
	"context"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	User               = domain.User
	Role               = domain.Role
	ShippingAddress    = domain.ShippingAddress
	Product            = domain.Product
	ProductImage       = domain.ProductImage
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	PaymentMethod      = domain.PaymentMethod
	PaymentState       = domain.PaymentState
	InvoiceDetails     = domain.InvoiceDetails
	Notification       = domain.Notification
	DashboardStats     = domain.DashboardStats
	SystemHealthReport = domain.SystemHealthReport
)

// Actor identifies the authenticated caller for ownership and role checks.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// AuthService covers registration with email OTP verification and login.
type AuthService interface {
	RequestRegistrationOTP(ctx context.Context, email string) error
	VerifyRegistrationOTP(ctx context.Context, email string, code string) error
	Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error)
	Login(ctx context.Context, cmd LoginCommand) (AuthSession, error)
}

// AuthSession couples the signed session token with the authenticated profile.
type AuthSession struct {
	Token string
	User  User
}

// CatalogService manages the product catalog.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	ListLowStock(ctx context.Context, limit int) ([]Product, error)
}

// OrderService is the order lifecycle engine: creation with immutable
// snapshots, admin status transitions, owner cancellation and deletion, and
// dashboard aggregates.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (Order, error)
	ListForUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Order], error)
	ListAll(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Approve(ctx context.Context, actorID string, orderID string) (Order, error)
	Reject(ctx context.Context, actorID string, orderID string, reason string) (Order, error)
	Cancel(ctx context.Context, userID string, orderID string) (Order, error)
	DeleteOwn(ctx context.Context, userID string, orderID string) error
	DeleteAny(ctx context.Context, orderID string) error
	Stats(ctx context.Context) (DashboardStats, error)
}

// InvoiceService owns invoice generation. EnsureInvoice is the single entry
// point: every trigger (create, approval, delivery, payment verification,
// explicit fetch) goes through it and allocation happens at most once.
type InvoiceService interface {
	EnsureInvoice(ctx context.Context, order Order) (Order, error)
	RenderPDF(ctx context.Context, order Order) ([]byte, error)
	GetInvoice(ctx context.Context, actor Actor, orderID string) (Order, error)
}

// PaymentService drives checkout session creation and payment reconciliation.
type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error)
	VerifyPayment(ctx context.Context, actor Actor, sessionID string) (Order, error)
}

// CheckoutSession is the hosted payment page handed back to the client.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// NotificationService maintains the admin activity feed. Publish is always
// advisory; reads and mutations back the admin endpoints.
type NotificationService interface {
	Publish(ctx context.Context, cmd PublishNotificationCommand) (Notification, error)
	ListLatest(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, notificationID string) (Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	ClearRead(ctx context.Context) (int64, error)
}

// UserService serves profile reads and admin account management.
type UserService interface {
	Me(ctx context.Context, userID string) (User, error)
	UpdateShippingAddress(ctx context.Context, cmd UpdateShippingAddressCommand) (User, error)
	ListUsers(ctx context.Context, pager Pagination) (domain.CursorPage[User], error)
	SetRole(ctx context.Context, cmd SetRoleCommand) (User, error)
	SetAccountStatus(ctx context.Context, cmd SetAccountStatusCommand) (User, error)
	DeleteUser(ctx context.Context, actorID string, userID string) error
}

// CounterService hands out gap-free sequence numbers for human-facing
// order and invoice identifiers.
type CounterService interface {
	Next(ctx context.Context, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
}

// CounterValue carries the raw sequence value and its formatted rendition.
type CounterValue struct {
	Value     int64
	Formatted string
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	Prefix       string
	Suffix       string
	PadLength    int
	MaxValue     *int64
	InitialValue *int64
	Formatter    func(now time.Time, value int64) string
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error)
}

// OrderEvent is the lifecycle event published to the order events topic.
type OrderEvent struct {
	Type        string      `json:"type"`
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	Status      OrderStatus `json:"status,omitempty"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

// OrderEventPublisher accepts order lifecycle events for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// Command and DTO definitions ------------------------------------------------

type RegisterCommand struct {
	Name            string
	Email           string
	Password        string
	Mobile          string
	Code            string
	ShippingAddress *ShippingAddress
}

type LoginCommand struct {
	Email    string
	Password string
}

type ProductListFilter struct {
	Category   *string
	Pagination Pagination
}

type CreateProductCommand struct {
	Name          string
	Price         float64
	Description   string
	Category      string
	Stock         int
	ImageURL      string
	ImagePublicID string
}

type UpdateProductCommand struct {
	ProductID     string
	Name          *string
	Price         *float64
	Description   *string
	Category      *string
	Stock         *int
	ImageURL      *string
	ImagePublicID *string
}

// OrderItemInput is an already-normalised order line from the request body.
type OrderItemInput struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int
	Image     string
}

type CreateOrderCommand struct {
	UserID          string
	Items           []OrderItemInput
	ShippingAddress ShippingAddress
	TotalAmount     float64
	Tax             float64
	PaymentMethod   PaymentMethod
}

type OrderListFilter = repositories.OrderListFilter

type OrderStatusTransitionCommand struct {
	OrderID         string
	TargetStatus    OrderStatus
	ActorID         string
	RejectionReason string
}

type CreateCheckoutSessionCommand struct {
	Actor   Actor
	OrderID string
}

type PublishNotificationCommand struct {
	Type    domain.NotificationType
	OrderID string
	UserID  string
	Message string
}

type UpdateShippingAddressCommand struct {
	UserID  string
	Address ShippingAddress
}

type SetRoleCommand struct {
	UserID string
	Role   Role
}

type SetAccountStatusCommand struct {
	UserID string
	Status domain.AccountStatus
}

type CounterCommand struct {
	CounterID string
	Step      int64
}
