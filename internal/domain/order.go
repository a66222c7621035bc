package domain

import (
	"time"
)

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	// OrderPending is the initial state of every order.
	OrderPending OrderStatus = "pending"
	// OrderProcessing means the order was approved (or paid) and is being prepared.
	OrderProcessing OrderStatus = "processing"
	// OrderShipped means the order left the dispatch center.
	OrderShipped OrderStatus = "shipped"
	// OrderDelivered is the terminal happy-path state.
	OrderDelivered OrderStatus = "delivered"
	// OrderRejected is set by an admin, with an optional reason.
	OrderRejected OrderStatus = "rejected"
	// OrderCancelled is set by the owner while the order is still pending.
	OrderCancelled OrderStatus = "cancelled"
)

// PaymentMethod selects how an order is settled.
type PaymentMethod string

const (
	// PaymentMethodStripe settles through a hosted checkout session.
	PaymentMethodStripe PaymentMethod = "stripe"
	// PaymentMethodCOD settles as cash on delivery.
	PaymentMethodCOD PaymentMethod = "cod"
)

// PaymentState tracks settlement progress independently of the order status.
type PaymentState string

const (
	// PaymentPending means no settlement has been confirmed yet.
	PaymentPending PaymentState = "pending"
	// PaymentPaid means the gateway confirmed the checkout session.
	PaymentPaid PaymentState = "paid"
	// PaymentCompleted marks a manually settled (COD) order.
	PaymentCompleted PaymentState = "completed"
	// PaymentFailed records a failed settlement attempt.
	PaymentFailed PaymentState = "failed"
)

// OrderItem is an immutable snapshot of a purchased product line.
type OrderItem struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int
	Image     string
}

// InvoiceDetails records the generated invoice artifact for an order. All
// fields are empty until the invoice chain has run at least once.
type InvoiceDetails struct {
	Number      string
	URL         string
	PublicID    string
	GeneratedAt time.Time
}

// Order is the aggregate persisted per purchase. Item and shipping snapshots
// are frozen at creation; later catalog or profile edits never change them.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	TotalAmount     float64
	Tax             float64
	PaymentMethod   PaymentMethod
	PaymentState    PaymentState
	IsPaid          bool
	PaidAt          *time.Time
	StripeSessionID string
	PaymentIntentID string
	Status          OrderStatus
	RejectionReason string
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	Invoice         InvoiceDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NotificationType enumerates admin feed event kinds.
type NotificationType string

const (
	// NotificationOrderPlaced is emitted when a new order is created.
	NotificationOrderPlaced NotificationType = "order_placed"
	// NotificationOrderApproved is emitted when an admin approves an order.
	NotificationOrderApproved NotificationType = "order_approved"
	// NotificationOrderRejected is emitted when an admin rejects an order.
	NotificationOrderRejected NotificationType = "order_rejected"
)

// Notification is an entry in the admin activity feed.
type Notification struct {
	ID        string
	Type      NotificationType
	OrderID   string
	UserID    string
	Message   string
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// DashboardStats aggregates the figures shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers       int64
	TotalProducts    int64
	TotalOrders      int64
	Revenue          float64
	RecentOrders     []Order
	StatusCounts     map[OrderStatus]int64
	LowStockProducts []Product
}
