package repositories

import (
	"context"
	"time"

	domain "github.com/primemart/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Products() ProductRepository
	Orders() OrderRepository
	OTPs() OTPRepository
	Notifications() NotificationRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository stores account profiles and supports email lookup for login.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, userID string) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.User], error)
	Count(ctx context.Context) (int64, error)
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	ListLowStock(ctx context.Context, threshold int, limit int) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
}

// OrderRepository persists order aggregates and the query helpers the admin
// dashboard and payment reconciliation rely on.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByStripeSession(ctx context.Context, sessionID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
	DeliveredRevenue(ctx context.Context) (float64, error)
}

// OTPRepository stores one short-lived registration code per email address.
type OTPRepository interface {
	Put(ctx context.Context, otp domain.RegistrationOTP) error
	Get(ctx context.Context, email string) (domain.RegistrationOTP, error)
	Delete(ctx context.Context, email string) error
}

// NotificationRepository stores the admin activity feed.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	ListLatest(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.Notification, error)
	MarkAllRead(ctx context.Context, readAt time.Time) (int64, error)
	ClearRead(ctx context.Context) (int64, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type ProductListFilter struct {
	Category   *string
	Pagination domain.Pagination
}

type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
