package firestore

import (
	"context"
	"errors"
	"fmt"

	firestore "cloud.google.com/go/firestore"

	pfirestore "github.com/primemart/api/internal/platform/firestore"
	"github.com/primemart/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the typed accessor
// interface handlers and services are wired against.
type Registry struct {
	provider *pfirestore.Provider

	users         *UserRepository
	products      *ProductRepository
	orders        *OrderRepository
	otps          *OTPRepository
	notifications *NotificationRepository
	counters      *CounterRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// RegistryOption customises Registry construction.
type RegistryOption func(*Registry)

// WithHealthRepository attaches dependency probes collected by the registry.
func WithHealthRepository(health repositories.HealthRepository) RegistryOption {
	return func(r *Registry) {
		r.health = health
	}
}

// NewRegistry constructs every Firestore repository on top of the shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	reg := &Registry{provider: provider}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}

	var err error
	if reg.users, err = NewUserRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: user repository: %w", err)
	}
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: product repository: %w", err)
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: order repository: %w", err)
	}
	if reg.otps, err = NewOTPRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: otp repository: %w", err)
	}
	if reg.notifications, err = NewNotificationRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: notification repository: %w", err)
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, fmt.Errorf("firestore registry: counter repository: %w", err)
	}

	return reg, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside a Firestore transaction with the provider's retry policy.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("firestore registry: provider is required")
	}
	if fn == nil {
		return errors.New("firestore registry: transaction func is required")
	}
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}

func (r *Registry) Users() repositories.UserRepository                 { return r.users }
func (r *Registry) Products() repositories.ProductRepository           { return r.products }
func (r *Registry) Orders() repositories.OrderRepository               { return r.orders }
func (r *Registry) OTPs() repositories.OTPRepository                   { return r.otps }
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }
func (r *Registry) Counters() repositories.CounterRepository           { return r.counters }
func (r *Registry) Health() repositories.HealthRepository              { return r.health }
