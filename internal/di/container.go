package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primemart/api/internal/invoice"
	"github.com/primemart/api/internal/payments"
	"github.com/primemart/api/internal/platform/config"
	"github.com/primemart/api/internal/platform/mail"
	"github.com/primemart/api/internal/repositories"
	"github.com/primemart/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Auth          services.AuthService
	Catalog       services.CatalogService
	Orders        services.OrderService
	Payments      services.PaymentService
	Invoices      services.InvoiceService
	Notifications services.NotificationService
	Users         services.UserService
	Counters      services.CounterService
	System        services.SystemService
}

// Deps carries collaborators that live outside the repository registry:
// payment gateway, outbound mail, blob storage and session token issuance.
type Deps struct {
	Tokens   services.SessionIssuer
	Gateway  payments.Gateway
	Mailer   mail.Sender
	Uploader services.InvoiceUploader
	Events   services.OrderEventPublisher
	Build    services.BuildInfo
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Clock    func() time.Time
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (Services, error) {
	var svc Services

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Clock:    clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	notificationSvc, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: reg.Notifications(),
		Clock:         clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification service: %w", err)
	}
	svc.Notifications = notificationSvc

	// The invoice chain is advisory. Without a blob uploader orders still
	// flow; invoices simply stay ungenerated until one is configured.
	if deps.Uploader != nil {
		invoiceSvc, err := services.NewInvoiceService(services.InvoiceServiceDeps{
			Orders:   reg.Orders(),
			Counters: counterSvc,
			Uploader: deps.Uploader,
			Bucket:   cfg.Storage.AssetsBucket,
			Seller: invoice.Seller{
				Name:        cfg.Seller.Name,
				Address:     cfg.Seller.Address,
				GSTIN:       cfg.Seller.GSTIN,
				Email:       cfg.Seller.Email,
				DispatchHub: cfg.Seller.DispatchHub,
			},
			Clock: clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build invoice service: %w", err)
		}
		svc.Invoices = invoiceSvc
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Users:         reg.Users(),
		Products:      reg.Products(),
		Counters:      counterSvc,
		Invoices:      svc.Invoices,
		Notifications: notificationSvc,
		Mailer:        deps.Mailer,
		Events:        deps.Events,
		UnitOfWork:    reg,
		Clock:         clock,
		Logger:        deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if deps.Gateway != nil {
		paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
			Orders:     reg.Orders(),
			Users:      reg.Users(),
			Gateway:    deps.Gateway,
			Invoices:   svc.Invoices,
			Mailer:     deps.Mailer,
			Events:     deps.Events,
			UnitOfWork: reg,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
			Clock:      clock,
			Logger:     deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build payment service: %w", err)
		}
		svc.Payments = paymentSvc
	}

	if deps.Tokens != nil && deps.Mailer != nil {
		authSvc, err := services.NewAuthService(services.AuthServiceDeps{
			Users:  reg.Users(),
			OTPs:   reg.OTPs(),
			Tokens: deps.Tokens,
			Mailer: deps.Mailer,
			OTPTTL: cfg.Auth.OTPTTL,
			Clock:  clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build auth service: %w", err)
		}
		svc.Auth = authSvc
	}

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users: reg.Users(),
		Clock: clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            deps.Build,
			Counters:         counterSvc,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
