package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/primemart/api/internal/domain"
	pfirestore "github.com/primemart/api/internal/platform/firestore"
	"github.com/primemart/api/internal/repositories"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const orderCollection = "orders"

// knownOrderStatuses drives the per-status count aggregation for the dashboard.
var knownOrderStatuses = []domain.OrderStatus{
	domain.OrderPending,
	domain.OrderProcessing,
	domain.OrderShipped,
	domain.OrderDelivered,
	domain.OrderRejected,
	domain.OrderCancelled,
}

// OrderRepository persists order aggregates in Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert creates the order document. A duplicate ID surfaces as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}

	ref, err := r.base.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}

	_, err := r.base.Set(ctx, order.ID, fromDomainOrder(order))
	return err
}

// FindByID loads the order by its document ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// FindByStripeSession resolves the order that opened the given checkout session.
func (r *OrderRepository) FindByStripeSession(ctx context.Context, sessionID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Order{}, errors.New("order repository: session id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("stripeSessionId", "==", sessionID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.findBySession", status.Error(codes.NotFound, "order not found for session"))
	}
	return toDomainOrder(docs[0].ID, docs[0].Data), nil
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository: user id is required")
	}

	return r.list(ctx, repositories.OrderListFilter{UserID: userID, Pagination: pager})
}

// List returns orders newest first, optionally filtered by user and statuses.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	return r.list(ctx, filter)
}

func (r *OrderRepository) list(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := make([]string, 0, len(filter.Status))
	for _, s := range filter.Status {
		trimmed := strings.TrimSpace(string(s))
		if trimmed != "" {
			statusFilters = append(statusFilters, trimmed)
		}
	}

	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ListRecent returns the most recently created orders.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	if limit <= 0 {
		limit = 5
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}
	return items, nil
}

// Count returns the total number of orders.
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return countAll(ctx, client.Collection(orderCollection).Query, "orders.count")
}

// CountByStatus returns per-status order counts for the dashboard.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	coll := client.Collection(orderCollection)
	counts := make(map[domain.OrderStatus]int64, len(knownOrderStatuses))
	for _, stat := range knownOrderStatuses {
		count, err := countAll(ctx, coll.Where("status", "==", string(stat)), "orders.countByStatus")
		if err != nil {
			return nil, err
		}
		counts[stat] = count
	}
	return counts, nil
}

// DeliveredRevenue sums the total amount of all delivered orders.
func (r *OrderRepository) DeliveredRevenue(ctx context.Context) (float64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	query := client.Collection(orderCollection).Where("status", "==", string(domain.OrderDelivered))
	return sumField(ctx, query, "totalAmount", "orders.deliveredRevenue")
}

// Delete removes the order document. Missing documents surface as not found.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}

	if _, err := r.base.Get(ctx, orderID); err != nil {
		return err
	}

	ref, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

type orderDocument struct {
	OrderNumber     string                  `firestore:"orderNumber"`
	UserID          string                  `firestore:"userId"`
	Items           []orderItemDocument     `firestore:"items"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	TotalAmount     float64                 `firestore:"totalAmount"`
	Tax             float64                 `firestore:"tax"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	PaymentState    string                  `firestore:"paymentState"`
	IsPaid          bool                    `firestore:"isPaid"`
	PaidAt          *time.Time              `firestore:"paidAt,omitempty"`
	StripeSessionID string                  `firestore:"stripeSessionId,omitempty"`
	PaymentIntentID string                  `firestore:"paymentIntentId,omitempty"`
	Status          string                  `firestore:"status"`
	RejectionReason string                  `firestore:"rejectionReason,omitempty"`
	ApprovedBy      string                  `firestore:"approvedBy,omitempty"`
	ApprovedAt      *time.Time              `firestore:"approvedAt,omitempty"`
	RejectedBy      string                  `firestore:"rejectedBy,omitempty"`
	RejectedAt      *time.Time              `firestore:"rejectedAt,omitempty"`
	Invoice         *invoiceDocument        `firestore:"invoice,omitempty"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	Price     float64 `firestore:"price"`
	Quantity  int     `firestore:"quantity"`
	Image     string  `firestore:"image,omitempty"`
}

type invoiceDocument struct {
	Number      string    `firestore:"number"`
	URL         string    `firestore:"url,omitempty"`
	PublicID    string    `firestore:"publicId,omitempty"`
	GeneratedAt time.Time `firestore:"generatedAt"`
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:              id,
		OrderNumber:     doc.OrderNumber,
		UserID:          doc.UserID,
		ShippingAddress: toDomainShippingAddress(doc.ShippingAddress),
		TotalAmount:     doc.TotalAmount,
		Tax:             doc.Tax,
		PaymentMethod:   domain.PaymentMethod(doc.PaymentMethod),
		PaymentState:    domain.PaymentState(doc.PaymentState),
		IsPaid:          doc.IsPaid,
		PaidAt:          doc.PaidAt,
		StripeSessionID: doc.StripeSessionID,
		PaymentIntentID: doc.PaymentIntentID,
		Status:          domain.OrderStatus(doc.Status),
		RejectionReason: doc.RejectionReason,
		ApprovedBy:      doc.ApprovedBy,
		ApprovedAt:      doc.ApprovedAt,
		RejectedBy:      doc.RejectedBy,
		RejectedAt:      doc.RejectedAt,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if len(doc.Items) > 0 {
		order.Items = make([]domain.OrderItem, 0, len(doc.Items))
		for _, item := range doc.Items {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Image:     item.Image,
			})
		}
	}
	if doc.Invoice != nil {
		order.Invoice = domain.InvoiceDetails{
			Number:      doc.Invoice.Number,
			URL:         doc.Invoice.URL,
			PublicID:    doc.Invoice.PublicID,
			GeneratedAt: doc.Invoice.GeneratedAt,
		}
	}
	if order.PaymentState == "" {
		order.PaymentState = domain.PaymentPending
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	return order
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:     strings.TrimSpace(order.OrderNumber),
		UserID:          strings.TrimSpace(order.UserID),
		ShippingAddress: fromDomainShippingAddress(order.ShippingAddress),
		TotalAmount:     order.TotalAmount,
		Tax:             order.Tax,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentState:    string(order.PaymentState),
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		StripeSessionID: strings.TrimSpace(order.StripeSessionID),
		PaymentIntentID: strings.TrimSpace(order.PaymentIntentID),
		Status:          string(order.Status),
		RejectionReason: order.RejectionReason,
		ApprovedBy:      strings.TrimSpace(order.ApprovedBy),
		ApprovedAt:      order.ApprovedAt,
		RejectedBy:      strings.TrimSpace(order.RejectedBy),
		RejectedAt:      order.RejectedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if len(order.Items) > 0 {
		doc.Items = make([]orderItemDocument, 0, len(order.Items))
		for _, item := range order.Items {
			doc.Items = append(doc.Items, orderItemDocument{
				ProductID: strings.TrimSpace(item.ProductID),
				Name:      item.Name,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Image:     strings.TrimSpace(item.Image),
			})
		}
	}
	if order.Invoice.Number != "" {
		doc.Invoice = &invoiceDocument{
			Number:      order.Invoice.Number,
			URL:         order.Invoice.URL,
			PublicID:    order.Invoice.PublicID,
			GeneratedAt: order.Invoice.GeneratedAt,
		}
	}
	return doc
}

// CollectionName exposes the Firestore collection for migration tooling.
func (r *OrderRepository) CollectionName() string {
	return orderCollection
}
