package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/platform/auth"
	"github.com/primemart/api/internal/platform/httpx"
	"github.com/primemart/api/internal/services"
)

const (
	defaultBodyLimit = 64 * 1024

	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, defaultBodyLimit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

// jsonUnmarshalLenient tolerates an empty payload, for endpoints whose body
// is entirely optional.
func jsonUnmarshalLenient(data []byte, dst any) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePointer(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// requireIdentity fetches the authenticated identity or writes 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UserID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func actorFromIdentity(identity *auth.Identity) services.Actor {
	actor := services.Actor{
		UserID: strings.TrimSpace(identity.UserID),
		Role:   domain.RoleUser,
	}
	if identity.HasRole(auth.RoleAdmin) {
		actor.Role = domain.RoleAdmin
	}
	return actor
}

// queryParam returns the first non-blank value among the given query keys.
func queryParam(r *http.Request, keys ...string) string {
	query := r.URL.Query()
	for _, key := range keys {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

func parsePagination(r *http.Request) (domain.Pagination, error) {
	pager := domain.Pagination{
		PageSize:  defaultPageSize,
		PageToken: queryParam(r, "pageToken", "page_token"),
	}
	if raw := queryParam(r, "pageSize", "page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return pager, errors.New("pageSize must be an integer")
		}
		switch {
		case size <= 0:
			pager.PageSize = defaultPageSize
		case size > maxPageSize:
			pager.PageSize = maxPageSize
		default:
			pager.PageSize = size
		}
	}
	return pager, nil
}

// Shared response payloads --------------------------------------------------

type shippingAddressPayload struct {
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Street   string `json:"street,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
	Country  string `json:"country,omitempty"`
}

func buildShippingAddressPayload(addr domain.ShippingAddress) shippingAddressPayload {
	return shippingAddressPayload{
		FullName: addr.FullName,
		Phone:    addr.Phone,
		Street:   addr.Street,
		City:     addr.City,
		State:    addr.State,
		Pincode:  addr.Pincode,
		Country:  addr.Country,
	}
}

func (p shippingAddressPayload) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: strings.TrimSpace(p.FullName),
		Phone:    strings.TrimSpace(p.Phone),
		Street:   strings.TrimSpace(p.Street),
		City:     strings.TrimSpace(p.City),
		State:    strings.TrimSpace(p.State),
		Pincode:  strings.TrimSpace(p.Pincode),
		Country:  strings.TrimSpace(p.Country),
	}
}

type userPayload struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Mobile          string                 `json:"mobile,omitempty"`
	Role            string                 `json:"role"`
	AccountStatus   string                 `json:"accountStatus"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	CreatedAt       string                 `json:"createdAt,omitempty"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

func buildUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Mobile:          user.Mobile,
		Role:            string(user.Role),
		AccountStatus:   string(user.AccountStatus),
		ShippingAddress: buildShippingAddressPayload(user.ShippingAddress),
		CreatedAt:       formatTime(user.CreatedAt),
		UpdatedAt:       formatTime(user.UpdatedAt),
	}
}

type productImagePayload struct {
	URL      string `json:"url,omitempty"`
	PublicID string `json:"publicId,omitempty"`
}

type productPayload struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Price       float64             `json:"price"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Stock       int                 `json:"stock"`
	Image       productImagePayload `json:"image"`
	CreatedAt   string              `json:"createdAt,omitempty"`
	UpdatedAt   string              `json:"updatedAt,omitempty"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
		Category:    product.Category,
		Stock:       product.Stock,
		Image: productImagePayload{
			URL:      product.Image.URL,
			PublicID: product.Image.PublicID,
		},
		CreatedAt: formatTime(product.CreatedAt),
		UpdatedAt: formatTime(product.UpdatedAt),
	}
}

type orderItemPayload struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type invoicePayload struct {
	Number      string `json:"number"`
	URL         string `json:"url"`
	GeneratedAt string `json:"generatedAt,omitempty"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	UserID          string                 `json:"userId"`
	Items           []orderItemPayload     `json:"items"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	TotalAmount     float64                `json:"totalAmount"`
	Tax             float64                `json:"tax"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PaymentStatus   string                 `json:"paymentStatus"`
	IsPaid          bool                   `json:"isPaid"`
	PaidAt          string                 `json:"paidAt,omitempty"`
	StripeSessionID string                 `json:"stripeSessionId,omitempty"`
	Status          string                 `json:"status"`
	RejectionReason string                 `json:"rejectionReason,omitempty"`
	ApprovedBy      string                 `json:"approvedBy,omitempty"`
	ApprovedAt      string                 `json:"approvedAt,omitempty"`
	RejectedBy      string                 `json:"rejectedBy,omitempty"`
	RejectedAt      string                 `json:"rejectedAt,omitempty"`
	Invoice         *invoicePayload        `json:"invoice,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Items:           make([]orderItemPayload, 0, len(order.Items)),
		ShippingAddress: buildShippingAddressPayload(order.ShippingAddress),
		TotalAmount:     order.TotalAmount,
		Tax:             order.Tax,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentStatus:   string(order.PaymentState),
		IsPaid:          order.IsPaid,
		PaidAt:          formatTimePointer(order.PaidAt),
		StripeSessionID: order.StripeSessionID,
		Status:          string(order.Status),
		RejectionReason: order.RejectionReason,
		ApprovedBy:      order.ApprovedBy,
		ApprovedAt:      formatTimePointer(order.ApprovedAt),
		RejectedBy:      order.RejectedBy,
		RejectedAt:      formatTimePointer(order.RejectedAt),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	if order.Invoice.Number != "" || order.Invoice.URL != "" {
		payload.Invoice = &invoicePayload{
			Number:      order.Invoice.Number,
			URL:         order.Invoice.URL,
			GeneratedAt: formatTime(order.Invoice.GeneratedAt),
		}
	}
	return payload
}

type notificationPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId,omitempty"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	ReadAt    string `json:"readAt,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func buildNotificationPayload(n domain.Notification) notificationPayload {
	return notificationPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		OrderID:   n.OrderID,
		UserID:    n.UserID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		ReadAt:    formatTimePointer(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}
