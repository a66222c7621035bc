package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/platform/auth"
	"github.com/primemart/api/internal/services"
)

type stubOrderService struct {
	createFn      func(context.Context, services.CreateOrderCommand) (services.Order, error)
	getFn         func(context.Context, services.Actor, string) (services.Order, error)
	listForUserFn func(context.Context, string, services.Pagination) (domain.CursorPage[services.Order], error)
	listAllFn     func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
	listPendingFn func(context.Context, services.Pagination) (domain.CursorPage[services.Order], error)
	transitionFn  func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error)
	approveFn     func(context.Context, string, string) (services.Order, error)
	rejectFn      func(context.Context, string, string, string) (services.Order, error)
	cancelFn      func(context.Context, string, string) (services.Order, error)
	deleteOwnFn   func(context.Context, string, string) error
	deleteAnyFn   func(context.Context, string) error
	statsFn       func(context.Context) (services.DashboardStats, error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID string, pager services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.listForUserFn != nil {
		return s.listForUserFn(ctx, userID, pager)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) ListAll(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) ListPending(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.listPendingFn != nil {
		return s.listPendingFn(ctx, pager)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Approve(ctx context.Context, actorID string, orderID string) (services.Order, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, actorID, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Reject(ctx context.Context, actorID string, orderID string, reason string) (services.Order, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, actorID, orderID, reason)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Cancel(ctx context.Context, userID string, orderID string) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, userID, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) DeleteOwn(ctx context.Context, userID string, orderID string) error {
	if s.deleteOwnFn != nil {
		return s.deleteOwnFn(ctx, userID, orderID)
	}
	return errors.New("not implemented")
}

func (s *stubOrderService) DeleteAny(ctx context.Context, orderID string) error {
	if s.deleteAnyFn != nil {
		return s.deleteAnyFn(ctx, orderID)
	}
	return errors.New("not implemented")
}

func (s *stubOrderService) Stats(ctx context.Context) (services.DashboardStats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx)
	}
	return services.DashboardStats{}, errors.New("not implemented")
}

var _ services.OrderService = (*stubOrderService)(nil)

type stubInvoiceService struct {
	ensureFn func(context.Context, services.Order) (services.Order, error)
	renderFn func(context.Context, services.Order) ([]byte, error)
	getFn    func(context.Context, services.Actor, string) (services.Order, error)
}

func (s *stubInvoiceService) EnsureInvoice(ctx context.Context, order services.Order) (services.Order, error) {
	if s.ensureFn != nil {
		return s.ensureFn(ctx, order)
	}
	return order, nil
}

func (s *stubInvoiceService) RenderPDF(ctx context.Context, order services.Order) ([]byte, error) {
	if s.renderFn != nil {
		return s.renderFn(ctx, order)
	}
	return []byte("%PDF"), nil
}

func (s *stubInvoiceService) GetInvoice(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

var _ services.InvoiceService = (*stubInvoiceService)(nil)

// authedRequest injects a verified identity, bypassing the token middleware.
func authedRequest(req *http.Request, userID string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	identity := &auth.Identity{UserID: userID, Roles: roles}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func sampleOrder(id, userID string) services.Order {
	created := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)
	return services.Order{
		ID:          id,
		OrderNumber: "ORD-0042",
		UserID:      userID,
		Items: []services.OrderItem{
			{ProductID: "prd_1", Name: "Steel Bottle", Price: 599, Quantity: 2, Image: "https://img.example.com/bottle.png"},
		},
		ShippingAddress: services.ShippingAddress{
			FullName: "Asha Verma",
			Phone:    "9876543210",
			Street:   "14 MG Road",
			City:     "Bengaluru",
			State:    "Karnataka",
			Pincode:  "560001",
			Country:  "India",
		},
		TotalAmount:   1198,
		Tax:           215.64,
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentState:  domain.PaymentPending,
		Status:        domain.OrderPending,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func newOrderRouter(orders services.OrderService, invoices services.InvoiceService) chi.Router {
	handler := NewOrderHandlers(nil, orders, invoices)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)
	return router
}

func TestOrderHandlersCreateNormalisesAliases(t *testing.T) {
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_1", cmd.UserID), nil
		},
	}

	body := `{
		"orderItems": [{"productId": "prd_1", "name": "Steel Bottle", "price": 599, "quantity": 2}],
		"address": {"fullName": "Asha Verma", "street": "14 MG Road", "city": "Bengaluru", "pincode": "560001"},
		"totalPrice": 1198,
		"tax": 215.64,
		"paymentMethod": "COD"
	}`

	req := authedRequest(httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body)), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "usr_1" {
		t.Fatalf("expected user usr_1, got %q", captured.UserID)
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != "prd_1" || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", captured.Items)
	}
	if captured.ShippingAddress.City != "Bengaluru" {
		t.Fatalf("expected address alias to be folded in, got %+v", captured.ShippingAddress)
	}
	if captured.TotalAmount != 1198 {
		t.Fatalf("expected totalPrice alias folded into total amount, got %v", captured.TotalAmount)
	}
	if captured.PaymentMethod != domain.PaymentMethodCOD {
		t.Fatalf("expected payment method lowercased to cod, got %q", captured.PaymentMethod)
	}

	var response orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.ID != "ord_1" || response.OrderNumber != "ORD-0042" {
		t.Fatalf("unexpected response order: %+v", response)
	}
}

func TestOrderHandlersCreateCanonicalFieldsWin(t *testing.T) {
	var captured services.CreateOrderCommand
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder("ord_1", cmd.UserID), nil
		},
	}

	body := `{
		"items": [{"productId": "prd_1", "price": 599, "quantity": 1}],
		"orderItems": [{"productId": "prd_other", "price": 1, "quantity": 9}],
		"shippingAddress": {"street": "14 MG Road", "city": "Bengaluru", "pincode": "560001"},
		"address": {"street": "ignored", "city": "ignored", "pincode": "0"},
		"totalAmount": 599,
		"totalPrice": 1,
		"paymentMethod": "cod"
	}`

	req := authedRequest(httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body)), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if len(captured.Items) != 1 || captured.Items[0].ProductID != "prd_1" {
		t.Fatalf("expected canonical items to win, got %+v", captured.Items)
	}
	if captured.ShippingAddress.City != "Bengaluru" {
		t.Fatalf("expected canonical shippingAddress to win, got %+v", captured.ShippingAddress)
	}
	if captured.TotalAmount != 599 {
		t.Fatalf("expected canonical totalAmount to win, got %v", captured.TotalAmount)
	}
}

func TestOrderHandlersCreateRequiresAuth(t *testing.T) {
	service := &stubOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrderHandlersCreateInvalidInput(t *testing.T) {
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidInput
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(`{"items":[]}`)), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersListMyOrders(t *testing.T) {
	var capturedUser string
	var capturedPager services.Pagination
	service := &stubOrderService{
		listForUserFn: func(ctx context.Context, userID string, pager services.Pagination) (domain.CursorPage[services.Order], error) {
			capturedUser = userID
			capturedPager = pager
			return domain.CursorPage[services.Order]{
				Items:         []services.Order{sampleOrder("ord_1", userID)},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/orders/my?pageSize=5&pageToken=tok123", nil), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedUser != "usr_1" {
		t.Fatalf("expected usr_1, got %q", capturedUser)
	}
	if capturedPager.PageSize != 5 || capturedPager.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %+v", capturedPager)
	}

	var response orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Items) != 1 || response.NextPageToken != "tok-next" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestOrderHandlersGetOrderForbidden(t *testing.T) {
	service := &stubOrderService{
		getFn: func(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
			return services.Order{}, services.ErrOrderForbidden
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), "usr_2")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderPassesActorRole(t *testing.T) {
	var captured services.Actor
	service := &stubOrderService{
		getFn: func(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
			captured = actor
			return sampleOrder(orderID, "usr_1"), nil
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil), "adm_1", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "adm_1" || !captured.IsAdmin() {
		t.Fatalf("expected admin actor, got %+v", captured)
	}
}

func TestOrderHandlersGetInvoice(t *testing.T) {
	invoices := &stubInvoiceService{
		getFn: func(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
			order := sampleOrder(orderID, actor.UserID)
			order.Invoice = domain.InvoiceDetails{
				Number:      "INV-0007",
				URL:         "https://blobs.example.com/invoices/INV-0007.pdf",
				GeneratedAt: time.Date(2026, 4, 10, 17, 0, 0, 0, time.UTC),
			}
			return order, nil
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/orders/ord_1/invoice", nil), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}, invoices).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response invoicePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Number != "INV-0007" {
		t.Fatalf("expected invoice INV-0007, got %q", response.Number)
	}
	if response.URL != "https://blobs.example.com/invoices/INV-0007.pdf" {
		t.Fatalf("unexpected invoice url %q", response.URL)
	}
}

func TestOrderHandlersGetInvoiceForbidden(t *testing.T) {
	invoices := &stubInvoiceService{
		getFn: func(ctx context.Context, actor services.Actor, orderID string) (services.Order, error) {
			return services.Order{}, services.ErrInvoiceForbidden
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/orders/ord_1/invoice", nil), "usr_2")
	rr := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}, invoices).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOrderHandlersCancel(t *testing.T) {
	var capturedUser, capturedOrder string
	service := &stubOrderService{
		cancelFn: func(ctx context.Context, userID string, orderID string) (services.Order, error) {
			capturedUser = userID
			capturedOrder = orderID
			order := sampleOrder(orderID, userID)
			order.Status = domain.OrderCancelled
			return order, nil
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodPost, "/orders/ord_1/cancel", nil), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedUser != "usr_1" || capturedOrder != "ord_1" {
		t.Fatalf("unexpected cancel args: %s %s", capturedUser, capturedOrder)
	}

	var response orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Status != string(domain.OrderCancelled) {
		t.Fatalf("expected cancelled status, got %q", response.Status)
	}
}

func TestOrderHandlersDeleteOwnInvalidState(t *testing.T) {
	service := &stubOrderService{
		deleteOwnFn: func(ctx context.Context, userID string, orderID string) error {
			return services.ErrOrderInvalidState
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodDelete, "/orders/ord_1", nil), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersDeleteOwn(t *testing.T) {
	service := &stubOrderService{
		deleteOwnFn: func(ctx context.Context, userID string, orderID string) error {
			return nil
		},
	}

	req := authedRequest(httptest.NewRequest(http.MethodDelete, "/orders/ord_1", nil), "usr_1")
	rr := httptest.NewRecorder()
	newOrderRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"deleted":true`) {
		t.Fatalf("expected deleted flag, got %s", rr.Body.String())
	}
}
