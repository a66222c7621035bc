package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
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

type stubNotificationService struct {
	publishFn     func(context.Context, services.PublishNotificationCommand) (services.Notification, error)
	listFn        func(context.Context) ([]services.Notification, error)
	markReadFn    func(context.Context, string) (services.Notification, error)
	markAllReadFn func(context.Context) (int64, error)
	clearReadFn   func(context.Context) (int64, error)
}

func (s *stubNotificationService) Publish(ctx context.Context, cmd services.PublishNotificationCommand) (services.Notification, error) {
	if s.publishFn != nil {
		return s.publishFn(ctx, cmd)
	}
	return services.Notification{}, errors.New("not implemented")
}

func (s *stubNotificationService) ListLatest(ctx context.Context) ([]services.Notification, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubNotificationService) MarkRead(ctx context.Context, notificationID string) (services.Notification, error) {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, notificationID)
	}
	return services.Notification{}, errors.New("not implemented")
}

func (s *stubNotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx)
	}
	return 0, errors.New("not implemented")
}

func (s *stubNotificationService) ClearRead(ctx context.Context) (int64, error) {
	if s.clearReadFn != nil {
		return s.clearReadFn(ctx)
	}
	return 0, errors.New("not implemented")
}

var _ services.NotificationService = (*stubNotificationService)(nil)

type stubImageUploader struct {
	uploadFn func(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error)
}

func (s *stubImageUploader) Upload(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error) {
	if s.uploadFn != nil {
		return s.uploadFn(ctx, bucket, object, contentType, payload)
	}
	return "", errors.New("not implemented")
}

var _ ProductImageUploader = (*stubImageUploader)(nil)

type adminRouterDeps struct {
	orders        services.OrderService
	catalog       services.CatalogService
	users         services.UserService
	notifications services.NotificationService
	images        ProductImageUploader
	imageBucket   string
	imageIDGen    func() string
}

func newAdminRouter(deps adminRouterDeps) chi.Router {
	handler := NewAdminHandlers(AdminHandlersDeps{
		Orders:        deps.orders,
		Catalog:       deps.catalog,
		Users:         deps.users,
		Notifications: deps.notifications,
		Images:        deps.images,
		ImageBucket:   deps.imageBucket,
		ImageIDGen:    deps.imageIDGen,
	})
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)
	return router
}

func adminRequest(req *http.Request) *http.Request {
	return authedRequest(req, "adm_1", auth.RoleAdmin)
}

func TestAdminHandlersListOrdersCapturesFilter(t *testing.T) {
	var captured services.OrderListFilter
	orders := &stubOrderService{
		listAllFn: func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			captured = filter
			return domain.CursorPage[services.Order]{
				Items: []services.Order{sampleOrder("ord_1", "usr_1")},
			}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodGet, "/admin/orders?status=pending&status=SHIPPED&userId=usr_1&pageSize=10", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "usr_1" {
		t.Fatalf("expected user filter usr_1, got %q", captured.UserID)
	}
	if len(captured.Status) != 2 || captured.Status[0] != domain.OrderPending || captured.Status[1] != domain.OrderShipped {
		t.Fatalf("expected lowercased status filters, got %+v", captured.Status)
	}
	if captured.Pagination.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", captured.Pagination.PageSize)
	}
}

func TestAdminHandlersListPendingOrders(t *testing.T) {
	orders := &stubOrderService{
		listPendingFn: func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.Order], error) {
			return domain.CursorPage[services.Order]{
				Items: []services.Order{sampleOrder("ord_1", "usr_1")},
			}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodGet, "/admin/orders/pending", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].Status != string(domain.OrderPending) {
		t.Fatalf("unexpected items: %+v", response.Items)
	}
}

func TestAdminHandlersTransitionStatus(t *testing.T) {
	var captured services.OrderStatusTransitionCommand
	orders := &stubOrderService{
		transitionFn: func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
			captured = cmd
			order := sampleOrder(cmd.OrderID, "usr_1")
			order.Status = cmd.TargetStatus
			return order, nil
		},
	}

	body := `{"status": "SHIPPED"}`
	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/orders/ord_1/status", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.TargetStatus != domain.OrderShipped {
		t.Fatalf("unexpected command: %+v", captured)
	}
	if captured.ActorID != "adm_1" {
		t.Fatalf("expected actor adm_1, got %q", captured.ActorID)
	}
}

func TestAdminHandlersTransitionStatusReasonAlias(t *testing.T) {
	var captured services.OrderStatusTransitionCommand
	orders := &stubOrderService{
		transitionFn: func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder(cmd.OrderID, "usr_1"), nil
		},
	}

	body := `{"status": "rejected", "reason": "Out of stock"}`
	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/orders/ord_1/status", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.RejectionReason != "Out of stock" {
		t.Fatalf("expected reason alias folded in, got %q", captured.RejectionReason)
	}
}

func TestAdminHandlersTransitionStatusInvalidEdge(t *testing.T) {
	orders := &stubOrderService{
		transitionFn: func(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidState
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/orders/ord_1/status", strings.NewReader(`{"status":"pending"}`)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminHandlersApproveOrder(t *testing.T) {
	var capturedActor, capturedOrder string
	orders := &stubOrderService{
		approveFn: func(ctx context.Context, actorID string, orderID string) (services.Order, error) {
			capturedActor = actorID
			capturedOrder = orderID
			order := sampleOrder(orderID, "usr_1")
			order.Status = domain.OrderProcessing
			order.ApprovedBy = actorID
			return order, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPost, "/admin/orders/ord_1/approve", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedActor != "adm_1" || capturedOrder != "ord_1" {
		t.Fatalf("unexpected approve args: %s %s", capturedActor, capturedOrder)
	}

	var response orderPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Status != string(domain.OrderProcessing) || response.ApprovedBy != "adm_1" {
		t.Fatalf("unexpected order payload: %+v", response)
	}
}

func TestAdminHandlersRejectOrderWithReason(t *testing.T) {
	var capturedReason string
	orders := &stubOrderService{
		rejectFn: func(ctx context.Context, actorID string, orderID string, reason string) (services.Order, error) {
			capturedReason = reason
			order := sampleOrder(orderID, "usr_1")
			order.Status = domain.OrderRejected
			order.RejectionReason = reason
			return order, nil
		},
	}

	body := `{"reason": "Out of stock"}`
	req := adminRequest(httptest.NewRequest(http.MethodPost, "/admin/orders/ord_1/reject", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedReason != "Out of stock" {
		t.Fatalf("expected reason, got %q", capturedReason)
	}
}

func TestAdminHandlersRejectOrderEmptyBody(t *testing.T) {
	var called bool
	orders := &stubOrderService{
		rejectFn: func(ctx context.Context, actorID string, orderID string, reason string) (services.Order, error) {
			called = true
			if reason != "" {
				t.Fatalf("expected empty reason, got %q", reason)
			}
			return sampleOrder(orderID, "usr_1"), nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPost, "/admin/orders/ord_1/reject", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !called {
		t.Fatalf("expected reject to be invoked")
	}
}

func TestAdminHandlersDeleteOrder(t *testing.T) {
	var captured string
	orders := &stubOrderService{
		deleteAnyFn: func(ctx context.Context, orderID string) error {
			captured = orderID
			return nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/orders/ord_1", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured != "ord_1" {
		t.Fatalf("expected ord_1, got %q", captured)
	}
}

func TestAdminHandlersDeleteOrderNotFound(t *testing.T) {
	orders := &stubOrderService{
		deleteAnyFn: func(ctx context.Context, orderID string) error {
			return services.ErrOrderNotFound
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/orders/ord_ghost", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminHandlersCreateProduct(t *testing.T) {
	var captured services.CreateProductCommand
	catalog := &stubCatalogService{
		createFn: func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			captured = cmd
			return sampleProduct("prd_new"), nil
		},
	}

	body := `{
		"name": "Steel Bottle",
		"price": 599,
		"description": "1L insulated bottle",
		"category": "kitchen",
		"stock": 42,
		"image": {"url": "https://img.example.com/bottle.png", "publicId": "assets/products/bottle.png"}
	}`
	req := adminRequest(httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{catalog: catalog}).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Steel Bottle" || captured.Price != 599 || captured.Stock != 42 {
		t.Fatalf("unexpected command: %+v", captured)
	}
	if captured.ImageURL != "https://img.example.com/bottle.png" {
		t.Fatalf("expected image url, got %q", captured.ImageURL)
	}
}

func multipartProductRequest(t *testing.T, fields map[string]string, imageName string, imageBody []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if imageName != "" {
		part, err := form.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create image part: %v", err)
		}
		if _, err := part.Write(imageBody); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestAdminHandlersCreateProductMultipartUpload(t *testing.T) {
	var captured services.CreateProductCommand
	catalog := &stubCatalogService{
		createFn: func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			captured = cmd
			return sampleProduct("prd_new"), nil
		},
	}

	var uploadedBucket, uploadedObject, uploadedContentType string
	var uploadedPayload []byte
	images := &stubImageUploader{
		uploadFn: func(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error) {
			uploadedBucket = bucket
			uploadedObject = object
			uploadedContentType = contentType
			uploadedPayload = payload
			return "https://storage.example.com/uploads/" + object, nil
		},
	}

	imageBody := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	req := adminRequest(multipartProductRequest(t, map[string]string{
		"name":        "Steel Bottle",
		"price":       "599",
		"description": "1L insulated bottle",
		"category":    "kitchen",
		"stock":       "42",
	}, "Bottle.PNG", imageBody))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{
		catalog:     catalog,
		images:      images,
		imageBucket: "primemart-uploads",
		imageIDGen:  func() string { return "img_01" },
	}).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if uploadedBucket != "primemart-uploads" {
		t.Fatalf("expected uploads bucket, got %q", uploadedBucket)
	}
	if uploadedObject != "products/img_01.png" {
		t.Fatalf("unexpected object path %q", uploadedObject)
	}
	if !bytes.Equal(uploadedPayload, imageBody) {
		t.Fatalf("unexpected payload %v", uploadedPayload)
	}
	if uploadedContentType == "" {
		t.Fatalf("expected a content type to be derived")
	}
	if captured.Name != "Steel Bottle" || captured.Price != 599 || captured.Stock != 42 {
		t.Fatalf("unexpected command: %+v", captured)
	}
	if captured.ImageURL != "https://storage.example.com/uploads/products/img_01.png" {
		t.Fatalf("unexpected image url %q", captured.ImageURL)
	}
	if captured.ImagePublicID != "products/img_01.png" {
		t.Fatalf("unexpected image public id %q", captured.ImagePublicID)
	}
}

func TestAdminHandlersCreateProductMultipartWithoutImage(t *testing.T) {
	var captured services.CreateProductCommand
	catalog := &stubCatalogService{
		createFn: func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			captured = cmd
			return sampleProduct("prd_new"), nil
		},
	}

	req := adminRequest(multipartProductRequest(t, map[string]string{
		"name":  "Steel Bottle",
		"price": "599",
	}, "", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{catalog: catalog}).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ImageURL != "" || captured.ImagePublicID != "" {
		t.Fatalf("expected no image, got %+v", captured)
	}
}

func TestAdminHandlersCreateProductUploadUnavailable(t *testing.T) {
	catalog := &stubCatalogService{
		createFn: func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			t.Fatalf("create should not be reached")
			return services.Product{}, nil
		},
	}

	req := adminRequest(multipartProductRequest(t, map[string]string{
		"name": "Steel Bottle",
	}, "bottle.png", []byte("pixels")))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{catalog: catalog}).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminHandlersCreateProductUploadFailure(t *testing.T) {
	catalog := &stubCatalogService{}
	images := &stubImageUploader{
		uploadFn: func(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error) {
			return "", errors.New("bucket gone")
		},
	}

	req := adminRequest(multipartProductRequest(t, map[string]string{
		"name": "Steel Bottle",
	}, "bottle.png", []byte("pixels")))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{
		catalog:     catalog,
		images:      images,
		imageBucket: "primemart-uploads",
	}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminHandlersUpdateProductPartial(t *testing.T) {
	var captured services.UpdateProductCommand
	catalog := &stubCatalogService{
		updateFn: func(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
			captured = cmd
			return sampleProduct(cmd.ProductID), nil
		},
	}

	body := `{"price": 299, "stock": 8}`
	req := adminRequest(httptest.NewRequest(http.MethodPut, "/admin/products/prd_1", strings.NewReader(body)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{catalog: catalog}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ProductID != "prd_1" {
		t.Fatalf("expected prd_1, got %q", captured.ProductID)
	}
	if captured.Name != nil {
		t.Fatalf("expected name untouched, got %v", *captured.Name)
	}
	if captured.Price == nil || *captured.Price != 299 {
		t.Fatalf("expected price patch, got %v", captured.Price)
	}
	if captured.Stock == nil || *captured.Stock != 8 {
		t.Fatalf("expected stock patch, got %v", captured.Stock)
	}
}

func TestAdminHandlersDeleteProduct(t *testing.T) {
	catalog := &stubCatalogService{
		deleteFn: func(ctx context.Context, productID string) error {
			if productID != "prd_1" {
				t.Fatalf("expected prd_1, got %q", productID)
			}
			return nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/products/prd_1", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{catalog: catalog}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestAdminHandlersListUsers(t *testing.T) {
	users := &stubUserService{
		listFn: func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.User], error) {
			return domain.CursorPage[services.User]{
				Items:         []services.User{sampleUser("usr_1"), sampleUser("usr_2")},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response userListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Items) != 2 || response.NextPageToken != "tok-next" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestAdminHandlersSetUserRole(t *testing.T) {
	var captured services.SetRoleCommand
	users := &stubUserService{
		setRoleFn: func(ctx context.Context, cmd services.SetRoleCommand) (services.User, error) {
			captured = cmd
			user := sampleUser(cmd.UserID)
			user.Role = domain.RoleAdmin
			return user, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/users/usr_1/role", strings.NewReader(`{"role":"admin"}`)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "usr_1" || captured.Role != domain.RoleAdmin {
		t.Fatalf("unexpected command: %+v", captured)
	}
}

func TestAdminHandlersSetAccountStatusAlias(t *testing.T) {
	var captured services.SetAccountStatusCommand
	users := &stubUserService{
		setStatusFn: func(ctx context.Context, cmd services.SetAccountStatusCommand) (services.User, error) {
			captured = cmd
			return sampleUser(cmd.UserID), nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/users/usr_1/status", strings.NewReader(`{"accountStatus":"suspended"}`)))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Status != domain.AccountSuspended {
		t.Fatalf("expected suspended, got %q", captured.Status)
	}
}

func TestAdminHandlersDeleteUser(t *testing.T) {
	var capturedActor, capturedUser string
	users := &stubUserService{
		deleteFn: func(ctx context.Context, actorID string, userID string) error {
			capturedActor = actorID
			capturedUser = userID
			return nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/users/usr_1", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedActor != "adm_1" || capturedUser != "usr_1" {
		t.Fatalf("unexpected delete args: %s %s", capturedActor, capturedUser)
	}
	if !strings.Contains(rr.Body.String(), `"deleted":true`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestAdminHandlersDeleteUserSelfRejected(t *testing.T) {
	users := &stubUserService{
		deleteFn: func(ctx context.Context, actorID string, userID string) error {
			return services.ErrUserInvalidInput
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/users/adm_1", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersDeleteUserNotFound(t *testing.T) {
	users := &stubUserService{
		deleteFn: func(ctx context.Context, actorID string, userID string) error {
			return services.ErrUserNotFound
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/users/usr_ghost", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{users: users}).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminHandlersDashboardStats(t *testing.T) {
	orders := &stubOrderService{
		statsFn: func(ctx context.Context) (services.DashboardStats, error) {
			return services.DashboardStats{
				TotalUsers:    12,
				TotalProducts: 48,
				TotalOrders:   103,
				Revenue:       50789.5,
				RecentOrders:  []services.Order{sampleOrder("ord_recent", "usr_1")},
				StatusCounts: map[domain.OrderStatus]int64{
					domain.OrderPending:   3,
					domain.OrderDelivered: 7,
				},
				LowStockProducts: []services.Product{sampleProduct("prd_low")},
			}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{orders: orders}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response dashboardStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.TotalUsers != 12 || response.TotalOrders != 103 || response.Revenue != 50789.5 {
		t.Fatalf("unexpected totals: %+v", response)
	}
	if len(response.RecentOrders) != 1 || response.RecentOrders[0].ID != "ord_recent" {
		t.Fatalf("unexpected recent orders: %+v", response.RecentOrders)
	}
	if response.StatusCounts["pending"] != 3 || response.StatusCounts["delivered"] != 7 {
		t.Fatalf("unexpected status counts: %+v", response.StatusCounts)
	}
	if len(response.LowStockProducts) != 1 || response.LowStockProducts[0].ID != "prd_low" {
		t.Fatalf("unexpected low stock: %+v", response.LowStockProducts)
	}
}

func TestAdminHandlersListNotifications(t *testing.T) {
	readAt := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	notifications := &stubNotificationService{
		listFn: func(ctx context.Context) ([]services.Notification, error) {
			return []services.Notification{
				{
					ID:        "ntf_1",
					Type:      domain.NotificationOrderPlaced,
					OrderID:   "ord_1",
					Message:   "Order ORD-0042 placed for ₹1198.00.",
					CreatedAt: readAt,
				},
				{
					ID:        "ntf_2",
					Type:      domain.NotificationOrderApproved,
					OrderID:   "ord_2",
					Message:   "Order ORD-0043 has been approved and is now processing.",
					IsRead:    true,
					ReadAt:    &readAt,
					CreatedAt: readAt,
				},
			}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodGet, "/admin/notifications", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{notifications: notifications}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response struct {
		Items []notificationPayload `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(response.Items))
	}
	if response.Items[0].Type != "order_placed" || response.Items[1].IsRead != true {
		t.Fatalf("unexpected notifications: %+v", response.Items)
	}
}

func TestAdminHandlersMarkNotificationRead(t *testing.T) {
	readAt := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)
	notifications := &stubNotificationService{
		markReadFn: func(ctx context.Context, notificationID string) (services.Notification, error) {
			if notificationID != "ntf_1" {
				t.Fatalf("expected ntf_1, got %q", notificationID)
			}
			return services.Notification{ID: notificationID, IsRead: true, ReadAt: &readAt}, nil
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/notifications/ntf_1/read", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{notifications: notifications}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"isRead":true`) {
		t.Fatalf("expected read flag, got %s", rr.Body.String())
	}
}

func TestAdminHandlersMarkNotificationReadNotFound(t *testing.T) {
	notifications := &stubNotificationService{
		markReadFn: func(ctx context.Context, notificationID string) (services.Notification, error) {
			return services.Notification{}, services.ErrNotificationNotFound
		},
	}

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/notifications/ntf_ghost/read", nil))
	rr := httptest.NewRecorder()
	newAdminRouter(adminRouterDeps{notifications: notifications}).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminHandlersMarkAllAndClearRead(t *testing.T) {
	notifications := &stubNotificationService{
		markAllReadFn: func(ctx context.Context) (int64, error) { return 4, nil },
		clearReadFn:   func(ctx context.Context) (int64, error) { return 2, nil },
	}
	router := newAdminRouter(adminRouterDeps{notifications: notifications})

	req := adminRequest(httptest.NewRequest(http.MethodPatch, "/admin/notifications/read-all", nil))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"updated":4`) {
		t.Fatalf("unexpected read-all response %d: %s", rr.Code, rr.Body.String())
	}

	req = adminRequest(httptest.NewRequest(http.MethodDelete, "/admin/notifications/clear-read", nil))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"deleted":2`) {
		t.Fatalf("unexpected clear-read response %d: %s", rr.Code, rr.Body.String())
	}
}
