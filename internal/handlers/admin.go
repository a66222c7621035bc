package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	domain "github.com/primemart/api/internal/domain"
	"github.com/primemart/api/internal/platform/auth"
	"github.com/primemart/api/internal/platform/httpx"
	"github.com/primemart/api/internal/platform/storage"
	"github.com/primemart/api/internal/services"
)

// ProductImageUploader stores uploaded product images and returns their public URL.
type ProductImageUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, payload []byte) (string, error)
}

// AdminHandlers groups every admin-only endpoint behind the admin role check.
type AdminHandlers struct {
	authn         *auth.Authenticator
	orders        services.OrderService
	catalog       services.CatalogService
	users         services.UserService
	notifications services.NotificationService
	images        ProductImageUploader
	imageBucket   string
	newImageID    func() string
}

// AdminHandlersDeps bundles the services backing the admin surface. Images and
// ImageBucket are optional; without them product endpoints accept only
// pre-uploaded image URLs.
type AdminHandlersDeps struct {
	Authenticator *auth.Authenticator
	Orders        services.OrderService
	Catalog       services.CatalogService
	Users         services.UserService
	Notifications services.NotificationService
	Images        ProductImageUploader
	ImageBucket   string
	ImageIDGen    func() string
}

// NewAdminHandlers constructs the admin handler set.
func NewAdminHandlers(deps AdminHandlersDeps) *AdminHandlers {
	idGen := deps.ImageIDGen
	if idGen == nil {
		idGen = func() string { return "img_" + ulid.Make().String() }
	}
	return &AdminHandlers{
		authn:         deps.Authenticator,
		orders:        deps.Orders,
		catalog:       deps.Catalog,
		users:         deps.Users,
		notifications: deps.Notifications,
		images:        deps.Images,
		imageBucket:   strings.TrimSpace(deps.ImageBucket),
		newImageID:    idGen,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}

	r.Get("/orders", h.listOrders)
	r.Get("/orders/pending", h.listPendingOrders)
	r.Patch("/orders/{orderID}/status", h.transitionOrderStatus)
	r.Post("/orders/{orderID}/approve", h.approveOrder)
	r.Post("/orders/{orderID}/reject", h.rejectOrder)
	r.Delete("/orders/{orderID}", h.deleteOrder)

	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)

	r.Get("/users", h.listUsers)
	r.Patch("/users/{userID}/role", h.setUserRole)
	r.Patch("/users/{userID}/status", h.setAccountStatus)
	r.Delete("/users/{userID}", h.deleteUser)

	r.Get("/stats", h.dashboardStats)

	r.Get("/notifications", h.listNotifications)
	r.Patch("/notifications/{notificationID}/read", h.markNotificationRead)
	r.Patch("/notifications/read-all", h.markAllNotificationsRead)
	r.Delete("/notifications/clear-read", h.clearReadNotifications)
}

// Orders ---------------------------------------------------------------------

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		UserID:     queryParam(r, "userId", "user_id"),
		Pagination: pager,
	}
	for _, raw := range r.URL.Query()["status"] {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw != "" {
			filter.Status = append(filter.Status, domain.OrderStatus(raw))
		}
	}

	page, err := h.orders.ListAll(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(page))
}

func (h *AdminHandlers) listPendingOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListPending(ctx, pager)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(page))
}

type transitionStatusRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
	Reason          string `json:"reason"`
}

func (r transitionStatusRequest) reason() string {
	if reason := strings.TrimSpace(r.RejectionReason); reason != "" {
		return reason
	}
	return strings.TrimSpace(r.Reason)
}

func (h *AdminHandlers) transitionOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req transitionStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:         orderID,
		TargetStatus:    domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ActorID:         strings.TrimSpace(identity.UserID),
		RejectionReason: req.reason(),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *AdminHandlers) approveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Approve(ctx, strings.TrimSpace(identity.UserID), orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type rejectOrderRequest struct {
	Reason          string `json:"reason"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *AdminHandlers) rejectOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req rejectOrderRequest
	if body, err := readLimitedBody(r, defaultBodyLimit); err == nil {
		// Reason is optional, so an empty body is fine.
		_ = jsonUnmarshalLenient(body, &req)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = strings.TrimSpace(req.RejectionReason)
	}

	order, err := h.orders.Reject(ctx, strings.TrimSpace(identity.UserID), orderID, reason)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *AdminHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.DeleteAny(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

// Products -------------------------------------------------------------------

type productImageRef struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type productRequest struct {
	Name        string           `json:"name"`
	Price       *float64         `json:"price"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
	Image       *productImageRef `json:"image"`
}

const maxProductImageBytes = 8 << 20

// decodeProductRequest accepts either a JSON document or a multipart form
// carrying the same fields plus an optional image file.
func (h *AdminHandlers) decodeProductRequest(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		return h.decodeProductForm(w, r)
	}

	var req productRequest
	if !decodeJSONBody(w, r, &req) {
		return productRequest{}, false
	}
	return req, true
}

func (h *AdminHandlers) decodeProductForm(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxProductImageBytes); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed multipart form", http.StatusBadRequest))
		return productRequest{}, false
	}

	req := productRequest{Name: strings.TrimSpace(r.FormValue("name"))}
	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price must be a number", http.StatusBadRequest))
			return productRequest{}, false
		}
		req.Price = &price
	}
	if raw := r.FormValue("description"); raw != "" {
		description := raw
		req.Description = &description
	}
	if raw := strings.TrimSpace(r.FormValue("category")); raw != "" {
		category := raw
		req.Category = &category
	}
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "stock must be an integer", http.StatusBadRequest))
			return productRequest{}, false
		}
		req.Stock = &stock
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, true
	}
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed image upload", http.StatusBadRequest))
		return productRequest{}, false
	}
	defer file.Close()

	image, ok := h.storeProductImage(ctx, w, file, header)
	if !ok {
		return productRequest{}, false
	}
	req.Image = image
	return req, true
}

func (h *AdminHandlers) storeProductImage(ctx context.Context, w http.ResponseWriter, file multipart.File, header *multipart.FileHeader) (*productImageRef, bool) {
	if h.images == nil || h.imageBucket == "" {
		httpx.WriteError(ctx, w, httpx.NewError("image_upload_unavailable", "image upload is not configured", http.StatusServiceUnavailable))
		return nil, false
	}

	payload, err := io.ReadAll(io.LimitReader(file, maxProductImageBytes+1))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("image_upload_failed", "could not read image upload", http.StatusBadRequest))
		return nil, false
	}
	if len(payload) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "image file is empty", http.StatusBadRequest))
		return nil, false
	}
	if len(payload) > maxProductImageBytes {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "image exceeds the upload size limit", http.StatusRequestEntityTooLarge))
		return nil, false
	}

	fileName := h.newImageID()
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" {
		fileName += ext
	}
	object, err := storage.BuildObjectPath(storage.PurposeProductImage, storage.PathParams{FileName: fileName})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid image file name", http.StatusBadRequest))
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(payload)
	}

	url, err := h.images.Upload(ctx, h.imageBucket, object, contentType, payload)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("image_upload_failed", "could not store product image", http.StatusBadGateway))
		return nil, false
	}
	return &productImageRef{URL: url, PublicID: object}, true
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	req, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	cmd := services.CreateProductCommand{Name: req.Name}
	if req.Price != nil {
		cmd.Price = *req.Price
	}
	if req.Description != nil {
		cmd.Description = *req.Description
	}
	if req.Category != nil {
		cmd.Category = *req.Category
	}
	if req.Stock != nil {
		cmd.Stock = *req.Stock
	}
	if req.Image != nil {
		cmd.ImageURL = req.Image.URL
		cmd.ImagePublicID = req.Image.PublicID
	}

	product, err := h.catalog.CreateProduct(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	req, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	cmd := services.UpdateProductCommand{
		ProductID:   productID,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		Stock:       req.Stock,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		cmd.Name = &name
	}
	if req.Image != nil {
		cmd.ImageURL = &req.Image.URL
		cmd.ImagePublicID = &req.Image.PublicID
	}

	product, err := h.catalog.UpdateProduct(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

// Users ----------------------------------------------------------------------

type userListResponse struct {
	Items         []userPayload `json:"items"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.users.ListUsers(ctx, pager)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	items := make([]userPayload, 0, len(page.Items))
	for _, user := range page.Items {
		items = append(items, buildUserPayload(user))
	}

	writeJSONResponse(w, http.StatusOK, userListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandlers) setUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	var req setRoleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.users.SetRole(ctx, services.SetRoleCommand{
		UserID: userID,
		Role:   domain.Role(req.Role),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

type setAccountStatusRequest struct {
	Status        string `json:"status"`
	AccountStatus string `json:"accountStatus"`
}

func (h *AdminHandlers) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	var req setAccountStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = strings.TrimSpace(req.AccountStatus)
	}

	user, err := h.users.SetAccountStatus(ctx, services.SetAccountStatusCommand{
		UserID: userID,
		Status: domain.AccountStatus(status),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

func (h *AdminHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	if err := h.users.DeleteUser(ctx, strings.TrimSpace(identity.UserID), userID); err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

// Dashboard ------------------------------------------------------------------

type dashboardStatsResponse struct {
	TotalUsers       int64            `json:"totalUsers"`
	TotalProducts    int64            `json:"totalProducts"`
	TotalOrders      int64            `json:"totalOrders"`
	Revenue          float64          `json:"revenue"`
	RecentOrders     []orderPayload   `json:"recentOrders"`
	StatusCounts     map[string]int64 `json:"statusCounts"`
	LowStockProducts []productPayload `json:"lowStockProducts"`
}

func (h *AdminHandlers) dashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	response := dashboardStatsResponse{
		TotalUsers:       stats.TotalUsers,
		TotalProducts:    stats.TotalProducts,
		TotalOrders:      stats.TotalOrders,
		Revenue:          stats.Revenue,
		RecentOrders:     make([]orderPayload, 0, len(stats.RecentOrders)),
		StatusCounts:     make(map[string]int64, len(stats.StatusCounts)),
		LowStockProducts: make([]productPayload, 0, len(stats.LowStockProducts)),
	}
	for _, order := range stats.RecentOrders {
		response.RecentOrders = append(response.RecentOrders, buildOrderPayload(order))
	}
	for status, count := range stats.StatusCounts {
		response.StatusCounts[string(status)] = count
	}
	for _, product := range stats.LowStockProducts {
		response.LowStockProducts = append(response.LowStockProducts, buildProductPayload(product))
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// Notifications --------------------------------------------------------------

func (h *AdminHandlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	feed, err := h.notifications.ListLatest(ctx)
	if err != nil {
		writeNotificationError(ctx, w, err)
		return
	}

	items := make([]notificationPayload, 0, len(feed))
	for _, notification := range feed {
		items = append(items, buildNotificationPayload(notification))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (h *AdminHandlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	notificationID := strings.TrimSpace(chi.URLParam(r, "notificationID"))
	if notificationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "notification id is required", http.StatusBadRequest))
		return
	}

	notification, err := h.notifications.MarkRead(ctx, notificationID)
	if err != nil {
		writeNotificationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildNotificationPayload(notification))
}

func (h *AdminHandlers) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	updated, err := h.notifications.MarkAllRead(ctx)
	if err != nil {
		writeNotificationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"updated": updated,
	})
}

func (h *AdminHandlers) clearReadNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	deleted, err := h.notifications.ClearRead(ctx)
	if err != nil {
		writeNotificationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"deleted": deleted,
	})
}

func writeNotificationError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrNotificationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNotificationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("notification_not_found", "notification not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("notification_error", "failed to process notification request", http.StatusInternalServerError))
	}
}
