package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/primemart/api/internal/platform/auth"
	"github.com/primemart/api/internal/platform/httpx"
	"github.com/primemart/api/internal/services"
)

// PaymentHandlers drives the hosted checkout flow.
type PaymentHandlers struct {
	authn    *auth.Authenticator
	payments services.PaymentService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(authn *auth.Authenticator, payments services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{
		authn:    authn,
		payments: payments,
	}
}

// Routes registers the /payments endpoints. Verify accepts both GET (redirect
// back from the hosted page) and POST (client confirmation).
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/checkout-session", h.createCheckoutSession)
	r.Get("/verify", h.verifyPayment)
	r.Post("/verify", h.verifyPayment)
}

type checkoutSessionRequest struct {
	OrderID string `json:"orderId"`
}

type verifyPaymentRequest struct {
	SessionID      string `json:"sessionId"`
	SessionIDSnake string `json:"session_id"`
}

func (h *PaymentHandlers) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req checkoutSessionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	session, err := h.payments.CreateCheckoutSession(ctx, services.CreateCheckoutSessionCommand{
		Actor:   actorFromIdentity(identity),
		OrderID: strings.TrimSpace(req.OrderID),
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"sessionId": session.SessionID,
		"url":       session.URL,
	})
}

func (h *PaymentHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	sessionID := extractSessionID(r)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return
	}

	order, err := h.payments.VerifyPayment(ctx, actorFromIdentity(identity), sessionID)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

// extractSessionID resolves the checkout session id from the query string
// (either spelling) or, failing that, from a JSON body.
func extractSessionID(r *http.Request) string {
	if sessionID := queryParam(r, "session_id", "sessionId"); sessionID != "" {
		return sessionID
	}

	if r.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, defaultBodyLimit))
	if err != nil || len(data) == 0 {
		return ""
	}

	var req verifyPaymentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ""
	}
	if sessionID := strings.TrimSpace(req.SessionID); sessionID != "" {
		return sessionID
	}
	return strings.TrimSpace(req.SessionIDSnake)
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("payment_forbidden", "you do not have access to this order", http.StatusForbidden))
	case errors.Is(err, services.ErrPaymentAlreadyPaid):
		httpx.WriteError(ctx, w, httpx.NewError("payment_already_paid", "order is already paid", http.StatusConflict))
	case errors.Is(err, services.ErrPaymentNotCompleted):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_completed", "payment has not been completed", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "failed to process payment request", http.StatusInternalServerError))
	}
}
