package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/primemart/api/internal/platform/httpx"
	"github.com/primemart/api/internal/services"
)

const (
	otpRequestLimit  = 5
	otpRequestWindow = time.Minute
)

// AuthHandlers exposes the registration and login endpoints.
type AuthHandlers struct {
	auth       services.AuthService
	otpLimiter rateLimiter
}

// AuthHandlersOption customises AuthHandlers construction.
type AuthHandlersOption func(*AuthHandlers)

// WithOTPRateLimiter overrides the limiter applied to OTP requests.
func WithOTPRateLimiter(limiter rateLimiter) AuthHandlersOption {
	return func(h *AuthHandlers) {
		h.otpLimiter = limiter
	}
}

// NewAuthHandlers constructs handlers backed by the auth service.
func NewAuthHandlers(auth services.AuthService, opts ...AuthHandlersOption) *AuthHandlers {
	h := &AuthHandlers{
		auth:       auth,
		otpLimiter: newSimpleRateLimiter(otpRequestLimit, otpRequestWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register/request-otp", h.requestOTP)
	r.Post("/register/verify-otp", h.verifyOTP)
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	OTP   string `json:"otp"`
}

func (r otpRequest) code() string {
	if code := strings.TrimSpace(r.Code); code != "" {
		return code
	}
	return strings.TrimSpace(r.OTP)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Mobile   string `json:"mobile"`
	Code     string `json:"code"`
	OTP      string `json:"otp"`

	ShippingAddress *shippingAddressPayload `json:"shippingAddress"`
	Address         *shippingAddressPayload `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (h *AuthHandlers) requestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req otpRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is required", http.StatusBadRequest))
		return
	}

	if h.otpLimiter != nil && !h.otpLimiter.Allow(email) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many verification requests, try again shortly", http.StatusTooManyRequests))
		return
	}

	if err := h.auth.RequestRegistrationOTP(ctx, email); err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message": "verification code sent",
	})
}

func (h *AuthHandlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req otpRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.auth.VerifyRegistrationOTP(ctx, req.Email, req.code()); err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"verified": true,
	})
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cmd := services.RegisterCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Code:     req.Code,
	}
	if cmd.Code == "" {
		cmd.Code = strings.TrimSpace(req.OTP)
	}

	// Either field name is accepted; shippingAddress wins when both are set.
	address := req.ShippingAddress
	if address == nil {
		address = req.Address
	}
	if address != nil {
		addr := address.toDomain()
		cmd.ShippingAddress = &addr
	}

	session, err := h.auth.Register(ctx, cmd)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, sessionResponse{
		Token: session.Token,
		User:  buildUserPayload(session.User),
	})
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auth == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	session, err := h.auth.Login(ctx, services.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, sessionResponse{
		Token: session.Token,
		User:  buildUserPayload(session.User),
	})
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrAuthInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "an account already exists for this email", http.StatusConflict))
	case errors.Is(err, services.ErrAuthOTPNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("otp_not_found", "no verification code found for this email", http.StatusNotFound))
	case errors.Is(err, services.ErrAuthOTPInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("otp_invalid", "verification code is invalid or expired", http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid email or password", http.StatusUnauthorized))
	case errors.Is(err, services.ErrAuthAccountBlocked):
		httpx.WriteError(ctx, w, httpx.NewError("account_blocked", "account is not active", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("auth_error", "failed to process auth request", http.StatusInternalServerError))
	}
}
