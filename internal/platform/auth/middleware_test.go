package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubTokenVerifier struct {
	claims   *SessionClaims
	err      error
	received string
}

func (s *stubTokenVerifier) Verify(tokenStr string) (*SessionClaims, error) {
	s.received = tokenStr
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestRequireAuth_AllowsValidToken(t *testing.T) {
	verifier := &stubTokenVerifier{
		claims: &SessionClaims{
			UserID: "usr_123",
			Email:  "user@example.com",
			Role:   RoleAdmin,
		},
	}

	authn := NewAuthenticator(verifier)

	handlerCalled := false
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UserID != "usr_123" {
			t.Fatalf("unexpected user id: %s", identity.UserID)
		}
		if !identity.HasRole(RoleAdmin) {
			t.Fatalf("expected admin role, got %v", identity.Roles)
		}
		if identity.Email != "user@example.com" {
			t.Fatalf("expected email user@example.com, got %s", identity.Email)
		}

		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-value")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if !handlerCalled {
		t.Fatalf("expected handler to be called")
	}
	if verifier.received != "token-value" {
		t.Fatalf("expected verifier to receive token-value, got %s", verifier.received)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	verifier := &stubTokenVerifier{err: ErrTokenExpired}
	authn := NewAuthenticator(verifier)

	handler := authn.RequireAuth(RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not execute on expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "token_expired" {
		t.Fatalf("expected token_expired error, got %v", body["error"])
	}
}

func TestRequireAuth_MissingRoleUsesFallback(t *testing.T) {
	verifier := &stubTokenVerifier{
		claims: &SessionClaims{UserID: "usr_456"},
	}

	authn := NewAuthenticator(verifier)

	handler := authn.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if len(identity.Roles) != 1 || identity.Roles[0] != RoleUser {
			t.Fatalf("expected fallback role %q, got %v", RoleUser, identity.Roles)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer missing-role-token")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestRequireAuth_RejectsInsufficientRole(t *testing.T) {
	verifier := &stubTokenVerifier{
		claims: &SessionClaims{UserID: "usr_789", Role: RoleUser},
	}

	authn := NewAuthenticator(verifier)

	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not execute for non-admin")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	manager, err := NewTokenManager("test-secret", WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := manager.Issue("usr_abc", "Shopper@Example.com", "Admin")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := manager.Verify(signed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "usr_abc" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}
	if claims.Email != "shopper@example.com" {
		t.Fatalf("expected lowercased email, got %q", claims.Email)
	}
	if claims.Role != "admin" {
		t.Fatalf("expected normalised role, got %q", claims.Role)
	}
}

func TestTokenManager_VerifyExpired(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	current := issuedAt

	manager, err := NewTokenManager("test-secret", WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := manager.Issue("usr_abc", "", "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	current = issuedAt.Add(25 * time.Hour)
	if _, err := manager.Verify(signed); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenManager_VerifyHonoursInjectedClock(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	current := issuedAt

	manager, err := NewTokenManager("test-secret",
		WithSessionTTL(time.Hour),
		WithClock(func() time.Time { return current }))
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := manager.Issue("usr_abc", "", "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	current = issuedAt.Add(59 * time.Minute)
	if _, err := manager.Verify(signed); err != nil {
		t.Fatalf("expected token valid before expiry, got %v", err)
	}

	current = issuedAt.Add(time.Hour)
	if _, err := manager.Verify(signed); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired at expiry instant, got %v", err)
	}
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenManager("secret-a")
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	verifier, err := NewTokenManager("secret-b")
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	signed, err := issuer.Issue("usr_abc", "", "user")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Verify(signed); err == nil {
		t.Fatalf("expected verification failure for foreign signature")
	}
}
