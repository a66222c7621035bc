package payments

import (
	"context"
	"time"
)

// PaymentStatus mirrors the checkout session settlement states reported by the PSP.
type PaymentStatus string

const (
	// StatusPaid indicates the session was settled in full.
	StatusPaid PaymentStatus = "paid"
	// StatusUnpaid indicates the customer has not completed payment.
	StatusUnpaid PaymentStatus = "unpaid"
	// StatusNoPaymentRequired indicates the session needed no settlement.
	StatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// CheckoutLineItem describes a single line item to include in a checkout session.
type CheckoutLineItem struct {
	Name        string
	Description string
	SKU         string
	Quantity    int64
	Amount      int64
	Currency    string
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []CheckoutLineItem
}

// CheckoutSession represents the PSP session returned to the client.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
	Raw         map[string]any
}

// SessionDetails normalises the fields reconciliation reads back from a session.
type SessionDetails struct {
	ID            string
	PaymentStatus PaymentStatus
	IntentID      string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Raw           map[string]any
}

// Gateway defines the PSP contract: create a hosted checkout session and
// retrieve it later for payment reconciliation.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (SessionDetails, error)
}
