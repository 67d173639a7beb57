// Package payment talks to the hosted checkout gateway.
package payment

import "context"

// CheckoutRequest describes a hosted checkout session to open.
type CheckoutRequest struct {
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	Description    string
	LineItemName   string
	UnitCents      int64
	Quantity       int
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
}

// Checkout is the gateway's handle for an open checkout session.
type Checkout struct {
	ID  string
	URL string
}

// Receipt is the gateway's acknowledgement of a capture or refund.
type Receipt struct {
	ID          string
	Status      string
	AmountCents int64
}

// Gateway is the contract for the external payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Capture(ctx context.Context, paymentID string, amountCents int64) (*Receipt, error)
	Refund(ctx context.Context, paymentID string, amountCents int64, reason string) (*Receipt, error)
}
