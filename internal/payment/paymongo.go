package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	defaultBaseURL        = "https://api.paymongo.com/v1"
	statementDescriptor   = "FLEXIDESK"
	RefundReasonRequested = "requested_by_customer"

	headerIdempotencyKey = "Idempotency-Key"
	maxRetries           = 2
)

// PayMongoClient implements Gateway against the PayMongo REST API.
// Requests carrying an idempotency key are retried on transport errors, 429 and 5xx.
type PayMongoClient struct {
	rest *resty.Client
}

// NewPayMongoClient creates a client authenticating with the secret API key.
// timeout bounds each attempt.
func NewPayMongoClient(secretKey, baseURL string, timeout time.Duration) *PayMongoClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rest := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetBasicAuth(secretKey, "").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(maxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryable)
	return &PayMongoClient{rest: rest}
}

// retryable only replays requests the gateway can deduplicate.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Header.Get(headerIdempotencyKey) == "" {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// envelope is the JSON:API wrapper PayMongo uses for requests and responses.
type envelope[T any] struct {
	Data struct {
		ID         string `json:"id,omitempty"`
		Attributes T      `json:"attributes"`
	} `json:"data"`
}

type lineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type checkoutAttributes struct {
	Amount              int64             `json:"amount,omitempty"`
	Currency            string            `json:"currency,omitempty"`
	Description         string            `json:"description,omitempty"`
	PaymentMethodTypes  []string          `json:"payment_method_types,omitempty"`
	SuccessURL          string            `json:"success_url,omitempty"`
	CancelURL           string            `json:"cancel_url,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	LineItems           []lineItem        `json:"line_items,omitempty"`
	CheckoutURL         string            `json:"checkout_url,omitempty"`
}

type amountAttributes struct {
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Status    string `json:"status,omitempty"`
}

type apiError struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateCheckout opens a hosted checkout session.
func (c *PayMongoClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	var body envelope[checkoutAttributes]
	body.Data.Attributes = checkoutAttributes{
		Amount:              req.AmountCents,
		Currency:            req.Currency,
		Description:         req.Description,
		PaymentMethodTypes:  []string{"card", "gcash"},
		SuccessURL:          req.SuccessURL,
		CancelURL:           req.CancelURL,
		StatementDescriptor: statementDescriptor,
		Metadata:            req.Metadata,
		LineItems: []lineItem{{
			Name:     req.LineItemName,
			Amount:   req.UnitCents,
			Currency: req.Currency,
			Quantity: req.Quantity,
		}},
	}

	var out envelope[checkoutAttributes]
	if err := c.post(ctx, "/checkout_sessions", req.IdempotencyKey, body, &out); err != nil {
		return nil, err
	}
	return &Checkout{ID: out.Data.ID, URL: out.Data.Attributes.CheckoutURL}, nil
}

// Capture captures an authorized payment.
func (c *PayMongoClient) Capture(ctx context.Context, paymentID string, amountCents int64) (*Receipt, error) {
	var body envelope[amountAttributes]
	body.Data.Attributes = amountAttributes{Amount: amountCents}

	var out envelope[amountAttributes]
	if err := c.post(ctx, "/payments/"+paymentID+"/capture", "capture-"+paymentID, body, &out); err != nil {
		return nil, err
	}
	return &Receipt{ID: out.Data.ID, Status: out.Data.Attributes.Status, AmountCents: out.Data.Attributes.Amount}, nil
}

// Refund refunds part or all of a payment. Each call is a distinct refund; retries
// of that call share one idempotency key.
func (c *PayMongoClient) Refund(ctx context.Context, paymentID string, amountCents int64, reason string) (*Receipt, error) {
	var body envelope[amountAttributes]
	body.Data.Attributes = amountAttributes{Amount: amountCents, PaymentID: paymentID, Reason: reason}

	var out envelope[amountAttributes]
	if err := c.post(ctx, "/refunds", uuid.NewString(), body, &out); err != nil {
		return nil, err
	}
	return &Receipt{ID: out.Data.ID, Status: out.Data.Attributes.Status, AmountCents: out.Data.Attributes.Amount}, nil
}

func (c *PayMongoClient) post(ctx context.Context, path, idempotencyKey string, body, dest any) error {
	var apiErr apiError
	req := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(dest).
		SetError(&apiErr).
		ForceContentType("application/json")
	if idempotencyKey != "" {
		req.SetHeader(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("paymongo %s: %w", path, err)
	}
	if resp.IsError() {
		if len(apiErr.Errors) > 0 {
			return fmt.Errorf("paymongo %s: %s: %s", path, resp.Status(), apiErr.Errors[0].Detail)
		}
		return fmt.Errorf("paymongo %s: %s: %s", path, resp.Status(), strings.TrimSpace(resp.String()))
	}
	return nil
}
