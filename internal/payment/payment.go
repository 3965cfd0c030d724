// Package payment defines the contract shared by the external payment
// gateways and a registry that selects one by payment method.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrNotConfigured     = errors.New("payment gateway is not configured")
)

type Request struct {
	OrderID     int64
	Amount      decimal.Decimal
	OrderNumber string
	Description string
	ReturnURL   string
	CancelURL   string
	ClientIP    string
}

type Response struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	PaymentURL    string `json:"payment_url,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Verification is the outcome of checking a gateway return. TransactionID is
// what gets stored on the payment row; Reference is the gateway-side id kept
// for notes.
type Verification struct {
	Success       bool
	TransactionID string
	Reference     string
	Message       string
}

type Detail struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// Gateway is implemented by every external payment provider. CreatePayment
// and the verify calls report failures through their result; only
// GetPaymentDetail returns errors.
type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req Request) Response
	VerifyPayment(ctx context.Context, params url.Values) bool
	VerifyAndGetTransaction(ctx context.Context, params url.Values) Verification
	GetPaymentDetail(ctx context.Context, transactionID string) (*Detail, error)
}

type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(method string) (Gateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return g, nil
}

// WithOrderID appends orderId to a return or cancel URL.
func WithOrderID(rawURL string, orderID int64) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("orderId", strconv.FormatInt(orderID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}
