// Package paypal implements the PayPal Orders v2 gateway with a
// client-credentials OAuth2 token.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	currencyUSD     = "USD"
	statusCompleted = "COMPLETED"
)

type Gateway struct {
	cfg    config.PayPalConfig
	client *http.Client
	log    logrus.FieldLogger
}

// New builds the gateway. base carries timeouts and is used for both the
// token endpoint and API calls.
func New(cfg config.PayPalConfig, base *http.Client, log logrus.FieldLogger) *Gateway {
	if base == nil {
		base = http.DefaultClient
	}
	if cfg.APIURL == "" {
		cfg.APIURL = config.PayPalBaseURL(cfg.Mode)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.APIURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = base.Timeout

	return &Gateway{cfg: cfg, client: client, log: log}
}

func (g *Gateway) Name() string { return models.PaymentMethodPayPal }

func (g *Gateway) configured() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

// ToUSD converts a VND amount at the configured rate, rounded to cents.
func ToUSD(amount, rate decimal.Decimal) string {
	return amount.DivRound(rate, 2).StringFixed(2)
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string  `json:"reference_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Amount      *amount `json:"amount,omitempty"`
	Payments    *struct {
		Captures []capture `json:"captures"`
	} `json:"payments,omitempty"`
}

type applicationContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	BrandName  string `json:"brand_name,omitempty"`
	Locale     string `json:"locale"`
	UserAction string `json:"user_action"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	CreateTime    string         `json:"create_time"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []link         `json:"links"`
}

func (g *Gateway) CreatePayment(ctx context.Context, req payment.Request) payment.Response {
	if !g.configured() {
		return payment.Response{Message: "PayPal configuration is incomplete"}
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.cfg.ReturnURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = g.cfg.CancelURL
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: strconv.FormatInt(req.OrderID, 10),
			Description: req.Description,
			Amount: &amount{
				CurrencyCode: currencyUSD,
				Value:        ToUSD(req.Amount, g.cfg.ExchangeRate),
			},
		}},
		ApplicationContext: applicationContext{
			ReturnURL:  payment.WithOrderID(returnURL, req.OrderID),
			CancelURL:  payment.WithOrderID(cancelURL, req.OrderID),
			BrandName:  g.cfg.BrandName,
			Locale:     "en-US",
			UserAction: "PAY_NOW",
		},
	}

	var order orderResponse
	if err := g.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		g.log.WithError(err).WithField("order_id", req.OrderID).Error("paypal create order failed")
		return payment.Response{Message: "could not create PayPal order"}
	}

	for _, l := range order.Links {
		if l.Rel == "approve" {
			g.log.WithFields(logrus.Fields{
				"order_id":        req.OrderID,
				"paypal_order_id": order.ID,
			}).Info("paypal order created")

			return payment.Response{
				Success:       true,
				Message:       "payment created",
				PaymentURL:    l.Href,
				TransactionID: order.ID,
			}
		}
	}

	g.log.WithField("paypal_order_id", order.ID).Warn("paypal response has no approve link")
	return payment.Response{Message: "could not create PayPal order"}
}

func (g *Gateway) VerifyPayment(ctx context.Context, params url.Values) bool {
	return g.VerifyAndGetTransaction(ctx, params).Success
}

// VerifyAndGetTransaction captures the approved order named by token. The
// stored transaction id is the capture id; the order id is kept as Reference.
func (g *Gateway) VerifyAndGetTransaction(ctx context.Context, params url.Values) payment.Verification {
	token := params.Get("token")
	if token == "" || params.Get("PayerID") == "" {
		return payment.Verification{Message: "missing token or PayerID"}
	}
	if !g.configured() {
		return payment.Verification{Message: "PayPal configuration is incomplete"}
	}

	var captured orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(token) + "/capture"
	if err := g.do(ctx, http.MethodPost, path, nil, &captured); err != nil {
		g.log.WithError(err).WithField("paypal_order_id", token).Error("paypal capture failed")
		return payment.Verification{Message: "PayPal capture failed"}
	}

	capture := firstCapture(captured)
	transactionID := token
	status := captured.Status
	if capture != nil {
		transactionID = capture.ID
		status = capture.Status
	} else {
		g.log.WithField("paypal_order_id", token).Warn("no capture in response, using order id")
	}

	if status != statusCompleted {
		g.log.WithFields(logrus.Fields{
			"paypal_order_id": token,
			"status":          status,
		}).Warn("paypal capture not completed")
		return payment.Verification{Message: "PayPal capture status " + status}
	}

	return payment.Verification{
		Success:       true,
		TransactionID: transactionID,
		Reference:     token,
		Message:       "payment captured",
	}
}

type capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func firstCapture(o orderResponse) *capture {
	if len(o.PurchaseUnits) == 0 || o.PurchaseUnits[0].Payments == nil {
		return nil
	}
	captures := o.PurchaseUnits[0].Payments.Captures
	if len(captures) == 0 || captures[0].ID == "" {
		return nil
	}
	return &captures[0]
}

func (g *Gateway) GetPaymentDetail(ctx context.Context, transactionID string) (*payment.Detail, error) {
	if !g.configured() {
		return nil, payment.ErrNotConfigured
	}

	var order orderResponse
	if err := g.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(transactionID), nil, &order); err != nil {
		return nil, err
	}

	detail := &payment.Detail{
		TransactionID: transactionID,
		Status:        order.Status,
		Currency:      currencyUSD,
		PaymentDate:   time.Now().UTC(),
	}
	if detail.Status == "" {
		detail.Status = "UNKNOWN"
	}
	if len(order.PurchaseUnits) > 0 && order.PurchaseUnits[0].Amount != nil {
		if v, err := decimal.NewFromString(order.PurchaseUnits[0].Amount.Value); err == nil {
			detail.Amount = v
		}
		if c := order.PurchaseUnits[0].Amount.CurrencyCode; c != "" {
			detail.Currency = c
		}
	}
	if t, err := time.Parse(time.RFC3339, order.CreateTime); err == nil {
		detail.PaymentDate = t
	}

	return detail, nil
}

var ErrAPI = errors.New("paypal api error")

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("paypal: api returned %d: %s", e.Status, e.Body)
}

func (e *apiError) Unwrap() error { return ErrAPI }

func (g *Gateway) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("paypal: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.APIURL+path, body)
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paypal: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("paypal: decode response: %w", err)
		}
	}
	return nil
}
