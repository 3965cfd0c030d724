// Package vnpay implements the VNPay signed-redirect gateway.
package vnpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	version       = "2.1.0"
	dateLayout    = "20060102150405"
	codeSuccess   = "00"
	defaultIPAddr = "127.0.0.1"
)

// Vietnam time; every VNPay timestamp is GMT+7.
var gmt7 = time.FixedZone("GMT+7", 7*60*60)

type Gateway struct {
	cfg    config.VNPayConfig
	client *http.Client
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(cfg config.VNPayConfig, client *http.Client, log logrus.FieldLogger) *Gateway {
	return &Gateway{cfg: cfg, client: client, log: log, now: time.Now}
}

func (g *Gateway) Name() string { return models.PaymentMethodVNPay }

func (g *Gateway) configured() bool {
	return g.cfg.TmnCode != "" && g.cfg.HashSecret != ""
}

// TxnRef encodes the creation time so detail lookups can recover the
// transaction date.
func TxnRef(t time.Time) string {
	t = t.In(gmt7)
	return t.Format(dateLayout) + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}

func (g *Gateway) CreatePayment(_ context.Context, req payment.Request) payment.Response {
	if !g.configured() {
		return payment.Response{Message: "VNPay configuration is incomplete"}
	}
	if !req.Amount.IsPositive() {
		return payment.Response{Message: "payment amount must be positive"}
	}

	now := g.now()
	txnRef := TxnRef(now)

	ip := req.ClientIP
	if ip == "" {
		ip = defaultIPAddr
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.cfg.ReturnURL
	}
	info := req.Description
	if info == "" {
		info = "Payment for order " + req.OrderNumber
	}

	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Amount":     req.Amount.Mul(decimal.NewFromInt(100)).Truncate(0).String(),
		"vnp_CreateDate": now.In(gmt7).Format(dateLayout),
		"vnp_CurrCode":   "VND",
		"vnp_IpAddr":     ip,
		"vnp_Locale":     "vn",
		"vnp_OrderInfo":  info,
		"vnp_OrderType":  "other",
		"vnp_ReturnUrl":  returnURL,
		"vnp_TxnRef":     txnRef,
	}

	paymentURL := BuildURL(g.cfg.PaymentURL, g.cfg.HashSecret, params)

	g.log.WithFields(logrus.Fields{
		"order_id": req.OrderID,
		"txn_ref":  txnRef,
	}).Info("vnpay payment url created")

	return payment.Response{
		Success:       true,
		Message:       "payment url created",
		PaymentURL:    paymentURL,
		TransactionID: txnRef,
	}
}

func (g *Gateway) VerifyPayment(_ context.Context, params url.Values) bool {
	return g.configured() && ValidSignature(g.cfg.HashSecret, params)
}

// VerifyAndGetTransaction succeeds only for a correctly signed return whose
// response code (and transaction status, when present) is "00".
func (g *Gateway) VerifyAndGetTransaction(ctx context.Context, params url.Values) payment.Verification {
	if !g.VerifyPayment(ctx, params) {
		g.log.WithField("txn_ref", params.Get("vnp_TxnRef")).Warn("vnpay signature mismatch")
		return payment.Verification{Message: "invalid signature"}
	}

	code := params.Get("vnp_ResponseCode")
	status := params.Get("vnp_TransactionStatus")
	if code != codeSuccess || (status != "" && status != codeSuccess) {
		return payment.Verification{
			TransactionID: params.Get("vnp_TxnRef"),
			Message:       "payment was not successful (code " + code + ")",
		}
	}

	return payment.Verification{
		Success:       true,
		TransactionID: params.Get("vnp_TxnRef"),
		Reference:     params.Get("vnp_TransactionNo"),
		Message:       "payment verified",
	}
}

type queryRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TxnRef          string `json:"vnp_TxnRef"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateDate      string `json:"vnp_CreateDate"`
	IPAddr          string `json:"vnp_IpAddr"`
	SecureHash      string `json:"vnp_SecureHash"`
}

type queryResponse struct {
	ResponseID        string `json:"vnp_ResponseId"`
	Command           string `json:"vnp_Command"`
	ResponseCode      string `json:"vnp_ResponseCode"`
	Message           string `json:"vnp_Message"`
	TmnCode           string `json:"vnp_TmnCode"`
	TxnRef            string `json:"vnp_TxnRef"`
	Amount            string `json:"vnp_Amount"`
	BankCode          string `json:"vnp_BankCode"`
	PayDate           string `json:"vnp_PayDate"`
	TransactionNo     string `json:"vnp_TransactionNo"`
	TransactionType   string `json:"vnp_TransactionType"`
	TransactionStatus string `json:"vnp_TransactionStatus"`
	OrderInfo         string `json:"vnp_OrderInfo"`
	PromotionCode     string `json:"vnp_PromotionCode"`
	PromotionAmount   string `json:"vnp_PromotionAmount"`
	SecureHash        string `json:"vnp_SecureHash"`
}

func (r *queryResponse) signature(secret string) string {
	return hmacSHA512(secret, strings.Join([]string{
		r.ResponseID, r.Command, r.ResponseCode, r.Message, r.TmnCode, r.TxnRef,
		r.Amount, r.BankCode, r.PayDate, r.TransactionNo, r.TransactionType,
		r.TransactionStatus, r.OrderInfo, r.PromotionCode, r.PromotionAmount,
	}, "|"))
}

// GetPaymentDetail runs a querydr lookup for a TxnRef produced by CreatePayment.
func (g *Gateway) GetPaymentDetail(ctx context.Context, transactionID string) (*payment.Detail, error) {
	if !g.configured() {
		return nil, payment.ErrNotConfigured
	}
	if len(transactionID) < len(dateLayout) {
		return nil, fmt.Errorf("vnpay: malformed transaction reference %q", transactionID)
	}

	now := g.now().In(gmt7)
	req := queryRequest{
		RequestID:       strings.ReplaceAll(uuid.NewString(), "-", "")[:32],
		Version:         version,
		Command:         "querydr",
		TmnCode:         g.cfg.TmnCode,
		TxnRef:          transactionID,
		OrderInfo:       "Query transaction " + transactionID,
		TransactionDate: transactionID[:len(dateLayout)],
		CreateDate:      now.Format(dateLayout),
		IPAddr:          defaultIPAddr,
	}
	req.SecureHash = hmacSHA512(g.cfg.HashSecret, strings.Join([]string{
		req.RequestID, req.Version, req.Command, req.TmnCode, req.TxnRef,
		req.TransactionDate, req.CreateDate, req.IPAddr, req.OrderInfo,
	}, "|"))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("vnpay: marshal querydr: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vnpay: build querydr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vnpay: querydr: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vnpay: read querydr response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vnpay: querydr returned %d", resp.StatusCode)
	}

	var qr queryResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, fmt.Errorf("vnpay: decode querydr response: %w", err)
	}
	if qr.ResponseCode != codeSuccess {
		return nil, fmt.Errorf("vnpay: querydr failed with code %s: %s", qr.ResponseCode, qr.Message)
	}
	if qr.SecureHash != "" && !strings.EqualFold(qr.SecureHash, qr.signature(g.cfg.HashSecret)) {
		return nil, fmt.Errorf("vnpay: querydr response signature mismatch")
	}

	detail := &payment.Detail{
		TransactionID: transactionID,
		Status:        transactionStatus(qr.TransactionStatus),
		Currency:      "VND",
	}
	if minor, err := strconv.ParseInt(qr.Amount, 10, 64); err == nil {
		detail.Amount = decimal.New(minor, -2)
	}
	if paid, err := time.ParseInLocation(dateLayout, qr.PayDate, gmt7); err == nil {
		detail.PaymentDate = paid
	}

	return detail, nil
}

func transactionStatus(code string) string {
	switch code {
	case "00":
		return "COMPLETED"
	case "01":
		return "PENDING"
	case "":
		return "UNKNOWN"
	default:
		return "FAILED"
	}
}
