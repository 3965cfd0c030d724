// Package reconcile settles orders against payment gateway returns and
// applies cancellations and admin status changes.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/events"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrInvalidTransition  = errors.New("order status cannot be changed")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrInvalidRequest     = errors.New("invalid payment data")
	ErrPaymentInProgress  = errors.New("payment is already being processed")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrPaymentNotCreated  = errors.New("could not start payment")
)

// PayPal order states that mean the buyer's money has been taken or
// authorised.
var paypalSettled = map[string]bool{
	"COMPLETED": true,
	"APPROVED":  true,
}

type Result struct {
	OrderID          int64  `json:"order_id"`
	TransactionID    string `json:"transaction_id"`
	AlreadyProcessed bool   `json:"already_processed"`
}

type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

// URLs override the gateway's configured return and cancel targets.
type URLs struct {
	ReturnURL string
	CancelURL string
}

type Reconciler struct {
	db        *sql.DB
	gateways  *payment.Registry
	cart      CartClearer
	publisher events.Publisher
	dedup     Deduper
	log       logrus.FieldLogger
	now       func() time.Time
}

type Option func(*Reconciler)

func WithPublisher(p events.Publisher) Option {
	return func(r *Reconciler) { r.publisher = p }
}

func WithDeduper(d Deduper) Option {
	return func(r *Reconciler) { r.dedup = d }
}

func New(db *sql.DB, gateways *payment.Registry, c CartClearer, log logrus.FieldLogger, opts ...Option) *Reconciler {
	r := &Reconciler{
		db:        db,
		gateways:  gateways,
		cart:      c,
		publisher: events.NopPublisher{},
		dedup:     noDedup{},
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleVNPayReturn settles the user's most recent Pending order from a
// signed VNPay return. A TxnRef that was already recorded reports the
// earlier payment instead of writing a new one.
func (r *Reconciler) HandleVNPayReturn(ctx context.Context, userID int64, params url.Values) (*Result, error) {
	if userID == 0 {
		return nil, cart.ErrUnauthenticated
	}

	gw, err := r.gateways.Get(models.PaymentMethodVNPay)
	if err != nil {
		return nil, err
	}

	v := gw.VerifyAndGetTransaction(ctx, params)
	if !v.Success {
		r.log.WithFields(logrus.Fields{
			"user_id":  userID,
			"txn_ref":  params.Get("vnp_TxnRef"),
			"response": params.Get("vnp_ResponseCode"),
		}).Warn("vnpay return rejected: " + v.Message)
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, v.Message)
	}

	existing, err := store.GetPaymentByTransaction(ctx, r.db, models.PaymentMethodVNPay, v.TransactionID)
	switch {
	case err == nil:
		return &Result{OrderID: existing.OrderID, TransactionID: existing.TransactionID, AlreadyProcessed: true}, nil
	case !errors.Is(err, database.ErrPaymentNotFound):
		return nil, err
	}

	order, err := store.LatestPendingOrder(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}

	return r.settle(ctx, order, models.PaymentMethodVNPay, v)
}

// HandlePayPalReturn captures the approved PayPal order and settles the
// storefront order it was created for.
func (r *Reconciler) HandlePayPalReturn(ctx context.Context, userID, orderID int64, params url.Values) (*Result, error) {
	token := params.Get("token")
	if token == "" || params.Get("PayerID") == "" {
		return nil, fmt.Errorf("%w: missing token or PayerID", ErrVerificationFailed)
	}

	order, err := r.findOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment != nil {
		return alreadyProcessed(order.Payment), nil
	}

	gw, err := r.gateways.Get(models.PaymentMethodPayPal)
	if err != nil {
		return nil, err
	}

	return r.claimed(ctx, order, token, func() (payment.Verification, error) {
		v := gw.VerifyAndGetTransaction(ctx, params)
		if !v.Success {
			return v, fmt.Errorf("%w: %s", ErrVerificationFailed, v.Message)
		}
		return v, nil
	})
}

// ApprovePayPal settles an order whose PayPal order was captured in the
// browser. The PayPal order is looked up to confirm it settled.
func (r *Reconciler) ApprovePayPal(ctx context.Context, userID, orderID int64, paypalOrderID, captureID string) (*Result, error) {
	if orderID <= 0 || paypalOrderID == "" {
		return nil, ErrInvalidRequest
	}

	order, err := r.findOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment != nil {
		return alreadyProcessed(order.Payment), nil
	}

	gw, err := r.gateways.Get(models.PaymentMethodPayPal)
	if err != nil {
		return nil, err
	}

	return r.claimed(ctx, order, paypalOrderID, func() (payment.Verification, error) {
		detail, err := gw.GetPaymentDetail(ctx, paypalOrderID)
		if err != nil {
			return payment.Verification{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		if !paypalSettled[detail.Status] {
			return payment.Verification{}, fmt.Errorf("%w: paypal order is %s", ErrVerificationFailed, detail.Status)
		}

		txnID := captureID
		if txnID == "" {
			txnID = paypalOrderID
		}
		return payment.Verification{Success: true, TransactionID: txnID, Reference: paypalOrderID}, nil
	})
}

// claimed runs verify under a dedup claim on reference and settles the
// order on success. The claim is released whenever no payment was written.
func (r *Reconciler) claimed(ctx context.Context, order *models.Order, reference string, verify func() (payment.Verification, error)) (*Result, error) {
	log := r.log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"reference": reference,
	})

	if res, err := r.priorPayment(ctx, order.ID, reference); res != nil || err != nil {
		return res, err
	}

	ok, err := r.dedup.Claim(ctx, models.PaymentMethodPayPal, reference)
	if err != nil {
		log.WithError(err).Warn("dedup claim failed, continuing without it")
		ok = true
	}
	if !ok {
		return r.inFlight(ctx, order.ID)
	}

	res, err := func() (*Result, error) {
		v, err := verify()
		if err != nil {
			return nil, err
		}
		if v.TransactionID != reference {
			if res, err := r.priorPayment(ctx, order.ID, v.TransactionID); res != nil || err != nil {
				return res, err
			}
		}
		return r.settle(ctx, order, models.PaymentMethodPayPal, v)
	}()
	if err != nil {
		log.WithError(err).Warn("paypal payment not settled")
		if relErr := r.dedup.Release(ctx, models.PaymentMethodPayPal, reference); relErr != nil {
			log.WithError(relErr).Warn("failed to release dedup claim")
		}
		return nil, err
	}

	return res, nil
}

// priorPayment looks for a PayPal payment already recorded under id. One
// recorded for another order means the PayPal payment is being replayed.
func (r *Reconciler) priorPayment(ctx context.Context, orderID int64, id string) (*Result, error) {
	p, err := store.FindGatewayPayment(ctx, r.db, models.PaymentMethodPayPal, id)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if p.OrderID != orderID {
		r.log.WithFields(logrus.Fields{
			"order_id":      orderID,
			"paid_order_id": p.OrderID,
			"paypal_id":     id,
		}).Warn("paypal payment already recorded for another order")
		return nil, database.ErrTransactionUsed
	}
	return alreadyProcessed(p), nil
}

func (r *Reconciler) inFlight(ctx context.Context, orderID int64) (*Result, error) {
	p, err := store.GetPaymentByOrder(ctx, r.db, orderID)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}
	return alreadyProcessed(p), nil
}

// findOrder loads the order by id when one is carried, otherwise falls back
// to the user's most recent Pending order.
func (r *Reconciler) findOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	if orderID > 0 {
		order, err := store.GetOrder(ctx, r.db, orderID)
		if err != nil {
			return nil, err
		}
		if userID != 0 && order.UserID != userID {
			return nil, database.ErrOrderNotFound
		}
		return order, nil
	}

	if userID == 0 {
		return nil, database.ErrOrderNotFound
	}
	order, err := store.LatestPendingOrder(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	// LatestPendingOrder does not load the payment.
	return store.GetOrder(ctx, r.db, order.ID)
}

// settle writes the payment and marks the order Confirmed/Paid in one
// transaction holding the order row lock. A payment that is already present
// is reported rather than duplicated.
func (r *Reconciler) settle(ctx context.Context, order *models.Order, method string, v payment.Verification) (*Result, error) {
	var (
		recorded *models.Payment
		already  bool
		locked   *models.Order
	)

	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		locked, err = store.LockOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		existing, err := store.GetPaymentByOrder(ctx, tx, locked.ID)
		if err == nil {
			recorded, already = existing, true
			return nil
		}
		if !errors.Is(err, database.ErrPaymentNotFound) {
			return err
		}

		now := r.now().UTC()
		recorded, err = store.InsertPayment(ctx, tx, store.NewPayment{
			OrderID:         locked.ID,
			Method:          method,
			Amount:          locked.FinalAmount,
			Status:          models.PaymentRecordPaid,
			TransactionID:   v.TransactionID,
			Reference:       v.Reference,
			TransactionDate: now,
			PaymentDate:     now,
			Notes:           paymentNotes(method, v.Reference),
		})
		if errors.Is(err, database.ErrPaymentExists) {
			already = true
			recorded, err = store.GetPaymentByOrder(ctx, tx, locked.ID)
			return err
		}
		if err != nil {
			return err
		}

		return store.MarkOrderPaid(ctx, tx, locked.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment for order %d: %w", order.ID, err)
	}

	if already {
		return alreadyProcessed(recorded), nil
	}

	log := r.log.WithFields(logrus.Fields{
		"order_id":       locked.ID,
		"user_id":        locked.UserID,
		"method":         method,
		"transaction_id": recorded.TransactionID,
	})

	if err := r.cart.Clear(ctx, locked.UserID); err != nil {
		log.WithError(err).Warn("failed to clear cart after payment")
	}

	r.publish(ctx, events.TopicOrderPaid, events.EventOrderPaid, locked.ID, events.OrderPaidPayload{
		OrderID:       locked.ID,
		OrderNumber:   locked.OrderNumber,
		Method:        method,
		TransactionID: recorded.TransactionID,
		Amount:        recorded.Amount,
	})

	log.Info("payment recorded")

	return &Result{OrderID: locked.ID, TransactionID: recorded.TransactionID}, nil
}

func paymentNotes(method, reference string) string {
	if reference == "" {
		return ""
	}
	switch method {
	case models.PaymentMethodPayPal:
		return "PayPal Order ID: " + reference
	case models.PaymentMethodVNPay:
		return "VNPay Transaction No: " + reference
	}
	return reference
}

func alreadyProcessed(p *models.Payment) *Result {
	return &Result{OrderID: p.OrderID, TransactionID: p.TransactionID, AlreadyProcessed: true}
}

// Cancel moves the user's own order to Cancelled. Only Pending and
// Confirmed orders can be cancelled. Stock is not returned.
func (r *Reconciler) Cancel(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return r.transition(ctx, orderID, models.OrderStatusCancelled, func(o *models.Order) error {
		if userID == 0 || o.UserID != userID {
			return database.ErrOrderNotFound
		}
		if !models.CanCancel(o.Status) {
			return ErrInvalidTransition
		}
		return nil
	})
}

// UpdateStatus applies an admin status change. Moves go forward along
// Pending, Confirmed, Processing, Shipped, Delivered, or to Cancelled from
// Pending and Confirmed.
func (r *Reconciler) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	if _, ok := models.ParseOrderStatus(string(status)); !ok {
		return nil, ErrInvalidStatus
	}

	return r.transition(ctx, orderID, status, func(o *models.Order) error {
		if !models.CanTransition(o.Status, status) {
			return ErrInvalidTransition
		}
		return nil
	})
}

func (r *Reconciler) transition(ctx context.Context, orderID int64, to models.OrderStatus, check func(*models.Order) error) (*models.Order, error) {
	var previous *models.Order

	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		o, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := check(o); err != nil {
			return err
		}
		previous = o
		return store.SetOrderStatus(ctx, tx, o.ID, to)
	})
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     previous.Status,
		"to":       to,
	}).Info("order status changed")

	if to == models.OrderStatusCancelled {
		r.publish(ctx, events.TopicOrderCancelled, events.EventOrderCancelled, orderID, events.OrderCancelledPayload{
			OrderID:        orderID,
			OrderNumber:    previous.OrderNumber,
			PreviousStatus: string(previous.Status),
		})
	}

	return store.GetOrder(ctx, r.db, orderID)
}

// ProcessPayment starts a gateway payment for a Pending order and returns
// the redirect the buyer should follow. An empty method uses the one chosen
// at checkout.
func (r *Reconciler) ProcessPayment(ctx context.Context, userID, orderID int64, method string, urls URLs, clientIP string) (*payment.Response, error) {
	order, err := store.GetOrder(ctx, r.db, orderID)
	if err != nil {
		return nil, err
	}
	if userID == 0 || order.UserID != userID {
		return nil, database.ErrOrderNotFound
	}
	if order.Payment != nil || order.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrInvalidTransition
	}

	if method == "" {
		method = order.PaymentMethod
	}
	gw, err := r.gateways.Get(method)
	if err != nil {
		return nil, err
	}

	resp := gw.CreatePayment(ctx, payment.Request{
		OrderID:     order.ID,
		Amount:      order.FinalAmount,
		OrderNumber: order.OrderNumber,
		Description: fmt.Sprintf("Payment for order %s", order.OrderNumber),
		ReturnURL:   urls.ReturnURL,
		CancelURL:   urls.CancelURL,
		ClientIP:    clientIP,
	})
	if !resp.Success {
		r.log.WithFields(logrus.Fields{
			"order_id": order.ID,
			"method":   method,
		}).Warn("gateway refused payment: " + resp.Message)
		return &resp, fmt.Errorf("%w: %s", ErrPaymentNotCreated, resp.Message)
	}

	return &resp, nil
}

func (r *Reconciler) publish(ctx context.Context, topic, eventType string, orderID int64, payload any) {
	env, err := events.NewEnvelope(eventType, orderID, payload)
	if err == nil {
		err = r.publisher.Publish(ctx, topic, events.PartitionKey(orderID), env)
	}
	if err != nil {
		r.log.WithError(err).WithField("order_id", orderID).Warn("failed to publish " + eventType)
	}
}
