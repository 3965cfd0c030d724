// Package checkout turns a user's cart into a persisted order.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/events"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrCartEmpty                = errors.New("your cart is empty")
	ErrPaymentMethodRequired    = errors.New("please choose a payment method")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidDraft             = errors.New("invalid order details")
)

// Draft is what the customer fills in at checkout.
type Draft struct {
	Shipping       models.ShippingInfo `json:"shipping"`
	Notes          string              `json:"notes"`
	ShippingCost   decimal.Decimal     `json:"shipping_cost"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Shipping.Recipient) == "" ||
		strings.TrimSpace(d.Shipping.Address) == "" ||
		strings.TrimSpace(d.Shipping.City) == "" {
		return ErrInvalidDraft
	}
	if d.ShippingCost.IsNegative() || d.TaxAmount.IsNegative() || d.DiscountAmount.IsNegative() {
		return ErrInvalidDraft
	}
	return nil
}

type Confirmation struct {
	OrderID       int64                `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	PaymentMethod string               `json:"payment_method"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	FinalAmount   decimal.Decimal      `json:"final_amount"`
}

type Cart interface {
	Get(ctx context.Context, userID int64) ([]models.CartLine, error)
	ClearScoped(ctx context.Context, userID int64) error
	ClearMirror(ctx context.Context, userID int64)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req store.CreateOrderRequest) (*models.Order, error)
}

// PostgresOrders creates orders with store.CreateOrder.
type PostgresOrders struct {
	db *sql.DB
}

func NewPostgresOrders(db *sql.DB) *PostgresOrders {
	return &PostgresOrders{db: db}
}

func (p *PostgresOrders) CreateOrder(ctx context.Context, req store.CreateOrderRequest) (*models.Order, error) {
	return store.CreateOrder(ctx, p.db, req)
}

type Assembler struct {
	cart      Cart
	orders    OrderCreator
	publisher events.Publisher
	log       logrus.FieldLogger
}

func NewAssembler(c Cart, orders OrderCreator, publisher events.Publisher, log logrus.FieldLogger) *Assembler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Assembler{cart: c, orders: orders, publisher: publisher, log: log}
}

// ConfirmOrder prices the cart at current product prices, writes the order
// and its details, decrements stock and empties the cart. Cash orders are
// confirmed immediately; gateway orders stay Pending until reconciled.
func (a *Assembler) ConfirmOrder(ctx context.Context, userID int64, draft Draft, paymentMethod string) (*Confirmation, error) {
	if userID == 0 {
		return nil, cart.ErrUnauthenticated
	}

	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, ErrPaymentMethodRequired
	}
	if !models.IsSupportedPaymentMethod(paymentMethod) {
		return nil, ErrUnsupportedPaymentMethod
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}

	lines, err := a.cart.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	items := make([]store.OrderItemRequest, 0, len(lines))
	for _, l := range lines {
		items = append(items, store.OrderItemRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	status, paymentStatus := models.OrderStatusPending, models.PaymentStatusUnpaid
	if paymentMethod == models.PaymentMethodCash {
		status, paymentStatus = models.OrderStatusConfirmed, models.PaymentStatusPending
	}

	order, err := a.orders.CreateOrder(ctx, store.CreateOrderRequest{
		UserID:        userID,
		PaymentMethod: paymentMethod,
		Status:        status,
		PaymentStatus: paymentStatus,
		Shipping:      draft.Shipping,
		Notes:         draft.Notes,
		Charges: models.Charges{
			ShippingCost:   draft.ShippingCost,
			TaxAmount:      draft.TaxAmount,
			DiscountAmount: draft.DiscountAmount,
		},
		Items: items,
	})
	if err != nil {
		return nil, err
	}

	log := a.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"order_id": order.ID,
	})

	if err := a.cart.ClearScoped(ctx, userID); err != nil {
		log.WithError(err).Warn("failed to clear cart after checkout")
	}
	if paymentMethod == models.PaymentMethodCash {
		a.cart.ClearMirror(ctx, userID)
	}

	a.publishCreated(ctx, order, log)

	log.WithFields(logrus.Fields{
		"order_number":   order.OrderNumber,
		"payment_method": paymentMethod,
		"final_amount":   order.FinalAmount.String(),
	}).Info("order confirmed")

	return &Confirmation{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentMethod: paymentMethod,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		FinalAmount:   order.FinalAmount,
	}, nil
}

func (a *Assembler) publishCreated(ctx context.Context, order *models.Order, log logrus.FieldLogger) {
	items := make([]events.OrderItem, 0, len(order.Details))
	for _, d := range order.Details {
		items = append(items, events.OrderItem{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			LineTotal: d.TotalPrice,
		})
	}

	env, err := events.NewEnvelope(events.EventOrderCreated, order.ID, events.OrderCreatedPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		Status:        string(order.Status),
		FinalAmount:   order.FinalAmount,
		Items:         items,
	})
	if err == nil {
		err = a.publisher.Publish(ctx, events.TopicOrderCreated, events.PartitionKey(order.ID), env)
	}
	if err != nil {
		log.WithError(err).Warn("failed to publish order created event")
	}
}
