package models

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "Unpaid"
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

// Payment row status.
const PaymentRecordPaid = "Paid"

// Fulfilment order; Cancelled sits outside it.
var fulfilmentRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	if st == OrderStatusCancelled {
		return st, true
	}
	_, ok := fulfilmentRank[st]
	return st, ok
}

// CanCancel reports whether an order in status may be cancelled.
func CanCancel(status OrderStatus) bool {
	return status == OrderStatusPending || status == OrderStatusConfirmed
}

// CanTransition allows cancellation from Pending/Confirmed and any forward move
// along the fulfilment order.
func CanTransition(from, to OrderStatus) bool {
	if to == OrderStatusCancelled {
		return CanCancel(from)
	}
	fromRank, ok := fulfilmentRank[from]
	if !ok {
		return false
	}
	toRank, ok := fulfilmentRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
