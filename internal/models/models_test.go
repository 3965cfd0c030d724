package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotalsDiscountedLine(t *testing.T) {
	lines := []PricedLine{{
		ProductID: 1,
		Quantity:  2,
		Price:     decimal.NewFromInt(2_000_000),
		Discount:  decimal.NewNullDecimal(decimal.NewFromInt(1_800_000)),
	}}

	got := ComputeTotals(lines, Charges{
		ShippingCost:   decimal.NewFromInt(50_000),
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
	})

	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(3_600_000)), got.TotalAmount.String())
	assert.True(t, got.FinalAmount.Equal(decimal.NewFromInt(3_650_000)), got.FinalAmount.String())
}

func TestComputeTotalsAllCharges(t *testing.T) {
	lines := []PricedLine{
		{ProductID: 1, Quantity: 3, Price: decimal.RequireFromString("10.50")},
		{ProductID: 2, Quantity: 1, Price: decimal.NewFromInt(20), Discount: decimal.NewNullDecimal(decimal.NewFromInt(15))},
	}

	got := ComputeTotals(lines, Charges{
		ShippingCost:   decimal.NewFromInt(5),
		TaxAmount:      decimal.NewFromInt(2),
		DiscountAmount: decimal.NewFromInt(4),
	})

	// 31.50 + 15 = 46.50; 46.50 + 2 + 5 - 4 = 49.50
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("46.50")))
	assert.True(t, got.FinalAmount.Equal(decimal.RequireFromString("49.50")))
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil, Charges{ShippingCost: decimal.NewFromInt(10)})
	assert.True(t, got.TotalAmount.IsZero())
	assert.True(t, got.FinalAmount.Equal(decimal.NewFromInt(10)))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
		{OrderStatusPending, OrderStatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus("Shipped")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusShipped, st)

	_, ok = ParseOrderStatus("shipped")
	assert.False(t, ok)

	_, ok = ParseOrderStatus("Cancelled")
	assert.True(t, ok)
}

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: decimal.NewFromInt(100)}
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(100)))

	p.DiscountPrice = decimal.NewNullDecimal(decimal.NewFromInt(80))
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(80)))
}
