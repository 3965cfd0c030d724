package models

import "github.com/shopspring/decimal"

type PricedLine struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Discount  decimal.NullDecimal
}

func (l PricedLine) LineTotal() decimal.Decimal {
	return EffectivePrice(l.Price, l.Discount).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Charges struct {
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
}

type Totals struct {
	TotalAmount decimal.Decimal
	FinalAmount decimal.Decimal
}

// ComputeTotals returns the line sum and final = total + tax + shipping - discount.
func ComputeTotals(lines []PricedLine, c Charges) Totals {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}

	return Totals{
		TotalAmount: total,
		FinalAmount: total.Add(c.TaxAmount).Add(c.ShippingCost).Sub(c.DiscountAmount),
	}
}
