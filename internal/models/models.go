package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	District     string    `json:"district,omitempty"`
	Ward         string    `json:"ward,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Profile is the part of a User the owner may edit.
type Profile struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district"`
	Ward       string `json:"ward"`
	PostalCode string `json:"postal_code"`
}

type Product struct {
	ID            int64               `json:"id"`
	SKU           string              `json:"sku"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description,omitempty"`
	Category      string              `json:"category,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	StockQuantity int                 `json:"stock_quantity"`
	IsActive      bool                `json:"is_active"`
	Views         int                 `json:"views"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// EffectivePrice is the discount price when set, otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.DiscountPrice)
}

func EffectivePrice(price decimal.Decimal, discount decimal.NullDecimal) decimal.Decimal {
	if discount.Valid {
		return discount.Decimal
	}
	return price
}

type Order struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	OrderNumber    string          `json:"order_number"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Shipping       ShippingInfo    `json:"shipping"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	Version        int             `json:"version"`
	Details        []OrderDetail   `json:"details,omitempty"`
	Payment        *Payment        `json:"payment,omitempty"`
}

type ShippingInfo struct {
	Recipient  string `json:"recipient"`
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	Ward       string `json:"ward,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type OrderDetail struct {
	ID            int64               `json:"id"`
	OrderID       int64               `json:"order_id"`
	ProductID     int64               `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	CreatedAt     time.Time           `json:"created_at"`
}

type Payment struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	Method          string          `json:"method"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	TransactionID   string          `json:"transaction_id"`
	Reference       string          `json:"reference,omitempty"`
	TransactionDate *time.Time      `json:"transaction_date,omitempty"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type WishlistItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
	Product   Product   `json:"product"`
}

type DashboardStats struct {
	TotalUsers    int64           `json:"total_users"`
	TotalProducts int64           `json:"total_products"`
	TotalOrders   int64           `json:"total_orders"`
	PendingOrders int64           `json:"pending_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type MonthlyRevenue struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"order_count"`
}

type ProductSales struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type SalesStats struct {
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
	TopProducts    []ProductSales   `json:"top_products"`
}

// CartLine is one entry of a user's cart. LineID is local to the cart.
type CartLine struct {
	LineID        int64               `json:"line_id"`
	ProductID     int64               `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	AddedAt       time.Time           `json:"added_at"`
}

func (l CartLine) EffectivePrice() decimal.Decimal {
	return EffectivePrice(l.UnitPrice, l.DiscountPrice)
}

// CartMirrorRow is the persisted copy of a cart line, keyed by (UserID, ProductID).
type CartMirrorRow struct {
	UserID        int64
	ProductID     int64
	Quantity      int
	UnitPrice     decimal.Decimal
	DiscountPrice decimal.NullDecimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	PaymentMethodCash   = "Cash"
	PaymentMethodVNPay  = "VNPay"
	PaymentMethodPayPal = "PayPal"
)

func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodVNPay, PaymentMethodPayPal:
		return true
	}
	return false
}
