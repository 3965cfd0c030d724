package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

func createUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), db, email, "Test User", "hash", models.RoleCustomer)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func createProduct(t *testing.T, db *sql.DB, sku string, price int64, stock int) *models.Product {
	t.Helper()
	product, err := store.CreateProduct(context.Background(), db, store.NewProduct{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          fmt.Sprintf("product-%s", sku),
		Category:      "test",
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func shipping() models.ShippingInfo {
	return models.ShippingInfo{Recipient: "Nguyen Van A", Address: "1 Le Loi", City: "HCMC"}
}

func pendingOrder(userID int64, items ...store.OrderItemRequest) store.CreateOrderRequest {
	return store.CreateOrderRequest{
		UserID:        userID,
		PaymentMethod: models.PaymentMethodVNPay,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Shipping:      shipping(),
		Items:         items,
	}
}
