package admin

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *sql.DB, *test.Hook) {
	t.Helper()
	db := testdb.Postgres(t)
	log, hook := test.NewNullLogger()
	return NewService(db, log), db, hook
}

func createProduct(t *testing.T, db *sql.DB, sku string, stock int) *models.Product {
	t.Helper()
	p, err := store.CreateProduct(context.Background(), db, store.NewProduct{
		SKU: sku, Name: "Product " + sku, Slug: "product-" + sku, Price: decimal.NewFromInt(100), StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func TestToggleUserActive(t *testing.T) {
	svc, db, hook := newTestService(t)
	ctx := context.Background()

	customer, err := store.CreateUser(ctx, db, "c@example.com", "Customer", "hash", models.RoleCustomer)
	require.NoError(t, err)
	admin, err := store.CreateUser(ctx, db, "a@example.com", "Admin", "hash", models.RoleAdmin)
	require.NoError(t, err)

	user, err := svc.ToggleUserActive(ctx, customer.ID)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, false, hook.LastEntry().Data["is_active"])

	_, err = svc.ToggleUserActive(ctx, admin.ID)
	assert.ErrorIs(t, err, database.ErrAdminImmutable)

	page, err := svc.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestListOrdersSpansUsers(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, db, "ALL-1", 10)
	for _, email := range []string{"one@example.com", "two@example.com"} {
		user, err := store.CreateUser(ctx, db, email, "User", "hash", models.RoleCustomer)
		require.NoError(t, err)
		_, err = store.CreateOrder(ctx, db, store.CreateOrderRequest{
			UserID:        user.ID,
			PaymentMethod: models.PaymentMethodCash,
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
			Shipping:      models.ShippingInfo{Recipient: "R", Address: "A", City: "C"},
			Items:         []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	page, err := svc.ListOrders(ctx, "", 10)
	require.NoError(t, err)
	orders := page.Items.([]models.Order)
	require.Len(t, orders, 2)
	assert.NotEqual(t, orders[0].UserID, orders[1].UserID)
}

func TestProductManagement(t *testing.T) {
	svc, db, hook := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, db, "ADM-1", 5)

	hidden, err := svc.SetProductActive(ctx, product.ID, false)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)

	page, err := svc.ListProducts(ctx, store.ProductFilter{ActiveOnly: true}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total, "admin listing includes inactive products")

	stocked, err := svc.UpdateStock(ctx, product.ID, 40, hidden.Version)
	require.NoError(t, err)
	assert.Equal(t, 40, stocked.StockQuantity)

	hook.Reset()
	_, err = svc.UpdateStock(ctx, product.ID, 10, hidden.Version)
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	_, err = svc.UpdateStock(ctx, product.ID, -1, stocked.Version)
	assert.ErrorIs(t, err, ErrNegativeStock)
	_, err = svc.UpdateStock(ctx, 999999, 1, 1)
	assert.ErrorIs(t, err, database.ErrProductNotFound)

	edited, err := svc.EditProduct(ctx, product.ID, stocked.Version, store.NewProduct{
		Name: "Renamed", Slug: "renamed", Price: decimal.NewFromInt(250), StockQuantity: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", edited.Slug)
	assert.Equal(t, 7, edited.StockQuantity)

	_, err = svc.EditProduct(ctx, product.ID, stocked.Version, store.NewProduct{
		Name: "Stale", Slug: "stale", Price: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = store.GetProduct(ctx, db, product.ID)
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestStatsWindow(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, db, "s@example.com", "User", "hash", models.RoleCustomer)
	require.NoError(t, err)
	product := createProduct(t, db, "STAT-1", 10)

	order, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:        user.ID,
		PaymentMethod: models.PaymentMethodCash,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Shipping:      models.ShippingInfo{Recipient: "R", Address: "A", City: "C"},
		Items:         []store.OrderItemRequest{{ProductID: product.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE orders SET created_at = NOW() - INTERVAL '2 years' WHERE id = $1`, order.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.MonthlyRevenue, "orders older than twelve months are left out")
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, int64(3), stats.TopProducts[0].QuantitySold)

	svc.now = func() time.Time { return time.Now().AddDate(-2, 0, 0) }
	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.MonthlyRevenue, 1)
	assert.True(t, stats.MonthlyRevenue[0].Revenue.Equal(order.FinalAmount))

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.PendingOrders)
}
