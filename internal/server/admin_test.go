package server

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRequiresRole(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, customerID, models.RoleCustomer)

	for _, path := range []string{"/api/admin/users", "/api/admin/orders", "/api/admin/products", "/api/admin/stats", "/api/admin/dashboard"} {
		rec := ts.do(t, http.MethodGet, path, tok, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestAdminUsers(t *testing.T) {
	ts := newTestServer(t)
	ts.admin.users[5] = &models.User{ID: 5, Email: "c@example.com", Role: models.RoleCustomer, IsActive: true}
	admin := ts.token(t, adminID, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/users?page=1&page_size=10", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["users"].(map[string]any)["total"])

	rec = ts.do(t, http.MethodGet, "/api/admin/users/5", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/admin/users/6", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/users/5/toggle-active", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deactivated", decode(t, rec)["message"])

	ts.admin.err = database.ErrAdminImmutable
	rec = ts.do(t, http.MethodPost, "/api/admin/users/2/toggle-active", admin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminOrdersListsEveryone(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, adminID, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/orders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode(t, rec)["orders"].(map[string]any)["items"].([]any)
	assert.Len(t, orders, 2)

	rec = ts.do(t, http.MethodGet, "/api/admin/orders?cursor=bad!cursor", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminProducts(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, adminID, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/products?search=galaxy&sort=popular", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "galaxy", ts.admin.filter.Search)
	assert.Equal(t, store.SortPopular, ts.admin.filter.Sort)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3", admin, gin.H{
		"version": 4, "name": "Galaxy S24 Ultra", "price": "30990000", "stock_quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "galaxy-s24-ultra", ts.admin.edited.Slug)
	assert.Equal(t, 4, ts.admin.version)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3", admin, gin.H{"name": "No Version", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3/status", admin, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.admin.active)
	assert.False(t, *ts.admin.active)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3/status", admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3/stock", admin, gin.H{"stock_quantity": 0, "version": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, ts.admin.stock)
	assert.Equal(t, 5, ts.admin.version)

	rec = ts.do(t, http.MethodDelete, "/api/admin/products/3", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), ts.admin.deleted)
}

func TestAdminStaleProductWriteConflicts(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, adminID, models.RoleAdmin)
	ts.admin.err = database.ErrOptimisticLockFailed

	rec := ts.do(t, http.MethodPut, "/api/admin/products/3/stock", admin, gin.H{"stock_quantity": 9, "version": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, database.ErrOptimisticLockFailed.Error(), decode(t, rec)["message"])

	rec = ts.do(t, http.MethodPut, "/api/admin/products/3", admin, gin.H{"version": 1, "name": "X", "price": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.admin.err = database.ErrProductInOrders
	rec = ts.do(t, http.MethodDelete, "/api/admin/products/3", admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, adminID, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["stats"], "monthly_revenue")

	rec = ts.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["dashboard"], "total_revenue")
}
