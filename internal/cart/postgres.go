package cart

import (
	"context"
	"database/sql"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// PostgresMirror adapts the cart_mirror table to Mirror.
type PostgresMirror struct {
	db *sql.DB
}

func NewPostgresMirror(db *sql.DB) *PostgresMirror {
	return &PostgresMirror{db: db}
}

func (m *PostgresMirror) Upsert(ctx context.Context, userID int64, line models.CartLine) error {
	return store.UpsertCartMirror(ctx, m.db, userID, line.ProductID, line.Quantity, line.UnitPrice, line.DiscountPrice)
}

func (m *PostgresMirror) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	return store.SetCartMirrorQuantity(ctx, m.db, userID, productID, quantity)
}

func (m *PostgresMirror) DeleteLine(ctx context.Context, userID, productID int64) error {
	return store.DeleteCartMirrorLine(ctx, m.db, userID, productID)
}

func (m *PostgresMirror) Clear(ctx context.Context, userID int64) error {
	return store.ClearCartMirror(ctx, m.db, userID)
}

func (m *PostgresMirror) List(ctx context.Context, userID int64) ([]models.CartMirrorRow, error) {
	return store.ListCartMirror(ctx, m.db, userID)
}

func (m *PostgresMirror) Replace(ctx context.Context, userID int64, lines []models.CartLine) error {
	return store.ReplaceCartMirror(ctx, m.db, userID, lines)
}

// PostgresCatalog reads products straight from the products table.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, c.db, id)
}
