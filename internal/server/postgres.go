package server

import (
	"context"
	"database/sql"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// PostgresCatalog serves product reads and admin writes from Postgres.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (p *PostgresCatalog) ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, p.db, filter, page, pageSize)
}

func (p *PostgresCatalog) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := store.GetProductBySlug(ctx, p.db, slug)
	if err != nil {
		return nil, err
	}
	if err := store.IncrementViews(ctx, p.db, product.ID); err != nil {
		return nil, err
	}
	product.Views++
	return product, nil
}

func (p *PostgresCatalog) CreateProduct(ctx context.Context, np store.NewProduct) (*models.Product, error) {
	return store.CreateProduct(ctx, p.db, np)
}

type PostgresOrders struct {
	db *sql.DB
}

func NewPostgresOrders(db *sql.DB) *PostgresOrders {
	return &PostgresOrders{db: db}
}

func (p *PostgresOrders) ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, p.db, userID, cursor, limit)
}

func (p *PostgresOrders) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return store.GetOrder(ctx, p.db, id)
}
