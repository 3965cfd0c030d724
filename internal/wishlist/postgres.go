package wishlist

import (
	"context"
	"database/sql"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

// PostgresStore adapts the wishlists table to Store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Add(ctx context.Context, userID, productID int64) error {
	return store.AddToWishlist(ctx, p.db, userID, productID)
}

func (p *PostgresStore) Remove(ctx context.Context, userID, productID int64) error {
	return store.RemoveFromWishlist(ctx, p.db, userID, productID)
}

func (p *PostgresStore) List(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	return store.ListWishlist(ctx, p.db, userID)
}

func (p *PostgresStore) Count(ctx context.Context, userID int64) (int, error) {
	return store.CountWishlist(ctx, p.db, userID)
}

func (p *PostgresStore) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	return store.InWishlist(ctx, p.db, userID, productID)
}

func (p *PostgresStore) Clear(ctx context.Context, userID int64) error {
	return store.ClearWishlist(ctx, p.db, userID)
}
