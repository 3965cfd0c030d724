package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// AddToWishlist saves an active product for the user.
func AddToWishlist(ctx context.Context, db DBTX, userID, productID int64) error {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO wishlists (user_id, product_id, added_at)
		 SELECT $1, id, NOW() FROM products WHERE id = $2 AND is_active
		 RETURNING id`,
		userID, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrProductNotFound
		}
		if database.IsUniqueViolation(err) {
			return database.ErrAlreadyInWishlist
		}
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

func RemoveFromWishlist(ctx context.Context, db DBTX, userID, productID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrWishlistItemNotFound
	}

	return nil
}

func ClearWishlist(ctx context.Context, db DBTX, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM wishlists WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear wishlist: %w", err)
	}
	return nil
}

func CountWishlist(ctx context.Context, db DBTX, userID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wishlists WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count wishlist: %w", err)
	}
	return count, nil
}

func InWishlist(ctx context.Context, db DBTX, userID, productID int64) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wishlists WHERE user_id = $1 AND product_id = $2)`,
		userID, productID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}
	return found, nil
}

// ListWishlist returns the user's saved products, most recently added first.
func ListWishlist(ctx context.Context, db DBTX, userID int64) ([]models.WishlistItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.product_id, w.added_at,
		        p.id, p.sku, p.name, p.slug, p.description, p.category, p.price, p.discount_price,
		        p.stock_quantity, p.is_active, p.views, p.created_at, p.updated_at, p.version
		 FROM wishlists w
		 JOIN products p ON p.id = w.product_id
		 WHERE w.user_id = $1
		 ORDER BY w.added_at DESC, w.id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var item models.WishlistItem
		p := &item.Product
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.AddedAt,
			&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Category, &p.Price, &p.DiscountPrice,
			&p.StockQuantity, &p.IsActive, &p.Views, &p.CreatedAt, &p.UpdatedAt, &p.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
