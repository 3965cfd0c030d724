package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// UpsertCartMirror inserts the (user, product) row or overwrites its quantity
// and prices. quantity is the whole line quantity, not a delta.
func UpsertCartMirror(ctx context.Context, db DBTX, userID, productID int64, quantity int, price decimal.Decimal, discount decimal.NullDecimal) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cart_mirror (user_id, product_id, quantity, unit_price, discount_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id, product_id) DO UPDATE
		 SET quantity = EXCLUDED.quantity,
		     unit_price = EXCLUDED.unit_price,
		     discount_price = EXCLUDED.discount_price,
		     updated_at = NOW()`,
		userID, productID, quantity, price, discount)
	if err != nil {
		return fmt.Errorf("upsert cart mirror: %w", err)
	}
	return nil
}

func SetCartMirrorQuantity(ctx context.Context, db DBTX, userID, productID int64, quantity int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE cart_mirror SET quantity = $3, updated_at = NOW()
		 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("set cart mirror quantity: %w", err)
	}
	return nil
}

func DeleteCartMirrorLine(ctx context.Context, db DBTX, userID, productID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM cart_mirror WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart mirror line: %w", err)
	}
	return nil
}

func ClearCartMirror(ctx context.Context, db DBTX, userID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM cart_mirror WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart mirror: %w", err)
	}
	return nil
}

func ListCartMirror(ctx context.Context, db DBTX, userID int64) ([]models.CartMirrorRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, product_id, quantity, unit_price, discount_price, created_at, updated_at
		 FROM cart_mirror
		 WHERE user_id = $1
		 ORDER BY created_at, product_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list cart mirror: %w", err)
	}
	defer rows.Close()

	var out []models.CartMirrorRow
	for rows.Next() {
		var r models.CartMirrorRow
		err := rows.Scan(&r.UserID, &r.ProductID, &r.Quantity, &r.UnitPrice, &r.DiscountPrice, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan cart mirror: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// ReplaceCartMirror swaps the user's mirror rows for lines in one transaction.
func ReplaceCartMirror(ctx context.Context, db *sql.DB, userID int64, lines []models.CartLine) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := ClearCartMirror(ctx, tx, userID); err != nil {
			return err
		}
		for _, l := range lines {
			if err := UpsertCartMirror(ctx, tx, userID, l.ProductID, l.Quantity, l.UnitPrice, l.DiscountPrice); err != nil {
				return err
			}
		}
		return nil
	})
}
