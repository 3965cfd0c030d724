package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type CreateOrderRequest struct {
	UserID        int64
	PaymentMethod string
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	Shipping      models.ShippingInfo
	Notes         string
	Charges       models.Charges
	Items         []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s%09d", now.Format("20060102150405"), now.Nanosecond())
}

// CreateOrder locks every product, prices each line at its current effective
// price, writes the order with its details and decrements stock, all in one
// serializable transaction.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		lines := make([]models.PricedLine, 0, len(req.Items))
		for _, item := range req.Items {
			product, err := ReserveStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			lines = append(lines, models.PricedLine{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
				Discount:  product.DiscountPrice,
			})
		}

		totals := models.ComputeTotals(lines, req.Charges)

		var orderID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, status, payment_status, payment_method,
				total_amount, discount_amount, tax_amount, shipping_cost, final_amount,
				shipping_recipient, shipping_address, shipping_city, shipping_district,
				shipping_ward, shipping_postal_code, shipping_phone, notes,
				created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
				NOW(), NOW(), 1)
			 RETURNING id`,
			req.UserID, generateOrderNumber(time.Now().UTC()), req.Status, req.PaymentStatus, req.PaymentMethod,
			totals.TotalAmount, req.Charges.DiscountAmount, req.Charges.TaxAmount, req.Charges.ShippingCost,
			totals.FinalAmount,
			req.Shipping.Recipient, req.Shipping.Address, req.Shipping.City, req.Shipping.District,
			req.Shipping.Ward, req.Shipping.PostalCode, req.Shipping.Phone, req.Notes,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range lines {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_details (order_id, product_id, quantity, unit_price, discount_price, total_price, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
				orderID, line.ProductID, line.Quantity, line.Price, line.Discount, line.LineTotal())
			if err != nil {
				return fmt.Errorf("create order detail: %w", err)
			}

			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		order, err = getOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}
		order.Details, err = listOrderDetails(ctx, tx, orderID)
		return err
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

const orderColumns = `id, user_id, order_number, status, payment_status, payment_method,
	total_amount, discount_amount, tax_amount, shipping_cost, final_amount,
	shipping_recipient, shipping_address, shipping_city, shipping_district,
	shipping_ward, shipping_postal_code, shipping_phone, notes,
	created_at, updated_at, shipped_at, delivered_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var shippedAt, deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.TotalAmount,
		&order.DiscountAmount,
		&order.TaxAmount,
		&order.ShippingCost,
		&order.FinalAmount,
		&order.Shipping.Recipient,
		&order.Shipping.Address,
		&order.Shipping.City,
		&order.Shipping.District,
		&order.Shipping.Ward,
		&order.Shipping.PostalCode,
		&order.Shipping.Phone,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&shippedAt,
		&deliveredAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	order.ShippedAt = nullTimePtr(shippedAt)
	order.DeliveredAt = nullTimePtr(deliveredAt)
	return order, nil
}

func getOrder(ctx context.Context, db DBTX, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// GetOrder returns the order with its details and, when one exists, its payment.
func GetOrder(ctx context.Context, db DBTX, id int64) (*models.Order, error) {
	order, err := getOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}

	order.Details, err = listOrderDetails(ctx, db, id)
	if err != nil {
		return nil, err
	}

	payment, err := GetPaymentByOrder(ctx, db, id)
	switch {
	case err == nil:
		order.Payment = payment
	case !errors.Is(err, database.ErrPaymentNotFound):
		return nil, err
	}

	return order, nil
}

func listOrderDetails(ctx context.Context, db DBTX, orderID int64) ([]models.OrderDetail, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, discount_price, total_price, created_at
		 FROM order_details
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	defer rows.Close()

	var details []models.OrderDetail
	for rows.Next() {
		var d models.OrderDetail
		err := rows.Scan(
			&d.ID,
			&d.OrderID,
			&d.ProductID,
			&d.Quantity,
			&d.UnitPrice,
			&d.DiscountPrice,
			&d.TotalPrice,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return details, nil
}

// ListOrdersCursor pages through a user's orders newest first. userID 0 lists
// every user's orders.
func ListOrdersCursor(ctx context.Context, db DBTX, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::bigint = 0 OR user_id = $1)
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// LatestPendingOrder returns the user's most recently created Pending order.
func LatestPendingOrder(ctx context.Context, db DBTX, userID int64) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	order, err := scanOrder(db.QueryRowContext(ctx, query, userID, models.OrderStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("latest pending order: %w", err)
	}

	return order, nil
}

// LockOrder reads the order row with FOR UPDATE, serializing writers of the
// same order until tx ends.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

func MarkOrderPaid(ctx context.Context, db DBTX, id int64) error {
	return updateOrder(ctx, db,
		`UPDATE orders
		 SET status = $2, payment_status = $3, version = version + 1, updated_at = NOW()
		 WHERE id = $1`,
		id, models.OrderStatusConfirmed, models.PaymentStatusPaid)
}

// SetOrderStatus writes status and stamps shipped_at/delivered_at on the
// first move into Shipped/Delivered.
func SetOrderStatus(ctx context.Context, db DBTX, id int64, status models.OrderStatus) error {
	return updateOrder(ctx, db,
		`UPDATE orders
		 SET status = $2,
		     shipped_at = CASE WHEN $2 = 'Shipped' AND shipped_at IS NULL THEN NOW() ELSE shipped_at END,
		     delivered_at = CASE WHEN $2 = 'Delivered' AND delivered_at IS NULL THEN NOW() ELSE delivered_at END,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, string(status))
}

func updateOrder(ctx context.Context, db DBTX, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}
