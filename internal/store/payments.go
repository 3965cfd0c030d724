package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

type NewPayment struct {
	OrderID         int64
	Method          string
	Amount          decimal.Decimal
	Status          string
	TransactionID   string
	Reference       string
	TransactionDate time.Time
	PaymentDate     time.Time
	Notes           string
}

// InsertPayment records the payment for an order. The order_id unique
// constraint makes it write at most one row per order; a second attempt
// returns ErrPaymentExists. A transaction id or reference already recorded
// for the same method returns ErrTransactionUsed.
func InsertPayment(ctx context.Context, db DBTX, p NewPayment) (*models.Payment, error) {
	query := `
		INSERT INTO payments (order_id, method, amount, status, transaction_id, reference,
			transaction_date, payment_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (order_id) DO NOTHING
		RETURNING ` + paymentColumns

	payment, err := scanPayment(db.QueryRowContext(ctx, query,
		p.OrderID, p.Method, p.Amount, p.Status, p.TransactionID, p.Reference,
		p.TransactionDate, p.PaymentDate, p.Notes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPaymentExists
		}
		if database.IsUniqueViolation(err) {
			return nil, database.ErrTransactionUsed
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	return payment, nil
}

func GetPaymentByOrder(ctx context.Context, db DBTX, orderID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	payment, err := scanPayment(db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return payment, nil
}

// GetPaymentByTransaction finds the payment a gateway transaction was
// recorded under.
func GetPaymentByTransaction(ctx context.Context, db DBTX, method, transactionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE method = $1 AND transaction_id = $2`

	payment, err := scanPayment(db.QueryRowContext(ctx, query, method, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by transaction: %w", err)
	}

	return payment, nil
}

// FindGatewayPayment finds the payment whose transaction id or reference
// is id.
func FindGatewayPayment(ctx context.Context, db DBTX, method, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE method = $1 AND (transaction_id = $2 OR reference = $2)
		ORDER BY id
		LIMIT 1`

	payment, err := scanPayment(db.QueryRowContext(ctx, query, method, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find gateway payment: %w", err)
	}

	return payment, nil
}

func CountPayments(ctx context.Context, db DBTX, orderID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

const paymentColumns = `id, order_id, method, amount, status, transaction_id, reference,
	transaction_date, payment_date, notes, created_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	payment := &models.Payment{}
	var txDate, paidAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Method,
		&payment.Amount,
		&payment.Status,
		&payment.TransactionID,
		&payment.Reference,
		&txDate,
		&paidAt,
		&payment.Notes,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.TransactionDate = nullTimePtr(txDate)
	payment.PaymentDate = nullTimePtr(paidAt)
	return payment, nil
}
