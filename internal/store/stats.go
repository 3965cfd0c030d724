package store

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/models"
)

const topProductsLimit = 10

// DashboardCounts totals users, products and orders. Revenue excludes
// cancelled orders.
func DashboardCounts(ctx context.Context, db DBTX) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	err := db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM orders WHERE status = $1),
			(SELECT COALESCE(SUM(final_amount), 0) FROM orders WHERE status <> $2)`,
		models.OrderStatusPending, models.OrderStatusCancelled,
	).Scan(&stats.TotalUsers, &stats.TotalProducts, &stats.TotalOrders, &stats.PendingOrders, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return stats, nil
}

// MonthlyRevenue sums non-cancelled orders per UTC calendar month from since
// onwards, oldest month first. Months without orders are omitted.
func MonthlyRevenue(ctx context.Context, db DBTX, since time.Time) ([]models.MonthlyRevenue, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int  AS y,
		        EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS m,
		        SUM(final_amount),
		        COUNT(*)
		 FROM orders
		 WHERE status <> $1 AND created_at >= $2
		 GROUP BY y, m
		 ORDER BY y, m`,
		models.OrderStatusCancelled, since)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	defer rows.Close()

	months := []models.MonthlyRevenue{}
	for rows.Next() {
		var m models.MonthlyRevenue
		if err := rows.Scan(&m.Year, &m.Month, &m.Revenue, &m.OrderCount); err != nil {
			return nil, fmt.Errorf("scan monthly revenue: %w", err)
		}
		months = append(months, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return months, nil
}

// TopProducts ranks products by units sold on non-cancelled orders.
func TopProducts(ctx context.Context, db DBTX) ([]models.ProductSales, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT p.id, p.name, SUM(d.quantity), SUM(d.total_price)
		 FROM order_details d
		 JOIN orders o ON o.id = d.order_id
		 JOIN products p ON p.id = d.product_id
		 WHERE o.status <> $1
		 GROUP BY p.id, p.name
		 ORDER BY SUM(d.quantity) DESC, p.id
		 LIMIT $2`,
		models.OrderStatusCancelled, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	products := []models.ProductSales{}
	for rows.Next() {
		var p models.ProductSales
		if err := rows.Scan(&p.ProductID, &p.Name, &p.QuantitySold, &p.Revenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
