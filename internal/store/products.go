package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, sku, name, slug, description, category, price, discount_price,
	stock_quantity, is_active, views, created_at, updated_at, version`

type NewProduct struct {
	SKU           string
	Name          string
	Slug          string
	Description   string
	Category      string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	StockQuantity int
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.DiscountPrice,
		&product.StockQuantity,
		&product.IsActive,
		&product.Views,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	return product, err
}

func CreateProduct(ctx context.Context, db DBTX, p NewProduct) (*models.Product, error) {
	query := `
		INSERT INTO products (sku, name, slug, description, category, price, discount_price,
			stock_quantity, is_active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Slug, p.Description, p.Category, p.Price, p.DiscountPrice, p.StockQuantity))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db DBTX, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductBySlug returns active products only.
func GetProductBySlug(ctx context.Context, db DBTX, slug string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND is_active`

	product, err := scanProduct(db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	return product, nil
}

func IncrementViews(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE products SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// ReserveStock locks the product row for the rest of tx and checks that it is
// active and holds at least quantity units.
func ReserveStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	if !product.IsActive {
		return nil, database.ErrProductNotFound
	}

	if product.StockQuantity < quantity {
		return nil, &database.StockError{Product: product.Name, Available: product.StockQuantity}
	}

	return product, nil
}

func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// UpdateStockOptimistic sets the stock level if the row is still at version.
func UpdateStockOptimistic(ctx context.Context, db DBTX, productID int64, newStock int, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		newStock, productID, version)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

type ProductSort string

const (
	SortLatest    ProductSort = "latest"
	SortPopular   ProductSort = "popular"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
)

var productOrderBy = map[ProductSort]string{
	SortLatest:    `created_at DESC, id DESC`,
	SortPopular:   `views DESC, id DESC`,
	SortPriceAsc:  `COALESCE(discount_price, price) ASC, id ASC`,
	SortPriceDesc: `COALESCE(discount_price, price) DESC, id DESC`,
}

// ProductFilter narrows ListProducts. Search matches name or description
// case-insensitively. Price bounds apply to the effective price and are
// ignored when zero. Unknown sorts fall back to latest.
type ProductFilter struct {
	Category   string
	ActiveOnly bool
	Search     string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	Sort       ProductSort
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func ListProducts(ctx context.Context, db DBTX, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	where := `WHERE ($1::text = '' OR category = $1)
		AND (NOT $2::boolean OR is_active)
		AND ($3::text = '' OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
		AND ($4::numeric <= 0 OR COALESCE(discount_price, price) >= $4)
		AND ($5::numeric <= 0 OR COALESCE(discount_price, price) <= $5)`

	args := []any{
		filter.Category,
		filter.ActiveOnly,
		likeEscaper.Replace(strings.TrimSpace(filter.Search)),
		filter.MinPrice,
		filter.MaxPrice,
	}

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	orderBy, ok := productOrderBy[filter.Sort]
	if !ok {
		orderBy = productOrderBy[SortLatest]
	}

	query := `
		SELECT ` + productColumns + `
		FROM products ` + where + `
		ORDER BY ` + orderBy + `
		LIMIT $6 OFFSET $7`

	rows, err := db.QueryContext(ctx, query, append(args, pageSize, offset(page, pageSize))...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// UpdateProduct overwrites the editable fields if the row is still at
// version. SKU is left alone.
func UpdateProduct(ctx context.Context, db DBTX, id int64, version int, p NewProduct) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, category = $4, price = $5,
		    discount_price = $6, stock_quantity = $7, version = version + 1, updated_at = NOW()
		WHERE id = $8 AND version = $9
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.Name, p.Slug, p.Description, p.Category, p.Price, p.DiscountPrice, p.StockQuantity, id, version))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if _, err := GetProduct(ctx, db, id); err != nil {
		return nil, err
	}
	return nil, database.ErrOptimisticLockFailed
}

func SetProductActive(ctx context.Context, db DBTX, id int64, active bool) (*models.Product, error) {
	query := `
		UPDATE products
		SET is_active = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, active, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("set product active: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product that no order references. Products with
// order history are refused with ErrProductInOrders.
func DeleteProduct(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id); err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	var ordered bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_details WHERE product_id = $1)`, id).Scan(&ordered)
	if err != nil {
		return fmt.Errorf("check product orders: %w", err)
	}
	if ordered {
		return database.ErrProductInOrders
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
