// Package admin backs the back-office screens: user and product management,
// the all-orders listing and sales statistics.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/sirupsen/logrus"
)

var ErrNegativeStock = errors.New("stock cannot be negative")

// statsMonths is how many calendar months, the current one included, the
// revenue chart covers.
const statsMonths = 12

type Service struct {
	db  *sql.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *sql.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListUsers(ctx, s.db, page, pageSize)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, id)
}

// ToggleUserActive flips a customer between active and deactivated. Admins
// are refused with database.ErrAdminImmutable.
func (s *Service) ToggleUserActive(ctx context.Context, id int64) (*models.User, error) {
	user, err := store.ToggleUserActive(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"is_active": user.IsActive,
	}).Info("user active flag changed")

	return user, nil
}

// ListOrders pages through every user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, s.db, 0, cursor, limit)
}

// ListProducts includes inactive products.
func (s *Service) ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	filter.ActiveOnly = false
	return store.ListProducts(ctx, s.db, filter, page, pageSize)
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) (*models.Product, error) {
	product, err := store.SetProductActive(ctx, s.db, id, active)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"product_id": id,
		"is_active":  active,
	}).Info("product active flag changed")

	return product, nil
}

// EditProduct saves p over the product if nobody changed it since version.
func (s *Service) EditProduct(ctx context.Context, id int64, version int, p store.NewProduct) (*models.Product, error) {
	if p.StockQuantity < 0 {
		return nil, ErrNegativeStock
	}

	product, err := store.UpdateProduct(ctx, s.db, id, version, p)
	if err != nil {
		if errors.Is(err, database.ErrOptimisticLockFailed) {
			s.log.WithFields(logrus.Fields{
				"product_id": id,
				"version":    version,
			}).Warn("product edit lost to a concurrent change")
		}
		return nil, err
	}

	return product, nil
}

// UpdateStock sets the stock level if the product is still at version.
func (s *Service) UpdateStock(ctx context.Context, id int64, stock, version int) (*models.Product, error) {
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	if err := store.UpdateStockOptimistic(ctx, s.db, id, stock, version); err != nil {
		if !errors.Is(err, database.ErrOptimisticLockFailed) {
			return nil, err
		}
		if _, err := store.GetProduct(ctx, s.db, id); err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"product_id": id,
			"version":    version,
		}).Warn("stock update lost to a concurrent change")
		return nil, err
	}

	return store.GetProduct(ctx, s.db, id)
}

// DeleteProduct removes a product no order refers to.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return store.DeleteProduct(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	return store.DashboardCounts(ctx, s.db)
}

// Stats returns monthly revenue for the last twelve calendar months and the
// best-selling products.
func (s *Service) Stats(ctx context.Context) (*models.SalesStats, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(statsMonths - 1), 0)

	months, err := store.MonthlyRevenue(ctx, s.db, since)
	if err != nil {
		return nil, err
	}

	top, err := store.TopProducts(ctx, s.db)
	if err != nil {
		return nil, err
	}

	return &models.SalesStats{MonthlyRevenue: months, TopProducts: top}, nil
}
