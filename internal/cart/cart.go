// Package cart keeps each user's cart in a scoped store and mirrors every
// change into Postgres on a best-effort basis.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthenticated  = errors.New("please log in to manage your cart")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrOutOfStock       = errors.New("not enough stock")
	ErrLineNotFound     = errors.New("item is not in the cart")
	ErrProductNotFound  = database.ErrProductNotFound
	ErrCartUnavailable  = errors.New("cart store unavailable")
	errConcurrentUpdate = errors.New("cart changed concurrently")
)

// LineStore holds the whole line list per user. Update applies fn atomically
// with respect to other Update calls for the same user.
type LineStore interface {
	Load(ctx context.Context, userID int64) ([]models.CartLine, error)
	Update(ctx context.Context, userID int64, fn func([]models.CartLine) ([]models.CartLine, error)) error
	Delete(ctx context.Context, userID int64) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// Mirror is the durable copy of the cart keyed by (user, product).
type Mirror interface {
	Upsert(ctx context.Context, userID int64, line models.CartLine) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	DeleteLine(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
	List(ctx context.Context, userID int64) ([]models.CartMirrorRow, error)
	Replace(ctx context.Context, userID int64, lines []models.CartLine) error
}

type Service struct {
	lines   LineStore
	catalog Catalog
	mirror  Mirror
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService wires the cart. mirror may be nil.
func NewService(lines LineStore, catalog Catalog, mirror Mirror, log logrus.FieldLogger) *Service {
	return &Service{
		lines:   lines,
		catalog: catalog,
		mirror:  mirror,
		log:     log,
		now:     time.Now,
	}
}

// Get returns the cart with prices refreshed from the catalog. Lines whose
// product no longer exists are dropped.
func (s *Service) Get(ctx context.Context, userID int64) ([]models.CartLine, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	lines, err := s.lines.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		line.UnitPrice = product.Price
		line.DiscountPrice = product.DiscountPrice
		out = append(out, line)
	}

	return out, nil
}

// Add puts quantity units of productID in the cart, merging into an existing
// line for the same product.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) (models.CartLine, error) {
	if userID == 0 {
		return models.CartLine{}, ErrUnauthenticated
	}
	if productID <= 0 || quantity <= 0 {
		return models.CartLine{}, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return models.CartLine{}, err
	}
	if !product.IsActive {
		return models.CartLine{}, ErrProductNotFound
	}

	var added models.CartLine
	err = s.lines.Update(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].ProductID != productID {
				continue
			}
			if lines[i].Quantity+quantity > product.StockQuantity {
				return nil, ErrOutOfStock
			}
			lines[i].Quantity += quantity
			lines[i].UnitPrice = product.Price
			lines[i].DiscountPrice = product.DiscountPrice
			added = lines[i]
			return lines, nil
		}

		if quantity > product.StockQuantity {
			return nil, ErrOutOfStock
		}
		added = models.CartLine{
			LineID:        nextLineID(lines),
			ProductID:     productID,
			Quantity:      quantity,
			UnitPrice:     product.Price,
			DiscountPrice: product.DiscountPrice,
			AddedAt:       s.now().UTC(),
		}
		return append(lines, added), nil
	})
	if err != nil {
		return models.CartLine{}, err
	}

	s.mirrorOp(userID, "upsert", func(m Mirror) error {
		return m.Upsert(ctx, userID, added)
	})

	return added, nil
}

func (s *Service) Update(ctx context.Context, userID, lineID int64, quantity int) (models.CartLine, error) {
	if userID == 0 {
		return models.CartLine{}, ErrUnauthenticated
	}
	if quantity <= 0 {
		return models.CartLine{}, ErrInvalidQuantity
	}

	var updated models.CartLine
	err := s.lines.Update(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].LineID == lineID {
				lines[i].Quantity = quantity
				updated = lines[i]
				return lines, nil
			}
		}
		return nil, ErrLineNotFound
	})
	if err != nil {
		return models.CartLine{}, err
	}

	s.mirrorOp(userID, "set_quantity", func(m Mirror) error {
		return m.SetQuantity(ctx, userID, updated.ProductID, quantity)
	})

	return updated, nil
}

// Remove drops the line; an unknown line is not an error.
func (s *Service) Remove(ctx context.Context, userID, lineID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	var removed *models.CartLine
	err := s.lines.Update(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for i := range lines {
			if lines[i].LineID == lineID {
				line := lines[i]
				removed = &line
				return append(lines[:i], lines[i+1:]...), nil
			}
		}
		return lines, nil
	})
	if err != nil {
		return err
	}

	if removed != nil {
		s.mirrorOp(userID, "delete_line", func(m Mirror) error {
			return m.DeleteLine(ctx, userID, removed.ProductID)
		})
	}

	return nil
}

// Clear empties the scoped store and the mirror.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	s.mirrorOp(userID, "clear", func(m Mirror) error {
		return m.Clear(ctx, userID)
	})

	return s.lines.Delete(ctx, userID)
}

// ClearScoped empties only the scoped store, leaving the mirror intact.
func (s *Service) ClearScoped(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	return s.lines.Delete(ctx, userID)
}

// ClearMirror empties only the mirror. Failures are logged.
func (s *Service) ClearMirror(ctx context.Context, userID int64) {
	s.mirrorOp(userID, "clear", func(m Mirror) error {
		return m.Clear(ctx, userID)
	})
}

// Restore loads the mirror into an empty scoped store, typically at login.
func (s *Service) Restore(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if s.mirror == nil {
		return nil
	}

	rows, err := s.mirror.List(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("cart mirror restore failed")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	return s.lines.Update(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		if len(lines) > 0 {
			return lines, nil
		}
		restored := make([]models.CartLine, 0, len(rows))
		for i, r := range rows {
			restored = append(restored, models.CartLine{
				LineID:        int64(i + 1),
				ProductID:     r.ProductID,
				Quantity:      r.Quantity,
				UnitPrice:     r.UnitPrice,
				DiscountPrice: r.DiscountPrice,
				AddedAt:       r.CreatedAt,
			})
		}
		return restored, nil
	})
}

// Persist replaces the mirror with the scoped cart and drops the scoped
// store, typically at logout. An empty scoped cart leaves the mirror alone
// so lines kept for an unfinished gateway payment survive.
func (s *Service) Persist(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	lines, err := s.lines.Load(ctx, userID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	s.mirrorOp(userID, "replace", func(m Mirror) error {
		return m.Replace(ctx, userID, lines)
	})

	return s.lines.Delete(ctx, userID)
}

func (s *Service) mirrorOp(userID int64, op string, fn func(Mirror) error) {
	if s.mirror == nil {
		return
	}
	if err := fn(s.mirror); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"op":      op,
		}).Warn("cart mirror write failed")
	}
}

func nextLineID(lines []models.CartLine) int64 {
	var max int64
	for _, l := range lines {
		if l.LineID > max {
			max = l.LineID
		}
	}
	return max + 1
}
