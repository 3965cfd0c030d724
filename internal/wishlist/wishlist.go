// Package wishlist keeps the products a user saved for later and moves them
// into the cart on request.
package wishlist

import (
	"context"
	"errors"

	"github.com/safar/storefront/internal/models"
	"github.com/sirupsen/logrus"
)

var ErrUnauthenticated = errors.New("please log in to use your wishlist")

type Store interface {
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	List(ctx context.Context, userID int64) ([]models.WishlistItem, error)
	Count(ctx context.Context, userID int64) (int, error)
	Contains(ctx context.Context, userID, productID int64) (bool, error)
	Clear(ctx context.Context, userID int64) error
}

// Carts is the part of the cart service the wishlist moves products into.
type Carts interface {
	Add(ctx context.Context, userID, productID int64, quantity int) (models.CartLine, error)
}

type Service struct {
	store Store
	carts Carts
	log   logrus.FieldLogger
}

func NewService(store Store, carts Carts, log logrus.FieldLogger) *Service {
	return &Service{store: store, carts: carts, log: log}
}

// Add saves productID and returns the new wishlist size.
func (s *Service) Add(ctx context.Context, userID, productID int64) (int, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}
	if err := s.store.Add(ctx, userID, productID); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, userID)
}

// Remove drops productID and returns the new wishlist size.
func (s *Service) Remove(ctx context.Context, userID, productID int64) (int, error) {
	if userID == 0 {
		return 0, ErrUnauthenticated
	}
	if err := s.store.Remove(ctx, userID, productID); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, userID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.store.List(ctx, userID)
}

// Count is zero for anonymous callers.
func (s *Service) Count(ctx context.Context, userID int64) (int, error) {
	if userID == 0 {
		return 0, nil
	}
	return s.store.Count(ctx, userID)
}

func (s *Service) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.store.Contains(ctx, userID, productID)
}

// AddToCart puts one unit of productID in the cart. The product stays in the
// wishlist.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64) (models.CartLine, error) {
	if userID == 0 {
		return models.CartLine{}, ErrUnauthenticated
	}

	line, err := s.carts.Add(ctx, userID, productID, 1)
	if err != nil {
		return models.CartLine{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   line.Quantity,
	}).Debug("wishlist product moved to cart")

	return line, nil
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	return s.store.Clear(ctx, userID)
}
