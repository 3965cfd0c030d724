package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type memoryStore struct {
	mu    sync.Mutex
	carts map[int64][]models.CartLine
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[int64][]models.CartLine{}}
}

func (m *memoryStore) Load(_ context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartLine{}, m.carts[userID]...), nil
}

func (m *memoryStore) Update(_ context.Context, userID int64, fn func([]models.CartLine) ([]models.CartLine, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(append([]models.CartLine{}, m.carts[userID]...))
	if err != nil {
		return err
	}
	m.carts[userID] = next
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

type fakeCatalog map[int64]*models.Product

func (c fakeCatalog) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

type mirrorKey struct{ user, product int64 }

type fakeMirror struct {
	rows map[mirrorKey]models.CartMirrorRow
	err  error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[mirrorKey]models.CartMirrorRow{}}
}

func (f *fakeMirror) Upsert(_ context.Context, userID int64, line models.CartLine) error {
	if f.err != nil {
		return f.err
	}
	k := mirrorKey{userID, line.ProductID}
	row := f.rows[k]
	row.UserID, row.ProductID = userID, line.ProductID
	row.Quantity = line.Quantity
	row.UnitPrice, row.DiscountPrice = line.UnitPrice, line.DiscountPrice
	f.rows[k] = row
	return nil
}

func (f *fakeMirror) SetQuantity(_ context.Context, userID, productID int64, quantity int) error {
	if f.err != nil {
		return f.err
	}
	k := mirrorKey{userID, productID}
	if row, ok := f.rows[k]; ok {
		row.Quantity = quantity
		f.rows[k] = row
	}
	return nil
}

func (f *fakeMirror) DeleteLine(_ context.Context, userID, productID int64) error {
	if f.err != nil {
		return f.err
	}
	delete(f.rows, mirrorKey{userID, productID})
	return nil
}

func (f *fakeMirror) Clear(_ context.Context, userID int64) error {
	if f.err != nil {
		return f.err
	}
	for k := range f.rows {
		if k.user == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeMirror) List(_ context.Context, userID int64) ([]models.CartMirrorRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.CartMirrorRow
	for k, r := range f.rows {
		if k.user == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeMirror) Replace(ctx context.Context, userID int64, lines []models.CartLine) error {
	if f.err != nil {
		return f.err
	}
	if err := f.Clear(ctx, userID); err != nil {
		return err
	}
	for _, l := range lines {
		if err := f.Upsert(ctx, userID, l); err != nil {
			return err
		}
	}
	return nil
}

var errMirrorDown = errors.New("mirror down")
