package cart

import (
	"context"
	"testing"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user int64 = 10

func newTestService(t *testing.T) (*Service, *memoryStore, fakeCatalog, *fakeMirror, *test.Hook) {
	t.Helper()
	catalog := fakeCatalog{
		1: {ID: 1, Name: "Phone", Price: decimal.NewFromInt(2000000),
			DiscountPrice: decimal.NewNullDecimal(decimal.NewFromInt(1800000)), StockQuantity: 5, IsActive: true},
		2: {ID: 2, Name: "Case", Price: decimal.NewFromInt(100000), StockQuantity: 10, IsActive: true},
		3: {ID: 3, Name: "Retired", Price: decimal.NewFromInt(1), StockQuantity: 10, IsActive: false},
	}
	lines := newMemoryStore()
	mirror := newFakeMirror()
	log, hook := test.NewNullLogger()
	return NewService(lines, catalog, mirror, log), lines, catalog, mirror, hook
}

func TestRequiresIdentity(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Add(ctx, 0, 1, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Update(ctx, 0, 1, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, svc.Remove(ctx, 0, 1), ErrUnauthenticated)
	assert.ErrorIs(t, svc.Clear(ctx, 0), ErrUnauthenticated)
}

func TestAddMergesAndChecksStock(t *testing.T) {
	svc, _, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	line, err := svc.Add(ctx, user, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), line.LineID)

	line, err = svc.Add(ctx, user, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, int64(1), line.LineID)

	_, err = svc.Add(ctx, user, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.Add(ctx, user, 2, 11)
	assert.ErrorIs(t, err, ErrOutOfStock)

	line, err = svc.Add(ctx, user, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), line.LineID)

	lines, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 5, lines[0].Quantity)

	assert.Equal(t, 5, mirror.rows[mirrorKey{user, 1}].Quantity)
	assert.Equal(t, 1, mirror.rows[mirrorKey{user, 2}].Quantity)
}

func TestAddRejectsBadInput(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Add(ctx, user, 1, -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Add(ctx, user, 99, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.Add(ctx, user, 3, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateAndRemove(t *testing.T) {
	svc, _, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, user, 1, 1)
	require.NoError(t, err)
	second, err := svc.Add(ctx, user, 2, 1)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user, second.LineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, 4, mirror.rows[mirrorKey{user, 2}].Quantity)

	_, err = svc.Update(ctx, user, second.LineID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Update(ctx, user, 42, 1)
	assert.ErrorIs(t, err, ErrLineNotFound)

	require.NoError(t, svc.Remove(ctx, user, first.LineID))
	require.NoError(t, svc.Remove(ctx, user, 42))

	lines, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
	_, ok := mirror.rows[mirrorKey{user, 1}]
	assert.False(t, ok)
}

func TestGetRefreshesPricesAndDropsMissingProducts(t *testing.T) {
	svc, _, catalog, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 1, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, 2, 1)
	require.NoError(t, err)

	catalog[1].Price = decimal.NewFromInt(2100000)
	catalog[1].DiscountPrice = decimal.NullDecimal{}
	delete(catalog, 2)

	lines, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].EffectivePrice().Equal(decimal.NewFromInt(2100000)))
}

func TestMirrorFailuresAreSwallowed(t *testing.T) {
	svc, _, _, mirror, hook := newTestService(t)
	ctx := context.Background()
	mirror.err = errMirrorDown

	_, err := svc.Add(ctx, user, 2, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, user))

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "clear", hook.LastEntry().Data["op"])
}

func TestClearEmptiesBoth(t *testing.T) {
	svc, lines, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 2, 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, user))

	got, err := lines.Load(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, mirror.rows)
}

func TestPersistAndRestore(t *testing.T) {
	svc, lines, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 1, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, 2, 3)
	require.NoError(t, err)

	require.NoError(t, svc.Persist(ctx, user))
	got, err := lines.Load(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, mirror.rows, 2)

	require.NoError(t, svc.Restore(ctx, user))
	restored, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, restored, 2)

	total := 0
	for _, l := range restored {
		total += l.Quantity
	}
	assert.Equal(t, 5, total)
}

func TestRestoreKeepsExistingScopedCart(t *testing.T) {
	svc, _, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	mirror.rows[mirrorKey{user, 1}] = models.CartMirrorRow{UserID: user, ProductID: 1, Quantity: 4}
	_, err := svc.Add(ctx, user, 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Restore(ctx, user))
	lines, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
}

func TestPersistKeepsMirrorWhenScopedCartIsEmpty(t *testing.T) {
	svc, _, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.ClearScoped(ctx, user))

	require.NoError(t, svc.Persist(ctx, user))
	require.Len(t, mirror.rows, 1)
	assert.Equal(t, 2, mirror.rows[mirrorKey{user, 1}].Quantity)
}

func TestMirrorTracksScopedQuantityAfterScopedClear(t *testing.T) {
	svc, lines, _, mirror, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, 1, 2)
	require.NoError(t, err)
	require.NoError(t, svc.ClearScoped(ctx, user))

	_, err = svc.Add(ctx, user, 1, 1)
	require.NoError(t, err)

	scoped, err := lines.Load(ctx, user)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 1, scoped[0].Quantity)
	assert.Equal(t, 1, mirror.rows[mirrorKey{user, 1}].Quantity)
}
