package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testdb"
)

func TestWishlist(t *testing.T) {
	db := testdb.Postgres(t)
	ctx := context.Background()

	user := createUser(t, db, "wish@example.com")
	first := createProduct(t, db, "WISH-001", 100, 5)
	second := createProduct(t, db, "WISH-002", 200, 5)

	for _, p := range []int64{first.ID, second.ID} {
		if err := store.AddToWishlist(ctx, db, user.ID, p); err != nil {
			t.Fatalf("Add %d: %v", p, err)
		}
	}

	if err := store.AddToWishlist(ctx, db, user.ID, first.ID); !errors.Is(err, database.ErrAlreadyInWishlist) {
		t.Errorf("Expected ErrAlreadyInWishlist, got %v", err)
	}
	if err := store.AddToWishlist(ctx, db, user.ID, 999999); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	items, err := store.ListWishlist(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("List wishlist: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].ProductID != second.ID || items[0].Product.SKU != "WISH-002" {
		t.Errorf("Expected most recent item first, got %+v", items[0])
	}

	found, err := store.InWishlist(ctx, db, user.ID, first.ID)
	if err != nil || !found {
		t.Errorf("Expected product in wishlist, got %v (%v)", found, err)
	}

	if err := store.RemoveFromWishlist(ctx, db, user.ID, first.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.RemoveFromWishlist(ctx, db, user.ID, first.ID); !errors.Is(err, database.ErrWishlistItemNotFound) {
		t.Errorf("Expected ErrWishlistItemNotFound, got %v", err)
	}

	count, err := store.CountWishlist(ctx, db, user.ID)
	if err != nil || count != 1 {
		t.Errorf("Expected count 1, got %d (%v)", count, err)
	}

	if err := store.ClearWishlist(ctx, db, user.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err = store.CountWishlist(ctx, db, user.ID)
	if err != nil || count != 0 {
		t.Errorf("Expected empty wishlist, got %d (%v)", count, err)
	}
}

func TestWishlistRejectsInactiveProduct(t *testing.T) {
	db := testdb.Postgres(t)
	ctx := context.Background()

	user := createUser(t, db, "wish-inactive@example.com")
	product := createProduct(t, db, "WISH-003", 100, 5)
	if _, err := store.SetProductActive(ctx, db, product.ID, false); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	if err := store.AddToWishlist(ctx, db, user.ID, product.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}
