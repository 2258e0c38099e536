package records

import (
	"context"
	"fmt"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
)

// FavoriteRepository reads and writes the favorites collection.
type FavoriteRepository struct {
	store recordstore.Store
}

// NewFavoriteRepository creates a favorite repository over store.
func NewFavoriteRepository(store recordstore.Store) *FavoriteRepository {
	return &FavoriteRepository{store: store}
}

// Add saves the (user, shoe) pair. A duplicate pair surfaces as
// apperrors.ErrConflict from the store.
func (r *FavoriteRepository) Add(ctx context.Context, userID int64, shoeID string) error {
	if _, err := r.store.Insert(ctx, recordstore.Favorites, recordstore.Row{
		"user_id": userID,
		"shoe_id": shoeID,
	}); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// Remove deletes the pair and reports whether it existed.
func (r *FavoriteRepository) Remove(ctx context.Context, userID int64, shoeID string) (bool, error) {
	n, err := r.store.Delete(ctx, recordstore.Favorites,
		recordstore.Eq("user_id", userID),
		recordstore.Eq("shoe_id", shoeID),
	)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether the user has favorited the shoe.
func (r *FavoriteRepository) Exists(ctx context.Context, userID int64, shoeID string) (bool, error) {
	rows, err := r.store.Select(ctx, recordstore.Favorites, recordstore.Query{
		Filters: []recordstore.Filter{
			recordstore.Eq("user_id", userID),
			recordstore.Eq("shoe_id", shoeID),
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("select favorite: %w", err)
	}
	return len(rows) > 0, nil
}

// ListShoeIDs returns the user's favorited shoe ids, newest first. When
// among is non-nil only those ids are considered.
func (r *FavoriteRepository) ListShoeIDs(ctx context.Context, userID int64, among []string) ([]string, error) {
	q := recordstore.Query{
		Filters:    []recordstore.Filter{recordstore.Eq("user_id", userID)},
		OrderBy:    "created_at",
		Descending: true,
	}
	if among != nil {
		q.Filters = append(q.Filters, recordstore.In("shoe_id", among))
	}

	rows, err := r.store.Select(ctx, recordstore.Favorites, q)
	if err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.String("shoe_id"))
	}
	return ids, nil
}
