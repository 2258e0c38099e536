package catalog

import (
	"context"
	"fmt"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
)

// FavoriteSet is the set of shoe ids a viewer has favorited.
type FavoriteSet map[string]struct{}

// NewFavoriteSet builds a set from ids.
func NewFavoriteSet(ids ...string) FavoriteSet {
	s := make(FavoriteSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether shoeID is in the set.
func (s FavoriteSet) Has(shoeID string) bool {
	_, ok := s[shoeID]
	return ok
}

// FavoriteMerger resolves which shoes a viewer has favorited.
type FavoriteMerger struct {
	favorites FavoriteReader
}

// NewFavoriteMerger creates a FavoriteMerger reading from favorites.
func NewFavoriteMerger(favorites FavoriteReader) *FavoriteMerger {
	return &FavoriteMerger{favorites: favorites}
}

// Favorited returns the subset of shoeIDs the viewer has favorited using one
// store call. Anonymous viewers get an empty set without touching the store.
// On failure the set is empty and the error is returned alongside it.
func (m *FavoriteMerger) Favorited(ctx context.Context, viewer domain.Viewer, shoeIDs []string) (FavoriteSet, error) {
	if !viewer.Authenticated {
		return FavoriteSet{}, nil
	}
	ids := uniqueIDs(shoeIDs)
	if len(ids) == 0 {
		return FavoriteSet{}, nil
	}

	found, err := m.favorites.ListShoeIDs(ctx, viewer.UserID, ids)
	if err != nil {
		return FavoriteSet{}, fmt.Errorf("merge favorites: %w", err)
	}
	return NewFavoriteSet(found...), nil
}

// IsFavorite reports whether the viewer has favorited one shoe.
func (m *FavoriteMerger) IsFavorite(ctx context.Context, viewer domain.Viewer, shoeID string) (bool, error) {
	if !viewer.Authenticated {
		return false, nil
	}
	ok, err := m.favorites.Exists(ctx, viewer.UserID, shoeID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
