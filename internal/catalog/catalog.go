// Package catalog enriches shoe records for a viewer. Ratings are the mean of
// the stored reviews recomputed on every read, and favorite flags come from
// the viewer's favorites. Nothing here is cached.
package catalog

import (
	"context"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
)

// ReviewReader fetches the reviews of several shoes in one call.
type ReviewReader interface {
	ListByShoeIDs(ctx context.Context, shoeIDs []string) ([]domain.Review, error)
}

// FavoriteReader answers favorite membership questions for one user.
type FavoriteReader interface {
	Exists(ctx context.Context, userID int64, shoeID string) (bool, error)
	ListShoeIDs(ctx context.Context, userID int64, among []string) ([]string, error)
}

// NameResolver maps user ids to display names. Unknown ids are omitted.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ShoeIDs returns the identifiers of shoes in order.
func ShoeIDs(shoes []domain.Shoe) []string {
	ids := make([]string, len(shoes))
	for i := range shoes {
		ids[i] = shoes[i].ShoeID
	}
	return ids
}
