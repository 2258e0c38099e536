package catalog

import (
	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
)

// Compose attaches a rating and favorite flag to every shoe, preserving the
// input order. Either lookup may be nil.
func Compose(shoes []domain.Shoe, ratings Ratings, favorites FavoriteSet) []domain.ShoeView {
	views := make([]domain.ShoeView, len(shoes))
	for i, shoe := range shoes {
		views[i] = composeOne(shoe, ratings, favorites)
	}
	return views
}

// ComposeDetail builds the detail view of one shoe including its reviews in
// the given order. Reviewers missing from names get a fallback label.
func ComposeDetail(shoe domain.Shoe, ratings Ratings, favorites FavoriteSet, reviews []domain.Review, names map[int64]string) domain.ShoeDetail {
	return domain.ShoeDetail{
		ShoeView: composeOne(shoe, ratings, favorites),
		Reviews:  ReviewEntries(reviews, names),
	}
}

func composeOne(shoe domain.Shoe, ratings Ratings, favorites FavoriteSet) domain.ShoeView {
	return domain.ShoeView{
		Shoe:       shoe,
		Rating:     ratings.Of(shoe.ShoeID),
		IsFavorite: favorites.Has(shoe.ShoeID),
	}
}

// ReviewEntries projects reviews into their presentation form.
func ReviewEntries(reviews []domain.Review, names map[int64]string) []domain.ReviewEntry {
	entries := make([]domain.ReviewEntry, len(reviews))
	for i, r := range reviews {
		date := r.Date
		if date == "" {
			date = domain.ReviewDate(r.CreatedAt)
		}
		name, ok := names[r.UserID]
		if !ok || name == "" {
			name = domain.FallbackDisplayName(r.UserID)
		}
		entries[i] = domain.ReviewEntry{
			ID:     r.ID,
			User:   name,
			Avatar: domain.AvatarURL(name),
			Date:   date,
			Text:   r.ReviewText,
			Rating: r.Rating,
		}
	}
	return entries
}

// ReviewerIDs returns the distinct author ids of reviews in first-seen order.
func ReviewerIDs(reviews []domain.Review) []int64 {
	seen := make(map[int64]struct{}, len(reviews))
	ids := make([]int64, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		ids = append(ids, r.UserID)
	}
	return ids
}
