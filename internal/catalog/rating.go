package catalog

import (
	"context"
	"fmt"
	"math"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
)

// Ratings maps a shoe id to its mean rating. Missing ids read as 0.
type Ratings map[string]float64

// Of returns the rating of shoeID, or 0 when it has none.
func (r Ratings) Of(shoeID string) float64 {
	return r[shoeID]
}

// MeanRating returns the mean of ratings rounded half away from zero to one
// decimal place. An empty list has rating 0.
func MeanRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*10) / 10
}

// GroupRatings collects the rating values of reviews by shoe id.
func GroupRatings(reviews []domain.Review) map[string][]int {
	grouped := make(map[string][]int)
	for _, r := range reviews {
		grouped[r.ShoeID] = append(grouped[r.ShoeID], r.Rating)
	}
	return grouped
}

// RatingsFromReviews reduces an already fetched review set to one rating per
// requested shoe. Reviews of shoes that were not requested are ignored.
func RatingsFromReviews(shoeIDs []string, reviews []domain.Review) Ratings {
	grouped := GroupRatings(reviews)
	out := make(Ratings, len(shoeIDs))
	for _, id := range shoeIDs {
		out[id] = MeanRating(grouped[id])
	}
	return out
}

func zeroRatings(shoeIDs []string) Ratings {
	out := make(Ratings, len(shoeIDs))
	for _, id := range shoeIDs {
		out[id] = 0
	}
	return out
}

// Aggregator computes mean ratings from the reviews collection.
type Aggregator struct {
	reviews ReviewReader
}

// NewAggregator creates an Aggregator reading from reviews.
func NewAggregator(reviews ReviewReader) *Aggregator {
	return &Aggregator{reviews: reviews}
}

// Ratings fetches the reviews of every requested shoe in a single call and
// returns one rating per distinct id.
//
// When the reviews cannot be read the result still holds a 0 rating for
// every id, and the error tells the caller the zeros are not real.
func (a *Aggregator) Ratings(ctx context.Context, shoeIDs []string) (Ratings, error) {
	ids := uniqueIDs(shoeIDs)
	if len(ids) == 0 {
		return Ratings{}, nil
	}

	reviews, err := a.reviews.ListByShoeIDs(ctx, ids)
	if err != nil {
		return zeroRatings(ids), fmt.Errorf("aggregate ratings: %w", err)
	}
	return RatingsFromReviews(ids, reviews), nil
}

// Rating returns the rating of one shoe. It is the batch form over a single
// id, so both always agree.
func (a *Aggregator) Rating(ctx context.Context, shoeID string) (float64, error) {
	ratings, err := a.Ratings(ctx, []string{shoeID})
	return ratings.Of(shoeID), err
}
