package records

import (
	"context"
	"fmt"
	"time"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
)

// ReviewRepository reads and writes the reviews collection.
type ReviewRepository struct {
	store recordstore.Store
}

// NewReviewRepository creates a review repository over store.
func NewReviewRepository(store recordstore.Store) *ReviewRepository {
	return &ReviewRepository{store: store}
}

// Create inserts the review and copies back the generated id and timestamp.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	row, err := r.store.Insert(ctx, recordstore.Reviews, recordstore.Row{
		"shoe_id":     review.ShoeID,
		"user_id":     review.UserID,
		"rating":      review.Rating,
		"review_text": review.ReviewText,
	})
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	stored := reviewFromRow(row)
	review.ID = stored.ID
	review.CreatedAt = stored.CreatedAt
	review.Date = stored.Date
	return nil
}

// ListByShoe returns a shoe's reviews, newest first.
func (r *ReviewRepository) ListByShoe(ctx context.Context, shoeID string) ([]domain.Review, error) {
	return r.selectReviews(ctx, recordstore.Query{
		Filters:    []recordstore.Filter{recordstore.Eq("shoe_id", shoeID)},
		OrderBy:    "created_at",
		Descending: true,
	})
}

// ListByShoeIDs returns every review of the listed shoes in one call.
func (r *ReviewRepository) ListByShoeIDs(ctx context.Context, shoeIDs []string) ([]domain.Review, error) {
	return r.selectReviews(ctx, recordstore.Where(recordstore.In("shoe_id", shoeIDs)))
}

func (r *ReviewRepository) selectReviews(ctx context.Context, q recordstore.Query) ([]domain.Review, error) {
	rows, err := r.store.Select(ctx, recordstore.Reviews, q)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	reviews := make([]domain.Review, len(rows))
	for i, row := range rows {
		reviews[i] = reviewFromRow(row)
	}
	return reviews, nil
}

func reviewFromRow(row recordstore.Row) domain.Review {
	userID, _ := row.Int64("user_id")
	rating, _ := row.Int64("rating")
	return domain.Review{
		ID:         row.String("id"),
		ShoeID:     row.String("shoe_id"),
		UserID:     userID,
		Rating:     int(rating),
		ReviewText: row.String("review_text"),
		CreatedAt:  row.Time("created_at"),
		Date:       reviewDate(row),
	}
}

// reviewDate keeps the first 10 characters of a textual created_at so the
// day never shifts with the reader's zone, even for layouts Row.Time rejects.
func reviewDate(row recordstore.Row) string {
	if s, ok := row["created_at"].(string); ok {
		if len(s) > len(time.DateOnly) {
			return s[:len(time.DateOnly)]
		}
		return s
	}
	return domain.ReviewDate(row.Time("created_at"))
}
