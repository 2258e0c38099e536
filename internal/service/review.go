package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// ReviewEvents publishes review events.
type ReviewEvents interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ShoeID string
	Rating int
	Text   string
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews repository.ReviewRepository
	shoes   repository.ShoeRepository
	events  ReviewEvents
	logger  *slog.Logger
}

// NewReviewService creates a new review service. events may be nil.
func NewReviewService(reviews repository.ReviewRepository, shoes repository.ShoeRepository, events ReviewEvents, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		shoes:   shoes,
		events:  events,
		logger:  logger,
	}
}

// Create stores a review of an existing shoe by userID.
func (s *ReviewService) Create(ctx context.Context, userID int64, input CreateReviewInput) (*domain.Review, error) {
	shoeID := strings.TrimSpace(input.ShoeID)
	if shoeID == "" {
		return nil, apperrors.InvalidInput("shoe_id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if _, err := s.shoes.GetByID(ctx, shoeID); err != nil {
		return nil, fmt.Errorf("get shoe for review: %w", err)
	}

	review := &domain.Review{
		ShoeID:     shoeID,
		UserID:     userID,
		Rating:     input.Rating,
		ReviewText: strings.TrimSpace(input.Text),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishReviewCreated(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.created event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("shoe_id", review.ShoeID),
		slog.Int64("user_id", review.UserID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}
