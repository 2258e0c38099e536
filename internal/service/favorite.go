package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/catalog"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// FavoriteService toggles and lists a user's favorite shoes.
type FavoriteService struct {
	favorites  repository.FavoriteRepository
	shoes      repository.ShoeRepository
	aggregator *catalog.Aggregator
	logger     *slog.Logger
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(
	favorites repository.FavoriteRepository,
	shoes repository.ShoeRepository,
	reviews repository.ReviewRepository,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{
		favorites:  favorites,
		shoes:      shoes,
		aggregator: catalog.NewAggregator(reviews),
		logger:     logger,
	}
}

// Toggle removes the favorite if it exists and adds it otherwise. It
// returns whether the shoe is a favorite afterwards.
func (s *FavoriteService) Toggle(ctx context.Context, userID int64, shoeID string) (bool, error) {
	if shoeID == "" {
		return false, apperrors.InvalidInput("shoe_id is required")
	}
	if _, err := s.shoes.GetByID(ctx, shoeID); err != nil {
		return false, fmt.Errorf("get shoe for favorite: %w", err)
	}

	removed, err := s.favorites.Remove(ctx, userID, shoeID)
	if err != nil {
		return false, fmt.Errorf("toggle favorite: %w", err)
	}
	if removed {
		s.logger.InfoContext(ctx, "favorite removed",
			slog.Int64("user_id", userID),
			slog.String("shoe_id", shoeID),
		)
		return false, nil
	}

	if err := s.favorites.Add(ctx, userID, shoeID); err != nil {
		// A concurrent toggle already added it.
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyExists) {
			return true, nil
		}
		return false, fmt.Errorf("toggle favorite: %w", err)
	}

	s.logger.InfoContext(ctx, "favorite added",
		slog.Int64("user_id", userID),
		slog.String("shoe_id", shoeID),
	)
	return true, nil
}

// List returns the user's favorite shoes, most recently favorited first.
func (s *FavoriteService) List(ctx context.Context, userID int64) ([]domain.ShoeView, error) {
	ids, err := s.favorites.ListShoeIDs(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ShoeView{}, nil
	}

	shoes, err := s.shoes.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list favorite shoes: %w", err)
	}
	shoes = orderByIDs(shoes, ids)

	ratings, err := s.aggregator.Ratings(ctx, ids)
	if err != nil {
		maskLookupFailure(ctx, s.logger, lookupRating, err)
	}
	return catalog.Compose(shoes, ratings, catalog.NewFavoriteSet(ids...)), nil
}

// orderByIDs arranges shoes in the order of ids. Ids without a shoe are dropped.
func orderByIDs(shoes []domain.Shoe, ids []string) []domain.Shoe {
	byID := make(map[string]domain.Shoe, len(shoes))
	for _, sh := range shoes {
		byID[sh.ShoeID] = sh
	}
	out := make([]domain.Shoe, 0, len(ids))
	for _, id := range ids {
		if sh, ok := byID[id]; ok {
			out = append(out, sh)
			delete(byID, id)
		}
	}
	return out
}
