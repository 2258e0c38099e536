package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/catalog"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// ShoeService serves the catalog enriched with ratings and favorite flags.
// Failures of the enrichment lookups never fail a request: they are logged,
// counted in CatalogLookupFailures and replaced by defaults.
type ShoeService struct {
	shoes      repository.ShoeRepository
	reviews    repository.ReviewRepository
	names      catalog.NameResolver
	aggregator *catalog.Aggregator
	merger     *catalog.FavoriteMerger
	logger     *slog.Logger
}

// NewShoeService creates a new shoe service.
func NewShoeService(
	shoes repository.ShoeRepository,
	reviews repository.ReviewRepository,
	favorites repository.FavoriteRepository,
	names catalog.NameResolver,
	logger *slog.Logger,
) *ShoeService {
	return &ShoeService{
		shoes:      shoes,
		reviews:    reviews,
		names:      names,
		aggregator: catalog.NewAggregator(reviews),
		merger:     catalog.NewFavoriteMerger(favorites),
		logger:     logger,
	}
}

// List returns the whole catalog ordered by shoe id.
func (s *ShoeService) List(ctx context.Context, viewer domain.Viewer) ([]domain.ShoeView, error) {
	shoes, err := s.shoes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	return s.compose(ctx, viewer, shoes), nil
}

// Search returns the shoes whose brand or name contains query.
func (s *ShoeService) Search(ctx context.Context, viewer domain.Viewer, query string) ([]domain.ShoeView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("search query q is required")
	}

	shoes, err := s.shoes.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search shoes: %w", err)
	}
	return s.compose(ctx, viewer, shoes), nil
}

// Detail returns one shoe with its reviews, newest first.
func (s *ShoeService) Detail(ctx context.Context, viewer domain.Viewer, slug string) (*domain.ShoeDetail, error) {
	shoe, err := s.shoes.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get shoe: %w", err)
	}

	reviews, err := s.reviews.ListByShoe(ctx, shoe.ShoeID)
	if err != nil {
		maskLookupFailure(ctx, s.logger, lookupRating, err)
		reviews = nil
	}
	ratings := catalog.RatingsFromReviews([]string{shoe.ShoeID}, reviews)

	favorites := catalog.FavoriteSet{}
	isFavorite, err := s.merger.IsFavorite(ctx, viewer, shoe.ShoeID)
	if err != nil {
		maskLookupFailure(ctx, s.logger, lookupFavorite, err)
	} else if isFavorite {
		favorites = catalog.NewFavoriteSet(shoe.ShoeID)
	}

	var names map[int64]string
	if len(reviews) > 0 {
		names, err = s.names.DisplayNames(ctx, catalog.ReviewerIDs(reviews))
		if err != nil {
			maskLookupFailure(ctx, s.logger, lookupDisplayName, err)
			names = nil
		}
	}

	detail := catalog.ComposeDetail(*shoe, ratings, favorites, reviews, names)
	return &detail, nil
}

func (s *ShoeService) compose(ctx context.Context, viewer domain.Viewer, shoes []domain.Shoe) []domain.ShoeView {
	ids := catalog.ShoeIDs(shoes)

	ratings, err := s.aggregator.Ratings(ctx, ids)
	if err != nil {
		maskLookupFailure(ctx, s.logger, lookupRating, err)
	}
	favorites, err := s.merger.Favorited(ctx, viewer, ids)
	if err != nil {
		maskLookupFailure(ctx, s.logger, lookupFavorite, err)
	}
	return catalog.Compose(shoes, ratings, favorites)
}
