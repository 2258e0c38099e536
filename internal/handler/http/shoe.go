package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/service"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/httputil"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/slug"
)

// ShoeHandler handles the catalog, review and favorite endpoints.
type ShoeHandler struct {
	catalog   CatalogService
	reviews   ReviewService
	favorites FavoriteService
	logger    *slog.Logger
}

// NewShoeHandler creates a new shoe HTTP handler.
func NewShoeHandler(catalog CatalogService, reviews ReviewService, favorites FavoriteService, logger *slog.Logger) *ShoeHandler {
	return &ShoeHandler{
		catalog:   catalog,
		reviews:   reviews,
		favorites: favorites,
		logger:    logger,
	}
}

// --- Request DTOs ---

// AddReviewRequest is the JSON request body for posting a review.
type AddReviewRequest struct {
	ShoeID     string `json:"shoe_id" validate:"required,max=64"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	ReviewText string `json:"review_text" validate:"max=2000"`
}

// ToggleFavoriteRequest is the JSON request body for toggling a favorite.
type ToggleFavoriteRequest struct {
	ShoeID string `json:"shoe_id" validate:"required,max=64"`
}

// ToggleFavoriteResponse reports the favorite state after a toggle.
type ToggleFavoriteResponse struct {
	ShoeID     string `json:"shoe_id"`
	IsFavorite bool   `json:"is_favorite"`
}

// --- Catalog ---

// List handles GET /api/shoes
func (h *ShoeHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.List(r.Context(), viewerFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, views)
}

// Search handles GET /api/shoes/search?q=
func (h *ShoeHandler) Search(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.Search(r.Context(), viewerFromRequest(r), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, views)
}

// Detail handles GET /api/shoes/{slug}
func (h *ShoeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")
	if !slug.Valid(s) {
		httputil.WriteError(w, r, apperrors.NotFound("shoe", s), h.logger)
		return
	}

	detail, err := h.catalog.Detail(r.Context(), viewerFromRequest(r), s)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, detail)
}

// --- Reviews ---

// AddReview handles POST /api/add-review
func (h *ShoeHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req AddReviewRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.reviews.Create(r.Context(), userID, service.CreateReviewInput{
		ShoeID: req.ShoeID,
		Rating: req.Rating,
		Text:   req.ReviewText,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, review)
}

// --- Favorites ---

// ToggleFavorite handles POST /api/favorites/toggle
func (h *ShoeHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ToggleFavoriteRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	isFavorite, err := h.favorites.Toggle(r.Context(), userID, req.ShoeID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, ToggleFavoriteResponse{ShoeID: req.ShoeID, IsFavorite: isFavorite})
}

// ListFavorites handles GET /api/favorites
func (h *ShoeHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	views, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, views)
}
