// Package http exposes the SONIX API over HTTP.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/service"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/httputil"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/middleware"
)

// AuthService is the account and session surface used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.User, error)
	VerifyOTP(ctx context.Context, email, code string) (*service.AuthResult, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error)
	Logout(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ProfileService reads and writes the runner profile.
type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (*domain.UserDetail, error)
	UpdateProfile(ctx context.Context, userID int64, input service.ProfileInput) (*domain.UserDetail, error)
}

// CatalogService serves enriched shoe views.
type CatalogService interface {
	List(ctx context.Context, viewer domain.Viewer) ([]domain.ShoeView, error)
	Search(ctx context.Context, viewer domain.Viewer, query string) ([]domain.ShoeView, error)
	Detail(ctx context.Context, viewer domain.Viewer, slug string) (*domain.ShoeDetail, error)
}

// ReviewService stores reviews.
type ReviewService interface {
	Create(ctx context.Context, userID int64, input service.CreateReviewInput) (*domain.Review, error)
}

// FavoriteService toggles and lists favorites.
type FavoriteService interface {
	Toggle(ctx context.Context, userID int64, shoeID string) (bool, error)
	List(ctx context.Context, userID int64) ([]domain.ShoeView, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, httputil.Response{Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeData(w, status, messageResponse{Message: msg})
}

// viewerFromRequest returns the authenticated viewer, or an anonymous one
// when OptionalAuth found no token.
func viewerFromRequest(r *http.Request) domain.Viewer {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		return domain.AuthenticatedViewer(userID)
	}
	return domain.Anonymous()
}

// requireUserID writes a 401 and returns false when the request carries no
// authenticated user.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return 0, false
	}
	return userID, true
}
