package repository

import (
	"context"
	"time"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and sets its generated ID and DateJoined.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email address, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Activate marks the account as verified.
	Activate(ctx context.Context, id int64) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// DisplayNames returns the username of every listed user that exists.
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ProfileRepository defines the interface for runner profile persistence.
type ProfileRepository interface {
	// GetByUserID returns the user's profile, or apperrors.ErrNotFound.
	GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error)

	// Upsert creates or replaces the user's profile.
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID int64) error

	// Revoke revokes a single refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error
}

// ShoeRepository reads the shoe catalog.
type ShoeRepository interface {
	// List returns every shoe ordered by shoe_id.
	List(ctx context.Context) ([]domain.Shoe, error)

	// Search returns shoes whose brand or name contains term, ordered by shoe_id.
	Search(ctx context.Context, term string) ([]domain.Shoe, error)

	// GetBySlug returns the shoe with the given slug, or apperrors.ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (*domain.Shoe, error)

	// GetByID returns a shoe by identifier, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, shoeID string) (*domain.Shoe, error)

	// ListByIDs returns the listed shoes that exist, ordered by shoe_id.
	ListByIDs(ctx context.Context, shoeIDs []string) ([]domain.Shoe, error)
}

// ReviewRepository stores shoe reviews.
type ReviewRepository interface {
	// Create inserts a review and fills in its generated ID and CreatedAt.
	Create(ctx context.Context, review *domain.Review) error

	// ListByShoe returns a shoe's reviews, newest first.
	ListByShoe(ctx context.Context, shoeID string) ([]domain.Review, error)

	// ListByShoeIDs returns all reviews of the listed shoes in a single call.
	ListByShoeIDs(ctx context.Context, shoeIDs []string) ([]domain.Review, error)
}

// FavoriteRepository stores the user to shoe favorite relation.
type FavoriteRepository interface {
	// Add saves a favorite. Adding an existing pair is a conflict.
	Add(ctx context.Context, userID int64, shoeID string) error

	// Remove deletes a favorite and reports whether one existed.
	Remove(ctx context.Context, userID int64, shoeID string) (bool, error)

	// Exists reports whether the user has favorited the shoe.
	Exists(ctx context.Context, userID int64, shoeID string) (bool, error)

	// ListShoeIDs returns the shoe ids the user has favorited, newest first.
	// A non-nil among restricts the result to those ids.
	ListShoeIDs(ctx context.Context, userID int64, among []string) ([]string, error)
}
