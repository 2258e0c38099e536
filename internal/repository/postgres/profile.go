package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/database"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns the profile belonging to the user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (_ *domain.Profile, err error) {
	query := `
		SELECT user_id, foot_width, arch_type, uses_orthotics, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProfile", query)
	defer func() { end(err) }()

	var p domain.Profile
	err = r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FootWidth, &p.ArchType, &p.UsesOrthotics, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// Upsert creates the profile or replaces every field of the existing one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) (err error) {
	query := `
		INSERT INTO user_profiles (user_id, foot_width, arch_type, uses_orthotics)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET foot_width = EXCLUDED.foot_width,
		    arch_type = EXCLUDED.arch_type,
		    uses_orthotics = EXCLUDED.uses_orthotics,
		    updated_at = NOW()
		RETURNING updated_at`

	ctx, end := database.TraceQuery(ctx, "UpsertProfile", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, p.UserID, p.FootWidth, p.ArchType, p.UsesOrthotics).Scan(&p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
