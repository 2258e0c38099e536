package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

func TestProfileRepository_GetByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewProfileRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM user_profiles").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "foot_width", "arch_type", "uses_orthotics", "updated_at"}).
			AddRow(int64(7), "Wide", "Flat", true, now))
	mock.ExpectQuery("FROM user_profiles").
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByUserID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{UserID: 7, FootWidth: "Wide", ArchType: "Flat", UsesOrthotics: true, UpdatedAt: now}, p)

	_, err = repo.GetByUserID(context.Background(), 8)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewProfileRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("ON CONFLICT \\(user_id\\) DO UPDATE").
		WithArgs(int64(7), "Regular", "High", false).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))

	p := &domain.Profile{UserID: 7, FootWidth: "Regular", ArchType: "High"}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, now, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_Upsert_UnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO user_profiles").
		WithArgs(int64(99), "Wide", "Normal", true).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err = NewProfileRepository(mock).Upsert(context.Background(),
		&domain.Profile{UserID: 99, FootWidth: "Wide", ArchType: "Normal", UsesOrthotics: true})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
