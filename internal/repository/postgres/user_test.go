package postgres

import (
	"context"
	"errors"
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

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "is_active", "date_joined", "updated_at"}).
		AddRow(u.ID, u.Username, u.Email, u.PasswordHash, u.IsActive, u.DateJoined, u.UpdatedAt)
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           7,
		Username:     "budi",
		Email:        "budi@sonix.id",
		PasswordHash: "$2a$12$hash",
		IsActive:     false,
		DateJoined:   now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("budi", "budi@sonix.id", "$2a$12$hash", false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date_joined", "updated_at"}).AddRow(int64(7), now, now))

	u := &domain.User{Username: "budi", Email: "budi@sonix.id", PasswordHash: "$2a$12$hash"}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, now, u.DateJoined)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicates(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		wantMsg    string
	}{
		{"email", "users_email_key", "email"},
		{"username", "users_username_key", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserTestFixture(t)
			mock.ExpectQuery("INSERT INTO users").
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), &domain.User{Username: "budi", Email: "budi@sonix.id"})

			assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Message, tt.wantMsg)
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	u := sampleUser()

	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("BUDI@sonix.id").
		WillReturnRows(userRow(u))

	got, err := repo.GetByEmail(context.Background(), "BUDI@sonix.id")
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("FROM users WHERE id = ").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Activate(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users SET is_active = TRUE").
		WithArgs(pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET is_active = TRUE").
		WithArgs(pgxmock.AnyArg(), int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.Activate(context.Background(), 7))
	assert.ErrorIs(t, repo.Activate(context.Background(), 8), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("new-hash", pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 7, "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DisplayNames(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery(`SELECT id, username FROM users WHERE id = ANY\(\$1\)`).
		WithArgs([]int64{1, 2, 3}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username"}).
			AddRow(int64(1), "budi").
			AddRow(int64(3), "sari"))

	names, err := repo.DisplayNames(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "budi", 3: "sari"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DisplayNames_EmptySkipsQuery(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	names, err := repo.DisplayNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DisplayNames_QueryError(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT id, username FROM users").
		WithArgs([]int64{1}).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.DisplayNames(context.Background(), []int64{1})
	assert.Error(t, err)
}
