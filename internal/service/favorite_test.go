package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository/records"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

func newFavoriteService(store recordstore.Store) *FavoriteService {
	return NewFavoriteService(
		records.NewFavoriteRepository(store),
		records.NewShoeRepository(store),
		records.NewReviewRepository(store),
		newTestLogger(),
	)
}

func TestFavoriteService_Toggle(t *testing.T) {
	store := seededCatalog()
	svc := newFavoriteService(store)
	repo := records.NewFavoriteRepository(store)
	ctx := context.Background()

	on, err := svc.Toggle(ctx, 5, "S001")
	require.NoError(t, err)
	assert.True(t, on)
	exists, err := repo.Exists(ctx, 5, "S001")
	require.NoError(t, err)
	assert.True(t, exists)

	on, err = svc.Toggle(ctx, 5, "S001")
	require.NoError(t, err)
	assert.False(t, on)
	exists, err = repo.Exists(ctx, 5, "S001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFavoriteService_Toggle_Errors(t *testing.T) {
	svc := newFavoriteService(seededCatalog())
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 5, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Toggle(ctx, 5, "S999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

type mockFavoriteRepository struct {
	mock.Mock
}

func (m *mockFavoriteRepository) Add(ctx context.Context, userID int64, shoeID string) error {
	return m.Called(ctx, userID, shoeID).Error(0)
}

func (m *mockFavoriteRepository) Remove(ctx context.Context, userID int64, shoeID string) (bool, error) {
	args := m.Called(ctx, userID, shoeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepository) Exists(ctx context.Context, userID int64, shoeID string) (bool, error) {
	args := m.Called(ctx, userID, shoeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepository) ListShoeIDs(ctx context.Context, userID int64, among []string) ([]string, error) {
	args := m.Called(ctx, userID, among)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func TestFavoriteService_Toggle_ConcurrentAdd(t *testing.T) {
	store := seededCatalog()
	favorites := new(mockFavoriteRepository)
	favorites.On("Remove", mock.Anything, int64(5), "S001").Return(false, nil)
	favorites.On("Add", mock.Anything, int64(5), "S001").Return(apperrors.Conflict("favorites: duplicate key"))
	svc := NewFavoriteService(favorites, records.NewShoeRepository(store), records.NewReviewRepository(store), newTestLogger())

	on, err := svc.Toggle(context.Background(), 5, "S001")
	require.NoError(t, err)
	assert.True(t, on)
	favorites.AssertExpectations(t)
}

func TestFavoriteService_List(t *testing.T) {
	store := seededCatalog()
	store.Seed(recordstore.Favorites,
		recordstore.Row{"user_id": int64(1), "shoe_id": "S003", "created_at": day.Add(time.Hour)},
		recordstore.Row{"user_id": int64(1), "shoe_id": "S001", "created_at": day.Add(-time.Hour)},
		recordstore.Row{"user_id": int64(2), "shoe_id": "S002", "created_at": day},
	)
	svc := newFavoriteService(store)

	views, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []string{"S003", "S002", "S001"}, []string{views[0].ShoeID, views[1].ShoeID, views[2].ShoeID})
	for _, v := range views {
		assert.True(t, v.IsFavorite)
	}
	assert.Equal(t, 4.7, views[2].Rating)

	empty, err := svc.List(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShoeView{}, empty)
}

func TestOrderByIDs(t *testing.T) {
	shoes := []domain.Shoe{{ShoeID: "A"}, {ShoeID: "B"}, {ShoeID: "C"}}
	got := orderByIDs(shoes, []string{"C", "X", "A"})
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].ShoeID)
	assert.Equal(t, "A", got[1].ShoeID)
}
