// Package records maps record store rows onto domain types for the shoes,
// reviews and favorites collections.
package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

var searchColumns = []string{"brand", "name"}

// ShoeRepository reads the shoes collection.
type ShoeRepository struct {
	store recordstore.Store
}

// NewShoeRepository creates a shoe repository over store.
func NewShoeRepository(store recordstore.Store) *ShoeRepository {
	return &ShoeRepository{store: store}
}

// List returns every shoe ordered by shoe_id.
func (r *ShoeRepository) List(ctx context.Context) ([]domain.Shoe, error) {
	return r.selectShoes(ctx, recordstore.Query{OrderBy: "shoe_id"})
}

// Search returns shoes whose brand or name contains term.
func (r *ShoeRepository) Search(ctx context.Context, term string) ([]domain.Shoe, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Shoe{}, nil
	}
	return r.selectShoes(ctx, recordstore.Query{
		Search:  &recordstore.Search{Columns: searchColumns, Term: term},
		OrderBy: "shoe_id",
	})
}

// GetBySlug returns the shoe with the given slug.
func (r *ShoeRepository) GetBySlug(ctx context.Context, slug string) (*domain.Shoe, error) {
	return r.getOne(ctx, "slug", slug)
}

// GetByID returns the shoe with the given identifier.
func (r *ShoeRepository) GetByID(ctx context.Context, shoeID string) (*domain.Shoe, error) {
	return r.getOne(ctx, "shoe_id", shoeID)
}

// ListByIDs returns the listed shoes that exist, ordered by shoe_id.
func (r *ShoeRepository) ListByIDs(ctx context.Context, shoeIDs []string) ([]domain.Shoe, error) {
	return r.selectShoes(ctx, recordstore.Query{
		Filters: []recordstore.Filter{recordstore.In("shoe_id", shoeIDs)},
		OrderBy: "shoe_id",
	})
}

func (r *ShoeRepository) getOne(ctx context.Context, column, value string) (*domain.Shoe, error) {
	shoes, err := r.selectShoes(ctx, recordstore.Query{
		Filters: []recordstore.Filter{recordstore.Eq(column, value)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(shoes) == 0 {
		return nil, apperrors.NotFound("shoe", value)
	}
	return &shoes[0], nil
}

func (r *ShoeRepository) selectShoes(ctx context.Context, q recordstore.Query) ([]domain.Shoe, error) {
	rows, err := r.store.Select(ctx, recordstore.Shoes, q)
	if err != nil {
		return nil, fmt.Errorf("select shoes: %w", err)
	}
	shoes := make([]domain.Shoe, len(rows))
	for i, row := range rows {
		shoes[i] = shoeFromRow(row)
	}
	return shoes, nil
}

func shoeFromRow(row recordstore.Row) domain.Shoe {
	return domain.Shoe{
		ShoeID:          row.String("shoe_id"),
		Brand:           row.String("brand"),
		Name:            row.String("name"),
		Slug:            row.String("slug"),
		Description:     row.String("description"),
		WeightLabOz:     row.Float("weight_lab_oz"),
		HeelStackMM:     row.Float("heel_stack_mm"),
		ForefootStackMM: row.Float("forefoot_stack_mm"),
		DropMM:          row.Float("drop_mm"),
		DurabilityScore: row.Float("durability_score"),
		CushioningScore: row.Float("cushioning_score"),
		StabilityScore:  row.Float("stability_score"),
		ImgURL:          row.String("img_url"),
	}
}
