// Package postgres implements recordstore.Store on the shoes, reviews and
// favorites tables of a PostgreSQL database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/database"
)

// columns is the allowlist of identifiers that may appear in generated SQL.
var columns = map[recordstore.Collection][]string{
	recordstore.Shoes: {
		"shoe_id", "brand", "name", "slug", "description", "weight_lab_oz",
		"heel_stack_mm", "forefoot_stack_mm", "drop_mm", "durability_score",
		"cushioning_score", "stability_score", "img_url",
	},
	recordstore.Reviews:   {"id", "shoe_id", "user_id", "rating", "review_text", "created_at"},
	recordstore.Favorites: {"id", "user_id", "shoe_id", "created_at"},
}

// Store runs generated SQL through a pgx pool or transaction.
type Store struct {
	db database.DBTX
}

// New creates a PostgreSQL record store.
func New(db database.DBTX) *Store {
	return &Store{db: db}
}

// Select implements recordstore.Store.
func (s *Store) Select(ctx context.Context, c recordstore.Collection, q recordstore.Query) (_ []recordstore.Row, err error) {
	if q.Empty() {
		return []recordstore.Row{}, nil
	}
	b, err := newBuilder(c)
	if err != nil {
		return nil, err
	}

	sql := "SELECT " + strings.Join(columns[c], ", ") + " FROM " + string(c)
	where, err := b.where(q.Filters, q.Search)
	if err != nil {
		return nil, err
	}
	sql += where
	if q.OrderBy != "" {
		if !b.known(q.OrderBy) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown column %q", q.OrderBy))
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		sql += " ORDER BY " + q.OrderBy + " " + dir
	}
	if q.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(q.Limit)
	}

	ctx, end := database.TraceQuery(ctx, "Select"+title(c), sql)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c, err)
	}

	out := make([]recordstore.Row, len(maps))
	for i, m := range maps {
		out[i] = recordstore.Row(m)
	}
	return out, nil
}

// Insert implements recordstore.Store.
func (s *Store) Insert(ctx context.Context, c recordstore.Collection, row recordstore.Row) (_ recordstore.Row, err error) {
	b, err := newBuilder(c)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, apperrors.InvalidInput("insert requires at least one column")
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		if !b.known(col) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown column %q", col))
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	for i, col := range cols {
		placeholders[i] = b.bind(row[col])
	}

	sql := "INSERT INTO " + string(c) + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") RETURNING " + strings.Join(columns[c], ", ")

	ctx, end := database.TraceQuery(ctx, "Insert"+title(c), sql)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, translate(c, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(c, err)
	}
	return recordstore.Row(m), nil
}

// Delete implements recordstore.Store.
func (s *Store) Delete(ctx context.Context, c recordstore.Collection, filters ...recordstore.Filter) (_ int, err error) {
	if len(filters) == 0 {
		return 0, recordstore.ErrUnfilteredDelete
	}
	if recordstore.Where(filters...).Empty() {
		return 0, nil
	}
	b, err := newBuilder(c)
	if err != nil {
		return 0, err
	}
	where, err := b.where(filters, nil)
	if err != nil {
		return 0, err
	}
	sql := "DELETE FROM " + string(c) + where

	ctx, end := database.TraceQuery(ctx, "Delete"+title(c), sql)
	defer func() { end(err) }()

	tag, err := s.db.Exec(ctx, sql, b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c, err)
	}
	return int(tag.RowsAffected()), nil
}

type builder struct {
	collection recordstore.Collection
	args       []any
}

func newBuilder(c recordstore.Collection) (*builder, error) {
	if _, ok := columns[c]; !ok {
		return nil, fmt.Errorf("%w: %q", recordstore.ErrUnknownCollection, string(c))
	}
	return &builder{collection: c}, nil
}

func (b *builder) known(col string) bool {
	return slices.Contains(columns[b.collection], col)
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) where(filters []recordstore.Filter, search *recordstore.Search) (string, error) {
	var conds []string
	for _, f := range filters {
		if !b.known(f.Column) {
			return "", apperrors.InvalidInput(fmt.Sprintf("unknown column %q", f.Column))
		}
		switch f.Op {
		case recordstore.OpEq:
			conds = append(conds, f.Column+" = "+b.bind(f.Value))
		case recordstore.OpIn:
			conds = append(conds, f.Column+" = ANY("+b.bind(typedSlice(f.Values))+")")
		}
	}

	if search != nil && search.Term != "" && len(search.Columns) > 0 {
		p := b.bind("%" + escapeLike(search.Term) + "%")
		ors := make([]string, 0, len(search.Columns))
		for _, col := range search.Columns {
			if !b.known(col) {
				return "", apperrors.InvalidInput(fmt.Sprintf("unknown column %q", col))
			}
			ors = append(ors, col+" ILIKE "+p)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

// typedSlice converts homogeneous values into a slice pgx can encode as a
// PostgreSQL array.
func typedSlice(values []any) any {
	strs := make([]string, 0, len(values))
	ints := make([]int64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case string:
			strs = append(strs, n)
		case int:
			ints = append(ints, int64(n))
		case int32:
			ints = append(ints, int64(n))
		case int64:
			ints = append(ints, n)
		default:
			return values
		}
	}
	switch {
	case len(strs) == len(values):
		return strs
	case len(ints) == len(values):
		return ints
	}
	return values
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func title(c recordstore.Collection) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func translate(c recordstore.Collection, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.Conflict(fmt.Sprintf("%s: %s", c, pgErr.Detail))
	}
	return fmt.Errorf("insert %s: %w", c, err)
}
