// Package recordstore is a small query interface over the shoe, review and
// favorite tables. Implementations exist for the Supabase REST API, a
// PostgreSQL schema and process memory.
package recordstore

import (
	"context"
	"errors"
	"fmt"
)

// Collection names a table in the record store.
type Collection string

const (
	Shoes     Collection = "shoes"
	Reviews   Collection = "reviews"
	Favorites Collection = "favorites"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Shoes, Reviews, Favorites:
		return true
	}
	return false
}

// ErrUnknownCollection is returned for a collection name outside the schema.
var ErrUnknownCollection = errors.New("recordstore: unknown collection")

// Op is a filter comparison.
type Op int

const (
	// OpEq matches rows whose column equals Value.
	OpEq Op = iota
	// OpIn matches rows whose column equals any of Values.
	OpIn
)

// Filter restricts a query or delete to matching rows.
type Filter struct {
	Column string
	Op     Op
	Value  any
	Values []any
}

// Eq matches column == v.
func Eq(column string, v any) Filter {
	return Filter{Column: column, Op: OpEq, Value: v}
}

// In matches column against any of vs. An empty vs matches nothing.
func In[T any](column string, vs []T) Filter {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return Filter{Column: column, Op: OpIn, Values: values}
}

// Search is a case-insensitive substring match across several columns; a
// row matches when any column contains Term.
type Search struct {
	Columns []string
	Term    string
}

// Query describes a select.
type Query struct {
	Filters    []Filter
	Search     *Search
	OrderBy    string
	Descending bool
	Limit      int
}

// Where returns a query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// Empty reports whether a filter in q can never match, such as an In filter
// with no values. Stores skip the round trip for such queries.
func (q Query) Empty() bool {
	return emptyFilters(q.Filters)
}

func emptyFilters(filters []Filter) bool {
	for _, f := range filters {
		if f.Op == OpIn && len(f.Values) == 0 {
			return true
		}
	}
	return false
}

// Store is the table access the catalog needs.
type Store interface {
	// Select returns rows of c matching q.
	Select(ctx context.Context, c Collection, q Query) ([]Row, error)

	// Insert stores row in c and returns it as persisted, including any
	// generated columns.
	Insert(ctx context.Context, c Collection, row Row) (Row, error)

	// Delete removes rows of c matching all filters and returns how many were
	// removed. At least one filter is required.
	Delete(ctx context.Context, c Collection, filters ...Filter) (int, error)
}

// ErrUnfilteredDelete guards against deleting a whole collection.
var ErrUnfilteredDelete = errors.New("recordstore: delete requires at least one filter")

func checkCollection(c Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return nil
}
