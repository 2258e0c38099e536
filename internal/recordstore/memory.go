package recordstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// MemoryStore is an in-process Store for local development and tests.
// Inserted rows get an auto-incrementing "id" and a "created_at" timestamp
// when those columns are absent.
type MemoryStore struct {
	mu      sync.RWMutex
	tables  map[Collection][]Row
	nextID  map[Collection]int64
	unique  map[Collection][]string
	nowFunc func() time.Time
	failErr error
}

// NewMemoryStore returns an empty store. Favorites are unique on
// (user_id, shoe_id), matching the hosted schema.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[Collection][]Row),
		nextID: make(map[Collection]int64),
		unique: map[Collection][]string{
			Shoes:     {"shoe_id"},
			Favorites: {"user_id", "shoe_id"},
		},
		nowFunc: time.Now,
	}
}

// Seed appends rows to c without applying defaults or uniqueness checks.
func (s *MemoryStore) Seed(c Collection, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.observeID(c, r)
		s.tables[c] = append(s.tables[c], r.Clone())
	}
}

// observeID moves the id sequence of c past an explicit integer id so later
// inserts never reuse it. Callers hold s.mu.
func (s *MemoryStore) observeID(c Collection, r Row) {
	if id, ok := toInt64(r["id"]); ok && id > s.nextID[c] {
		s.nextID[c] = id
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Select implements Store.
func (s *MemoryStore) Select(_ context.Context, c Collection, q Query) ([]Row, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	if q.Empty() {
		return []Row{}, nil
	}

	out := make([]Row, 0)
	for _, r := range s.tables[c] {
		if matchesFilters(r, q.Filters) && matchesSearch(r, q.Search) {
			out = append(out, r.Clone())
		}
	}

	if q.OrderBy != "" {
		slices.SortStableFunc(out, func(a, b Row) int {
			n := compareValues(a[q.OrderBy], b[q.OrderBy])
			if q.Descending {
				return -n
			}
			return n
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, c Collection, row Row) (Row, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}

	if cols := s.unique[c]; len(cols) > 0 {
		key := make([]Filter, len(cols))
		for i, col := range cols {
			key[i] = Eq(col, row[col])
		}
		for _, existing := range s.tables[c] {
			if matchesFilters(existing, key) {
				return nil, apperrors.Conflict(fmt.Sprintf("%s: duplicate key on (%s)", c, strings.Join(cols, ", ")))
			}
		}
	}

	stored := row.Clone()
	s.observeID(c, stored)
	if _, ok := stored["id"]; !ok && c != Shoes {
		s.nextID[c]++
		stored["id"] = s.nextID[c]
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = s.nowFunc().UTC()
	}
	s.tables[c] = append(s.tables[c], stored)
	return stored.Clone(), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, c Collection, filters ...Filter) (int, error) {
	if err := checkCollection(c); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrUnfilteredDelete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return 0, s.failErr
	}
	if emptyFilters(filters) {
		return 0, nil
	}

	kept := s.tables[c][:0]
	removed := 0
	for _, r := range s.tables[c] {
		if matchesFilters(r, filters) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[c] = kept
	return removed, nil
}
