package recordstore

import (
	"cmp"
	"strings"
	"time"
)

// equalValues compares two column values across the numeric and string
// representations the stores produce, so 7, int64(7) and "7" are equal.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return Row{"v": a}.String("v") == Row{"v": b}.String("v")
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(Row{"v": a}.String("v"), Row{"v": b}.String("v"))
}

func matchesFilters(row Row, filters []Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case OpEq:
			if !equalValues(v, f.Value) {
				return false
			}
		case OpIn:
			found := false
			for _, candidate := range f.Values {
				if equalValues(v, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func matchesSearch(row Row, s *Search) bool {
	if s == nil || s.Term == "" {
		return true
	}
	term := strings.ToLower(s.Term)
	for _, col := range s.Columns {
		if strings.Contains(strings.ToLower(row.String(col)), term) {
			return true
		}
	}
	return false
}
