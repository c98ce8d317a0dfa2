package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// SortKey orders by one field; earlier keys take priority.
type SortKey struct {
	Field Field
	Desc  bool
}

func (k SortKey) orderBy() clause.OrderByColumn {
	return clause.OrderByColumn{Column: k.Field.column(), Desc: k.Desc}
}

// parseSort reads "field1,-field2". An empty value yields no keys.
func (s Schema) parseSort(raw string) ([]SortKey, error) {
	var keys []SortKey
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")

		field, ok := s.fields[name]
		if !ok {
			return nil, fmt.Errorf("unknown sort field %q", name)
		}
		if field.NoSort {
			return nil, fmt.Errorf("field %q cannot be sorted", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}
	return keys, nil
}

// withTiebreaker appends the id so equal keys still produce a stable order
// across pages.
func (s Schema) withTiebreaker(keys []SortKey) []SortKey {
	for _, k := range keys {
		if k.Field.Name == IDField {
			return keys
		}
	}
	return append(keys, SortKey{Field: s.id()})
}
