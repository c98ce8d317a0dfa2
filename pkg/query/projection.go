package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Projection is the ordered set of fields returned to the client. The id is
// always part of it.
type Projection struct {
	fields []Field
	// extra names expanded relations that have no column of their own.
	extra []string
	// keys are selected but never emitted; preloads join on them.
	keys []string
}

// Names returns the client names of the projected fields.
func (p Projection) Names() []string {
	names := make([]string, 0, len(p.fields)+len(p.extra))
	for _, f := range p.fields {
		names = append(names, f.Name)
	}
	return append(names, p.extra...)
}

// Including returns a copy that also keeps the given relation keys.
func (p Projection) Including(relations ...string) Projection {
	out := Projection{fields: p.fields, keys: p.keys}
	out.extra = append(append([]string(nil), p.extra...), relations...)
	return out
}

// WithKeys returns a copy that also selects the given columns.
func (p Projection) WithKeys(columns ...string) Projection {
	out := Projection{fields: p.fields, extra: p.extra}
	out.keys = append(append([]string(nil), p.keys...), columns...)
	return out
}

// Columns returns the database columns backing the projection.
func (p Projection) Columns() []string {
	cols := make([]string, 0, len(p.fields)+len(p.keys))
	seen := make(map[string]bool, cap(cols))
	for _, f := range p.fields {
		cols = append(cols, f.Column)
		seen[f.Column] = true
	}
	for _, k := range p.keys {
		if !seen[k] {
			cols = append(cols, k)
			seen[k] = true
		}
	}
	return cols
}

func (s Schema) parseFields(raw string) (Projection, error) {
	var include, exclude []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			exclude = append(exclude, strings.TrimPrefix(part, "-"))
		} else {
			include = append(include, part)
		}
	}

	if len(include) > 0 && len(exclude) > 0 {
		return Projection{}, fmt.Errorf("fields cannot mix inclusion and exclusion")
	}
	for _, name := range append(include, exclude...) {
		if _, ok := s.fields[name]; !ok {
			return Projection{}, fmt.Errorf("unknown field %q", name)
		}
	}

	switch {
	case len(include) > 0:
		want := map[string]bool{IDField: true}
		for _, name := range include {
			want[name] = true
		}
		var p Projection
		for _, f := range s.ordered {
			if want[f.Name] {
				p.fields = append(p.fields, f)
			}
		}
		return p, nil
	case len(exclude) > 0:
		drop := map[string]bool{}
		for _, name := range exclude {
			if name != IDField {
				drop[name] = true
			}
		}
		var p Projection
		for _, f := range s.DefaultProjection().fields {
			if !drop[f.Name] {
				p.fields = append(p.fields, f)
			}
		}
		return p, nil
	default:
		return s.DefaultProjection(), nil
	}
}

// Document is the outward representation of one record.
type Document map[string]any

// Project renders items through their JSON encoding and keeps only the
// projected keys, so fields tagged json:"-" can never be emitted.
func Project[T any](items []T, p Projection) ([]Document, error) {
	names := p.Names()
	docs := make([]Document, 0, len(items))
	for i := range items {
		raw, err := json.Marshal(&items[i])
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		var full map[string]any
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		doc := make(Document, len(names))
		for _, name := range names {
			if v, ok := full[name]; ok {
				doc[name] = v
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ProjectOne is Project for a single record.
func ProjectOne[T any](item *T, p Projection) (Document, error) {
	docs, err := Project([]T{*item}, p)
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}
