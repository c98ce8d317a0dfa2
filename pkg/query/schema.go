package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// Kind selects how raw query-string values are coerced for a field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
	KindUUID
)

// IDField is the client name of the primary key every schema must expose.
const IDField = "id"

// Field is one allow-listed attribute of a resource.
type Field struct {
	// Name is the client-facing name used in filters, sort and fields.
	Name   string
	Column string
	Kind   Kind
	// NoFilter and NoSort remove the field from the respective clauses.
	NoFilter bool
	NoSort   bool
	// Hidden fields are left out of the default projection.
	Hidden bool
}

func (f Field) column() clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: f.Column}
}

func (f Field) supportsRange() bool {
	switch f.Kind {
	case KindNumber, KindTime, KindString:
		return true
	default:
		return false
	}
}

func (f Field) coerce(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s must be a number", f.Name)
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", f.Name)
		}
		return v, nil
	case KindTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if v, err := time.Parse(layout, raw); err == nil {
				return v.UTC(), nil
			}
		}
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", f.Name)
	case KindUUID:
		v, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid id", f.Name)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// Schema is the allow-list a resource exposes to list queries. Anything not
// declared here cannot be filtered, sorted or projected.
type Schema struct {
	fields      map[string]Field
	ordered     []Field
	defaultSort []SortKey
}

// MustSchema builds a schema and panics on a programming error such as a
// missing id field or an invalid default sort.
func MustSchema(defaultSort string, fields ...Field) Schema {
	s := Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Name == "" || f.Column == "" {
			panic("query: field requires name and column")
		}
		if _, dup := s.fields[f.Name]; dup {
			panic(fmt.Sprintf("query: duplicate field %q", f.Name))
		}
		s.fields[f.Name] = f
		s.ordered = append(s.ordered, f)
	}
	if id, ok := s.fields[IDField]; !ok || id.Kind != KindUUID {
		panic("query: schema requires a uuid id field")
	}

	keys, err := s.parseSort(defaultSort)
	if err != nil {
		panic(fmt.Sprintf("query: invalid default sort %q: %v", defaultSort, err))
	}
	s.defaultSort = keys
	return s
}

// Lookup returns the field registered under name.
func (s Schema) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Where builds an equality condition for code-supplied base filters.
func (s Schema) Where(name string, value any) Condition {
	f, ok := s.fields[name]
	if !ok {
		panic(fmt.Sprintf("query: unknown field %q", name))
	}
	return Condition{Field: f, Op: OpEq, Values: []any{value}}
}

// DefaultProjection lists every non-hidden field.
func (s Schema) DefaultProjection() Projection {
	var p Projection
	for _, f := range s.ordered {
		if !f.Hidden {
			p.fields = append(p.fields, f)
		}
	}
	return p
}

func (s Schema) id() Field {
	return s.fields[IDField]
}
