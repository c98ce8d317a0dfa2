package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// Operator is a comparison allowed in list filters.
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

// rangeOperators is the complete set of bracket suffixes a client may use.
var rangeOperators = map[string]Operator{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
}

// Condition is a typed filter on one schema field.
type Condition struct {
	Field  Field
	Op     Operator
	Values []any
}

// Expression renders the condition with GORM clause constructors so values are
// always bound as parameters.
func (c Condition) Expression() clause.Expression {
	col := c.Field.column()
	var value any
	if len(c.Values) > 0 {
		value = c.Values[0]
	}
	switch c.Op {
	case OpGt:
		return clause.Gt{Column: col, Value: value}
	case OpGte:
		return clause.Gte{Column: col, Value: value}
	case OpLt:
		return clause.Lt{Column: col, Value: value}
	case OpLte:
		return clause.Lte{Column: col, Value: value}
	default:
		if len(c.Values) > 1 {
			return clause.IN{Column: col, Values: c.Values}
		}
		return clause.Eq{Column: col, Value: value}
	}
}

// splitFilterKey separates "price[gte]" into ("price", "gte", true). Keys
// without brackets are equality filters.
func splitFilterKey(key string) (name, op string, bracketed bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, "", false
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return key, "", true
	}
	return key[:open], key[open+1 : len(key)-1], true
}

func (s Schema) parseFilter(key string, raw []string) ([]Condition, error) {
	name, opToken, bracketed := splitFilterKey(key)
	field, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter field %q", name)
	}
	if field.NoFilter {
		return nil, fmt.Errorf("field %q cannot be filtered", name)
	}

	if !bracketed {
		values := make([]any, 0, len(raw))
		for _, r := range raw {
			v, err := field.coerce(r)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return []Condition{{Field: field, Op: OpEq, Values: values}}, nil
	}

	op, ok := rangeOperators[opToken]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %q on %s", opToken, name)
	}
	if !field.supportsRange() {
		return nil, fmt.Errorf("operator %q is not supported on %s", opToken, name)
	}

	conds := make([]Condition, 0, len(raw))
	for _, r := range raw {
		v, err := field.coerce(r)
		if err != nil {
			return nil, err
		}
		conds = append(conds, Condition{Field: field, Op: op, Values: []any{v}})
	}
	return conds, nil
}
