package query

import (
	"net/url"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/pagination"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reserved query-string keys that control the query instead of filtering it.
const (
	KeyPage   = "page"
	KeySort   = "sort"
	KeyLimit  = "limit"
	KeyFields = "fields"
)

var reservedKeys = map[string]bool{KeyPage: true, KeySort: true, KeyLimit: true, KeyFields: true}

// MsgPageNotFound is returned when an explicit page starts past the last row.
const MsgPageNotFound = "This page does not exist"

// Options bound pagination for a resource.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Request is the parsed, validated form of a list query string.
type Request struct {
	Filters    []Condition
	Sort       []SortKey
	Projection Projection
	Page       pagination.Params
}

// Parse validates values against schema. Every violation is reported in a
// single validation error.
func Parse(values url.Values, schema Schema, opts Options) (*Request, error) {
	req := &Request{}
	var errs error

	keys := make([]string, 0, len(values))
	for key := range values {
		if !reservedKeys[key] {
			keys = append(keys, key)
		}
	}
	// deterministic SQL and error messages
	sort.Strings(keys)
	for _, key := range keys {
		conds, err := schema.parseFilter(key, values[key])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		req.Filters = append(req.Filters, conds...)
	}

	sortKeys, err := schema.parseSort(joinValues(values[KeySort]))
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	if len(sortKeys) == 0 {
		sortKeys = append([]SortKey(nil), schema.defaultSort...)
	}
	req.Sort = schema.withTiebreaker(sortKeys)

	req.Projection, err = schema.parseFields(joinValues(values[KeyFields]))
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	req.Page = pagination.Parse(values.Get(KeyPage), values.Get(KeyLimit), opts.DefaultLimit, opts.MaxLimit)

	if errs != nil {
		return nil, validationError(errs)
	}
	return req, nil
}

// Where adds code-supplied conditions, e.g. scoping reviews to a tour.
func (r *Request) Where(conds ...Condition) *Request {
	r.Filters = append(r.Filters, conds...)
	return r
}

// Apply composes filter, sort, projection and pagination onto base, which
// must already target the resource model. When a page was requested
// explicitly the matching rows are counted first and a page starting at or
// past the total fails with NotFound.
func (r *Request) Apply(base *gorm.DB) (*gorm.DB, error) {
	filtered := base
	if len(r.Filters) > 0 {
		exprs := make([]clause.Expression, len(r.Filters))
		for i, c := range r.Filters {
			exprs[i] = c.Expression()
		}
		filtered = filtered.Clauses(clause.Where{Exprs: exprs})
	}

	if r.Page.PageExplicit {
		var total int64
		if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count matching documents")
		}
		if int64(r.Page.Offset()) >= total {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgPageNotFound)
		}
	}

	composed := filtered.Session(&gorm.Session{})
	for _, k := range r.Sort {
		composed = composed.Order(k.orderBy())
	}
	if cols := r.Projection.Columns(); len(cols) > 0 {
		composed = composed.Select(cols)
	}
	return composed.Offset(r.Page.Offset()).Limit(r.Page.Limit), nil
}

func joinValues(values []string) string {
	return strings.Join(values, ",")
}

func validationError(errs error) error {
	parts := multierr.Errors(errs)
	msgs := make([]string, len(parts))
	for i, e := range parts {
		msgs[i] = e.Error()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "Invalid query: "+strings.Join(msgs, ". ")).
		WithDetails(map[string]any{"query": msgs})
}
