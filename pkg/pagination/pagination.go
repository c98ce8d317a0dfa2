package pagination

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when no page, or a malformed one, is provided.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs parsed from a query string.
type Params struct {
	Page  int
	Limit int
	// PageExplicit is set when the caller supplied a usable page number.
	PageExplicit bool
}

// Parse reads raw page/limit values. Malformed or out of range values fall
// back to defaults instead of failing.
func Parse(rawPage, rawLimit string, defaultLimit, maxLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	p := Params{Page: DefaultPage, Limit: defaultLimit}
	if page, ok := positiveInt(rawPage); ok {
		p.Page = page
		p.PageExplicit = true
	}
	if limit, ok := positiveInt(rawLimit); ok {
		p.Limit = limit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Offset is the number of rows skipped before the page starts. A page too
// large to address saturates at math.MaxInt, which is past any result set.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

func positiveInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
