// Package pagination normalizes page/limit pairs and derives page metadata.
package pagination

const (
	// DefaultLimit is used when the client omits limit or sends a non-positive value.
	DefaultLimit = 20
	// MaxLimit caps the supported page size to prevent unbounded queries.
	MaxLimit = 100
)

// Params is a normalized page request. Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// New clamps page to >= 1 and limit to [1, MaxLimit], substituting
// DefaultLimit for a missing limit.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta describes a returned page.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// MetaFor builds page metadata for total matching rows.
func (p Params) MetaFor(total int) Meta {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		Total: total,
		Page:  p.Page,
		Pages: pages,
		Limit: p.Limit,
	}
}
