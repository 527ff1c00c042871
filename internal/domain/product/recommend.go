package product

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBrowseLimit = 6
	MaxBrowseLimit     = 24
)

var (
	closePrice = decimal.RequireFromString("0.15")
	nearPrice  = decimal.RequireFromString("0.3")
)

// BrowseQuery selects recommended products.
type BrowseQuery struct {
	Limit    int
	Exclude  []string
	Type     Type
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	// OutOfStock includes products with no inventory.
	OutOfStock bool
	// SeedIDs are products the shopper looked at. Candidates similar to them
	// rank first.
	SeedIDs []string
}

// Browse returns up to q.Limit products. Without seeds the best rated and
// newest come first. With seeds candidates are ranked by how much they share
// type, brand, material, colors, features and price range with the seeds.
func (c *Catalog) Browse(ctx context.Context, q BrowseQuery) ([]Product, error) {
	if q.Type != TypeAny && q.Type != TypeCollection && q.Type != TypeBag {
		return nil, errors.Wrap(ErrInvalidFilter, "type must be 1 or 2")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, errors.Wrap(ErrInvalidFilter, "priceMin must not exceed priceMax")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultBrowseLimit
	case q.Limit > MaxBrowseLimit:
		q.Limit = MaxBrowseLimit
	}

	f := ListFilter{Type: q.Type, Availability: AvailabilityInStock}
	if q.OutOfStock {
		f.Availability = AvailabilityAll
	}

	var candidates, seeds []Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if candidates, err = c.store.List(gctx, f); err != nil {
			return errors.Wrap(err, "list candidates")
		}
		return nil
	})
	if ids := cleanList(q.SeedIDs); len(ids) > 0 {
		g.Go(func() error {
			var err error
			if seeds, err = c.store.GetByIDs(gctx, ids); err != nil {
				return errors.Wrap(err, "get seeds")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(q.Exclude))
	for _, id := range q.Exclude {
		excluded[strings.TrimSpace(id)] = struct{}{}
	}
	candidates = slices.DeleteFunc(candidates, func(p Product) bool {
		if _, ok := excluded[p.ID]; ok {
			return true
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			return true
		}
		return q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice)
	})

	byQuality := func(a, b Product) int {
		if r := b.Rating.Cmp(a.Rating); r != 0 {
			return r
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	}
	if len(seeds) == 0 {
		slices.SortStableFunc(candidates, byQuality)
	} else {
		profile := newSeedProfile(seeds)
		scores := make(map[string]int, len(candidates))
		for _, p := range candidates {
			scores[p.ID] = profile.score(p)
		}
		slices.SortStableFunc(candidates, func(a, b Product) int {
			if r := cmp.Compare(scores[b.ID], scores[a.ID]); r != 0 {
				return r
			}
			return byQuality(a, b)
		})
	}

	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	return candidates, nil
}

type set map[string]struct{}

func (s set) add(v string) {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		s[v] = struct{}{}
	}
}

func (s set) has(v string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// overlap counts distinct values shared with s.
func (s set) overlap(values []string) int {
	seen := make(set, len(values))
	for _, v := range values {
		seen.add(v)
	}
	n := 0
	for v := range seen {
		if _, ok := s[v]; ok {
			n++
		}
	}
	return n
}

type seedProfile struct {
	types     map[Type]struct{}
	brands    set
	materials set
	colors    set
	features  set
	avgPrice  decimal.Decimal
}

func newSeedProfile(seeds []Product) seedProfile {
	sp := seedProfile{
		types:     make(map[Type]struct{}),
		brands:    make(set),
		materials: make(set),
		colors:    make(set),
		features:  make(set),
	}
	sum := decimal.Zero
	for _, s := range seeds {
		sp.types[s.Type] = struct{}{}
		sp.brands.add(s.Brand)
		sp.materials.add(s.Material)
		for _, c := range s.Colors {
			sp.colors.add(c)
		}
		for _, f := range s.Features {
			sp.features.add(f)
		}
		sum = sum.Add(s.Price)
	}
	sp.avgPrice = sum.Div(decimal.NewFromInt(int64(len(seeds))))
	return sp
}

func (sp seedProfile) score(p Product) int {
	n := 0
	if _, ok := sp.types[p.Type]; ok {
		n += 4
	}
	if sp.brands.has(p.Brand) {
		n += 3
	}
	if sp.materials.has(p.Material) {
		n += 2
	}
	n += min(2, sp.colors.overlap(p.Colors))
	n += min(3, sp.features.overlap(p.Features))

	if sp.avgPrice.IsPositive() && p.Price.IsPositive() {
		diff := p.Price.Sub(sp.avgPrice).Abs().Div(sp.avgPrice)
		switch {
		case diff.LessThanOrEqual(closePrice):
			n += 2
		case diff.LessThanOrEqual(nearPrice):
			n++
		}
	}
	n += min(2, int(p.Rating.Div(decimal.NewFromInt(2)).Floor().IntPart()))
	return n
}
