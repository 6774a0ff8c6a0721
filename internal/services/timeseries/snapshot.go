// Package timeseries holds the in-memory product and category price table.
//
// A Snapshot is built once from raw rows and never mutated afterwards; the
// Holder publishes a new Snapshot with a single atomic pointer swap so that
// concurrent readers always see a complete table.
package timeseries

import (
	"math"
	"sort"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/services/textmatch"
)

// Snapshot is an immutable view of the price table.
type Snapshot struct {
	version    uint64
	builtAt    time.Time
	rows       []models.PriceRow
	products   map[string]models.Series
	categories map[string]models.Series
	index      []models.ProductInfo
	catKeys    []string
}

// BuildStats reports how many rows were accepted while building a snapshot.
type BuildStats struct {
	Rows       int
	Accepted   int
	Rejected   int
	Products   int
	Categories int
	Version    uint64
}

type dayAcc struct {
	sum   float64
	count int
}

type productAcc struct {
	days     map[time.Time]*dayAcc
	category string
	explicit bool
}

// Empty returns a snapshot with no series.
func Empty() *Snapshot {
	return &Snapshot{
		builtAt:    time.Now(),
		products:   map[string]models.Series{},
		categories: map[string]models.Series{},
	}
}

// Build groups rows into product and category series.
// Rows with an empty name, a zero date, or a non-positive or non-finite price are rejected.
// Several prices for the same product on the same day are averaged.
func Build(rows []models.PriceRow, version uint64) (*Snapshot, BuildStats) {
	stats := BuildStats{Rows: len(rows), Version: version}
	accepted := make([]models.PriceRow, 0, len(rows))
	acc := make(map[string]*productAcc)

	for _, r := range rows {
		key := textmatch.Normalize(r.Name)
		if key == "" || r.Date.IsZero() || !validPrice(r.Price) {
			stats.Rejected++
			continue
		}
		accepted = append(accepted, r)

		p, ok := acc[key]
		if !ok {
			p = &productAcc{days: make(map[time.Time]*dayAcc)}
			acc[key] = p
		}
		if cat := textmatch.NormalizeCategory(r.Category); cat != "" {
			p.category = cat
			p.explicit = true
		} else if !p.explicit && p.category == "" {
			p.category = textmatch.InferCategory(key)
		}

		d := Day(r.Date)
		da, ok := p.days[d]
		if !ok {
			da = &dayAcc{}
			p.days[d] = da
		}
		da.sum += r.Price
		da.count++
	}
	stats.Accepted = len(accepted)

	s := &Snapshot{
		version:    version,
		builtAt:    time.Now(),
		rows:       accepted,
		products:   make(map[string]models.Series, len(acc)),
		categories: make(map[string]models.Series),
		index:      make([]models.ProductInfo, 0, len(acc)),
	}

	members := make(map[string][]models.Series)
	for key, p := range acc {
		series := models.Series{
			Key:          key,
			Kind:         models.SeriesProduct,
			Category:     p.category,
			Observations: collapse(p.days),
		}
		s.products[key] = series

		members[p.category] = append(members[p.category], series)

		last, _ := series.Last()
		s.index = append(s.index, models.ProductInfo{
			Key:       key,
			Category:  p.category,
			Keywords:  textmatch.Keywords(key),
			Points:    series.Len(),
			MeanPrice: series.Mean(),
			LastPrice: last.Price,
			LastDate:  last.Date,
		})
	}

	for cat, ms := range members {
		s.categories[cat] = Average(cat, ms)
		s.catKeys = append(s.catKeys, cat)
	}
	sort.Strings(s.catKeys)
	sort.Slice(s.index, func(i, j int) bool {
		if s.index[i].Points != s.index[j].Points {
			return s.index[i].Points > s.index[j].Points
		}
		return s.index[i].Key < s.index[j].Key
	})

	stats.Products = len(s.products)
	stats.Categories = len(s.categories)
	return s, stats
}

// Average builds a category series holding the per-day mean of the members' prices.
func Average(category string, members []models.Series) models.Series {
	days := make(map[time.Time]*dayAcc)
	for _, m := range members {
		for _, o := range m.Observations {
			da, ok := days[o.Date]
			if !ok {
				da = &dayAcc{}
				days[o.Date] = da
			}
			da.sum += o.Price
			da.count++
		}
	}
	return models.Series{
		Key:          category,
		Kind:         models.SeriesCategory,
		Category:     category,
		Observations: collapse(days),
	}
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

func collapse(days map[time.Time]*dayAcc) []models.Observation {
	out := make([]models.Observation, 0, len(days))
	for d, a := range days {
		out = append(out, models.Observation{Date: d, Price: a.sum / float64(a.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Series returns the product series for a normalized product key.
func (s *Snapshot) Series(productKey string) (models.Series, bool) {
	ser, ok := s.products[productKey]
	return ser, ok
}

// CategorySeries returns the aggregated series for a category key.
func (s *Snapshot) CategorySeries(categoryKey string) (models.Series, bool) {
	ser, ok := s.categories[categoryKey]
	return ser, ok
}

// Categories returns the category keys in lexical order.
func (s *Snapshot) Categories() []string {
	out := make([]string, len(s.catKeys))
	copy(out, s.catKeys)
	return out
}

// Products returns product descriptors ordered by point count (desc) then key.
func (s *Snapshot) Products() []models.ProductInfo {
	out := make([]models.ProductInfo, len(s.index))
	copy(out, s.index)
	return out
}

// Rows returns a copy of the accepted rows the snapshot was built from.
func (s *Snapshot) Rows() []models.PriceRow {
	return append([]models.PriceRow(nil), s.rows...)
}

// Version returns the monotonically increasing snapshot version.
func (s *Snapshot) Version() uint64 { return s.version }

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// ProductCount returns the number of product series.
func (s *Snapshot) ProductCount() int { return len(s.products) }

// CategoryCount returns the number of category series.
func (s *Snapshot) CategoryCount() int { return len(s.categories) }

var _ domrepo.SeriesStore = (*Snapshot)(nil)
