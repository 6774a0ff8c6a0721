// Package resolver walks the EXACT → SIMILAR → CATEGORY fallback chain for a product query.
package resolver

import (
	"fmt"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/domain/service"
	"PricePulse/internal/services/textmatch"
	"PricePulse/internal/services/timeseries"
)

// State is a step of the resolution state machine.
type State string

const (
	StateExact    State = "EXACT"
	StateSimilar  State = "SIMILAR"
	StateCategory State = "CATEGORY"
	StateFailed   State = "FAILED"
	stateDone     State = "DONE"
)

const (
	DefaultMinOverlap = 0.2
	DefaultMinPoints  = 1

	// PriceBand is the relative distance from the current price a category
	// member's mean may have to stay in the narrowed CATEGORY series.
	PriceBand      = 0.4
	MinBandMembers = 2
)

// Option configures Resolver.
type Option func(*Resolver)

// WithMinOverlap sets the lowest Jaccard score a SIMILAR match may have.
func WithMinOverlap(v float64) Option {
	return func(r *Resolver) {
		if v > 0 && v <= 1 {
			r.minOverlap = v
		}
	}
}

// WithMinPoints sets how many observations a product series needs before
// EXACT or SIMILAR accept it.
func WithMinPoints(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minPoints = n
		}
	}
}

// Resolver is stateless between calls; each Resolve runs its own machine.
type Resolver struct {
	minOverlap float64
	minPoints  int
}

func New(opts ...Option) *Resolver {
	r := &Resolver{minOverlap: DefaultMinOverlap, minPoints: DefaultMinPoints}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run carries one resolution through the state machine.
type run struct {
	r     *Resolver
	store domrepo.SeriesStore
	q     models.ProductQuery
	res   models.Resolution
}

type stepFunc func(*run) State

// Resolve tries each tier once and in order. It returns ErrNoDataAvailable when all fail.
func (r *Resolver) Resolve(store domrepo.SeriesStore, q models.ProductQuery) (models.Resolution, error) {
	steps := map[State]stepFunc{
		StateExact:    (*run).exact,
		StateSimilar:  (*run).similar,
		StateCategory: (*run).category,
	}
	ru := &run{r: r, store: store, q: q}

	state := StateExact
	for {
		ru.res.Trace = append(ru.res.Trace, string(state))
		if state == StateFailed {
			return ru.res, fmt.Errorf("%w: %q", models.ErrNoDataAvailable, q.RawName)
		}
		next := steps[state](ru)
		if next == stateDone {
			return ru.res, nil
		}
		state = next
	}
}

func (ru *run) exact() State {
	if ru.q.Key == "" {
		return StateSimilar
	}
	s, ok := ru.store.Series(ru.q.Key)
	if !ok || s.Len() < ru.r.minPoints {
		return StateSimilar
	}
	ru.accept(s, models.SourceExact, s.Key, 1)
	return stateDone
}

func (ru *run) similar() State {
	if len(ru.q.Keywords) == 0 {
		return StateCategory
	}
	var (
		best      models.ProductInfo
		bestScore float64
		found     bool
	)
	for _, p := range ru.store.Products() {
		if p.Points < ru.r.minPoints {
			continue
		}
		score := textmatch.Jaccard(ru.q.Keywords, p.Keywords)
		if score < ru.r.minOverlap {
			continue
		}
		if !found || better(score, p, bestScore, best) {
			best, bestScore, found = p, score, true
		}
	}
	if !found {
		return StateCategory
	}
	s, ok := ru.store.Series(best.Key)
	if !ok {
		return StateCategory
	}
	ru.accept(s, models.SourceSimilar, best.Key, bestScore)
	return stateDone
}

// better orders candidates by score, then point count, then key.
func better(score float64, p models.ProductInfo, bestScore float64, best models.ProductInfo) bool {
	if score != bestScore {
		return score > bestScore
	}
	if p.Points != best.Points {
		return p.Points > best.Points
	}
	return p.Key < best.Key
}

func (ru *run) category() State {
	cat := ru.q.Category
	if cat == "" {
		cat = textmatch.InferCategory(ru.q.RawName)
		// the catch-all bucket is not a category the name points at
		if cat == textmatch.DefaultCategory {
			return StateFailed
		}
	}
	s, ok := ru.store.CategorySeries(cat)
	if !ok || s.Empty() {
		return StateFailed
	}
	if band, ok := ru.priceBand(cat); ok {
		s = band
	}
	ru.accept(s, models.SourceCategory, "", 0)
	ru.res.Category = cat
	return stateDone
}

// priceBand narrows a category to the products whose mean price lies within
// PriceBand of the caller's current price. It needs at least MinBandMembers
// such products.
func (ru *run) priceBand(cat string) (models.Series, bool) {
	hint := ru.q.CurrentPriceHint
	if hint == nil || *hint <= 0 {
		return models.Series{}, false
	}
	lo, hi := *hint*(1-PriceBand), *hint*(1+PriceBand)

	var members []models.Series
	for _, p := range ru.store.Products() {
		if p.Category != cat || p.MeanPrice < lo || p.MeanPrice > hi {
			continue
		}
		if s, ok := ru.store.Series(p.Key); ok && !s.Empty() {
			members = append(members, s)
		}
	}
	if len(members) < MinBandMembers {
		return models.Series{}, false
	}
	ru.res.BandMembers = len(members)
	return timeseries.Average(cat, members), true
}

func (ru *run) accept(s models.Series, kind models.SourceKind, matched string, score float64) {
	ru.res.Series = s
	ru.res.SourceKind = kind
	ru.res.MatchedKey = matched
	ru.res.Category = s.Category
	ru.res.Score = score
}

var _ service.Resolver = (*Resolver)(nil)
