package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/timeseries"
)

type fakeMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
	actions     map[string]int
	errors      map[string]int
	latencies   map[string]int
	products    int
	version     uint64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		resolutions: map[string]int{},
		actions:     map[string]int{},
		errors:      map[string]int{},
		latencies:   map[string]int{},
	}
}

func (m *fakeMetrics) RecordResolution(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[kind]++
}

func (m *fakeMetrics) RecordRecommendation(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[action]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[op]++
}

func (m *fakeMetrics) RecordSnapshot(products, _ int, version uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products, m.version = products, version
}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.RecommendationEvent
	err    error
}

func (p *fakePublisher) PublishRecommendation(_ context.Context, ev models.RecommendationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []models.RecommendationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.RecommendationEvent(nil), p.events...)
}

type staticSource struct {
	rows  []models.PriceRow
	err   error
	calls int
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) ([]models.PriceRow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.PriceRow
	err     error
}

func (s *recordingSink) StoreBatch(_ context.Context, rows []models.PriceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, rows)
	return s.err
}

func (s *recordingSink) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

var errBoom = errors.New("boom")

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func priceRows() []models.PriceRow {
	var rows []models.PriceRow
	add := func(name, cat string, prices ...float64) {
		for i, p := range prices {
			rows = append(rows, models.PriceRow{Date: day0.AddDate(0, 0, i), Name: name, Category: cat, Price: p})
		}
	}
	add("iPhone 15", "", 49000, 48500, 48000, 47200)
	add("Galaxy S24 Ultra", "electronics", 99000, 98000)
	add("Oak Dining Table", "home", 15000, 14800, 14900)
	add("Prestige Electric Kettle", "home", 1500, 1520, 1510)
	return rows
}

func loadedHolder() *timeseries.Holder {
	h := timeseries.NewHolder()
	h.Replace(priceRows())
	return h
}

func emptyHolder() *timeseries.Holder {
	return timeseries.NewHolder()
}
