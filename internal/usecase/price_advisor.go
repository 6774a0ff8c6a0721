package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/services/features"
	"PricePulse/internal/services/forecast"
	"PricePulse/internal/services/textmatch"
	"PricePulse/internal/services/timeseries"
	applogger "PricePulse/pkg/logger"

	"github.com/google/uuid"
)

// SnapshotProvider hands out the snapshot a request should pin.
type SnapshotProvider interface {
	Load() *timeseries.Snapshot
}

type forecastScaler interface {
	Scale(forecasts []models.Forecast, factor float64) []models.Forecast
}

// AdvisorConfig holds request defaults and batch limits.
type AdvisorConfig struct {
	Horizons            []int
	Threshold           float64
	ScaleToCurrentPrice bool
	BatchLimit          int
	BatchWorkers        int
	PublishTimeout      time.Duration
}

// AnalyzeParams is one analysis request after transport decoding.
type AnalyzeParams struct {
	ProductName  string
	Category     string
	CurrentPrice *float64
	Horizons     []int
	Threshold    *float64
}

// BatchResult pairs a batch item with its analysis or error.
type BatchResult struct {
	Index    int
	Analysis *models.Analysis
	Err      error
}

// PriceAdvisor runs resolve, fit, forecast and decide against one pinned snapshot.
type PriceAdvisor struct {
	store    SnapshotProvider
	resolver domsvc.Resolver
	fitter   domsvc.TrendFitter
	fc       domsvc.Forecaster
	engine   domsvc.DecisionEngine
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	log      *applogger.Logger
	cfg      AdvisorConfig
	now      func() time.Time

	pubWG sync.WaitGroup
}

func NewPriceAdvisor(
	store SnapshotProvider,
	resolver domsvc.Resolver,
	fitter domsvc.TrendFitter,
	fc domsvc.Forecaster,
	engine domsvc.DecisionEngine,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	cfg AdvisorConfig,
) *PriceAdvisor {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = forecast.DefaultHorizons
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		cfg.Threshold = 0.05
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 8
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if log == nil {
		log = applogger.NewNop()
	}
	log = log.With(applogger.String("component", "price_advisor"))
	return &PriceAdvisor{
		store:    store,
		resolver: resolver,
		fitter:   fitter,
		fc:       fc,
		engine:   engine,
		events:   events,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Analyze validates p, resolves the product and returns forecasts plus a
// recommendation. Invalid input fails with models.ErrInvalidInput before any
// lookup; an unresolvable product fails with models.ErrNoDataAvailable.
func (a *PriceAdvisor) Analyze(ctx context.Context, p AnalyzeParams) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := a.analyze(p)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordError(models.ErrorKind(err))
		return nil, err
	}
	a.metrics.RecordResolution(string(res.Resolution.SourceKind))
	a.metrics.RecordRecommendation(string(res.Recommendation.Action))
	a.publish(res)
	return res, nil
}

func (a *PriceAdvisor) analyze(p AnalyzeParams) (*models.Analysis, error) {
	q, horizons, threshold, err := a.prepare(p)
	if err != nil {
		return nil, err
	}

	snap := a.store.Load()
	resolution, err := a.resolver.Resolve(snap, q)
	if err != nil {
		return nil, err
	}

	series := resolution.Series
	model := a.fitter.Fit(series, resolution.SourceKind)
	forecasts := a.fc.Project(model, series.LastDay(), horizons)

	mean := series.Mean()
	current, estimated := mean, true
	if p.CurrentPrice != nil {
		current, estimated = *p.CurrentPrice, false
		if a.cfg.ScaleToCurrentPrice && mean > 0 {
			if s, ok := a.fc.(forecastScaler); ok {
				forecasts = s.Scale(forecasts, current/mean)
			}
		}
	}

	rec := a.engine.Decide(current, forecasts, threshold)
	rec.Confidence = a.engine.Confidence(model)

	return &models.Analysis{
		Query:           q.RawName,
		Resolution:      resolution,
		Model:           model,
		CurrentPrice:    current,
		PriceEstimated:  estimated,
		Forecasts:       forecasts,
		Recommendation:  rec,
		Statistics:      features.Summarize(series, model.Slope),
		SnapshotVersion: snap.Version(),
		AnalyzedAt:      a.now().UTC(),
	}, nil
}

func (a *PriceAdvisor) prepare(p AnalyzeParams) (models.ProductQuery, []int, float64, error) {
	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		return models.ProductQuery{}, nil, 0, fmt.Errorf("%w: product name is empty", models.ErrInvalidInput)
	}
	key := textmatch.Normalize(name)
	if key == "" {
		return models.ProductQuery{}, nil, 0, fmt.Errorf("%w: product name %q has no usable characters", models.ErrInvalidInput, name)
	}
	if cp := p.CurrentPrice; cp != nil && (math.IsNaN(*cp) || math.IsInf(*cp, 0) || *cp <= 0) {
		return models.ProductQuery{}, nil, 0, fmt.Errorf("%w: current price must be positive", models.ErrInvalidInput)
	}

	horizons := p.Horizons
	if len(horizons) == 0 {
		horizons = a.cfg.Horizons
	}
	if err := forecast.ValidateHorizons(horizons); err != nil {
		return models.ProductQuery{}, nil, 0, err
	}

	threshold := a.cfg.Threshold
	if p.Threshold != nil {
		threshold = *p.Threshold
		if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
			return models.ProductQuery{}, nil, 0, fmt.Errorf("%w: threshold must be in (0,1)", models.ErrInvalidInput)
		}
	}

	return models.ProductQuery{
		RawName:          name,
		Key:              key,
		Keywords:         textmatch.Keywords(name),
		Category:         textmatch.NormalizeCategory(p.Category),
		CurrentPriceHint: p.CurrentPrice,
	}, horizons, threshold, nil
}

// AnalyzeBatch analyzes items concurrently. Per-item failures are reported in
// the result; only an empty or oversized batch fails as a whole.
func (a *PriceAdvisor) AnalyzeBatch(ctx context.Context, items []AnalyzeParams) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", models.ErrInvalidInput)
	}
	if len(items) > a.cfg.BatchLimit {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", models.ErrInvalidInput, len(items), a.cfg.BatchLimit)
	}

	ch := make(chan BatchResult, len(items))
	sem := make(chan struct{}, a.cfg.BatchWorkers)
	var wg sync.WaitGroup

	for i, it := range items {
		wg.Add(1)
		go func(i int, it AnalyzeParams) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- BatchResult{Index: i, Err: ctx.Err()}
				return
			}
			res, err := a.Analyze(ctx, it)
			ch <- BatchResult{Index: i, Analysis: res, Err: err}
		}(i, it)
	}

	go func() { wg.Wait(); close(ch) }()

	out := make([]BatchResult, 0, len(items))
	for r := range ch {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (a *PriceAdvisor) publish(res *models.Analysis) {
	if a.events == nil {
		return
	}
	ev := models.RecommendationEvent{
		ID:              uuid.NewString(),
		ProductName:     res.Query,
		MatchedProduct:  res.Resolution.MatchedKey,
		SourceKind:      res.Resolution.SourceKind,
		Action:          res.Recommendation.Action,
		CurrentPrice:    res.CurrentPrice,
		Savings:         res.Recommendation.Savings,
		BestHorizonDays: res.Recommendation.BestHorizonDays,
		Confidence:      res.Recommendation.Confidence,
		SnapshotVersion: res.SnapshotVersion,
		At:              res.AnalyzedAt,
	}
	a.pubWG.Add(1)
	go func() {
		defer a.pubWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PublishTimeout)
		defer cancel()
		if err := a.events.PublishRecommendation(ctx, ev); err != nil {
			a.metrics.RecordError("event_publish")
			a.log.Warn("recommendation event publish failed",
				applogger.String("event_id", ev.ID),
				applogger.String("product", ev.ProductName),
				applogger.Error(err),
			)
		}
	}()
}

// Close waits for in-flight event publications.
func (a *PriceAdvisor) Close() {
	a.pubWG.Wait()
}
