package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/services/timeseries"
	applogger "PricePulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ErrNoSource is returned by Reload when no row source is configured.
var ErrNoSource = errors.New("no price source configured")

// ReloadResult reports one full rebuild.
type ReloadResult struct {
	Source string
	Stats  timeseries.BuildStats
}

// StoreLoader rebuilds the price snapshot from a RowSource, on demand or on a
// cron schedule. Reloads are serialized; readers keep the old snapshot until
// the swap.
type StoreLoader struct {
	source  domrepo.RowSource
	holder  *timeseries.Holder
	metrics domrepo.Metrics
	log     *applogger.Logger
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewStoreLoader(source domrepo.RowSource, holder *timeseries.Holder, metrics domrepo.Metrics, log *applogger.Logger, timeout time.Duration) *StoreLoader {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if log == nil {
		log = applogger.NewNop()
	}
	log = log.With(applogger.String("component", "store_loader"))
	return &StoreLoader{source: source, holder: holder, metrics: metrics, log: log, timeout: timeout}
}

// Reload loads every row from the source and swaps in a fresh snapshot.
func (l *StoreLoader) Reload(ctx context.Context) (ReloadResult, error) {
	if l.source == nil {
		return ReloadResult{}, ErrNoSource
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	rows, err := l.source.Load(ctx)
	if err != nil {
		l.metrics.RecordError("store_load")
		l.log.Error("price store load failed", applogger.String("source", l.source.Name()), applogger.Error(err))
		return ReloadResult{}, fmt.Errorf("load %s: %w", l.source.Name(), err)
	}

	stats := l.holder.Replace(rows)
	l.metrics.RecordSnapshot(stats.Products, stats.Categories, stats.Version)
	l.metrics.RecordLatency("store_reload", time.Since(start).Seconds())
	l.log.Info("price store reloaded",
		applogger.String("source", l.source.Name()),
		applogger.Int("rows", stats.Rows),
		applogger.Int("rejected", stats.Rejected),
		applogger.Int("products", stats.Products),
		applogger.Int("categories", stats.Categories),
		applogger.Uint64("version", stats.Version),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return ReloadResult{Source: l.source.Name(), Stats: stats}, nil
}

// Schedule runs Reload on a six-field cron spec (seconds first). An empty
// spec or missing source leaves scheduling off.
func (l *StoreLoader) Schedule(spec string) error {
	if spec == "" || l.source == nil {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		if _, err := l.Reload(context.Background()); err != nil {
			l.log.Warn("scheduled reload failed", applogger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register reload schedule %q: %w", spec, err)
	}
	c.Start()
	l.cron = c
	l.log.Info("price store reload scheduled", applogger.String("cron", spec))
	return nil
}

// Stop halts the schedule and waits for a running reload, bounded by ctx.
func (l *StoreLoader) Stop(ctx context.Context) {
	if l.cron == nil {
		return
	}
	done := l.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
