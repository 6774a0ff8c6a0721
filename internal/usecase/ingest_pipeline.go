package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/services/timeseries"
	applogger "PricePulse/pkg/logger"
)

// IngestPipeline buffers incoming price rows and applies them to the store in
// batches, either when BatchSize rows are pending or every FlushInterval.
// Each flush persists the batch to the optional sink and then rebuilds the
// snapshot from the previous rows plus the batch.
type IngestPipeline struct {
	holder  *timeseries.Holder
	sink    domrepo.RowSink
	metrics domrepo.Metrics
	log     *applogger.Logger

	batchSize int
	interval  time.Duration
	in        chan models.PriceRow

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type PipelineOption func(*IngestPipeline)

// WithBatchSize sets how many rows trigger an early flush.
func WithBatchSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets the maximum time rows wait before being applied.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *IngestPipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBufferSize sets how many rows may queue before Submit blocks.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.in = make(chan models.PriceRow, n)
		}
	}
}

// WithSink persists every flushed batch before it is applied.
func WithSink(s domrepo.RowSink) PipelineOption {
	return func(p *IngestPipeline) { p.sink = s }
}

func NewIngestPipeline(holder *timeseries.Holder, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *IngestPipeline {
	if log == nil {
		log = applogger.NewNop()
	}
	log = log.With(applogger.String("component", "ingest_pipeline"))
	p := &IngestPipeline{
		holder:    holder,
		metrics:   metrics,
		log:       log,
		batchSize: 500,
		interval:  2 * time.Second,
		in:        make(chan models.PriceRow, 5000),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit validates a row and queues it. It blocks while the buffer is full
// and ctx is live.
func (p *IngestPipeline) Submit(ctx context.Context, row models.PriceRow) error {
	if err := validateRow(row); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	select {
	case p.in <- row:
		return nil
	case <-ctx.Done():
		p.metrics.RecordError("pipeline_buffer_full")
		return fmt.Errorf("pipeline submit: %w", ctx.Err())
	}
}

// Start launches the flush loop.
func (p *IngestPipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop()
}

// Stop flushes pending rows and stops the loop.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()
	<-done
}

func (p *IngestPipeline) loop() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	batch := make([]models.PriceRow, 0, p.batchSize)
	for {
		select {
		case row := <-p.in:
			batch = append(batch, row)
			if len(batch) >= p.batchSize {
				batch = p.flush(batch)
			}
		case <-ticker.C:
			batch = p.flush(batch)
		case <-p.stopCh:
			for {
				select {
				case row := <-p.in:
					batch = append(batch, row)
				default:
					p.flush(batch)
					return
				}
			}
		}
	}
}

// flush applies batch and returns an emptied slice for reuse.
func (p *IngestPipeline) flush(batch []models.PriceRow) []models.PriceRow {
	if len(batch) == 0 {
		return batch
	}
	start := time.Now()
	rows := make([]models.PriceRow, len(batch))
	copy(rows, batch)

	if p.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.sink.StoreBatch(ctx, rows)
		cancel()
		if err != nil {
			// the in-memory store still takes the rows; the next full reload may lose them
			p.metrics.RecordError("pipeline_sink")
			p.log.Error("price batch persist failed", applogger.Int("rows", len(rows)), applogger.Error(err))
		}
	}

	stats := p.holder.Append(rows)
	p.metrics.RecordSnapshot(stats.Products, stats.Categories, stats.Version)
	p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
	p.log.Debug("price batch applied",
		applogger.Int("rows", len(rows)),
		applogger.Int("products", stats.Products),
		applogger.Uint64("version", stats.Version),
	)
	return batch[:0]
}

func validateRow(r models.PriceRow) error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: row has no product", models.ErrInvalidInput)
	case r.Date.IsZero():
		return fmt.Errorf("%w: row %q has no date", models.ErrInvalidInput, r.Name)
	case math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || r.Price <= 0:
		return fmt.Errorf("%w: row %q has non-positive price", models.ErrInvalidInput, r.Name)
	}
	return nil
}
