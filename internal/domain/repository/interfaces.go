package repository

import (
	"context"

	"PricePulse/internal/domain/models"
)

// SeriesStore provides read-only access to one consistent view of the price table.
type SeriesStore interface {
	Series(productKey string) (models.Series, bool)
	CategorySeries(categoryKey string) (models.Series, bool)
	Categories() []string
	Products() []models.ProductInfo
	Version() uint64
}

// RowSource loads raw price rows from an external system (file, database).
type RowSource interface {
	Name() string
	Load(ctx context.Context) ([]models.PriceRow, error)
}

// RowSink persists ingested price rows so the next full load sees them.
type RowSink interface {
	StoreBatch(ctx context.Context, rows []models.PriceRow) error
}

// EventPublisher emits recommendation events to downstream consumers.
type EventPublisher interface {
	PublishRecommendation(ctx context.Context, ev models.RecommendationEvent) error
	Close() error
}

// Metrics records pricing and store activity.
type Metrics interface {
	RecordResolution(kind string)
	RecordRecommendation(action string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordSnapshot(products, categories int, version uint64)
}
