package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind identifies which resolution tier produced the series a model was fitted on.
type SourceKind string

const (
	SourceExact    SourceKind = "EXACT"
	SourceSimilar  SourceKind = "SIMILAR"
	SourceCategory SourceKind = "CATEGORY"
)

// TrendModel is a fitted linear trend price = Slope*day + Intercept.
// Values are never mutated; refitting yields a new model.
type TrendModel struct {
	Key        string
	Slope      float64
	Intercept  float64
	FitMetric  float64 // R² clamped to [0,1]
	SourceKind SourceKind
	Origin     time.Time
	LastDay    int
	Points     int
}

// Forecast is a predicted price at HorizonDays past the current day.
type Forecast struct {
	HorizonDays    int
	PredictedPrice float64
}

// Action is the buy/wait decision.
type Action string

const (
	ActionBuyNow Action = "BUY_NOW"
	ActionWait   Action = "WAIT"
)

// Recommendation is the outcome of the decision rule.
type Recommendation struct {
	Action          Action
	Savings         decimal.Decimal
	BestHorizonDays int
	Confidence      float64
}

// ProductQuery is a normalized lookup request.
type ProductQuery struct {
	RawName          string
	Key              string
	Keywords         []string
	Category         string
	CurrentPriceHint *float64
}

// Resolution is the result of walking the fallback chain.
type Resolution struct {
	Series     Series
	SourceKind SourceKind
	MatchedKey string
	Category   string
	Score      float64 // similarity score for SIMILAR, 1 for EXACT, 0 otherwise
	// BandMembers counts the products kept by CATEGORY price-band narrowing; 0 when not narrowed.
	BandMembers int
	Trace       []string
}

// Statistics summarises a resolved series.
type Statistics struct {
	AveragePrice float64
	MinPrice     float64
	MaxPrice     float64
	Volatility   string
	Trend        string
	DataPoints   int
}

// Analysis is the full outcome of a single product analysis.
// Note: no transport (json/http) concerns here.
type Analysis struct {
	Query           string
	Resolution      Resolution
	Model           TrendModel
	CurrentPrice    float64
	PriceEstimated  bool
	Forecasts       []Forecast
	Recommendation  Recommendation
	Statistics      Statistics
	SnapshotVersion uint64
	AnalyzedAt      time.Time
}

// RecommendationEvent is published after every successful analysis.
type RecommendationEvent struct {
	ID              string          `json:"id"`
	ProductName     string          `json:"productName"`
	MatchedProduct  string          `json:"matchedProduct"`
	SourceKind      SourceKind      `json:"sourceKind"`
	Action          Action          `json:"action"`
	CurrentPrice    float64         `json:"currentPrice"`
	Savings         decimal.Decimal `json:"savings"`
	BestHorizonDays int             `json:"bestHorizonDays"`
	Confidence      float64         `json:"confidence"`
	SnapshotVersion uint64          `json:"snapshotVersion"`
	At              time.Time       `json:"at"`
}
