package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requests and responses for the pricing HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	ProductName  string   `json:"productName" validate:"required,notblank,max=512"`
	Category     string   `json:"category" validate:"omitempty,max=64"`
	CurrentPrice *float64 `json:"currentPrice" validate:"omitempty,gt=0"`
	Horizons     []int    `json:"horizons" validate:"omitempty,max=32,dive,gt=0,lte=3650"`
	Threshold    *float64 `json:"threshold" validate:"omitempty,gt=0,lt=1"`
}

type BatchAnalyzeRequest struct {
	Items []AnalyzeRequest `json:"items" validate:"required,min=1,dive"`
}

type ProductsRequest struct {
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Category string `query:"category" json:"category" validate:"omitempty,max=64"`
}

type ForecastDTO struct {
	HorizonDays    int             `json:"horizonDays"`
	PredictedPrice decimal.Decimal `json:"predictedPrice"`
}

type RecommendationDTO struct {
	Action          Action          `json:"action"`
	Savings         decimal.Decimal `json:"savings"`
	BestHorizonDays int             `json:"bestHorizonDays"`
	Confidence      float64         `json:"confidence"`
}

type StatisticsDTO struct {
	AveragePrice decimal.Decimal `json:"averagePrice"`
	MinPrice     decimal.Decimal `json:"minPrice"`
	MaxPrice     decimal.Decimal `json:"maxPrice"`
	Volatility   string          `json:"volatility"`
	Trend        string          `json:"trend"`
	DataPoints   int             `json:"dataPoints"`
}

type AnalyzeResponse struct {
	ProductName        string            `json:"productName"`
	ResolvedSourceKind SourceKind        `json:"resolvedSourceKind"`
	MatchedProduct     string            `json:"matchedProduct,omitempty"`
	Category           string            `json:"category,omitempty"`
	CurrentPrice       decimal.Decimal   `json:"currentPrice"`
	PriceEstimated     bool              `json:"priceEstimated"`
	Forecasts          []ForecastDTO     `json:"forecasts"`
	Recommendation     RecommendationDTO `json:"recommendation"`
	FitMetric          float64           `json:"fitMetric"`
	Slope              float64           `json:"slope"`
	Statistics         StatisticsDTO     `json:"statistics"`
	Trace              []string          `json:"trace"`
	SnapshotVersion    uint64            `json:"snapshotVersion"`
}

type BatchItemResponse struct {
	Index     int              `json:"index"`
	Result    *AnalyzeResponse `json:"result,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type ProductDTO struct {
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	DataPoints int             `json:"dataPoints"`
	LastPrice  decimal.Decimal `json:"lastPrice"`
	LastDate   string          `json:"lastDate"`
}

type HealthResponse struct {
	Status          string    `json:"status"`
	SnapshotVersion uint64    `json:"snapshotVersion"`
	Products        int       `json:"products"`
	Categories      int       `json:"categories"`
	BuiltAt         time.Time `json:"builtAt"`
}

type ReloadResponse struct {
	Source          string `json:"source"`
	Rows            int    `json:"rows"`
	Accepted        int    `json:"accepted"`
	Rejected        int    `json:"rejected"`
	Products        int    `json:"products"`
	Categories      int    `json:"categories"`
	SnapshotVersion uint64 `json:"snapshotVersion"`
}
