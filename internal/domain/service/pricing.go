package service

import (
	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/repository"
)

// TrendFitter fits a linear trend over a series.
type TrendFitter interface {
	Fit(series models.Series, kind models.SourceKind) models.TrendModel
}

// Forecaster projects a trend model forward by each horizon.
type Forecaster interface {
	Project(model models.TrendModel, currentDay int, horizons []int) []models.Forecast
}

// DecisionEngine turns forecasts into a buy/wait recommendation.
type DecisionEngine interface {
	Decide(currentPrice float64, forecasts []models.Forecast, threshold float64) models.Recommendation
	Confidence(model models.TrendModel) float64
}

// Resolver maps a product query to the best available series.
type Resolver interface {
	Resolve(store repository.SeriesStore, q models.ProductQuery) (models.Resolution, error)
}
