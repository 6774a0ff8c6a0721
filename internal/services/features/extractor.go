package features

import (
	"math"

	"PricePulse/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	VolatilityUnknown = "Unknown"
	VolatilityLow     = "Low"
	VolatilityMedium  = "Medium"
	VolatilityHigh    = "High"

	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// Summarize computes descriptive statistics of a series and labels the trend by slope sign.
func Summarize(series models.Series, slope float64) models.Statistics {
	st := models.Statistics{
		DataPoints: series.Len(),
		Volatility: VolatilityUnknown,
		Trend:      TrendLabel(slope),
	}
	if series.Empty() {
		return st
	}
	prices := series.Prices()
	st.AveragePrice = stat.Mean(prices, nil)
	st.MinPrice = floats.Min(prices)
	st.MaxPrice = floats.Max(prices)
	st.Volatility = VolatilityClass(prices)
	return st
}

// VolatilityClass buckets the coefficient of variation (population std / mean, in percent):
// below 10 is Low, below 25 Medium, otherwise High. Fewer than two prices is Unknown.
func VolatilityClass(prices []float64) string {
	if len(prices) < 2 {
		return VolatilityUnknown
	}
	cv := CoefficientOfVariation(prices)
	switch {
	case cv < 10:
		return VolatilityLow
	case cv < 25:
		return VolatilityMedium
	default:
		return VolatilityHigh
	}
}

// CoefficientOfVariation returns 100*σ/μ using the population standard deviation.
func CoefficientOfVariation(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	mean := stat.Mean(prices, nil)
	if mean <= 0 {
		return 0
	}
	var ss float64
	for _, p := range prices {
		d := p - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(prices)))
	return std / mean * 100
}

// TrendLabel returns "decreasing" for a negative slope and "increasing" otherwise.
func TrendLabel(slope float64) string {
	if slope < 0 {
		return TrendDecreasing
	}
	return TrendIncreasing
}
