// Package trend fits ordinary least squares lines over price series.
package trend

import (
	"math"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/service"

	"gonum.org/v1/gonum/stat"
)

// OLSFitter fits price = slope*day + intercept where day counts from the series origin.
type OLSFitter struct{}

// NewOLSFitter returns a stateless least-squares fitter.
func NewOLSFitter() *OLSFitter { return &OLSFitter{} }

// Fit never fails. A single point or a series whose points share one day yields
// a flat line through the mean price with a fit metric of 0.
func (f *OLSFitter) Fit(series models.Series, kind models.SourceKind) models.TrendModel {
	m := models.TrendModel{
		Key:        series.Key,
		SourceKind: kind,
		Origin:     series.Origin(),
		LastDay:    series.LastDay(),
		Points:     series.Len(),
	}
	if series.Empty() {
		return m
	}

	xs := make([]float64, series.Len())
	ys := make([]float64, series.Len())
	for i, o := range series.Observations {
		xs[i] = float64(series.ElapsedDay(o.Date))
		ys[i] = o.Price
	}

	if len(xs) < 2 || stat.Variance(xs, nil) == 0 {
		m.Intercept = stat.Mean(ys, nil)
		return m
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	m.Slope = beta
	m.Intercept = alpha
	m.FitMetric = rSquared(xs, ys, alpha, beta)
	return m
}

// rSquared follows the usual convention for a constant target: a perfect
// fit scores 1, anything else 0.
func rSquared(xs, ys []float64, alpha, beta float64) float64 {
	if stat.Variance(ys, nil) == 0 {
		var resid float64
		for i := range xs {
			d := ys[i] - (alpha + beta*xs[i])
			resid += d * d
		}
		if resid < 1e-12 {
			return 1
		}
		return 0
	}
	return clamp01(stat.RSquared(xs, ys, nil, alpha, beta))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var _ service.TrendFitter = (*OLSFitter)(nil)
