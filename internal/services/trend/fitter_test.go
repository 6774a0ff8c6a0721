package trend

import (
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func series(prices map[int]float64) models.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := models.Series{Key: "k", Kind: models.SeriesProduct}
	maxDay := 0
	for d := range prices {
		if d > maxDay {
			maxDay = d
		}
	}
	for d := 0; d <= maxDay; d++ {
		if p, ok := prices[d]; ok {
			s.Observations = append(s.Observations, models.Observation{Date: base.AddDate(0, 0, d), Price: p})
		}
	}
	return s
}

func TestFitPerfectLine(t *testing.T) {
	s := series(map[int]float64{0: 100, 1: 98, 2: 96, 3: 94, 5: 90})
	m := NewOLSFitter().Fit(s, models.SourceExact)
	assert.InDelta(t, -2, m.Slope, 1e-9)
	assert.InDelta(t, 100, m.Intercept, 1e-9)
	assert.InDelta(t, 1, m.FitMetric, 1e-9)
	assert.Equal(t, 5, m.LastDay)
	assert.Equal(t, 5, m.Points)
	assert.Equal(t, models.SourceExact, m.SourceKind)
}

func TestFitSinglePoint(t *testing.T) {
	m := NewOLSFitter().Fit(series(map[int]float64{0: 42}), models.SourceSimilar)
	assert.Equal(t, 0.0, m.Slope)
	assert.Equal(t, 42.0, m.Intercept)
	assert.Equal(t, 0.0, m.FitMetric)
}

func TestFitZeroDayVariance(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := models.Series{Observations: []models.Observation{
		{Date: base, Price: 10},
		{Date: base, Price: 20},
	}}
	m := NewOLSFitter().Fit(s, models.SourceCategory)
	assert.Equal(t, 0.0, m.Slope)
	assert.InDelta(t, 15, m.Intercept, 1e-9)
	assert.Equal(t, 0.0, m.FitMetric)
}

func TestFitFlatPrices(t *testing.T) {
	m := NewOLSFitter().Fit(series(map[int]float64{0: 5, 3: 5, 9: 5}), models.SourceExact)
	assert.InDelta(t, 0, m.Slope, 1e-12)
	assert.InDelta(t, 5, m.Intercept, 1e-9)
	assert.Equal(t, 1.0, m.FitMetric)
}

func TestFitMetricInRangeAndDeterministic(t *testing.T) {
	s := series(map[int]float64{0: 100, 1: 130, 2: 90, 3: 140, 4: 85, 6: 120})
	f := NewOLSFitter()
	a := f.Fit(s, models.SourceExact)
	b := f.Fit(s, models.SourceExact)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a.FitMetric, 0.0)
	assert.LessOrEqual(t, a.FitMetric, 1.0)
}

func TestFitEmptySeries(t *testing.T) {
	m := NewOLSFitter().Fit(models.Series{}, models.SourceExact)
	assert.Equal(t, 0, m.Points)
	assert.Equal(t, 0.0, m.FitMetric)
}
