// Package decision applies the buy/wait rule to a set of forecasts.
package decision

import (
	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/service"

	"github.com/shopspring/decimal"
)

const (
	DefaultThreshold        = 0.05
	DefaultSimilarDiscount  = 0.85
	DefaultCategoryDiscount = 0.7
)

// Option configures Engine.
type Option func(*Engine)

// WithDiscounts sets the confidence multipliers for borrowed series.
func WithDiscounts(similar, category float64) Option {
	return func(e *Engine) {
		if similar > 0 && similar <= 1 {
			e.similar = similar
		}
		if category > 0 && category <= 1 {
			e.category = category
		}
	}
}

// Engine is stateless apart from its tuning constants.
type Engine struct {
	similar  float64
	category float64
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{similar: DefaultSimilarDiscount, category: DefaultCategoryDiscount}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide recommends WAIT when the cheapest forecast undercuts currentPrice by at
// least threshold (relative); otherwise BUY_NOW with zero savings. On equal
// minima the earliest horizon wins.
func (e *Engine) Decide(currentPrice float64, forecasts []models.Forecast, threshold float64) models.Recommendation {
	buy := models.Recommendation{Action: models.ActionBuyNow, Savings: decimal.Zero}
	if currentPrice <= 0 || len(forecasts) == 0 {
		return buy
	}

	best := forecasts[0]
	for _, f := range forecasts[1:] {
		if f.PredictedPrice < best.PredictedPrice {
			best = f
		}
	}

	drop := (currentPrice - best.PredictedPrice) / currentPrice
	// with threshold <= 0 a flat or rising forecast would otherwise pass
	if drop < threshold || best.PredictedPrice >= currentPrice {
		return buy
	}

	savings := decimal.NewFromFloat(currentPrice).
		Sub(decimal.NewFromFloat(best.PredictedPrice)).
		Round(2)
	return models.Recommendation{
		Action:          models.ActionWait,
		Savings:         savings,
		BestHorizonDays: best.HorizonDays,
	}
}

// Confidence scales the model's fit metric by the tier discount.
func (e *Engine) Confidence(m models.TrendModel) float64 {
	c := m.FitMetric
	switch m.SourceKind {
	case models.SourceSimilar:
		c *= e.similar
	case models.SourceCategory:
		c *= e.category
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Recommend runs Decide and attaches Confidence.
func (e *Engine) Recommend(m models.TrendModel, currentPrice float64, forecasts []models.Forecast, threshold float64) models.Recommendation {
	r := e.Decide(currentPrice, forecasts, threshold)
	r.Confidence = e.Confidence(m)
	return r
}

var _ service.DecisionEngine = (*Engine)(nil)
