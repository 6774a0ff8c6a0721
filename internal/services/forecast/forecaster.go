// Package forecast projects fitted trend lines to future horizons.
package forecast

import (
	"fmt"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/service"
)

// DefaultMinPrice is the floor applied to every projection.
const DefaultMinPrice = 0.01

// DefaultHorizons are the forecast horizons in days used when a caller supplies none.
var DefaultHorizons = []int{7, 15, 30}

// Option configures LinearForecaster.
type Option func(*LinearForecaster)

// WithMinPrice sets the positive projection floor. Non-positive values are ignored.
func WithMinPrice(p float64) Option {
	return func(f *LinearForecaster) {
		if p > 0 {
			f.minPrice = p
		}
	}
}

// LinearForecaster evaluates slope*(currentDay+h)+intercept for each horizon h.
type LinearForecaster struct {
	minPrice float64
}

func NewLinearForecaster(opts ...Option) *LinearForecaster {
	f := &LinearForecaster{minPrice: DefaultMinPrice}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MinPrice returns the configured floor.
func (f *LinearForecaster) MinPrice() float64 { return f.minPrice }

// Project returns one forecast per horizon, in the order given.
func (f *LinearForecaster) Project(model models.TrendModel, currentDay int, horizons []int) []models.Forecast {
	out := make([]models.Forecast, 0, len(horizons))
	for _, h := range horizons {
		p := model.Slope*float64(currentDay+h) + model.Intercept
		out = append(out, models.Forecast{HorizonDays: h, PredictedPrice: f.floor(p)})
	}
	return out
}

// Scale multiplies every prediction by factor, keeping the floor.
// Used to anchor any resolved trend, exact or borrowed, to the caller's own price level.
func (f *LinearForecaster) Scale(forecasts []models.Forecast, factor float64) []models.Forecast {
	if factor <= 0 {
		return forecasts
	}
	out := make([]models.Forecast, len(forecasts))
	for i, fc := range forecasts {
		out[i] = models.Forecast{HorizonDays: fc.HorizonDays, PredictedPrice: f.floor(fc.PredictedPrice * factor)}
	}
	return out
}

func (f *LinearForecaster) floor(p float64) float64 {
	if p != p || p < f.minPrice { // NaN or below floor
		return f.minPrice
	}
	return p
}

// ValidateHorizons checks that horizons are non-empty, positive and strictly ascending.
func ValidateHorizons(horizons []int) error {
	if len(horizons) == 0 {
		return fmt.Errorf("%w: horizons must not be empty", models.ErrInvalidInput)
	}
	prev := 0
	for i, h := range horizons {
		if h <= 0 {
			return fmt.Errorf("%w: horizon[%d]=%d must be positive", models.ErrInvalidInput, i, h)
		}
		if i > 0 && h <= prev {
			return fmt.Errorf("%w: horizons must be strictly ascending", models.ErrInvalidInput)
		}
		prev = h
	}
	return nil
}

var _ service.Forecaster = (*LinearForecaster)(nil)
