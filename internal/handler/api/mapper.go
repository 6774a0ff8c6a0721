package api

import (
	"PricePulse/internal/domain/models"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/util"

	"github.com/shopspring/decimal"
)

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func toParams(r models.AnalyzeRequest) usecase.AnalyzeParams {
	return usecase.AnalyzeParams{
		ProductName:  r.ProductName,
		Category:     r.Category,
		CurrentPrice: r.CurrentPrice,
		Horizons:     r.Horizons,
		Threshold:    r.Threshold,
	}
}

func toAnalyzeResponse(a *models.Analysis) *models.AnalyzeResponse {
	fcs := make([]models.ForecastDTO, len(a.Forecasts))
	for i, f := range a.Forecasts {
		fcs[i] = models.ForecastDTO{HorizonDays: f.HorizonDays, PredictedPrice: money(f.PredictedPrice)}
	}
	st := a.Statistics
	return &models.AnalyzeResponse{
		ProductName:        a.Query,
		ResolvedSourceKind: a.Resolution.SourceKind,
		MatchedProduct:     a.Resolution.MatchedKey,
		Category:           a.Resolution.Category,
		CurrentPrice:       money(a.CurrentPrice),
		PriceEstimated:     a.PriceEstimated,
		Forecasts:          fcs,
		Recommendation: models.RecommendationDTO{
			Action:          a.Recommendation.Action,
			Savings:         a.Recommendation.Savings,
			BestHorizonDays: a.Recommendation.BestHorizonDays,
			Confidence:      a.Recommendation.Confidence,
		},
		FitMetric: a.Model.FitMetric,
		Slope:     a.Model.Slope,
		Statistics: models.StatisticsDTO{
			AveragePrice: money(st.AveragePrice),
			MinPrice:     money(st.MinPrice),
			MaxPrice:     money(st.MaxPrice),
			Volatility:   st.Volatility,
			Trend:        st.Trend,
			DataPoints:   st.DataPoints,
		},
		Trace:           a.Resolution.Trace,
		SnapshotVersion: a.SnapshotVersion,
	}
}

func toProductDTOs(ps []models.ProductInfo) []models.ProductDTO {
	out := make([]models.ProductDTO, len(ps))
	for i, p := range ps {
		out[i] = models.ProductDTO{
			Name:       p.Key,
			Category:   p.Category,
			DataPoints: p.Points,
			LastPrice:  money(p.LastPrice),
			LastDate:   util.FormatDay(p.LastDate),
		}
	}
	return out
}
