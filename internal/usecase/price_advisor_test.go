package usecase

import (
	"context"
	"errors"
	"testing"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/decision"
	"PricePulse/internal/services/forecast"
	"PricePulse/internal/services/resolver"
	"PricePulse/internal/services/trend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdvisor(t *testing.T, pub *fakePublisher, m *fakeMetrics, cfg AdvisorConfig) *PriceAdvisor {
	t.Helper()
	a := NewPriceAdvisor(loadedHolder(), resolver.New(), trend.NewOLSFitter(), forecast.NewLinearForecaster(),
		decision.NewEngine(), pub, m, nil, cfg)
	t.Cleanup(a.Close)
	return a
}

func ptr(v float64) *float64 { return &v }

// iPhone 15 fits slope -590, intercept 49060, R² = 1 - 27000/1767500.
const iphoneR2 = 1 - 27000.0/1767500.0

func TestAnalyzeExactWait(t *testing.T) {
	m := newFakeMetrics()
	a := newAdvisor(t, &fakePublisher{}, m, AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15", CurrentPrice: ptr(45999)})
	require.NoError(t, err)

	assert.Equal(t, models.SourceExact, res.Resolution.SourceKind)
	assert.InDelta(t, -590, res.Model.Slope, 1e-9)
	require.Len(t, res.Forecasts, 3)
	assert.InDelta(t, 43160, res.Forecasts[0].PredictedPrice, 1e-6)
	assert.InDelta(t, 38440, res.Forecasts[1].PredictedPrice, 1e-6)
	assert.InDelta(t, 29590, res.Forecasts[2].PredictedPrice, 1e-6)

	assert.Equal(t, models.ActionWait, res.Recommendation.Action)
	assert.Equal(t, 30, res.Recommendation.BestHorizonDays)
	assert.Equal(t, "16409", res.Recommendation.Savings.String())
	assert.InDelta(t, iphoneR2, res.Recommendation.Confidence, 1e-9)
	assert.False(t, res.PriceEstimated)
	assert.Equal(t, "decreasing", res.Statistics.Trend)
	assert.Equal(t, 1, m.actions["WAIT"])
	assert.Equal(t, 1, m.resolutions["EXACT"])
}

func TestAnalyzeSimilarDiscountsConfidence(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15 Pro", CurrentPrice: ptr(45999)})
	require.NoError(t, err)
	assert.Equal(t, models.SourceSimilar, res.Resolution.SourceKind)
	assert.Equal(t, "iphone 15", res.Resolution.MatchedKey)
	assert.InDelta(t, iphoneR2*0.85, res.Recommendation.Confidence, 1e-9)
	assert.Equal(t, []string{"EXACT", "SIMILAR"}, res.Resolution.Trace)
}

func TestAnalyzeCategoryFallback(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "Walnut Bookshelf", Category: "Home", CurrentPrice: ptr(9000)})
	require.NoError(t, err)
	assert.Equal(t, models.SourceCategory, res.Resolution.SourceKind)
	assert.Equal(t, "home", res.Resolution.Category)
	assert.LessOrEqual(t, res.Recommendation.Confidence, 0.7)
}

func TestAnalyzeEstimatesPriceFromMean(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15"})
	require.NoError(t, err)
	assert.True(t, res.PriceEstimated)
	assert.InDelta(t, 48175, res.CurrentPrice, 1e-9)
}

func TestAnalyzeScalesToCurrentPrice(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{ScaleToCurrentPrice: true})

	// exact matches are anchored too
	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15", CurrentPrice: ptr(48175 * 2)})
	require.NoError(t, err)
	assert.Equal(t, models.SourceExact, res.Resolution.SourceKind)
	assert.InDelta(t, 29590*2, res.Forecasts[2].PredictedPrice, 1e-6)

	res, err = a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15 Pro", CurrentPrice: ptr(48175 * 2)})
	require.NoError(t, err)
	assert.Equal(t, models.SourceSimilar, res.Resolution.SourceKind)
	assert.InDelta(t, 29590*2, res.Forecasts[2].PredictedPrice, 1e-6)
}

func TestAnalyzeCustomHorizonsAndThreshold(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{
		ProductName:  "iPhone 15",
		CurrentPrice: ptr(45999),
		Horizons:     []int{1},
		Threshold:    ptr(0.5),
	})
	require.NoError(t, err)
	require.Len(t, res.Forecasts, 1)
	assert.Equal(t, 1, res.Forecasts[0].HorizonDays)
	assert.Equal(t, models.ActionBuyNow, res.Recommendation.Action)
	assert.True(t, res.Recommendation.Savings.IsZero())
}

func TestAnalyzeInvalidInput(t *testing.T) {
	cases := map[string]AnalyzeParams{
		"empty name":         {ProductName: "   "},
		"punctuation only":   {ProductName: "!!!"},
		"zero price":         {ProductName: "iPhone 15", CurrentPrice: ptr(0)},
		"negative price":     {ProductName: "iPhone 15", CurrentPrice: ptr(-10)},
		"descending horizon": {ProductName: "iPhone 15", Horizons: []int{30, 7}},
		"zero horizon":       {ProductName: "iPhone 15", Horizons: []int{0}},
		"threshold one":      {ProductName: "iPhone 15", Threshold: ptr(1)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			m := newFakeMetrics()
			a := newAdvisor(t, &fakePublisher{}, m, AdvisorConfig{})
			_, err := a.Analyze(context.Background(), p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidInput), err.Error())
			assert.Equal(t, 1, m.errorCount("InvalidInput"))
		})
	}
}

func TestAnalyzeNoData(t *testing.T) {
	a := NewPriceAdvisor(emptyHolder(), resolver.New(), trend.NewOLSFitter(), forecast.NewLinearForecaster(),
		decision.NewEngine(), nil, newFakeMetrics(), nil, AdvisorConfig{})

	_, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15"})
	assert.True(t, errors.Is(err, models.ErrNoDataAvailable))
}

func TestAnalyzeCancelledContext(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, AnalyzeParams{ProductName: "iPhone 15"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	a := newAdvisor(t, pub, newFakeMetrics(), AdvisorConfig{})

	res, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15 Pro", CurrentPrice: ptr(45999)})
	require.NoError(t, err)
	a.Close()

	events := pub.published()
	require.Len(t, events, 1)
	ev := events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "iPhone 15 Pro", ev.ProductName)
	assert.Equal(t, "iphone 15", ev.MatchedProduct)
	assert.Equal(t, models.SourceSimilar, ev.SourceKind)
	assert.Equal(t, models.ActionWait, ev.Action)
	assert.Equal(t, res.SnapshotVersion, ev.SnapshotVersion)
}

func TestAnalyzePublishFailureDoesNotFailRequest(t *testing.T) {
	m := newFakeMetrics()
	a := newAdvisor(t, &fakePublisher{err: errBoom}, m, AdvisorConfig{})

	_, err := a.Analyze(context.Background(), AnalyzeParams{ProductName: "iPhone 15"})
	require.NoError(t, err)
	a.Close()
	assert.Equal(t, 1, m.errorCount("event_publish"))
}

func TestAnalyzeBatchKeepsOrder(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{BatchWorkers: 2})

	items := []AnalyzeParams{
		{ProductName: "iPhone 15", CurrentPrice: ptr(45999)},
		{ProductName: ""},
		{ProductName: "Oak Dining Table"},
		{ProductName: "iPhone 15 Pro"},
	}
	out, err := a.AnalyzeBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, 4)
	for i, r := range out {
		assert.Equal(t, i, r.Index)
	}
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, models.ErrInvalidInput)
	assert.Equal(t, models.SourceExact, out[2].Analysis.Resolution.SourceKind)
	assert.Equal(t, models.SourceSimilar, out[3].Analysis.Resolution.SourceKind)
}

func TestAnalyzeBatchLimits(t *testing.T) {
	a := newAdvisor(t, &fakePublisher{}, newFakeMetrics(), AdvisorConfig{BatchLimit: 2})

	_, err := a.AnalyzeBatch(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = a.AnalyzeBatch(context.Background(), make([]AnalyzeParams, 3))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
