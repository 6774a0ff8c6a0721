package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoaderReload(t *testing.T) {
	h := timeseries.NewHolder()
	m := newFakeMetrics()
	src := &staticSource{rows: priceRows()}
	l := NewStoreLoader(src, h, m, nil, time.Second)

	res, err := l.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", res.Source)
	assert.Equal(t, 4, res.Stats.Products)
	assert.Equal(t, uint64(1), h.Load().Version())
	assert.Equal(t, 4, m.products)

	_, err = l.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.Load().Version())
}

func TestStoreLoaderKeepsSnapshotOnFailure(t *testing.T) {
	h := loadedHolder()
	before := h.Load()
	m := newFakeMetrics()
	l := NewStoreLoader(&staticSource{err: errBoom}, h, m, nil, time.Second)

	_, err := l.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Same(t, before, h.Load())
	assert.Equal(t, 1, m.errorCount("store_load"))
}

func TestStoreLoaderWithoutSource(t *testing.T) {
	l := NewStoreLoader(nil, timeseries.NewHolder(), newFakeMetrics(), nil, 0)
	_, err := l.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
	assert.NoError(t, l.Schedule("*/5 * * * * *"))
}

func TestStoreLoaderScheduleRejectsBadSpec(t *testing.T) {
	l := NewStoreLoader(&staticSource{}, timeseries.NewHolder(), newFakeMetrics(), nil, 0)
	assert.Error(t, l.Schedule("every now and then"))
}

func TestStoreLoaderScheduleRuns(t *testing.T) {
	src := &staticSource{rows: priceRows()}
	h := timeseries.NewHolder()
	l := NewStoreLoader(src, h, newFakeMetrics(), nil, time.Second)
	require.NoError(t, l.Schedule("* * * * * *"))
	defer l.Stop(context.Background())

	assert.Eventually(t, func() bool { return h.Load().Version() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestIngestPipelineFlushesOnBatchSize(t *testing.T) {
	h := loadedHolder()
	sink := &recordingSink{}
	m := newFakeMetrics()
	p := NewIngestPipeline(h, m, nil, WithBatchSize(2), WithFlushInterval(time.Hour), WithSink(sink))
	p.Start()
	defer p.Stop()

	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, models.PriceRow{Date: day0.AddDate(0, 0, 4), Name: "iPhone 15", Price: 46900}))
	require.NoError(t, p.Submit(ctx, models.PriceRow{Date: day0, Name: "Boldfit Yoga Mat", Price: 499}))

	assert.Eventually(t, func() bool { return h.Load().Version() == 2 }, time.Second, 10*time.Millisecond)
	s, ok := h.Load().Series("iphone 15")
	require.True(t, ok)
	assert.Equal(t, 5, s.Len())
	_, ok = h.Load().Series("boldfit yoga mat")
	assert.True(t, ok)
	assert.Equal(t, 2, sink.rowCount())
}

func TestIngestPipelineStopFlushesPending(t *testing.T) {
	h := timeseries.NewHolder()
	p := NewIngestPipeline(h, newFakeMetrics(), nil, WithBatchSize(100), WithFlushInterval(time.Hour))
	p.Start()

	require.NoError(t, p.Submit(context.Background(), models.PriceRow{Date: day0, Name: "Kettle", Price: 1500}))
	p.Stop()

	assert.Equal(t, 1, h.Load().ProductCount())
}

func TestIngestPipelineSinkErrorStillApplies(t *testing.T) {
	h := timeseries.NewHolder()
	m := newFakeMetrics()
	p := NewIngestPipeline(h, m, nil, WithBatchSize(1), WithSink(&recordingSink{err: errBoom}))
	p.Start()

	require.NoError(t, p.Submit(context.Background(), models.PriceRow{Date: day0, Name: "Kettle", Price: 1500}))
	p.Stop()

	assert.Equal(t, 1, h.Load().ProductCount())
	assert.Equal(t, 1, m.errorCount("pipeline_sink"))
}

func TestIngestPipelineRejectsBadRows(t *testing.T) {
	p := NewIngestPipeline(timeseries.NewHolder(), newFakeMetrics(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, p.Submit(ctx, models.PriceRow{Date: day0, Price: 1}), models.ErrInvalidInput)
	assert.ErrorIs(t, p.Submit(ctx, models.PriceRow{Name: "x", Price: 1}), models.ErrInvalidInput)
	assert.ErrorIs(t, p.Submit(ctx, models.PriceRow{Date: day0, Name: "x", Price: -1}), models.ErrInvalidInput)
}

func TestIngestPipelineSubmitHonoursContext(t *testing.T) {
	p := NewIngestPipeline(timeseries.NewHolder(), newFakeMetrics(), nil, WithBufferSize(1))
	row := models.PriceRow{Date: day0, Name: "x", Price: 1}
	require.NoError(t, p.Submit(context.Background(), row))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, row), context.DeadlineExceeded)
}

type collectSubmitter struct {
	rows []models.PriceRow
	err  error
}

func (c *collectSubmitter) Submit(_ context.Context, r models.PriceRow) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, r)
	return nil
}

func TestKafkaPricesHandlerSingleObject(t *testing.T) {
	sub := &collectSubmitter{}
	h := NewKafkaPricesHandler("pricepulse.prices", sub, newFakeMetrics())
	assert.Equal(t, "pricepulse.prices", h.Topic())

	msg := `{"date":"2024-05-05","product":"iPhone 15","category":"electronics","price":"₹46,999"}`
	require.NoError(t, h.Handle(context.Background(), []byte(msg)))
	require.Len(t, sub.rows, 1)
	r := sub.rows[0]
	assert.Equal(t, "iPhone 15", r.Name)
	assert.Equal(t, "electronics", r.Category)
	assert.Equal(t, 46999.0, r.Price)
	assert.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestKafkaPricesHandlerArray(t *testing.T) {
	sub := &collectSubmitter{}
	m := newFakeMetrics()
	h := NewKafkaPricesHandler("t", sub, m)

	msg := `[
		{"ts":1714521600,"name":"Kettle","price":1500},
		{"invoiceDate":"12/1/2010 8:26","description":"WHITE METAL LANTERN","unitPrice":3.39},
		{"product":"broken","price":"abc","date":"2024-05-01"}
	]`
	require.NoError(t, h.Handle(context.Background(), []byte(msg)))
	require.Len(t, sub.rows, 2)
	assert.Equal(t, time.Unix(1714521600, 0).UTC(), sub.rows[0].Date)
	assert.Equal(t, "WHITE METAL LANTERN", sub.rows[1].Name)
	assert.Equal(t, 3.39, sub.rows[1].Price)
	assert.Equal(t, 1, m.errorCount("consumer_decode"))
}

func TestKafkaPricesHandlerRejects(t *testing.T) {
	h := NewKafkaPricesHandler("t", &collectSubmitter{}, newFakeMetrics())
	ctx := context.Background()

	assert.ErrorIs(t, h.Handle(ctx, []byte(`not json`)), models.ErrInvalidInput)
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"product":"x"}`)), models.ErrInvalidInput)

	failing := NewKafkaPricesHandler("t", &collectSubmitter{err: errBoom}, newFakeMetrics())
	err := failing.Handle(ctx, []byte(`{"date":"2024-05-01","product":"x","price":1}`))
	assert.ErrorIs(t, err, errBoom)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(loadedHolder())

	all := c.Products(10, "")
	require.Len(t, all, 4)
	assert.Equal(t, "iphone 15", all[0].Key)

	home := c.Products(10, "Home")
	require.Len(t, home, 2)
	for _, p := range home {
		assert.Equal(t, "home", p.Category)
	}
	assert.Len(t, c.Products(1, ""), 1)

	assert.Equal(t, []string{"electronics", "home"}, c.Categories())

	st := c.Status()
	assert.True(t, st.Ready)
	assert.Equal(t, 4, st.Products)
	assert.Equal(t, uint64(1), st.Version)

	assert.False(t, NewCatalog(timeseries.NewHolder()).Status().Ready)
}
