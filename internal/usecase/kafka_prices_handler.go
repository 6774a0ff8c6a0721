package usecase

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgkafka "PricePulse/pkg/kafka"
	"PricePulse/pkg/util"

	"github.com/tidwall/gjson"
)

// RowSubmitter accepts decoded rows.
type RowSubmitter interface {
	Submit(ctx context.Context, row models.PriceRow) error
}

// KafkaPricesHandler decodes price row messages and hands them to the ingest
// pipeline. A message is one row object or an array of rows:
//
//	{"date":"2024-05-01","product":"iPhone 15","category":"electronics","price":"45,999"}
//
// date may be any layout util.ParseTime accepts or unix seconds; price may be
// a number or a numeric string.
type KafkaPricesHandler struct {
	topic   string
	sink    RowSubmitter
	metrics domrepo.Metrics
}

func NewKafkaPricesHandler(topic string, sink RowSubmitter, metrics domrepo.Metrics) *KafkaPricesHandler {
	return &KafkaPricesHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	if !gjson.ValidBytes(b) {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: message is not valid json", models.ErrInvalidInput)
	}
	doc := gjson.ParseBytes(b)
	items := []gjson.Result{doc}
	if doc.IsArray() {
		items = doc.Array()
	}

	var bad int
	for _, it := range items {
		row, err := decodeRow(it)
		if err != nil {
			bad++
			continue
		}
		if err := h.sink.Submit(ctx, row); err != nil {
			h.metrics.RecordError("consumer_submit")
			return err
		}
		// event time to now
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(row.Date).Seconds())
	}
	if bad > 0 {
		h.metrics.RecordError("consumer_decode")
		if bad == len(items) {
			// a message with no usable row goes to the DLQ
			return fmt.Errorf("%w: no decodable rows in message", models.ErrInvalidInput)
		}
	}
	return nil
}

func decodeRow(r gjson.Result) (models.PriceRow, error) {
	name := firstString(r, "product", "name", "description")
	if name == "" {
		return models.PriceRow{}, fmt.Errorf("missing product")
	}

	var date time.Time
	switch d := firstOf(r, "date", "invoiceDate", "ts"); d.Type {
	case gjson.Number:
		ts := d.Int()
		if ts > 1e11 { // ms
			ts /= 1000
		}
		date = time.Unix(ts, 0).UTC()
	case gjson.String:
		t, ok := util.ParseTime(d.String())
		if !ok {
			return models.PriceRow{}, fmt.Errorf("bad date %q", d.String())
		}
		date = t
	default:
		return models.PriceRow{}, fmt.Errorf("missing date")
	}

	var price float64
	switch p := firstOf(r, "price", "unitPrice"); p.Type {
	case gjson.Number:
		price = p.Float()
	case gjson.String:
		v, ok := util.ParsePrice(p.String())
		if !ok {
			return models.PriceRow{}, fmt.Errorf("bad price %q", p.String())
		}
		price = v
	default:
		return models.PriceRow{}, fmt.Errorf("missing price")
	}

	return models.PriceRow{
		Date:     date,
		Name:     name,
		Category: r.Get("category").String(),
		Price:    price,
	}, nil
}

func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, keys ...string) string {
	return firstOf(r, keys...).String()
}

var _ pkgkafka.MessageHandler = (*KafkaPricesHandler)(nil)
