package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON (or raw byte) payloads. A trace id found in the
// context travels as the trace_id header, the same header TraceHook reads.
type Producer struct {
	writer messageWriter
	comp   string
}

// NewProducer creates a producer. The writer connects lazily on first publish.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     cfg.balancer(),
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  cfg.compression(),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}
	comp := cfg.Compression
	if comp == "" {
		comp = "gzip"
	}

	initProducerMetricsOnce()
	return &Producer{writer: w, comp: comp}, nil
}

// Publish sends one message. Non-byte values are JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()
	v, contentType, err := encodeValue(value)
	if err != nil {
		producerMessages.WithLabelValues(topic, "encode_error").Inc()
		return err
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   v,
		Time:    start,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte(contentType)}},
	}
	if id := TraceIDFrom(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "trace_id", Value: []byte(id)})
	}

	err = p.writer.WriteMessages(ctx, msg)

	result := "ok"
	if err != nil {
		result = "error"
		err = fmt.Errorf("publish to %s: %w", topic, err)
	}
	producerMessages.WithLabelValues(topic, result).Inc()
	producerBytes.WithLabelValues(topic, p.comp).Add(float64(len(v)))
	producerLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	return err
}

// PublishMessage publishes an unkeyed payload. It lets the producer act as
// the log collector's sink.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

// Close flushes pending async writes and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// WithTraceID stores a trace id for Publish to forward.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxTraceID, id)
}

func encodeValue(value interface{}) ([]byte, string, error) {
	switch val := value.(type) {
	case []byte:
		return val, "application/octet-stream", nil
	case string:
		return []byte(val), "text/plain", nil
	case json.RawMessage:
		return val, "application/json", nil
	default:
		v, err := json.Marshal(value)
		if err != nil {
			return nil, "", fmt.Errorf("marshal value: %w", err)
		}
		return v, "application/json", nil
	}
}

var (
	producerMessages   *prometheus.CounterVec
	producerBytes      *prometheus.CounterVec
	producerLatency    *prometheus.HistogramVec
	producerOnce       sync.Once
	producerRegisterer prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetProducerMetricsRegisterer sets the registerer used on first NewProducer.
func SetProducerMetricsRegisterer(reg prometheus.Registerer) { producerRegisterer = reg }

func initProducerMetricsOnce() {
	producerOnce.Do(func() {
		f := promauto.With(producerRegisterer)
		producerMessages = f.NewCounterVec(
			prometheus.CounterOpts{Name: "pricepulse_kafka_producer_messages_total", Help: "Published messages by result"},
			[]string{"topic", "result"},
		)
		producerBytes = f.NewCounterVec(
			prometheus.CounterOpts{Name: "pricepulse_kafka_producer_bytes_total", Help: "Payload bytes handed to the writer"},
			[]string{"topic", "compression"},
		)
		producerLatency = f.NewHistogramVec(
			prometheus.HistogramOpts{Name: "pricepulse_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		)
	})
}
