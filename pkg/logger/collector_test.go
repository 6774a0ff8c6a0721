package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches []LogBatch
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.(LogBatch))
	return nil
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		Service:        "pricepulse",
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "logs",
		Publisher:      pub,
	})
	for i := 0; i < 3; i++ {
		c.AddLog("error", "load failed", map[string]interface{}{"source": "csv"}, "usecase/store_loader.go:10")
	}
	c.AddLog("warn", "slow", nil, "x.go:1")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topics[0])
	assert.Equal(t, "pricepulse", pub.batches[0].Service)
	require.Len(t, pub.batches[0].Logs, 2)
	counts := map[string]int{}
	for _, e := range pub.batches[0].Logs {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 3, counts["load failed"])
	assert.Equal(t, 1, counts["slow"])
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0].Logs, 2)
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})
	l.Error("boom", Error(errors.New("bad")), Float64("price", 9.5))
	l.Info("ignored")
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	entry := pub.batches[0].Logs[0]
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, "bad", entry.Fields["error"])
	assert.Equal(t, 9.5, entry.Fields["price"])
	assert.Contains(t, entry.Caller, "logger/collector_test.go")
}

func TestChildLoggerSharesCollector(t *testing.T) {
	pub := &capturePublisher{}
	root := NewNop()
	child := root.With(String("component", "store_loader"))
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	child.Warn("reload skipped", Int("rows", 0))
	child.Warn("reload skipped", Int("rows", 0))
	root.RemoveCollector()
	child.Error("after removal")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	require.Len(t, pub.batches[0].Logs, 1)
	entry := pub.batches[0].Logs[0]
	assert.Equal(t, 2, entry.Count)
	assert.Equal(t, "store_loader", entry.Fields["component"])
	assert.Equal(t, int64(0), entry.Fields["rows"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "WARN", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	l.Info("suppressed")
}
