package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	applogger "PricePulse/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicHook struct{ NoopHook }

func (panicHook) BeforeHandle(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
	panic("boom")
}

type recordHook struct {
	NoopHook
	name  string
	order *[]string
}

func (h recordHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {
	*h.order = append(*h.order, h.name)
}

func (h recordHook) OnError(context.Context, string, kafka.Message, []byte, error) {
	panic("ignored")
}

func TestTraceHookUsesHeader(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "prices", km, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
}

func TestTraceHookFallsBackToPosition(t *testing.T) {
	ctx, _, _, err := TraceHook{}.BeforeHandle(context.Background(), "prices", kafka.Message{Partition: 2, Offset: 41}, nil)
	require.NoError(t, err)
	assert.Equal(t, "prices/2/41", TraceIDFrom(ctx))
}

func TestPayloadHook(t *testing.T) {
	h := PayloadHook{MaxBytes: 16}
	cases := map[string]string{
		"":                         "empty payload",
		`{"rows":[1,2,3,4,5,6,7]}`: "exceeds 16",
		"{oops":                    "not valid JSON",
	}
	for payload, want := range cases {
		_, _, _, err := h.BeforeHandle(context.Background(), "prices", kafka.Message{}, []byte(payload))
		require.Error(t, err, payload)
		assert.True(t, errors.Is(err, ErrRejected))
		assert.Contains(t, err.Error(), want)
	}

	_, _, data, err := h.BeforeHandle(context.Background(), "prices", kafka.Message{}, []byte(`[{"p":1}]`))
	require.NoError(t, err)
	assert.Equal(t, `[{"p":1}]`, string(data))
}

func TestLogHookToleratesNilLogger(t *testing.T) {
	LogHook{}.OnError(context.Background(), "prices", kafka.Message{}, nil, errors.New("x"))
	LogHook{Log: applogger.NewNop()}.OnError(context.Background(), "prices", kafka.Message{}, nil, reject("bad"))
}

func TestHookChainRecoversPanic(t *testing.T) {
	chain := NewHookChain(TraceHook{}, panicHook{}, nil)
	require.Len(t, chain, 2)
	_, _, _, err := chain.BeforeHandle(context.Background(), "prices", kafka.Message{}, []byte("{}"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "hook panic"))
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestHookChainUnwindsInReverse(t *testing.T) {
	var order []string
	chain := NewHookChain(recordHook{name: "a", order: &order}, recordHook{name: "b", order: &order})
	chain.AfterHandle(context.Background(), "prices", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"b", "a"}, order)

	assert.NotPanics(t, func() {
		chain.OnError(context.Background(), "prices", kafka.Message{}, nil, errors.New("x"))
	})
}
