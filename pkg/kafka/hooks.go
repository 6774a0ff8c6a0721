package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	applogger "PricePulse/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
)

// ErrRejected marks a message a hook refused. The consumer does not retry
// rejected messages; they go straight to the DLQ when one is configured.
var ErrRejected = errors.New("message rejected")

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// ConsumerHook runs around every handler attempt. BeforeHandle may replace the
// context or payload; an error from it skips the handler for that attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is embedded by hooks that only care about one callback.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

// HookChain applies BeforeHandle in order and unwinds AfterHandle in reverse.
// Panics inside a hook never reach the consumer.
type HookChain []ConsumerHook

func NewHookChain(hooks ...ConsumerHook) HookChain {
	chain := make(HookChain, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}
	return chain
}

func (hc HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	for _, h := range hc {
		var err error
		if perr := guard(func() { ctx, km, data, err = h.BeforeHandle(ctx, topic, km, data) }); perr != nil {
			return ctx, km, data, perr
		}
		if err != nil {
			return ctx, km, data, err
		}
	}
	return ctx, km, data, nil
}

func (hc HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for i := len(hc) - 1; i >= 0; i-- {
		h := hc[i]
		_ = guard(func() { h.AfterHandle(ctx, topic, km, data, err) })
	}
}

func (hc HookChain) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for _, h := range hc {
		_ = guard(func() { h.OnError(ctx, topic, km, data, err) })
	}
}

func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	fn()
	return nil
}

type ctxKey string

// CtxTraceID holds the correlation id of the message being handled.
const CtxTraceID ctxKey = "pricepulse_trace_id"

// TraceIDFrom returns the trace id stored by TraceHook or WithTraceID.
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(CtxTraceID).(string)
	return v
}

// TraceHook puts the trace_id header into the handler context. Messages
// without one are traced by their position, topic/partition/offset.
type TraceHook struct {
	NoopHook
}

func (TraceHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	id := ""
	for _, h := range km.Headers {
		if h.Key == "trace_id" && len(h.Value) > 0 {
			id = string(h.Value)
			break
		}
	}
	if id == "" {
		id = topic + "/" + strconv.Itoa(km.Partition) + "/" + strconv.FormatInt(km.Offset, 10)
	}
	return context.WithValue(ctx, CtxTraceID, id), km, data, nil
}

// PayloadHook rejects payloads that are empty, oversized or not JSON.
// MaxBytes of zero disables the size check.
type PayloadHook struct {
	NoopHook
	MaxBytes int
}

func (h PayloadHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	switch {
	case len(data) == 0:
		return ctx, km, data, reject("empty payload")
	case h.MaxBytes > 0 && len(data) > h.MaxBytes:
		return ctx, km, data, reject("payload of %d bytes exceeds %d", len(data), h.MaxBytes)
	case !gjson.ValidBytes(data):
		return ctx, km, data, reject("payload is not valid JSON")
	}
	return ctx, km, data, nil
}

// LogHook writes one warning per failed message.
type LogHook struct {
	NoopHook
	Log *applogger.Logger
}

func (h LogHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.Log == nil {
		return
	}
	h.Log.Warn("price message failed",
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
		applogger.Int("bytes", len(data)),
		applogger.String("trace_id", TraceIDFrom(ctx)),
		applogger.Bool("rejected", errors.Is(err, ErrRejected)),
		applogger.Error(err),
	)
}
