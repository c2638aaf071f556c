package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Returning a non-nil error from BeforeHandle skips the handler and sends
// the message down the failure path (OnError, DLQ, offset commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
	return ctx, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, error) {}

// HookError is an error produced by a hook rather than a handler.
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// PermanentError marks a handler failure that retrying cannot fix, such as
// an undecodable payload. The consumer skips its remaining retries.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func retryable(err error) bool {
	var hookErr *HookError
	var permErr *PermanentError
	return !errors.As(err, &hookErr) && !errors.As(err, &permErr)
}

// HookChain runs hooks in order before handling and in reverse order after.
// A panicking hook is turned into an ERR_PANIC HookError.
type HookChain struct {
	hooks []ConsumerHook
}

// NewHookChain creates a hook chain. Nil hooks are ignored.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
	filtered := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, []byte, error) {
	for _, h := range c.hooks {
		nextCtx, nextData, err := safeBefore(h, ctx, topic, km, data)
		if err != nil {
			c.OnError(ctx, topic, km, err)
			return ctx, data, err
		}
		ctx, data = nextCtx, nextData
	}
	return ctx, data, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		guard(func() { c.hooks[i].AfterHandle(ctx, topic, km, err) })
	}
}

func (c *HookChain) OnError(ctx context.Context, topic string, km kafka.Message, err error) {
	for _, h := range c.hooks {
		guard(func() { h.OnError(ctx, topic, km, err) })
	}
}

func safeBefore(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, data []byte) (outCtx context.Context, out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			outCtx, out, err = ctx, data, &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("hook panic: %v", r)}
		}
	}()
	return h.BeforeHandle(ctx, topic, km, data)
}

func guard(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// RejectEmptyHook fails messages without a payload before they reach a handler.
type RejectEmptyHook struct{ NoopHook }

func (RejectEmptyHook) BeforeHandle(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
	if len(data) == 0 {
		return ctx, data, &HookError{Code: "ERR_EMPTY"}
	}
	return ctx, data, nil
}

// Recorder is the metrics surface LoggingHook reports to.
type Recorder interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

type startKey struct{}

// LoggingHook logs failed messages and records per-topic handling latency.
type LoggingHook struct {
	logger  *applogger.Logger
	metrics Recorder
	now     func() time.Time
}

func NewLoggingHook(logger *applogger.Logger, metrics Recorder) *LoggingHook {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &LoggingHook{logger: logger, metrics: metrics, now: time.Now}
}

func (h *LoggingHook) BeforeHandle(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
	return context.WithValue(ctx, startKey{}, h.now()), data, nil
}

func (h *LoggingHook) AfterHandle(ctx context.Context, topic string, _ kafka.Message, _ error) {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok || h.metrics == nil {
		return
	}
	h.metrics.RecordLatency("kafka:"+topic, h.now().Sub(start).Seconds())
}

func (h *LoggingHook) OnError(_ context.Context, topic string, km kafka.Message, err error) {
	if h.metrics != nil {
		h.metrics.RecordError("kafka_handle")
	}
	h.logger.Warn("kafka message failed",
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
		applogger.Error(err),
	)
}
