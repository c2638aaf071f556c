package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	applogger "github.com/RotemPeled/Crypto-Investor-Dashboard/pkg/logger"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		exp := max
		if attempt < 5 {
			exp = min * time.Duration(1<<uint(attempt-1))
		}
		if d > exp || d < exp/2 {
			t.Fatalf("attempt %d: backoff %v outside [%v,%v]", attempt, d, exp/2, exp)
		}
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected producer error without brokers")
	}
}

type recordHook struct {
	name  string
	order *[]string
	fail  bool
	errs  int
}

func (h *recordHook) BeforeHandle(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
	*h.order = append(*h.order, "before-"+h.name)
	if h.fail {
		panic("bad hook")
	}
	return ctx, append(data, h.name...), nil
}

func (h *recordHook) AfterHandle(context.Context, string, kafka.Message, error) {
	*h.order = append(*h.order, "after-"+h.name)
}

func (h *recordHook) OnError(context.Context, string, kafka.Message, error) { h.errs++ }

func TestHookChainOrderAndPanic(t *testing.T) {
	var order []string
	first := &recordHook{name: "1", order: &order}
	second := &recordHook{name: "2", order: &order}
	chain := NewHookChain(first, nil, second)

	_, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	if err != nil || string(data) != "x12" {
		t.Fatalf("unexpected before result %q err=%v", data, err)
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil)

	want := []string{"before-1", "before-2", "after-2", "after-1"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order %v", order)
		}
	}

	bad := &recordHook{name: "bad", order: &order, fail: true}
	_, _, err = NewHookChain(bad).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("expected panic hook error, got %v", err)
	}
	if bad.errs != 1 {
		t.Fatalf("expected OnError once, got %d", bad.errs)
	}
}

type flakyHandler struct {
	failures int
	calls    int
	panics   bool
}

func (h *flakyHandler) Topic() string { return "dashboard.prewarm" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("boom")
	}
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
		WithConsumerLogger(applogger.NewNop()),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestHandleWithRetry(t *testing.T) {
	c := newTestConsumer(t, 3)
	msg := &message{topic: "dashboard.prewarm", km: kafka.Message{Value: []byte(`{"user_id":1}`)}}

	h := &flakyHandler{failures: 2}
	attempts, err := c.handleWithRetry(h, msg)
	if err != nil || attempts != 3 {
		t.Fatalf("expected success on third attempt, got attempts=%d err=%v", attempts, err)
	}

	h = &flakyHandler{failures: 10}
	attempts, err = c.handleWithRetry(h, msg)
	if err == nil || attempts != 4 {
		t.Fatalf("expected failure after retries, got attempts=%d err=%v", attempts, err)
	}

	h = &flakyHandler{panics: true}
	if _, err := c.handleWithRetry(h, msg); err == nil {
		t.Fatalf("handler panic should surface as an error")
	}
}

func TestRejectEmptyHookSkipsRetries(t *testing.T) {
	c := newTestConsumer(t, 3)
	c.WithConsumerHook(NewHookChain(RejectEmptyHook{}))
	h := &flakyHandler{}

	attempts, err := c.handleWithRetry(h, &message{topic: "dashboard.prewarm"})
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_EMPTY" || attempts != 1 || h.calls != 0 {
		t.Fatalf("empty payload should fail once without calling the handler: attempts=%d calls=%d err=%v", attempts, h.calls, err)
	}
}

type permanentHandler struct{ calls int }

func (h *permanentHandler) Topic() string { return "dashboard.prewarm" }

func (h *permanentHandler) Handle(context.Context, []byte) error {
	h.calls++
	return Permanent(errors.New("bad payload"))
}

func TestPermanentErrorSkipsRetries(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &permanentHandler{}
	attempts, err := c.handleWithRetry(h, &message{topic: "dashboard.prewarm", km: kafka.Message{Value: []byte("x")}})
	var pe *PermanentError
	if !errors.As(err, &pe) || attempts != 1 || h.calls != 1 {
		t.Fatalf("expected a single attempt, got attempts=%d calls=%d err=%v", attempts, h.calls, err)
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must stay nil")
	}
}

type fakeRecorder struct {
	ops  []string
	errs []string
}

func (f *fakeRecorder) RecordError(kind string) { f.errs = append(f.errs, kind) }

func (f *fakeRecorder) RecordLatency(op string, _ float64) { f.ops = append(f.ops, op) }

func TestLoggingHookRecordsLatencyAndErrors(t *testing.T) {
	rec := &fakeRecorder{}
	hook := NewLoggingHook(applogger.NewNop(), rec)

	ctx, _, err := hook.BeforeHandle(context.Background(), "dashboard.prewarm", kafka.Message{}, []byte("x"))
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	hook.AfterHandle(ctx, "dashboard.prewarm", kafka.Message{}, nil)
	hook.OnError(ctx, "dashboard.prewarm", kafka.Message{Partition: 2, Offset: 7}, errors.New("x"))

	if len(rec.ops) != 1 || rec.ops[0] != "kafka:dashboard.prewarm" {
		t.Fatalf("unexpected latency ops %v", rec.ops)
	}
	if len(rec.errs) != 1 || rec.errs[0] != "kafka_handle" {
		t.Fatalf("unexpected error kinds %v", rec.errs)
	}
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"user_id": 1})
	if err != nil || string(b) != `{"user_id":1}` {
		t.Fatalf("unexpected json %s err=%v", b, err)
	}
	if b, _ := encode("raw"); string(b) != "raw" {
		t.Fatalf("strings should pass through, got %s", b)
	}
	if _, err := encode(make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
}
