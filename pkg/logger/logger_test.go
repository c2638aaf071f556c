package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu    sync.Mutex
	topic string
	batch []AggregatedLogEntry
	done  chan struct{}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batch = payload.([]AggregatedLogEntry)
	close(p.done)
	return nil
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Format: "json", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{})}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer l.RemoveCollector()

	for i := 0; i < 3; i++ {
		l.Error("adapter failed", String("section", "news"), Error(errors.New("boom")))
	}
	l.Error("adapter failed", String("section", "prices"), Error(errors.New("boom")))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not flush")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "logs" {
		t.Fatalf("unexpected topic %q", pub.topic)
	}
	if len(pub.batch) != 2 {
		t.Fatalf("expected 2 aggregated entries, got %d", len(pub.batch))
	}
	total := 0
	for _, e := range pub.batch {
		total += e.Count
	}
	if total != 4 {
		t.Fatalf("expected 4 logs counted, got %d", total)
	}
}

func TestChildLoggersShareCollector(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{})}
	root := NewNop()
	child := root.With(String("component", "adapters"))

	// Attached after the child was derived, as happens during wiring.
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 1, Topic: "logs", Publisher: pub})
	defer root.RemoveCollector()

	child.Warn("not collected")
	child.Error("collected", Duration("took", 1500*time.Millisecond))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("child error was not collected")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batch) != 1 || pub.batch[0].Message != "collected" || pub.batch[0].Fields["took_ms"] != int64(1500) {
		t.Fatalf("unexpected batch %+v", pub.batch)
	}
}
