package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/repository"
)

var (
	_ repository.EventPublisher = (*KafkaEventPublisher)(nil)
	_ repository.EventPublisher = NopEventPublisher{}
)

// MessageProducer is the subset of pkg/kafka.Producer used here.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes snapshot lifecycle events keyed by user id so a
// user's events stay ordered within a partition.
type KafkaEventPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaEventPublisher(producer MessageProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishSnapshotEvent(ctx context.Context, ev *models.SnapshotEvent) error {
	key := []byte(strconv.FormatInt(ev.UserID, 10))
	if err := p.producer.Publish(ctx, p.topic, key, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// PublishMessage lets the error-log collector reuse the producer.
func (p *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaEventPublisher) Close() error { return p.producer.Close() }

// NopEventPublisher drops events when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishSnapshotEvent(context.Context, *models.SnapshotEvent) error {
	return nil
}

func (NopEventPublisher) Close() error { return nil }
