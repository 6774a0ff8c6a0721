package repository

import (
	"context"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/kafka"
)

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
)

// Producer is the subset of pkg/kafka.Producer used here.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes recommendation events keyed by matched product,
// so events for one product keep their order.
type KafkaEventPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaEventPublisher(producer Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishRecommendation(ctx context.Context, ev models.RecommendationEvent) error {
	key := ev.MatchedProduct
	if key == "" {
		key = ev.ProductName
	}
	if ev.ID != "" && kafka.TraceIDFrom(ctx) == "" {
		ctx = kafka.WithTraceID(ctx, ev.ID)
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopEventPublisher drops events; used when kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishRecommendation(context.Context, models.RecommendationEvent) error {
	return nil
}

func (NopEventPublisher) Close() error { return nil }
