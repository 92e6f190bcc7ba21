package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/kafka"
	"github.com/sweetshop/inventory-api/pkg/logging"
	"github.com/sweetshop/inventory-api/pkg/metrics"
)

// EventPublisher publishes domain events to a single topic
type EventPublisher struct {
	producer *kafka.Producer
	topic    string
	source   string
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewEventPublisher creates a publisher bound to the given topic
func NewEventPublisher(producer *kafka.Producer, topic, source string, m *metrics.Metrics, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		source:   source,
		metrics:  m,
		logger:   logger,
	}
}

func (p *EventPublisher) toMessage(event domain.DomainEvent) (*kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	return &kafka.Message{
		Key:       event.EventType(),
		EventType: event.EventType(),
		Source:    p.source,
		Time:      time.Now().UTC(),
		Data:      data,
	}, nil
}

// Publish publishes a single domain event
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	msg, err := p.toMessage(event)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.producer.Publish(ctx, p.topic, msg)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(p.topic, event.EventType(), err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, p.topic, event.EventType(), err == nil, duration)

	return err
}

// PublishAll publishes a batch of domain events
func (p *EventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := p.toMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	start := time.Now()
	err := p.producer.PublishBatch(ctx, p.topic, msgs)
	duration := time.Since(start)

	for _, event := range events {
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(p.topic, event.EventType(), err == nil, duration)
		}
	}

	return err
}
