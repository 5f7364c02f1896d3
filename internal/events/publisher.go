package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/kafka"
	"github.com/hotelcore/service-booking/internal/events/schema"
)

// KafkaPublisher publishes domain events as CloudEvents.
type KafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher creates a publisher writing through producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish wraps payload in a CloudEvent keyed by subject and writes it to topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, eventType, subject string, payload interface{}) error {
	ce, err := kafka.NewCloudEvent(schema.Source, eventType, payload)
	if err != nil {
		return err
	}
	ce.Subject = subject
	return p.producer.PublishEvent(ctx, topic, ce)
}

// LogPublisher only logs events. Used when Kafka is disabled.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, topic, eventType, subject string, _ interface{}) error {
	p.logger.Debug("event not published, kafka disabled",
		zap.String("topic", topic),
		zap.String("type", eventType),
		zap.String("subject", subject),
	)
	return nil
}
