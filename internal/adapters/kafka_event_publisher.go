package adapters

import (
	"chatapp/internal/models"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(brokers, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}}
}

// PublishMessageCreated keys events by chat so one chat's events stay in
// order on a single partition.
func (p *KafkaEventPublisher) PublishMessageCreated(ctx context.Context, event models.MessageCreated) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ChatID),
		Value: value,
		Time:  event.CreatedAt,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
