// Package kafka forwards audit events to a Kafka topic as JSON records keyed
// by subject, so every event about one organization lands in one partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "semaforo/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink implements audit.Store on top of a Kafka producer.
type Sink struct {
	producer Producer
	topic    string
}

// NewSink returns a sink producing to topic.
func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Append produces event synchronously and returns the broker error, if any.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
