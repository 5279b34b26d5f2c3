// Package kafka publishes audit events to a Kafka topic. Used in place
// of the in-memory store when KAFKA_BROKERS is configured; the broker
// retains the compliance trail beyond process lifetime.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "medicus/pkg/platform/audit"
)

// DefaultTopic is the audit topic when none is configured.
const DefaultTopic = "medicus.audit.patient"

// Sink implements audit.Store by producing one record per event. Records
// are keyed by subject so per-patient event order is preserved within a
// partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// payload is the JSON wire form of an audit event.
type payload struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	RequestID string    `json:"request_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
}

// NewSink connects to the brokers and returns a producing sink. An empty
// topic falls back to DefaultTopic.
func NewSink(brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Append produces the event synchronously so callers (the async
// publisher's drain loop) learn about delivery failures.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(payload{
		Timestamp: event.Timestamp,
		Subject:   event.Subject,
		Action:    event.Action,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
