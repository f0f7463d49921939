package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"landledger/pkg/domain"
)

// kafkaPayload is the wire form shipped to the audit topic. Field names are
// part of the consumer contract; do not rename.
type kafkaPayload struct {
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	Actor      string `json:"actor,omitempty"`
	Subject    string `json:"subject,omitempty"`
	PropertyID int64  `json:"property_id,omitempty"`
	TxRef      string `json:"tx_ref,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// KafkaSink tees audit events to a Kafka topic while delegating persistence
// and queries to an inner store. Produce failures are logged, never surfaced:
// the local store remains the durable record and downstream consumers are
// best-effort.
type KafkaSink struct {
	inner  Store
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, inner Store, brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, -1, nil, topic); err != nil {
		// Topic may already exist; anything else is reported at first produce.
		logger.InfoContext(ctx, "audit topic create skipped", "topic", topic, "reason", err)
	}

	return &KafkaSink{inner: inner, client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	if err := s.inner.Append(ctx, event); err != nil {
		return err
	}

	payload := kafkaPayload{
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:     string(event.Action),
		Actor:      event.Actor.String(),
		Subject:    event.Subject.String(),
		PropertyID: int64(event.PropertyID),
		TxRef:      event.TxRef,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		ClientIP:   event.ClientIP,
		UserAgent:  event.UserAgent,
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.PropertyID.String()),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit produce failed", "action", event.Action, "error", err)
		}
	})
	return nil
}

func (s *KafkaSink) ListByProperty(ctx context.Context, id domain.PropertyID) ([]Event, error) {
	return s.inner.ListByProperty(ctx, id)
}

// Close flushes pending produces and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}
