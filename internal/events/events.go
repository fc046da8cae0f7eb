// Package events publishes catalog change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/pkg/logger"
	"github.com/debatearchive/catalog/pkg/metrics"
)

type Type string

const (
	Created Type = "document.created"
	Updated Type = "document.updated"
	Deleted Type = "document.deleted"
)

// Event describes one committed change. Document is nil for deletions.
type Event struct {
	Type       Type               `json:"type"`
	ID         string             `json:"id"`
	Document   *document.Document `json:"document,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events keyed by document id, so every change of one
// document lands on the same partition.
type Producer struct {
	writer messageWriter
	log    *slog.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(w, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, log: logger.Component("events").With("topic", topic)}
}

func (p *Producer) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type), "ok").Inc()
	p.log.Debug("event published", "type", ev.Type, "id", ev.ID)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
