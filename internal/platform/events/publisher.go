// Package events publishes delivery and rate-limit events to Kafka for the
// downstream analytics pipeline. Publishing is best-effort: a nil Publisher
// and produce failures are both tolerated, callers never block on it.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"newswire/internal/platform/config"
)

// DeliveryEvent records one notification delivery attempt.
type DeliveryEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ItemID       string    `json:"item_id"`
	Category     string    `json:"category"`
	Importance   int       `json:"importance"`
	DeliveryType string    `json:"delivery_type"`
	Success      bool      `json:"success"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ViolationEvent records a punitive rate-limit block being created.
type ViolationEvent struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	Category     string    `json:"category"`
	Count        int       `json:"count"`
	BurstLimit   int       `json:"burst_limit"`
	BlockSeconds int       `json:"block_seconds"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher produces events to Kafka. The zero of *Publisher (nil) is a
// valid no-op publisher so wiring stays unconditional in main.
type Publisher struct {
	client         *kgo.Client
	deliveryTopic  string
	violationTopic string
	logger         *slog.Logger
}

// New connects to the configured seed brokers. Returns nil if no seeds are
// configured (publishing disabled).
func New(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Seeds) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Seeds...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		client:         client,
		deliveryTopic:  cfg.DeliveryTopic,
		violationTopic: cfg.ViolationTopic,
		logger:         logger,
	}, nil
}

// DeliveryRecorded publishes a delivery event keyed by user so per-user
// ordering survives partitioning.
func (p *Publisher) DeliveryRecorded(ctx context.Context, ev DeliveryEvent) {
	if p == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	p.produce(ctx, p.deliveryTopic, ev.UserID, ev)
}

// BlockCreated publishes a rate-limit violation event keyed by identifier.
func (p *Publisher) BlockCreated(ctx context.Context, ev ViolationEvent) {
	if p == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	p.produce(ctx, p.violationTopic, ev.Identifier, ev)
}

func (p *Publisher) produce(ctx context.Context, topic, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("failed to encode event", "topic", topic, "error", err)
		return
	}
	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("failed to publish event", "topic", topic, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
