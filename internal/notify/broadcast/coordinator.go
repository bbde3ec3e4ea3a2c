// Package broadcast fans batches of enriched items out to the stream and bot
// channels and aggregates per-batch statistics.
//
// The two channels are independent failure domains: a bot outage never stops
// stream delivery and vice versa. Nothing raised inside a batch escapes
// ProcessAndBroadcast; every failure degrades to partial statistics.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"newswire/internal/notify/metrics"
	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
)

// botChannelMinImportance is the batch-level pre-filter for regular bot
// delivery. The bot sender applies its own stricter per-send gate on top;
// both thresholds are kept deliberately.
const botChannelMinImportance = 3

// Filter resolves recipients and records delivery attempts.
type Filter interface {
	EligibleUsers(ctx context.Context, item models.Item, deliveryType models.DeliveryType) ([]models.Profile, error)
	RecordDelivery(ctx context.Context, userID string, item models.Item, deliveryType models.DeliveryType, success bool)
}

type channelKind string

const (
	channelStream channelKind = "stream"
	channelBot    channelKind = "bot"
)

// sendOutcome tags each task result with its channel so counting never
// depends on task ordering.
type sendOutcome struct {
	itemID    string
	channel   channelKind
	ok        bool
	delivered int // per-recipient successes, bot channel only
}

type Coordinator struct {
	filter  Filter
	stream  ports.StreamSender
	bot     ports.BotSender
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func New(filter Filter, stream ports.StreamSender, bot ports.BotSender, opts ...Option) (*Coordinator, error) {
	if filter == nil {
		return nil, fmt.Errorf("eligibility filter is required")
	}
	if stream == nil {
		return nil, fmt.Errorf("stream sender is required")
	}
	if bot == nil {
		return nil, fmt.Errorf("bot sender is required")
	}

	c := &Coordinator{
		filter: filter,
		stream: stream,
		bot:    bot,
		logger: slog.Default(),
		tracer: otel.Tracer("newswire/broadcast"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ProcessAndBroadcast fans one batch out to both channels. Urgent items are
// fully dispatched before regular items begin; within a sub-batch, dispatch
// is concurrent and unordered.
func (c *Coordinator) ProcessAndBroadcast(ctx context.Context, items []models.Item) *models.BatchResult {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "broadcast.process_batch",
		trace.WithAttributes(attribute.Int("batch.size", len(items))))
	defer span.End()

	result := &models.BatchResult{TotalProcessed: len(items)}

	var urgent, regular []models.Item
	for _, item := range items {
		if item.IsUrgent {
			urgent = append(urgent, item)
		} else {
			regular = append(regular, item)
		}
	}

	for _, outcome := range c.dispatch(ctx, urgent, models.DeliveryUrgent) {
		c.tally(result, outcome)
	}
	result.UrgentBroadcast = len(urgent)

	for _, outcome := range c.dispatch(ctx, regular, models.DeliveryRegular) {
		c.tally(result, outcome)
		if outcome.channel == channelBot && outcome.ok && outcome.delivered > 0 {
			result.RegularBroadcast++
		}
	}

	if c.metrics != nil {
		c.metrics.RecordBatch(len(items), time.Since(start))
	}
	span.SetAttributes(
		attribute.Int("batch.urgent", result.UrgentBroadcast),
		attribute.Int("batch.bot_notifications", result.BotNotifications),
		attribute.Int("batch.stream_broadcasts", result.StreamBroadcasts),
	)
	c.logger.Info("broadcast batch complete",
		"total", result.TotalProcessed,
		"urgent", result.UrgentBroadcast,
		"regular_bot", result.RegularBroadcast,
		"bot_notifications", result.BotNotifications,
		"stream_broadcasts", result.StreamBroadcasts,
		"took", time.Since(start))

	return result
}

// dispatch runs all channel tasks for one sub-batch concurrently and gathers
// their tagged outcomes.
func (c *Coordinator) dispatch(ctx context.Context, items []models.Item, deliveryType models.DeliveryType) []sendOutcome {
	if len(items) == 0 {
		return nil
	}

	outcomes := make(chan sendOutcome, 2*len(items))
	var g errgroup.Group

	for _, item := range items {
		// Every item reaches the stream channel; only the bot channel is
		// importance-gated for regular delivery.
		g.Go(func() error {
			outcomes <- c.sendStream(item)
			return nil
		})

		if deliveryType == models.DeliveryRegular && item.ImportanceScore < botChannelMinImportance {
			continue
		}
		g.Go(func() error {
			outcomes <- c.sendBot(ctx, item, deliveryType)
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)

	gathered := make([]sendOutcome, 0, cap(outcomes))
	for outcome := range outcomes {
		gathered = append(gathered, outcome)
	}
	return gathered
}

// sendStream pushes one item to all connected stream clients. The stream
// channel has no per-recipient acknowledgment: attempted counts as sent.
func (c *Coordinator) sendStream(item models.Item) sendOutcome {
	c.stream.Send(item)
	if c.metrics != nil {
		c.metrics.RecordSend(string(channelStream), true)
	}
	return sendOutcome{itemID: item.ID, channel: channelStream, ok: true}
}

// sendBot resolves recipients for one item and delivers over the bot
// channel. A recipient-lookup failure degrades this item to zero bot
// recipients; it never fails the batch.
func (c *Coordinator) sendBot(ctx context.Context, item models.Item, deliveryType models.DeliveryType) sendOutcome {
	outcome := sendOutcome{itemID: item.ID, channel: channelBot}

	recipients, err := c.filter.EligibleUsers(ctx, item, deliveryType)
	if err != nil {
		c.logger.Error("recipient lookup failed, skipping bot delivery",
			"item_id", item.ID, "delivery_type", deliveryType.String(), "error", err)
		return outcome
	}
	if len(recipients) == 0 {
		outcome.ok = true
		return outcome
	}

	sends, err := c.bot.SendToUsers(ctx, recipients, item, deliveryType)
	if err != nil {
		c.logger.Error("bot channel send failed",
			"item_id", item.ID, "recipients", len(recipients), "error", err)
	}

	for _, send := range sends {
		c.filter.RecordDelivery(ctx, send.UserID, item, deliveryType, send.Success)
		if c.metrics != nil {
			c.metrics.RecordSend(string(channelBot), send.Success)
		}
		if send.Success {
			outcome.delivered++
		}
	}

	outcome.ok = err == nil
	return outcome
}

func (c *Coordinator) tally(result *models.BatchResult, outcome sendOutcome) {
	switch outcome.channel {
	case channelStream:
		if outcome.ok {
			result.StreamBroadcasts++
		}
	case channelBot:
		result.BotNotifications += outcome.delivered
	}
}
