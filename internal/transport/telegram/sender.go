// Package telegram implements the bot channel: per-recipient delivery via
// the Telegram Bot API, paced to stay under the API's flood limits.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
	"newswire/internal/platform/config"
	"newswire/pkg/platform/circuit"
)

// ErrChannelOpen is returned while the circuit breaker holds the bot channel
// open after repeated whole-batch failures.
var ErrChannelOpen = errors.New("bot channel circuit open")

// regularBotMinImportance gates regular deliveries inside the sender, on top
// of the coordinator's batch-level pre-filter.
const regularBotMinImportance = 4

type Sender struct {
	bot     *tele.Bot
	limiter *rate.Limiter
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// New builds the bot channel sender. Returns nil if no token is configured
// (bot channel disabled).
func New(cfg config.TelegramConfig, logger *slog.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, nil
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	sendsPerSec := cfg.SendsPerSec
	if sendsPerSec <= 0 {
		sendsPerSec = 25
	}

	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendsPerSec), sendsPerSec),
		breaker: circuit.New("telegram", circuit.WithFailureThreshold(3)),
		logger:  logger,
	}, nil
}

// SendToUsers delivers one item to each recipient. Individual failures are
// logged and reported per recipient; the returned error is reserved for the
// channel being entirely unavailable (every send failed).
func (s *Sender) SendToUsers(ctx context.Context, recipients []models.Profile, item models.Item, deliveryType models.DeliveryType) ([]ports.SendOutcome, error) {
	if deliveryType == models.DeliveryRegular && item.ImportanceScore < regularBotMinImportance {
		return nil, nil
	}
	if s.breaker.IsOpen() && len(recipients) > 1 {
		// Probe with a single recipient while open; the rest of the batch is
		// spared the timeout and the circuit can still close on recovery.
		s.logger.Warn("bot channel circuit open, probing with one recipient",
			"item_id", item.ID, "skipped", len(recipients)-1)
		recipients = recipients[:1]
	}

	text := formatItem(item, deliveryType)
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, DisableWebPagePreview: true}

	outcomes := make([]ports.SendOutcome, 0, len(recipients))
	failures := 0
	for _, recipient := range recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			return outcomes, err
		}

		_, err := s.bot.Send(tele.ChatID(recipient.Settings.ChatID), text, opts)
		if err != nil {
			failures++
			s.logger.Warn("bot send failed",
				"user_id", recipient.Settings.UserID, "item_id", item.ID, "error", err)
		}
		outcomes = append(outcomes, ports.SendOutcome{
			UserID:  recipient.Settings.UserID,
			Success: err == nil,
		})
	}

	if len(recipients) > 0 && failures == len(recipients) {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.Error("bot channel circuit opened", "item_id", item.ID)
		}
		return outcomes, errors.New("bot channel unavailable: all sends failed")
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("bot channel circuit closed")
	}
	return outcomes, nil
}

// SendDigest delivers one user's daily digest as a single message.
func (s *Sender) SendDigest(ctx context.Context, recipient models.UserSettings, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	if s.breaker.IsOpen() {
		return ErrChannelOpen
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, DisableWebPagePreview: true}
	if _, err := s.bot.Send(tele.ChatID(recipient.ChatID), formatDigest(items), opts); err != nil {
		s.breaker.RecordFailure()
		return fmt.Errorf("send digest: %w", err)
	}
	s.breaker.RecordSuccess()
	return nil
}

func formatItem(item models.Item, deliveryType models.DeliveryType) string {
	var b strings.Builder

	if deliveryType == models.DeliveryUrgent || item.IsUrgent {
		b.WriteString("🚨 *URGENT* ")
	}
	fmt.Fprintf(&b, "*%s*\n\n", escapeMarkdown(item.Title))

	if item.Content != "" {
		content := item.Content
		if len(content) > 300 {
			content = content[:300] + "…"
		}
		b.WriteString(escapeMarkdown(content))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Category: %s | Importance: %d/5", item.Category, item.ImportanceScore)
	if item.Source != "" {
		fmt.Fprintf(&b, " | %s", escapeMarkdown(item.Source))
	}
	if item.URL != "" {
		fmt.Fprintf(&b, "\n[Read more](%s)", item.URL)
	}
	return b.String()
}

func formatDigest(items []models.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *Daily Digest* (%d items)\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n• *%s*", escapeMarkdown(item.Title))
		if item.URL != "" {
			fmt.Fprintf(&b, " ([link](%s))", item.URL)
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "[", "\\[", "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
