package telegram

import (
	"log/slog"
	"strings"
	"testing"

	"newswire/internal/notify/models"
	"newswire/internal/platform/config"
)

func TestNewWithoutTokenDisablesChannel(t *testing.T) {
	sender, err := New(config.TelegramConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender != nil {
		t.Fatal("expected nil sender without a token")
	}
}

func TestFormatItem(t *testing.T) {
	item := models.Item{
		ID:              "i-1",
		Title:           "Fed Raises Rates",
		Content:         "The central bank raised its benchmark rate.",
		Category:        "stocks",
		Source:          "Reuters",
		URL:             "https://example.com/fed",
		ImportanceScore: 4,
	}

	t.Run("regular item carries metadata", func(t *testing.T) {
		text := formatItem(item, models.DeliveryRegular)
		for _, want := range []string{"*Fed Raises Rates*", "Category: stocks", "Importance: 4/5", "Reuters", "https://example.com/fed"} {
			if !strings.Contains(text, want) {
				t.Errorf("formatted item missing %q:\n%s", want, text)
			}
		}
		if strings.Contains(text, "URGENT") {
			t.Error("regular item must not carry the urgent marker")
		}
	})

	t.Run("urgent delivery carries the urgent marker", func(t *testing.T) {
		text := formatItem(item, models.DeliveryUrgent)
		if !strings.Contains(text, "URGENT") {
			t.Error("urgent delivery missing marker")
		}
	})

	t.Run("long content is truncated", func(t *testing.T) {
		long := item
		long.Content = strings.Repeat("x", 500)
		text := formatItem(long, models.DeliveryRegular)
		if strings.Contains(text, strings.Repeat("x", 301)) {
			t.Error("content not truncated")
		}
	})

	t.Run("markdown control characters are escaped", func(t *testing.T) {
		tricky := item
		tricky.Title = "5_reasons *markets* [fall]"
		text := formatItem(tricky, models.DeliveryRegular)
		if !strings.Contains(text, `5\_reasons \*markets\* \[fall]`) {
			t.Errorf("title not escaped:\n%s", text)
		}
	})
}

func TestFormatDigest(t *testing.T) {
	items := []models.Item{
		{Title: "First Story", URL: "https://example.com/1"},
		{Title: "Second Story"},
	}

	text := formatDigest(items)
	if !strings.Contains(text, "Daily Digest") {
		t.Error("digest missing header")
	}
	if !strings.Contains(text, "(2 items)") {
		t.Error("digest missing item count")
	}
	if !strings.Contains(text, "First Story") || !strings.Contains(text, "Second Story") {
		t.Error("digest missing item titles")
	}
}
