package filter

import (
	"testing"

	"newswire/internal/notify/models"
)

func TestTitleOverlap(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "identical titles",
			a:    "Bitcoin Hits New High",
			b:    "Bitcoin Hits New High",
			want: 1.0,
		},
		{
			name: "four of five shared against the smaller set",
			a:    "Bitcoin Hits New High Today",
			b:    "Bitcoin Hits New High Right Now",
			want: 0.8,
		},
		{
			name: "case insensitive",
			a:    "OIL PRICES SLIDE",
			b:    "oil prices slide",
			want: 1.0,
		},
		{
			name: "disjoint titles",
			a:    "Fed Raises Rates",
			b:    "Gold Falls Sharply",
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleOverlap(tokenSet(tt.a), tokenSet(tt.b))
			if got != tt.want {
				t.Errorf("titleOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNearDuplicate(t *testing.T) {
	recent := []models.DeliveryRecord{
		{Title: "Bitcoin Hits New High Today"},
		{Title: "Fed Holds Rates Steady"},
	}

	if !isNearDuplicate("Bitcoin Hits New High Right Now", recent) {
		t.Error("expected near-duplicate above the overlap threshold")
	}
	if isNearDuplicate("Oil Prices Slide On Supply Data", recent) {
		t.Error("unrelated title flagged as duplicate")
	}
	if isNearDuplicate("", recent) {
		t.Error("empty title can never be a duplicate")
	}
	if isNearDuplicate("Bitcoin Hits New High Right Now", nil) {
		t.Error("no history means no duplicates")
	}
}

func TestIsLowQuality(t *testing.T) {
	tests := []struct {
		name string
		item models.Item
		want bool
	}{
		{
			name: "clean financial item",
			item: models.Item{Title: "Fed Raises Rates", Content: "The central bank raised rates by 25bp."},
			want: false,
		},
		{
			name: "two marker phrases stay under the threshold",
			item: models.Item{Title: "Guaranteed savings", Content: "Click here for details"},
			want: false,
		},
		{
			name: "three marker phrases tip the threshold",
			item: models.Item{Title: "Act now", Content: "Click here for a guaranteed return"},
			want: true,
		},
		{
			name: "markers split across title and content",
			item: models.Item{Title: "Risk-free exclusive deal", Content: "Sign up now"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLowQuality(tt.item); got != tt.want {
				t.Errorf("isLowQuality() = %v, want %v", got, tt.want)
			}
		})
	}
}
