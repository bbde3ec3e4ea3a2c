package filter

import (
	"strings"

	"newswire/internal/notify/models"
)

// lowQualityPhrases is the fixed marker list for promotional junk. An item
// whose title+content contains spamPhraseThreshold or more of these is
// suppressed for non-urgent delivery.
var lowQualityPhrases = []string{
	"click here",
	"guaranteed",
	"risk-free",
	"act now",
	"limited time offer",
	"100% profit",
	"double your money",
	"get rich",
	"no risk",
	"exclusive deal",
	"sign up now",
	"free money",
}

const (
	spamPhraseThreshold = 3
	duplicateOverlap    = 0.7
)

// isLowQuality counts low-quality phrase hits in the item text.
func isLowQuality(item models.Item) bool {
	text := strings.ToLower(item.Title + " " + item.Content)
	hits := 0
	for _, phrase := range lowQualityPhrases {
		if strings.Contains(text, phrase) {
			hits++
			if hits >= spamPhraseThreshold {
				return true
			}
		}
	}
	return false
}

// isNearDuplicate reports whether the title's word set overlaps at least
// duplicateOverlap with any of the user's recent delivery titles. Lexical,
// case-insensitive, whitespace-tokenized.
func isNearDuplicate(title string, recent []models.DeliveryRecord) bool {
	tokens := tokenSet(title)
	if len(tokens) == 0 {
		return false
	}
	for _, rec := range recent {
		if titleOverlap(tokens, tokenSet(rec.Title)) >= duplicateOverlap {
			return true
		}
	}
	return false
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// titleOverlap is the shared-token ratio against the smaller set, so a short
// title fully contained in a longer one still scores high.
func titleOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
