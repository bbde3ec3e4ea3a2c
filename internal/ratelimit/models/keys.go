package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers
// containing ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// WindowKey is the sliding-window sorted set for an identifier+category.
func WindowKey(identifier string, category Category) string {
	return "ratelimit:window:" + string(category) + ":" + SanitizeKeySegment(identifier)
}

// BlockKey is the punitive block marker for an identifier+category.
func BlockKey(identifier string, category Category) string {
	return "ratelimit:block:" + string(category) + ":" + SanitizeKeySegment(identifier)
}
