package config

import (
	"time"

	"newswire/internal/ratelimit/models"
)

// Config holds the per-category rule table. Loaded once at startup; rules
// are immutable afterwards.
type Config struct {
	rules map[models.Category]models.Rule
}

// Default returns the production rule table.
func Default() *Config {
	return &Config{
		rules: map[models.Category]models.Rule{
			models.CategoryGeneral: {
				RequestsPerWindow: 100,
				Window:            time.Minute,
				BurstMultiplier:   1.5,
				BlockDuration:     5 * time.Minute,
			},
			models.CategoryAuth: {
				RequestsPerWindow: 10,
				Window:            time.Minute,
				BurstMultiplier:   1.2,
				BlockDuration:     15 * time.Minute,
			},
			models.CategoryBroadcast: {
				RequestsPerWindow: 30,
				Window:            time.Minute,
				BurstMultiplier:   2.0,
				BlockDuration:     2 * time.Minute,
			},
			models.CategoryRegistration: {
				RequestsPerWindow: 5,
				Window:            time.Hour,
				BurstMultiplier:   1.0,
				BlockDuration:     time.Hour,
			},
			models.CategoryPasswordReset: {
				RequestsPerWindow: 3,
				Window:            time.Hour,
				BurstMultiplier:   1.0,
				BlockDuration:     time.Hour,
			},
			models.CategoryChannelConnect: {
				RequestsPerWindow: 20,
				Window:            time.Minute,
				BurstMultiplier:   1.5,
				BlockDuration:     5 * time.Minute,
			},
		},
	}
}

// New builds a config from an explicit rule table (tests, overrides).
func New(rules map[models.Category]models.Rule) *Config {
	copied := make(map[models.Category]models.Rule, len(rules))
	for cat, rule := range rules {
		copied[cat] = rule
	}
	return &Config{rules: copied}
}

// Rule returns the rule for a category, and whether one is registered.
func (c *Config) Rule(category models.Category) (models.Rule, bool) {
	rule, ok := c.rules[category]
	return rule, ok
}
