package domain

import (
	"time"
)

// Decision status constants. Every evaluate call ends in exactly one.
const (
	// StatusDelivered means a reward was granted and committed.
	StatusDelivered = "delivered"

	// StatusMissed means the probability gate rejected the request.
	StatusMissed = "missed"

	// StatusAlreadyReceived means a reward already exists for (date, user).
	StatusAlreadyReceived = "already_received"

	// StatusError means an internal failure aborted this request.
	StatusError = "error"
)

// Rarity tiers, from most to least frequent.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityElite     = "elite"
	RarityLegendary = "legendary"
)

// RarityMultipliers maps rarity tiers to karma multipliers.
// These are fixed product constants, not configuration.
var RarityMultipliers = map[string]float64{
	RarityCommon:    1.0,
	RarityRare:      1.25,
	RarityElite:     1.5,
	RarityLegendary: 2.0,
}

// CategoryMystery is the reserved fallback category when no rule matches.
const CategoryMystery = "mystery"

// RewardRequest is one surprise-box check: a user, a calendar date,
// and that day's activity metrics.
type RewardRequest struct {
	UserID  string    `json:"user_id"`
	Date    string    `json:"date"` // YYYY-MM-DD
	Metrics MetricSet `json:"daily_metrics"`
}

// Decision is the terminal output of one evaluate call.
// Exactly one of "unlocked with full reward fields" or
// "not unlocked with a reason" holds.
type Decision struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	Unlocked    bool   `json:"surprise_unlocked"`
	BoxType     string `json:"box_type,omitempty"`
	BoxName     string `json:"box_name,omitempty"`
	Rarity      string `json:"rarity,omitempty"`
	RewardKarma int    `json:"reward_karma,omitempty"`
	Reason      string `json:"reason"`
	Status      string `json:"status"`
}

// Award is one ledger row: the reward recorded for (date, user).
// At most one may ever exist per (date, user) pair.
type Award struct {
	Date      string    `json:"date"`
	UserID    string    `json:"user_id"`
	BoxType   string    `json:"box_type"`
	BoxName   string    `json:"box_name,omitempty"`
	Rarity    string    `json:"rarity,omitempty"`
	Karma     int       `json:"reward_karma,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
