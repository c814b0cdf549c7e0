package domain

import (
	"encoding/json"
	"fmt"
)

// RuleConfig is one reward rule as it appears in configuration.
// Three JSON shapes are accepted and normalized at decode time:
//
//	"login_streak >= 3"
//	["login_streak >= 3", "posts_created >= 1"]
//	{"conditions": ..., "description": "..."}
//
// A list means every condition must hold; the catalog joins list
// entries with `and` into a single expression.
type RuleConfig struct {
	Conditions  []string `json:"conditions"`
	Description string   `json:"description,omitempty"`
}

// UnmarshalJSON resolves the three accepted rule shapes into the
// canonical form so downstream code never re-inspects raw JSON.
func (r *RuleConfig) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		r.Conditions = []string{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		r.Conditions = list
		return nil
	}

	var obj struct {
		Conditions  conditionList `json:"conditions"`
		Description string        `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("rule must be a string, a string list, or an object with a conditions key: %w", err)
	}
	r.Conditions = obj.Conditions
	r.Description = obj.Description
	return nil
}

// conditionList accepts either a single string or a list of strings.
type conditionList []string

func (c *conditionList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = conditionList{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = conditionList(list)
	return nil
}

// BoxTypeConfig describes one reward category's presentation and value.
type BoxTypeConfig struct {
	// Name is the display name shown to users.
	Name string `json:"name"`

	// BaseKarma is the pre-multiplier point value. Must be >= 1.
	BaseKarma int `json:"base_karma"`

	// RarityWeights maps rarity names to relative weights.
	// Weights need not sum to 1; empty means DefaultRarityWeights.
	RarityWeights map[string]float64 `json:"rarity_weights,omitempty"`
}

// DefaultRarityWeights returns the stock rarity distribution.
func DefaultRarityWeights() map[string]float64 {
	return map[string]float64{
		RarityCommon:    0.6,
		RarityRare:      0.25,
		RarityElite:     0.1,
		RarityLegendary: 0.05,
	}
}
