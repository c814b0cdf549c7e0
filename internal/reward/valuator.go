package reward

import (
	"math/rand"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

// rarityOrder fixes the sampling order so a given seed always walks
// the cumulative weights the same way.
var rarityOrder = []string{
	domain.RarityCommon,
	domain.RarityRare,
	domain.RarityElite,
	domain.RarityLegendary,
}

// Valuator turns a resolved category and classifier probability into
// a rarity tier and a clamped karma value.
type Valuator struct {
	boxTypes map[string]domain.BoxTypeConfig
	karmaMin int
	karmaMax int
}

// NewValuator builds a valuator over the given box type table.
func NewValuator(boxTypes map[string]domain.BoxTypeConfig, karmaMin, karmaMax int) *Valuator {
	return &Valuator{boxTypes: boxTypes, karmaMin: karmaMin, karmaMax: karmaMax}
}

// BoxType returns the box config for a category. Categories without
// one use the mystery box config.
func (v *Valuator) BoxType(category string) domain.BoxTypeConfig {
	if box, ok := v.boxTypes[category]; ok {
		return box
	}
	if box, ok := v.boxTypes[domain.CategoryMystery]; ok {
		return box
	}
	return domain.BoxTypeConfig{
		Name:          "Mystery Box",
		BaseKarma:     15,
		RarityWeights: domain.DefaultRarityWeights(),
	}
}

// BoxName returns the display name for a category.
func (v *Valuator) BoxName(category string) string {
	if box, ok := v.boxTypes[category]; ok && box.Name != "" {
		return box.Name
	}
	return "Mystery Box"
}

// Rarity draws a tier for a category. Each configured weight is
// scaled by (1 + p) and the scaled weights renormalized before one
// tier is sampled from rng. Callers seed rng from Seed so the same
// (user, date) pair draws the same tier.
func (v *Valuator) Rarity(category string, p float64, rng *rand.Rand) string {
	weights := v.BoxType(category).RarityWeights
	if len(weights) == 0 {
		weights = domain.DefaultRarityWeights()
	}

	var total float64
	for _, name := range rarityOrder {
		if w, ok := weights[name]; ok && w > 0 {
			total += w * (1 + p)
		}
	}
	if total <= 0 {
		return domain.RarityCommon
	}

	draw := rng.Float64() * total
	acc := 0.0
	last := domain.RarityCommon
	for _, name := range rarityOrder {
		w, ok := weights[name]
		if !ok || w <= 0 {
			continue
		}
		acc += w * (1 + p)
		last = name
		if draw < acc {
			return name
		}
	}
	return last
}

// Karma computes the point value: base karma for the category, times
// the fixed rarity multiplier, times an activity bonus of up to 50%
// driven by the mean raw metric value. The result is truncated to an
// integer and clamped to the configured range.
func (v *Valuator) Karma(category, rarity string, metrics domain.MetricSet) int {
	base := v.BoxType(category).BaseKarma

	mult, ok := domain.RarityMultipliers[rarity]
	if !ok {
		mult = 1.0
	}

	bonus := 1.0 + (metrics.Mean()/100)*0.5
	karma := int(float64(base) * mult * bonus)

	if karma < v.karmaMin {
		return v.karmaMin
	}
	if karma > v.karmaMax {
		return v.karmaMax
	}
	return karma
}
