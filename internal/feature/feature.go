// Package feature builds the fixed-order numeric vectors consumed by
// the classifier oracle. Vector layout must match between training
// and inference: raw metrics in canonical order, one indicator per
// rule in catalog order, then the temporal multiplier. Changing the
// rule catalog changes the layout and requires a retrained model.
package feature

import (
	"strconv"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/rules"
)

// Width returns the vector length for a catalog of ruleCount rules.
func Width(ruleCount int) int {
	return len(domain.MetricKeys) + ruleCount + 1
}

// Vector assembles the feature vector for one decision.
func Vector(metrics domain.MetricSet, matches []rules.Match, temporal float64) []float64 {
	vec := make([]float64, 0, len(domain.MetricKeys)+len(matches)+1)

	for _, key := range domain.MetricKeys {
		vec = append(vec, float64(metrics.Value(key)))
	}
	for _, m := range matches {
		if m.Satisfied {
			vec = append(vec, 1)
		} else {
			vec = append(vec, 0)
		}
	}

	return append(vec, temporal)
}

// TemporalMultiplier computes the calendar component for a date:
// 1.2 on configured weekend days (Saturday and Sunday when none are
// configured), scaled by the month's seasonal multiplier.
func TemporalMultiplier(date time.Time, cfg domain.TemporalConfig) float64 {
	weekend := cfg.WeekendDays
	if len(weekend) == 0 {
		weekend = []string{"Saturday", "Sunday"}
	}

	mult := 1.0
	day := date.Weekday().String()
	for _, w := range weekend {
		if day == w {
			mult = 1.2
			break
		}
	}

	month := strconv.Itoa(int(date.Month()))
	if seasonal, ok := cfg.SeasonalMultipliers[month]; ok {
		mult *= seasonal
	}

	return mult
}
