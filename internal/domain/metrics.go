package domain

// MetricKeys is the canonical metric order for feature vectors.
// Training and inference must agree on this order exactly; it never
// changes without retraining the classifier.
var MetricKeys = []string{
	"login_streak",
	"posts_created",
	"comments_written",
	"upvotes_received",
	"quizzes_completed",
	"buddies_messaged",
	"karma_spent",
	"karma_earned_today",
}

// MetricSet holds one user's activity counters for a single day.
// Keys outside MetricKeys are carried but never scored; missing keys
// read as 0. Negative values are nonsensical but must not break
// evaluation.
type MetricSet map[string]int

// Value returns the named metric, defaulting missing keys to 0.
func (m MetricSet) Value(name string) int {
	if m == nil {
		return 0
	}
	return m[name]
}

// Mean averages the canonical metrics, treating missing keys as 0.
func (m MetricSet) Mean() float64 {
	var sum int
	for _, key := range MetricKeys {
		sum += m.Value(key)
	}
	return float64(sum) / float64(len(MetricKeys))
}

// Clone returns an independent copy of the metric set.
func (m MetricSet) Clone() MetricSet {
	out := make(MetricSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
