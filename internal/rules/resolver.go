package rules

import (
	"math/rand"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

// Resolve picks the winning category from evaluated matches. When no
// rule is satisfied the reserved mystery fallback wins. Otherwise the
// highest specificity wins; a tie is broken by a uniform draw from
// rng, which callers seed from the (user, date) pair so the same
// request always resolves to the same category.
func Resolve(matches []Match, rng *rand.Rand) string {
	var tied []string
	best := 0

	for _, m := range matches {
		if !m.Satisfied {
			continue
		}
		switch {
		case m.Rule.Specificity > best:
			best = m.Rule.Specificity
			tied = tied[:0]
			tied = append(tied, m.Rule.Category)
		case m.Rule.Specificity == best:
			tied = append(tied, m.Rule.Category)
		}
	}

	switch len(tied) {
	case 0:
		return domain.CategoryMystery
	case 1:
		return tied[0]
	}

	// Matches arrive in catalog order, so tied names are already
	// sorted and the draw is reproducible for a given seed.
	return tied[rng.Intn(len(tied))]
}
