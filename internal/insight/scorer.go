package insight

import "strings"

// specificityTerms are the fixed vocabulary the scorer rewards. Matching is
// case-insensitive substring presence, one increment per term.
var specificityTerms = []string{"trust", "competitive", "market", "signals", "position"}

const termIncrement = 0.08

// Score estimates whether a generated insight is worth persisting, in [0,1].
// It is a cheap step-function proxy rewarding verbosity and keyword
// presence, not a semantic judgment: longer insight text and richer source
// content each bump the score in fixed tiers, and each specificity term
// found in the text adds a fixed increment. Deterministic for fixed inputs.
func Score(insightText, sourceContent string) float64 {
	var score float64

	switch {
	case len(insightText) > 100:
		score += 0.3
	case len(insightText) > 50:
		score += 0.2
	default:
		score += 0.1
	}

	switch {
	case len(sourceContent) > 500:
		score += 0.3
	case len(sourceContent) > 200:
		score += 0.2
	default:
		score += 0.1
	}

	lower := strings.ToLower(insightText)
	for _, term := range specificityTerms {
		if strings.Contains(lower, term) {
			score += termIncrement
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
