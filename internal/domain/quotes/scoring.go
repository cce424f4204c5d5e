package quotes

import (
	"sort"
	"strings"
)

// Penalty rules applied on top of the analyzer's raw score.
const (
	penaltyMissingPrice = 10
	penaltyFewStrengths = 5
	penaltyManyRisks    = 10

	minStrengths = 2
	maxRisks     = 3
)

// Notes appended to the reasoning when a rule fires, in rule order.
const (
	noteMissingPrice = "Prix non spécifié (-10 pts)"
	noteFewStrengths = "Peu d'avantages identifiés (-5 pts)"
	noteManyRisks    = "Nombreux risques détectés (-10 pts)"

	adjustmentPrefix = " | Ajustements métier : "
	noteSeparator    = ", "
)

// Adjust applies the penalty rules to one analysis and returns the adjusted
// copy. All three rules are evaluated unconditionally, in order: missing
// price (-10), fewer than two strengths (-5), more than three risks (-10).
// The summed penalty comes off the raw score and the result is floored at 0;
// there is no ceiling clamp, the analyzer is trusted to stay within 100.
// When at least one rule fired the notes are appended to the reasoning;
// otherwise the reasoning comes back untouched.
//
// Adjust must run exactly once per analysis: feeding its output back in
// stacks the penalties again.
func Adjust(a QuoteAnalysis) QuoteAnalysis {
	var notes []string

	if a.Price == nil {
		a.Score -= penaltyMissingPrice
		notes = append(notes, noteMissingPrice)
	}
	if len(a.Strengths) < minStrengths {
		a.Score -= penaltyFewStrengths
		notes = append(notes, noteFewStrengths)
	}
	if len(a.Risks) > maxRisks {
		a.Score -= penaltyManyRisks
		notes = append(notes, noteManyRisks)
	}

	if a.Score < 0 {
		a.Score = 0
	}
	if len(notes) > 0 {
		a.Reasoning += adjustmentPrefix + strings.Join(notes, noteSeparator)
	}
	return a
}

// Rank orders analyses in place by adjusted score, best first, and returns
// the slice. The sort is stable: equal scores keep their submission order,
// so the output is deterministic. Only the order changes, never the set.
func Rank(analyses []QuoteAnalysis) []QuoteAnalysis {
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].Score > analyses[j].Score
	})
	return analyses
}
