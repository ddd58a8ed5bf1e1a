// internal/offers/normalize/scores.go
package normalize

import "strings"

const flexibilityBaseline = 50.0

var positiveTerms = []string{
	"prepayment allowed",
	"no penalty",
	"flexible",
	"payment holiday",
	"partial withdrawal",
}

var negativeTerms = []string{
	"fixed schedule",
	"penalty",
}

// FlexibilityScore scans the free-text condition list for borrower-friendly
// and borrower-hostile terms. Starts at a neutral 50, +10 per positive match,
// -15 per negative match, clamped to [0, 100]. "No penalty" is matched before
// "penalty" so it never counts against the offer.
func FlexibilityScore(conditions []string) float64 {
	score := flexibilityBaseline
	for _, condition := range conditions {
		lower := strings.ToLower(condition)

		matchedPositive := false
		for _, term := range positiveTerms {
			if strings.Contains(lower, term) {
				score += 10
				matchedPositive = true
			}
		}
		if matchedPositive {
			continue
		}
		for _, term := range negativeTerms {
			if strings.Contains(lower, term) {
				score -= 15
			}
		}
	}

	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// reputationTable is curated, not computed. Scores reflect track record with
// the platform's borrowers.
var reputationTable = map[string]float64{
	"lendingkart":   85,
	"capital_float": 88,
}

const defaultReputation = 70.0

// Reputation returns the curated partner score; unknown partners get 70.
func Reputation(partnerID string) float64 {
	if score, ok := reputationTable[partnerID]; ok {
		return score
	}
	return defaultReputation
}
