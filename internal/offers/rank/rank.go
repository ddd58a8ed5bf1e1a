// Package rank scores and orders StandardOffers per caller-supplied criteria
// and attaches explanatory badges, pros/cons, and a recommendation line.
package rank

import (
	"fmt"
	"sort"

	"financing-gateway/internal/offers/normalize"
	"financing-gateway/internal/partner"
)

// Priority selects the dominant weighting of the combined score.
type Priority string

const (
	PriorityLowestRate     Priority = "lowest_rate"
	PriorityFastest        Priority = "fastest_disbursal"
	PriorityFlexibleTerms  Priority = "flexible_terms"
	PriorityApprovalChance Priority = "highest_approval_chance"
)

// Badge labels for standout offers. An offer carries at most one.
const (
	BadgeBestOverall = "Best Overall"
	BadgeLowestRate  = "Lowest Rate"
	BadgeFastest     = "Fastest"
)

// Criteria drives a ranking run. Profile is optional and only feeds the
// approval probability estimate.
type Criteria struct {
	Prioritize Priority
	Profile    *partner.BusinessProfile
}

// DimensionScores are the normalized per-offer metrics, each 0-100 with
// higher always better.
type DimensionScores struct {
	Cost                float64 `json:"cost"`
	Speed               float64 `json:"speed"`
	Flexibility         float64 `json:"flexibility"`
	Reliability         float64 `json:"reliability"`
	ApprovalProbability float64 `json:"approvalProbability"`
}

// RankedOffer is a StandardOffer with its position and explanation.
type RankedOffer struct {
	normalize.StandardOffer

	Rank           int             `json:"rank"`
	OverallScore   float64         `json:"overallScore"`
	Badge          string          `json:"badge,omitempty"`
	Scores         DimensionScores `json:"scores"`
	Recommendation string          `json:"recommendation"`
	Pros           []string        `json:"pros,omitempty"`
	Cons           []string        `json:"cons,omitempty"`
}

type weights struct {
	cost, speed, flexibility, reliability float64
}

func weightsFor(p Priority) weights {
	switch p {
	case PriorityFastest:
		return weights{cost: 0.20, speed: 0.50, flexibility: 0.15, reliability: 0.15}
	case PriorityFlexibleTerms:
		return weights{cost: 0.20, speed: 0.15, flexibility: 0.50, reliability: 0.15}
	case PriorityApprovalChance:
		return weights{cost: 0.15, speed: 0.15, flexibility: 0.20, reliability: 0.50}
	default: // lowest_rate
		return weights{cost: 0.50, speed: 0.20, flexibility: 0.15, reliability: 0.15}
	}
}

// Offers ranks the given offers. Empty input returns an empty slice.
func Offers(offers []normalize.StandardOffer, criteria Criteria) []RankedOffer {
	if len(offers) == 0 {
		return []RankedOffer{}
	}

	w := weightsFor(criteria.Prioritize)
	approval := approvalProbability(criteria.Profile)

	minAPR, maxAPR := bounds(offers, func(o normalize.StandardOffer) float64 { return o.EffectiveAPR })
	minSpeed, maxSpeed := bounds(offers, func(o normalize.StandardOffer) float64 { return o.DisbursalSpeed })
	minFlex, maxFlex := bounds(offers, func(o normalize.StandardOffer) float64 { return o.Flexibility })
	minRep, maxRep := bounds(offers, func(o normalize.StandardOffer) float64 { return o.Reputation })

	ranked := make([]RankedOffer, len(offers))
	for i, o := range offers {
		scores := DimensionScores{
			Cost:                invertedScale(o.EffectiveAPR, minAPR, maxAPR),
			Speed:               invertedScale(o.DisbursalSpeed, minSpeed, maxSpeed),
			Flexibility:         scale(o.Flexibility, minFlex, maxFlex),
			Reliability:         scale(o.Reputation, minRep, maxRep),
			ApprovalProbability: approval,
		}

		overall := w.cost*scores.Cost +
			w.speed*scores.Speed +
			w.flexibility*scores.Flexibility +
			w.reliability*scores.Reliability

		ranked[i] = RankedOffer{
			StandardOffer: o,
			OverallScore:  overall,
			Scores:        scores,
			Pros:          pros(o, minAPR, minSpeed),
			Cons:          cons(o, maxAPR, maxSpeed),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.Reputation != b.Reputation {
			return a.Reputation > b.Reputation
		}
		if a.PartnerID != b.PartnerID {
			return a.PartnerID < b.PartnerID
		}
		return a.OfferID < b.OfferID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Recommendation = recommendation(&ranked[i], criteria.Prioritize)
	}

	assignBadges(ranked)
	return ranked
}

// assignBadges runs a single pass after ranking. Rank 1 is Best Overall; the
// minimum-APR and minimum-disbursal offers get their badges only when not
// already badged.
func assignBadges(ranked []RankedOffer) {
	ranked[0].Badge = BadgeBestOverall

	lowestRate := 0
	fastest := 0
	for i := range ranked {
		if ranked[i].EffectiveAPR < ranked[lowestRate].EffectiveAPR {
			lowestRate = i
		}
		if ranked[i].DisbursalSpeed < ranked[fastest].DisbursalSpeed {
			fastest = i
		}
	}

	if ranked[lowestRate].Badge == "" {
		ranked[lowestRate].Badge = BadgeLowestRate
	}
	if ranked[fastest].Badge == "" {
		ranked[fastest].Badge = BadgeFastest
	}
}

// approvalProbability estimates approval odds from the borrower profile.
// Without a profile it reports a neutral 50.
func approvalProbability(profile *partner.BusinessProfile) float64 {
	if profile == nil {
		return 50
	}

	score := 30.0

	credit := profile.CreditScore
	if credit <= 0 {
		credit = 650
	}
	switch {
	case credit >= 750:
		score += 40
	case credit >= 700:
		score += 30
	case credit >= 650:
		score += 20
	default:
		score += 5
	}

	switch {
	case profile.YearsInBusiness >= 5:
		score += 30
	case profile.YearsInBusiness >= 3:
		score += 20
	case profile.YearsInBusiness >= 1:
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

func recommendation(o *RankedOffer, p Priority) string {
	switch {
	case o.Rank == 1:
		return fmt.Sprintf("Best match for your %s priority: %s at %.1f%% effective APR",
			priorityLabel(p), o.PartnerName, o.EffectiveAPR)
	case o.OverallScore >= 70:
		return fmt.Sprintf("Strong alternative from %s", o.PartnerName)
	default:
		return fmt.Sprintf("Consider %s if preferred lenders decline", o.PartnerName)
	}
}

func priorityLabel(p Priority) string {
	switch p {
	case PriorityFastest:
		return "fast disbursal"
	case PriorityFlexibleTerms:
		return "flexible terms"
	case PriorityApprovalChance:
		return "approval chance"
	default:
		return "lowest rate"
	}
}

func pros(o normalize.StandardOffer, minAPR, minSpeed float64) []string {
	var out []string
	if o.EffectiveAPR == minAPR {
		out = append(out, "Lowest effective APR among compared offers")
	}
	if o.DisbursalSpeed == minSpeed {
		out = append(out, "Fastest disbursal among compared offers")
	}
	if o.DisbursalSpeed <= 1 {
		out = append(out, "Funds within a day")
	}
	if o.Flexibility >= 70 {
		out = append(out, "Flexible repayment terms")
	}
	if o.Reputation >= 85 {
		out = append(out, "Highly rated lender")
	}
	return out
}

func cons(o normalize.StandardOffer, maxAPR, maxSpeed float64) []string {
	var out []string
	if o.EffectiveAPR == maxAPR && maxAPR > 0 {
		out = append(out, "Highest effective APR among compared offers")
	}
	if o.DisbursalSpeed == maxSpeed && maxSpeed > 3 {
		out = append(out, "Slower disbursal than alternatives")
	}
	if o.PrincipalAmount > 0 && o.ProcessingFee/o.PrincipalAmount > 0.02 {
		out = append(out, "Processing fee above 2% of principal")
	}
	if o.Flexibility <= 35 {
		out = append(out, "Rigid repayment terms")
	}
	return out
}

// scale maps v linearly onto [0, 100] within [min, max]; a degenerate range
// scores 100 so a lone offer is not penalized.
func scale(v, min, max float64) float64 {
	if max == min {
		return 100
	}
	return (v - min) / (max - min) * 100
}

// invertedScale is scale for lower-is-better metrics.
func invertedScale(v, min, max float64) float64 {
	if max == min {
		return 100
	}
	return (max - v) / (max - min) * 100
}

func bounds(offers []normalize.StandardOffer, f func(normalize.StandardOffer) float64) (min, max float64) {
	min, max = f(offers[0]), f(offers[0])
	for _, o := range offers[1:] {
		v := f(o)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
