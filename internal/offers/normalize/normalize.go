// Package normalize turns heterogeneous partner offers into StandardOffers
// with directly comparable cost, speed, flexibility, and reputation fields.
// Every transform here is a pure function of its inputs.
package normalize

import (
	"sync"
	"time"

	"financing-gateway/internal/loanmath"
	"financing-gateway/internal/partner"
)

// StandardOffer is the normalized, comparable form of one partner offer.
type StandardOffer struct {
	PartnerID       string               `json:"partnerId"`
	PartnerName     string               `json:"partnerName"`
	OfferID         string               `json:"offerId"`
	PrincipalAmount float64              `json:"principalAmount"`
	TenureMonths    int                  `json:"tenureMonths"`
	NominalAPR      float64              `json:"nominalApr"`
	EffectiveAPR    float64              `json:"effectiveApr"`
	ProcessingFee   float64              `json:"processingFee"`
	TotalInterest   float64              `json:"totalInterest"`
	TotalCost       float64              `json:"totalCost"`
	MonthlyEMI      float64              `json:"monthlyEmi"`
	DisbursalSpeed  float64              `json:"disbursalSpeed"` // days
	Flexibility     float64              `json:"flexibility"`    // 0-100
	Reputation      float64              `json:"reputation"`     // 0-100
	ExpiresAt       time.Time            `json:"expiresAt,omitempty"`
	RawOffer        partner.PartnerOffer `json:"rawOffer"`
}

// OfferInput is one element of a normalization batch.
type OfferInput struct {
	Offer       partner.PartnerOffer
	PartnerID   string
	PartnerName string
}

// Offer derives a StandardOffer from exactly one partner offer. Missing EMI
// and total-repayment figures are reconstructed from the loan terms.
func Offer(o partner.PartnerOffer, partnerID, partnerName string) StandardOffer {
	emi := o.EMI
	if emi == 0 {
		emi = loanmath.EMI(o.Amount, o.InterestRate, o.TenureMonths)
	}

	totalRepayment := o.TotalRepayment
	if totalRepayment == 0 {
		totalRepayment = emi * float64(o.TenureMonths)
	}

	totalInterest := totalRepayment - o.Amount
	if totalInterest < 0 {
		totalInterest = 0
	}

	return StandardOffer{
		PartnerID:       partnerID,
		PartnerName:     partnerName,
		OfferID:         o.OfferID,
		PrincipalAmount: o.Amount,
		TenureMonths:    o.TenureMonths,
		NominalAPR:      o.InterestRate,
		EffectiveAPR:    loanmath.EffectiveAPR(o.Amount, o.InterestRate, o.ProcessingFee, o.TenureMonths),
		ProcessingFee:   o.ProcessingFee,
		TotalInterest:   totalInterest,
		TotalCost:       o.Amount + totalInterest + o.ProcessingFee,
		MonthlyEMI:      emi,
		DisbursalSpeed:  ParseDisbursalSpeed(o.DisbursalTime),
		Flexibility:     FlexibilityScore(o.Conditions),
		Reputation:      Reputation(partnerID),
		ExpiresAt:       o.ExpiresAt,
		RawOffer:        o,
	}
}

// Offers normalizes a batch concurrently. Output order matches input order.
func Offers(batch []OfferInput) []StandardOffer {
	out := make([]StandardOffer, len(batch))

	var wg sync.WaitGroup
	for i, in := range batch {
		wg.Add(1)
		go func(i int, in OfferInput) {
			defer wg.Done()
			out[i] = Offer(in.Offer, in.PartnerID, in.PartnerName)
		}(i, in)
	}
	wg.Wait()
	return out
}

// CalculateSavings reports how much cheaper the offer is than a baseline
// total cost. Negative when the offer is more expensive.
func CalculateSavings(offer StandardOffer, baselineCost float64) float64 {
	return baselineCost - offer.TotalCost
}
