package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financing-gateway/internal/partner"
)

func rawOffer() partner.PartnerOffer {
	return partner.PartnerOffer{
		OfferID:       "lk-offer-1",
		Amount:        500000,
		InterestRate:  16,
		ProcessingFee: 10000,
		TenureMonths:  12,
		DisbursalTime: "3-5 days",
		Conditions:    []string{"Prepayment allowed after 3 months"},
	}
}

// ==========================
// Single offer normalization
// ==========================

func TestOffer(t *testing.T) {
	t.Run("derives missing EMI and repayment figures", func(t *testing.T) {
		offer := Offer(rawOffer(), "lendingkart", "LendingKart")

		assert.Equal(t, "lendingkart", offer.PartnerID)
		assert.Equal(t, "lk-offer-1", offer.OfferID)
		assert.Greater(t, offer.MonthlyEMI, 0.0)
		assert.Greater(t, offer.TotalInterest, 0.0)
		assert.InDelta(t, offer.MonthlyEMI*12-500000, offer.TotalInterest, 1)
	})

	t.Run("keeps partner-provided EMI", func(t *testing.T) {
		raw := rawOffer()
		raw.EMI = 45000
		raw.TotalRepayment = 540000
		offer := Offer(raw, "lendingkart", "LendingKart")

		assert.InDelta(t, 45000, offer.MonthlyEMI, 0.001)
		assert.InDelta(t, 40000, offer.TotalInterest, 0.001)
	})

	t.Run("total cost is principal plus interest plus fee", func(t *testing.T) {
		offer := Offer(rawOffer(), "lendingkart", "LendingKart")
		assert.InDelta(t, offer.PrincipalAmount+offer.TotalInterest+offer.ProcessingFee, offer.TotalCost, 0.01)
	})

	t.Run("fees push effective APR above nominal", func(t *testing.T) {
		offer := Offer(rawOffer(), "lendingkart", "LendingKart")
		assert.Greater(t, offer.EffectiveAPR, offer.NominalAPR)
	})

	t.Run("zero fee keeps effective APR near nominal", func(t *testing.T) {
		raw := rawOffer()
		raw.ProcessingFee = 0
		offer := Offer(raw, "lendingkart", "LendingKart")
		assert.InDelta(t, offer.NominalAPR, offer.EffectiveAPR, 1)
	})

	t.Run("zero interest offer with fee yields non-negative APR", func(t *testing.T) {
		raw := rawOffer()
		raw.InterestRate = 0
		raw.TotalRepayment = raw.Amount
		raw.ProcessingFee = 10000
		offer := Offer(raw, "lendingkart", "LendingKart")
		assert.GreaterOrEqual(t, offer.EffectiveAPR, 0.0)
		assert.GreaterOrEqual(t, offer.TotalInterest, 0.0)
	})

	t.Run("preserves the raw offer and expiry", func(t *testing.T) {
		raw := rawOffer()
		raw.ExpiresAt = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		offer := Offer(raw, "lendingkart", "LendingKart")
		assert.Equal(t, raw, offer.RawOffer)
		assert.Equal(t, raw.ExpiresAt, offer.ExpiresAt)
	})
}

// ==========================
// Batch normalization
// ==========================

func TestOffers_PreservesInputOrder(t *testing.T) {
	batch := make([]OfferInput, 20)
	for i := range batch {
		raw := rawOffer()
		raw.OfferID = string(rune('a' + i))
		batch[i] = OfferInput{Offer: raw, PartnerID: "lendingkart", PartnerName: "LendingKart"}
	}

	out := Offers(batch)
	require.Len(t, out, 20)
	for i, offer := range out {
		assert.Equal(t, batch[i].Offer.OfferID, offer.OfferID)
	}
}

func TestOffers_EmptyBatch(t *testing.T) {
	assert.Empty(t, Offers(nil))
	assert.Empty(t, Offers([]OfferInput{}))
}

// ==========================
// Disbursal parser
// ==========================

func TestParseDisbursalSpeed(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"Same day disbursal", 0.5},
		{"same DAY", 0.5},
		{"24 hours", 1},
		{"48 hours", 2},
		{"3 days", 3},
		{"3-5 days", 4},
		{"2 - 4 days", 3},
		{"1 day", 1},
		{"", 2},
		{"as soon as possible", 2},
		{"manual review required", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseDisbursalSpeed(tt.input), 0.001)
		})
	}
}

// ==========================
// Flexibility and reputation
// ==========================

func TestFlexibilityScore(t *testing.T) {
	tests := []struct {
		name       string
		conditions []string
		want       float64
	}{
		{"no conditions stays at baseline", nil, 50},
		{"prepayment allowed", []string{"Prepayment allowed"}, 60},
		{"no penalty is positive despite containing penalty", []string{"No penalty on early closure"}, 60},
		{"prepayment penalty", []string{"2% prepayment penalty"}, 35},
		{"fixed schedule", []string{"Fixed schedule repayment"}, 35},
		{
			"mixed conditions",
			[]string{"Flexible repayment", "Payment holiday available", "Late payment penalty"},
			55,
		},
		{
			"clamped at 100",
			[]string{"Prepayment allowed", "No penalty", "Flexible", "Payment holiday", "Partial withdrawal", "Flexible terms"},
			100,
		},
		{
			"clamped at 0",
			[]string{"Penalty", "Penalty", "Penalty", "Penalty"},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FlexibilityScore(tt.conditions), 0.001)
		})
	}
}

func TestReputation(t *testing.T) {
	assert.InDelta(t, 85, Reputation("lendingkart"), 0.001)
	assert.InDelta(t, 88, Reputation("capital_float"), 0.001)
	assert.InDelta(t, 70, Reputation("unknown_lender"), 0.001)
}

// ==========================
// Savings
// ==========================

func TestCalculateSavings(t *testing.T) {
	offer := Offer(rawOffer(), "lendingkart", "LendingKart")

	t.Run("cheaper than baseline", func(t *testing.T) {
		assert.Greater(t, CalculateSavings(offer, offer.TotalCost+25000), 0.0)
	})

	t.Run("more expensive than baseline", func(t *testing.T) {
		assert.Less(t, CalculateSavings(offer, offer.TotalCost-25000), 0.0)
	})
}
