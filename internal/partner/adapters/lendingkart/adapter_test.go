package lendingkart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/partner"
	"financing-gateway/internal/partner/toolkit"
)

func newAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	cfg := Config{
		BaseURL:       baseURL,
		APIKey:        "test-api-key",
		PartnerRefID:  "test-partner-id",
		WebhookSecret: "test-webhook-secret",
	}
	tk := toolkit.New(toolkit.Options{
		PartnerID:   "lendingkart",
		Timeout:     2 * time.Second,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		Logger:      logger.NewTestLogger(t),
	})
	return New(cfg, tk, logger.NewTestLogger(t))
}

func qualifyingProfile() partner.BusinessProfile {
	return partner.BusinessProfile{
		BusinessName:       "Test Corp",
		TaxID:              "ABCDE1234F",
		RegistrationNumber: "27ABCDE1234F1Z5",
		YearsInBusiness:    3,
		AnnualRevenue:      10000000,
		Industry:           "Technology",
		CreditScore:        750,
	}
}

// ==========================
// Metadata
// ==========================

func TestMetadata(t *testing.T) {
	md := newAdapter(t, "http://unused").Metadata()
	assert.Equal(t, partner.PartnerID("lendingkart"), md.PartnerID)
	assert.Equal(t, "LendingKart", md.PartnerName)
	assert.Equal(t, partner.PartnerTypeNBFC, md.PartnerType)
	assert.Contains(t, md.SupportedProducts, partner.ProductInvoiceFinancing)
	assert.Contains(t, md.SupportedProducts, partner.ProductWorkingCapital)
	assert.NotContains(t, md.SupportedProducts, partner.ProductCreditLine)
}

// ==========================
// CheckEligibility
// ==========================

func TestCheckEligibility(t *testing.T) {
	a := newAdapter(t, "http://unused")
	ctx := context.Background()

	t.Run("qualifying business", func(t *testing.T) {
		result := a.CheckEligibility(ctx, qualifyingProfile())
		assert.True(t, result.Eligible)
		assert.InDelta(t, 100000, result.MinAmount, 0.001)
		assert.Greater(t, result.MaxAmount, 0.0)
		assert.Greater(t, result.EstimatedRate, 0.0)
	})

	t.Run("insufficient years in business", func(t *testing.T) {
		profile := qualifyingProfile()
		profile.YearsInBusiness = 1
		result := a.CheckEligibility(ctx, profile)
		assert.False(t, result.Eligible)
		assert.Contains(t, result.Reason, "2+ years")
	})

	t.Run("low revenue", func(t *testing.T) {
		profile := qualifyingProfile()
		profile.AnnualRevenue = 500000
		result := a.CheckEligibility(ctx, profile)
		assert.False(t, result.Eligible)
		assert.Contains(t, result.Reason, "10L+")
	})

	t.Run("max amount is 25 percent of revenue", func(t *testing.T) {
		result := a.CheckEligibility(ctx, qualifyingProfile())
		assert.InDelta(t, 10000000*0.25, result.MaxAmount, 0.001)
	})

	t.Run("max amount capped at 5Cr", func(t *testing.T) {
		profile := qualifyingProfile()
		profile.AnnualRevenue = 500000000
		result := a.CheckEligibility(ctx, profile)
		assert.InDelta(t, 50000000, result.MaxAmount, 0.001)
	})

	t.Run("higher credit score lowers the rate", func(t *testing.T) {
		high := qualifyingProfile()
		high.CreditScore = 780
		low := qualifyingProfile()
		low.CreditScore = 650

		highResult := a.CheckEligibility(ctx, high)
		lowResult := a.CheckEligibility(ctx, low)
		assert.Less(t, highResult.EstimatedRate, lowResult.EstimatedRate)
		assert.GreaterOrEqual(t, highResult.EstimatedRate, 14.0)
		assert.LessOrEqual(t, lowResult.EstimatedRate, 22.0)
	})
}

// ==========================
// SubmitApplication
// ==========================

func standardApplication() partner.StandardApplication {
	return partner.StandardApplication{
		ReferenceID:  "app-123",
		Profile:      qualifyingProfile(),
		Amount:       500000,
		Purpose:      partner.PurposeInvoiceDiscount,
		TenureMonths: 12,
		Documents:    []string{"doc1.pdf", "doc2.pdf"},
	}
}

func TestSubmitApplication(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		var received map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/applications", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(map[string]string{
				"application_id": "lk-app-456",
				"status":         "submitted",
			})
		}))
		defer srv.Close()

		result := newAdapter(t, srv.URL).SubmitApplication(context.Background(), standardApplication())
		require.True(t, result.Success)
		assert.Equal(t, "lk-app-456", result.ExternalAppID)
		assert.Equal(t, partner.StatusPending, result.Status)

		business, ok := received["business"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ABCDE1234F", business["pan"])
		loan, ok := received["loan"].(map[string]interface{})
		require.True(t, ok)
		assert.InDelta(t, 500000, loan["amount"], 0.001)
		assert.Equal(t, "app-123", received["partner_reference"],
			"reference id must reach the lender so repeat submissions dedupe")
	})

	t.Run("API error yields structured failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		result := newAdapter(t, srv.URL).SubmitApplication(context.Background(), standardApplication())
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "Failed")
	})
}

// ==========================
// GetOffers
// ==========================

func TestGetOffers(t *testing.T) {
	request := partner.FinancingRequest{
		Amount:       500000,
		Purpose:      partner.PurposeWorkingCapital,
		Urgency:      partner.UrgencyFlexible,
		TenureMonths: 12,
	}

	t.Run("maps wire offers", func(t *testing.T) {
		var received map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/offers", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"offers": []map[string]interface{}{{
					"offer_id":        "lk-offer-1",
					"loan_amount":     500000,
					"interest_rate":   16,
					"processing_fee":  10000,
					"emi":             45000,
					"tenure_months":   12,
					"total_repayment": 540000,
					"disbursal_time":  "3-5 days",
				}},
			})
		}))
		defer srv.Close()

		offers := newAdapter(t, srv.URL).GetOffers(context.Background(), request)
		require.Len(t, offers, 1)
		assert.Equal(t, "lk-offer-1", offers[0].OfferID)
		assert.InDelta(t, 500000, offers[0].Amount, 0.001)
		assert.InDelta(t, 16, offers[0].InterestRate, 0.001)
		assert.Equal(t, "3-5 days", offers[0].DisbursalTime)
		assert.NotNil(t, offers[0].RawData)

		assert.Equal(t, "working_capital", received["purpose"])
	})

	t.Run("empty slice on API failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		offers := newAdapter(t, srv.URL).GetOffers(context.Background(), request)
		assert.Empty(t, offers)
	})

	t.Run("empty slice when partner is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		offers := newAdapter(t, url).GetOffers(context.Background(), request)
		assert.Empty(t, offers)
	})
}

// ==========================
// TrackStatus
// ==========================

func TestTrackStatus(t *testing.T) {
	tests := []struct {
		partnerStatus string
		want          partner.ApplicationStatus
	}{
		{"submitted", partner.StatusPending},
		{"under_review", partner.StatusUnderReview},
		{"approved", partner.StatusApproved},
		{"rejected", partner.StatusRejected},
		{"disbursed", partner.StatusDisbursed},
		{"completed", partner.StatusCompleted},
		{"some_future_status", partner.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.partnerStatus, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/applications/lk-app-456", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]string{
					"application_id": "lk-app-456",
					"status":         tt.partnerStatus,
				})
			}))
			defer srv.Close()

			status := newAdapter(t, srv.URL).TrackStatus(context.Background(), "lk-app-456")
			assert.Equal(t, tt.want, status)
		})
	}

	t.Run("unreachable partner resolves to pending", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		status := newAdapter(t, url).TrackStatus(context.Background(), "lk-app-456")
		assert.Equal(t, partner.StatusPending, status)
	})
}

// ==========================
// HandleWebhook
// ==========================

func TestHandleWebhook(t *testing.T) {
	a := newAdapter(t, "http://unused")
	payload := []byte(`{"event":"application_approved","application_id":"lk-app-456","status":"approved"}`)

	t.Run("valid signature processes the event", func(t *testing.T) {
		sig := toolkit.SignPayload(payload, "test-webhook-secret")
		result := a.HandleWebhook(context.Background(), payload, sig)
		assert.True(t, result.Processed)
		assert.Equal(t, "lk-app-456", result.ExternalAppID)
		assert.Equal(t, partner.StatusApproved, result.Status)
	})

	t.Run("invalid signature is rejected without error", func(t *testing.T) {
		result := a.HandleWebhook(context.Background(), payload, "deadbeef")
		assert.False(t, result.Processed)
		assert.Contains(t, result.Reason, "Invalid signature")
	})

	t.Run("valid signature over malformed payload", func(t *testing.T) {
		bad := []byte("not json")
		sig := toolkit.SignPayload(bad, "test-webhook-secret")
		result := a.HandleWebhook(context.Background(), bad, sig)
		assert.False(t, result.Processed)
	})
}

// ==========================
// Authentication
// ==========================

func TestAuthHeaders(t *testing.T) {
	var gotKey, gotPartner string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPartner = r.Header.Get("X-Partner-ID")
		json.NewEncoder(w).Encode(map[string]interface{}{"offers": []interface{}{}})
	}))
	defer srv.Close()

	newAdapter(t, srv.URL).GetOffers(context.Background(), partner.FinancingRequest{
		Amount:  500000,
		Purpose: partner.PurposeWorkingCapital,
	})
	assert.Equal(t, "test-api-key", gotKey)
	assert.Equal(t, "test-partner-id", gotPartner)
}

// ==========================
// Optional capabilities
// ==========================

func TestOptionalCapabilities(t *testing.T) {
	a := newAdapter(t, "http://unused")

	t.Run("cost breakdown is internally consistent", func(t *testing.T) {
		cost := a.CalculateCost(500000, 16, 12)
		assert.InDelta(t, cost.TotalRepayment, cost.Principal+cost.TotalInterest, 1)
		assert.InDelta(t, cost.TotalCost, cost.TotalRepayment+cost.ProcessingFee, 1)
		assert.Greater(t, cost.EffectiveAPR, 16.0)
	})

	t.Run("repayment schedule spans the tenure", func(t *testing.T) {
		rows := a.GetRepaymentSchedule(500000, 16, 12)
		require.Len(t, rows, 12)
		assert.Equal(t, 1, rows[0].Month)
		assert.Equal(t, 12, rows[11].Month)
	})

	t.Run("capability interfaces are satisfied", func(t *testing.T) {
		var plugin partner.Plugin = a
		_, ok := plugin.(partner.CostCalculator)
		assert.True(t, ok)
		_, ok = plugin.(partner.ScheduleProvider)
		assert.True(t, ok)
		_, ok = plugin.(partner.OfferAcceptor)
		assert.False(t, ok)
	})
}
