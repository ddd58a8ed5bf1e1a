// Package lendingkart integrates the LendingKart NBFC API: invoice financing
// and working-capital loans for businesses with 2+ years of operations and
// 10L+ annual revenue.
package lendingkart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/common/metrics"
	"financing-gateway/internal/loanmath"
	"financing-gateway/internal/partner"
	"financing-gateway/internal/partner/toolkit"
	"financing-gateway/internal/rules"
)

const (
	partnerID   = "lendingkart"
	partnerName = "LendingKart"

	minYearsInBusiness = 2.0
	minAnnualRevenue   = 1000000   // 10L
	minLoanAmount      = 100000    // 1L
	maxLoanCap         = 50000000  // 5Cr
	revenueMultiple    = 0.25

	minRate = 14.0
	maxRate = 22.0
)

// Config carries the partner credentials and endpoints.
type Config struct {
	BaseURL       string
	APIKey        string
	PartnerRefID  string
	WebhookSecret string
}

// Adapter implements partner.Plugin for LendingKart.
type Adapter struct {
	cfg Config
	tk  *toolkit.Toolkit
	log logger.Logger
}

// New builds a LendingKart adapter around the given toolkit.
func New(cfg Config, tk *toolkit.Toolkit, log logger.Logger) *Adapter {
	return &Adapter{cfg: cfg, tk: tk, log: log}
}

func (a *Adapter) Metadata() partner.Metadata {
	return partner.Metadata{
		PartnerID:   partnerID,
		PartnerName: partnerName,
		PartnerType: partner.PartnerTypeNBFC,
		SupportedProducts: []partner.FinancingProduct{
			partner.ProductInvoiceFinancing,
			partner.ProductWorkingCapital,
		},
	}
}

func (a *Adapter) authHeaders() map[string]string {
	return map[string]string{
		"X-API-Key":    a.cfg.APIKey,
		"X-Partner-ID": a.cfg.PartnerRefID,
	}
}

// CheckEligibility applies LendingKart's published criteria locally; no
// partner call is needed for the pre-screen.
// eligibilityGates are evaluated in order; the first unmet requirement
// becomes the rejection reason.
var eligibilityGates = []rules.Gate{
	{
		Name:      "minimum_vintage",
		Condition: &rules.Simple{Field: "yearsInBusiness", Operator: rules.OpGte, Value: minYearsInBusiness},
		Reason:    "LendingKart requires 2+ years in business",
	},
	{
		Name:      "minimum_revenue",
		Condition: &rules.Simple{Field: "annualRevenue", Operator: rules.OpGte, Value: minAnnualRevenue},
		Reason:    "LendingKart requires 10L+ annual revenue",
	},
}

func (a *Adapter) CheckEligibility(_ context.Context, profile partner.BusinessProfile) partner.EligibilityResult {
	ctx := rules.Context{
		"yearsInBusiness": profile.YearsInBusiness,
		"annualRevenue":   profile.AnnualRevenue,
	}
	if reason, failed := rules.FirstFailure(eligibilityGates, ctx); failed {
		return partner.EligibilityResult{Eligible: false, Reason: reason}
	}

	maxAmount := profile.AnnualRevenue * revenueMultiple
	if maxAmount > maxLoanCap {
		maxAmount = maxLoanCap
	}

	return partner.EligibilityResult{
		Eligible:      true,
		MinAmount:     minLoanAmount,
		MaxAmount:     maxAmount,
		EstimatedRate: estimateRate(profile.CreditScore),
		RequiredDocuments: []string{
			"bank_statements_12m",
			"gst_returns_12m",
			"pan_card",
		},
	}
}

// estimateRate interpolates the 14-22% band by credit score; higher scores
// land nearer the floor. Missing scores assume 650.
func estimateRate(creditScore int) float64 {
	if creditScore <= 0 {
		creditScore = 650
	}
	if creditScore < 300 {
		creditScore = 300
	}
	if creditScore > 900 {
		creditScore = 900
	}
	frac := float64(creditScore-300) / 600.0
	return maxRate - frac*(maxRate-minRate)
}

type submitResponse struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}

func (a *Adapter) SubmitApplication(ctx context.Context, app partner.StandardApplication) partner.ApplicationResponse {
	body := map[string]interface{}{
		"partner_reference": app.ReferenceID,
		"business": map[string]interface{}{
			"name":              app.Profile.BusinessName,
			"pan":               app.Profile.TaxID,
			"gstin":             app.Profile.RegistrationNumber,
			"years_in_business": app.Profile.YearsInBusiness,
			"annual_revenue":    app.Profile.AnnualRevenue,
			"industry":          app.Profile.Industry,
		},
		"loan": map[string]interface{}{
			"amount":        app.Amount,
			"tenure_months": app.TenureMonths,
		},
		"purpose":   string(app.Purpose),
		"documents": app.Documents,
	}

	var resp submitResponse
	err := a.tk.RequestJSON(ctx, http.MethodPost, a.cfg.BaseURL+"/applications", a.authHeaders(), body, &resp)
	if err != nil {
		a.log.Error("application submission failed", map[string]interface{}{
			"partner":      partnerID,
			"reference_id": app.ReferenceID,
			"error":        err.Error(),
		})
		return partner.ApplicationResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to submit application to LendingKart: %v", err),
		}
	}

	return partner.ApplicationResponse{
		Success:       true,
		ExternalAppID: resp.ApplicationID,
		Status:        mapStatus(resp.Status),
		Message:       "Application submitted to LendingKart",
		NextSteps:     []string{"Await document verification", "Track status via application id"},
	}
}

type offersResponse struct {
	Offers []wireOffer `json:"offers"`
}

type wireOffer struct {
	OfferID        string   `json:"offer_id"`
	LoanAmount     float64  `json:"loan_amount"`
	InterestRate   float64  `json:"interest_rate"`
	ProcessingFee  float64  `json:"processing_fee"`
	EMI            float64  `json:"emi"`
	TenureMonths   int      `json:"tenure_months"`
	TotalRepayment float64  `json:"total_repayment"`
	DisbursalTime  string   `json:"disbursal_time"`
	Conditions     []string `json:"conditions"`
	ValidUntil     string   `json:"valid_until"`
}

// GetOffers fetches loan offers. Any failure degrades to an empty slice so
// aggregation over other partners continues.
func (a *Adapter) GetOffers(ctx context.Context, req partner.FinancingRequest) []partner.PartnerOffer {
	body := map[string]interface{}{
		"amount":        req.Amount,
		"purpose":       string(req.Purpose),
		"tenure_months": req.TenureMonths,
	}
	if req.Profile != nil {
		body["business"] = map[string]interface{}{
			"pan":               req.Profile.TaxID,
			"annual_revenue":    req.Profile.AnnualRevenue,
			"years_in_business": req.Profile.YearsInBusiness,
		}
	}

	var resp offersResponse
	err := a.tk.RequestJSON(ctx, http.MethodPost, a.cfg.BaseURL+"/offers", a.authHeaders(), body, &resp)
	if err != nil {
		a.log.Warn("offer retrieval failed, returning no offers", map[string]interface{}{
			"partner": partnerID,
			"error":   err.Error(),
		})
		return []partner.PartnerOffer{}
	}

	offers := make([]partner.PartnerOffer, 0, len(resp.Offers))
	for _, w := range resp.Offers {
		offers = append(offers, a.toPartnerOffer(w))
	}
	metrics.OffersCompared.WithLabelValues(partnerID).Add(float64(len(offers)))
	return offers
}

func (a *Adapter) toPartnerOffer(w wireOffer) partner.PartnerOffer {
	raw := map[string]interface{}{
		"offer_id":        w.OfferID,
		"loan_amount":     w.LoanAmount,
		"interest_rate":   w.InterestRate,
		"processing_fee":  w.ProcessingFee,
		"emi":             w.EMI,
		"tenure_months":   w.TenureMonths,
		"total_repayment": w.TotalRepayment,
		"disbursal_time":  w.DisbursalTime,
	}

	var expires time.Time
	if w.ValidUntil != "" {
		if t, err := time.Parse(time.RFC3339, w.ValidUntil); err == nil {
			expires = t
		}
	}

	return partner.PartnerOffer{
		OfferID:        w.OfferID,
		Amount:         w.LoanAmount,
		InterestRate:   w.InterestRate,
		ProcessingFee:  w.ProcessingFee,
		TenureMonths:   w.TenureMonths,
		DisbursalTime:  w.DisbursalTime,
		EMI:            w.EMI,
		TotalRepayment: w.TotalRepayment,
		Conditions:     w.Conditions,
		ExpiresAt:      expires,
		RawData:        raw,
	}
}

type statusResponse struct {
	ApplicationID  string  `json:"application_id"`
	Status         string  `json:"status"`
	ApprovedAmount float64 `json:"approved_amount"`
	InterestRate   float64 `json:"interest_rate"`
	UpdatedAt      string  `json:"updated_at"`
}

// TrackStatus resolves the partner's status vocabulary into the shared enum.
// Unreachable partner or unknown status both resolve to pending.
func (a *Adapter) TrackStatus(ctx context.Context, externalAppID string) partner.ApplicationStatus {
	var resp statusResponse
	url := fmt.Sprintf("%s/applications/%s", a.cfg.BaseURL, externalAppID)
	if err := a.tk.RequestJSON(ctx, http.MethodGet, url, a.authHeaders(), nil, &resp); err != nil {
		a.log.Warn("status tracking failed", map[string]interface{}{
			"partner":         partnerID,
			"external_app_id": externalAppID,
			"error":           err.Error(),
		})
		return partner.StatusPending
	}
	return mapStatus(resp.Status)
}

func mapStatus(s string) partner.ApplicationStatus {
	switch s {
	case "submitted":
		return partner.StatusPending
	case "under_review":
		return partner.StatusUnderReview
	case "approved":
		return partner.StatusApproved
	case "rejected":
		return partner.StatusRejected
	case "disbursed":
		return partner.StatusDisbursed
	case "closed", "completed":
		return partner.StatusCompleted
	default:
		return partner.StatusPending
	}
}

type webhookPayload struct {
	Event         string `json:"event"`
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}

// HandleWebhook verifies the HMAC signature over the raw payload bytes before
// acting. Invalid signatures are acknowledged as unprocessed.
func (a *Adapter) HandleWebhook(_ context.Context, payload []byte, signature string) partner.WebhookResult {
	if !toolkit.VerifySignature(payload, signature, a.cfg.WebhookSecret) {
		metrics.WebhooksProcessed.WithLabelValues(partnerID, "invalid_signature").Inc()
		a.log.Warn("webhook rejected", map[string]interface{}{
			"partner": partnerID,
			"reason":  "invalid signature",
		})
		return partner.WebhookResult{Processed: false, Reason: "Invalid signature"}
	}

	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		metrics.WebhooksProcessed.WithLabelValues(partnerID, "malformed").Inc()
		return partner.WebhookResult{Processed: false, Reason: "Malformed payload"}
	}

	metrics.WebhooksProcessed.WithLabelValues(partnerID, "processed").Inc()
	a.log.Info("webhook processed", map[string]interface{}{
		"partner":         partnerID,
		"event":           p.Event,
		"external_app_id": p.ApplicationID,
	})

	return partner.WebhookResult{
		Processed:     true,
		Event:         p.Event,
		ExternalAppID: p.ApplicationID,
		Status:        mapStatus(p.Status),
	}
}

// CalculateCost is the optional cost-breakdown capability.
func (a *Adapter) CalculateCost(amount, annualRate float64, tenureMonths int) partner.CostBreakdown {
	emi := loanmath.EMI(amount, annualRate, tenureMonths)
	total := emi * float64(tenureMonths)
	fee := amount * 0.02 // standard 2% processing fee
	return partner.CostBreakdown{
		Principal:      amount,
		MonthlyEMI:     emi,
		TotalInterest:  total - amount,
		ProcessingFee:  fee,
		TotalRepayment: total,
		TotalCost:      total + fee,
		EffectiveAPR:   loanmath.EffectiveAPR(amount, annualRate, fee, tenureMonths),
	}
}

// GetRepaymentSchedule is the optional amortization capability.
func (a *Adapter) GetRepaymentSchedule(amount, annualRate float64, tenureMonths int) []partner.ScheduleRow {
	rows := loanmath.Schedule(amount, annualRate, tenureMonths)
	out := make([]partner.ScheduleRow, len(rows))
	for i, r := range rows {
		out[i] = partner.ScheduleRow{
			Month:     r.Month,
			EMI:       r.EMI,
			Principal: r.Principal,
			Interest:  r.Interest,
			Balance:   r.Balance,
		}
	}
	return out
}
