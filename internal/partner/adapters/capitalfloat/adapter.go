// Package capitalfloat integrates the Capital Float API. Compared to other
// NBFC partners it accepts younger businesses (1+ years, 5L+ revenue), lends
// up to 30% of revenue capped at 10Cr, and additionally offers revolving
// credit lines.
package capitalfloat

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
	partnerID   = "capital_float"
	partnerName = "Capital Float"

	minYearsInBusiness = 1.0
	minAnnualRevenue   = 500000    // 5L
	minLoanAmount      = 100000    // 1L
	maxLoanCap         = 100000000 // 10Cr
	revenueMultiple    = 0.30

	minRate = 12.0
	maxRate = 20.0
)

// Config carries the partner credentials and endpoints.
type Config struct {
	BaseURL       string
	APIKey        string
	ClientID      string
	WebhookSecret string
}

// Adapter implements partner.Plugin for Capital Float.
type Adapter struct {
	cfg Config
	tk  *toolkit.Toolkit
	log logger.Logger
}

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
			partner.ProductCreditLine,
		},
	}
}

func (a *Adapter) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + a.cfg.APIKey,
		"X-Client-ID":   a.cfg.ClientID,
	}
}

// eligibilityGates are evaluated in order; the first unmet requirement
// becomes the rejection reason.
var eligibilityGates = []rules.Gate{
	{
		Name:      "minimum_vintage",
		Condition: &rules.Simple{Field: "yearsInBusiness", Operator: rules.OpGte, Value: minYearsInBusiness},
		Reason:    "Capital Float requires 1+ year in business",
	},
	{
		Name:      "minimum_revenue",
		Condition: &rules.Simple{Field: "annualRevenue", Operator: rules.OpGte, Value: minAnnualRevenue},
		Reason:    "Capital Float requires 5L+ annual revenue",
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
			"bank_statements_6m",
			"gst_returns_6m",
			"pan_card",
		},
		Conditions: []string{"Credit line subject to annual renewal"},
	}
}

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
	ClientApplicationID string  `json:"client_application_id"`
	Status              string  `json:"status"`
	CreditLineLimit     float64 `json:"credit_line_limit"`
}

func (a *Adapter) SubmitApplication(ctx context.Context, app partner.StandardApplication) partner.ApplicationResponse {
	body := map[string]interface{}{
		"client_reference": app.ReferenceID,
		"business": map[string]interface{}{
			"name":              app.Profile.BusinessName,
			"pan":               app.Profile.TaxID,
			"gstin":             app.Profile.RegistrationNumber,
			"years_in_business": app.Profile.YearsInBusiness,
			"annual_revenue":    app.Profile.AnnualRevenue,
			"industry":          app.Profile.Industry,
		},
		"financing": map[string]interface{}{
			"amount":        app.Amount,
			"product_type":  productType(app.Purpose),
			"tenure_months": app.TenureMonths,
		},
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
			Message: fmt.Sprintf("Failed to submit application to Capital Float: %v", err),
		}
	}

	msg := "Application submitted to Capital Float"
	if resp.CreditLineLimit > 0 {
		msg = fmt.Sprintf("Credit line application submitted, provisional limit %.0f", resp.CreditLineLimit)
	}

	return partner.ApplicationResponse{
		Success:       true,
		ExternalAppID: resp.ClientApplicationID,
		Status:        mapStatus(resp.Status),
		Message:       msg,
	}
}

// productType maps the borrower's purpose to the partner's product vocabulary.
func productType(p partner.FinancingPurpose) string {
	switch p {
	case partner.PurposeInvoiceDiscount:
		return string(partner.ProductInvoiceFinancing)
	case partner.PurposeWorkingCapital:
		return string(partner.ProductWorkingCapital)
	default:
		return string(p)
	}
}

type offersResponse struct {
	Offers []wireOffer `json:"offers"`
}

type wireOffer struct {
	OfferID         string   `json:"offer_id"`
	LoanAmount      float64  `json:"loan_amount"`
	CreditLineLimit float64  `json:"credit_line_limit"`
	InterestRate    float64  `json:"interest_rate"`
	ProcessingFee   float64  `json:"processing_fee"`
	DrawdownFee     float64  `json:"drawdown_fee"`
	RenewalFee      float64  `json:"renewal_fee"`
	EMI             float64  `json:"emi"`
	TenureMonths    int      `json:"tenure_months"`
	TenorDays       int      `json:"tenor_days"`
	TotalRepayment  float64  `json:"total_repayment"`
	DisbursalTime   string   `json:"disbursal_time"`
	Revolving       bool     `json:"revolving"`
	Conditions      []string `json:"conditions"`
	ValidUntil      string   `json:"valid_until"`
}

func (a *Adapter) GetOffers(ctx context.Context, req partner.FinancingRequest) []partner.PartnerOffer {
	body := map[string]interface{}{
		"amount":       req.Amount,
		"product_type": productType(req.Purpose),
	}
	if req.TenureMonths > 0 {
		body["tenure_months"] = req.TenureMonths
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

// toPartnerOffer normalizes both term-loan and credit-line offer shapes.
// Credit lines report a limit instead of a loan amount and tenor in days
// instead of months.
func (a *Adapter) toPartnerOffer(w wireOffer) partner.PartnerOffer {
	amount := w.LoanAmount
	if amount == 0 && w.CreditLineLimit > 0 {
		amount = w.CreditLineLimit
	}

	tenure := w.TenureMonths
	if tenure == 0 && w.TenorDays > 0 {
		tenure = w.TenorDays / 30
		if tenure < 1 {
			tenure = 1
		}
	}

	conditions := append([]string(nil), w.Conditions...)
	if w.Revolving || w.CreditLineLimit > 0 {
		conditions = append(conditions, "Revolving credit line")
	}

	raw := map[string]interface{}{
		"offer_id":          w.OfferID,
		"loan_amount":       w.LoanAmount,
		"credit_line_limit": w.CreditLineLimit,
		"interest_rate":     w.InterestRate,
		"processing_fee":    w.ProcessingFee,
		"drawdown_fee":      w.DrawdownFee,
		"renewal_fee":       w.RenewalFee,
		"tenor_days":        w.TenorDays,
		"disbursal_time":    w.DisbursalTime,
		"revolving":         w.Revolving,
	}

	var expires time.Time
	if w.ValidUntil != "" {
		if t, err := time.Parse(time.RFC3339, w.ValidUntil); err == nil {
			expires = t
		}
	}

	return partner.PartnerOffer{
		OfferID:        w.OfferID,
		Amount:         amount,
		InterestRate:   w.InterestRate,
		ProcessingFee:  w.ProcessingFee,
		TenureMonths:   tenure,
		DisbursalTime:  w.DisbursalTime,
		EMI:            w.EMI,
		TotalRepayment: w.TotalRepayment,
		Conditions:     conditions,
		ExpiresAt:      expires,
		RawData:        raw,
	}
}

type statusResponse struct {
	ClientApplicationID string  `json:"client_application_id"`
	Status              string  `json:"status"`
	ApprovedAmount      float64 `json:"approved_amount"`
	CreditLineLimit     float64 `json:"credit_line_limit"`
	UtilizedAmount      float64 `json:"utilized_amount"`
	AvailableAmount     float64 `json:"available_amount"`
}

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

// mapStatus folds Capital Float's vocabulary into the shared enum. An active
// credit line means funds are available, which is disbursed in loan terms.
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
	case "disbursed", "active":
		return partner.StatusDisbursed
	case "closed", "completed":
		return partner.StatusCompleted
	default:
		return partner.StatusPending
	}
}

type webhookPayload struct {
	Event               string  `json:"event"`
	ClientApplicationID string  `json:"client_application_id"`
	Status              string  `json:"status"`
	DrawdownAmount      float64 `json:"drawdown_amount"`
	RemainingLimit      float64 `json:"remaining_limit"`
}

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
		"external_app_id": p.ClientApplicationID,
	})

	return partner.WebhookResult{
		Processed:     true,
		Event:         p.Event,
		ExternalAppID: p.ClientApplicationID,
		Status:        mapStatus(p.Status),
	}
}

// CalculateCost includes the drawdown-linked fee structure of a credit line
// only when the caller prices a term loan; drawdown fees are usage-dependent
// and excluded here.
func (a *Adapter) CalculateCost(amount, annualRate float64, tenureMonths int) partner.CostBreakdown {
	emi := loanmath.EMI(amount, annualRate, tenureMonths)
	total := emi * float64(tenureMonths)
	fee := amount * 0.015 // standard 1.5% processing fee
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

// GetPartnerStatus probes the partner health endpoint.
func (a *Adapter) GetPartnerStatus(ctx context.Context) partner.PartnerHealth {
	start := time.Now()
	_, err := a.tk.Request(ctx, http.MethodGet, a.cfg.BaseURL+"/health", a.authHeaders(), nil)
	latency := time.Since(start)
	if err != nil {
		return partner.PartnerHealth{Available: false, Latency: latency, Message: err.Error()}
	}
	return partner.PartnerHealth{Available: true, Latency: latency}
}
