// Package partner defines the plugin contract every lender adapter implements
// and the shared domain types exchanged through it.
package partner

import "time"

// PartnerID identifies a registered lender adapter.
type PartnerID string

func (id PartnerID) String() string { return string(id) }

// PartnerType classifies a lender.
type PartnerType string

const (
	PartnerTypeNBFC        PartnerType = "nbfc"
	PartnerTypeBank        PartnerType = "bank"
	PartnerTypeFintech     PartnerType = "fintech"
	PartnerTypeMarketplace PartnerType = "marketplace"
)

// FinancingProduct is a product category a partner can serve.
type FinancingProduct string

const (
	ProductInvoiceFinancing FinancingProduct = "invoice_financing"
	ProductWorkingCapital   FinancingProduct = "working_capital"
	ProductTermLoan         FinancingProduct = "term_loan"
	ProductCreditLine       FinancingProduct = "credit_line"
)

// FinancingPurpose is the borrower's declared use of funds.
type FinancingPurpose string

const (
	PurposeWorkingCapital    FinancingPurpose = "working_capital"
	PurposeInvoiceDiscount   FinancingPurpose = "invoice_discounting"
	PurposeExpansion         FinancingPurpose = "expansion"
	PurposeEquipmentPurchase FinancingPurpose = "equipment_purchase"
	PurposeCreditLine        FinancingPurpose = "credit_line"
)

// Urgency classifies how quickly the borrower needs disbursal.
type Urgency string

const (
	UrgencyImmediate   Urgency = "immediate"
	UrgencyWithinWeek  Urgency = "within_week"
	UrgencyWithinMonth Urgency = "within_month"
	UrgencyFlexible    Urgency = "flexible"
)

// ApplicationStatus is the shared status vocabulary all partner-specific
// statuses are mapped onto. Unknown partner statuses map to StatusPending.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusDisbursed   ApplicationStatus = "disbursed"
	StatusCompleted   ApplicationStatus = "completed"
)

// Metadata describes a registered adapter.
type Metadata struct {
	PartnerID         PartnerID          `json:"partnerId"`
	PartnerName       string             `json:"partnerName"`
	PartnerType       PartnerType        `json:"partnerType"`
	SupportedProducts []FinancingProduct `json:"supportedProducts"`
}

// BusinessProfile is the immutable input to eligibility checks.
type BusinessProfile struct {
	BusinessName       string  `json:"businessName"`
	TaxID              string  `json:"taxId"`
	RegistrationNumber string  `json:"registrationNumber"`
	YearsInBusiness    float64 `json:"yearsInBusiness"`
	AnnualRevenue      float64 `json:"annualRevenue"`
	Industry           string  `json:"industry"`

	// Optional enrichment.
	CreditScore         int     `json:"creditScore,omitempty"`
	MonthlyInvoiceValue float64 `json:"monthlyInvoiceValue,omitempty"`
	AvgPaymentDays      float64 `json:"avgPaymentDays,omitempty"`
}

// FinancingRequest describes what the borrower is asking for.
type FinancingRequest struct {
	Amount       float64          `json:"amount"`
	Purpose      FinancingPurpose `json:"purpose"`
	Urgency      Urgency          `json:"urgency"`
	TenureMonths int              `json:"tenureMonths,omitempty"`
	Profile      *BusinessProfile `json:"profile,omitempty"`
}

// PartnerOffer is a raw offer as returned by one partner call. The
// partner-specific response shape is preserved in RawData.
type PartnerOffer struct {
	OfferID        string                 `json:"offerId"`
	Amount         float64                `json:"amount"`
	InterestRate   float64                `json:"interestRate"`
	ProcessingFee  float64                `json:"processingFee"`
	TenureMonths   int                    `json:"tenureMonths"`
	DisbursalTime  string                 `json:"disbursalTime"`
	EMI            float64                `json:"emi,omitempty"`
	TotalRepayment float64                `json:"totalRepayment,omitempty"`
	Conditions     []string               `json:"conditions,omitempty"`
	ExpiresAt      time.Time              `json:"expiresAt,omitempty"`
	RawData        map[string]interface{} `json:"rawData,omitempty"`
}

// EligibilityResult is computed fresh per call and never persisted here.
type EligibilityResult struct {
	Eligible          bool     `json:"eligible"`
	Reason            string   `json:"reason,omitempty"`
	MinAmount         float64  `json:"minAmount,omitempty"`
	MaxAmount         float64  `json:"maxAmount,omitempty"`
	EstimatedRate     float64  `json:"estimatedRate,omitempty"`
	RequiredDocuments []string `json:"requiredDocuments,omitempty"`
	Conditions        []string `json:"conditions,omitempty"`
}

// StandardApplication is the uniform submission shape adapters translate into
// their partner's wire format.
type StandardApplication struct {
	ReferenceID  string           `json:"referenceId"`
	Profile      BusinessProfile  `json:"profile"`
	Amount       float64          `json:"amount"`
	Purpose      FinancingPurpose `json:"purpose"`
	TenureMonths int              `json:"tenureMonths"`
	OfferID      string           `json:"offerId,omitempty"`
	Documents    []string         `json:"documents,omitempty"`
}

// ApplicationResponse is the always-returned result of SubmitApplication.
// Transport failures surface as Success=false, never as an error.
type ApplicationResponse struct {
	Success        bool              `json:"success"`
	ExternalAppID  string            `json:"externalAppId,omitempty"`
	Status         ApplicationStatus `json:"status,omitempty"`
	Message        string            `json:"message,omitempty"`
	EstimatedHours float64           `json:"estimatedHours,omitempty"`
	NextSteps      []string          `json:"nextSteps,omitempty"`
}

// WebhookResult reports whether a partner callback was accepted. Invalid
// signatures yield Processed=false, never an error.
type WebhookResult struct {
	Processed     bool              `json:"processed"`
	Event         string            `json:"event,omitempty"`
	ExternalAppID string            `json:"externalAppId,omitempty"`
	Status        ApplicationStatus `json:"status,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// CostBreakdown is the optional CalculateCost result.
type CostBreakdown struct {
	Principal      float64 `json:"principal"`
	MonthlyEMI     float64 `json:"monthlyEmi"`
	TotalInterest  float64 `json:"totalInterest"`
	ProcessingFee  float64 `json:"processingFee"`
	TotalRepayment float64 `json:"totalRepayment"`
	TotalCost      float64 `json:"totalCost"`
	EffectiveAPR   float64 `json:"effectiveApr"`
}

// PartnerHealth is the optional GetPartnerStatus result.
type PartnerHealth struct {
	Available bool          `json:"available"`
	Latency   time.Duration `json:"latency"`
	Message   string        `json:"message,omitempty"`
}
