package partner

import (
	"context"
	"time"
)

// Plugin is the contract every lender adapter must satisfy. All five
// operations follow an always-returns policy: business failures and transport
// failures degrade to the documented zero-ish result shapes instead of
// propagating errors, so one unhealthy partner never aborts an aggregation.
type Plugin interface {
	// Metadata describes the adapter. Must be non-empty for registration.
	Metadata() Metadata

	// CheckEligibility evaluates the profile against partner rules. Business
	// ineligibility comes back as Eligible=false with a reason; transport
	// failures also degrade to Eligible=false.
	CheckEligibility(ctx context.Context, profile BusinessProfile) EligibilityResult

	// SubmitApplication sends an application, idempotent at the reference-id
	// level. Failures surface as Success=false with a message.
	SubmitApplication(ctx context.Context, app StandardApplication) ApplicationResponse

	// GetOffers fetches offers for the request. Returns an empty slice on any
	// failure; this is the critical contract for aggregation resilience.
	GetOffers(ctx context.Context, req FinancingRequest) []PartnerOffer

	// TrackStatus maps the partner's status vocabulary onto the shared enum.
	// Unknown or unreachable statuses map to StatusPending.
	TrackStatus(ctx context.Context, externalAppID string) ApplicationStatus

	// HandleWebhook verifies the signature before acting. Invalid signatures
	// return Processed=false.
	HandleWebhook(ctx context.Context, payload []byte, signature string) WebhookResult
}

// Optional capabilities, discovered by type assertion. The registry never
// assumes these are present.

// CostCalculator exposes a full cost breakdown for an offer's terms.
type CostCalculator interface {
	CalculateCost(amount, annualRate float64, tenureMonths int) CostBreakdown
}

// ScheduleProvider exposes a month-by-month repayment schedule.
type ScheduleProvider interface {
	GetRepaymentSchedule(amount, annualRate float64, tenureMonths int) []ScheduleRow
}

// ScheduleRow mirrors one amortization installment on the plugin surface.
type ScheduleRow struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// OfferAcceptor locks in a previously returned offer with the partner.
type OfferAcceptor interface {
	AcceptOffer(ctx context.Context, offerID string) ApplicationResponse
}

// StatusReporter reports the partner API's own health.
type StatusReporter interface {
	GetPartnerStatus(ctx context.Context) PartnerHealth
}

// OfferExpired reports whether the offer's expiry has passed. Zero expiry
// means the partner did not set one.
func OfferExpired(o PartnerOffer, now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}
