// Package registry holds the registered lender adapters and answers
// product/type lookups for the comparison pipeline. Registration happens once
// at startup; lookups are read-mostly and safe for concurrent use.
package registry

import (
	"context"
	"sync"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/partner"
)

// ValidationResult carries the diagnostics of a contract check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Stats summarizes the registry for observability endpoints.
type Stats struct {
	TotalPartners   int                              `json:"totalPartners"`
	ByType          map[partner.PartnerType]int      `json:"byType"`
	ProductCoverage map[partner.FinancingProduct]int `json:"productCoverage"`
	Capabilities    map[partner.PartnerID][]string   `json:"capabilities"`
}

// Registry is the typed adapter store.
type Registry struct {
	mu       sync.RWMutex
	adapters map[partner.PartnerID]partner.Plugin
	order    []partner.PartnerID
	log      logger.Logger

	// preference orders findBestPartner ties ahead of registration order.
	preference []partner.PartnerID
}

// New builds an empty registry. preference is the configured partner
// priority for best-partner selection and may be nil.
func New(log logger.Logger, preference []string) *Registry {
	pref := make([]partner.PartnerID, len(preference))
	for i, p := range preference {
		pref[i] = partner.PartnerID(p)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Registry{
		adapters:   make(map[partner.PartnerID]partner.Plugin),
		log:        log,
		preference: pref,
	}
}

// Register validates and stores an adapter. Invalid adapters are logged and
// skipped; registration never panics the registry. Re-registering a partner
// id replaces the previous adapter.
func (r *Registry) Register(p partner.Plugin) bool {
	result := Validate(p)
	if !result.Valid {
		id := ""
		if p != nil {
			id = string(p.Metadata().PartnerID)
		}
		r.log.Error("adapter rejected from registry", map[string]interface{}{
			"partner": id,
			"errors":  result.Errors,
		})
		return false
	}

	id := p.Metadata().PartnerID

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[id]; !exists {
		r.order = append(r.order, id)
	}
	r.adapters[id] = p

	r.log.Info("partner registered", map[string]interface{}{
		"partner":  string(id),
		"type":     string(p.Metadata().PartnerType),
		"products": p.Metadata().SupportedProducts,
	})
	return true
}

// Unregister removes an adapter; returns false when it was not present.
func (r *Registry) Unregister(id partner.PartnerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[id]; !ok {
		return false
	}
	delete(r.adapters, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Validate performs the structural contract check. Statically linked
// adapters satisfy the method set by construction, so the runtime check
// focuses on metadata completeness.
func Validate(p partner.Plugin) ValidationResult {
	var errs []string
	if p == nil {
		return ValidationResult{Valid: false, Errors: []string{"Adapter is nil"}}
	}

	md := p.Metadata()
	if md.PartnerID == "" {
		errs = append(errs, "Missing partnerId")
	}
	if md.PartnerName == "" {
		errs = append(errs, "Missing partnerName")
	}
	if md.PartnerType == "" {
		errs = append(errs, "Missing partnerType")
	}
	if len(md.SupportedProducts) == 0 {
		errs = append(errs, "Missing or empty supportedProducts")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateCandidate checks an arbitrary value against the plugin contract,
// producing a per-method diagnostic list. Used for adapters supplied through
// configuration or plugin loading rather than static linking.
func ValidateCandidate(candidate interface{}) ValidationResult {
	p, ok := candidate.(partner.Plugin)
	if !ok {
		errs := missingMethods(candidate)
		if len(errs) == 0 {
			errs = []string{"Candidate does not satisfy the plugin contract"}
		}
		return ValidationResult{Valid: false, Errors: errs}
	}
	return Validate(p)
}

func missingMethods(candidate interface{}) []string {
	probes := []struct {
		name    string
		present bool
	}{
		{"metadata", hasMetadata(candidate)},
		{"checkEligibility", hasCheckEligibility(candidate)},
		{"submitApplication", hasSubmitApplication(candidate)},
		{"getOffers", hasGetOffers(candidate)},
		{"trackStatus", hasTrackStatus(candidate)},
		{"handleWebhook", hasHandleWebhook(candidate)},
	}

	var errs []string
	for _, m := range probes {
		if !m.present {
			errs = append(errs, "Missing required method: "+m.name)
		}
	}
	return errs
}

func hasMetadata(c interface{}) bool {
	_, ok := c.(interface{ Metadata() partner.Metadata })
	return ok
}

func hasCheckEligibility(c interface{}) bool {
	_, ok := c.(interface {
		CheckEligibility(context.Context, partner.BusinessProfile) partner.EligibilityResult
	})
	return ok
}

func hasSubmitApplication(c interface{}) bool {
	_, ok := c.(interface {
		SubmitApplication(context.Context, partner.StandardApplication) partner.ApplicationResponse
	})
	return ok
}

func hasGetOffers(c interface{}) bool {
	_, ok := c.(interface {
		GetOffers(context.Context, partner.FinancingRequest) []partner.PartnerOffer
	})
	return ok
}

func hasTrackStatus(c interface{}) bool {
	_, ok := c.(interface {
		TrackStatus(context.Context, string) partner.ApplicationStatus
	})
	return ok
}

func hasHandleWebhook(c interface{}) bool {
	_, ok := c.(interface {
		HandleWebhook(context.Context, []byte, string) partner.WebhookResult
	})
	return ok
}

// Has reports whether the partner id is registered.
func (r *Registry) Has(id partner.PartnerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[id]
	return ok
}

// Count returns the number of registered adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Get returns the adapter for id.
func (r *Registry) Get(id partner.PartnerID) (partner.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.adapters[id]
	return p, ok
}

// All returns the adapters in registration order.
func (r *Registry) All() []partner.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]partner.Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// GetPartnersByProduct returns, in registration order, the adapters that
// declare support for the product.
func (r *Registry) GetPartnersByProduct(product partner.FinancingProduct) []partner.Plugin {
	return r.filter(func(p partner.Plugin) bool {
		return supports(p, product)
	})
}

// GetPartnersByType filters adapters by declared partner type.
func (r *Registry) GetPartnersByType(t partner.PartnerType) []partner.Plugin {
	return r.filter(func(p partner.Plugin) bool {
		return p.Metadata().PartnerType == t
	})
}

// GetPartnersByProducts returns adapters supporting every listed product.
func (r *Registry) GetPartnersByProducts(products []partner.FinancingProduct) []partner.Plugin {
	return r.filter(func(p partner.Plugin) bool {
		for _, product := range products {
			if !supports(p, product) {
				return false
			}
		}
		return true
	})
}

// GetPartnersByAnyProduct returns adapters supporting at least one listed
// product.
func (r *Registry) GetPartnersByAnyProduct(products []partner.FinancingProduct) []partner.Plugin {
	return r.filter(func(p partner.Plugin) bool {
		for _, product := range products {
			if supports(p, product) {
				return true
			}
		}
		return false
	})
}

// GetAvailableProducts returns the union of supported products across the
// registry, in first-seen order.
func (r *Registry) GetAvailableProducts() []partner.FinancingProduct {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[partner.FinancingProduct]bool)
	var out []partner.FinancingProduct
	for _, id := range r.order {
		for _, product := range r.adapters[id].Metadata().SupportedProducts {
			if !seen[product] {
				seen[product] = true
				out = append(out, product)
			}
		}
	}
	return out
}

// FindBestPartner picks one adapter for the product: configured preference
// order first, then registration order. Excluded partner ids are skipped.
func (r *Registry) FindBestPartner(product partner.FinancingProduct, exclude ...partner.PartnerID) (partner.Plugin, bool) {
	excluded := make(map[partner.PartnerID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.preference {
		p, ok := r.adapters[id]
		if ok && !excluded[id] && supports(p, product) {
			return p, true
		}
	}
	for _, id := range r.order {
		if excluded[id] || preferenceContains(r.preference, id) {
			continue
		}
		if p := r.adapters[id]; supports(p, product) {
			return p, true
		}
	}
	return nil, false
}

// GetRegistryStats summarizes the registry for diagnostics.
func (r *Registry) GetRegistryStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalPartners:   len(r.adapters),
		ByType:          make(map[partner.PartnerType]int),
		ProductCoverage: make(map[partner.FinancingProduct]int),
		Capabilities:    make(map[partner.PartnerID][]string),
	}
	for _, id := range r.order {
		p := r.adapters[id]
		md := p.Metadata()
		stats.ByType[md.PartnerType]++
		for _, product := range md.SupportedProducts {
			stats.ProductCoverage[product]++
		}
		stats.Capabilities[id] = capabilities(p)
	}
	return stats
}

// capabilities lists the optional interfaces the adapter implements.
func capabilities(p partner.Plugin) []string {
	caps := []string{}
	if _, ok := p.(partner.CostCalculator); ok {
		caps = append(caps, "calculateCost")
	}
	if _, ok := p.(partner.ScheduleProvider); ok {
		caps = append(caps, "getRepaymentSchedule")
	}
	if _, ok := p.(partner.OfferAcceptor); ok {
		caps = append(caps, "acceptOffer")
	}
	if _, ok := p.(partner.StatusReporter); ok {
		caps = append(caps, "getPartnerStatus")
	}
	return caps
}

func (r *Registry) filter(keep func(partner.Plugin) bool) []partner.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []partner.Plugin{}
	for _, id := range r.order {
		if p := r.adapters[id]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func supports(p partner.Plugin, product partner.FinancingProduct) bool {
	for _, s := range p.Metadata().SupportedProducts {
		if s == product {
			return true
		}
	}
	return false
}

func preferenceContains(pref []partner.PartnerID, id partner.PartnerID) bool {
	for _, p := range pref {
		if p == id {
			return true
		}
	}
	return false
}
