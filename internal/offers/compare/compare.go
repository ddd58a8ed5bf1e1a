// Package compare runs the offer comparison pipeline: partner lookup,
// concurrent offer fan-out with per-partner isolation, normalization, and
// ranking. A short-TTL cache avoids hammering partner APIs for repeated
// comparisons, and completed runs can be indexed for analytics.
package compare

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/common/metrics"
	"financing-gateway/internal/offers/normalize"
	"financing-gateway/internal/offers/rank"
	"financing-gateway/internal/partner"
	"financing-gateway/internal/partner/registry"
)

const (
	defaultCacheTTL = 5 * time.Minute
	auditIndex      = "offer-comparisons"
)

// Request describes one comparison run.
type Request struct {
	Product   partner.FinancingProduct `json:"product"`
	Financing partner.FinancingRequest `json:"financing"`
	Criteria  rank.Criteria            `json:"criteria"`
}

// Result is the outcome of a comparison.
type Result struct {
	Offers          []rank.RankedOffer `json:"offers"`
	PartnersQueried int                `json:"partnersQueried"`
	FromCache       bool               `json:"fromCache"`
}

// Service orchestrates comparisons. Cache and audit sink are optional; a nil
// client disables the feature.
type Service struct {
	registry *registry.Registry
	log      logger.Logger
	cache    *redis.Client
	cacheTTL time.Duration
	audit    *elasticsearch.Client
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables result caching with the given TTL.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = client
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithAuditSink indexes completed comparisons for analytics.
func WithAuditSink(client *elasticsearch.Client) Option {
	return func(s *Service) { s.audit = client }
}

// New builds a comparison service over the registry.
func New(reg *registry.Registry, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		log:      log,
		cacheTTL: defaultCacheTTL,
	}
	if s.log == nil {
		s.log = logger.NewNoOpLogger()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare fans out to every partner supporting the product, collects whatever
// offers came back, and returns them normalized and ranked. Partner failures
// are already absorbed by the plugin contract, so an all-partner outage
// yields an empty ranked list, not an error.
func (s *Service) Compare(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.ComparisonDuration.WithLabelValues(string(req.Product)).Observe(time.Since(start).Seconds())
	}()

	key := cacheKey(req)
	if cached, ok := s.fromCache(ctx, key); ok {
		cached.FromCache = true
		return cached, nil
	}

	adapters := s.registry.GetPartnersByProduct(req.Product)

	perPartner := make([][]partner.PartnerOffer, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a partner.Plugin) {
			defer wg.Done()
			perPartner[i] = a.GetOffers(ctx, req.Financing)
		}(i, a)
	}
	wg.Wait()

	var batch []normalize.OfferInput
	for i, a := range adapters {
		md := a.Metadata()
		for _, o := range perPartner[i] {
			batch = append(batch, normalize.OfferInput{
				Offer:       o,
				PartnerID:   string(md.PartnerID),
				PartnerName: md.PartnerName,
			})
		}
	}

	ranked := rank.Offers(normalize.Offers(batch), req.Criteria)
	result := Result{Offers: ranked, PartnersQueried: len(adapters)}

	s.log.Info("comparison completed", map[string]interface{}{
		"product":          string(req.Product),
		"partners_queried": len(adapters),
		"offers_ranked":    len(ranked),
		"duration":         time.Since(start).String(),
	})

	s.toCache(ctx, key, result)
	s.toAudit(req, result, time.Since(start))
	return result, nil
}

// cacheKey digests the full request so any change in amount, criteria, or
// profile misses the cache.
func cacheKey(req Request) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return "offers:compare:unkeyed"
	}
	sum := sha256.Sum256(raw)
	return "offers:compare:" + hex.EncodeToString(sum[:])
}

func (s *Service) fromCache(ctx context.Context, key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}

	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Result{}, false
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		s.log.Warn("dropping undecodable cached comparison", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return Result{}, false
	}
	return result, true
}

func (s *Service) toCache(ctx context.Context, key string, result Result) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn("comparison cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// auditDocument is the analytics record for one comparison run.
type auditDocument struct {
	Timestamp       time.Time `json:"timestamp"`
	Product         string    `json:"product"`
	RequestedAmount float64   `json:"requestedAmount"`
	Prioritize      string    `json:"prioritize"`
	PartnersQueried int       `json:"partnersQueried"`
	OffersRanked    int       `json:"offersRanked"`
	WinningPartner  string    `json:"winningPartner,omitempty"`
	WinningAPR      float64   `json:"winningApr,omitempty"`
	DurationMS      int64     `json:"durationMs"`
}

// toAudit indexes fire-and-forget; analytics must never slow a comparison.
func (s *Service) toAudit(req Request, result Result, took time.Duration) {
	if s.audit == nil {
		return
	}

	doc := auditDocument{
		Timestamp:       time.Now().UTC(),
		Product:         string(req.Product),
		RequestedAmount: req.Financing.Amount,
		Prioritize:      string(req.Criteria.Prioritize),
		PartnersQueried: result.PartnersQueried,
		OffersRanked:    len(result.Offers),
		DurationMS:      took.Milliseconds(),
	}
	if len(result.Offers) > 0 {
		doc.WinningPartner = result.Offers[0].PartnerID
		doc.WinningAPR = result.Offers[0].EffectiveAPR
	}

	go func() {
		raw, err := json.Marshal(doc)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		res, err := s.audit.Index(auditIndex, bytes.NewReader(raw), s.audit.Index.WithContext(ctx))
		if err != nil {
			s.log.Warn("comparison audit indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		res.Body.Close()
	}()
}
