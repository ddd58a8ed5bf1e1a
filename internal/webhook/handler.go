// Package webhook exposes the HTTP endpoint partners call back on. Every
// delivery is acknowledged with a 200-class response regardless of payload
// validity, so misbehaving senders do not enter retry storms; the processed
// flag in the body carries the real outcome.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/common/metrics"
	"financing-gateway/internal/partner"
	"financing-gateway/internal/partner/registry"
	"financing-gateway/internal/store"
)

// envelopeSchema validates the delivery wrapper before any dispatch. The
// inner payload stays opaque here; only the adapter understands it.
const envelopeSchema = `{
	"type": "object",
	"required": ["payload", "signature"],
	"properties": {
		"payload": {"type": "object"},
		"signature": {"type": "string", "minLength": 1}
	}
}`

// envelope is the wire shape partners deliver. Payload keeps the exact bytes
// received so signature verification sees what the partner signed.
type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// ack is the response body for every delivery.
type ack struct {
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}

// EventRecorder persists accepted webhook events. Satisfied by *store.Store.
type EventRecorder interface {
	RecordWebhookEvent(ctx context.Context, event store.WebhookEvent) error
	UpdateStatus(ctx context.Context, externalAppID string, status partner.ApplicationStatus) error
}

// Handler routes partner callbacks to the matching adapter.
type Handler struct {
	registry *registry.Registry
	log      logger.Logger
	schema   *gojsonschema.Schema

	recorder EventRecorder
	notifier *Notifier
}

// NewHandler builds the webhook handler. recorder and notifier are optional.
func NewHandler(reg *registry.Registry, log logger.Logger, recorder EventRecorder, notifier *Notifier) (*Handler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		registry: reg,
		log:      log,
		schema:   schema,
		recorder: recorder,
		notifier: notifier,
	}, nil
}

// ServeHTTP handles POST /webhooks/{partnerId}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond(w, http.StatusMethodNotAllowed, ack{Processed: false, Reason: "POST required"})
		return
	}

	partnerID := partner.PartnerID(strings.TrimPrefix(r.URL.Path, "/webhooks/"))

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respond(w, http.StatusOK, ack{Processed: false, Reason: "Unreadable body"})
		return
	}

	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil || !result.Valid() {
		metrics.WebhooksProcessed.WithLabelValues(string(partnerID), "invalid_envelope").Inc()
		respond(w, http.StatusOK, ack{Processed: false, Reason: "Invalid envelope"})
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		respond(w, http.StatusOK, ack{Processed: false, Reason: "Invalid envelope"})
		return
	}

	adapter, ok := h.registry.Get(partnerID)
	if !ok {
		h.log.Warn("webhook for unknown partner", map[string]interface{}{
			"partner": string(partnerID),
		})
		metrics.WebhooksProcessed.WithLabelValues(string(partnerID), "unknown_partner").Inc()
		respond(w, http.StatusOK, ack{Processed: false, Reason: "Unknown partner"})
		return
	}

	outcome := adapter.HandleWebhook(r.Context(), env.Payload, env.Signature)
	if outcome.Processed {
		h.afterProcessed(r, partnerID, env.Payload, outcome)
	}

	respond(w, http.StatusOK, ack{Processed: outcome.Processed, Reason: outcome.Reason})
}

// afterProcessed persists the event, moves the application status, and fires
// decision notifications. All best-effort; the partner already got its ack.
func (h *Handler) afterProcessed(r *http.Request, partnerID partner.PartnerID, payload []byte, outcome partner.WebhookResult) {
	ctx := r.Context()

	if h.recorder != nil {
		err := h.recorder.RecordWebhookEvent(ctx, store.WebhookEvent{
			PartnerID:     string(partnerID),
			Event:         outcome.Event,
			ExternalAppID: outcome.ExternalAppID,
			Status:        string(outcome.Status),
			Payload:       payload,
		})
		if err != nil {
			h.log.Error("webhook event persistence failed", map[string]interface{}{
				"partner": string(partnerID),
				"error":   err.Error(),
			})
		}

		if outcome.ExternalAppID != "" && outcome.Status != "" {
			if err := h.recorder.UpdateStatus(ctx, outcome.ExternalAppID, outcome.Status); err != nil && err != store.ErrNotFound {
				h.log.Error("application status update failed", map[string]interface{}{
					"partner":         string(partnerID),
					"external_app_id": outcome.ExternalAppID,
					"error":           err.Error(),
				})
			}
		}
	}

	if h.notifier != nil {
		switch outcome.Status {
		case partner.StatusApproved, partner.StatusRejected, partner.StatusDisbursed:
			h.notifier.NotifyDecision(string(partnerID), outcome)
		}
	}
}

func respond(w http.ResponseWriter, status int, body ack) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
