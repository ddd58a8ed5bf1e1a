// Package store persists submitted applications and received webhook events.
// The comparison pipeline itself is stateless; only user-initiated
// submissions and partner callbacks leave a durable trace.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/partner"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Application is one submitted financing application.
type Application struct {
	ID                string
	ApplicationNumber string
	ReferenceID       string
	PartnerID         string
	ExternalAppID     string
	Amount            float64
	Purpose           string
	Status            partner.ApplicationStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WebhookEvent is one recorded partner callback.
type WebhookEvent struct {
	ID            string
	PartnerID     string
	Event         string
	ExternalAppID string
	Status        string
	Payload       []byte
	ReceivedAt    time.Time
}

// Store wraps the relational backend.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// New builds a Store over an open database handle.
func New(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{db: db, log: log}
}

// NewApplicationNumber generates a human-quotable application number.
func NewApplicationNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("FIN-%s-%s", now.Format("20060102"), suffix)
}

// CreateApplication inserts a new application row and returns it with
// generated identifiers filled in.
func (s *Store) CreateApplication(ctx context.Context, app Application) (Application, error) {
	now := time.Now().UTC()
	app.ID = uuid.NewString()
	if app.ApplicationNumber == "" {
		app.ApplicationNumber = NewApplicationNumber(now)
	}
	if app.Status == "" {
		app.Status = partner.StatusPending
	}
	app.CreatedAt = now
	app.UpdatedAt = now

	const query = `
		INSERT INTO applications
			(id, application_number, reference_id, partner_id, external_app_id,
			 amount, purpose, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		app.ID, app.ApplicationNumber, app.ReferenceID, app.PartnerID,
		app.ExternalAppID, app.Amount, app.Purpose, string(app.Status),
		app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return Application{}, fmt.Errorf("insert application: %w", err)
	}

	s.log.Info("application persisted", map[string]interface{}{
		"application_number": app.ApplicationNumber,
		"partner":            app.PartnerID,
		"amount":             app.Amount,
	})
	return app, nil
}

// UpdateStatus moves an application to a new status by its external id.
func (s *Store) UpdateStatus(ctx context.Context, externalAppID string, status partner.ApplicationStatus) error {
	const query = `
		UPDATE applications
		SET status = $1, updated_at = $2
		WHERE external_app_id = $3`

	result, err := s.db.ExecContext(ctx, query, string(status), time.Now().UTC(), externalAppID)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByReference fetches an application by the platform's reference id.
func (s *Store) GetByReference(ctx context.Context, referenceID string) (Application, error) {
	const query = `
		SELECT id, application_number, reference_id, partner_id, external_app_id,
		       amount, purpose, status, created_at, updated_at
		FROM applications
		WHERE reference_id = $1`

	var app Application
	var status string
	err := s.db.QueryRowContext(ctx, query, referenceID).Scan(
		&app.ID, &app.ApplicationNumber, &app.ReferenceID, &app.PartnerID,
		&app.ExternalAppID, &app.Amount, &app.Purpose, &status,
		&app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	if err != nil {
		return Application{}, fmt.Errorf("get application: %w", err)
	}
	app.Status = partner.ApplicationStatus(status)
	return app, nil
}

// CountByPartner returns submitted-application counts per partner id.
func (s *Store) CountByPartner(ctx context.Context) (map[string]int, error) {
	const query = `
		SELECT partner_id, COUNT(*)
		FROM applications
		GROUP BY partner_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("count applications: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// RecordWebhookEvent stores one partner callback, raw payload included, for
// audit and replay.
func (s *Store) RecordWebhookEvent(ctx context.Context, event WebhookEvent) error {
	event.ID = uuid.NewString()
	event.ReceivedAt = time.Now().UTC()

	const query = `
		INSERT INTO webhook_events
			(id, partner_id, event, external_app_id, status, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.PartnerID, event.Event, event.ExternalAppID,
		event.Status, event.Payload, event.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}
