package store

import (
	"database/sql"
	"fmt"
)

// AuditEvent is a durable record of a state transition or operator action
// worth reviewing later (gateway rename, coordinator state change, bundle
// apply). No component writes AuditEvent rows; the coordinator and the mesh
// directory report those actions only through monitoring.Event.
type AuditEvent struct {
	ID          string
	VenueID     string
	Kind        string
	DetailJSON  string
	CreatedAtNS int64
}

// AuditEventStore persists AuditEvent rows.
type AuditEventStore struct {
	db *DB
}

// NewAuditEventStore creates an AuditEventStore backed by db.
func NewAuditEventStore(db *DB) *AuditEventStore { return &AuditEventStore{db: db} }

// Insert appends a new audit event.
func (s *AuditEventStore) Insert(e *AuditEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_events (id, venue_id, kind, detail_json, created_at_ns) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.VenueID, e.Kind, nullString(e.DetailJSON), e.CreatedAtNS,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByVenue returns audit events for a venue, most recent first.
func (s *AuditEventStore) ListByVenue(venueID string, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, venue_id, kind, detail_json, created_at_ns FROM audit_events
		 WHERE venue_id = ? ORDER BY created_at_ns DESC LIMIT ?`,
		venueID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Kind, &detail, &e.CreatedAtNS); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.DetailJSON = detail.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
