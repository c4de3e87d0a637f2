package store

import (
	"database/sql"
	"fmt"
)

// DeploymentStatus records whether a bundle apply reached the gateway.
type DeploymentStatus string

const (
	DeploymentStatusApplied DeploymentStatus = "applied"
	DeploymentStatusFailed  DeploymentStatus = "failed"
)

// DeploymentRecord is an append-only audit trail entry for a configuration
// bundle sent to a gateway (spec §3/C7). Both successful and failed applies
// are recorded so operators can see what was attempted even when the
// gateway never received it.
type DeploymentRecord struct {
	ID              string
	VenueID         string
	GatewayID       string
	BundleHash      string
	BundleJSON      string
	Status          DeploymentStatus
	GatewayResponse string
	ErrorMessage    string
	CreatedAtNS     int64
}

// DeploymentRecordStore persists DeploymentRecord rows. Records are never
// updated or deleted once written.
type DeploymentRecordStore struct {
	db *DB
}

// NewDeploymentRecordStore creates a DeploymentRecordStore backed by db.
func NewDeploymentRecordStore(db *DB) *DeploymentRecordStore {
	return &DeploymentRecordStore{db: db}
}

// Insert appends a new deployment record.
func (s *DeploymentRecordStore) Insert(r *DeploymentRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO deployment_records
		   (id, venue_id, gateway_id, bundle_hash, bundle_json, status, gateway_response, error_message, created_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.VenueID, r.GatewayID, r.BundleHash, r.BundleJSON, string(r.Status),
		nullString(r.GatewayResponse), nullString(r.ErrorMessage), r.CreatedAtNS,
	)
	if err != nil {
		return fmt.Errorf("insert deployment record: %w", err)
	}
	return nil
}

// ListByGateway returns deployment history for a gateway, most recent first.
func (s *DeploymentRecordStore) ListByGateway(venueID, gatewayID string, limit int) ([]*DeploymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, venue_id, gateway_id, bundle_hash, bundle_json, status, gateway_response, error_message, created_at_ns
		 FROM deployment_records WHERE venue_id = ? AND gateway_id = ?
		 ORDER BY created_at_ns DESC LIMIT ?`,
		venueID, gatewayID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployment records: %w", err)
	}
	defer rows.Close()
	return scanDeploymentRecords(rows)
}

// ListByVenue returns deployment history across every gateway in a venue,
// most recent first.
func (s *DeploymentRecordStore) ListByVenue(venueID string, limit int) ([]*DeploymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, venue_id, gateway_id, bundle_hash, bundle_json, status, gateway_response, error_message, created_at_ns
		 FROM deployment_records WHERE venue_id = ?
		 ORDER BY created_at_ns DESC LIMIT ?`,
		venueID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployment records: %w", err)
	}
	defer rows.Close()
	return scanDeploymentRecords(rows)
}

func scanDeploymentRecords(rows *sql.Rows) ([]*DeploymentRecord, error) {
	var out []*DeploymentRecord
	for rows.Next() {
		var r DeploymentRecord
		var status string
		var gatewayResp, errMsg sql.NullString
		if err := rows.Scan(
			&r.ID, &r.VenueID, &r.GatewayID, &r.BundleHash, &r.BundleJSON, &status,
			&gatewayResp, &errMsg, &r.CreatedAtNS,
		); err != nil {
			return nil, fmt.Errorf("scan deployment record: %w", err)
		}
		r.Status = DeploymentStatus(status)
		r.GatewayResponse = gatewayResp.String
		r.ErrorMessage = errMsg.String
		out = append(out, &r)
	}
	return out, rows.Err()
}
