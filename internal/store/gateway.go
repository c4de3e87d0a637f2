package store

import (
	"database/sql"
	"fmt"
)

// GatewayOverride holds an operator-assigned display name for a mesh gateway,
// keyed by the gateway's mesh node ID. Absence of a row means the directory's
// raw mesh hostname is used as-is (spec C1).
type GatewayOverride struct {
	GatewayID   string
	DisplayName string
	Notes       string
}

// GatewayOverrideStore persists GatewayOverride rows.
type GatewayOverrideStore struct {
	db *DB
}

// NewGatewayOverrideStore creates a GatewayOverrideStore backed by db.
func NewGatewayOverrideStore(db *DB) *GatewayOverrideStore { return &GatewayOverrideStore{db: db} }

// Upsert sets or replaces the display name for a gateway.
func (s *GatewayOverrideStore) Upsert(gatewayID, displayName, notes string) error {
	_, err := s.db.Exec(
		`INSERT INTO gateway_overrides (gateway_id, display_name, notes) VALUES (?, ?, ?)
		 ON CONFLICT(gateway_id) DO UPDATE SET display_name = excluded.display_name, notes = excluded.notes`,
		gatewayID, displayName, nullString(notes),
	)
	if err != nil {
		return fmt.Errorf("upsert gateway override: %w", err)
	}
	return nil
}

// Get returns the override for gatewayID, or nil if none is set.
func (s *GatewayOverrideStore) Get(gatewayID string) (*GatewayOverride, error) {
	row := s.db.QueryRow(`SELECT gateway_id, display_name, notes FROM gateway_overrides WHERE gateway_id = ?`, gatewayID)
	var o GatewayOverride
	var notes sql.NullString
	if err := row.Scan(&o.GatewayID, &o.DisplayName, &notes); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get gateway override: %w", err)
	}
	o.Notes = notes.String
	return &o, nil
}

// All returns every override, keyed by gateway ID.
func (s *GatewayOverrideStore) All() (map[string]*GatewayOverride, error) {
	rows, err := s.db.Query(`SELECT gateway_id, display_name, notes FROM gateway_overrides`)
	if err != nil {
		return nil, fmt.Errorf("list gateway overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*GatewayOverride)
	for rows.Next() {
		var o GatewayOverride
		var notes sql.NullString
		if err := rows.Scan(&o.GatewayID, &o.DisplayName, &notes); err != nil {
			return nil, fmt.Errorf("scan gateway override: %w", err)
		}
		o.Notes = notes.String
		out[o.GatewayID] = &o
	}
	return out, rows.Err()
}
