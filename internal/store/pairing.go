package store

import (
	"database/sql"
	"fmt"
)

// Pairing links a planned mount to a physical gateway and sensor port, the
// unit of work the edge RPC client addresses during commissioning (spec
// §3/C5). SensorAddress is populated once the sensor coordinator (C4)
// assigns an IP on the gateway's LiDAR subnet; it is empty beforehand.
type Pairing struct {
	ID             string
	VenueID        string
	GatewayID      string
	PlannedMountID string
	SensorID       string
	SensorAddress  string
}

// PairingStore persists Pairing rows. A pairing is unique per
// (venue, planned mount): assigning a new gateway/sensor to an already-
// paired mount replaces the prior pairing rather than creating a second row.
type PairingStore struct {
	db *DB
}

// NewPairingStore creates a PairingStore backed by db.
func NewPairingStore(db *DB) *PairingStore { return &PairingStore{db: db} }

// Upsert creates or replaces the pairing for p.PlannedMountID within
// p.VenueID, enforced by the (venue_id, planned_mount_id) unique constraint.
func (s *PairingStore) Upsert(p *Pairing) error {
	_, err := s.db.Exec(
		`INSERT INTO pairings (id, venue_id, gateway_id, planned_mount_id, sensor_id, sensor_address)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(venue_id, planned_mount_id) DO UPDATE SET
		   gateway_id = excluded.gateway_id,
		   sensor_id = excluded.sensor_id,
		   sensor_address = excluded.sensor_address`,
		p.ID, p.VenueID, p.GatewayID, p.PlannedMountID, p.SensorID, nullString(p.SensorAddress),
	)
	if err != nil {
		return fmt.Errorf("upsert pairing: %w", err)
	}
	return nil
}

// List returns every pairing for a venue, optionally filtered to a single
// gateway when gatewayID is non-empty.
func (s *PairingStore) List(venueID, gatewayID string) ([]*Pairing, error) {
	query := `SELECT id, venue_id, gateway_id, planned_mount_id, sensor_id, sensor_address FROM pairings WHERE venue_id = ?`
	args := []interface{}{venueID}
	if gatewayID != "" {
		query += ` AND gateway_id = ?`
		args = append(args, gatewayID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pairings: %w", err)
	}
	defer rows.Close()

	var out []*Pairing
	for rows.Next() {
		var p Pairing
		var sensorAddr sql.NullString
		if err := rows.Scan(&p.ID, &p.VenueID, &p.GatewayID, &p.PlannedMountID, &p.SensorID, &sensorAddr); err != nil {
			return nil, fmt.Errorf("scan pairing: %w", err)
		}
		p.SensorAddress = sensorAddr.String
		out = append(out, &p)
	}
	return out, rows.Err()
}

// RemoveByPlannedMount deletes the pairing for a planned mount, if any.
func (s *PairingStore) RemoveByPlannedMount(plannedMountID string) error {
	_, err := s.db.Exec(`DELETE FROM pairings WHERE planned_mount_id = ?`, plannedMountID)
	if err != nil {
		return fmt.Errorf("remove pairing: %w", err)
	}
	return nil
}

// SweepOrphans deletes pairings whose planned mount no longer exists,
// called after a solver re-run wholesale-replaces auto mounts (spec C8/C5:
// stale pairings left pointing at deleted mount IDs must not linger).
func (s *PairingStore) SweepOrphans(venueID string) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM pairings WHERE venue_id = ? AND planned_mount_id NOT IN (
		   SELECT id FROM planned_mounts WHERE venue_id = ?
		 )`,
		venueID, venueID,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep orphan pairings: %w", err)
	}
	return res.RowsAffected()
}
