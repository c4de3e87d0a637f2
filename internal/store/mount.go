package store

import (
	"database/sql"
	"fmt"
)

// MountSource distinguishes operator-placed mounts from solver-generated
// ones (spec §3/C8): auto mounts are wholesale-replaced on every
// re-solve, manual mounts never are.
type MountSource string

const (
	MountSourceManual MountSource = "manual"
	MountSourceAuto   MountSource = "auto"
)

// PlannedMount is a sensor position on a layout, before or after pairing
// with a physical gateway (spec §3/§4.6). YawRad is stored in radians; the
// frame transformer (C6) converts to degrees on the way into a deployment
// bundle.
type PlannedMount struct {
	ID           string
	VenueID      string
	LayoutID     string
	Source       MountSource
	ModelID      string
	X, Y, Z      float64
	YawRad       float64
	MountHeightM float64
}

// PlannedMountStore persists PlannedMount rows.
type PlannedMountStore struct {
	db *DB
}

// NewPlannedMountStore creates a PlannedMountStore backed by db.
func NewPlannedMountStore(db *DB) *PlannedMountStore { return &PlannedMountStore{db: db} }

// Insert creates a new planned mount.
func (s *PlannedMountStore) Insert(m *PlannedMount) error {
	_, err := s.db.Exec(
		`INSERT INTO planned_mounts (id, venue_id, layout_id, source, model_id, x, y, z, yaw_rad, mount_height_m)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.VenueID, m.LayoutID, string(m.Source), m.ModelID, m.X, m.Y, m.Z, m.YawRad, m.MountHeightM,
	)
	if err != nil {
		return fmt.Errorf("insert planned mount: %w", err)
	}
	return nil
}

// ListByLayout returns every planned mount for a venue's layout, ordered by
// id for deterministic output.
func (s *PlannedMountStore) ListByLayout(venueID, layoutID string) ([]*PlannedMount, error) {
	rows, err := s.db.Query(
		`SELECT id, venue_id, layout_id, source, model_id, x, y, z, yaw_rad, mount_height_m
		 FROM planned_mounts WHERE venue_id = ? AND layout_id = ? ORDER BY id`,
		venueID, layoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("list planned mounts: %w", err)
	}
	defer rows.Close()
	return scanPlannedMounts(rows)
}

// Get retrieves a planned mount by ID.
func (s *PlannedMountStore) Get(id string) (*PlannedMount, error) {
	row := s.db.QueryRow(
		`SELECT id, venue_id, layout_id, source, model_id, x, y, z, yaw_rad, mount_height_m
		 FROM planned_mounts WHERE id = ?`, id,
	)
	var m PlannedMount
	var source string
	if err := row.Scan(&m.ID, &m.VenueID, &m.LayoutID, &source, &m.ModelID, &m.X, &m.Y, &m.Z, &m.YawRad, &m.MountHeightM); err != nil {
		return nil, err
	}
	m.Source = MountSource(source)
	return &m, nil
}

// Delete removes a planned mount by ID.
func (s *PlannedMountStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM planned_mounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete planned mount: %w", err)
	}
	return nil
}

// ReplaceAuto deletes every auto-sourced mount for venueID/layoutID and
// inserts the given replacements in a single transaction, implementing the
// solver's wholesale-replace semantics (spec C8) without disturbing manual
// mounts.
func (s *PlannedMountStore) ReplaceAuto(venueID, layoutID string, mounts []*PlannedMount) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace auto mounts: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM planned_mounts WHERE venue_id = ? AND layout_id = ? AND source = 'auto'`,
		venueID, layoutID,
	); err != nil {
		return fmt.Errorf("delete auto mounts: %w", err)
	}

	for _, m := range mounts {
		if _, err := tx.Exec(
			`INSERT INTO planned_mounts (id, venue_id, layout_id, source, model_id, x, y, z, yaw_rad, mount_height_m)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, venueID, layoutID, string(MountSourceAuto), m.ModelID, m.X, m.Y, m.Z, m.YawRad, m.MountHeightM,
		); err != nil {
			return fmt.Errorf("insert auto mount: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace auto mounts: %w", err)
	}
	return nil
}

func scanPlannedMounts(rows *sql.Rows) ([]*PlannedMount, error) {
	var out []*PlannedMount
	for rows.Next() {
		var m PlannedMount
		var source string
		if err := rows.Scan(&m.ID, &m.VenueID, &m.LayoutID, &source, &m.ModelID, &m.X, &m.Y, &m.Z, &m.YawRad, &m.MountHeightM); err != nil {
			return nil, fmt.Errorf("scan planned mount: %w", err)
		}
		m.Source = MountSource(source)
		out = append(out, &m)
	}
	return out, rows.Err()
}
