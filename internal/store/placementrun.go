package store

import (
	"database/sql"
	"fmt"
)

// PlacementRun is an append-only record of one auto-placement solve (spec
// C8): the settings it ran with, the resulting coverage figures, and any
// warnings the solver or its greedy fallback emitted. Kept separate from
// the planned_mounts it produced so the coverage history survives a
// subsequent re-solve that wholesale-replaces the auto mounts.
type PlacementRun struct {
	ID            string
	VenueID       string
	LayoutID      string
	SettingsJSON  string
	CoveragePct   *float64
	KCoveragePct  *float64
	SensorCount   *int
	SolverStatus  string
	WarningsJSON  string
	CreatedAtNS   int64
}

// PlacementRunStore persists PlacementRun rows.
type PlacementRunStore struct {
	db *DB
}

// NewPlacementRunStore creates a PlacementRunStore backed by db.
func NewPlacementRunStore(db *DB) *PlacementRunStore { return &PlacementRunStore{db: db} }

// Insert appends a new placement run record.
func (s *PlacementRunStore) Insert(r *PlacementRun) error {
	_, err := s.db.Exec(
		`INSERT INTO placement_runs
		   (id, venue_id, layout_id, settings_json, coverage_pct, k_coverage_pct, sensor_count, solver_status, warnings_json, created_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.VenueID, r.LayoutID, r.SettingsJSON, nullFloat64Ptr(r.CoveragePct), nullFloat64Ptr(r.KCoveragePct),
		nullIntPtr(r.SensorCount), nullString(r.SolverStatus), nullString(r.WarningsJSON), r.CreatedAtNS,
	)
	if err != nil {
		return fmt.Errorf("insert placement run: %w", err)
	}
	return nil
}

// ListByLayout returns placement run history for a layout, most recent
// first.
func (s *PlacementRunStore) ListByLayout(venueID, layoutID string, limit int) ([]*PlacementRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, venue_id, layout_id, settings_json, coverage_pct, k_coverage_pct, sensor_count, solver_status, warnings_json, created_at_ns
		 FROM placement_runs WHERE venue_id = ? AND layout_id = ?
		 ORDER BY created_at_ns DESC LIMIT ?`,
		venueID, layoutID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list placement runs: %w", err)
	}
	defer rows.Close()

	var out []*PlacementRun
	for rows.Next() {
		var r PlacementRun
		var coverage, kCoverage sql.NullFloat64
		var sensorCount sql.NullInt64
		var solverStatus, warnings sql.NullString
		if err := rows.Scan(
			&r.ID, &r.VenueID, &r.LayoutID, &r.SettingsJSON, &coverage, &kCoverage,
			&sensorCount, &solverStatus, &warnings, &r.CreatedAtNS,
		); err != nil {
			return nil, fmt.Errorf("scan placement run: %w", err)
		}
		if coverage.Valid {
			r.CoveragePct = &coverage.Float64
		}
		if kCoverage.Valid {
			r.KCoveragePct = &kCoverage.Float64
		}
		if sensorCount.Valid {
			n := int(sensorCount.Int64)
			r.SensorCount = &n
		}
		r.SolverStatus = solverStatus.String
		r.WarningsJSON = warnings.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullIntPtr(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}
