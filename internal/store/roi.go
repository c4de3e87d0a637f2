package store

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// RegionOfInterestStore persists the ordered vertex list of the operator-
// drawn coverage polygon for a venue's layout (spec §3/C6). Vertices are
// stored with an explicit index rather than relying on row order so the
// polygon is reconstructed identically regardless of SQLite's physical
// storage order.
type RegionOfInterestStore struct {
	db *DB
}

// NewRegionOfInterestStore creates a RegionOfInterestStore backed by db.
func NewRegionOfInterestStore(db *DB) *RegionOfInterestStore {
	return &RegionOfInterestStore{db: db}
}

// Replace wholesale-replaces the ROI polygon for venueID/layoutID. An empty
// vertices slice clears the ROI, signaling the frame transformer to fall
// back to the next source in its offset chain (spec §4.6).
func (s *RegionOfInterestStore) Replace(venueID, layoutID string, vertices []r2.Vec) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace roi: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM regions_of_interest WHERE venue_id = ? AND layout_id = ?`,
		venueID, layoutID,
	); err != nil {
		return fmt.Errorf("delete roi: %w", err)
	}

	for i, v := range vertices {
		if _, err := tx.Exec(
			`INSERT INTO regions_of_interest (venue_id, layout_id, vertex_index, x, z) VALUES (?, ?, ?, ?, ?)`,
			venueID, layoutID, i, v.X, v.Y,
		); err != nil {
			return fmt.Errorf("insert roi vertex: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace roi: %w", err)
	}
	return nil
}

// Get returns the ROI polygon for venueID/layoutID in vertex-index order,
// or nil if no ROI has been set.
func (s *RegionOfInterestStore) Get(venueID, layoutID string) ([]r2.Vec, error) {
	rows, err := s.db.Query(
		`SELECT x, z FROM regions_of_interest WHERE venue_id = ? AND layout_id = ? ORDER BY vertex_index`,
		venueID, layoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("get roi: %w", err)
	}
	defer rows.Close()

	var out []r2.Vec
	for rows.Next() {
		var v r2.Vec
		if err := rows.Scan(&v.X, &v.Y); err != nil {
			return nil, fmt.Errorf("scan roi vertex: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
