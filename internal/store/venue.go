package store

import (
	"database/sql"
	"fmt"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
)

// Venue is the outermost aggregate root (spec §3).
type Venue struct {
	ID             string
	Label          string
	WidthM         float64
	DepthM         float64
	HeightM        float64
	ActiveLayoutID string
}

// VenueStore persists Venue rows.
type VenueStore struct {
	db *DB
}

// NewVenueStore creates a VenueStore backed by db.
func NewVenueStore(db *DB) *VenueStore { return &VenueStore{db: db} }

// Insert creates a new venue.
func (s *VenueStore) Insert(v *Venue) error {
	_, err := s.db.Exec(
		`INSERT INTO venues (id, label, width_m, depth_m, height_m, active_layout_id) VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Label, v.WidthM, v.DepthM, v.HeightM, nullString(v.ActiveLayoutID),
	)
	if err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

// Get retrieves a venue by ID.
func (s *VenueStore) Get(id string) (*Venue, error) {
	row := s.db.QueryRow(
		`SELECT id, label, width_m, depth_m, height_m, active_layout_id FROM venues WHERE id = ?`, id,
	)
	var v Venue
	var activeLayout sql.NullString
	if err := row.Scan(&v.ID, &v.Label, &v.WidthM, &v.DepthM, &v.HeightM, &activeLayout); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "venue %s not found", id)
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	v.ActiveLayoutID = activeLayout.String
	return &v, nil
}

// List returns every venue.
func (s *VenueStore) List() ([]*Venue, error) {
	rows, err := s.db.Query(`SELECT id, label, width_m, depth_m, height_m, active_layout_id FROM venues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var out []*Venue
	for rows.Next() {
		var v Venue
		var activeLayout sql.NullString
		if err := rows.Scan(&v.ID, &v.Label, &v.WidthM, &v.DepthM, &v.HeightM, &activeLayout); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		v.ActiveLayoutID = activeLayout.String
		out = append(out, &v)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
