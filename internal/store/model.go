package store

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
)

// domeModeRadiusFactor is the fraction of a dome-mode sensor's rated range
// that is used as its effective coverage radius in the placement and frame
// transform math. Spec §3 leaves the exact factor as an Open Question;
// resolved at 0.9 (DESIGN.md) to mirror the conservative rating derating the
// manufacturer fixtures in the seed scenarios already assume.
const domeModeRadiusFactor = 0.9

// SensorModel is a LiDAR fixture specification (spec §3).
type SensorModel struct {
	ID       string
	Label    string
	HFOVDeg  float64
	VFOVDeg  float64
	RangeM   float64
	DomeMode bool
}

// EffectiveRadius returns the coverage radius used by the placement solver,
// frame transform, and coverage simulation (spec §3): a dome-mode sensor
// (or any sensor with a full 360° horizontal field of view) is derated to
// domeModeRadiusFactor times its rated range; a directional sensor's radius
// is further capped by how far its vertical field of view reaches the
// floor from mountHeightM, whichever is smaller.
func (m SensorModel) EffectiveRadius(mountHeightM float64) float64 {
	if m.DomeMode || m.HFOVDeg >= 360 {
		return m.RangeM * domeModeRadiusFactor
	}
	reach := mountHeightM * math.Tan(m.VFOVDeg/2*math.Pi/180)
	return math.Min(m.RangeM, reach)
}

// SensorModelStore persists SensorModel rows.
type SensorModelStore struct {
	db *DB
}

// NewSensorModelStore creates a SensorModelStore backed by db.
func NewSensorModelStore(db *DB) *SensorModelStore { return &SensorModelStore{db: db} }

// Insert creates a new sensor model.
func (s *SensorModelStore) Insert(m *SensorModel) error {
	_, err := s.db.Exec(
		`INSERT INTO sensor_models (id, label, hfov_deg, vfov_deg, range_m, dome_mode) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Label, m.HFOVDeg, m.VFOVDeg, m.RangeM, boolToInt(m.DomeMode),
	)
	if err != nil {
		return fmt.Errorf("insert sensor model: %w", err)
	}
	return nil
}

// Get retrieves a sensor model by ID.
func (s *SensorModelStore) Get(id string) (*SensorModel, error) {
	row := s.db.QueryRow(`SELECT id, label, hfov_deg, vfov_deg, range_m, dome_mode FROM sensor_models WHERE id = ?`, id)
	m, err := scanSensorModel(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "sensor model %s not found", id)
	}
	return m, err
}

// List returns every sensor model.
func (s *SensorModelStore) List() ([]*SensorModel, error) {
	rows, err := s.db.Query(`SELECT id, label, hfov_deg, vfov_deg, range_m, dome_mode FROM sensor_models ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list sensor models: %w", err)
	}
	defer rows.Close()

	var out []*SensorModel
	for rows.Next() {
		m, err := scanSensorModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sensor model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update overwrites every field of an existing sensor model.
func (s *SensorModelStore) Update(m *SensorModel) error {
	res, err := s.db.Exec(
		`UPDATE sensor_models SET label = ?, hfov_deg = ?, vfov_deg = ?, range_m = ?, dome_mode = ? WHERE id = ?`,
		m.Label, m.HFOVDeg, m.VFOVDeg, m.RangeM, boolToInt(m.DomeMode), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update sensor model: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sensor model: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "sensor model %s not found", m.ID)
	}
	return nil
}

// Delete removes a sensor model by ID.
func (s *SensorModelStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sensor_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sensor model: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSensorModel(row rowScanner) (*SensorModel, error) {
	var m SensorModel
	var domeMode int
	if err := row.Scan(&m.ID, &m.Label, &m.HFOVDeg, &m.VFOVDeg, &m.RangeM, &domeMode); err != nil {
		return nil, err
	}
	m.DomeMode = domeMode != 0
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// clampPositive guards against a zero or negative range producing a
// degenerate (zero-area) coverage polygon downstream.
func clampPositive(v float64) float64 {
	return math.Max(v, 0)
}
