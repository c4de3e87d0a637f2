package store

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
)

// SensorStatus is the lifecycle state of a commissioned sensor record.
type SensorStatus string

const (
	SensorStatusActive  SensorStatus = "active"
	SensorStatusRetired SensorStatus = "retired"
)

// CommissionedSensor is a LiDAR unit that has been assigned a static address
// on a gateway's sensor subnet (spec §3/C4). OriginalAddress preserves the
// factory-default address the unit had before commissioning, needed if the
// operator ever has to factory-reset and re-discover it.
type CommissionedSensor struct {
	ID              string
	VenueID         string
	GatewayID       string
	AssignedAddress string
	Label           string
	OriginalAddress string
	Status          SensorStatus
}

// CommissionedSensorStore persists CommissionedSensor rows.
type CommissionedSensorStore struct {
	db *DB
}

// NewCommissionedSensorStore creates a CommissionedSensorStore backed by db.
func NewCommissionedSensorStore(db *DB) *CommissionedSensorStore {
	return &CommissionedSensorStore{db: db}
}

// Insert creates a new commissioned sensor record.
func (s *CommissionedSensorStore) Insert(c *CommissionedSensor) error {
	_, err := s.db.Exec(
		`INSERT INTO commissioned_sensors (id, venue_id, gateway_id, assigned_address, label, original_address, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.VenueID, c.GatewayID, c.AssignedAddress, c.Label, c.OriginalAddress, string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("insert commissioned sensor: %w", err)
	}
	return nil
}

// ListByVenue returns every commissioned sensor for a venue, optionally
// filtered to a single gateway when gatewayID is non-empty.
func (s *CommissionedSensorStore) ListByVenue(venueID, gatewayID string) ([]*CommissionedSensor, error) {
	query := `SELECT id, venue_id, gateway_id, assigned_address, label, original_address, status
	          FROM commissioned_sensors WHERE venue_id = ?`
	args := []interface{}{venueID}
	if gatewayID != "" {
		query += ` AND gateway_id = ?`
		args = append(args, gatewayID)
	}
	query += ` ORDER BY assigned_address`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commissioned sensors: %w", err)
	}
	defer rows.Close()

	var out []*CommissionedSensor
	for rows.Next() {
		var c CommissionedSensor
		var status string
		if err := rows.Scan(&c.ID, &c.VenueID, &c.GatewayID, &c.AssignedAddress, &c.Label, &c.OriginalAddress, &status); err != nil {
			return nil, fmt.Errorf("scan commissioned sensor: %w", err)
		}
		c.Status = SensorStatus(status)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// SetStatus updates the lifecycle status of a commissioned sensor.
func (s *CommissionedSensorStore) SetStatus(id string, status SensorStatus) error {
	res, err := s.db.Exec(`UPDATE commissioned_sensors SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set commissioned sensor status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set commissioned sensor status: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, "commissioned sensor %s not found", id)
	}
	return nil
}

// Delete removes a commissioned sensor record by ID.
func (s *CommissionedSensorStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM commissioned_sensors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete commissioned sensor: %w", err)
	}
	return nil
}

// reservedLastOctet is the broadcast address of any /24: never proposed as
// an assignable address (spec §3 Open Question, resolved in DESIGN.md).
// The pool is valid up to and including .254 (spec P4).
const reservedLastOctet = 255

// addressPoolStartOctet is the lowest last octet ever proposed, reserving
// .1-.200 for infrastructure and factory-default sensor addresses below
// the assignable pool (spec §4.4: "a configured /24 starting at .201").
const addressPoolStartOctet = 201

// NextAvailableAddress computes the next assignable address in subnetCIDR
// (a /24, e.g. "192.168.50.0/24") for gatewayID within venueID. It honors
// the monotonicity invariant (spec P4): the candidate is always strictly
// greater than every last octet ever assigned on that gateway, including
// retired sensors, so a freed address is never reissued, and never below
// addressPoolStartOctet. The network address (.0) and broadcast address
// (.255) are never proposed.
func (s *CommissionedSensorStore) NextAvailableAddress(venueID, gatewayID, subnetCIDR string) (string, error) {
	_, ipNet, err := net.ParseCIDR(subnetCIDR)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, err, "invalid subnet %q", subnetCIDR)
	}
	base := ipNet.IP.To4()
	if base == nil {
		return "", apperr.New(apperr.KindBadRequest, "subnet %q is not IPv4", subnetCIDR)
	}

	rows, err := s.db.Query(
		`SELECT assigned_address FROM commissioned_sensors WHERE venue_id = ? AND gateway_id = ?`,
		venueID, gatewayID,
	)
	if err != nil {
		return "", fmt.Errorf("query assigned addresses: %w", err)
	}
	defer rows.Close()

	highWater := addressPoolStartOctet - 1
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return "", fmt.Errorf("scan assigned address: %w", err)
		}
		octet, ok := lastOctet(addr)
		if ok && octet > highWater {
			highWater = octet
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	candidate := highWater + 1
	if candidate >= reservedLastOctet {
		return "", apperr.New(apperr.KindBadRequest, "address pool for gateway %s exhausted", gatewayID)
	}

	next := net.IPv4(base[0], base[1], base[2], byte(candidate))
	return next.String(), nil
}

func lastOctet(addr string) (int, bool) {
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return 0, false
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, false
	}
	return n, true
}
