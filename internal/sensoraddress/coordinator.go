// Package sensoraddress drives the address-reassignment state machine for
// a single factory-addressed LiDAR sensor at a time, per venue (spec C4):
// scan at a known address, assign the next free address on the gateway's
// sensor subnet, wait out the sensor's reboot, and re-verify before
// recording the reassignment durably.
package sensoraddress

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/monitoring"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// State is one state of the C4 state machine.
type State string

const (
	StateIdle         State = "IDLE"
	StateScanning     State = "SCANNING"
	StateFound        State = "FOUND"
	StateConfiguring  State = "CONFIGURING"
	StateRebooting    State = "REBOOTING"
	StateVerifying    State = "VERIFYING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Timing constants from spec §4.4. Declared as vars, not consts, so tests
// can shrink them rather than waiting out a real reboot/backoff cycle.
var (
	rebootWait    = 15 * time.Second
	verifyRetries = 5
	verifyBackoff = 5 * time.Second
)

// DefaultScanTarget is the factory-default address probed when the
// operator does not override the target (spec §4.4).
const DefaultScanTarget = "192.168.1.200"

// ScanResult is the outcome of probing a specific address for a
// factory-fresh sensor.
type ScanResult struct {
	Address string
	Online  bool
}

// AssignResult is the terminal outcome of driving a sensor through
// CONFIGURING, REBOOTING, and VERIFYING.
type AssignResult struct {
	State           State
	CommissionedID  string
	AssignedAddress string
	OriginalAddress string
	Label           string
}

// Coordinator drives the state machine for one venue's gateways. It is
// safe for concurrent use across venues; within a single venue, Assign
// holds an exclusive, non-blocking lock so a second concurrent Assign call
// fails fast with CoordinatorBusy rather than queueing (spec §5: "while
// one sensor is between SCANNING and DONE/FAILED, another /assign request
// ... is rejected").
type Coordinator struct {
	edge    *edgerpc.Client
	sensors *store.CommissionedSensorStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Coordinator backed by edge (the RPC client to gateways)
// and sensors (the commissioned-sensor store).
func New(edge *edgerpc.Client, sensors *store.CommissionedSensorStore) *Coordinator {
	return &Coordinator{
		edge:    edge,
		sensors: sensors,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) venueLock(venueID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[venueID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[venueID] = l
	}
	return l
}

// Scan probes targetAddress on the gateway at gatewayAddress for a
// factory-fresh sensor. It is read-only and does not take the venue lock,
// so it may run concurrently with an in-progress Assign (spec §5).
func (c *Coordinator) Scan(ctx context.Context, gatewayAddress, targetAddress string) (*ScanResult, error) {
	if targetAddress == "" {
		targetAddress = DefaultScanTarget
	}

	var found struct {
		Online bool `json:"online"`
	}
	path := fmt.Sprintf("/api/edge/lidar/scan?target=%s", targetAddress)
	if err := c.edge.Scan(ctx, "http://"+gatewayAddress, path, &found); err != nil {
		return nil, err
	}
	return &ScanResult{Address: targetAddress, Online: found.Online}, nil
}

// Assign drives a sensor previously found at oldAddress through
// CONFIGURING, REBOOTING, and VERIFYING, writing a CommissionedSensor row
// on success (spec §4.4). It fails immediately with CoordinatorBusy if
// another Assign is already in flight for venueID.
func (c *Coordinator) Assign(ctx context.Context, venueID, gatewayID, gatewayAddress, subnetCIDR, oldAddress string) (*AssignResult, error) {
	lock := c.venueLock(venueID)
	if !lock.TryLock() {
		return nil, apperr.New(apperr.KindCoordinatorBusy, "address assignment already in progress for venue %s", venueID)
	}
	defer lock.Unlock()

	monitoring.Event("coordinator.transition", venueID+" CONFIGURING")
	newAddress, err := c.sensors.NextAvailableAddress(venueID, gatewayID, subnetCIDR)
	if err != nil {
		monitoring.Event("coordinator.transition", venueID+" FAILED (pool exhausted)")
		return nil, err
	}

	setIPBody := map[string]string{"address": newAddress}
	result, err := c.edge.SetAddress(ctx, "http://"+gatewayAddress, "/api/edge/lidar/set-ip", setIPBody, edgerpc.RebootingDeadline)
	if err != nil {
		monitoring.Event("coordinator.transition", venueID+" FAILED (set-ip error)")
		return nil, err
	}
	if !result.TimedOut {
		monitoring.Logf("sensor address coordinator: set-ip for %s returned before reboot, proceeding to verify", oldAddress)
	}

	monitoring.Event("coordinator.transition", venueID+" REBOOTING")
	if err := sleepContext(ctx, rebootWait); err != nil {
		return nil, err
	}

	monitoring.Event("coordinator.transition", venueID+" VERIFYING")
	if err := c.verify(ctx, gatewayAddress, newAddress); err != nil {
		monitoring.Event("coordinator.transition", venueID+" FAILED (verify exhausted)")
		return nil, apperr.New(apperr.KindTimeout, "sensor at %s did not verify after reassignment: %v", newAddress, err)
	}

	record := &store.CommissionedSensor{
		ID:              uuid.New().String(),
		VenueID:         venueID,
		GatewayID:       gatewayID,
		AssignedAddress: newAddress,
		Label:           labelFor(newAddress),
		OriginalAddress: oldAddress,
		Status:          store.SensorStatusActive,
	}
	if err := c.sensors.Insert(record); err != nil {
		return nil, err
	}

	monitoring.Event("coordinator.transition", venueID+" DONE")
	return &AssignResult{
		State:           StateDone,
		CommissionedID:  record.ID,
		AssignedAddress: newAddress,
		OriginalAddress: oldAddress,
		Label:           record.Label,
	}, nil
}

func (c *Coordinator) verify(ctx context.Context, gatewayAddress, address string) error {
	path := fmt.Sprintf("/api/edge/lidar/get-config/%s", address)
	var lastErr error
	for attempt := 0; attempt < verifyRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, verifyBackoff); err != nil {
				return err
			}
		}
		var config map[string]interface{}
		err := c.edge.Get(ctx, "http://"+gatewayAddress, path, &config)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// labelFor derives a CommissionedSensor label from the last octet of an
// assigned address (spec §4.4: "label = LiDAR-<lastOctet>").
func labelFor(address string) string {
	ip := net.ParseIP(address)
	if ip == nil {
		return "LiDAR-" + address
	}
	v4 := ip.To4()
	if v4 == nil {
		return "LiDAR-" + address
	}
	octet := v4[3]
	return "LiDAR-" + strconv.Itoa(int(octet))
}
