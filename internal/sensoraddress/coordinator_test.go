package sensoraddress

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shrinkTimings overrides the reboot-wait and verify-backoff durations for
// the duration of a test so Assign runs in milliseconds, not ~40 seconds.
func shrinkTimings(t *testing.T) {
	t.Helper()
	origWait, origRetries, origBackoff := rebootWait, verifyRetries, verifyBackoff
	rebootWait = time.Millisecond
	verifyRetries = 3
	verifyBackoff = time.Millisecond
	t.Cleanup(func() {
		rebootWait, verifyRetries, verifyBackoff = origWait, origRetries, origBackoff
	})
}

func newTestStore(t *testing.T) *store.CommissionedSensorStore {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewCommissionedSensorStore(db)
}

func TestCoordinator_Scan_FindsOnlineSensor(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"online":true}`)
	edge := edgerpc.New(mock)
	c := New(edge, newTestStore(t))

	result, err := c.Scan(context.Background(), "100.64.0.10", "192.168.1.200")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.200", result.Address)
	assert.True(t, result.Online)
}

func TestCoordinator_Assign_SucceedsThroughVerify(t *testing.T) {
	shrinkTimings(t)
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(context.DeadlineExceeded) // set-ip: "timeout is success"
	mock.AddResponse(http.StatusOK, `{"address":"192.168.50.201"}`) // verify succeeds first try
	edge := edgerpc.New(mock)
	sensors := newTestStore(t)
	c := New(edge, sensors)

	result, err := c.Assign(context.Background(), "venue-1", "gw-1", "100.64.0.10", "192.168.50.0/24", "192.168.1.200")
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "192.168.50.201", result.AssignedAddress)
	assert.Equal(t, "192.168.1.200", result.OriginalAddress)
	assert.Equal(t, "LiDAR-201", result.Label)

	rows, err := sensors.ListByVenue("venue-1", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, store.SensorStatusActive, rows[0].Status)
}

func TestCoordinator_Assign_VerifyRetriesThenFails(t *testing.T) {
	shrinkTimings(t)
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(context.DeadlineExceeded) // set-ip timeout
	mock.AddResponse(http.StatusServiceUnavailable, "not ready")
	mock.AddResponse(http.StatusServiceUnavailable, "not ready")
	mock.AddResponse(http.StatusServiceUnavailable, "not ready")
	edge := edgerpc.New(mock)
	c := New(edge, newTestStore(t))

	_, err := c.Assign(context.Background(), "venue-2", "gw-1", "100.64.0.10", "192.168.50.0/24", "192.168.1.200")
	require.Error(t, err)
}

func TestCoordinator_Assign_ConcurrentCallsForSameVenueBusy(t *testing.T) {
	shrinkTimings(t)
	// Hold the venue lock open across the whole Assign by making the
	// set-ip call block until released.
	release := make(chan struct{})
	mock := httputil.NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		<-release
		return nil, context.DeadlineExceeded
	}
	edge := edgerpc.New(mock)
	c := New(edge, newTestStore(t))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = c.Assign(ctx, "venue-3", "gw-1", "100.64.0.10", "192.168.50.0/24", "192.168.1.200")
	}()

	// Give the first Assign a moment to acquire the lock before the
	// second one races it; the lock acquisition itself is instantaneous
	// once the goroutine is scheduled.
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	_, err := c.Assign(context.Background(), "venue-3", "gw-1", "100.64.0.10", "192.168.50.0/24", "192.168.1.201")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindCoordinatorBusy))
	assert.Less(t, elapsed, 100*time.Millisecond)

	close(release)
	wg.Wait()
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "LiDAR-201", labelFor("192.168.50.201"))
	assert.Equal(t, "LiDAR-not-an-ip", labelFor("not-an-ip"))
}
