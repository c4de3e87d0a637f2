// Package pointcloud implements the point-cloud relay (spec C3): a
// request/response snapshot proxy and a bidirectional WebSocket stream
// relay, both fronting a gateway's own point-cloud endpoints.
package pointcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
)

// SnapshotFormat selects the response framing for a snapshot request
// (spec §4.3).
type SnapshotFormat string

const (
	FormatJSON   SnapshotFormat = "json"
	FormatBinary SnapshotFormat = "binary"
	FormatPLY    SnapshotFormat = "ply"
)

// snapshotDeadline is the fixed deadline for the gateway-side snapshot
// request (spec §4.3: "15 s deadline").
const snapshotDeadline = 15 * time.Second

// Point is one sample in a JSON-framed snapshot.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Intensity float64 `json:"intensity"`
}

// SnapshotRequest is the full set of parameters for a snapshot call (spec
// §4.3).
type SnapshotRequest struct {
	GatewayAddress string
	SensorAddress  string
	Format         SnapshotFormat
	DurationMS     int
	MaxPoints      int
	Downsample     float64
	ModelHint      string
}

// Relay fronts a gateway's point-cloud endpoints for both the snapshot
// request/response path and the WebSocket stream path.
type Relay struct {
	http httputil.HTTPClient
}

// NewRelay creates a Relay backed by client.
func NewRelay(client httputil.HTTPClient) *Relay {
	return &Relay{http: client}
}

// Snapshot forwards req to the gateway's snapshot endpoint and writes the
// response to w, preserving the wire framing exactly for the requested
// format (spec §4.3).
func (r *Relay) Snapshot(ctx context.Context, w http.ResponseWriter, req SnapshotRequest) error {
	ctx, cancel := context.WithTimeout(ctx, snapshotDeadline)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, buildSnapshotURL(req), nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build snapshot request")
	}

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return apperr.Wrap(apperr.KindRemoteError, err, "gateway snapshot request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apperr.RemoteErrorf(resp.StatusCode, string(body), "gateway snapshot returned %d", resp.StatusCode)
	}

	switch req.Format {
	case FormatBinary:
		return relayBinary(w, resp)
	case FormatPLY:
		return relayPLY(w, resp, req.SensorAddress)
	default:
		return relayJSON(w, resp)
	}
}

func buildSnapshotURL(req SnapshotRequest) string {
	q := url.Values{}
	q.Set("sensorAddress", req.SensorAddress)
	q.Set("format", string(req.Format))
	if req.DurationMS > 0 {
		q.Set("durationMs", strconv.Itoa(req.DurationMS))
	}
	if req.MaxPoints > 0 {
		q.Set("maxPoints", strconv.Itoa(req.MaxPoints))
	}
	if req.Downsample > 0 {
		q.Set("downsample", strconv.FormatFloat(req.Downsample, 'f', -1, 64))
	}
	if req.ModelHint != "" {
		q.Set("modelHint", req.ModelHint)
	}
	return fmt.Sprintf("http://%s/api/pointcloud/snapshot?%s", req.GatewayAddress, q.Encode())
}

// relayJSON decodes the gateway's point array and re-encodes it, which the
// spec explicitly permits for the json format.
func relayJSON(w http.ResponseWriter, resp *http.Response) error {
	var points []Point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return apperr.Wrap(apperr.KindRemoteError, err, "decode snapshot payload")
	}
	httputil.WriteJSON(w, http.StatusOK, points)
	return nil
}

// relayBinary streams the gateway's response bytes unmodified, propagating
// X-Point-Count and setting an octet-stream content type (spec §4.3).
func relayBinary(w http.ResponseWriter, resp *http.Response) error {
	if count := resp.Header.Get("X-Point-Count"); count != "" {
		w.Header().Set("X-Point-Count", count)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, err := io.Copy(w, resp.Body)
	return err
}

// relayPLY streams the gateway's response as text with a
// Content-Disposition filename derived from the sensor address (spec
// §4.3).
func relayPLY(w http.ResponseWriter, resp *http.Response, sensorAddress string) error {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", plyFilename(sensorAddress)))
	w.WriteHeader(http.StatusOK)
	_, err := io.Copy(w, resp.Body)
	return err
}

func plyFilename(sensorAddress string) string {
	sanitized := strings.ReplaceAll(sensorAddress, ".", "-")
	sanitized = strings.ReplaceAll(sanitized, ":", "-")
	if sanitized == "" {
		sanitized = "sensor"
	}
	return "snapshot-" + sanitized + ".ply"
}
