// Package deployment implements the C7 Deployment Engine: it assembles a
// venue/gateway's configuration bundle, hashes it deterministically, and
// either applies it to the edge gateway or exports it for offline handoff
// (spec §4.7).
package deployment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hyperspacefleet/commission-core/internal/frame"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// Operational parameters fixed by spec §4.7.
const (
	minDetectionHeightM = 0.3
	maxDetectionHeightM = 2.2
	publishRateHz       = 10
)

// exportBrokerPlaceholder replaces mqtt.broker in an exported bundle so the
// export path carries no live connection detail (spec §4.7 "Export").
const exportBrokerPlaceholder = "<mqtt-broker>"

// LidarEntry is one paired sensor's contribution to a bundle, resolved
// from a Pairing joined against its PlannedMount and SensorModel.
type LidarEntry struct {
	LidarID string
	IP      string
	Model   *store.SensorModel
	Mount   frame.Mount
}

// warning describes a pairing that could not be resolved into a bundle
// entry; deployment continues unless every pairing is dropped (spec §4.7:
// "Pairings whose planned mount cannot be resolved are skipped with a
// warning, not fatal").
type warning struct {
	PairingID string
	Reason    string
}

// BuildResult is the assembled bundle plus its deterministic hash and any
// non-fatal warnings encountered while resolving pairings.
type BuildResult struct {
	Bundle   map[string]interface{}
	Hash     string
	Warnings []string
}

// buildBundle assembles the deployment bundle for venueID/gatewayID. mqttBroker
// is the literal broker URL to embed; callers needing an export use
// exportBrokerPlaceholder instead of the configured broker.
func buildBundle(deploymentID string, venue *store.Venue, gatewayID string, lidars []LidarEntry, fr frame.Result, mqttBroker string) map[string]interface{} {
	lidarList := make([]interface{}, 0, len(lidars))
	for _, l := range lidars {
		lidarList = append(lidarList, map[string]interface{}{
			"lidarId": l.LidarID,
			"ip":      l.IP,
			"model": map[string]interface{}{
				"label":    l.Model.Label,
				"hfov":     l.Model.HFOVDeg,
				"vfov":     l.Model.VFOVDeg,
				"range":    l.Model.RangeM,
				"domeMode": l.Model.DomeMode,
			},
			"extrinsics": map[string]interface{}{
				"x_m":       l.Mount.X,
				"y_m":       l.Mount.Y,
				"z_m":       l.Mount.Z,
				"yaw_deg":   l.Mount.YawDeg,
				"pitch_deg": 0,
				"roll_deg":  0,
			},
			"dwgCoordinates": map[string]interface{}{
				"x_m": l.Mount.DWGX,
				"z_m": l.Mount.DWGZ,
			},
		})
	}

	var roiVertices interface{}
	if len(fr.ROIVertices) > 0 {
		vs := make([]interface{}, 0, len(fr.ROIVertices))
		for _, v := range fr.ROIVertices {
			vs = append(vs, map[string]interface{}{"x_m": v.X, "z_m": v.Y})
		}
		roiVertices = vs
	}

	ceilingY := venue.HeightM

	return map[string]interface{}{
		"deploymentId": deploymentID,
		"gatewayId":    gatewayID,
		"venueId":      venue.ID,
		"mqtt": map[string]interface{}{
			"broker": mqttBroker,
			"topic":  fmt.Sprintf("hyperspace/trajectories/%s", gatewayID),
			"qos":    1,
		},
		"lidars": lidarList,
		"coordinateFrame": map[string]interface{}{
			"origin":    "ROI SW corner at floor level",
			"roiOffset": map[string]interface{}{"x": fr.Offset.X, "z": fr.Offset.Z},
			"axis":      "X-East, Y-Up, Z-North",
			"units":     "meters",
		},
		"venueBounds": map[string]interface{}{
			"width":    fr.VenueWidth,
			"depth":    fr.VenueDepth,
			"minX":     0,
			"maxX":     fr.VenueWidth,
			"minZ":     0,
			"maxZ":     fr.VenueDepth,
			"floorY":   0,
			"ceilingY": ceilingY,
		},
		"roiVertices": roiVertices,
		"operationalParams": map[string]interface{}{
			"groundPlaneY":        0,
			"ceilingY":            ceilingY,
			"minDetectionHeight":  minDetectionHeightM,
			"maxDetectionHeight":  maxDetectionHeightM,
			"publishRateHz":       publishRateHz,
		},
	}
}

// hashBundle computes bundleHash per spec §4.7: the first 16 hex characters
// of the SHA-256 digest of the bundle's JSON serialization with keys sorted
// lexicographically at every level. encoding/json already sorts the keys
// of any map[string]interface{} when marshaling, so building the bundle out
// of plain maps (rather than structs with field-declaration order) makes
// this invariant automatic rather than something a caller must remember to
// re-sort.
func hashBundle(bundle map[string]interface{}) (string, error) {
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshal bundle for hash: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])[:16], nil
}
