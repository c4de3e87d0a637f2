package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/frame"
	"github.com/hyperspacefleet/commission-core/internal/meshdirectory"
	"github.com/hyperspacefleet/commission-core/internal/monitoring"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// applyDeadline is the fixed deadline for the gateway's config-apply call
// (spec §4.7 step 2: "POST bundle to gateway's apply endpoint via C2 with
// 15 s deadline").
const applyDeadline = 15 * time.Second

// ApplyResult is returned to the caller on a successful apply.
type ApplyResult struct {
	DeploymentID      string
	BundleHash        string
	AppliedBundleHash string
}

// Engine assembles, hashes, applies, and exports deployment bundles.
type Engine struct {
	venues    *store.VenueStore
	mounts    *store.PlannedMountStore
	models    *store.SensorModelStore
	pairings  *store.PairingStore
	rois      *store.RegionOfInterestStore
	records   *store.DeploymentRecordStore
	directory *meshdirectory.Directory
	edge      *edgerpc.Client
	mqttBroker func() string
}

// New creates an Engine. mqttBroker is called at bundle-build time (rather
// than captured once) so a config.Reload() is reflected in the next
// deployment without restarting the process.
func New(
	venues *store.VenueStore,
	mounts *store.PlannedMountStore,
	models *store.SensorModelStore,
	pairings *store.PairingStore,
	rois *store.RegionOfInterestStore,
	records *store.DeploymentRecordStore,
	directory *meshdirectory.Directory,
	edge *edgerpc.Client,
	mqttBroker func() string,
) *Engine {
	return &Engine{
		venues: venues, mounts: mounts, models: models, pairings: pairings,
		rois: rois, records: records, directory: directory, edge: edge, mqttBroker: mqttBroker,
	}
}

// assemble resolves a venue/gateway/layout's pairings into bundle-ready
// lidar entries, returning warnings for any pairing that could not be
// resolved rather than failing outright (spec §4.7).
func (e *Engine) assemble(venueID, gatewayID, layoutID string) (*store.Venue, []LidarEntry, frame.Result, []string, error) {
	venue, err := e.venues.Get(venueID)
	if err != nil {
		return nil, nil, frame.Result{}, nil, err
	}

	allMounts, err := e.mounts.ListByLayout(venueID, layoutID)
	if err != nil {
		return nil, nil, frame.Result{}, nil, err
	}
	mountsByID := make(map[string]*store.PlannedMount, len(allMounts))
	for _, m := range allMounts {
		mountsByID[m.ID] = m
	}

	roi, err := e.rois.Get(venueID, layoutID)
	if err != nil {
		return nil, nil, frame.Result{}, nil, err
	}
	fr := frame.Transform(venue, allMounts, roi)
	frameByMountID := make(map[string]frame.Mount, len(fr.Mounts))
	for _, m := range fr.Mounts {
		frameByMountID[m.ID] = m
	}

	pairings, err := e.pairings.List(venueID, gatewayID)
	if err != nil {
		return nil, nil, frame.Result{}, nil, err
	}

	var lidars []LidarEntry
	var warnings []string
	for _, p := range pairings {
		mount, ok := mountsByID[p.PlannedMountID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("pairing %s: planned mount %s not found", p.ID, p.PlannedMountID))
			continue
		}
		model, err := e.models.Get(mount.ModelID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("pairing %s: sensor model %s not found", p.ID, mount.ModelID))
			continue
		}
		fm, ok := frameByMountID[mount.ID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("pairing %s: mount %s missing from frame transform", p.ID, mount.ID))
			continue
		}
		lidars = append(lidars, LidarEntry{
			LidarID: p.ID,
			IP:      p.SensorAddress,
			Model:   model,
			Mount:   fm,
		})
	}

	return venue, lidars, fr, warnings, nil
}

// build assembles and hashes the bundle for venueID/gatewayID/layoutID
// using broker as the mqtt.broker value.
func (e *Engine) build(venueID, gatewayID, layoutID, broker string) (*BuildResult, error) {
	venue, lidars, fr, warnings, err := e.assemble(venueID, gatewayID, layoutID)
	if err != nil {
		return nil, err
	}
	if len(lidars) == 0 {
		return nil, apperr.New(apperr.KindBadRequest, "deployment for gateway %s has zero resolvable lidars", gatewayID)
	}

	deploymentID := uuid.New().String()
	bundle := buildBundle(deploymentID, venue, gatewayID, lidars, fr, broker)
	hash, err := hashBundle(bundle)
	if err != nil {
		return nil, err
	}
	return &BuildResult{Bundle: bundle, Hash: hash, Warnings: warnings}, nil
}

// Apply assembles, hashes, and pushes a bundle to gatewayID's edge gateway,
// writing a DeploymentRecord whether the gateway is unreachable, the apply
// fails, or it succeeds (spec §4.7 steps 1-4). A bundle that cannot be
// built (unknown venue, no resolvable lidars) writes no record.
func (e *Engine) Apply(ctx context.Context, venueID, gatewayID, layoutID string) (*ApplyResult, error) {
	built, err := e.build(venueID, gatewayID, layoutID, e.mqttBroker())
	if err != nil {
		return nil, err
	}
	for _, w := range built.Warnings {
		monitoring.Logf("deployment %s: %s", gatewayID, w)
	}

	bundleJSON, err := json.Marshal(built.Bundle)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle for storage: %w", err)
	}

	var gatewayResp struct {
		AppliedConfigHash string `json:"appliedConfigHash"`
	}
	gw, applyErr := e.directory.Resolve(gatewayID)
	if applyErr == nil {
		applyErr = e.edge.Call(ctx, "http://"+gw.MeshAddress, "/api/edge/config/apply", "POST", built.Bundle, applyDeadline, &gatewayResp)
	}

	record := &store.DeploymentRecord{
		ID:          uuid.New().String(),
		VenueID:     venueID,
		GatewayID:   gatewayID,
		BundleHash:  built.Hash,
		BundleJSON:  string(bundleJSON),
		CreatedAtNS: time.Now().UnixNano(),
	}
	if applyErr != nil {
		record.Status = store.DeploymentStatusFailed
		record.ErrorMessage = applyErr.Error()
		if insertErr := e.records.Insert(record); insertErr != nil {
			return nil, insertErr
		}
		return nil, applyErr
	}

	appliedHash := gatewayResp.AppliedConfigHash
	if appliedHash == "" {
		appliedHash = built.Hash
	}
	record.Status = store.DeploymentStatusApplied
	record.GatewayResponse = appliedHash
	if err := e.records.Insert(record); err != nil {
		return nil, err
	}

	return &ApplyResult{
		DeploymentID:      record.ID,
		BundleHash:        built.Hash,
		AppliedBundleHash: appliedHash,
	}, nil
}

// Export builds the bundle for offline handoff: mqtt.broker is replaced with
// a placeholder, nothing is sent to the gateway, and no DeploymentRecord is
// written (spec §4.7 "Export").
func (e *Engine) Export(venueID, gatewayID, layoutID string) (map[string]interface{}, error) {
	built, err := e.build(venueID, gatewayID, layoutID, exportBrokerPlaceholder)
	if err != nil {
		return nil, err
	}
	return built.Bundle, nil
}
