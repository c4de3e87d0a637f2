// Package meshdirectory implements the mesh directory (spec C1): it turns
// the opaque JSON emitted by an external mesh-VPN status command into the
// fleet's list of edge gateways, merges in operator-assigned display names,
// and gates RPC calls on a gateway actually being online.
package meshdirectory

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/monitoring"
	"github.com/hyperspacefleet/commission-core/internal/procexec"
	"github.com/hyperspacefleet/commission-core/internal/store"
)

// EdgeGateway is a mesh-discovered edge gateway (spec §3). DisplayName is
// the only field the core persists; everything else is an ephemeral
// refresh of the mesh directory.
type EdgeGateway struct {
	GatewayID    string
	HostnameHint string
	MeshAddress  string
	DisplayName  string
	Online       bool
	LastSeenTS   int64
}

// cacheTTL bounds how long a directory listing is reused before the status
// command is invoked again. Kept short (spec Design Notes: "ambient
// concerns... observability") so a gateway coming online is reflected
// promptly without shelling out on every single request.
const cacheTTL = 10 * time.Second

// meshPeer mirrors the subset of the mesh-VPN status command's JSON output
// this component relies on (spec §4.1: "opaque JSON document listing peers
// with hostname, addresses[], online, tags").
type meshPeer struct {
	Hostname  string   `json:"hostname"`
	Addresses []string `json:"addresses"`
	Online    bool     `json:"online"`
	Tags      []string `json:"tags"`
	ID        string   `json:"id"`
}

type meshStatus struct {
	Peer map[string]meshPeer `json:"peer"`
}

// Directory is the C1 mesh directory. It is safe for concurrent use.
type Directory struct {
	builder          procexec.CommandBuilder
	command          []string
	hostnamePatterns []string
	gatewayTag       string
	mockFallback     bool
	overrides        *store.GatewayOverrideStore

	mu        sync.Mutex
	cached    []EdgeGateway
	cachedAt  time.Time
}

// New creates a Directory that shells out via builder using command,
// filters peers per hostnamePatterns/gatewayTag, and merges display-name
// overrides from overrides. mockFallback mirrors spec §4.1's "fallback-mock
// flag".
func New(builder procexec.CommandBuilder, command []string, hostnamePatterns []string, gatewayTag string, mockFallback bool, overrides *store.GatewayOverrideStore) *Directory {
	return &Directory{
		builder:          builder,
		command:          command,
		hostnamePatterns: hostnamePatterns,
		gatewayTag:       gatewayTag,
		mockFallback:     mockFallback,
		overrides:        overrides,
	}
}

// ListGateways returns every edge gateway the mesh directory currently
// knows about, with persisted display-name overrides applied (spec §4.1).
func (d *Directory) ListGateways() ([]EdgeGateway, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && time.Since(d.cachedAt) < cacheTTL {
		return append([]EdgeGateway(nil), d.cached...), nil
	}

	gateways, err := d.refresh()
	if err != nil {
		return nil, err
	}

	d.cached = gateways
	d.cachedAt = time.Now()
	return append([]EdgeGateway(nil), gateways...), nil
}

// Resolve looks up a single gateway by ID, used as a gate before any RPC
// call (spec §4.1). Offline is a distinct outcome from NotFound: it means
// the gateway is known but unreachable right now.
func (d *Directory) Resolve(gatewayID string) (*EdgeGateway, error) {
	gateways, err := d.ListGateways()
	if err != nil {
		return nil, err
	}
	for _, g := range gateways {
		if g.GatewayID == gatewayID {
			if !g.Online {
				return nil, apperr.New(apperr.KindGatewayOffline, "gateway %s is offline", gatewayID)
			}
			gw := g
			return &gw, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "gateway %s not found", gatewayID)
}

// RenameGateway upserts operator metadata for a gateway. It does not
// require the gateway to be online (spec §4.1) and invalidates the cached
// listing so the new display name is visible immediately.
func (d *Directory) RenameGateway(gatewayID, displayName, notes string) error {
	if err := d.overrides.Upsert(gatewayID, displayName, notes); err != nil {
		return err
	}
	d.invalidate()
	monitoring.Event("gateway.rename", gatewayID+" -> "+displayName)
	return nil
}

// Invalidate discards the cached listing, forcing the next ListGateways
// call to re-invoke the status command. Called by the SIGHUP handler in
// cmd/commission-server after a configuration reload.
func (d *Directory) Invalidate() {
	d.invalidate()
}

func (d *Directory) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}

func (d *Directory) refresh() ([]EdgeGateway, error) {
	raw, err := d.runStatusCommand()
	if err != nil {
		if d.mockFallback {
			monitoring.Logf("mesh directory: status command unavailable, using mock fallback: %v", err)
			return d.applyOverrides(mockGateways())
		}
		return nil, apperr.Wrap(apperr.KindDirectoryUnavailable, err, "mesh status command failed")
	}

	var status meshStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		if d.mockFallback {
			monitoring.Logf("mesh directory: status output unparsable, using mock fallback: %v", err)
			return d.applyOverrides(mockGateways())
		}
		return nil, apperr.Wrap(apperr.KindDirectoryUnavailable, err, "mesh status output unparsable")
	}

	var gateways []EdgeGateway
	now := time.Now().UnixNano()
	for _, peer := range status.Peer {
		if !d.isGateway(peer) {
			continue
		}
		gw := EdgeGateway{
			GatewayID:    peer.ID,
			HostnameHint: peer.Hostname,
			Online:       peer.Online,
			LastSeenTS:   now,
		}
		if len(peer.Addresses) > 0 {
			gw.MeshAddress = peer.Addresses[0]
		}
		gateways = append(gateways, gw)
	}

	return d.applyOverrides(gateways)
}

func (d *Directory) runStatusCommand() ([]byte, error) {
	if len(d.command) == 0 {
		return nil, apperr.New(apperr.KindDirectoryUnavailable, "no mesh status command configured")
	}
	executor := d.builder.BuildCommand(d.command[0], d.command[1:]...)
	return executor.Run()
}

func (d *Directory) isGateway(peer meshPeer) bool {
	for _, pattern := range d.hostnamePatterns {
		if pattern != "" && strings.Contains(peer.Hostname, pattern) {
			return true
		}
	}
	if d.gatewayTag != "" {
		for _, tag := range peer.Tags {
			if tag == d.gatewayTag {
				return true
			}
		}
	}
	return false
}

func (d *Directory) applyOverrides(gateways []EdgeGateway) ([]EdgeGateway, error) {
	overrides, err := d.overrides.All()
	if err != nil {
		return nil, err
	}
	for i := range gateways {
		if o, ok := overrides[gateways[i].GatewayID]; ok {
			gateways[i].DisplayName = o.DisplayName
		}
	}
	return gateways, nil
}

// mockGateways is the deterministic two-gateway fallback used when the
// directory command is unavailable and the mock-fallback feature is on
// (spec §4.1).
func mockGateways() []EdgeGateway {
	now := time.Now().UnixNano()
	return []EdgeGateway{
		{GatewayID: "mock-gateway-1", HostnameHint: "edge-mock-1", MeshAddress: "100.64.0.1", Online: true, LastSeenTS: now},
		{GatewayID: "mock-gateway-2", HostnameHint: "edge-mock-2", MeshAddress: "100.64.0.2", Online: true, LastSeenTS: now},
	}
}
