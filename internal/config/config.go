// Package config loads process configuration from the environment into an
// immutable Snapshot, following the teacher's approach of treating tuning
// values as a swappable value rather than a shared mutable struct (spec
// Design Notes: "immutable configuration snapshot obtained via atomic
// swap").
package config

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Snapshot is the full set of environment-derived configuration values. It
// is never mutated in place; Reload() builds a new Snapshot and swaps the
// pointer held by the package-level current value.
type Snapshot struct {
	EdgePort   int
	EdgeWSPort int

	// HostnamePatterns is the substring list used by the mesh directory to
	// filter peers to edge gateways (spec §4.1).
	HostnamePatterns []string

	// GatewayTag is an additional mesh-peer tag that, if present, also
	// qualifies a peer as an edge gateway (spec §4.1, "OR presence of a
	// configured tag").
	GatewayTag string

	SolverURL     string
	MQTTBrokerURL string

	// MeshStatusCommand is the argv used to invoke the mesh-VPN status
	// tool (spec §4.1: "an external mesh-VPN status command").
	MeshStatusCommand []string

	Features FeatureFlags
}

// FeatureFlags holds the feature switches. PCLRelay gates the point-cloud
// routes, which answer 404 when it is off; MockMesh and Solver select an
// internal dispatch (mock vs. real mesh status, external solver vs. greedy
// fallback) and do not gate any route.
type FeatureFlags struct {
	MockMesh bool
	Solver   bool
	PCLRelay bool
}

var current atomic.Pointer[Snapshot]

func init() {
	current.Store(FromEnv())
}

// Current returns the active configuration snapshot. Safe for concurrent
// use; every call may return a different pointer after Reload.
func Current() *Snapshot {
	return current.Load()
}

// Reload re-reads the environment and atomically installs a new Snapshot.
// Intended to be called from a SIGHUP handler so in-flight requests keep
// observing a consistent view for their whole duration.
func Reload() *Snapshot {
	s := FromEnv()
	current.Store(s)
	return s
}

// FromEnv builds a Snapshot from the process environment, applying the
// defaults named in spec §6.
func FromEnv() *Snapshot {
	return &Snapshot{
		EdgePort:          envInt("EDGE_PORT", 8080),
		EdgeWSPort:        envInt("EDGE_WS_PORT", 8081),
		HostnamePatterns:  envList("EDGE_HOSTNAME_PATTERNS"),
		GatewayTag:        os.Getenv("EDGE_GATEWAY_TAG"),
		SolverURL:         os.Getenv("SOLVER_URL"),
		MQTTBrokerURL:     envOr("MQTT_BROKER_URL", "mqtt://localhost:1883"),
		MeshStatusCommand: envCommand("MESH_STATUS_COMMAND", []string{"tailscale", "status", "--json"}),
		Features: FeatureFlags{
			MockMesh: envBool("FEATURE_MOCK_MESH", false),
			Solver:   envBool("FEATURE_SOLVER", true),
			PCLRelay: envBool("FEATURE_PCL_RELAY", true),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envCommand(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return def
	}
	return fields
}
