// Package api is the HTTP surface over every commissioning component (spec
// §6): gateway discovery, point-cloud relay, pairings, deployment,
// commissioned-sensor address book, placement/autoplace/simulate, and the
// sensor model catalog. One ServeMux, one logging middleware, one error
// translation point (internal/httputil.WriteAppError).
package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/config"
	"github.com/hyperspacefleet/commission-core/internal/deployment"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/meshdirectory"
	"github.com/hyperspacefleet/commission-core/internal/placement"
	"github.com/hyperspacefleet/commission-core/internal/pointcloud"
	"github.com/hyperspacefleet/commission-core/internal/sensoraddress"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"tailscale.com/tsweb"
)

// ANSI escape codes for request log coloring.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server wires every commissioning component to its HTTP route group.
type Server struct {
	directory *meshdirectory.Directory
	edge      *edgerpc.Client
	relay     *pointcloud.Relay
	coord     *sensoraddress.Coordinator
	engine    *deployment.Engine
	placement *placement.Facade

	venues   *store.VenueStore
	models   *store.SensorModelStore
	mounts   *store.PlannedMountStore
	rois     *store.RegionOfInterestStore
	pairings *store.PairingStore
	sensors  *store.CommissionedSensorStore
	records  *store.DeploymentRecordStore

	db *store.DB

	// mux holds the HTTP handlers; storing it here means a caller that
	// obtains the mux via ServeMux() and registers additional admin routes
	// keeps those routes when Start runs the server.
	mux *http.ServeMux
}

// NewServer creates a Server wiring every component a route handler needs.
func NewServer(
	directory *meshdirectory.Directory,
	edge *edgerpc.Client,
	relay *pointcloud.Relay,
	coord *sensoraddress.Coordinator,
	engine *deployment.Engine,
	facade *placement.Facade,
	venues *store.VenueStore,
	models *store.SensorModelStore,
	mounts *store.PlannedMountStore,
	rois *store.RegionOfInterestStore,
	pairings *store.PairingStore,
	sensors *store.CommissionedSensorStore,
	records *store.DeploymentRecordStore,
	db *store.DB,
) *Server {
	return &Server{
		directory: directory, edge: edge, relay: relay, coord: coord, engine: engine, placement: facade,
		venues: venues, models: models, mounts: mounts, rois: rois, pairings: pairings, sensors: sensors, records: records,
		db: db,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		portPrefix := ""
		if host := r.Host; host != "" {
			if _, p, err := net.SplitHostPort(host); err == nil {
				portPrefix = ":" + p
			}
		}
		log.Printf(
			"[%s] %s %s%s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, portPrefix, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux builds (once) and returns the route table (spec §6). Every
// route is registered unconditionally; the point-cloud handlers check the
// PCLRelay feature flag themselves and answer 404 when it is off.
func (s *Server) ServeMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("GET /edge/scan", s.listGateways)
	mux.HandleFunc("PUT /edge/{id}/name", s.renameGateway)
	mux.HandleFunc("GET /edge/{id}/inventory", s.gatewayInventory)
	mux.HandleFunc("POST /edge/{id}/scan-lidars", s.scanLidars)
	mux.HandleFunc("GET /edge/{id}/status", s.gatewayStatus)
	mux.HandleFunc("POST /edge/{id}/deploy", s.deployGateway)

	mux.HandleFunc("GET /export-config", s.exportConfig)
	mux.HandleFunc("GET /deploy-history", s.deployHistory)

	mux.HandleFunc("GET /pairings", s.listPairings)
	mux.HandleFunc("POST /pairings", s.upsertPairing)
	mux.HandleFunc("DELETE /pairings", s.deletePairing)
	mux.HandleFunc("DELETE /pairings/cleanup-orphaned", s.cleanupOrphanedPairings)

	mux.HandleFunc("GET /commissioned-lidars", s.listCommissionedSensors)
	mux.HandleFunc("POST /commissioned-lidars", s.assignCommissionedSensor)
	mux.HandleFunc("DELETE /commissioned-lidars", s.deleteCommissionedSensor)
	mux.HandleFunc("GET /next-available-ip", s.nextAvailableIP)

	mux.HandleFunc("GET /placements", s.listPlacements)
	mux.HandleFunc("POST /autoplace", s.autoPlace)
	mux.HandleFunc("POST /simulate", s.simulateCoverage)

	mux.HandleFunc("GET /models", s.listModels)
	mux.HandleFunc("POST /models", s.createModel)
	mux.HandleFunc("PUT /models", s.updateModel)

	mux.HandleFunc("GET /pcl/snapshot", s.pclSnapshot)
	mux.HandleFunc("POST /pcl/snapshot", s.pclSnapshot)
	mux.HandleFunc("GET /ws/pcl", s.pclStream)

	s.attachAdminRoutes(mux)

	s.mux = mux
	return s.mux
}

// attachAdminRoutes mounts operator debug endpoints under /debug/ via
// tsweb.Debugger, the same admin-route pattern the teacher's database layer
// used for its own db-stats/tailsql routes. The commissioning schema has no
// free-text SQL console need, so only a feature-flag snapshot and a schema
// row-count summary are exposed; tsweb still earns its keep by providing
// the wrapping (and, transitively, the expvar/pprof routes it registers
// on the debug mux).
func (s *Server) attachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.Handle("feature-flags", "Active feature flag snapshot", http.HandlerFunc(s.handleFeatureFlags))
	debug.Handle("db-stats", "Commissioning schema row counts", http.HandlerFunc(s.handleDBStats))
}

// healthz serves GET /healthz (spec §6 expansion): a plain liveness check.
// The teacher wires tailscale.com/tsweb for this on a tsnet node; this
// module does not run as one, so a handler over the stdlib is the
// equivalent here (see DESIGN.md).
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleFeatureFlags(w http.ResponseWriter, r *http.Request) {
	snap := config.Current()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"mockMesh": snap.Features.MockMesh,
		"solver":   snap.Features.Solver,
		"pclRelay": snap.Features.PCLRelay,
	})
}

func (s *Server) handleDBStats(w http.ResponseWriter, r *http.Request) {
	tables := []string{
		"venues", "gateway_overrides", "sensor_models", "planned_mounts",
		"regions_of_interest", "pairings", "commissioned_sensors",
		"deployment_records", "placement_runs",
	}
	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&n); err != nil {
			counts[t] = -1
			continue
		}
		counts[t] = n
	}
	httputil.WriteJSONOK(w, counts)
}

// Start launches the HTTP server and blocks until ctx is done or the server
// returns an error.
func (s *Server) Start(ctx context.Context, listen string) error {
	server := &http.Server{
		Addr:    listen,
		Handler: LoggingMiddleware(s.ServeMux()),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		return nil
	case err := <-errCh:
		return err
	}
}
