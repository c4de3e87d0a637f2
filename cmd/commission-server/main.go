// Command commission-server runs the edge commissioning orchestrator and
// auto-placement solver front end (spec §1): one HTTP server over the
// mesh directory, point-cloud relay, sensor-address coordinator,
// deployment engine, and placement facade, backed by a SQLite store.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hyperspacefleet/commission-core/internal/api"
	"github.com/hyperspacefleet/commission-core/internal/config"
	"github.com/hyperspacefleet/commission-core/internal/deployment"
	"github.com/hyperspacefleet/commission-core/internal/edgerpc"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/hyperspacefleet/commission-core/internal/meshdirectory"
	"github.com/hyperspacefleet/commission-core/internal/placement"
	"github.com/hyperspacefleet/commission-core/internal/pointcloud"
	"github.com/hyperspacefleet/commission-core/internal/procexec"
	"github.com/hyperspacefleet/commission-core/internal/sensoraddress"
	"github.com/hyperspacefleet/commission-core/internal/store"
	"github.com/hyperspacefleet/commission-core/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "commission.db", "Path to the SQLite database file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("commission-server %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	log.Printf("starting commission-server %s (%s)", version.Version, version.GitSHA)

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	venues := store.NewVenueStore(db)
	overrides := store.NewGatewayOverrideStore(db)
	models := store.NewSensorModelStore(db)
	mounts := store.NewPlannedMountStore(db)
	rois := store.NewRegionOfInterestStore(db)
	pairings := store.NewPairingStore(db)
	sensors := store.NewCommissionedSensorStore(db)
	records := store.NewDeploymentRecordStore(db)
	runs := store.NewPlacementRunStore(db)

	snap := config.Current()

	directory := meshdirectory.New(
		procexec.NewRealCommandBuilder(),
		snap.MeshStatusCommand,
		snap.HostnamePatterns,
		snap.GatewayTag,
		snap.Features.MockMesh,
		overrides,
	)

	httpClient := httputil.NewStandardClient(http.DefaultClient)
	edge := edgerpc.New(httpClient)
	relay := pointcloud.NewRelay(httpClient)
	coord := sensoraddress.New(edge, sensors)
	engine := deployment.New(venues, mounts, models, pairings, rois, records, directory, edge, func() string {
		return config.Current().MQTTBrokerURL
	})
	facade := placement.New(mounts, runs, pairings, edge, func() string {
		return config.Current().SolverURL
	}, func() bool {
		return config.Current().Features.Solver
	})

	server := api.NewServer(directory, edge, relay, coord, engine, facade, venues, models, mounts, rois, pairings, sensors, records, db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Println("reloading configuration...")
				config.Reload()
				directory.Invalidate()
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx, *listen); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
		log.Println("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Println("graceful shutdown complete")
}
