// Command adsb-server serves a synthetic dump1090-style aircraft.json
// endpoint on its own, for exercising ADS-B scrapers without running a
// full broadcast session.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/dragonsim/core"
	"github.com/signalsfoundry/dragonsim/internal/adsbweb"
	"github.com/signalsfoundry/dragonsim/internal/logging"
	"github.com/signalsfoundry/dragonsim/internal/observability"
)

func main() {
	envLoaded := godotenv.Load() == nil

	addr := flag.String("addr", envOr("DRAGONSIM_ADSB_ADDR", ":8080"),
		"address for the aircraft.json endpoint")
	fleetSize := flag.Int("fleet", 0, "number of aircraft (0 uses the profile or default)")
	opsAddr := flag.String("ops-addr", envOr("DRAGONSIM_OPS_ADDR", ":9091"),
		"address for /healthz and /metrics (empty disables)")
	profilePath := flag.String("profile", envOr("DRAGONSIM_PROFILE", ""),
		"path to a JSON operating profile")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()
	if envLoaded {
		log.Info(ctx, "loaded configuration from .env file")
	}

	prof := core.DefaultProfile()
	if *profilePath != "" {
		f, err := os.Open(*profilePath)
		if err != nil {
			log.Error(ctx, "open profile failed", logging.String("path", *profilePath), logging.Err(err))
			os.Exit(1)
		}
		prof, err = core.LoadProfile(f)
		f.Close()
		if err != nil {
			log.Error(ctx, "load profile failed", logging.String("path", *profilePath), logging.Err(err))
			os.Exit(1)
		}
	}
	fleetCfg := prof.Fleet
	if *fleetSize > 0 {
		fleetCfg.Count = *fleetSize
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	collector, err := observability.NewBroadcastCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	fleet := core.NewFleet(fleetCfg)
	collector.SetFleetSize(fleet.Size())

	srv := &http.Server{
		Addr:    *addr,
		Handler: adsbweb.New(fleet, log).Routes(),
	}

	var opsSrv *http.Server
	if *opsAddr != "" {
		opsSrv = &http.Server{
			Addr:    *opsAddr,
			Handler: adsbweb.OpsRoutes(collector.Handler()),
		}
		go func() {
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn(context.Background(), "ops endpoint exited", logging.Err(err))
			}
		}()
		log.Info(ctx, "serving ops endpoint", logging.String("addr", *opsAddr))
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info(ctx, "serving aircraft snapshots",
		logging.String("addr", *addr),
		logging.Int("fleet", fleet.Size()),
	)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server exited", logging.Err(err))
			os.Exit(1)
		}
	case <-runCtx.Done():
		log.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "server shutdown failed", logging.Err(err))
	}
	if opsSrv != nil {
		_ = opsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
