// Command dragonsim broadcasts synthetic drone-detection telemetry: CoT
// tracks over UDP multicast, Remote ID and FPV frames on a pub socket,
// broker publishes over NATS, and a direct TAK server feed. It exercises a
// detection stack end to end without any RF hardware on the air.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/dragonsim/core"
	"github.com/signalsfoundry/dragonsim/internal/adsbweb"
	"github.com/signalsfoundry/dragonsim/internal/broadcast"
	"github.com/signalsfoundry/dragonsim/internal/logging"
	"github.com/signalsfoundry/dragonsim/internal/observability"
	"github.com/signalsfoundry/dragonsim/internal/sysmon"
	"github.com/signalsfoundry/dragonsim/internal/transport"
	"github.com/signalsfoundry/dragonsim/model"
	"github.com/signalsfoundry/dragonsim/registry"
	"github.com/signalsfoundry/dragonsim/timectrl"
)

func main() {
	// A .env file is optional; the environment always wins over defaults.
	envLoaded := godotenv.Load() == nil

	scenarioName := flag.String("scenario", envOr("DRAGONSIM_SCENARIO", "complete"),
		"message sequence per tick: complete, fpv, mixed, flight, everything")
	interval := flag.Duration("interval", 2*time.Second, "pause between ticks")
	gap := flag.Duration("gap", 100*time.Millisecond,
		"pause between messages inside one tick (negative disables)")
	duration := flag.Duration("duration", 0, "total broadcast time (0 = run until interrupted)")
	accelerated := flag.Bool("accelerated", false, "run ticks back-to-back instead of real time")

	group := flag.String("multicast-group", envOr("DRAGONSIM_MULTICAST_GROUP", "224.0.0.1"),
		"multicast group for CoT and status datagrams")
	cotPort := flag.Int("cot-port", 6969, "UDP port for drone/pilot/home/FPV messages")
	statusPort := flag.Int("status-port", 6969, "UDP port for ground-station status messages")

	takHost := flag.String("tak-host", envOr("DRAGONSIM_TAK_HOST", "localhost"),
		"TAK server host (empty disables the TAK feed)")
	takPort := flag.Int("tak-port", 8087, "TAK server port")
	takProtocol := flag.String("tak-protocol", envOr("DRAGONSIM_TAK_PROTOCOL", "tcp"),
		"TAK transport: tcp or udp")

	natsURL := flag.String("nats-url", envOr("DRAGONSIM_NATS_URL", ""),
		"NATS server URL for broker publishes (empty disables)")
	baseTopic := flag.String("base-topic", envOr("DRAGONSIM_BASE_TOPIC", "wardragon"),
		"broker topic prefix")

	pubBind := flag.String("pub-bind", envOr("DRAGONSIM_PUB_BIND", ""),
		"bind address for the Remote ID / FPV pub socket (empty disables)")

	adsbAddr := flag.String("adsb-addr", envOr("DRAGONSIM_ADSB_ADDR", ""),
		"address for the ADS-B snapshot endpoint (everything scenario defaults to :8080)")
	adsbFleet := flag.Int("adsb-fleet", 0, "ADS-B fleet size (0 uses the profile or default)")
	opsAddr := flag.String("ops-addr", envOr("DRAGONSIM_OPS_ADDR", ":9090"),
		"address for /healthz and /metrics (empty disables)")

	profilePath := flag.String("profile", envOr("DRAGONSIM_PROFILE", ""),
		"path to a JSON operating profile")
	device := flag.String("device", envOr("DRAGONSIM_DEVICE", ""),
		"kit name reported in broker status messages")
	hostStats := flag.Bool("host-stats", false,
		"report real host stats in status messages instead of synthetic ones")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()
	if envLoaded {
		log.Info(ctx, "loaded configuration from .env file")
	}

	scenario, err := broadcast.ParseScenario(*scenarioName)
	if err != nil {
		log.Error(ctx, "invalid scenario", logging.Err(err))
		os.Exit(1)
	}
	if *takProtocol != "tcp" && *takProtocol != "udp" {
		log.Error(ctx, "invalid TAK protocol", logging.String("protocol", *takProtocol))
		os.Exit(1)
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
		log.Info(ctx, "loaded profile", logging.String("path", *profilePath))
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

	start := time.Now().UTC()

	reg := registry.New(prof.Serials, prof.CAAIDs)
	var status core.StatusSource
	if *hostStats {
		status = sysmon.NewHostMonitor()
	} else {
		status = sysmon.NewSyntheticMonitor(start)
	}
	gen := core.NewGenerator(core.GeneratorConfig{
		Area:      prof.Area,
		TimeScale: prof.TimeScale,
		Start:     start,
		Device:    *device,
	}, reg, status)

	poolSize := len(prof.Serials)
	if poolSize == 0 {
		poolSize = len(model.DefaultSerials)
	}
	first := reg.CurrentDrone()
	log.Info(ctx, "session identities ready",
		logging.String("uid", first.UID),
		logging.String("mac", first.MAC),
		logging.String("make", first.Make),
		logging.String("model", first.Model),
		logging.Int("pool", poolSize),
	)

	disp := transport.NewDispatcher(log)
	disp.Register(transport.NewUDPSender(broadcast.SenderCoT,
		net.JoinHostPort(*group, strconv.Itoa(*cotPort))))
	disp.Register(transport.NewUDPSender(broadcast.SenderStatus,
		net.JoinHostPort(*group, strconv.Itoa(*statusPort))))
	if *takHost != "" {
		takAddr := net.JoinHostPort(*takHost, strconv.Itoa(*takPort))
		if *takProtocol == "tcp" {
			disp.Register(transport.NewTCPSender(broadcast.SenderTAK, takAddr))
		} else {
			disp.Register(transport.NewUDPSender(broadcast.SenderTAK, takAddr))
		}
	}

	deps := broadcast.Deps{
		Source:     gen,
		Identities: reg,
		Dispatcher: disp,
		Metrics:    collector,
		Log:        log,
	}
	if *natsURL != "" {
		broker, err := transport.ConnectNATS(*natsURL, log)
		if err != nil {
			log.Error(ctx, "nats connect failed", logging.String("url", *natsURL), logging.Err(err))
			os.Exit(1)
		}
		deps.Broker = broker
	}
	if *pubBind != "" {
		pub, err := transport.ListenPubSocket("pubsock", *pubBind, log)
		if err != nil {
			log.Error(ctx, "pub socket bind failed", logging.String("addr", *pubBind), logging.Err(err))
			os.Exit(1)
		}
		deps.PubSocket = pub
		log.Info(ctx, "pub socket listening", logging.String("addr", pub.Addr().String()))
	}

	agent, err := broadcast.New(broadcast.Config{
		Scenario:   scenario,
		Interval:   *interval,
		MessageGap: *gap,
		BaseTopic:  *baseTopic,
	}, deps)
	if err != nil {
		log.Error(ctx, "broadcast agent setup failed", logging.Err(err))
		os.Exit(1)
	}

	// The everything scenario serves the ADS-B snapshot alongside the
	// broadcast loop, the way the detection apps expect to scrape it.
	dataAddr := *adsbAddr
	if dataAddr == "" && scenario == broadcast.ScenarioEverything {
		dataAddr = ":8080"
	}
	var adsbSrv *http.Server
	if dataAddr != "" {
		fleetCfg := prof.Fleet
		if *adsbFleet > 0 {
			fleetCfg.Count = *adsbFleet
		}
		fleet := core.NewFleet(fleetCfg)
		collector.SetFleetSize(fleet.Size())
		adsbSrv = serveHTTP(dataAddr, adsbweb.New(fleet, log).Routes(), "adsb endpoint", log)
	}

	var opsSrv *http.Server
	if *opsAddr != "" {
		opsSrv = serveHTTP(*opsAddr, adsbweb.OpsRoutes(collector.Handler()), "ops endpoint", log)
	}

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(start, *interval, mode)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting broadcast session",
		logging.String("scenario", string(scenario)),
		logging.String("interval", interval.String()),
		logging.String("multicast", net.JoinHostPort(*group, strconv.Itoa(*cotPort))),
		logging.String("duration", durationLabel(*duration)),
	)
	agent.Run(runCtx, tc, *duration)

	log.Info(ctx, "broadcast session complete")
	if err := agent.Close(); err != nil {
		log.Warn(ctx, "transport close failed", logging.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if adsbSrv != nil {
		_ = adsbSrv.Shutdown(shutdownCtx)
	}
	if opsSrv != nil {
		_ = opsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
}

// serveHTTP starts an HTTP listener in the background and returns the
// server for shutdown.
func serveHTTP(addr string, handler http.Handler, name string, log logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), name+" exited", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "serving "+name, logging.String("addr", addr))
	return srv
}

func durationLabel(d time.Duration) string {
	if d <= 0 {
		return "until interrupted"
	}
	return d.String()
}

// envOr returns the environment value for key, or def when unset, so .env
// files, the environment, and the command line compose in that order.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
