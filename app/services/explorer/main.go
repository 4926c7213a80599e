package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethernova/explorer/app/services/explorer/handlers"
	"github.com/ethernova/explorer/foundation/collector/database"
	"github.com/ethernova/explorer/foundation/collector/export"
	"github.com/ethernova/explorer/foundation/collector/nodeclient"
	"github.com/ethernova/explorer/foundation/collector/peer"
	"github.com/ethernova/explorer/foundation/collector/state"
	"github.com/ethernova/explorer/foundation/collector/worker"
	"github.com/ethernova/explorer/foundation/events"
	"github.com/ethernova/explorer/foundation/geo"
	"github.com/ethernova/explorer/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("EXPLORER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
		}
		Node struct {
			RPCURL     string        `conf:"default:http://127.0.0.1:8545"`
			RPCTimeout time.Duration `conf:"default:10s"`
			Source     string        `conf:"default:local-1"`
		}
		Collector struct {
			PollInterval time.Duration `conf:"default:15s"`
			OnlineWindow time.Duration `conf:"default:10m"`
			DBPath       string        `conf:"default:zarea/peers.db"`
		}
		Expansion struct {
			Enable        bool `conf:"default:false"`
			RateLimit     int  `conf:"default:30"`
			MaxCandidates int  `conf:"default:5000"`
		}
		Export struct {
			Enable          bool          `conf:"default:false"`
			Interval        time.Duration `conf:"default:30m"`
			Limit           int           `conf:"default:200"`
			OnlyOnline      bool          `conf:"default:true"`
			BootnodesPath   string        `conf:"default:zarea/bootnodes.txt"`
			StaticNodesPath string        `conf:"default:zarea/static-nodes.json"`
		}
		Geo struct {
			CountryDB string
			ASNDB     string
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "EXPLORER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Database Support

	log.Infow("startup", "status", "opening peer database", "path", cfg.Collector.DBPath)

	db, err := database.Open(cfg.Collector.DBPath)
	if err != nil {
		return fmt.Errorf("opening peer database: %w", err)
	}
	defer db.Close()

	// =========================================================================
	// GeoIP Support

	// The resolver degrades gracefully: a database that is not configured or
	// fails to open just produces empty lookups.
	resolver := geo.New(cfg.Geo.CountryDB, cfg.Geo.ASNDB)
	defer resolver.Close()

	log.Infow("startup", "status", "geoip", "country", resolver.HasCountry(), "asn", resolver.HasASN())

	// =========================================================================
	// Node RPC Support

	log.Infow("startup", "status", "dialing node rpc", "endpoint", cfg.Node.RPCURL)

	client, err := nodeclient.Dial(context.Background(), cfg.Node.RPCURL)
	if err != nil {
		return fmt.Errorf("dialing node rpc: %w", err)
	}
	defer client.Close()

	// =========================================================================
	// Collector Support

	// The collector packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the collector and manages the peer tables
	// and provides an API for application support.
	st := state.New(state.Config{
		DB:     db,
		Client: client,
		Geo: func(host string) peer.Geo {
			info := resolver.Lookup(host)
			return peer.Geo{
				CountryCode: info.CountryCode,
				CountryName: info.CountryName,
				ASNNumber:   info.ASNNumber,
				ASNOrg:      info.ASNOrg,
			}
		},
		Source:       cfg.Node.Source,
		OnlineWindow: cfg.Collector.OnlineWindow,
		RPCTimeout:   cfg.Node.RPCTimeout,
		Expansion: state.ExpansionConfig{
			Enabled:       cfg.Expansion.Enable,
			RateLimit:     cfg.Expansion.RateLimit,
			MaxCandidates: cfg.Expansion.MaxCandidates,
		},
		Export: state.ExportConfig{
			Enabled:  cfg.Export.Enable,
			Interval: cfg.Export.Interval,
			Files: export.Config{
				Limit:           cfg.Export.Limit,
				OnlyOnline:      cfg.Export.OnlyOnline,
				BootnodesPath:   cfg.Export.BootnodesPath,
				StaticNodesPath: cfg.Export.StaticNodesPath,
			},
		},
		EvHandler: ev,
	})
	defer st.Shutdown()

	// The worker package implements the periodic poll tick and registers
	// itself with the state.
	worker.Run(st, cfg.Collector.PollInterval, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
