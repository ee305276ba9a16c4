package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // bound to localhost only
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/config"
	"github.com/airsportlive/airsports-calculator-go/pkg/db/postgres"
	"github.com/airsportlive/airsports-calculator-go/pkg/ingest"
	"github.com/airsportlive/airsports-calculator-go/pkg/live"
	"github.com/airsportlive/airsports-calculator-go/pkg/manager"
	"github.com/airsportlive/airsports-calculator-go/pkg/processing"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/store"
	"github.com/airsportlive/airsports-calculator-go/pkg/rstate"
	"github.com/airsportlive/airsports-calculator-go/pkg/tracker"
	"github.com/airsportlive/airsports-calculator-go/pkg/utils"
)

//nolint:funlen // flag declarations
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the calculator server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVarP(&config.WebsocketAddr,
		"listen-addr",
		"a",
		"localhost:8090",
		"listen address for the websocket hub and the ingest push endpoint")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.CalculationDelay,
		"calculation-delay",
		"0s",
		"delay between device time and score calculation")
	cmd.Flags().StringVar(&config.ContestantRefresh,
		"contestant-refresh",
		"15s",
		"interval for reloading contestant data")
	cmd.Flags().StringVar(&config.TrackerRequestTimeout,
		"tracker-request-timeout",
		"30s",
		"timeout for a single tracker API request")
	cmd.Flags().BoolVar(&config.LiveProcessing,
		"live",
		true,
		"process positions as they arrive")
	cmd.Flags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"60s",
		"max duration to wait for backing services at startup")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func parseDuration(value string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultVal
}

//nolint:funlen,cyclop // sequential startup wiring
func startServer() error {
	var logger *log.Logger
	var sqlLogger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.New(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // localhost only
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort), nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if err := waitForRequiredServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.InitWithURL(ctx, config.DB,
		postgres.WithTracer(sqlLogger))
	if err != nil {
		log.Error("could not connect to database", log.ErrorField(err))
		return err
	}
	defer pool.Close()
	dbStore := store.New(pool)

	state, err := rstate.NewStore(config.RedisURL)
	if err != nil {
		log.Error("could not connect to redis", log.ErrorField(err))
		return err
	}
	//nolint:errcheck // shutting down
	defer state.Close()

	trackerClient := tracker.NewClient(config.TrackerBaseURL,
		tracker.WithRequestTimeout(
			parseDuration(config.TrackerRequestTimeout, 30*time.Second)))

	hub := live.NewHub()
	defer hub.Close()
	if config.NatsURL != "" {
		conn, err := nats.Connect(config.NatsURL)
		if err != nil {
			log.Error("could not connect to NATS", log.ErrorField(err))
			return err
		}
		defer conn.Close()
		relay, err := live.NewNatsRelay(conn, hub)
		if err != nil {
			log.Error("could not start NATS relay", log.ErrorField(err))
			return err
		}
		defer relay.Close()
	}

	mgr := manager.New(state, trackerClient, dbStore, hub,
		manager.WithLiveness(state),
		manager.WithProcessorOptions(
			processing.WithCalculationDelay(
				parseDuration(config.CalculationDelay, 0)),
			processing.WithRefreshInterval(
				parseDuration(config.ContestantRefresh, 15*time.Second)),
			processing.WithLiveProcessing(config.LiveProcessing),
		))
	defer mgr.Shutdown()

	ingestService := ingest.NewService(dbStore, state)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/positions", ingestService.Handler())
	mux.HandleFunc("GET /ws", hub.Handler())
	httpServer := &http.Server{
		Addr:              config.WebsocketAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Server listening", log.String("addr", config.WebsocketAddr))
		if err := httpServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("http server stopped", log.ErrorField(err))
		}
	}()

	spawner := newSpawner(dbStore, hub, mgr)
	go spawner.run(ctx)

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	//nolint:errcheck // shutting down
	httpServer.Shutdown(shutdownCtx)
	log.Info("Server terminated")
	return nil
}

func waitForRequiredServices() error {
	timeout := parseDuration(config.WaitForServices, 60*time.Second)
	for _, raw := range []string{config.DB, config.RedisURL} {
		addr, err := hostPort(raw)
		if err != nil {
			return err
		}
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			return err
		}
	}
	return nil
}

func hostPort(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
