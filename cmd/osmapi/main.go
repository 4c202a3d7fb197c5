package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/osmapi/pkg/core"
	"github.com/NERVsystems/osmapi/pkg/monitoring"
	"github.com/NERVsystems/osmapi/pkg/osm"
	"github.com/NERVsystems/osmapi/pkg/tracing"
	ver "github.com/NERVsystems/osmapi/pkg/version"
)

// Environment variables read at startup. Flags win over the environment.
const (
	envHost     = "OPENSTREETMAP_HOST"
	envUser     = "OPENSTREETMAP_USER"
	envPassword = "OPENSTREETMAP_PASSWORD"
)

var (
	showVersionFlag bool
	debug           bool
	host            string
	apiVersion      string
	userAgent       string
	timeout         time.Duration

	// Rate limit
	rps   float64
	burst int

	// Monitoring flags
	monitoringAddr string
	probeInterval  time.Duration
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&host, "host", envOr(envHost, osm.DefaultHost), "API host, for example https://master.apis.dev.openstreetmap.org")
	flag.StringVar(&apiVersion, "api-version", osm.DefaultVersion, "API version path segment")
	flag.StringVar(&userAgent, "user-agent", osm.DefaultUserAgent, "User-Agent string for API requests")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for a single command")

	flag.Float64Var(&rps, "rps", 0, "Client rate limit in requests per second (0 disables)")
	flag.IntVar(&burst, "burst", 1, "Client rate limit burst size")

	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Metrics and health address for the watch command")
	flag.DurationVar(&probeInterval, "probe-interval", 30*time.Second, "Health probe interval for the watch command")

	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <command> [args]\n\nCommands:\n", os.Args[0])
	for _, cmd := range commands {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-28s %s\n", cmd.name+" "+cmd.args, cmd.help)
	}
	fmt.Fprintf(flag.CommandLine.Output(), "  %-28s %s\n\nFlags:\n", "watch", "serve metrics and health while probing the server")
	flag.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	if showVersionFlag {
		fmt.Println(ver.String())
		return
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	opts := []osm.Option{
		osm.WithLogger(logger),
		osm.WithVersion(apiVersion),
		osm.WithUserAgent(userAgent),
		osm.WithHooks(metrics.Hooks()),
	}
	if rps > 0 {
		opts = append(opts, osm.WithRateLimit(rps, burst))
	}
	client := osm.NewClient(host, credentialsFromEnv(), opts...)

	if flag.Arg(0) == "watch" {
		if err := watch(ctx, client, logger); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := run(cmdCtx, client, flag.Args(), os.Stdout); err != nil {
		logger.Error("command failed", "code", core.CodeOf(err), "error", err)
		os.Exit(1)
	}
}

func credentialsFromEnv() core.Credentials {
	user := os.Getenv(envUser)
	if user == "" {
		return core.NoCredentials()
	}
	return core.BasicAuth(user, os.Getenv(envPassword))
}

// watch serves Prometheus metrics and health endpoints while probing the
// API server until ctx is cancelled
func watch(ctx context.Context, client *osm.Client, logger *slog.Logger) error {
	healthChecker := monitoring.NewHealthChecker("osmapi")
	monitor := monitoring.NewMonitor(client.Host(), healthChecker, client.CheckHealth, probeInterval, logger)
	go monitor.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthChecker.HealthHandler())
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", healthChecker.LivenessHandler())

	srv := &http.Server{
		Addr:              monitoringAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}()

	logger.Info("starting monitoring server",
		"addr", monitoringAddr,
		"host", client.Host(),
		"probe_interval", probeInterval)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("monitoring server stopped")
	return nil
}
