// Command torsionscan-api runs the stateless HTTP driver facade (spec.md
// §4.G, §6): a JSON/HTTP wrapper that lets a remote orchestrator advance a
// dihedral scan one batch of results at a time, without hosting the
// optimizer engine itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/api/rest"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/config"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion  = flag.Bool("version", false, "show version and exit")
		host         = flag.String("host", "", "driver facade host (overrides env)")
		port         = flag.Int("port", 0, "driver facade port (overrides env)")
		metricsAddr  = flag.String("metrics-addr", "", "separate listener address for /metrics (overrides env)")
		jwtSecret    = flag.String("jwt-secret", "", "JWT signing secret; enables auth when non-empty")
		rateLimitQPS = flag.Float64("rate-limit-qps", 0, "requests/sec per client (overrides env; 0 keeps env/default)")
		rateLimitBurst = flag.Int("rate-limit-burst", 0, "burst size per client (overrides env; 0 keeps env/default)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("torsionscan-api version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *jwtSecret != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = *jwtSecret
	}
	if *rateLimitQPS > 0 {
		cfg.RateLimit.RequestsPerSec = *rateLimitQPS
	}
	if *rateLimitBurst > 0 {
		cfg.RateLimit.Burst = *rateLimitBurst
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewDefaultLogger()
	metrics := observability.NewMetrics()

	server := rest.NewServer(rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		MetricsAddr: cfg.Server.MetricsAddr,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Auth.Enabled,
			JWTSecret:   cfg.Auth.JWTSecret,
			PublicPaths: []string{"/v1/health"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerSec: cfg.RateLimit.RequestsPerSec,
			Burst:          cfg.RateLimit.Burst,
			PerIP:          cfg.RateLimit.PerIP,
		},
	}, logger, metrics)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Infof("torsionscan-api v%s (commit %s) listening on %s", version, commit, cfg.Server.Address())

	select {
	case sig := <-sigChan:
		logger.Infof("received signal %v, shutting down", sig)
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Errorf("error stopping server: %v", err)
	}

	logger.Info("torsionscan-api stopped")
}
