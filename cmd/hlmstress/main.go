package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/23skdu/hlm/internal/hlm"
	"github.com/23skdu/hlm/internal/logging"
	"github.com/23skdu/hlm/internal/workload"
)

func main() {
	envFile := flag.String("env", ".env", "Optional dotenv file with HLM_* and HLMSTRESS_* settings")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadEnv loads a dotenv file; a missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func run(ctx context.Context, envFile string) error {
	if err := loadEnv(envFile); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	hcfg, err := hlm.LoadConfig()
	if err != nil {
		return fmt.Errorf("hlm config: %w", err)
	}
	mgr, err := hlm.New(hcfg, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
		}()
	}

	logger.Info().
		Int("workers", cfg.Workload.Workers).
		Int("transactions", cfg.Workload.Transactions).
		Int("leaf_buckets", hcfg.LeafBuckets).
		Int("mid_shards", hcfg.MidShards).
		Msg("hlm stress starting")

	runner, err := workload.NewRunner(mgr, cfg.Workload, logger)
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Float64("tx_per_sec", float64(res.Transactions)/res.Elapsed.Seconds()).
		Int("mid_locks", mgr.MidCount()).
		Msg("no lost updates")
	return nil
}

//nolint:gocritic // Logger passed by value for simplicity
func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
