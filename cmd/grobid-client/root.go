package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tei-extract/grobid-client/pkg/batch"
	"github.com/tei-extract/grobid-client/pkg/cache"
	"github.com/tei-extract/grobid-client/pkg/client"
	"github.com/tei-extract/grobid-client/pkg/config"
	"github.com/tei-extract/grobid-client/pkg/logging"
	"github.com/tei-extract/grobid-client/pkg/process"
	"github.com/tei-extract/grobid-client/pkg/writer"
)

var (
	cfgFile              string
	inputDir             string
	outputDir            string
	workerOverride       int
	generateIDs          bool
	consolidateHeader    bool
	consolidateCitations bool
	force                bool
	teiCoordinates       bool
	validate             bool
	verbose              bool
	pretty               bool
)

var rootCmd = &cobra.Command{
	Use:   "grobid-client SERVICE",
	Short: "Batch client for GROBID document extraction services",
	Long: `grobid-client submits PDF documents under an input directory to a
GROBID server and persists the extracted TEI results to disk.

SERVICE is one of:
  processFulltextDocument   extract the full text body
  processHeaderDocument     extract header metadata
  processReferences         extract bibliographical references

Files are processed in bounded batches through a worker pool; a busy
server (503) makes the affected worker wait and resubmit while its
siblings keep going. Existing outputs are skipped unless --force is set.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./config.json)")
	rootCmd.Flags().StringVar(&inputDir, "input", "", "directory containing PDFs to process (required)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "directory for results (default: beside each source file)")
	rootCmd.Flags().IntVar(&workerOverride, "n", 0, "concurrency override for number_of_processes")
	rootCmd.Flags().BoolVar(&generateIDs, "generateIDs", false, "generate random xml:id on textual elements of the results")
	rootCmd.Flags().BoolVar(&consolidateHeader, "consolidate-header", false, "consolidate extracted header metadata")
	rootCmd.Flags().BoolVar(&consolidateCitations, "consolidate-citations", false, "consolidate extracted bibliographical references")
	rootCmd.Flags().BoolVar(&force, "force", false, "reprocess files whose output already exists")
	rootCmd.Flags().BoolVar(&teiCoordinates, "teiCoordinates", false, "add original PDF coordinates to extracted elements")
	rootCmd.Flags().BoolVar(&validate, "validate", false, "preflight-validate PDFs locally before submission")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable console log output")
}

func run(cmd *cobra.Command, args []string) error {
	service, err := client.ParseService(args[0])
	if err != nil {
		return err
	}
	if inputDir == "" {
		return fmt.Errorf("--input is required")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.Setup(logging.Config{Level: level, Pretty: pretty, Output: os.Stderr})

	if workerOverride > 0 {
		cfg.NumberOfProcesses = workerOverride
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", outputDir, err)
		}
	}

	if cfg.MetricsAddr != "" {
		startMetricsListener(cfg.MetricsAddr, logger)
	}

	c, err := client.New(client.Config{
		BaseURL: cfg.BaseURL(),
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Policy: client.RetryPolicy{
			Delay:             time.Duration(cfg.SleepTime) * time.Second,
			MaxAttempts:       cfg.RetryMaxAttempts,
			BackoffMultiplier: cfg.RetryBackoffMultiplier,
			MaxBackoff:        time.Duration(cfg.RetryMaxBackoffSeconds) * time.Second,
		},
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Fatal before any processing: a run never starts against a dead server.
	if err := waitForServer(ctx, c); err != nil {
		return fmt.Errorf("grobid server not reachable at %s: %w", cfg.BaseURL(), err)
	}

	proc, err := process.New(process.Config{
		Client:  c,
		Writer:  &writer.Writer{OutputDir: outputDir, Force: force},
		Cache:   setupCache(ctx, cfg, logger),
		Service: service,
		Options: client.Options{
			GenerateIDs:          generateIDs,
			ConsolidateHeader:    consolidateHeader,
			ConsolidateCitations: consolidateCitations,
			TEICoordinates:       teiCoordinates,
			CoordinateTypes:      cfg.Coordinates,
		},
		Validate: validate,
	})
	if err != nil {
		return err
	}

	sched, err := batch.NewScheduler(cfg.BatchSize, cfg.NumberOfProcesses)
	if err != nil {
		return err
	}

	summary, err := sched.Run(ctx, batch.NewDiscoverer(inputDir), proc)
	if err != nil {
		return err
	}

	logger.Info().
		Str("service", string(service)).
		Int("files", summary.Files).
		Int("written", summary.Written).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Float64("runtime_seconds", summary.Elapsed.Seconds()).
		Msg("Runtime")

	return nil
}

// waitForServer gives a starting server a short grace period before the
// run is declared dead.
func waitForServer(ctx context.Context, c *client.Client) error {
	return retry.Do(
		func() error { return c.IsAlive(ctx) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(1*time.Second),
	)
}

// setupCache connects the optional Redis result cache. An unreachable
// cache degrades to a plain run, never a failed one.
func setupCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *cache.Manager {
	if !cfg.Cache.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).
			Str("redis_addr", cfg.Cache.RedisAddr).
			Msg("Result cache unavailable, continuing without it")
		return nil
	}

	logger.Info().Str("redis_addr", cfg.Cache.RedisAddr).Msg("Result cache enabled")
	return cache.NewManager(rdb, time.Duration(cfg.Cache.TTLHours)*time.Hour)
}

func startMetricsListener(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn().Err(err).Msg("Metrics listener stopped")
		}
	}()
}
