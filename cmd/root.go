// Package cmd defines and implements the CLI commands for the trafilatura
// executable.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EiffelFly/trafilatura/internal/config"
	"github.com/EiffelFly/trafilatura/internal/logging"
	"github.com/EiffelFly/trafilatura/internal/metrics"
)

var (
	cfgFile string

	flagOutputDir    string
	flagOutputFormat string
	flagHashAsName   bool
	flagParallel     int
	flagTimeout      bool
	flagMetricsAddr  string

	flagFast         bool
	flagNoComments   bool
	flagNoTables     bool
	flagFormatting   bool
	flagWithMetadata bool
	flagValidate     bool
	flagTargetLang   string
	flagDeduplicate  bool
)

// runtime bundles the services every subcommand needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string
}

// newRuntime loads configuration, builds the logger, and stamps a run ID.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	metrics.Init()
	rt := &runtime{
		cfg:    cfg,
		logger: logger.With(zap.String("run_id", runID.String())),
		runID:  runID.String(),
	}
	rt.startMetrics()
	return rt, nil
}

// startMetrics serves /metrics when an address is configured. The server
// lives for the duration of the run and dies with the process.
func (rt *runtime) startMetrics() {
	addr := rt.cfg.Metrics.Addr
	if flagMetricsAddr != "" {
		addr = flagMetricsAddr
	}
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		rt.logger.Info("metrics endpoint started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.logger.Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trafilatura",
		Short: "Polite batch downloading and text extraction",
		Long: `trafilatura schedules polite downloads across many domains and routes
every document through a safety gate, an extraction step, and a sharded
output writer. It can also run the same per-document pipeline over an
on-disk file tree in bounded batches.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file path")
	pf.StringVarP(&flagOutputDir, "output-dir", "o", "", "write results under this directory instead of stdout")
	pf.StringVar(&flagOutputFormat, "output-format", "txt", "output format: txt, csv, json, xml, xmltei")
	pf.BoolVar(&flagHashAsName, "hash-as-name", false, "derive file names from a content fingerprint")
	pf.IntVar(&flagParallel, "parallel", 0, "override the configured worker count")
	pf.BoolVar(&flagTimeout, "timeout", false, "abort extraction after the configured per-document budget")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	pf.BoolVar(&flagFast, "fast", false, "skip the fallback extraction pass")
	pf.BoolVar(&flagNoComments, "no-comments", false, "drop comment sections")
	pf.BoolVar(&flagNoTables, "no-tables", false, "drop tables")
	pf.BoolVar(&flagFormatting, "formatting", false, "keep basic structural formatting")
	pf.BoolVar(&flagWithMetadata, "with-metadata", false, "include document metadata")
	pf.BoolVar(&flagValidate, "validate", false, "validate TEI-XML output")
	pf.StringVar(&flagTargetLang, "target-language", "", "only keep documents in this language")
	pf.BoolVar(&flagDeduplicate, "deduplicate", false, "drop repeated text segments")

	cmd.AddCommand(newURLsCmd())
	cmd.AddCommand(newFilesCmd())
	return cmd
}

// Execute is the main entry point. Fatal errors exit the process with a
// diagnostic message; everything else is reported while the run continues.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		stop()
		os.Exit(1)
	}
}
