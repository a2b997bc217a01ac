// Command gcbmprep converts forest inventory sources into carbon model
// inputs and keeps the disturbance archive in step with them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gcbmprep/internal/config"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/pkg/contracts"
)

var (
	// Global flags
	configFile string
	rootDir    string
	logLevel   string

	// Set up by PersistentPreRunE
	cfg     *config.Config
	paths   *config.Paths
	logger  *slog.Logger
	tracing *infrastructure.Tracing
	metrics *infrastructure.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "gcbmprep",
	Short: "Prepare carbon model inputs from forest inventory data",
	Long: `gcbmprep reads the stand table, yield tables, condition workbook and
management schedule and writes the classifier, yield curve, inventory,
disturbance event and transition rule tables the carbon model consumes.
Disturbance types the events need are created in the archive database by
scaling removal matrix templates.`,
	Version:           contracts.GetFullVersionString(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root directory (overrides paths.root_dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd, archiveCmd, validateCmd, parseDisturbanceCmd, inspectArchiveCmd)
}

// setup loads configuration and initializes logging, tracing and metrics.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if rootDir != "" {
		cfg.Paths.RootDir = rootDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	paths, err = config.GetPaths(cfg.Paths)
	if err != nil {
		return err
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if tf := cfg.Telemetry.TraceFile; tf != "" && !filepath.IsAbs(tf) {
		cfg.Telemetry.TraceFile = filepath.Join(paths.RootDir, tf)
	}
	tracing, err = infrastructure.InitializeTracing(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	metrics = infrastructure.NewMetrics()
	return nil
}

func teardown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx); err != nil && logger != nil {
		logger.Warn("Failed to flush traces", slog.String("error", err.Error()))
	}
	infrastructure.CloseLogFile()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
