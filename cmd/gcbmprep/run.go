package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/internal/operations"
)

var (
	archiveDB   string
	dryRun      bool
	skipArchive bool
	eventsCSV   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long: `Loads every input, writes all model input tables to the output directory
and ensures the disturbance types the events need exist in the archive.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Update the disturbance archive from an event table",
	Long: `Reads a disturbance event table written by an earlier run and ensures every
disturbance type it references exists in the archive.`,
	Args: cobra.NoArgs,
	RunE: runArchive,
}

func init() {
	runCmd.Flags().StringVar(&archiveDB, "archive-db", "", "archive database DSN (overrides archive.dsn)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report archive changes without writing them")
	runCmd.Flags().BoolVar(&skipArchive, "skip-archive", false, "do not touch the archive")

	archiveCmd.Flags().StringVar(&archiveDB, "archive-db", "", "archive database DSN (overrides archive.dsn)")
	archiveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report archive changes without writing them")
	archiveCmd.Flags().StringVar(&eventsCSV, "events-csv", "", "event table to read (defaults to the output directory's)")
}

func pipelineOptions() operations.PipelineOptions {
	return operations.PipelineOptions{
		ArchiveDSN:  archiveDB,
		DryRun:      dryRun || cfg.Archive.DryRun,
		SkipArchive: skipArchive,
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	paths.LogPathResolution(logger)

	p := operations.NewPipeline(cfg, paths, pipelineOptions(), apperrors.NewDiagnostics(), metrics, logger)
	return execute(cmd.Context(), cmd.OutOrStdout(), p, p.Steps())
}

func runArchive(cmd *cobra.Command, args []string) error {
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	path := eventsCSV
	if path == "" {
		path = paths.DisturbanceEventsCSV
	}
	opts := pipelineOptions()
	opts.SkipArchive = false

	p := operations.NewPipeline(cfg, paths, opts, apperrors.NewDiagnostics(), metrics, logger)
	return execute(cmd.Context(), cmd.OutOrStdout(), p, p.ArchiveSteps(path))
}

// execute runs steps, finishes the pipeline and prints a step summary.
func execute(ctx context.Context, out io.Writer, p *operations.Pipeline, steps []operations.Step) error {
	ctx = infrastructure.EnsureTraceID(ctx)

	registry := operations.NewRegistry()
	if err := operations.Register(registry, steps); err != nil {
		return err
	}
	runner := operations.NewRunner(registry, operations.NewConfig(), tracing, metrics, logger)

	state, runErr := runner.Run(ctx)
	if err := p.Finish(ctx); err != nil {
		infrastructure.WithError(logger, err).WarnContext(ctx, "Failed to write metrics")
	}
	printSummary(out, state, p.Diagnostics())
	return runErr
}

func printSummary(out io.Writer, state *operations.OperationState, diag *apperrors.Diagnostics) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATUS\tROWS\tDURATION\tOUTPUT")
	for _, s := range state.Ordered() {
		rows, _ := s.GetMetadata(operations.MetaRows)
		file, _ := s.GetMetadata(operations.MetaOutputFile)
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%v\n", s.ID, s.GetStatus(), orDash(rows), s.Duration().Round(time.Millisecond), orDash(file))
	}
	w.Flush()

	counts := diag.CountByType()
	if len(counts) > 0 {
		fmt.Fprintf(out, "\n%d diagnostics:", diag.Len())
		for _, t := range []apperrors.ErrorType{
			apperrors.ErrTypeMissingSource,
			apperrors.ErrTypeAmbiguousCategory,
			apperrors.ErrTypeInvariant,
			apperrors.ErrTypeTransaction,
		} {
			if n := counts[t]; n > 0 {
				fmt.Fprintf(out, " %s=%d", t, n)
			}
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "run %s %s in %s\n", state.ID, state.GetStatus(), state.Duration().Round(time.Millisecond))
}

func orDash(v interface{}) interface{} {
	if v == nil {
		return "-"
	}
	return v
}
