package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gcbmprep/internal/config"
	"gcbmprep/internal/dmatrix"
	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/operations"
)

var inspectDMID int

var parseDisturbanceCmd = &cobra.Command{
	Use:   "parse-disturbance NAME...",
	Short: "Show how disturbance type names are classified",
	Long: `Classifies each name the way the archive update does: standard names are
used as they are, scalable thinning names are created from a removal template.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParseDisturbance,
}

var inspectArchiveCmd = &cobra.Command{
	Use:   "inspect-archive",
	Short: "List archive eco-boundaries and species",
	Args:  cobra.NoArgs,
	RunE:  runInspectArchive,
}

func init() {
	inspectArchiveCmd.Flags().StringVar(&archiveDB, "archive-db", "", "archive database DSN (overrides archive.dsn)")
	inspectArchiveCmd.Flags().IntVar(&inspectDMID, "dmid", 0, "also print and check the matrix with this id")
}

func runParseDisturbance(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tFRACTION\tCATEGORY")
	unknown := 0
	for _, name := range args {
		parsed, err := dmatrix.ParseDisturbanceName(name, config.StandardDisturbances)
		if err != nil {
			unknown++
			logger.Warn("Unrecognised disturbance name", slog.String("name", name), slog.String("error", err.Error()))
		}
		fraction, category := "-", "-"
		if parsed.Kind == dmatrix.NameScalable {
			fraction = fmt.Sprintf("%.4f", parsed.Fraction)
			category = string(parsed.Category)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", parsed.Name, parsed.Kind, fraction, category)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if unknown > 0 {
		return fmt.Errorf("%d of %d names not recognised", unknown, len(args))
	}
	return nil
}

func runInspectArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := operations.NewPipeline(cfg, paths, pipelineOptions(), nil, nil, logger)

	db, err := dmatrix.Open(ctx, cfg.Archive.Driver, p.ArchiveDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	store := dmatrix.NewStore(db, dmatrix.Options{
		Driver:    cfg.Archive.Driver,
		Templates: operations.ArchiveTemplates(cfg.Archive),
		Tolerance: cfg.Archive.Tolerance,
	}, apperrors.NewDiagnostics(), logger)

	ecos, err := store.EcoBoundaries(ctx)
	if err != nil {
		return err
	}
	species, err := store.Species(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ECO BOUNDARY\tID\n")
	for _, e := range ecos {
		fmt.Fprintf(w, "%s\t%d\n", e.Name, e.ID)
	}
	fmt.Fprintf(w, "\nSPECIES\tID\n")
	for _, s := range species {
		fmt.Fprintf(w, "%s\t%d\n", s.Name, s.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if inspectDMID == 0 {
		return nil
	}
	values, err := store.MatrixValues(ctx, inspectDMID)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("matrix %d not found", inspectDMID)
	}
	fmt.Fprintf(out, "\nmatrix %d: %d values\n", inspectDMID, len(values))
	for _, v := range dmatrix.Validate(values, cfg.Archive.Tolerance) {
		fmt.Fprintf(out, "  row %d sums to %.6f (retention %.6f)\n", v.Row, v.Sum, v.Retention)
	}
	return nil
}
