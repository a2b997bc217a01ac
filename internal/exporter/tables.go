package exporter

import (
	"fmt"
	"strconv"

	"gcbmprep/internal/classifier"
	"gcbmprep/internal/config"
	"gcbmprep/internal/disturbance"
	"gcbmprep/pkg/contracts/domain"
)

// Tables writes each model input table to its file in the output directory.
type Tables struct {
	w         *CSVWriter
	startYear int
}

// NewTables creates table writers. startYear is simulation timestep 1.
func NewTables(w *CSVWriter, startYear int) *Tables {
	return &Tables{w: w, startYear: startYear}
}

// WriteClassifiers writes the classifier definition file: a
// "_CLASSIFIER,<name>" line per classifier followed by its values, each
// listed as value and description.
func (t *Tables) WriteClassifiers(sets []classifier.ValueSet) (string, error) {
	var records [][]string
	for _, set := range sets {
		records = append(records, []string{"_CLASSIFIER", set.Name})
		for _, v := range set.Values {
			records = append(records, []string{v, v})
		}
	}
	return t.w.WriteCSV(config.ClassifiersCSV, WriteOptions{Records: records})
}

func yieldCurveHeaders(maxAge int) []string {
	headers := []string{"yield_curve_id", "stand_key"}
	headers = append(headers, domain.ClassifierNames...)
	headers = append(headers, "leading_species")
	for age := 1; age <= maxAge; age++ {
		headers = append(headers, strconv.Itoa(age))
	}
	return headers
}

// WriteYieldCurves streams the deduplicated curve table. Volumes beyond a
// curve's length are written as zero.
func (t *Tables) WriteYieldCurves(records []domain.CurveRecord, maxAge int) (string, error) {
	stream, err := t.w.CreateStreamWriter(config.YieldCurvesCSV, yieldCurveHeaders(maxAge))
	if err != nil {
		return "", err
	}

	row := make([]string, 0, 8+maxAge)
	for _, rec := range records {
		row = row[:0]
		row = append(row, formatInt(rec.ID), rec.StandKey)
		row = append(row, rec.Classifiers.Values()...)
		row = append(row, rec.Product.LeadingSpecies())
		for age := 1; age <= maxAge; age++ {
			v := 0.0
			if age <= len(rec.Volumes) {
				v = rec.Volumes[age-1]
			}
			row = append(row, formatVolume(v))
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write curve %d: %w", rec.ID, err)
		}
	}

	if err := stream.Close(); err != nil {
		return "", err
	}
	return stream.Path(), nil
}

// WriteInventory writes the starting inventory, one row per forest stand.
func (t *Tables) WriteInventory(records []domain.InventoryRecord) (string, error) {
	headers := []string{"stand_key"}
	headers = append(headers, domain.ClassifierNames...)
	headers = append(headers, "initial_age", "area_ha", "delay", "land_class",
		"historical_disturbance_type", "last_pass_disturbance_type")

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{r.StandKey}
		row = append(row, r.Classifiers.Values()...)
		row = append(row,
			formatInt(r.InitialAge),
			strconv.FormatFloat(r.AreaHa, 'f', 4, 64),
			formatInt(r.Delay),
			r.LandClass,
			r.HistoricalDisturbanceType,
			r.LastPassDisturbanceType)
		rows = append(rows, row)
	}
	return t.w.WriteSimpleCSV(config.InventoryCSV, headers, rows)
}

var eventHeaders = []string{"timestep", "stand_key", "disturbance_type", "pct_volume_removed", "year", "age", "area"}

// WriteEvents writes the disturbance event table.
func (t *Tables) WriteEvents(events []domain.DisturbanceEvent) (string, error) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		pct := ""
		if e.HasRemovalPercent {
			pct = formatFloat(e.RemovalPercent)
		}
		rows = append(rows, []string{
			formatInt(e.Timestep(t.startYear)),
			e.StandKey,
			e.Type.Name(),
			pct,
			formatInt(e.Year),
			formatInt(e.Age),
			formatFloat(e.Area),
		})
	}
	return t.w.WriteSimpleCSV(config.DisturbanceEventsCSV, eventHeaders, rows)
}

// WriteTransitions writes the transition rule table with the age reset
// serialized as 0 (reset) or -1 (keep).
func (t *Tables) WriteTransitions(rules []domain.TransitionRule) (string, error) {
	headers := []string{"disturbance_type"}
	for _, n := range domain.ClassifierNames {
		headers = append(headers, "src_"+n)
	}
	for _, n := range domain.ClassifierNames {
		headers = append(headers, "tgt_"+n)
	}
	headers = append(headers, "reset_age")

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		row := []string{r.DisturbanceType}
		row = append(row, r.Source.Values()...)
		row = append(row, r.Target.Values()...)
		row = append(row, formatInt(int(r.Reset)))
		rows = append(rows, row)
	}
	return t.w.WriteSimpleCSV(config.TransitionRulesCSV, headers, rows)
}

// WriteThinningMapping writes the removal percentage to archive name table.
func (t *Tables) WriteThinningMapping(mapping []disturbance.MappingRow) (string, error) {
	rows := make([][]string, 0, len(mapping))
	for _, m := range mapping {
		rows = append(rows, []string{formatFloat(m.Percent), m.Name})
	}
	return t.w.WriteSimpleCSV(config.ThinningMappingCSV, []string{"pct_volume_removed", "disturbance_type_name"}, rows)
}

// WriteArchiveResults records what the archive step found or created.
func (t *Tables) WriteArchiveResults(results []domain.EnsureResult) (string, error) {
	headers := []string{"name", "dmid", "dist_type_id", "category", "created", "dry_run", "warning"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Name,
			formatOptionalInt(r.DMID),
			formatOptionalInt(r.DistTypeID),
			string(r.Category),
			formatBool(r.Created),
			formatBool(r.DryRun),
			r.Warning,
		})
	}
	return t.w.WriteSimpleCSV(config.ArchiveResultsCSV, headers, rows)
}
