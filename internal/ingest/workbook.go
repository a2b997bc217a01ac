package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// headerScanRows bounds how far down a sheet the header row may sit.
const headerScanRows = 10

var conditionFields = []field{
	required("StandID", "stand_key", "STAND_KEY"),
	required("PERIOD"),
	required("Species"),
	required("Origin"),
	optional("SI", "site_index"),
	required("AGE"),
	optional("AREA"),
	optional("Thin1"),
	optional("Thin2"),
	optional("Fert1"),
	optional("Fert2"),
	optional("TreatmentType"),
	optional("ManagementType"),
}

// sheetRows opens path and returns the rows of sheet. A sheet whose name
// differs only in case or surrounding spaces is accepted.
func sheetRows(path, sheet string, logger *slog.Logger) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	name := ""
	for _, candidate := range f.GetSheetList() {
		if candidate == sheet {
			name = candidate
			break
		}
		if name == "" && strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(sheet)) {
			name = candidate
		}
	}
	if name == "" {
		return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s", path),
			fmt.Errorf("%w: %q (have %s)", apperrors.ErrSheetNotFound, sheet, strings.Join(f.GetSheetList(), ", ")))
	}
	if name != sheet {
		logger.Warn("Sheet matched by name variant", slog.String("want", sheet), slog.String("found", name))
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).WithContext("sheet", name)
	}
	return rows, nil
}

// findHeader returns the first row within headerScanRows that maps every
// required field, and its index.
func findHeader(rows [][]string, fields []field) (headerMap, int, error) {
	var lastErr error
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		h, err := mapHeader(rows[i], fields)
		if err == nil {
			return h, i, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: sheet is empty", apperrors.ErrColumnNotFound)
	}
	return headerMap{}, -1, lastErr
}

// ReadCondition loads every row of the condition sheet.
func ReadCondition(ctx context.Context, path, sheet string, logger *slog.Logger) ([]domain.ConditionRecord, error) {
	rows, err := sheetRows(path, sheet, logger)
	if err != nil {
		return nil, err
	}
	h, headerRow, err := findHeader(rows, conditionFields)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("condition sheet %q", sheet), err)
	}
	logFuzzy(logger, "condition", h)

	var out []domain.ConditionRecord
	for i := headerRow + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := rowParser{h: h, row: rows[i]}
		key := p.str("StandID")
		if key == "" {
			continue
		}
		rec := domain.ConditionRecord{
			StandKey:       key,
			Period:         p.whole("PERIOD"),
			Species:        p.str("Species"),
			Origin:         p.str("Origin"),
			SiteIndex:      p.number("SI"),
			Age:            p.whole("AGE"),
			Area:           p.number("AREA"),
			Thin1:          max(p.whole("Thin1"), 0),
			Thin2:          max(p.whole("Thin2"), 0),
			Fert1:          max(p.whole("Fert1"), 0),
			Fert2:          max(p.whole("Fert2"), 0),
			TreatmentType:  p.str("TreatmentType"),
			ManagementType: p.str("ManagementType"),
		}
		if p.err != nil {
			return nil, apperrors.NewParsingError("bad condition row", p.err).
				WithContext("row", i+1).WithContext("stand_key", key)
		}
		out = append(out, rec)
	}

	logger.Info("Condition sheet loaded", slog.Int("rows", len(out)))
	return out, nil
}

// Snapshot keeps the period-0 rows keyed by stand. A stand with more than
// one period-0 row keeps the first and records an ambiguous diagnostic.
func Snapshot(records []domain.ConditionRecord, diag *apperrors.Diagnostics) map[string]domain.ConditionRecord {
	out := make(map[string]domain.ConditionRecord)
	for _, rec := range records {
		if rec.Period != 0 {
			continue
		}
		if _, dup := out[rec.StandKey]; dup {
			diag.Ambiguous("ingest", rec.StandKey, "more than one period-0 condition row; first kept")
			continue
		}
		out[rec.StandKey] = rec
	}
	return out
}

// ScheduleLayout maps the schedule's theme columns (TH1, TH2, ...) to the
// semantic names ReadSchedule understands.
type ScheduleLayout map[string]string

func (l ScheduleLayout) fields() []field {
	column := func(semantic string, req bool) field {
		f := field{name: l.column(semantic), required: req}
		if f.name != semantic {
			f.aliases = []string{semantic}
		}
		return f
	}

	fields := []field{
		column("stand_key", true),
		required("YEAR"),
		required("ACTION"),
		optional("AGE"),
		optional("AREA"),
	}
	semantics := []string{"species", "origin", "si", "thin1", "thin2", "fert1", "fert2"}
	for _, s := range semantics {
		fields = append(fields, column(s, false))
	}
	return fields
}

// column returns the header name a semantic column is looked up under.
func (l ScheduleLayout) column(semantic string) string {
	cols := make([]string, 0, len(l))
	for col := range l {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if l[col] == semantic {
			return col
		}
	}
	return semantic
}

// ReadSchedule loads the management schedule sheet. Rows without a stand key
// or action are skipped.
func ReadSchedule(ctx context.Context, path, sheet string, layout ScheduleLayout, logger *slog.Logger) ([]domain.ScheduleRow, error) {
	rows, err := sheetRows(path, sheet, logger)
	if err != nil {
		return nil, err
	}
	fields := layout.fields()
	h, headerRow, err := findHeader(rows, fields)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("schedule sheet %q", sheet), err)
	}
	logFuzzy(logger, "schedule", h)

	col := layout.column
	var out []domain.ScheduleRow
	skipped := 0
	for i := headerRow + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := rowParser{h: h, row: rows[i]}
		key := p.str(col("stand_key"))
		action := p.str("ACTION")
		if key == "" || action == "" {
			skipped++
			continue
		}
		row := domain.ScheduleRow{
			StandKey:  key,
			Year:      p.whole("YEAR"),
			Action:    action,
			Age:       p.whole("AGE"),
			Area:      p.number("AREA"),
			Species:   p.str(col("species")),
			Origin:    p.str(col("origin")),
			SiteIndex: p.number(col("si")),
			Thin1:     max(p.whole(col("thin1")), 0),
			Thin2:     max(p.whole(col("thin2")), 0),
			Fert1:     max(p.whole(col("fert1")), 0),
			Fert2:     max(p.whole(col("fert2")), 0),
		}
		if p.err != nil {
			return nil, apperrors.NewParsingError("bad schedule row", p.err).
				WithContext("row", i+1).WithContext("stand_key", key)
		}
		out = append(out, row)
	}

	logger.Info("Schedule sheet loaded",
		slog.Int("rows", len(out)),
		slog.Int("skipped", skipped))
	return out, nil
}
