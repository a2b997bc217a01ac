package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/pkg/contracts/domain"
)

var yieldFields = []field{
	required("iwc_id", "yield_id", "id"),
	required("Product"),
}

// ReadYields loads one yield table. Age columns are the headers that parse
// as positive integers; volumes stay in source units. Unreadable cells become
// NaN and are zeroed when the table is built.
func ReadYields(ctx context.Context, path string, source domain.YieldSource, diag *apperrors.Diagnostics, logger *slog.Logger) ([]domain.YieldRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open yield table", err).WithContext("path", path)
	}
	defer f.Close()

	rows, err := readYields(ctx, f, source, diag, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func readYields(ctx context.Context, r io.Reader, source domain.YieldSource, diag *apperrors.Diagnostics, logger *slog.Logger) ([]domain.YieldRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read yield table header", err)
	}
	h, err := mapHeader(header, yieldFields)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("yield table %s", source), err)
	}
	logFuzzy(logger, string(source), h)

	ageCols := make(map[int]int)
	maxAge := 0
	for i, cell := range header {
		age, err := strconv.Atoi(strings.TrimSpace(cell))
		if err != nil || age <= 0 {
			continue
		}
		ageCols[age] = i
		maxAge = max(maxAge, age)
	}
	if maxAge == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("yield table %s has no age columns", source), apperrors.ErrColumnNotFound)
	}

	var out []domain.YieldRow
	badCells := 0
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read yield table", err).WithContext("line", line)
		}

		id := h.get(row, "iwc_id")
		if id == "" {
			continue
		}
		parsed, err := trajectory.ParseYieldID(id)
		if err != nil {
			diag.Ambiguous("ingest", id, "%s line %d: %v", source, line, err)
			continue
		}

		volumes := make([]float64, maxAge)
		for age := 1; age <= maxAge; age++ {
			col, ok := ageCols[age]
			if !ok || col >= len(row) {
				volumes[age-1] = math.NaN()
				continue
			}
			v, err := parseNumber(row[col])
			if err != nil {
				badCells++
				v = math.NaN()
			}
			volumes[age-1] = v
		}

		out = append(out, domain.YieldRow{
			Source:       source,
			ID:           id,
			StandKey:     parsed.StandKey,
			SIValue:      parsed.SIValue,
			RegenSpecies: parsed.RegenSpecies,
			Trajectory:   parsed.Key.String(),
			Product:      domain.Product(h.get(row, "Product")),
			Volumes:      volumes,
		})
	}

	if badCells > 0 {
		logger.Warn("Unreadable yield cells treated as zero",
			slog.String("source", string(source)),
			slog.Int("cells", badCells))
	}
	logger.Info("Yield table loaded",
		slog.String("source", string(source)),
		slog.Int("rows", len(out)),
		slog.Int("max_age", maxAge))
	return out, nil
}
