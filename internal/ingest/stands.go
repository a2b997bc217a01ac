package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gcbmprep/internal/config"
	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

var standFields = []field{
	required("STAND_KEY"),
	required("DOMSPECLAB"),
	optional("DOM_SPEC"),
	required("ORIGIN"),
	required("SITE_INDEX"),
	required("STAND_AGE"),
	required("GIS_AREA"),
}

// StandOptions carries the code tables and unit factor for the stand table.
type StandOptions struct {
	AreaFactor      float64
	SpeciesByName   map[string]string
	OriginByName    map[string]string
	NonForestCode   string
	NonForestOrigin string
}

// DefaultStandOptions uses the built-in code tables.
func DefaultStandOptions(areaFactor float64) StandOptions {
	return StandOptions{
		AreaFactor:      areaFactor,
		SpeciesByName:   config.DomSpecToCode,
		OriginByName:    config.OriginLongToCode,
		NonForestCode:   config.NonForestSpecies,
		NonForestOrigin: config.NonForestOrigin,
	}
}

// ReadStands loads the stand attribute table exported from the spatial layer.
// GIS_AREA is in acres and is converted with opts.AreaFactor.
func ReadStands(ctx context.Context, path string, opts StandOptions, logger *slog.Logger) ([]domain.Stand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open stand table", err).WithContext("path", path)
	}
	defer f.Close()

	stands, err := readStands(ctx, f, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stands, nil
}

func readStands(ctx context.Context, r io.Reader, opts StandOptions, logger *slog.Logger) ([]domain.Stand, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read stand table header", err)
	}
	h, err := mapHeader(header, standFields)
	if err != nil {
		return nil, apperrors.NewParsingError("stand table", err)
	}
	logFuzzy(logger, "stands", h)

	var stands []domain.Stand
	forest := 0
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read stand table", err).WithContext("line", line)
		}

		p := rowParser{h: h, row: row}
		key := p.str("STAND_KEY")
		if key == "" {
			continue
		}

		species := p.str("DOMSPECLAB")
		if species == "" {
			species = opts.SpeciesByName[p.str("DOM_SPEC")]
		}
		originLong := p.str("ORIGIN")
		origin, ok := opts.OriginByName[originLong]
		if !ok {
			origin = originLong
		}

		s := domain.Stand{
			Key:         key,
			SpeciesCode: species,
			OriginCode:  origin,
			SiteIndex:   p.number("SITE_INDEX"),
			Age:         p.whole("STAND_AGE"),
			AreaHa:      p.number("GIS_AREA") * opts.AreaFactor,
			IsForest:    species != opts.NonForestCode && originLong != opts.NonForestOrigin,
		}
		if p.err != nil {
			return nil, apperrors.NewParsingError("bad stand row", p.err).
				WithContext("line", line).WithContext("stand_key", key)
		}
		if s.IsForest {
			forest++
		}
		stands = append(stands, s)
	}

	logger.Info("Stand table loaded",
		slog.Int("stands", len(stands)),
		slog.Int("forest", forest),
		slog.Int("non_forest", len(stands)-forest))
	return stands, nil
}

func logFuzzy(logger *slog.Logger, table string, h headerMap) {
	for name, header := range h.fuzzy {
		logger.Warn("Column matched approximately",
			slog.String("table", table),
			slog.String("column", name),
			slog.String("header", header))
	}
}
