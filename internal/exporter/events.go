package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// ReadEvents loads an event table written by WriteEvents. Rows whose
// disturbance type cannot be recognised are skipped with an ambiguous
// diagnostic.
func ReadEvents(path string, diag *apperrors.Diagnostics) ([]domain.DisturbanceEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open event table", err).WithContext("path", path)
	}
	defer f.Close()

	events, err := readEvents(f, diag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func readEvents(r io.Reader, diag *apperrors.Diagnostics) ([]domain.DisturbanceEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read event table header", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, want := range []string{"stand_key", "disturbance_type", "year"} {
		if _, ok := cols[want]; !ok {
			return nil, apperrors.NewParsingError("event table", fmt.Errorf("%w: %s", apperrors.ErrColumnNotFound, want))
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var events []domain.DisturbanceEvent
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read event table", err).WithContext("line", line)
		}

		name := cell(row, "disturbance_type")
		dt, ok := domain.ParseDisturbanceType(name)
		if !ok {
			diag.Ambiguous("archive", name, "unrecognised disturbance type on line %d", line)
			continue
		}

		e := domain.DisturbanceEvent{
			StandKey: cell(row, "stand_key"),
			Type:     dt,
		}
		if e.Year, err = strconv.Atoi(cell(row, "year")); err != nil {
			return nil, apperrors.NewParsingError("bad year", err).WithContext("line", line)
		}
		if s := cell(row, "age"); s != "" {
			if e.Age, err = strconv.Atoi(s); err != nil {
				return nil, apperrors.NewParsingError("bad age", err).WithContext("line", line)
			}
		}
		if s := cell(row, "area"); s != "" {
			if e.Area, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, apperrors.NewParsingError("bad area", err).WithContext("line", line)
			}
		}
		if s := cell(row, "pct_volume_removed"); s != "" {
			if e.RemovalPercent, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, apperrors.NewParsingError("bad removal percentage", err).WithContext("line", line)
			}
			e.HasRemovalPercent = true
		}
		events = append(events, e)
	}
	return events, nil
}
