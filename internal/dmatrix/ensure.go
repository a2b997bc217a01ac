package dmatrix

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

const stepName = "archive"

// EnsureAll makes sure every spec exists in the archive. Existing names
// (case-insensitive) report their ids. Missing specs with a fraction and a
// known category are created from their category's template, each in its
// own transaction; new ids continue from the archive's current maxima.
// In dry-run mode the ids that would be used are reported and nothing is
// written. Per-spec problems end up in the result's Warning; the error is
// reserved for failures reading the archive state.
func (s *Store) EnsureAll(ctx context.Context, specs []domain.DisturbanceSpec, dryRun bool) ([]domain.EnsureResult, error) {
	known, err := s.existingTypes(ctx)
	if err != nil {
		return nil, err
	}
	baseDMID, err := s.maxID(ctx, `SELECT MAX(DMID) FROM tblDMValuesLookup`)
	if err != nil {
		return nil, err
	}
	baseTypeID, err := s.maxID(ctx, `SELECT MAX(DistTypeID) FROM tblDisturbanceTypeDefault`)
	if err != nil {
		return nil, err
	}

	results := make([]domain.EnsureResult, 0, len(specs))
	idx := 0
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		key := normalize(spec.Name)
		if key == "" {
			continue
		}
		res := domain.EnsureResult{Name: spec.Name, Category: spec.Category}

		if e, ok := known[key]; ok {
			id := e.distTypeID
			res.DistTypeID = &id
			res.DMID = e.dmid
			results = append(results, res)
			continue
		}

		if spec.Fraction == nil || spec.Category == "" {
			res.Warning = "not found and no scaling parameters provided"
			s.diag.MissingSource(stepName, spec.Name, "%s", res.Warning)
			s.logger.Warn("Disturbance type missing from archive", slog.String("name", spec.Name))
			results = append(results, res)
			continue
		}

		tmpl, ok := s.templates[spec.Category]
		if !ok {
			res.Warning = fmt.Sprintf("unknown category: %s", spec.Category)
			s.diag.Ambiguous(stepName, spec.Name, "%s", res.Warning)
			s.logger.Warn("Unknown removal category",
				slog.String("name", spec.Name),
				slog.String("category", string(spec.Category)))
			results = append(results, res)
			continue
		}

		idx++
		dmid, typeID := baseDMID+idx, baseTypeID+idx
		res.DMID, res.DistTypeID = &dmid, &typeID

		if dryRun {
			res.Created, res.DryRun = true, true
			s.logger.Info("Would create disturbance type",
				slog.String("name", spec.Name),
				slog.Int("dmid", dmid),
				slog.Int("dist_type_id", typeID))
			results = append(results, res)
			continue
		}

		if err := s.create(ctx, spec, tmpl, dmid, typeID); err != nil {
			res.DMID, res.DistTypeID = nil, nil
			res.Warning = err.Error()
			s.diag.Add(apperrors.ErrTypeTransaction, stepName, spec.Name, "%v", err)
			s.logger.Error("Failed to create disturbance type",
				slog.String("name", spec.Name),
				slog.String("error", err.Error()))
			results = append(results, res)
			continue
		}

		res.Created = true
		known[key] = existing{name: spec.Name, distTypeID: typeID, dmid: &dmid}
		s.logger.Info("Created disturbance type",
			slog.String("name", spec.Name),
			slog.Int("dmid", dmid),
			slog.Int("dist_type_id", typeID),
			slog.Float64("fraction", *spec.Fraction))
		results = append(results, res)
	}
	return results, nil
}

// create writes the scaled matrix, its header, the disturbance type and one
// association per eco-boundary in a single transaction.
func (s *Store) create(ctx context.Context, spec domain.DisturbanceSpec, tmpl Template, dmid, typeID int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewTransactionError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	template, err := s.templateValues(ctx, tx, tmpl.DMID)
	if err != nil {
		return apperrors.NewTransactionError("failed to read template", err).
			WithContext("category", string(tmpl.Category))
	}

	values := WithDMID(Scale(template, tmpl.Baseline, *spec.Fraction), dmid)
	if bad := Validate(values, s.tolerance); len(bad) > 0 {
		for _, v := range bad {
			s.diag.Invariant(stepName, spec.Name,
				"DMID %d row %d sums to %.6f (retention %.6f)", dmid, v.Row, v.Sum, v.Retention)
		}
		s.logger.Error("Scaled matrix rows do not sum to 1",
			slog.String("name", spec.Name),
			slog.Int("dmid", dmid),
			slog.Int("rows", len(bad)))
	}

	ecos, err := s.ecoBoundaries(ctx, tx)
	if err != nil {
		return apperrors.NewTransactionError("failed to read eco boundaries", err)
	}

	if err = s.insertAll(ctx, tx, spec.Name, tmpl, values, ecos, dmid, typeID); err != nil {
		return apperrors.NewTransactionError("failed to write disturbance", err)
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewTransactionError("failed to commit disturbance", err)
	}
	return nil
}

func (s *Store) insertAll(ctx context.Context, tx *sql.Tx, name string, tmpl Template, values []domain.MatrixValue, ecos []EcoBoundary, dmid, typeID int) error {
	for _, v := range values {
		if err := s.exec(ctx, tx,
			`INSERT INTO tblDMValuesLookup (DMID, DMRow, DMColumn, Proportion) VALUES (?, ?, ?, ?)`,
			v.DMID, v.Row, v.Column, v.Proportion); err != nil {
			return fmt.Errorf("tblDMValuesLookup: %w", err)
		}
	}

	if err := s.exec(ctx, tx,
		`INSERT INTO tblDM (DMID, Name, Description, DMStructureID) VALUES (?, ?, ?, ?)`,
		dmid, name, name, tmpl.StructureID); err != nil {
		return fmt.Errorf("tblDM: %w", err)
	}

	if err := s.exec(ctx, tx,
		`INSERT INTO tblDisturbanceTypeDefault (DistTypeID, DistTypeName, OnOffSwitch, Description, IsStandReplacing, IsMultiYear, MultiYearCount) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		typeID, name, true, name, false, false, 0); err != nil {
		return fmt.Errorf("tblDisturbanceTypeDefault: %w", err)
	}

	for _, eco := range ecos {
		if err := s.exec(ctx, tx,
			`INSERT INTO tblDMAssociationDefault (DefaultDisturbanceTypeID, DefaultEcoBoundaryID, AnnualOrder, DMID, Name, Description) VALUES (?, ?, ?, ?, ?, ?)`,
			typeID, eco.ID, 1, dmid, name+"-"+eco.Name, name); err != nil {
			return fmt.Errorf("tblDMAssociationDefault: %w", err)
		}
	}
	return nil
}
