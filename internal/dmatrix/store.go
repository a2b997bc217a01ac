package dmatrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// Open connects to the archive database. SQLite archives are limited to one
// connection; every statement of a creation runs inside its transaction.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported archive driver %q", driver), nil)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open archive", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to connect to archive", err)
	}
	return db, nil
}

// Options configures a Store.
type Options struct {
	Driver    string
	Templates []Template
	Tolerance float64
}

// Store reads and extends the archive.
type Store struct {
	db        *sql.DB
	driver    string
	templates map[domain.RemovalCategory]Template
	tolerance float64
	diag      *apperrors.Diagnostics
	logger    *slog.Logger
}

// NewStore wraps an open archive connection.
func NewStore(db *sql.DB, opts Options, diag *apperrors.Diagnostics, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 0.001
	}
	templates := make(map[domain.RemovalCategory]Template, len(opts.Templates))
	for _, t := range opts.Templates {
		templates[domain.RemovalCategory(strings.ToLower(string(t.Category)))] = t
	}
	return &Store{
		db:        db,
		driver:    opts.Driver,
		templates: templates,
		tolerance: opts.Tolerance,
		diag:      diag,
		logger:    logger.With(slog.String("component", "archive")),
	}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, rebind(s.driver, query), args...)
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) error {
	_, err := q.ExecContext(ctx, rebind(s.driver, query), args...)
	return err
}

// existing describes a disturbance type already in the archive.
type existing struct {
	name       string
	distTypeID int
	dmid       *int
}

// existingTypes maps the lowercase trimmed name of every disturbance type to
// its ids. The first type with a given name wins; the DMID comes from the
// type's first eco-boundary association.
func (s *Store) existingTypes(ctx context.Context) (map[string]existing, error) {
	assoc := make(map[int]int)
	rows, err := s.query(ctx, s.db,
		`SELECT DefaultDisturbanceTypeID, DMID FROM tblDMAssociationDefault ORDER BY DefaultDisturbanceTypeID, DefaultEcoBoundaryID`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read associations", err)
	}
	for rows.Next() {
		var typeID, dmid int
		if err := rows.Scan(&typeID, &dmid); err != nil {
			rows.Close()
			return nil, apperrors.NewStorageError("failed to scan association", err)
		}
		if _, ok := assoc[typeID]; !ok {
			assoc[typeID] = dmid
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read associations", err)
	}

	rows, err = s.query(ctx, s.db, `SELECT DistTypeID, DistTypeName FROM tblDisturbanceTypeDefault ORDER BY DistTypeID`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read disturbance types", err)
	}
	defer rows.Close()

	out := make(map[string]existing)
	for rows.Next() {
		var id int
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan disturbance type", err)
		}
		key := normalize(name.String)
		if !name.Valid || key == "" {
			continue
		}
		if _, dup := out[key]; dup {
			continue
		}
		e := existing{name: name.String, distTypeID: id}
		if dmid, ok := assoc[id]; ok {
			e.dmid = &dmid
		}
		out[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read disturbance types", err)
	}
	return out, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Store) maxID(ctx context.Context, query string) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, rebind(s.driver, query)).Scan(&v); err != nil {
		return 0, apperrors.NewStorageError("failed to read max id", err)
	}
	return int(v.Int64), nil
}

// templateValues reads a matrix ordered by row and column.
func (s *Store) templateValues(ctx context.Context, q queryer, dmid int) ([]domain.MatrixValue, error) {
	rows, err := s.query(ctx, q,
		`SELECT DMRow, DMColumn, Proportion FROM tblDMValuesLookup WHERE DMID = ? ORDER BY DMRow, DMColumn`, dmid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatrixValue
	for rows.Next() {
		v := domain.MatrixValue{DMID: dmid}
		if err := rows.Scan(&v.Row, &v.Column, &v.Proportion); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("DMID %d: %w", dmid, apperrors.ErrTemplateNotFound)
	}
	return out, nil
}

// EcoBoundary is one row of the archive's eco-boundary table.
type EcoBoundary struct {
	ID   int
	Name string
}

// EcoBoundaries lists the archive's eco-boundaries ordered by id.
func (s *Store) EcoBoundaries(ctx context.Context) ([]EcoBoundary, error) {
	return s.ecoBoundaries(ctx, s.db)
}

func (s *Store) ecoBoundaries(ctx context.Context, q queryer) ([]EcoBoundary, error) {
	rows, err := s.query(ctx, q, `SELECT EcoBoundaryID, EcoBoundaryName FROM tblEcoBoundaryDefault ORDER BY EcoBoundaryID`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read eco boundaries", err)
	}
	defer rows.Close()

	var out []EcoBoundary
	for rows.Next() {
		var e EcoBoundary
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan eco boundary", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Species is one row of the archive's species table.
type Species struct {
	ID   int
	Name string
}

// Species lists the archive's species types ordered by name.
func (s *Store) Species(ctx context.Context) ([]Species, error) {
	rows, err := s.query(ctx, s.db, `SELECT SpeciesTypeID, SpeciesTypeName FROM tblSpeciesTypeDefault ORDER BY SpeciesTypeName`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read species", err)
	}
	defer rows.Close()

	var out []Species
	for rows.Next() {
		var sp Species
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan species", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// MatrixValues reads a stored matrix.
func (s *Store) MatrixValues(ctx context.Context, dmid int) ([]domain.MatrixValue, error) {
	values, err := s.templateValues(ctx, s.db, dmid)
	if errors.Is(err, apperrors.ErrTemplateNotFound) {
		return nil, nil
	}
	return values, err
}
