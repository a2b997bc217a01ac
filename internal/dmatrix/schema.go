package dmatrix

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tblDMValuesLookup (
		DMID INTEGER NOT NULL,
		DMRow INTEGER NOT NULL,
		DMColumn INTEGER NOT NULL,
		Proportion DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tblDM (
		DMID INTEGER PRIMARY KEY,
		Name VARCHAR(255) NOT NULL,
		Description VARCHAR(255),
		DMStructureID INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tblDisturbanceTypeDefault (
		DistTypeID INTEGER PRIMARY KEY,
		DistTypeName VARCHAR(255) NOT NULL,
		OnOffSwitch BOOLEAN NOT NULL,
		Description VARCHAR(255),
		IsStandReplacing BOOLEAN NOT NULL,
		IsMultiYear BOOLEAN NOT NULL,
		MultiYearCount INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tblDMAssociationDefault (
		DefaultDisturbanceTypeID INTEGER NOT NULL,
		DefaultEcoBoundaryID INTEGER NOT NULL,
		AnnualOrder INTEGER NOT NULL,
		DMID INTEGER NOT NULL,
		Name VARCHAR(255),
		Description VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS tblEcoBoundaryDefault (
		EcoBoundaryID INTEGER PRIMARY KEY,
		EcoBoundaryName VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tblSpeciesTypeDefault (
		SpeciesTypeID INTEGER PRIMARY KEY,
		SpeciesTypeName VARCHAR(255) NOT NULL
	)`,
}

// EnsureSchema creates the archive tables this package reads and writes
// when they do not exist yet. Existing tables are left alone.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create archive schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the driver's bind style.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
