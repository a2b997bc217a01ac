package dmatrix

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/pkg/contracts/domain"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	db    *sql.DB
	diag  *apperrors.Diagnostics
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := Open(s.ctx, DriverSQLite, filepath.Join(s.T().TempDir(), "archive.db"))
	s.Require().NoError(err)
	s.db = db

	s.diag = apperrors.NewDiagnostics()
	s.store = NewStore(db, Options{
		Driver: DriverSQLite,
		Templates: []Template{
			{Category: domain.CategoryPrecommercial, DMID: 20136, Baseline: 0.85, StructureID: 2},
			{Category: domain.CategoryCommercial, DMID: 20112, Baseline: 0.50, StructureID: 2},
		},
		Tolerance: 0.001,
	}, s.diag, infrastructure.DiscardLogger())
	s.Require().NoError(s.store.EnsureSchema(s.ctx))

	s.seed()
}

func (s *StoreSuite) TearDownTest() {
	s.db.Close()
}

func (s *StoreSuite) mustExec(query string, args ...any) {
	_, err := s.db.ExecContext(s.ctx, query, args...)
	s.Require().NoError(err, query)
}

func (s *StoreSuite) seed() {
	for _, v := range commercialTemplate() {
		s.mustExec(`INSERT INTO tblDMValuesLookup (DMID, DMRow, DMColumn, Proportion) VALUES (?, ?, ?, ?)`, v.DMID, v.Row, v.Column, v.Proportion)
	}
	s.mustExec(`INSERT INTO tblDMValuesLookup (DMID, DMRow, DMColumn, Proportion) VALUES (20136, 1, 1, 0.15), (20136, 1, 2, 0.85)`)
	s.mustExec(`INSERT INTO tblEcoBoundaryDefault (EcoBoundaryID, EcoBoundaryName) VALUES (1, 'Atlantic'), (2, 'Boreal')`)
	s.mustExec(`INSERT INTO tblDisturbanceTypeDefault (DistTypeID, DistTypeName, OnOffSwitch, Description, IsStandReplacing, IsMultiYear, MultiYearCount) VALUES
		(1, '97% clear-cut', 1, '', 1, 0, 0),
		(2, 'Planting', 1, '', 0, 0, 0)`)
	s.mustExec(`INSERT INTO tblDMAssociationDefault (DefaultDisturbanceTypeID, DefaultEcoBoundaryID, AnnualOrder, DMID, Name, Description) VALUES
		(1, 2, 1, 409, '', ''),
		(1, 1, 1, 401, '', '')`)
	s.mustExec(`INSERT INTO tblSpeciesTypeDefault (SpeciesTypeID, SpeciesTypeName) VALUES (7, 'Slash pine'), (3, 'Loblolly pine')`)
}

func (s *StoreSuite) count(query string, args ...any) int {
	var n int
	s.Require().NoError(s.db.QueryRowContext(s.ctx, query, args...).Scan(&n))
	return n
}

func fraction(f float64) *float64 { return &f }

func (s *StoreSuite) specs() []domain.DisturbanceSpec {
	return []domain.DisturbanceSpec{
		{Name: "97% clear-cut"},
		{Name: "planting"},
		{Name: "25.00% commercial thinning", Fraction: fraction(0.25), Category: domain.CategoryCommercial},
		{Name: "Mystery"},
		{Name: "10% odd thinning", Fraction: fraction(0.10), Category: "bogus"},
		{Name: "30% precommercial thinning", Fraction: fraction(0.30), Category: domain.CategoryPrecommercial},
	}
}

func (s *StoreSuite) TestEnsureExisting() {
	results, err := s.store.EnsureAll(s.ctx, s.specs()[:2], false)
	s.Require().NoError(err)
	s.Require().Len(results, 2)

	s.False(results[0].Created)
	s.Require().NotNil(results[0].DMID)
	s.Equal(401, *results[0].DMID, "first eco-boundary association wins")
	s.Equal(1, *results[0].DistTypeID)

	s.Equal(2, *results[1].DistTypeID)
	s.Nil(results[1].DMID, "type without association")
}

func (s *StoreSuite) TestEnsureCreates() {
	results, err := s.store.EnsureAll(s.ctx, s.specs(), false)
	s.Require().NoError(err)
	s.Require().Len(results, 6)

	created := results[2]
	s.True(created.Created)
	s.Empty(created.Warning)
	s.Equal(20137, *created.DMID)
	s.Equal(3, *created.DistTypeID)

	s.NotEmpty(results[3].Warning)
	s.Nil(results[3].DMID)
	s.Contains(results[4].Warning, "unknown category")

	// the unknown category does not consume an id
	s.Equal(20138, *results[5].DMID)
	s.Equal(4, *results[5].DistTypeID)

	s.Equal(6, s.count(`SELECT COUNT(*) FROM tblDMValuesLookup WHERE DMID = 20137`))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM tblDM WHERE DMID = 20137 AND DMStructureID = 2`))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM tblDisturbanceTypeDefault WHERE DistTypeID = 3 AND DistTypeName = ? AND IsStandReplacing = 0`, created.Name))
	s.Equal(2, s.count(`SELECT COUNT(*) FROM tblDMAssociationDefault WHERE DMID = 20137`))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM tblDMAssociationDefault WHERE DMID = 20137 AND Name = '25.00% commercial thinning-Boreal'`))

	values, err := s.store.MatrixValues(s.ctx, 20137)
	s.Require().NoError(err)
	s.Empty(Validate(values, 0.001))

	s.Len(s.diag.Filter(apperrors.ErrTypeMissingSource), 1)
	s.Len(s.diag.Filter(apperrors.ErrTypeAmbiguousCategory), 1)
	s.Empty(s.diag.Filter(apperrors.ErrTypeInvariant))
}

func (s *StoreSuite) TestEnsureIsIdempotent() {
	first, err := s.store.EnsureAll(s.ctx, s.specs(), false)
	s.Require().NoError(err)
	before := s.count(`SELECT COUNT(*) FROM tblDMValuesLookup`)

	second, err := s.store.EnsureAll(s.ctx, s.specs(), false)
	s.Require().NoError(err)

	s.Equal(before, s.count(`SELECT COUNT(*) FROM tblDMValuesLookup`))
	for i := range second {
		s.False(second[i].Created, second[i].Name)
		if first[i].DMID != nil {
			s.Equal(*first[i].DMID, *second[i].DMID)
		}
	}
}

func (s *StoreSuite) TestEnsureSameNameTwiceCreatesOnce() {
	spec := domain.DisturbanceSpec{Name: "40.00% clearcut", Fraction: fraction(0.4), Category: domain.CategoryCommercial}
	results, err := s.store.EnsureAll(s.ctx, []domain.DisturbanceSpec{spec, spec}, false)
	s.Require().NoError(err)
	s.True(results[0].Created)
	s.False(results[1].Created)
	s.Equal(*results[0].DMID, *results[1].DMID)
	s.Equal(1, s.count(`SELECT COUNT(*) FROM tblDM`))
}

func (s *StoreSuite) TestDryRunWritesNothing() {
	before := s.count(`SELECT COUNT(*) FROM tblDMValuesLookup`)

	results, err := s.store.EnsureAll(s.ctx, s.specs(), true)
	s.Require().NoError(err)

	s.True(results[2].Created)
	s.True(results[2].DryRun)
	s.Equal(20137, *results[2].DMID)
	s.False(results[0].DryRun)

	s.Equal(before, s.count(`SELECT COUNT(*) FROM tblDMValuesLookup`))
	s.Equal(0, s.count(`SELECT COUNT(*) FROM tblDM`))
	s.Equal(2, s.count(`SELECT COUNT(*) FROM tblDisturbanceTypeDefault`))
}

func (s *StoreSuite) TestFailedCreationRollsBack() {
	s.mustExec(`CREATE TRIGGER reject_assoc BEFORE INSERT ON tblDMAssociationDefault
		BEGIN SELECT RAISE(ABORT, 'association rejected'); END`)

	results, err := s.store.EnsureAll(s.ctx, s.specs()[2:3], false)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.False(results[0].Created)
	s.Contains(results[0].Warning, "association rejected")

	s.Equal(0, s.count(`SELECT COUNT(*) FROM tblDMValuesLookup WHERE DMID = 20137`))
	s.Equal(0, s.count(`SELECT COUNT(*) FROM tblDM`))
	s.Equal(2, s.count(`SELECT COUNT(*) FROM tblDisturbanceTypeDefault`))
	s.Len(s.diag.Filter(apperrors.ErrTypeTransaction), 1)
}

func (s *StoreSuite) TestMissingTemplateFails() {
	s.mustExec(`DELETE FROM tblDMValuesLookup WHERE DMID = 20136`)

	results, err := s.store.EnsureAll(s.ctx, s.specs()[5:], false)
	s.Require().NoError(err)
	s.False(results[0].Created)
	s.Contains(results[0].Warning, "template")
}

func (s *StoreSuite) TestListings() {
	ecos, err := s.store.EcoBoundaries(s.ctx)
	s.Require().NoError(err)
	s.Equal([]EcoBoundary{{ID: 1, Name: "Atlantic"}, {ID: 2, Name: "Boreal"}}, ecos)

	species, err := s.store.Species(s.ctx)
	s.Require().NoError(err)
	s.Equal([]Species{{ID: 3, Name: "Loblolly pine"}, {ID: 7, Name: "Slash pine"}}, species)

	values, err := s.store.MatrixValues(s.ctx, 99999)
	s.NoError(err)
	s.Nil(values)
}
