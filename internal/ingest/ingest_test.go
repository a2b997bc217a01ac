package ingest

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcbmprep/internal/config"
	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/internal/shared/testutil"
	"gcbmprep/pkg/contracts/domain"
)

func TestMapHeader(t *testing.T) {
	t.Run("exact match ignores case and separators", func(t *testing.T) {
		h, err := mapHeader([]string{"Stand Key", "domspeclab"}, []field{required("STAND_KEY"), required("DOMSPECLAB")})
		require.NoError(t, err)
		assert.Equal(t, 0, h.idx["STAND_KEY"])
		assert.Equal(t, 1, h.idx["DOMSPECLAB"])
		assert.Empty(t, h.fuzzy)
	})

	t.Run("close misspelling is accepted", func(t *testing.T) {
		h, err := mapHeader([]string{"STAND_KEYS", "SITE_INDX"}, []field{required("STAND_KEY"), required("SITE_INDEX")})
		require.NoError(t, err)
		assert.Equal(t, 0, h.idx["STAND_KEY"])
		assert.Equal(t, 1, h.idx["SITE_INDEX"])
		assert.Equal(t, map[string]string{"STAND_KEY": "STAND_KEYS", "SITE_INDEX": "SITE_INDX"}, h.fuzzy)
	})

	t.Run("digits must agree", func(t *testing.T) {
		_, err := mapHeader([]string{"TH11", "TH12"}, []field{required("TH1")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrColumnNotFound))
	})

	t.Run("ties are not guessed", func(t *testing.T) {
		h, err := mapHeader([]string{"SPECIE", "SPECIESS"}, []field{optional("SPECIES")})
		require.NoError(t, err)
		assert.False(t, h.has("SPECIES"))
	})

	t.Run("aliases", func(t *testing.T) {
		h, err := mapHeader([]string{"stand_key"}, []field{required("StandID", "stand_key")})
		require.NoError(t, err)
		assert.True(t, h.has("StandID"))
	})
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		cell string
		want float64
	}{
		{"", 0},
		{" 12.5 ", 12.5},
		{"12.5|9.1", 12.5},
		{"1,234", 1234},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.cell)
		require.NoError(t, err, tt.cell)
		assert.Equal(t, tt.want, got, tt.cell)
	}

	_, err := parseNumber("abc")
	assert.Error(t, err)

	n, err := parseWhole("14.0")
	require.NoError(t, err)
	assert.Equal(t, 14, n)
}

func TestReadStands(t *testing.T) {
	data := strings.Join([]string{
		"STAND_KEY,DOMSPECLAB,DOM_SPEC,ORIGIN,SITE_INDEX,STAND_AGE,GIS_AREA",
		"BH1,LB,Loblolly Pine,Natural,58,12,10",
		"BH2,,Slash Pine,Planted,71.5,30,4",
		"BH3,UD,Undefined,Open,0,0,2",
		",LB,Loblolly Pine,Natural,58,12,10",
	}, "\n")

	got, err := readStands(context.Background(), strings.NewReader(data), DefaultStandOptions(0.5), infrastructure.DiscardLogger())
	require.NoError(t, err)

	want := []domain.Stand{
		{Key: "BH1", SpeciesCode: "LB", OriginCode: "NN", SiteIndex: 58, Age: 12, AreaHa: 5, IsForest: true},
		{Key: "BH2", SpeciesCode: "SL", OriginCode: "PY", SiteIndex: 71.5, Age: 30, AreaHa: 2, IsForest: true},
		{Key: "BH3", SpeciesCode: "UD", OriginCode: "ONO", SiteIndex: 0, Age: 0, AreaHa: 1, IsForest: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stands mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStandsErrors(t *testing.T) {
	logger := infrastructure.DiscardLogger()

	_, err := readStands(context.Background(), strings.NewReader("STAND_KEY,ORIGIN\nBH1,Natural\n"), DefaultStandOptions(1), logger)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	assert.True(t, errors.Is(err, apperrors.ErrColumnNotFound))

	bad := "STAND_KEY,DOMSPECLAB,ORIGIN,SITE_INDEX,STAND_AGE,GIS_AREA\nBH1,LB,Natural,58,old,10\n"
	_, err = readStands(context.Background(), strings.NewReader(bad), DefaultStandOptions(1), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STAND_AGE")
}

func TestReadYields(t *testing.T) {
	data := strings.Join([]string{
		"iwc_id,Product,1,2,3",
		"BH1-1-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,P_TOP4M3PA,1.5,2|1,",
		"SI60-1-U-LB-TPA-XX-BA-XX-T1-14-T2-0-F1-0-F2-0,H_TOP4M3PA,x,0,3",
		"bad-id,P_TOP4M3PA,1,2,3",
	}, "\n")
	diag := apperrors.NewDiagnostics()

	rows, err := readYields(context.Background(), strings.NewReader(data), domain.YieldSourceStand, diag, infrastructure.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "BH1-1", rows[0].StandKey)
	assert.Equal(t, "T1-0-T2-0-F1-0-F2-0", rows[0].Trajectory)
	assert.Equal(t, domain.ProductSoftwood, rows[0].Product)
	assert.Equal(t, []float64{1.5, 2, 0}, rows[0].Volumes)

	assert.Equal(t, 60, rows[1].SIValue)
	assert.Equal(t, "LB", rows[1].RegenSpecies)
	assert.Equal(t, "T1-14-T2-0-F1-0-F2-0", rows[1].Trajectory)
	assert.True(t, math.IsNaN(rows[1].Volumes[0]))
	assert.Equal(t, 3.0, rows[1].Volumes[2])

	assert.Equal(t, 1, diag.CountByType()[apperrors.ErrTypeAmbiguousCategory])
}

func TestReadYieldsWithoutAgeColumns(t *testing.T) {
	_, err := readYields(context.Background(), strings.NewReader("iwc_id,Product\n"), domain.YieldSourceRegen, nil, infrastructure.DiscardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrColumnNotFound))
}

func conditionRows() [][]any {
	return [][]any{
		{"Boothill condition export"},
		{"StandID", "PERIOD", "Species", "Origin", "GrowType", "SI", "AGE", "AREA", "Thin1", "Thin2", "Fert1", "Fert2", "TreatmentType", "ManagementType"},
		{"BH1", 0, "COLB", "PY", "G", 62.5, 12, 40, 0, 0, 0, 0, "None", "Intensive"},
		{"BH1", 1, "COLB", "PY", "G", 62.5, 17, 40, 15, 0, 0, 0, "None", "Intensive"},
		{"BH2", 0, "SL", "NN", "G", 70, 25, 12.5, 14, 0, 15, 0, "Thin", "Standard"},
		{"BH2", 0, "SL", "NN", "G", 70, 25, 99, 14, 0, 15, 0, "Thin", "Standard"},
	}
}

func TestReadCondition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condition.xlsx")
	testutil.WriteWorkbook(t, path, config.ConditionSheet, conditionRows())

	records, err := ReadCondition(context.Background(), path, config.ConditionSheet, infrastructure.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, domain.ConditionRecord{
		StandKey: "BH2", Period: 0, Species: "SL", Origin: "NN", SiteIndex: 70, Age: 25, Area: 12.5,
		Thin1: 14, Fert1: 15, TreatmentType: "Thin", ManagementType: "Standard",
	}, records[2])

	diag := apperrors.NewDiagnostics()
	snap := Snapshot(records, diag)
	require.Len(t, snap, 2)
	assert.Equal(t, 12, snap["BH1"].Age)
	assert.Equal(t, 12.5, snap["BH2"].Area)
	assert.Equal(t, 1, diag.Len())

	assert.Equal(t, map[string]float64{"BH1": 40, "BH2": 12.5}, StandAreas(snap))
}

func TestReadConditionSheetLookup(t *testing.T) {
	dir := t.TempDir()
	logger := infrastructure.DiscardLogger()

	variant := filepath.Join(dir, "variant.xlsx")
	testutil.WriteWorkbook(t, variant, "CONDITION", conditionRows())
	records, err := ReadCondition(context.Background(), variant, config.ConditionSheet, logger)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	missing := filepath.Join(dir, "missing.xlsx")
	testutil.WriteWorkbook(t, missing, "Other", conditionRows())
	_, err = ReadCondition(context.Background(), missing, config.ConditionSheet, logger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSheetNotFound))
}

func scheduleRows() [][]any {
	return [][]any{
		{"TH1", "TH2", "TH3", "TH4", "TH5", "TH6", "TH7", "TH8", "TH9", "TH10", "YEAR", "ACTION", "AGE", "AREA"},
		{"BH1", "COLB", "PY", "G", 62.5, 0, 0, 0, 0, 0, 2030, "aHTHIN1", 15, 40},
		{"BH1", "COLB", "PY", "G", 62.5, 0, 16, 0, 15, 0, 2036, "aHTHIN2", 21, 40},
		{"BH1", "COLB", "PY", "G", 62.5, 0, 0, 0, 0, 0, 2040, "", 25, 40},
		{"", "COLB", "PY", "G", 62.5, 0, 0, 0, 0, 0, 2041, "aHCC", 26, 40},
	}
}

func TestReadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	testutil.WriteWorkbook(t, path, config.ScheduleSheet, scheduleRows())

	rows, err := ReadSchedule(context.Background(), path, config.ScheduleSheet, ScheduleLayout(config.ScheduleColumns), infrastructure.DiscardLogger())
	require.NoError(t, err)

	want := []domain.ScheduleRow{
		{StandKey: "BH1", Year: 2030, Action: "aHTHIN1", Age: 15, Area: 40, Species: "COLB", Origin: "PY", SiteIndex: 62.5},
		{StandKey: "BH1", Year: 2036, Action: "aHTHIN2", Age: 21, Area: 40, Species: "COLB", Origin: "PY", SiteIndex: 62.5, Thin1: 15, Fert1: 16},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleLayoutFallsBackToSemanticNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	testutil.WriteWorkbook(t, path, config.ScheduleSheet, [][]any{
		{"stand_key", "YEAR", "ACTION", "AGE", "thin1"},
		{"BH9", 2031, "aHCC", 30, 12},
	})

	rows, err := ReadSchedule(context.Background(), path, config.ScheduleSheet, ScheduleLayout{}, infrastructure.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BH9", rows[0].StandKey)
	assert.Equal(t, 12, rows[0].Thin1)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	paths := &config.Paths{
		StandsFile:    write("stands.csv", "STAND_KEY,DOMSPECLAB,ORIGIN,SITE_INDEX,STAND_AGE,GIS_AREA\nBH1,LB,Natural,58,12,10\n"),
		Yields1File:   write("y1.csv", "iwc_id,Product,1,2\nBH1-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,P_TOP4M3PA,1,2\n"),
		Yields2File:   write("y2.csv", "iwc_id,Product,1,2\nSI60-1-U-LB-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,P_TOP4M3PA,1,2\n"),
		Yields3File:   filepath.Join(dir, "thinsim.csv"),
		ConditionFile: filepath.Join(dir, "condition.xlsx"),
		ScheduleFile:  filepath.Join(dir, "schedule.xlsx"),
	}
	testutil.WriteWorkbook(t, paths.ConditionFile, config.ConditionSheet, conditionRows())
	testutil.WriteWorkbook(t, paths.ScheduleFile, config.ScheduleSheet, scheduleRows())

	loader := NewLoader(paths, DefaultStandOptions(config.AcresToHa), ScheduleLayout(config.ScheduleColumns), nil, infrastructure.DiscardLogger())
	src, err := loader.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, src.Stands, 1)
	assert.Len(t, src.Yields[domain.YieldSourceStand], 1)
	assert.Len(t, src.Yields[domain.YieldSourceRegen], 1)
	assert.Empty(t, src.Yields[domain.YieldSourceThinning])
	assert.Len(t, src.Condition, 4)
	assert.Len(t, src.Schedule, 2)
	assert.Len(t, src.Snapshot(nil), 2)
}

func TestLoadAllFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := &config.Paths{
		StandsFile:    filepath.Join(dir, "nope.csv"),
		Yields1File:   filepath.Join(dir, "nope1.csv"),
		Yields2File:   filepath.Join(dir, "nope2.csv"),
		ConditionFile: filepath.Join(dir, "nope.xlsx"),
		ScheduleFile:  filepath.Join(dir, "nope2.xlsx"),
	}
	loader := NewLoader(paths, DefaultStandOptions(1), ScheduleLayout(config.ScheduleColumns), nil, nil)
	_, err := loader.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}
