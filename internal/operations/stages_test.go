package operations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcbmprep/internal/config"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/internal/shared/testutil"
	"gcbmprep/pkg/contracts/domain"
)

// setupRun writes a two-stand project: BH1 is a loblolly stand thinned in
// 2030 and clearcut in 2040, BH3 is open ground.
func setupRun(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()
	dir := t.TempDir()

	testutil.WriteLines(t, filepath.Join(dir, "stands.csv"),
		"STAND_KEY,DOMSPECLAB,ORIGIN,SITE_INDEX,STAND_AGE,GIS_AREA",
		"BH1,LB,Planted,60,10,100",
		"BH3,UD,Open,0,0,5",
	)
	testutil.WriteLines(t, filepath.Join(dir, "yields1.csv"),
		"iwc_id,Product,1,2,3,4,5,6",
		"BH1-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,P_TOP4M3PA,1,2,3,4,5,6",
		"BH1-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,H_TOP4M3PA,0,0,1,1,1,1",
		"BH1-TPA-XX-BA-XX-T1-4-T2-0-F1-0-F2-0,P_TOP4M3PA,1,2,3,2,3,4",
		"BH1-TPA-XX-BA-XX-T1-4-T2-0-F1-0-F2-0,H_TOP4M3PA,0,0,1,1,1,1",
	)
	testutil.WriteLines(t, filepath.Join(dir, "yields2.csv"),
		"iwc_id,Product,1,2,3,4",
		"SI60-1-U-LB-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,P_TOP4M3PA,1,2,3,4",
		"SI60-1-U-LB-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0,H_TOP4M3PA,0,1,1,1",
	)
	testutil.WriteWorkbook(t, filepath.Join(dir, "condition.xlsx"), config.ConditionSheet, [][]any{
		{"StandID", "PERIOD", "Species", "Origin", "SI", "AGE", "AREA", "Thin1", "Thin2", "Fert1", "Fert2"},
		{"BH1", 0, "LB", "PY", 60, 10, 100, 0, 0, 0, 0},
	})
	testutil.WriteWorkbook(t, filepath.Join(dir, "schedule.xlsx"), config.ScheduleSheet, [][]any{
		{"TH1", "TH2", "TH3", "TH5", "TH9", "TH10", "YEAR", "ACTION", "AGE", "AREA"},
		{"BH1", "LB", "PY", 60, 0, 0, 2030, "aHTHIN1", 4, 100},
		{"BH1", "LB", "PY", 60, 0, 0, 2032, "aFERTM", 6, 100},
		{"BH1", "LB", "PY", 60, 4, 0, 2040, "aHCC", 14, 100},
	})

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		RootDir:       dir,
		StandsFile:    "stands.csv",
		Yields1File:   "yields1.csv",
		Yields2File:   "yields2.csv",
		ConditionFile: "condition.xlsx",
		ScheduleFile:  "schedule.xlsx",
		OutputDir:     "outputs",
		LogsDir:       "logs",
	}
	cfg.Simulation.MaxAgeCurrent = 6
	cfg.Simulation.MaxAgeRegen = 4
	cfg.Archive.DSN = "archive/archive.db"
	cfg.Telemetry.MetricsFile = "outputs/gcbmprep.prom"

	paths, err := config.GetPaths(cfg.Paths)
	require.NoError(t, err)
	return cfg, paths
}

func runPipeline(t *testing.T, p *Pipeline, steps []Step) *OperationState {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, Register(reg, steps))
	state, err := NewRunner(reg, nil, nil, p.metrics, infrastructure.DiscardLogger()).Run(context.Background())
	require.NoError(t, err)
	return state
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg, paths := setupRun(t)
	metrics := infrastructure.NewMetrics()
	p := NewPipeline(cfg, paths, PipelineOptions{DryRun: true}, nil, metrics, infrastructure.DiscardLogger())

	state := runPipeline(t, p, p.Steps())
	assert.Equal(t, OperationStatusCompleted, state.GetStatus())

	ids := make([]string, 0)
	for _, s := range state.Ordered() {
		ids = append(ids, s.ID)
		assert.Equal(t, StepStatusCompleted, s.GetStatus(), s.ID)
	}
	assert.Equal(t, []string{
		StepIDIngest, StepIDClassify, StepIDYieldCurves, StepIDInventory,
		StepIDDisturbances, StepIDTransitions, StepIDClassifiers, StepIDArchive,
	}, ids)

	require.Len(t, p.Stands, 2)
	assert.Len(t, p.Inventory, 1)
	assert.Equal(t, "BH1", p.Inventory[0].StandKey)

	require.Len(t, p.Events, 2)
	assert.Equal(t, domain.KindFirstThin, p.Events[0].Type.Kind)
	assert.Equal(t, domain.KindClearcut, p.Events[1].Type.Kind)
	assert.Len(t, p.Transitions, 2)
	assert.NotEmpty(t, p.Curves)

	for _, file := range []string{
		paths.ClassifiersCSV,
		paths.YieldCurvesCSV,
		paths.InventoryCSV,
		paths.DisturbanceEventsCSV,
		paths.TransitionRulesCSV,
		paths.ThinningMappingCSV,
		paths.ArchiveResultsCSV,
	} {
		assert.FileExists(t, file)
	}

	out, ok := state.GetStage(StepIDDisturbances).GetMetadata(MetaOutputFile)
	assert.True(t, ok)
	assert.Equal(t, paths.DisturbanceEventsCSV, out)
	dry, _ := state.GetStage(StepIDArchive).GetMetadata(MetaDryRun)
	assert.Equal(t, true, dry)
	for _, r := range p.Archive {
		assert.False(t, r.Created && !r.DryRun, r.Name)
	}

	require.NoError(t, p.Finish(context.Background()))
	prom, err := os.ReadFile(filepath.Join(paths.RootDir, "outputs", "gcbmprep.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "gcbmprep_step_duration_seconds")
	assert.Contains(t, string(prom), `gcbmprep_disturbance_events_total{kind="Clearcut"} 1`)
}

func TestPipelineSkipArchive(t *testing.T) {
	cfg, paths := setupRun(t)
	p := NewPipeline(cfg, paths, PipelineOptions{SkipArchive: true}, nil, nil, infrastructure.DiscardLogger())

	state := runPipeline(t, p, p.Steps())
	assert.Equal(t, StepStatusSkipped, state.GetStage(StepIDArchive).GetStatus())
	assert.NoFileExists(t, p.ArchiveDSN())
	assert.NoFileExists(t, paths.ArchiveResultsCSV)
}

func TestPipelineArchiveFromEvents(t *testing.T) {
	cfg, paths := setupRun(t)
	first := NewPipeline(cfg, paths, PipelineOptions{SkipArchive: true}, nil, nil, infrastructure.DiscardLogger())
	runPipeline(t, first, first.Steps())

	p := NewPipeline(cfg, paths, PipelineOptions{DryRun: true}, nil, nil, infrastructure.DiscardLogger())
	state := runPipeline(t, p, p.ArchiveSteps(paths.DisturbanceEventsCSV))

	assert.Equal(t, StepStatusCompleted, state.GetStage(StepIDLoadEvents).GetStatus())
	assert.Len(t, p.Events, len(first.Events))
	assert.NotEmpty(t, p.Archive)
	assert.FileExists(t, p.ArchiveDSN())
}

func TestPipelineFailsWithoutInputs(t *testing.T) {
	cfg, paths := setupRun(t)
	require.NoError(t, os.Remove(paths.StandsFile))
	p := NewPipeline(cfg, paths, PipelineOptions{}, nil, nil, infrastructure.DiscardLogger())

	reg := NewRegistry()
	require.NoError(t, Register(reg, p.Steps()))
	state, err := NewRunner(reg, nil, nil, nil, infrastructure.DiscardLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stands")
	assert.Equal(t, StepStatusFailed, state.GetStage(StepIDIngest).GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStage(StepIDArchive).GetStatus())
}

func TestArchiveDSN(t *testing.T) {
	cfg, paths := setupRun(t)
	p := NewPipeline(cfg, paths, PipelineOptions{}, nil, nil, nil)
	assert.Equal(t, filepath.Join(paths.RootDir, "archive", "archive.db"), p.ArchiveDSN())

	abs := filepath.Join(t.TempDir(), "other.db")
	p = NewPipeline(cfg, paths, PipelineOptions{ArchiveDSN: abs}, nil, nil, nil)
	assert.Equal(t, abs, p.ArchiveDSN())

	templates := ArchiveTemplates(cfg.Archive)
	require.Len(t, templates, 2)
	assert.Equal(t, domain.RemovalCategory(config.CategoryPrecommercial), templates[0].Category)
	assert.Equal(t, 20136, templates[0].DMID)
}
