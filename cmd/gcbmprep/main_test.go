package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcbmprep/internal/dmatrix"
)

// executeCommand runs the root command with fresh flag values and returns its
// standard output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, rootDir, logLevel = "", "", ""
	archiveDB, eventsCSV = "", ""
	dryRun, skipArchive = false, false
	inspectDMID = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseDisturbanceCommand(t *testing.T) {
	root := t.TempDir()
	out, err := executeCommand(t, "--root", root, "parse-disturbance", "25% commercial thinning", "97% clear-cut")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "scalable")
	assert.Contains(t, lines[1], "0.2500")
	assert.Contains(t, lines[1], "commercial")
	assert.Contains(t, lines[2], "standard")

	_, err = executeCommand(t, "--root", root, "parse-disturbance", "shelterwood")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
}

func TestRunCommandReportsFailedStep(t *testing.T) {
	root := t.TempDir()
	out, err := executeCommand(t, "--root", root, "run", "--skip-archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stands")
	assert.Contains(t, out, "ingest")
	assert.Contains(t, out, "failed")
	assert.DirExists(t, filepath.Join(root, "outputs"))
}

func TestArchiveCommandDryRun(t *testing.T) {
	root := t.TempDir()
	events := filepath.Join(root, "events.csv")
	require.NoError(t, os.WriteFile(events, []byte(strings.Join([]string{
		"timestep,stand_key,disturbance_type,pct_volume_removed,year,age,area",
		"10,BH1,25% commercial thinning,25,2030,4,40.47",
		"20,BH1,97% clear-cut,,2040,14,40.47",
	}, "\n")+"\n"), 0o644))
	db := filepath.Join(root, "archive.db")

	out, err := executeCommand(t, "--root", root, "archive", "--events-csv", events, "--archive-db", db, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "load_events")
	assert.Contains(t, out, "archive")
	assert.FileExists(t, db)
	assert.FileExists(t, filepath.Join(root, "outputs", "archive_results.csv"))
}

func TestInspectArchiveCommand(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "archive.db")

	ctx := context.Background()
	db, err := dmatrix.Open(ctx, dmatrix.DriverSQLite, path)
	require.NoError(t, err)
	store := dmatrix.NewStore(db, dmatrix.Options{Driver: dmatrix.DriverSQLite}, nil, nil)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = db.Exec(`INSERT INTO tblEcoBoundaryDefault (EcoBoundaryID, EcoBoundaryName) VALUES (1, 'Southeast Plains')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tblSpeciesTypeDefault (SpeciesTypeID, SpeciesTypeName) VALUES (7, 'Loblolly pine')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := executeCommand(t, "--root", root, "inspect-archive", "--archive-db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Southeast Plains")
	assert.Contains(t, out, "Loblolly pine")

	_, err = executeCommand(t, "--root", root, "inspect-archive", "--archive-db", path, "--dmid", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "99")
}

func TestValidateCommand(t *testing.T) {
	root := t.TempDir()
	inputs := filepath.Join(root, "inputs")
	require.NoError(t, os.MkdirAll(inputs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputs, "stands.csv"), []byte("STAND_KEY,GIS_AREA\nBH1,1\n"), 0o644))

	out, err := executeCommand(t, "--root", root, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 input problems")
	assert.Contains(t, out, "yields1")
	assert.Contains(t, out, "schedule")
	assert.NotContains(t, out, "stands (")
	assert.NotContains(t, out, "yields3")
}
