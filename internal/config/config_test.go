package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the given variables for the duration of the test.
func clearEnv(t *testing.T, vars ...string) {
	t.Helper()
	for _, v := range vars {
		if old, ok := os.LookupEnv(v); ok {
			os.Unsetenv(v)
			t.Cleanup(func() { os.Setenv(v, old) })
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gcbmprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2026, cfg.Simulation.StartYear)
	assert.Equal(t, 2075, cfg.Simulation.EndYear)
	assert.Equal(t, 2.47105, cfg.Simulation.VolumeFactor)
	assert.Equal(t, 78, cfg.Simulation.MaxAgeCurrent)
	assert.Equal(t, 50, cfg.Simulation.MaxAgeRegen)
	assert.Equal(t, 5, cfg.Classifier.SIInterval)
	assert.Equal(t, 50, cfg.Regen.SIDefault)
	assert.Equal(t, 10, cfg.Disturbance.ClusterGapYears)
	assert.Equal(t, 0.95, cfg.Disturbance.FullAreaFraction)
	assert.Equal(t, 97.0, cfg.Disturbance.ClearcutRemovalPct)
	assert.Equal(t, "sqlite", cfg.Archive.Driver)
	require.Len(t, cfg.Archive.Templates, 2)

	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	clearEnv(t, "GCBM_SIMULATION_START_YEAR", "GCBM_LOGGING_LEVEL", "GCBM_ARCHIVE_DRIVER", "GCBM_ARCHIVE_DSN")

	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "file overrides defaults",
			file: `
simulation:
  start_year: 2030
  end_year: 2079
disturbance:
  full_area_fraction: 0.9
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2030, cfg.Simulation.StartYear)
				assert.Equal(t, 2079, cfg.Simulation.EndYear)
				assert.Equal(t, 0.9, cfg.Disturbance.FullAreaFraction)
				// untouched keys keep defaults
				assert.Equal(t, 78, cfg.Simulation.MaxAgeCurrent)
				assert.Equal(t, 10, cfg.Disturbance.ClusterGapYears)
			},
		},
		{
			name: "env overrides file",
			file: `
simulation:
  start_year: 2030
  end_year: 2079
logging:
  level: warn
`,
			env: map[string]string{
				"GCBM_SIMULATION_START_YEAR": "2031",
				"GCBM_ARCHIVE_DRIVER":        "postgres",
				"GCBM_ARCHIVE_DSN":           "postgres://localhost/aidb",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2031, cfg.Simulation.StartYear)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "postgres", cfg.Archive.Driver)
				assert.Equal(t, "postgres://localhost/aidb", cfg.Archive.DSN)
			},
		},
		{
			name: "templates from file",
			file: `
archive:
  templates:
    - category: commercial
      dmid: 30000
      baseline: 0.4
      structure_id: 3
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				tpl, ok := cfg.Template("Commercial")
				require.True(t, ok)
				assert.Equal(t, 30000, tpl.DMID)
				assert.Equal(t, 0.4, tpl.Baseline)
				_, ok = cfg.Template("precommercial")
				assert.False(t, ok)
			},
		},
		{
			name:    "invalid driver",
			env:     map[string]string{"GCBM_ARCHIVE_DRIVER": "access"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "simulation: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			} else {
				path = writeConfigFile(t, "{}")
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "end before start",
			mutate:  func(c *Config) { c.Simulation.EndYear = 2000 },
			wantErr: "simulation.end_year",
		},
		{
			name:    "regen default outside grid",
			mutate:  func(c *Config) { c.Regen.SIDefault = 120 },
			wantErr: "regen.si_default",
		},
		{
			name:    "full area fraction above one",
			mutate:  func(c *Config) { c.Disturbance.FullAreaFraction = 1.5 },
			wantErr: "disturbance.full_area_fraction",
		},
		{
			name: "duplicate template",
			mutate: func(c *Config) {
				c.Archive.Templates = append(c.Archive.Templates, c.Archive.Templates[0])
			},
			wantErr: "duplicate category",
		},
		{
			name:    "no templates",
			mutate:  func(c *Config) { c.Archive.Templates = nil },
			wantErr: "archive.templates",
		},
		{
			name:    "missing stands file",
			mutate:  func(c *Config) { c.Paths.StandsFile = "" },
			wantErr: "paths.stands_file is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFillsLogFile(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
}
