package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains every resolved file system location the pipeline touches.
// This is the single source of truth for file paths; nothing else joins
// against the root directory.
type Paths struct {
	RootDir   string
	OutputDir string
	LogsDir   string

	// Inputs
	StandsFile    string
	Yields1File   string
	Yields2File   string
	Yields3File   string
	ConditionFile string
	ScheduleFile  string

	// Outputs
	ClassifiersCSV       string
	YieldCurvesCSV       string
	InventoryCSV         string
	DisturbanceEventsCSV string
	TransitionRulesCSV   string
	ThinningMappingCSV   string
	ArchiveResultsCSV    string
}

// GetPaths resolves the configured paths against the root directory.
// An empty root directory means the current working directory.
func GetPaths(cfg PathsConfig) (*Paths, error) {
	root := cfg.RootDir
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}

	outputDir := resolve(cfg.OutputDir)
	if outputDir == "" {
		outputDir = filepath.Join(root, DefaultOutputDir)
	}
	logsDir := resolve(cfg.LogsDir)
	if logsDir == "" {
		logsDir = filepath.Join(root, DefaultLogsDir)
	}

	return &Paths{
		RootDir:   root,
		OutputDir: outputDir,
		LogsDir:   logsDir,

		StandsFile:    resolve(cfg.StandsFile),
		Yields1File:   resolve(cfg.Yields1File),
		Yields2File:   resolve(cfg.Yields2File),
		Yields3File:   resolve(cfg.Yields3File),
		ConditionFile: resolve(cfg.ConditionFile),
		ScheduleFile:  resolve(cfg.ScheduleFile),

		ClassifiersCSV:       filepath.Join(outputDir, ClassifiersCSV),
		YieldCurvesCSV:       filepath.Join(outputDir, YieldCurvesCSV),
		InventoryCSV:         filepath.Join(outputDir, InventoryCSV),
		DisturbanceEventsCSV: filepath.Join(outputDir, DisturbanceEventsCSV),
		TransitionRulesCSV:   filepath.Join(outputDir, TransitionRulesCSV),
		ThinningMappingCSV:   filepath.Join(outputDir, ThinningMappingCSV),
		ArchiveResultsCSV:    filepath.Join(outputDir, ArchiveResultsCSV),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	logger := slog.Default()

	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetOutputPath returns the path for a file in the output directory
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// ValidateRequiredFiles checks that every mandatory input exists. The
// thinning-simulation table is optional.
func (p *Paths) ValidateRequiredFiles() error {
	requiredFiles := []struct {
		name string
		path string
	}{
		{"stands", p.StandsFile},
		{"yields1", p.Yields1File},
		{"yields2", p.Yields2File},
		{"condition", p.ConditionFile},
		{"schedule", p.ScheduleFile},
	}

	var missingFiles []string
	for _, f := range requiredFiles {
		if f.path == "" || !FileExists(f.path) {
			missingFiles = append(missingFiles, fmt.Sprintf("%s (%s)", f.name, f.path))
		}
	}

	if len(missingFiles) > 0 {
		return fmt.Errorf("required files missing: %s", strings.Join(missingFiles, ", "))
	}

	return nil
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("root", p.RootDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("inputs",
			slog.String("stands", p.StandsFile),
			slog.String("yields1", p.Yields1File),
			slog.String("yields2", p.Yields2File),
			slog.String("yields3", p.Yields3File),
			slog.String("condition", p.ConditionFile),
			slog.String("schedule", p.ScheduleFile),
		))
}
