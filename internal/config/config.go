package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g. GCBM_SIMULATION_START_YEAR.
const EnvPrefix = "GCBM"

// Config represents the complete pipeline configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Simulation  SimulationConfig  `yaml:"simulation" envconfig:"SIMULATION"`
	Classifier  ClassifierConfig  `yaml:"classifier" envconfig:"CLASSIFIER"`
	Regen       RegenConfig       `yaml:"regen" envconfig:"REGEN"`
	Disturbance DisturbanceConfig `yaml:"disturbance" envconfig:"DISTURBANCE"`
	Archive     ArchiveConfig     `yaml:"archive" envconfig:"ARCHIVE"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains input and output locations. Relative entries are
// resolved against RootDir.
type PathsConfig struct {
	RootDir       string `yaml:"root_dir" envconfig:"ROOT_DIR"`
	StandsFile    string `yaml:"stands_file" envconfig:"STANDS_FILE" validate:"required"`
	Yields1File   string `yaml:"yields1_file" envconfig:"YIELDS1_FILE" validate:"required"`
	Yields2File   string `yaml:"yields2_file" envconfig:"YIELDS2_FILE" validate:"required"`
	Yields3File   string `yaml:"yields3_file" envconfig:"YIELDS3_FILE"`
	ConditionFile string `yaml:"condition_file" envconfig:"CONDITION_FILE" validate:"required"`
	ScheduleFile  string `yaml:"schedule_file" envconfig:"SCHEDULE_FILE" validate:"required"`
	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SimulationConfig holds the simulation window and yield table geometry.
type SimulationConfig struct {
	StartYear     int     `yaml:"start_year" envconfig:"START_YEAR" validate:"gt=0"`
	EndYear       int     `yaml:"end_year" envconfig:"END_YEAR" validate:"gtefield=StartYear"`
	VolumeFactor  float64 `yaml:"volume_factor" envconfig:"VOLUME_FACTOR" validate:"gt=0"`
	AreaFactor    float64 `yaml:"area_factor" envconfig:"AREA_FACTOR" validate:"gt=0"`
	MaxAgeCurrent int     `yaml:"max_age_current" envconfig:"MAX_AGE_CURRENT" validate:"gt=0"`
	MaxAgeRegen   int     `yaml:"max_age_regen" envconfig:"MAX_AGE_REGEN" validate:"gt=0,ltefield=MaxAgeCurrent"`
}

// ClassifierConfig controls classifier derivation.
type ClassifierConfig struct {
	SIInterval int `yaml:"si_interval" envconfig:"SI_INTERVAL" validate:"gt=0"`
}

// RegenConfig bounds the regeneration site-index grid.
type RegenConfig struct {
	SIMin     int `yaml:"si_min" envconfig:"SI_MIN" validate:"gt=0"`
	SIMax     int `yaml:"si_max" envconfig:"SI_MAX" validate:"gtefield=SIMin"`
	SIDefault int `yaml:"si_default" envconfig:"SI_DEFAULT" validate:"gt=0"`
	SIStep    int `yaml:"si_step" envconfig:"SI_STEP" validate:"gt=0"`
}

// DisturbanceConfig holds event classification thresholds.
type DisturbanceConfig struct {
	ClusterGapYears    int     `yaml:"cluster_gap_years" envconfig:"CLUSTER_GAP_YEARS" validate:"gte=0"`
	FullAreaFraction   float64 `yaml:"full_area_fraction" envconfig:"FULL_AREA_FRACTION" validate:"gt=0,lte=1"`
	ClearcutRemovalPct float64 `yaml:"clearcut_removal_pct" envconfig:"CLEARCUT_REMOVAL_PCT" validate:"gte=0,lte=100"`
}

// ArchiveConfig points at the disturbance archive database.
type ArchiveConfig struct {
	Driver    string           `yaml:"driver" envconfig:"DRIVER" validate:"oneof=sqlite postgres"`
	DSN       string           `yaml:"dsn" envconfig:"DSN"`
	DryRun    bool             `yaml:"dry_run" envconfig:"DRY_RUN"`
	Skip      bool             `yaml:"skip" envconfig:"SKIP"`
	Tolerance float64          `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gt=0"`
	Templates []TemplateConfig `yaml:"templates" ignored:"true" validate:"min=1,dive"`
}

// TemplateConfig describes one removal-matrix template.
type TemplateConfig struct {
	Category    string  `yaml:"category" validate:"required"`
	DMID        int     `yaml:"dmid" validate:"gt=0"`
	Baseline    float64 `yaml:"baseline" validate:"gt=0,lte=1"`
	StructureID int     `yaml:"structure_id" validate:"gt=0"`
}

// TelemetryConfig controls tracing and metrics output.
type TelemetryConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	TraceFile      string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile    string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GCBM_* environment variables, in increasing order of precedence.
// An empty configFile searches the usual locations.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"gcbmprep.yaml",
		"config.yaml",
		"configs/gcbmprep.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, formatValidationError(fe))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	if c.Regen.SIDefault < c.Regen.SIMin || c.Regen.SIDefault > c.Regen.SIMax {
		return fmt.Errorf("regen.si_default %d outside [%d, %d]", c.Regen.SIDefault, c.Regen.SIMin, c.Regen.SIMax)
	}

	seen := make(map[string]bool)
	for _, tpl := range c.Archive.Templates {
		key := strings.ToLower(tpl.Category)
		if seen[key] {
			return fmt.Errorf("archive.templates: duplicate category %q", tpl.Category)
		}
		seen[key] = true
	}

	if c.Logging.FilePath == "" && (c.Logging.Output == "file" || c.Logging.Output == "both") {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := strings.TrimPrefix(err.Namespace(), "Config.")
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, param)
	case "ltefield":
		return fmt.Sprintf("%s must not be greater than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Template returns the removal-matrix template for a category.
func (c *Config) Template(category string) (TemplateConfig, bool) {
	for _, tpl := range c.Archive.Templates {
		if strings.EqualFold(tpl.Category, category) {
			return tpl, true
		}
	}
	return TemplateConfig{}, false
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			RootDir:       ".",
			StandsFile:    "inputs/stands.csv",
			Yields1File:   "inputs/yields1.csv",
			Yields2File:   "inputs/yields2_regen.csv",
			Yields3File:   "inputs/yields3_thinsim.csv",
			ConditionFile: "inputs/condition.xlsx",
			ScheduleFile:  "inputs/schedule.xlsx",
			OutputDir:     DefaultOutputDir,
			LogsDir:       DefaultLogsDir,
		},
		Simulation: SimulationConfig{
			StartYear:     DefaultStartYear,
			EndYear:       DefaultEndYear,
			VolumeFactor:  M3PerAcreToM3PerHa,
			AreaFactor:    AcresToHa,
			MaxAgeCurrent: DefaultMaxAgeCurrent,
			MaxAgeRegen:   DefaultMaxAgeRegen,
		},
		Classifier: ClassifierConfig{
			SIInterval: DefaultSIInterval,
		},
		Regen: RegenConfig{
			SIMin:     50,
			SIMax:     100,
			SIDefault: 50,
			SIStep:    DefaultSIInterval,
		},
		Disturbance: DisturbanceConfig{
			ClusterGapYears:    10,
			FullAreaFraction:   0.95,
			ClearcutRemovalPct: 97,
		},
		Archive: ArchiveConfig{
			Driver:    "sqlite",
			DSN:       "outputs/archive.db",
			Tolerance: 0.001,
			Templates: []TemplateConfig{
				{Category: CategoryPrecommercial, DMID: 20136, Baseline: 0.85, StructureID: 2},
				{Category: CategoryCommercial, DMID: 20112, Baseline: 0.50, StructureID: 2},
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
		},
	}
}
