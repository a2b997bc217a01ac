// Package config provides centralized configuration management for gcbmprep.
// It handles loading configuration from multiple sources, validation, and
// path resolution for every pipeline input and output.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GCBM_<SECTION>_<KEY>:
//
//	GCBM_LOGGING_LEVEL=debug
//	GCBM_PATHS_ROOT_DIR=/data/boothill
//	GCBM_SIMULATION_START_YEAR=2026
//	GCBM_ARCHIVE_DRIVER=postgres
//	GCBM_ARCHIVE_DSN=postgres://gcbm@localhost/aidb?sslmode=disable
//
// Removal-matrix templates are only configurable from the YAML file.
//
// # Path Management
//
// Paths resolves configured inputs and outputs against the root directory:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	events := paths.DisturbanceEventsCSV
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//
// # Testing
//
// Use config.Default() for a configuration that needs no environment or files.
package config
