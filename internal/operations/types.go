package operations

import (
	"time"
)

// Pipeline step identifiers, in execution order. load_events replaces the
// first seven steps when only the archive is updated.
const (
	StepIDIngest       = "ingest"
	StepIDClassify     = "classify"
	StepIDYieldCurves  = "yield_curves"
	StepIDInventory    = "inventory"
	StepIDDisturbances = "disturbances"
	StepIDTransitions  = "transitions"
	StepIDClassifiers  = "classifiers"
	StepIDArchive      = "archive"
	StepIDLoadEvents   = "load_events"
)

// Pipeline step names
const (
	StepNameIngest       = "Load Sources"
	StepNameClassify     = "Classifier Assignment"
	StepNameYieldCurves  = "Yield Curve Export"
	StepNameInventory    = "Starting Inventory"
	StepNameDisturbances = "Disturbance Events"
	StepNameTransitions  = "Transition Rules"
	StepNameClassifiers  = "Classifier Values"
	StepNameArchive      = "Disturbance Archive"
	StepNameLoadEvents   = "Load Event Table"
)

// Step metadata keys
const (
	MetaRows       = "rows"
	MetaOutputFile = "output_file"
	MetaCreated    = "created"
	MetaDryRun     = "dry_run"
)

// Default timeouts
const (
	DefaultStepTimeout    = 30 * time.Minute
	DefaultIngestTimeout  = 10 * time.Minute
	DefaultArchiveTimeout = 15 * time.Minute
)
