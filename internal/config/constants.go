package config

import "gcbmprep/pkg/contracts"

// Application constants
const (
	AppName    = "gcbmprep"
	AppVersion = contracts.Version

	// Unit conversions
	AcresToHa          = 0.404686
	M3PerAcreToM3PerHa = 2.47105 // 1/AcresToHa

	// Simulation window
	DefaultStartYear = 2026
	DefaultEndYear   = 2075

	// Yield table geometry
	DefaultMaxAgeCurrent = 78
	DefaultMaxAgeRegen   = 50
	DefaultSIInterval    = 5

	// File paths (relative to the root directory)
	DefaultOutputDir = "outputs"
	DefaultLogsDir   = "logs"
	DefaultLogFile   = "logs/gcbmprep.log"
	DefaultLogLevel  = "info"

	// Removal templates
	CategoryPrecommercial = "precommercial"
	CategoryCommercial    = "commercial"

	// Sheets
	ConditionSheet = "Condition"
	ScheduleSheet  = "Activity rawdata"

	// Output files
	ClassifiersCSV       = "classifiers.csv"
	YieldCurvesCSV       = "yield_curves.csv"
	InventoryCSV         = "inventory.csv"
	DisturbanceEventsCSV = "disturbance_events.csv"
	TransitionRulesCSV   = "transition_rules.csv"
	ThinningMappingCSV   = "thinning_disturbance_mapping.csv"
	ArchiveResultsCSV    = "archive_results.csv"

	DefaultLandClass       = "FL"
	DefaultRegenSpecies    = "LB"
	NoTreatmentDisturbance = "Wildfire"
)

// DomSpecToCode maps stand-table species names to species codes.
var DomSpecToCode = map[string]string{
	"Loblolly Pine": "LB",
	"Longleaf Pine": "LL",
	"Slash Pine":    "SL",
	"Pine/Hardwood": "PH",
	"Hard Hardwood": "HH",
	"Soft Hardwood": "SH",
	"Cutover":       "CO",
	"Undefined":     "UD",
}

// OriginLongToCode maps stand-table origin names to origin codes.
var OriginLongToCode = map[string]string{
	"Planted": "PY",
	"Natural": "NN",
	"Open":    "ONO",
}

// NonForestSpecies and NonForestOrigin mark stands that get no classifiers.
const (
	NonForestSpecies = "UD"
	NonForestOrigin  = "Open"
)

// ActionToDisturbance maps schedule action codes to disturbance type names.
var ActionToDisturbance = map[string]string{
	"aHCC":    "Clearcut",
	"aHTHIN1": "1st_Thin",
	"aHTHIN2": "2nd_Thin",
	"aSP":     "Site_Prep",
}

// NonDisturbanceActions are scheduled actions whose effect lives in the yield curves.
var NonDisturbanceActions = map[string]bool{
	"aPLT":   true,
	"aFERTL": true,
	"aFERTM": true,
}

// HistoricalDisturbance maps an origin code to its historical and last-pass
// disturbance types.
var HistoricalDisturbance = map[string][2]string{
	"PY":  {"Clearcut", "Clearcut"},
	"NN":  {"Wildfire", "Wildfire"},
	"NY":  {"Clearcut", "Clearcut"},
	"OY":  {"Clearcut", "Site_Prep"},
	"ONO": {"Wildfire", "Wildfire"},
}

// RegenSpecies collapses condition species codes onto the species the
// regeneration table is keyed by. Codes missing here fall back to
// DefaultRegenSpecies for curve lookup.
var RegenSpecies = map[string]string{
	"LB":   "LB",
	"LL":   "LL",
	"SL":   "SL",
	"COLB": "LB",
	"CSLB": "LB",
	"COLL": "LL",
	"CSLL": "LL",
	"COSL": "SL",
	"CSSL": "SL",
	"PH":   "LB",
	"HH":   "LB",
	"SH":   "LB",
}

// ScheduleColumns maps the schedule's TH* columns to semantic names.
var ScheduleColumns = map[string]string{
	"TH1":  "stand_key",
	"TH2":  "species",
	"TH3":  "origin",
	"TH4":  "grow_type",
	"TH5":  "si",
	"TH6":  "fert0",
	"TH7":  "fert1",
	"TH8":  "fert2",
	"TH9":  "thin1",
	"TH10": "thin2",
	"TH11": "zone",
	"TH12": "treatment_type",
	"TH13": "management_type",
}

// StandardDisturbances already exist in every archive and are only verified.
var StandardDisturbances = []string{"97% clear-cut", "Planting"}

// ReplantSpecies maps a stand species to the species planted after a
// clearcut. Cutover codes go back to their base pine and hardwood sites are
// replanted to loblolly. Other species are replanted as themselves.
var ReplantSpecies = map[string]string{
	"COLB": "LB",
	"COLL": "LL",
	"COSL": "SL",
	"CSLB": "LB",
	"CSLL": "LL",
	"CSSL": "SL",
	"PH":   "LB",
	"HH":   "LB",
	"SH":   "LB",
}
