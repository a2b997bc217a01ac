package domain

// GrowthPeriod distinguishes a stand's first rotation from rotations after a clearcut.
type GrowthPeriod string

const (
	GrowthPeriodCurrent   GrowthPeriod = "current"
	GrowthPeriodPostRegen GrowthPeriod = "post_regen"
)

// ClassifierNames lists the classifier columns in output order.
var ClassifierNames = []string{
	"species",
	"origin",
	"si_class",
	"growth_period",
	"mgmt_trajectory",
}

// ClassifierTuple uniquely selects the yield curve a stand grows on.
// Tuples are values; transitions produce new tuples rather than editing one.
type ClassifierTuple struct {
	Species      string       `json:"species"`
	Origin       string       `json:"origin"`
	SIClass      string       `json:"si_class"`
	GrowthPeriod GrowthPeriod `json:"growth_period"`
	Trajectory   string       `json:"mgmt_trajectory"`
}

// Values returns the classifier values in ClassifierNames order.
func (c ClassifierTuple) Values() []string {
	return []string{c.Species, c.Origin, c.SIClass, string(c.GrowthPeriod), c.Trajectory}
}

// StandClassifiers pairs a stand with its assigned tuple and the raw site index
// that produced the SI class (regen lookups need the unrounded value).
type StandClassifiers struct {
	StandKey    string          `json:"stand_key"`
	Classifiers ClassifierTuple `json:"classifiers"`
	SIRaw       float64         `json:"si_raw"`
	Age         int             `json:"age"`
	AreaHa      float64         `json:"area_ha"`
	IsForest    bool            `json:"is_forest"`
}
