package domain

// Product identifies one volume series of a yield table.
type Product string

const (
	// ProductSoftwood is merchantable pine volume (P_TOP4M3PA).
	ProductSoftwood Product = "P_TOP4M3PA"
	// ProductHardwood is merchantable hardwood volume (H_TOP4M3PA).
	ProductHardwood Product = "H_TOP4M3PA"
	// ProductRemoved is pine volume taken out by a thinning (qP_TOP4M3PA).
	ProductRemoved Product = "qP_TOP4M3PA"
	// ProductRemovedHardwood is hardwood volume taken out by a thinning.
	// Most yield tables do not carry it; a missing series counts as zero.
	ProductRemovedHardwood Product = "qH_TOP4M3PA"
)

// LeadingSpecies returns the curve label used in the exported yield table.
func (p Product) LeadingSpecies() string {
	switch p {
	case ProductSoftwood:
		return "Softwood"
	case ProductHardwood:
		return "Hardwood"
	default:
		return string(p)
	}
}

// YieldSource names the table a yield row was read from.
type YieldSource string

const (
	YieldSourceStand    YieldSource = "yields1"
	YieldSourceRegen    YieldSource = "yields2"
	YieldSourceThinning YieldSource = "yields3"
)

// YieldRow is one raw row of a yield table, volumes still in source units.
// Stand-specific rows carry StandKey; regeneration rows carry SIValue and RegenSpecies.
type YieldRow struct {
	Source       YieldSource `json:"source"`
	ID           string      `json:"iwc_id"`
	StandKey     string      `json:"stand_key,omitempty"`
	SIValue      int         `json:"si_value,omitempty"`
	RegenSpecies string      `json:"species_code,omitempty"`
	Trajectory   string      `json:"mgmt_trajectory"`
	Product      Product     `json:"product"`
	Volumes      []float64   `json:"volumes"`
}

// CurveRecord is one row of the exported yield-curve table.
type CurveRecord struct {
	ID          int             `json:"yield_curve_id"`
	StandKey    string          `json:"stand_key"`
	Classifiers ClassifierTuple `json:"classifiers"`
	Product     Product         `json:"product"`
	Volumes     []float64       `json:"volumes"`
}
