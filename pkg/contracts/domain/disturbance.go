package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DisturbanceKind is the family a disturbance event belongs to.
type DisturbanceKind string

const (
	KindClearcut        DisturbanceKind = "Clearcut"
	KindPartialClearcut DisturbanceKind = "PartialClearcut"
	KindFirstThin       DisturbanceKind = "1st_Thin"
	KindSecondThin      DisturbanceKind = "2nd_Thin"
	KindSitePrep        DisturbanceKind = "Site_Prep"
)

// IsThin reports whether the kind is a commercial thinning.
func (k DisturbanceKind) IsThin() bool {
	return k == KindFirstThin || k == KindSecondThin
}

const partialClearcutSuffix = "% clearcut"

// DisturbanceType is the name an event carries into the model, e.g. "Clearcut"
// or "40.00% clearcut".
type DisturbanceType struct {
	Kind        DisturbanceKind `json:"kind"`
	AreaPercent float64         `json:"area_percent,omitempty"`
}

// Name returns the disturbance type name as written to the event table.
func (d DisturbanceType) Name() string {
	if d.Kind == KindPartialClearcut {
		return fmt.Sprintf("%.2f%s", d.AreaPercent, partialClearcutSuffix)
	}
	return string(d.Kind)
}

// IsPartialClearcutName reports whether name has the fractional clearcut form.
func IsPartialClearcutName(name string) bool {
	return strings.HasSuffix(name, partialClearcutSuffix)
}

// ParseDisturbanceType reverses Name. It reports false for names that are
// neither a known kind nor a fractional clearcut.
func ParseDisturbanceType(name string) (DisturbanceType, bool) {
	name = strings.TrimSpace(name)
	switch k := DisturbanceKind(name); k {
	case KindClearcut, KindFirstThin, KindSecondThin, KindSitePrep:
		return DisturbanceType{Kind: k}, true
	}
	if pct, ok := strings.CutSuffix(name, partialClearcutSuffix); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err == nil && v > 0 {
			return DisturbanceType{Kind: KindPartialClearcut, AreaPercent: v}, true
		}
	}
	return DisturbanceType{}, false
}

// DisturbanceEvent is one disturbance applied to a stand in a given year.
// Events are finalized by the disturbance pipeline and never edited afterwards;
// each stage returns new events.
type DisturbanceEvent struct {
	StandKey          string          `json:"stand_key"`
	Year              int             `json:"year"`
	Action            string          `json:"action"`
	Type              DisturbanceType `json:"disturbance_type"`
	Age               int             `json:"age"`
	Area              float64         `json:"area"`
	Rotation          int             `json:"rotation"`
	RemovalPercent    float64         `json:"pct_volume_removed"`
	HasRemovalPercent bool            `json:"-"`

	// Schedule state before the action.
	Species   string  `json:"species"`
	Origin    string  `json:"origin"`
	SiteIndex float64 `json:"site_index"`
	Thin1     int     `json:"thin1"`
	Thin2     int     `json:"thin2"`
	Fert1     int     `json:"fert1"`
	Fert2     int     `json:"fert2"`
}

// Timestep converts the event year to a simulation timestep (start year = 1).
func (e DisturbanceEvent) Timestep(startYear int) int {
	return e.Year - startYear + 1
}
