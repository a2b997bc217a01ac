package disturbance

import (
	"fmt"
	"sort"

	"gcbmprep/pkg/contracts/domain"
)

// ThinningName is the archive name of a commercial thinning removing pct
// percent of merchantable volume.
func ThinningName(pct float64) string {
	return fmt.Sprintf("%.2f%% commercial thinning", pct)
}

// MappingRow links a removal percentage to its archive disturbance name.
type MappingRow struct {
	Percent float64
	Name    string
}

// ArchiveSpecs lists the disturbances the archive must hold for events:
// the standard types, one commercial thinning per distinct non-zero thinning
// percentage and one partial clearcut per distinct area percentage. The
// mapping covers the thinning and partial clearcut entries.
func ArchiveSpecs(events []domain.DisturbanceEvent, standard []string) ([]domain.DisturbanceSpec, []MappingRow) {
	thins := make(map[float64]bool)
	partials := make(map[float64]bool)
	for _, e := range events {
		switch {
		case e.Type.Kind.IsThin() && e.HasRemovalPercent && e.RemovalPercent > 0:
			thins[e.RemovalPercent] = true
		case e.Type.Kind == domain.KindPartialClearcut && e.Type.AreaPercent > 0:
			partials[e.Type.AreaPercent] = true
		}
	}

	specs := make([]domain.DisturbanceSpec, 0, len(standard)+len(thins)+len(partials))
	for _, name := range standard {
		specs = append(specs, domain.DisturbanceSpec{Name: name})
	}

	var mapping []MappingRow
	add := func(pcts map[float64]bool, name func(float64) string) {
		for _, pct := range sortedKeys(pcts) {
			n := name(pct)
			fraction := pct / 100
			specs = append(specs, domain.DisturbanceSpec{
				Name:     n,
				Fraction: &fraction,
				Category: domain.CategoryCommercial,
			})
			mapping = append(mapping, MappingRow{Percent: pct, Name: n})
		}
	}
	add(thins, ThinningName)
	add(partials, func(pct float64) string {
		return domain.DisturbanceType{Kind: domain.KindPartialClearcut, AreaPercent: pct}.Name()
	})

	return specs, mapping
}

func sortedKeys(m map[float64]bool) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}
