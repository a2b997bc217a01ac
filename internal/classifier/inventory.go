package classifier

import (
	"gcbmprep/pkg/contracts/domain"
)

// InventoryOptions controls starting inventory defaults.
type InventoryOptions struct {
	LandClass string
	// History maps origin code to its historical and last-pass disturbance.
	History map[string][2]string
	// DefaultHistory applies to origins missing from History.
	DefaultHistory [2]string
}

// BuildInventory returns one starting-inventory record per forest stand.
// Non-forest stands are excluded from the model.
func BuildInventory(stands []domain.StandClassifiers, opts InventoryOptions) []domain.InventoryRecord {
	out := make([]domain.InventoryRecord, 0, len(stands))
	for _, s := range stands {
		if !s.IsForest {
			continue
		}
		hist, ok := opts.History[s.Classifiers.Origin]
		if !ok {
			hist = opts.DefaultHistory
		}
		out = append(out, domain.InventoryRecord{
			Classifiers:               s.Classifiers,
			StandKey:                  s.StandKey,
			InitialAge:                s.Age,
			AreaHa:                    s.AreaHa,
			Delay:                     0,
			LandClass:                 opts.LandClass,
			HistoricalDisturbanceType: hist[0],
			LastPassDisturbanceType:   hist[1],
		})
	}
	return out
}
