// Package classifier derives the five-part classifier tuple for every stand
// and the starting inventory built on it.
package classifier

import (
	"fmt"
	"log/slog"
	"math"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/pkg/contracts/domain"
)

const stepName = "classify"

// SINone is the SI class of a stand with no usable site index.
const SINone = "SI0"

// Assignor assigns classifier tuples. Condition attributes win over stand
// layer attributes wherever both are present.
type Assignor struct {
	interval int
	diag     *apperrors.Diagnostics
	logger   *slog.Logger
}

// NewAssignor creates an assignor rounding site index to interval.
func NewAssignor(interval int, diag *apperrors.Diagnostics, logger *slog.Logger) *Assignor {
	if interval <= 0 {
		interval = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assignor{interval: interval, diag: diag, logger: logger.With(slog.String("component", "classifier"))}
}

// RoundSIClass rounds a raw site index to the nearest multiple of interval,
// ties to even, and formats it as SI<n>. Zero, negative and NaN map to SI0.
func RoundSIClass(si float64, interval int) string {
	if math.IsNaN(si) || si <= 0 || interval <= 0 {
		return SINone
	}
	rounded := int(math.RoundToEven(si/float64(interval))) * interval
	return fmt.Sprintf("SI%d", rounded)
}

// Assign returns one classified stand per input stand, in input order.
// snapshot holds the period-0 condition rows keyed by stand.
func (a *Assignor) Assign(stands []domain.Stand, snapshot map[string]domain.ConditionRecord) []domain.StandClassifiers {
	out := make([]domain.StandClassifiers, 0, len(stands))
	seen := make(map[string]bool, len(stands))
	missing := 0

	for _, s := range stands {
		if seen[s.Key] {
			a.diag.Ambiguous(stepName, s.Key, "duplicate stand key; first row kept")
			continue
		}
		seen[s.Key] = true

		cond, hasCond := snapshot[s.Key]
		if !hasCond {
			missing++
			a.diag.MissingSource(stepName, s.Key, "no condition record; using stand layer attributes")
		}

		species := s.SpeciesCode
		origin := s.OriginCode
		siRaw := s.SiteIndex
		key := trajectory.Zero
		if hasCond {
			if cond.Species != "" {
				species = cond.Species
			}
			if cond.Origin != "" {
				origin = cond.Origin
			}
			if cond.HasSiteIndex() {
				siRaw = cond.SiteIndex
			}
			key = trajectory.New(cond.Thin1, cond.Thin2, cond.Fert1, cond.Fert2)
		}
		if !s.IsForest {
			key = trajectory.Zero
		}

		siClass := RoundSIClass(siRaw, a.interval)
		if siClass == SINone && s.IsForest {
			a.diag.MissingSource(stepName, s.Key, "no site index; classed as %s", SINone)
		}

		out = append(out, domain.StandClassifiers{
			StandKey: s.Key,
			Classifiers: domain.ClassifierTuple{
				Species:      species,
				Origin:       origin,
				SIClass:      siClass,
				GrowthPeriod: domain.GrowthPeriodCurrent,
				Trajectory:   key.String(),
			},
			SIRaw:    siRaw,
			Age:      s.Age,
			AreaHa:   s.AreaHa,
			IsForest: s.IsForest,
		})
	}

	a.logger.Info("Stands classified",
		slog.Int("stands", len(out)),
		slog.Int("without_condition", missing))
	return out
}

// Index maps stand key to its classified stand.
func Index(stands []domain.StandClassifiers) map[string]domain.StandClassifiers {
	idx := make(map[string]domain.StandClassifiers, len(stands))
	for _, s := range stands {
		idx[s.StandKey] = s
	}
	return idx
}
