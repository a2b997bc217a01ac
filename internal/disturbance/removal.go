package disturbance

import (
	"log/slog"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/internal/yield"
	"gcbmprep/pkg/contracts/domain"
)

// VolumeSource reads uncorrected curve volumes.
type VolumeSource interface {
	RawAt(l yield.Lookup, key trajectory.Key, product domain.Product, age int) (float64, bool)
}

// RemovalCalculator assigns a volume removal percentage to every event.
type RemovalCalculator struct {
	volumes     VolumeSource
	clearcutPct float64
	diag        *apperrors.Diagnostics
	logger      *slog.Logger
}

// NewRemovalCalculator creates a calculator. Full clearcuts are assigned
// clearcutPct.
func NewRemovalCalculator(volumes VolumeSource, clearcutPct float64, diag *apperrors.Diagnostics, logger *slog.Logger) *RemovalCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemovalCalculator{
		volumes:     volumes,
		clearcutPct: clearcutPct,
		diag:        diag,
		logger:      logger.With(slog.String("component", "removal")),
	}
}

// ThinKeys returns the trajectories before and after a thinning event.
// Schedule treatment ages describe the stand before the action, so the
// event's own age becomes the new thin age.
func ThinKeys(e domain.DisturbanceEvent) (pre, post trajectory.Key) {
	switch e.Type.Kind {
	case domain.KindFirstThin:
		pre = trajectory.New(0, 0, e.Fert1, e.Fert2)
		post = trajectory.New(e.Age, 0, e.Fert1, e.Fert2)
	case domain.KindSecondThin:
		pre = trajectory.New(e.Thin1, 0, e.Fert1, e.Fert2)
		post = trajectory.New(e.Thin1, e.Age, e.Fert1, e.Fert2)
	}
	return pre, post
}

// Calculate returns copies of events with removal percentages set.
func (c *RemovalCalculator) Calculate(events []domain.DisturbanceEvent) []domain.DisturbanceEvent {
	out := make([]domain.DisturbanceEvent, len(events))
	zero := 0
	for i, e := range events {
		switch {
		case e.Type.Kind.IsThin():
			e.RemovalPercent = c.thinPercent(e)
			if e.RemovalPercent == 0 {
				zero++
			}
		case e.Type.Kind == domain.KindClearcut:
			e.RemovalPercent = c.clearcutPct
		case e.Type.Kind == domain.KindPartialClearcut:
			e.RemovalPercent = e.Type.AreaPercent
		default:
			e.RemovalPercent = 0
		}
		e.HasRemovalPercent = true
		out[i] = e
	}

	c.logger.Info("Removal percentages calculated",
		slog.Int("events", len(out)),
		slog.Int("zero_thinning_removals", zero))
	return out
}

func (c *RemovalCalculator) thinPercent(e domain.DisturbanceEvent) float64 {
	pre, post := ThinKeys(e)
	l := yield.Lookup{
		Mode:     yield.ModeForRotation(e.Rotation),
		StandKey: e.StandKey,
		SIRaw:    e.SiteIndex,
		Species:  e.Species,
	}

	before := c.volume(l, pre, domain.ProductSoftwood, e.Age) + c.volume(l, pre, domain.ProductHardwood, e.Age)
	removed := c.volume(l, post, domain.ProductRemoved, e.Age) + c.volume(l, post, domain.ProductRemovedHardwood, e.Age)

	if before <= 0 {
		c.diag.MissingSource("removal", e.StandKey,
			"zero pre-thin volume for %s at age %d in %d (rotation %d, %s)", e.Type.Name(), e.Age, e.Year, e.Rotation, l.Mode)
		return 0
	}
	return percent(removed, before)
}

func (c *RemovalCalculator) volume(l yield.Lookup, key trajectory.Key, product domain.Product, age int) float64 {
	v, _ := c.volumes.RawAt(l, key, product, age)
	return v
}
