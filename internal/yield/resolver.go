package yield

import (
	"log/slog"
	"math"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/pkg/contracts/domain"
)

const stepName = "yield_resolve"

// Mode selects which source a lookup resolves against.
type Mode int

const (
	// ModeCurrent resolves first-rotation stands against the stand-specific tables.
	ModeCurrent Mode = iota + 1
	// ModeRegen resolves post-clearcut stands against the regeneration table.
	ModeRegen
)

// String returns the growth period the mode serves.
func (m Mode) String() string {
	if m == ModeRegen {
		return string(domain.GrowthPeriodPostRegen)
	}
	return string(domain.GrowthPeriodCurrent)
}

// ModeForRotation maps a rotation tag onto a resolution mode.
func ModeForRotation(rotation int) Mode {
	if rotation >= 2 {
		return ModeRegen
	}
	return ModeCurrent
}

// probeSteps is the order in which neighbouring SI classes are tried, in
// interval steps.
var probeSteps = []int{1, -1, 2, -2}

// Options configures a Resolver.
type Options struct {
	// MaxAge is the length of every exported curve.
	MaxAge int

	SIInterval int
	SIMin      int
	SIMax      int
	SIDefault  int

	// RegenSpecies collapses stand species onto the regen table's species.
	RegenSpecies        map[string]string
	DefaultRegenSpecies string
}

// Resolved is a pair of corrected softwood and hardwood curves.
type Resolved struct {
	Key      trajectory.Key
	Softwood Curve
	Hardwood Curve
	// AddBack is the constant removed volume added to Softwood.
	AddBack float64
}

// RegenGroup identifies the regeneration curves a stand regrows on.
type RegenGroup struct {
	SI      int
	Species string
}

// Resolver resolves classifier states to volume curves.
type Resolver struct {
	current StandSource
	regen   *Table
	opts    Options
	diag    *apperrors.Diagnostics
	logger  *slog.Logger
}

// NewResolver creates a resolver. regen may be nil when no regeneration
// table is available; regen lookups then always miss.
func NewResolver(current StandSource, regen *Table, opts Options, diag *apperrors.Diagnostics, logger *slog.Logger) *Resolver {
	if opts.SIInterval <= 0 {
		opts.SIInterval = 5
	}
	if opts.DefaultRegenSpecies == "" {
		opts.DefaultRegenSpecies = "LB"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = current.MaxAge()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		current: current,
		regen:   regen,
		opts:    opts,
		diag:    diag,
		logger:  logger.With(slog.String("component", "yield")),
	}
}

// MaxAge is the length of every exported curve.
func (r *Resolver) MaxAge() int { return r.opts.MaxAge }

// RoundRegenSI rounds a raw site index onto the regeneration grid.
// Zero and NaN use the configured default; the result is clamped to
// [SIMin, SIMax].
func (r *Resolver) RoundRegenSI(si float64) int {
	if math.IsNaN(si) || si == 0 {
		return r.opts.SIDefault
	}
	step := float64(r.opts.SIInterval)
	rounded := int(math.RoundToEven(si/step)) * r.opts.SIInterval
	return max(r.opts.SIMin, min(r.opts.SIMax, rounded))
}

// RegenSpecies maps a stand species onto the regen table's species code.
func (r *Resolver) RegenSpecies(species string) string {
	if sp, ok := r.opts.RegenSpecies[species]; ok {
		return sp
	}
	return r.opts.DefaultRegenSpecies
}

// FindRegenGroup locates the regeneration group for a stand, probing
// neighbouring SI classes when the rounded class has no curves.
func (r *Resolver) FindRegenGroup(siRaw float64, species string) (RegenGroup, bool) {
	g := RegenGroup{SI: r.RoundRegenSI(siRaw), Species: r.RegenSpecies(species)}
	if r.regen == nil {
		return g, false
	}
	if r.regen.HasRegenGroup(g.SI, g.Species) {
		return g, true
	}
	for _, step := range probeSteps {
		si := g.SI + step*r.opts.SIInterval
		if r.regen.HasRegenGroup(si, g.Species) {
			return RegenGroup{SI: si, Species: g.Species}, true
		}
	}
	return g, false
}

// RegenTrajectories lists the trajectories available to a regen group.
func (r *Resolver) RegenTrajectories(g RegenGroup) []trajectory.Key {
	if r.regen == nil {
		return nil
	}
	return r.regen.RegenTrajectories(g.SI, g.Species)
}

// CurrentTrajectories lists the trajectories available to a stand in its
// first rotation.
func (r *Resolver) CurrentTrajectories(stand string) []trajectory.Key {
	return r.current.StandTrajectories(stand)
}

// Current resolves a first-rotation stand. When neither stand layer holds
// the trajectory, the stand's no-treatment curve is used; when that is
// missing too the result is all zeros. Both fallbacks are diagnosed.
func (r *Resolver) Current(stand string, key trajectory.Key) Resolved {
	sw, okS := r.current.StandCurve(stand, key, domain.ProductSoftwood)
	hw, okH := r.current.StandCurve(stand, key, domain.ProductHardwood)

	if !okS && !okH && !key.IsZero() {
		r.diag.MissingSource(stepName, stand, "no curve for %s; using %s", key, trajectory.Zero)
		key = trajectory.Zero
		sw, okS = r.current.StandCurve(stand, key, domain.ProductSoftwood)
		hw, okH = r.current.StandCurve(stand, key, domain.ProductHardwood)
	}
	if !okS && !okH {
		r.diag.MissingSource(stepName, stand, "no no-treatment curve; using zero volume")
	}

	maxAge := r.current.MaxAge()
	addBack := postThinAddBack(key, maxAge, func(k trajectory.Key) (Curve, bool) {
		return r.current.StandCurve(stand, k, domain.ProductRemoved)
	})

	return Resolved{
		Key:      key,
		Softwood: sizeTo(sw, r.opts.MaxAge).Plus(addBack),
		Hardwood: sizeTo(hw, r.opts.MaxAge),
		AddBack:  addBack,
	}
}

// Regen resolves a post-clearcut curve for a regen group. Curves shorter
// than MaxAge are extended flat before the add-back is applied.
func (r *Resolver) Regen(g RegenGroup, key trajectory.Key) (Resolved, bool) {
	if r.regen == nil {
		return Resolved{}, false
	}
	sw, okS := r.regen.RegenCurve(g.SI, g.Species, key, domain.ProductSoftwood)
	hw, okH := r.regen.RegenCurve(g.SI, g.Species, key, domain.ProductHardwood)
	if !okS && !okH {
		return Resolved{}, false
	}

	addBack := postThinAddBack(key, r.regen.MaxAge(), func(k trajectory.Key) (Curve, bool) {
		return r.regen.RegenCurve(g.SI, g.Species, k, domain.ProductRemoved)
	})

	return Resolved{
		Key:      key,
		Softwood: sizeTo(sw, r.regen.MaxAge()).Extend(r.opts.MaxAge).Plus(addBack),
		Hardwood: sizeTo(hw, r.regen.MaxAge()).Extend(r.opts.MaxAge),
		AddBack:  addBack,
	}, true
}

// Lookup addresses the raw curves a removal calculation reads.
type Lookup struct {
	Mode     Mode
	StandKey string
	SIRaw    float64
	Species  string
}

// RawAt returns the uncorrected volume of product at age. Ages outside the
// source's 1..max range read as 0. The boolean is false when the curve does
// not exist.
func (r *Resolver) RawAt(l Lookup, key trajectory.Key, product domain.Product, age int) (float64, bool) {
	switch l.Mode {
	case ModeRegen:
		g, ok := r.FindRegenGroup(l.SIRaw, l.Species)
		if !ok {
			return 0, false
		}
		c, ok := r.regen.RegenCurve(g.SI, g.Species, key, product)
		if !ok {
			return 0, false
		}
		return c.At(age), true
	default:
		c, ok := r.current.StandCurve(l.StandKey, key, product)
		if !ok {
			return 0, false
		}
		return c.At(age), true
	}
}

// postThinAddBack sums the removed volume to put back into a thinned
// softwood curve: the 1st-thin removal from the first-thin-only variant and
// the 2nd-thin removal from the key itself. Ages past maxAge contribute 0.
func postThinAddBack(key trajectory.Key, maxAge int, removed func(trajectory.Key) (Curve, bool)) float64 {
	var total float64
	if key.Thin1 > 0 && key.Thin1 <= maxAge {
		if c, ok := removed(key.FirstThinOnly()); ok {
			total += c.At(key.Thin1)
		}
	}
	if key.Thin2 > 0 && key.Thin2 <= maxAge {
		if c, ok := removed(key); ok {
			total += c.At(key.Thin2)
		}
	}
	return total
}

// sizeTo returns a copy of c exactly n long, zero padded. A nil curve
// becomes all zeros.
func sizeTo(c Curve, n int) Curve {
	out := make(Curve, n)
	copy(out, c)
	return out
}
