// Package yield holds merchantable-volume curves read from the yield tables
// and resolves the curve a classifier state grows on.
package yield

import (
	"log/slog"
	"math"
	"sort"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/pkg/contracts/domain"
)

// Curve is a volume-by-age series in m³/ha. Index i holds age i+1.
type Curve []float64

// At returns the volume at age, or 0 when age is outside 1..len(c).
func (c Curve) At(age int) float64 {
	if age < 1 || age > len(c) {
		return 0
	}
	return c[age-1]
}

// Extend returns a copy of c stretched to n ages, repeating the last value.
// Curves already n long or longer are copied unchanged.
func (c Curve) Extend(n int) Curve {
	if len(c) >= n {
		return append(Curve(nil), c...)
	}
	out := make(Curve, n)
	copy(out, c)
	var last float64
	if len(c) > 0 {
		last = c[len(c)-1]
	}
	for i := len(c); i < n; i++ {
		out[i] = last
	}
	return out
}

// Plus returns a copy of c with v added at every age.
func (c Curve) Plus(v float64) Curve {
	out := make(Curve, len(c))
	for i, x := range c {
		out[i] = x + v
	}
	return out
}

type group struct {
	stand   string
	si      int
	species string
}

type curveKey struct {
	group
	key     trajectory.Key
	product domain.Product
}

// Table is an immutable lookup over one yield table. Volumes are converted
// to m³/ha once, at construction.
type Table struct {
	source domain.YieldSource
	maxAge int
	curves map[curveKey]Curve
	// trajectories with a softwood or hardwood curve, per stand or regen group
	trajectories map[group][]trajectory.Key
}

// NewTable builds a table from raw rows. factor converts source units to
// m³/ha; blank and NaN cells become 0 and negative volumes are clamped to 0.
// A later row with the same composite key replaces an earlier one.
func NewTable(source domain.YieldSource, rows []domain.YieldRow, factor float64, maxAge int, diag *apperrors.Diagnostics) *Table {
	t := &Table{
		source:       source,
		maxAge:       maxAge,
		curves:       make(map[curveKey]Curve, len(rows)),
		trajectories: make(map[group][]trajectory.Key),
	}

	seen := make(map[group]map[trajectory.Key]bool)
	for _, row := range rows {
		key, ok := trajectory.Parse(row.Trajectory)
		if !ok {
			diag.Ambiguous("yield_table", row.ID, "unparseable trajectory %q in %s", row.Trajectory, source)
			continue
		}

		g := group{stand: row.StandKey, si: row.SIValue, species: row.RegenSpecies}
		ck := curveKey{group: g, key: key, product: row.Product}
		if _, dup := t.curves[ck]; dup {
			diag.Ambiguous("yield_table", row.ID, "duplicate %s row in %s; last row kept", row.Product, source)
		}
		t.curves[ck] = convert(row.Volumes, factor, maxAge)

		if row.Product == domain.ProductSoftwood || row.Product == domain.ProductHardwood {
			if seen[g] == nil {
				seen[g] = make(map[trajectory.Key]bool)
			}
			if !seen[g][key] {
				seen[g][key] = true
				t.trajectories[g] = append(t.trajectories[g], key)
			}
		}
	}

	for g := range t.trajectories {
		sortKeys(t.trajectories[g])
	}
	return t
}

func convert(raw []float64, factor float64, maxAge int) Curve {
	out := make(Curve, maxAge)
	for i := 0; i < maxAge && i < len(raw); i++ {
		v := raw[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		out[i] = v * factor
	}
	return out
}

// sortKeys orders trajectory keys by their string form.
func sortKeys(keys []trajectory.Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// Source reports which yield table the curves came from.
func (t *Table) Source() domain.YieldSource { return t.source }

// MaxAge is the last age every curve of the table covers.
func (t *Table) MaxAge() int { return t.maxAge }

// Len returns the number of product curves held.
func (t *Table) Len() int { return len(t.curves) }

// StandCurve returns the stand-specific curve for (stand, key, product).
func (t *Table) StandCurve(stand string, key trajectory.Key, product domain.Product) (Curve, bool) {
	c, ok := t.curves[curveKey{group: group{stand: stand}, key: key, product: product}]
	return c, ok
}

// StandTrajectories lists the trajectories with volume curves for a stand.
func (t *Table) StandTrajectories(stand string) []trajectory.Key {
	return t.trajectories[group{stand: stand}]
}

// RegenCurve returns the regeneration curve for (SI value, regen species, key, product).
func (t *Table) RegenCurve(si int, species string, key trajectory.Key, product domain.Product) (Curve, bool) {
	c, ok := t.curves[curveKey{group: group{si: si, species: species}, key: key, product: product}]
	return c, ok
}

// RegenTrajectories lists the trajectories with volume curves for a regen group.
func (t *Table) RegenTrajectories(si int, species string) []trajectory.Key {
	return t.trajectories[group{si: si, species: species}]
}

// HasRegenGroup reports whether any volume curve exists for the regen group.
func (t *Table) HasRegenGroup(si int, species string) bool {
	return len(t.trajectories[group{si: si, species: species}]) > 0
}

// LogSummary reports table size.
func (t *Table) LogSummary(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("Yield table loaded",
		slog.String("source", string(t.source)),
		slog.Int("curves", len(t.curves)),
		slog.Int("groups", len(t.trajectories)),
		slog.Int("max_age", t.maxAge))
}

// StandSource is a stand-specific curve lookup.
type StandSource interface {
	StandCurve(stand string, key trajectory.Key, product domain.Product) (Curve, bool)
	StandTrajectories(stand string) []trajectory.Key
	MaxAge() int
}

// Layered checks Override before Base for every composite key. Either layer
// may be nil.
type Layered struct {
	Override *Table
	Base     *Table
}

// StandCurve returns the override curve if present, else the base curve.
func (l Layered) StandCurve(stand string, key trajectory.Key, product domain.Product) (Curve, bool) {
	if l.Override != nil {
		if c, ok := l.Override.StandCurve(stand, key, product); ok {
			return c, true
		}
	}
	if l.Base != nil {
		return l.Base.StandCurve(stand, key, product)
	}
	return nil, false
}

// StandTrajectories returns the sorted union of both layers' trajectories.
func (l Layered) StandTrajectories(stand string) []trajectory.Key {
	var out []trajectory.Key
	seen := make(map[trajectory.Key]bool)
	for _, t := range []*Table{l.Override, l.Base} {
		if t == nil {
			continue
		}
		for _, k := range t.StandTrajectories(stand) {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sortKeys(out)
	return out
}

// MaxAge is the larger of the two layers' maximum ages.
func (l Layered) MaxAge() int {
	m := 0
	if l.Override != nil {
		m = l.Override.maxAge
	}
	if l.Base != nil && l.Base.maxAge > m {
		m = l.Base.maxAge
	}
	return m
}
