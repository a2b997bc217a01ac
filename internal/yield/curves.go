package yield

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gcbmprep/pkg/contracts/domain"
)

// CurveBuilder exports every curve a stand can reach during the simulation.
type CurveBuilder struct {
	resolver *Resolver
	// replant maps a stand species to the species replanted after clearcut.
	// Species missing from the map are replanted as themselves.
	replant map[string]string
}

// NewCurveBuilder creates a builder over resolver.
func NewCurveBuilder(resolver *Resolver, replant map[string]string) *CurveBuilder {
	return &CurveBuilder{resolver: resolver, replant: replant}
}

// ReplantSpecies returns the species a stand carries after a clearcut.
func ReplantSpecies(replant map[string]string, species string) string {
	if sp, ok := replant[species]; ok {
		return sp
	}
	return species
}

// Build emits a softwood and a hardwood curve for every trajectory available
// to every forest stand, first-rotation curves then post-clearcut curves,
// deduplicated and numbered from 1.
func (b *CurveBuilder) Build(stands []domain.StandClassifiers) []domain.CurveRecord {
	r := b.resolver
	var current, regen []domain.CurveRecord
	seen := make(map[string]bool, len(stands))
	noCurrent, noRegen, adjusted := 0, 0, 0

	for _, s := range stands {
		if !s.IsForest || seen[s.StandKey] {
			continue
		}
		seen[s.StandKey] = true

		keys := r.CurrentTrajectories(s.StandKey)
		if len(keys) == 0 {
			noCurrent++
			r.diag.MissingSource("yield_export", s.StandKey, "stand missing from yield tables")
		}
		for _, k := range keys {
			res := r.Current(s.StandKey, k)
			if res.AddBack > 0 {
				adjusted++
			}
			tuple := s.Classifiers
			tuple.GrowthPeriod = domain.GrowthPeriodCurrent
			tuple.Trajectory = k.String()
			current = append(current, pair(s.StandKey, tuple, res)...)
		}

		g, ok := r.FindRegenGroup(s.SIRaw, s.Classifiers.Species)
		if !ok {
			noRegen++
			r.diag.MissingSource("yield_export", s.StandKey,
				"no regeneration curves for SI%d %s", g.SI, g.Species)
			continue
		}
		for _, k := range r.RegenTrajectories(g) {
			res, ok := r.Regen(g, k)
			if !ok {
				continue
			}
			if res.AddBack > 0 {
				adjusted++
			}
			tuple := s.Classifiers
			tuple.Species = ReplantSpecies(b.replant, tuple.Species)
			tuple.GrowthPeriod = domain.GrowthPeriodPostRegen
			tuple.Trajectory = k.String()
			regen = append(regen, pair(s.StandKey, tuple, res)...)
		}
	}

	out := Dedup(append(current, regen...))
	r.logger.Info("Yield curves built",
		slog.Int("current_rows", len(current)),
		slog.Int("regen_rows", len(regen)),
		slog.Int("unique_rows", len(out)),
		slog.Int("post_thin_adjusted", adjusted),
		slog.Int("stands_without_current", noCurrent),
		slog.Int("stands_without_regen", noRegen))
	return out
}

func pair(stand string, tuple domain.ClassifierTuple, res Resolved) []domain.CurveRecord {
	return []domain.CurveRecord{
		{StandKey: stand, Classifiers: tuple, Product: domain.ProductSoftwood, Volumes: res.Softwood},
		{StandKey: stand, Classifiers: tuple, Product: domain.ProductHardwood, Volumes: res.Hardwood},
	}
}

// Dedup keeps the first of every group of records sharing classifiers,
// product and volumes rounded to 4 decimals, and numbers the survivors
// 1..n in input order.
func Dedup(records []domain.CurveRecord) []domain.CurveRecord {
	out := make([]domain.CurveRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		k := dedupKey(rec)
		if seen[k] {
			continue
		}
		seen[k] = true
		rec.ID = len(out) + 1
		out = append(out, rec)
	}
	return out
}

func dedupKey(rec domain.CurveRecord) string {
	var sb strings.Builder
	for _, v := range rec.Classifiers.Values() {
		sb.WriteString(v)
		sb.WriteByte('|')
	}
	sb.WriteString(string(rec.Product))
	for _, v := range rec.Volumes {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', 4, 64))
	}
	return sb.String()
}

// Tuples extracts the distinct classifier tuples of curve records.
func Tuples(records []domain.CurveRecord) []domain.ClassifierTuple {
	out := make([]domain.ClassifierTuple, 0, len(records)/2)
	seen := make(map[domain.ClassifierTuple]bool)
	for _, rec := range records {
		if !seen[rec.Classifiers] {
			seen[rec.Classifiers] = true
			out = append(out, rec.Classifiers)
		}
	}
	return out
}
