// Package transition builds the classifier transition rules that move a stand
// onto a new yield curve after a disturbance.
package transition

import (
	"log/slog"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/trajectory"
	"gcbmprep/pkg/contracts/domain"
)

const stepName = "transitions"

// Builder derives transition rules from finalized disturbance events.
type Builder struct {
	// replant maps a species to the species replanted after a clearcut.
	replant map[string]string
	diag    *apperrors.Diagnostics
	logger  *slog.Logger
}

// NewBuilder creates a rule builder.
func NewBuilder(replant map[string]string, diag *apperrors.Diagnostics, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{replant: replant, diag: diag, logger: logger.With(slog.String("component", "transition"))}
}

// Apply returns the rule for one event applied to a stand in state src.
// ok is false for events that change nothing the model tracks, such as
// partial clearcuts.
func (b *Builder) Apply(src domain.ClassifierTuple, e domain.DisturbanceEvent) (domain.TransitionRule, bool) {
	tgt := src
	reset := domain.AgeResetNone

	switch e.Type.Kind {
	case domain.KindClearcut:
		tgt.GrowthPeriod = domain.GrowthPeriodPostRegen
		if sp, ok := b.replant[src.Species]; ok {
			tgt.Species = sp
		}
		tgt.Trajectory = trajectory.Zero.String()
		reset = domain.AgeResetZero
	case domain.KindFirstThin:
		tgt.Trajectory = trajectory.ParseOrZero(src.Trajectory).WithThin1(e.Age).String()
	case domain.KindSecondThin:
		tgt.Trajectory = trajectory.ParseOrZero(src.Trajectory).WithThin2(e.Age).String()
	case domain.KindSitePrep:
	default:
		return domain.TransitionRule{}, false
	}

	return domain.TransitionRule{
		DisturbanceType: e.Type.Name(),
		Source:          src,
		Target:          tgt,
		Reset:           reset,
	}, true
}

type ruleKey struct {
	disturbance string
	source      domain.ClassifierTuple
}

// Build folds each stand's events in year order, starting from the stand's
// assigned tuple, and returns the distinct rules. Rules sharing disturbance
// type and source tuple are deduplicated; the first one wins. events must be
// sorted by stand and year.
func (b *Builder) Build(stands map[string]domain.StandClassifiers, events []domain.DisturbanceEvent) []domain.TransitionRule {
	var rules []domain.TransitionRule
	seen := make(map[ruleKey]domain.ClassifierTuple)
	state := make(map[string]domain.ClassifierTuple)
	conflicts, applied := 0, 0

	for _, e := range events {
		src, ok := state[e.StandKey]
		if !ok {
			s, found := stands[e.StandKey]
			if !found || !s.IsForest {
				b.diag.MissingSource(stepName, e.StandKey, "event for unclassified or non-forest stand skipped")
				continue
			}
			src = s.Classifiers
		}

		rule, ok := b.Apply(src, e)
		if !ok {
			continue
		}
		applied++
		state[e.StandKey] = rule.Target

		k := ruleKey{disturbance: rule.DisturbanceType, source: rule.Source}
		if first, dup := seen[k]; dup {
			// same source and type but a different thin age
			if first != rule.Target {
				conflicts++
			}
			continue
		}
		seen[k] = rule.Target
		rules = append(rules, rule)
	}

	b.logger.Info("Transition rules built",
		slog.Int("events_applied", applied),
		slog.Int("rules", len(rules)),
		slog.Int("conflicts", conflicts))
	return rules
}
