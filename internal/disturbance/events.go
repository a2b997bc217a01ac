// Package disturbance turns schedule actions into finalized disturbance
// events: extraction, rotation tagging, partial clearcut detection and
// removal percentages.
package disturbance

import (
	"log/slog"
	"sort"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// Actions maps schedule action codes onto disturbance kinds. Ignored codes
// are scheduled actions that are not disturbances.
type Actions struct {
	Kinds   map[string]string
	Ignored map[string]bool
}

// Extract returns one event per disturbance action, skipping non-disturbance
// actions. Unknown action codes are diagnosed and skipped.
func Extract(rows []domain.ScheduleRow, actions Actions, diag *apperrors.Diagnostics, logger *slog.Logger) []domain.DisturbanceEvent {
	out := make([]domain.DisturbanceEvent, 0, len(rows))
	unknown := 0
	for _, row := range rows {
		kind, ok := actions.Kinds[row.Action]
		if !ok {
			if !actions.Ignored[row.Action] {
				unknown++
				diag.Ambiguous("extract_events", row.StandKey, "unknown action %q in %d", row.Action, row.Year)
			}
			continue
		}
		out = append(out, domain.DisturbanceEvent{
			StandKey:  row.StandKey,
			Year:      row.Year,
			Action:    row.Action,
			Type:      domain.DisturbanceType{Kind: domain.DisturbanceKind(kind)},
			Age:       row.Age,
			Area:      row.Area,
			Rotation:  1,
			Species:   row.Species,
			Origin:    row.Origin,
			SiteIndex: row.SiteIndex,
			Thin1:     row.Thin1,
			Thin2:     row.Thin2,
			Fert1:     row.Fert1,
			Fert2:     row.Fert2,
		})
	}
	if logger != nil {
		logger.Info("Disturbance events extracted",
			slog.Int("schedule_rows", len(rows)),
			slog.Int("events", len(out)),
			slog.Int("unknown_actions", unknown))
	}
	return out
}

// SortEvents returns a copy of events ordered by stand key, then year.
// Events of the same stand and year keep their input order.
func SortEvents(events []domain.DisturbanceEvent) []domain.DisturbanceEvent {
	out := append([]domain.DisturbanceEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StandKey != out[j].StandKey {
			return out[i].StandKey < out[j].StandKey
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// byStand splits sorted events into per-stand runs.
func byStand(events []domain.DisturbanceEvent) [][]domain.DisturbanceEvent {
	var runs [][]domain.DisturbanceEvent
	start := 0
	for i := 1; i <= len(events); i++ {
		if i == len(events) || events[i].StandKey != events[start].StandKey {
			runs = append(runs, events[start:i])
			start = i
		}
	}
	return runs
}

// TagRotations returns sorted copies of events with rotation numbers set. A
// thinning that follows any clearcut of the same stand is rotation 2; every
// other event is rotation 1.
func TagRotations(events []domain.DisturbanceEvent) []domain.DisturbanceEvent {
	out := SortEvents(events)
	for _, run := range byStand(out) {
		clearcutSeen := false
		for i := range run {
			e := &run[i]
			e.Rotation = 1
			switch {
			case e.Type.Kind == domain.KindClearcut || e.Type.Kind == domain.KindPartialClearcut:
				clearcutSeen = true
			case e.Type.Kind.IsThin() && clearcutSeen:
				e.Rotation = 2
			}
		}
	}
	return out
}

// CountByKind tallies events per disturbance kind.
func CountByKind(events []domain.DisturbanceEvent) map[domain.DisturbanceKind]int {
	counts := make(map[domain.DisturbanceKind]int)
	for _, e := range events {
		counts[e.Type.Kind]++
	}
	return counts
}
