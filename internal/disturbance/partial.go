package disturbance

import (
	"log/slog"

	"github.com/shopspring/decimal"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// PartialOptions configures partial clearcut detection.
type PartialOptions struct {
	// GapYears splits a stand's clearcuts into separate rotations when
	// consecutive events are more than GapYears apart.
	GapYears int
	// FullAreaFraction is the area share at which a clearcut counts as full.
	FullAreaFraction float64
}

// ClassifyPartialClearcuts relabels split-year clearcuts. Within a cluster of
// a stand's clearcuts where at least one event covers less than
// FullAreaFraction of the stand, every event but the last becomes a partial
// clearcut carrying its area percentage. events must be sorted by stand and
// year; standArea holds each stand's total area.
func ClassifyPartialClearcuts(events []domain.DisturbanceEvent, standArea map[string]float64, opts PartialOptions, diag *apperrors.Diagnostics, logger *slog.Logger) []domain.DisturbanceEvent {
	out := append([]domain.DisturbanceEvent(nil), events...)
	relabelled, stands := 0, 0

	for _, run := range byStand(out) {
		var clearcuts []int
		for i, e := range run {
			if e.Type.Kind == domain.KindClearcut {
				clearcuts = append(clearcuts, i)
			}
		}
		if len(clearcuts) < 2 {
			continue
		}

		key := run[0].StandKey
		area, ok := standArea[key]
		if !ok || area <= 0 {
			diag.MissingSource("partial_clearcut", key, "no condition area; clearcuts left unchanged")
			continue
		}

		n := 0
		for _, cluster := range clusterByGap(run, clearcuts, opts.GapYears) {
			if len(cluster) < 2 || !anyPartial(run, cluster, area, opts.FullAreaFraction) {
				continue
			}
			for _, idx := range cluster[:len(cluster)-1] {
				e := &run[idx]
				e.Type = domain.DisturbanceType{
					Kind:        domain.KindPartialClearcut,
					AreaPercent: percent(e.Area, area),
				}
				n++
			}
		}
		if n > 0 {
			relabelled += n
			stands++
		}
	}

	if logger != nil {
		logger.Info("Partial clearcuts classified",
			slog.Int("relabelled", relabelled),
			slog.Int("stands", stands))
	}
	return out
}

// clusterByGap groups event indices whose consecutive years are at most gap apart.
func clusterByGap(run []domain.DisturbanceEvent, idx []int, gap int) [][]int {
	clusters := [][]int{{idx[0]}}
	for k := 1; k < len(idx); k++ {
		if run[idx[k]].Year-run[idx[k-1]].Year > gap {
			clusters = append(clusters, []int{idx[k]})
			continue
		}
		last := len(clusters) - 1
		clusters[last] = append(clusters[last], idx[k])
	}
	return clusters
}

func anyPartial(run []domain.DisturbanceEvent, cluster []int, area, full float64) bool {
	for _, idx := range cluster {
		if run[idx].Area/area < full {
			return true
		}
	}
	return false
}

// percent is 100*part/whole rounded half away from zero to 2 decimals.
func percent(part, whole float64) float64 {
	p := decimal.NewFromFloat(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromFloat(whole)).Round(2)
	f, _ := p.Float64()
	return f
}
