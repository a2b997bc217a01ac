package disturbance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/pkg/contracts/domain"
)

var testActions = Actions{
	Kinds: map[string]string{
		"aHCC":    "Clearcut",
		"aHTHIN1": "1st_Thin",
		"aHTHIN2": "2nd_Thin",
		"aSP":     "Site_Prep",
	},
	Ignored: map[string]bool{"aPLT": true, "aFERTL": true, "aFERTM": true},
}

func event(stand string, year int, kind domain.DisturbanceKind, area float64) domain.DisturbanceEvent {
	return domain.DisturbanceEvent{StandKey: stand, Year: year, Type: domain.DisturbanceType{Kind: kind}, Area: area, Rotation: 1}
}

func TestExtract(t *testing.T) {
	diag := apperrors.NewDiagnostics()
	rows := []domain.ScheduleRow{
		{StandKey: "BH1", Year: 2030, Action: "aHTHIN1", Age: 14, Area: 10, Species: "LB", SiteIndex: 62, Fert1: 3},
		{StandKey: "BH1", Year: 2030, Action: "aFERTM"},
		{StandKey: "BH1", Year: 2041, Action: "aHCC", Age: 25, Area: 10},
		{StandKey: "BH1", Year: 2042, Action: "aPLT"},
		{StandKey: "BH1", Year: 2042, Action: "aSP"},
		{StandKey: "BH2", Year: 2033, Action: "aBURN"},
	}

	got := Extract(rows, testActions, diag, infrastructure.DiscardLogger())
	require.Len(t, got, 3)
	assert.Equal(t, domain.KindFirstThin, got[0].Type.Kind)
	assert.Equal(t, 14, got[0].Age)
	assert.Equal(t, 3, got[0].Fert1)
	assert.Equal(t, "LB", got[0].Species)
	assert.Equal(t, domain.KindClearcut, got[1].Type.Kind)
	assert.Equal(t, domain.KindSitePrep, got[2].Type.Kind)
	assert.Equal(t, 17, got[2].Timestep(2026))

	amb := diag.Filter(apperrors.ErrTypeAmbiguousCategory)
	require.Len(t, amb, 1)
	assert.Equal(t, "BH2", amb[0].Subject)
}

func TestTagRotations(t *testing.T) {
	tests := []struct {
		name   string
		events []domain.DisturbanceEvent
		want   []int
	}{
		{
			name: "thin before clearcut stays first rotation",
			events: []domain.DisturbanceEvent{
				event("A", 2030, domain.KindFirstThin, 1),
				event("A", 2040, domain.KindClearcut, 1),
			},
			want: []int{1, 1},
		},
		{
			name: "thins after clearcut are second rotation",
			events: []domain.DisturbanceEvent{
				event("A", 2055, domain.KindSecondThin, 1),
				event("A", 2040, domain.KindClearcut, 1),
				event("A", 2050, domain.KindFirstThin, 1),
				event("A", 2030, domain.KindFirstThin, 1),
			},
			want: []int{1, 1, 2, 2},
		},
		{
			name: "site prep is never second rotation",
			events: []domain.DisturbanceEvent{
				event("A", 2040, domain.KindClearcut, 1),
				event("A", 2041, domain.KindSitePrep, 1),
			},
			want: []int{1, 1},
		},
		{
			name: "clearcut of another stand does not count",
			events: []domain.DisturbanceEvent{
				event("B", 2050, domain.KindFirstThin, 1),
				event("A", 2040, domain.KindClearcut, 1),
			},
			want: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]domain.DisturbanceEvent(nil), tt.events...)
			got := TagRotations(tt.events)
			require.Len(t, got, len(tt.want))
			for i, e := range got {
				assert.Equal(t, tt.want[i], e.Rotation, "event %d (%s %d)", i, e.Type.Kind, e.Year)
				if i > 0 && e.StandKey == got[i-1].StandKey {
					assert.LessOrEqual(t, got[i-1].Year, e.Year)
				}
			}
			assert.Equal(t, input, tt.events, "input untouched")
		})
	}
}

func TestTagRotationsStableWithinYear(t *testing.T) {
	first := event("A", 2040, domain.KindFirstThin, 1)
	first.Age = 14
	second := event("A", 2040, domain.KindFirstThin, 1)
	second.Age = 15

	got := TagRotations([]domain.DisturbanceEvent{first, second})
	assert.Equal(t, 14, got[0].Age)
	assert.Equal(t, 15, got[1].Age)
}

func TestClassifyPartialClearcuts(t *testing.T) {
	opts := PartialOptions{GapYears: 10, FullAreaFraction: 0.95}

	t.Run("split harvest", func(t *testing.T) {
		events := TagRotations([]domain.DisturbanceEvent{
			event("A", 2030, domain.KindClearcut, 40),
			event("A", 2031, domain.KindClearcut, 60),
			event("A", 2045, domain.KindClearcut, 100),
		})
		got := ClassifyPartialClearcuts(events, map[string]float64{"A": 100}, opts, nil, nil)

		names := []string{got[0].Type.Name(), got[1].Type.Name(), got[2].Type.Name()}
		assert.Equal(t, []string{"40.00% clearcut", "Clearcut", "Clearcut"}, names)
		assert.Equal(t, 40.0, got[0].Type.AreaPercent)
		assert.Equal(t, domain.KindClearcut, events[0].Type.Kind, "input untouched")
	})

	t.Run("full area noise is not partial", func(t *testing.T) {
		events := []domain.DisturbanceEvent{
			event("A", 2030, domain.KindClearcut, 96),
			event("A", 2032, domain.KindClearcut, 99),
		}
		got := ClassifyPartialClearcuts(events, map[string]float64{"A": 100}, opts, nil, nil)
		assert.Equal(t, domain.KindClearcut, got[0].Type.Kind)
		assert.Equal(t, domain.KindClearcut, got[1].Type.Kind)
	})

	t.Run("three way split rounds to two decimals", func(t *testing.T) {
		events := []domain.DisturbanceEvent{
			event("A", 2030, domain.KindClearcut, 1),
			event("A", 2031, domain.KindFirstThin, 3),
			event("A", 2032, domain.KindClearcut, 1),
			event("A", 2033, domain.KindClearcut, 1),
		}
		got := ClassifyPartialClearcuts(events, map[string]float64{"A": 3}, opts, nil, nil)
		assert.Equal(t, "33.33% clearcut", got[0].Type.Name())
		assert.Equal(t, domain.KindFirstThin, got[1].Type.Kind)
		assert.Equal(t, "33.33% clearcut", got[2].Type.Name())
		assert.Equal(t, "Clearcut", got[3].Type.Name())
	})

	t.Run("missing stand area", func(t *testing.T) {
		diag := apperrors.NewDiagnostics()
		events := []domain.DisturbanceEvent{
			event("A", 2030, domain.KindClearcut, 40),
			event("A", 2031, domain.KindClearcut, 60),
			event("B", 2030, domain.KindClearcut, 40),
			event("B", 2031, domain.KindClearcut, 60),
		}
		got := ClassifyPartialClearcuts(events, map[string]float64{"B": 0}, opts, diag, nil)
		for _, e := range got {
			assert.Equal(t, domain.KindClearcut, e.Type.Kind)
		}
		assert.Equal(t, 2, diag.Len())
	})
}
