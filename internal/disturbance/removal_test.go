package disturbance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/internal/trajectory"
	"gcbmprep/internal/yield"
	"gcbmprep/pkg/contracts/domain"
)

type volumeKey struct {
	stand   string
	mode    yield.Mode
	key     trajectory.Key
	product domain.Product
	age     int
}

type fakeVolumes map[volumeKey]float64

func (f fakeVolumes) RawAt(l yield.Lookup, key trajectory.Key, product domain.Product, age int) (float64, bool) {
	v, ok := f[volumeKey{l.StandKey, l.Mode, key, product, age}]
	return v, ok
}

func TestThinKeys(t *testing.T) {
	first := domain.DisturbanceEvent{Type: domain.DisturbanceType{Kind: domain.KindFirstThin}, Age: 14, Fert1: 3, Fert2: 8}
	pre, post := ThinKeys(first)
	assert.Equal(t, "T1-0-T2-0-F1-3-F2-8", pre.String())
	assert.Equal(t, "T1-14-T2-0-F1-3-F2-8", post.String())

	second := domain.DisturbanceEvent{Type: domain.DisturbanceType{Kind: domain.KindSecondThin}, Age: 19, Thin1: 14}
	pre, post = ThinKeys(second)
	assert.Equal(t, "T1-14-T2-0-F1-0-F2-0", pre.String())
	assert.Equal(t, "T1-14-T2-19-F1-0-F2-0", post.String())
}

func TestCalculate(t *testing.T) {
	volumes := fakeVolumes{
		{"A", yield.ModeCurrent, trajectory.New(0, 0, 0, 0), domain.ProductSoftwood, 14}: 100,
		{"A", yield.ModeCurrent, trajectory.New(0, 0, 0, 0), domain.ProductHardwood, 14}: 20,
		{"A", yield.ModeCurrent, trajectory.New(14, 0, 0, 0), domain.ProductRemoved, 14}: 40,

		{"A", yield.ModeRegen, trajectory.New(12, 0, 0, 0), domain.ProductSoftwood, 18}:         90,
		{"A", yield.ModeRegen, trajectory.New(12, 18, 0, 0), domain.ProductRemoved, 18}:         20,
		{"A", yield.ModeRegen, trajectory.New(12, 18, 0, 0), domain.ProductRemovedHardwood, 18}: 7,
	}
	diag := apperrors.NewDiagnostics()
	calc := NewRemovalCalculator(volumes, 97, diag, infrastructure.DiscardLogger())

	firstThin := event("A", 2030, domain.KindFirstThin, 10)
	firstThin.Age = 14

	secondThin := event("A", 2060, domain.KindSecondThin, 10)
	secondThin.Age, secondThin.Thin1, secondThin.Rotation = 18, 12, 2

	missing := event("B", 2031, domain.KindFirstThin, 10)
	missing.Age = 14

	partial := domain.DisturbanceEvent{StandKey: "A", Year: 2040, Type: domain.DisturbanceType{Kind: domain.KindPartialClearcut, AreaPercent: 40}}

	got := calc.Calculate([]domain.DisturbanceEvent{
		firstThin,
		event("A", 2040, domain.KindClearcut, 60),
		partial,
		event("A", 2041, domain.KindSitePrep, 100),
		secondThin,
		missing,
	})

	require.Len(t, got, 6)
	want := []float64{33.33, 97, 40, 0, 30, 0}
	for i, e := range got {
		assert.True(t, e.HasRemovalPercent)
		assert.Equal(t, want[i], e.RemovalPercent, "event %d (%s)", i, e.Type.Name())
	}

	zero := diag.Filter(apperrors.ErrTypeMissingSource)
	require.Len(t, zero, 1)
	assert.Equal(t, "B", zero[0].Subject)
}

func TestCalculateAgainstResolver(t *testing.T) {
	key := trajectory.New(2, 0, 0, 0)
	rows := []domain.YieldRow{
		{StandKey: "A", Trajectory: trajectory.Zero.String(), Product: domain.ProductSoftwood, Volumes: []float64{10, 30, 50}},
		{StandKey: "A", Trajectory: key.String(), Product: domain.ProductSoftwood, Volumes: []float64{10, 20, 35}},
		{StandKey: "A", Trajectory: key.String(), Product: domain.ProductRemoved, Volumes: []float64{0, 10, 0}},
	}
	tbl := yield.NewTable(domain.YieldSourceStand, rows, 2.47105, 3, nil)
	r := yield.NewResolver(yield.Layered{Base: tbl}, nil, yield.Options{MaxAge: 3}, nil, infrastructure.DiscardLogger())

	thin := event("A", 2030, domain.KindFirstThin, 1)
	thin.Age = 2

	got := NewRemovalCalculator(r, 97, nil, nil).Calculate([]domain.DisturbanceEvent{thin})
	assert.Equal(t, 33.33, got[0].RemovalPercent, "unit factor cancels out")
}

func TestArchiveSpecs(t *testing.T) {
	mk := func(kind domain.DisturbanceKind, pct float64) domain.DisturbanceEvent {
		e := domain.DisturbanceEvent{Type: domain.DisturbanceType{Kind: kind}, RemovalPercent: pct, HasRemovalPercent: true}
		if kind == domain.KindPartialClearcut {
			e.Type.AreaPercent = pct
		}
		return e
	}
	events := []domain.DisturbanceEvent{
		mk(domain.KindFirstThin, 34.72),
		mk(domain.KindSecondThin, 28.5),
		mk(domain.KindFirstThin, 34.72),
		mk(domain.KindFirstThin, 0),
		mk(domain.KindClearcut, 97),
		mk(domain.KindPartialClearcut, 40),
	}

	specs, mapping := ArchiveSpecs(events, []string{"97% clear-cut", "Planting"})

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"97% clear-cut",
		"Planting",
		"28.50% commercial thinning",
		"34.72% commercial thinning",
		"40.00% clearcut",
	}, names)

	assert.Nil(t, specs[0].Fraction)
	require.NotNil(t, specs[3].Fraction)
	assert.InDelta(t, 0.3472, *specs[3].Fraction, 1e-12)
	assert.Equal(t, domain.CategoryCommercial, specs[3].Category)
	assert.InDelta(t, 0.40, *specs[4].Fraction, 1e-12)

	assert.Equal(t, []MappingRow{
		{Percent: 28.5, Name: "28.50% commercial thinning"},
		{Percent: 34.72, Name: "34.72% commercial thinning"},
		{Percent: 40, Name: "40.00% clearcut"},
	}, mapping)
}
