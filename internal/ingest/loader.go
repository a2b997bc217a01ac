package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gcbmprep/internal/config"
	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// Sources holds every input table of one pipeline run.
type Sources struct {
	Stands    []domain.Stand
	Yields    map[domain.YieldSource][]domain.YieldRow
	Condition []domain.ConditionRecord
	Schedule  []domain.ScheduleRow
}

// Snapshot returns the period-0 condition rows keyed by stand.
func (s *Sources) Snapshot(diag *apperrors.Diagnostics) map[string]domain.ConditionRecord {
	return Snapshot(s.Condition, diag)
}

// StandAreas returns the period-0 condition area per stand, the area the
// partial-clearcut check compares harvests against.
func StandAreas(snapshot map[string]domain.ConditionRecord) map[string]float64 {
	out := make(map[string]float64, len(snapshot))
	for key, rec := range snapshot {
		out[key] = rec.Area
	}
	return out
}

// Loader reads the input tables named by the resolved paths.
type Loader struct {
	paths  *config.Paths
	stand  StandOptions
	layout ScheduleLayout
	diag   *apperrors.Diagnostics
	logger *slog.Logger
}

// NewLoader creates a loader over the resolved input paths.
func NewLoader(paths *config.Paths, stand StandOptions, layout ScheduleLayout, diag *apperrors.Diagnostics, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		paths:  paths,
		stand:  stand,
		layout: layout,
		diag:   diag,
		logger: logger.With(slog.String("component", "ingest")),
	}
}

// LoadAll reads the independent sources concurrently. The first failure
// cancels the rest. The thinning-simulation table is skipped when no path
// is configured.
func (l *Loader) LoadAll(ctx context.Context) (*Sources, error) {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	var (
		stands    []domain.Stand
		yields1   []domain.YieldRow
		yields2   []domain.YieldRow
		yields3   []domain.YieldRow
		condition []domain.ConditionRecord
		schedule  []domain.ScheduleRow
	)

	g.Go(func() (err error) {
		stands, err = ReadStands(ctx, l.paths.StandsFile, l.stand, l.logger)
		return err
	})
	g.Go(func() (err error) {
		yields1, err = ReadYields(ctx, l.paths.Yields1File, domain.YieldSourceStand, l.diag, l.logger)
		return err
	})
	g.Go(func() (err error) {
		yields2, err = ReadYields(ctx, l.paths.Yields2File, domain.YieldSourceRegen, l.diag, l.logger)
		return err
	})
	if l.paths.Yields3File != "" && config.FileExists(l.paths.Yields3File) {
		g.Go(func() (err error) {
			yields3, err = ReadYields(ctx, l.paths.Yields3File, domain.YieldSourceThinning, l.diag, l.logger)
			return err
		})
	}
	g.Go(func() (err error) {
		condition, err = ReadCondition(ctx, l.paths.ConditionFile, config.ConditionSheet, l.logger)
		return err
	})
	g.Go(func() (err error) {
		schedule, err = ReadSchedule(ctx, l.paths.ScheduleFile, config.ScheduleSheet, l.layout, l.logger)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Sources loaded",
		slog.Int("stands", len(stands)),
		slog.Int("condition_rows", len(condition)),
		slog.Int("schedule_rows", len(schedule)),
		slog.Duration("duration", time.Since(start)))

	return &Sources{
		Stands: stands,
		Yields: map[domain.YieldSource][]domain.YieldRow{
			domain.YieldSourceStand:    yields1,
			domain.YieldSourceRegen:    yields2,
			domain.YieldSourceThinning: yields3,
		},
		Condition: condition,
		Schedule:  schedule,
	}, nil
}
