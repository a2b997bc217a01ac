package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gcbmprep/internal/classifier"
	"gcbmprep/internal/config"
	"gcbmprep/internal/disturbance"
	"gcbmprep/internal/dmatrix"
	apperrors "gcbmprep/internal/errors"
	"gcbmprep/internal/exporter"
	"gcbmprep/internal/infrastructure"
	"gcbmprep/internal/ingest"
	"gcbmprep/internal/transition"
	"gcbmprep/internal/validation"
	"gcbmprep/internal/yield"
	"gcbmprep/pkg/contracts/domain"
)

// PipelineOptions are the per-invocation switches layered over the
// archive configuration.
type PipelineOptions struct {
	// ArchiveDSN overrides the configured archive location when set.
	ArchiveDSN  string
	DryRun      bool
	SkipArchive bool
}

// Pipeline holds the typed results each step hands to the next. A
// Pipeline serves a single run.
type Pipeline struct {
	cfg     *config.Config
	paths   *config.Paths
	opts    PipelineOptions
	diag    *apperrors.Diagnostics
	metrics *infrastructure.Metrics
	logger  *slog.Logger
	tables  *exporter.Tables

	Sources     *ingest.Sources
	Snapshot    map[string]domain.ConditionRecord
	Stands      []domain.StandClassifiers
	Resolver    *yield.Resolver
	Curves      []domain.CurveRecord
	Inventory   []domain.InventoryRecord
	Events      []domain.DisturbanceEvent
	Mapping     []disturbance.MappingRow
	Transitions []domain.TransitionRule
	Archive     []domain.EnsureResult
}

// NewPipeline creates the pipeline for one run. metrics may be nil.
func NewPipeline(cfg *config.Config, paths *config.Paths, opts PipelineOptions, diag *apperrors.Diagnostics, metrics *infrastructure.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if diag == nil {
		diag = apperrors.NewDiagnostics()
	}
	return &Pipeline{
		cfg:     cfg,
		paths:   paths,
		opts:    opts,
		diag:    diag,
		metrics: metrics,
		logger:  logger,
		tables:  exporter.NewTables(exporter.NewCSVWriter(paths, logger), cfg.Simulation.StartYear),
	}
}

// Diagnostics returns the collector shared by every step.
func (p *Pipeline) Diagnostics() *apperrors.Diagnostics { return p.diag }

// Steps returns the full pipeline in execution order.
func (p *Pipeline) Steps() []Step {
	return []Step{
		NewFuncStep(StepIDIngest, StepNameIngest, p.ingest),
		NewFuncStep(StepIDClassify, StepNameClassify, p.classify).
			WithValidate(p.requireSources),
		NewFuncStep(StepIDYieldCurves, StepNameYieldCurves, p.yieldCurves).
			WithValidate(p.requireStands),
		NewFuncStep(StepIDInventory, StepNameInventory, p.inventory).
			WithValidate(p.requireStands),
		NewFuncStep(StepIDDisturbances, StepNameDisturbances, p.disturbances).
			WithValidate(p.requireResolver),
		NewFuncStep(StepIDTransitions, StepNameTransitions, p.transitions).
			WithValidate(p.requireStands),
		NewFuncStep(StepIDClassifiers, StepNameClassifiers, p.classifiers).
			WithValidate(p.requireStands),
		p.archiveStep(),
	}
}

// ArchiveSteps returns the steps that update the archive from an event
// table written by an earlier run.
func (p *Pipeline) ArchiveSteps(eventsPath string) []Step {
	load := NewFuncStep(StepIDLoadEvents, StepNameLoadEvents, func(ctx context.Context, state *OperationState) error {
		events, err := exporter.ReadEvents(eventsPath, p.diag)
		if err != nil {
			return err
		}
		p.Events = events
		state.GetStage(StepIDLoadEvents).SetMetadata(MetaRows, len(events))
		infrastructure.LoggerFromContext(ctx).InfoContext(ctx, "Event table loaded",
			slog.String("path", eventsPath),
			slog.Int("events", len(events)))
		return nil
	})
	return []Step{load, p.archiveStep()}
}

// Register adds steps to reg in order.
func Register(reg *Registry, steps []Step) error {
	for _, s := range steps {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) requireSources(*OperationState) error {
	if p.Sources == nil {
		return fmt.Errorf("sources not loaded")
	}
	return nil
}

func (p *Pipeline) requireStands(*OperationState) error {
	if p.Stands == nil {
		return fmt.Errorf("stands not classified")
	}
	return nil
}

func (p *Pipeline) requireResolver(state *OperationState) error {
	if p.Resolver == nil {
		return fmt.Errorf("yield curves not resolved")
	}
	return p.requireStands(state)
}

func recordOutput(state *OperationState, stepID, path string, rows int) {
	s := state.GetStage(stepID)
	s.SetMetadata(MetaOutputFile, path)
	s.SetMetadata(MetaRows, rows)
}

func (p *Pipeline) ingest(ctx context.Context, state *OperationState) error {
	if err := p.paths.ValidateRequiredFiles(); err != nil {
		return apperrors.NewConfigError("input files missing", err)
	}
	if err := validation.NewFileValidator(infrastructure.LoggerFromContext(ctx)).
		Validate(validation.Inputs(p.paths)); err != nil {
		return apperrors.NewConfigError("input files invalid", err)
	}
	loader := ingest.NewLoader(p.paths,
		ingest.DefaultStandOptions(p.cfg.Simulation.AreaFactor),
		ingest.ScheduleLayout(config.ScheduleColumns),
		p.diag,
		infrastructure.LoggerFromContext(ctx))

	sources, err := loader.LoadAll(ctx)
	if err != nil {
		return err
	}
	p.Sources = sources
	p.Snapshot = sources.Snapshot(p.diag)
	state.GetStage(StepIDIngest).SetMetadata(MetaRows, len(sources.Stands))
	return nil
}

func (p *Pipeline) classify(ctx context.Context, state *OperationState) error {
	logger := infrastructure.LoggerFromContext(ctx)
	p.Stands = classifier.NewAssignor(p.cfg.Classifier.SIInterval, p.diag, logger).
		Assign(p.Sources.Stands, p.Snapshot)

	forest := 0
	for _, s := range p.Stands {
		if s.IsForest {
			forest++
		}
	}
	if p.metrics != nil {
		p.metrics.StandsProcessed.WithLabelValues("true").Add(float64(forest))
		p.metrics.StandsProcessed.WithLabelValues("false").Add(float64(len(p.Stands) - forest))
	}
	state.GetStage(StepIDClassify).SetMetadata(MetaRows, len(p.Stands))
	return nil
}

func (p *Pipeline) yieldCurves(ctx context.Context, state *OperationState) error {
	logger := infrastructure.LoggerFromContext(ctx)
	sim := p.cfg.Simulation
	rows := p.Sources.Yields

	base := yield.NewTable(domain.YieldSourceStand, rows[domain.YieldSourceStand], sim.VolumeFactor, sim.MaxAgeCurrent, p.diag)
	regen := yield.NewTable(domain.YieldSourceRegen, rows[domain.YieldSourceRegen], sim.VolumeFactor, sim.MaxAgeRegen, p.diag)
	current := yield.Layered{Base: base}
	if len(rows[domain.YieldSourceThinning]) > 0 {
		current.Override = yield.NewTable(domain.YieldSourceThinning, rows[domain.YieldSourceThinning], sim.VolumeFactor, sim.MaxAgeCurrent, p.diag)
		current.Override.LogSummary(logger)
	}
	base.LogSummary(logger)
	regen.LogSummary(logger)

	p.Resolver = yield.NewResolver(current, regen, yield.Options{
		MaxAge:              sim.MaxAgeCurrent,
		SIInterval:          p.cfg.Regen.SIStep,
		SIMin:               p.cfg.Regen.SIMin,
		SIMax:               p.cfg.Regen.SIMax,
		SIDefault:           p.cfg.Regen.SIDefault,
		RegenSpecies:        config.RegenSpecies,
		DefaultRegenSpecies: config.DefaultRegenSpecies,
	}, p.diag, logger)

	p.Curves = yield.NewCurveBuilder(p.Resolver, config.ReplantSpecies).Build(p.Stands)

	path, err := p.tables.WriteYieldCurves(p.Curves, p.Resolver.MaxAge())
	if err != nil {
		return err
	}
	if p.metrics != nil {
		for _, c := range p.Curves {
			p.metrics.CurvesWritten.WithLabelValues(string(c.Classifiers.GrowthPeriod)).Inc()
		}
	}
	recordOutput(state, StepIDYieldCurves, path, len(p.Curves))
	return nil
}

func (p *Pipeline) inventory(ctx context.Context, state *OperationState) error {
	p.Inventory = classifier.BuildInventory(p.Stands, classifier.InventoryOptions{
		LandClass:      config.DefaultLandClass,
		History:        config.HistoricalDisturbance,
		DefaultHistory: [2]string{config.NoTreatmentDisturbance, config.NoTreatmentDisturbance},
	})
	path, err := p.tables.WriteInventory(p.Inventory)
	if err != nil {
		return err
	}
	recordOutput(state, StepIDInventory, path, len(p.Inventory))
	return nil
}

func (p *Pipeline) disturbances(ctx context.Context, state *OperationState) error {
	logger := infrastructure.LoggerFromContext(ctx)
	dist := p.cfg.Disturbance

	events := disturbance.Extract(p.Sources.Schedule, disturbance.Actions{
		Kinds:   config.ActionToDisturbance,
		Ignored: config.NonDisturbanceActions,
	}, p.diag, logger)
	events = disturbance.TagRotations(events)
	events = disturbance.ClassifyPartialClearcuts(events, ingest.StandAreas(p.Snapshot), disturbance.PartialOptions{
		GapYears:         dist.ClusterGapYears,
		FullAreaFraction: dist.FullAreaFraction,
	}, p.diag, logger)
	events = disturbance.NewRemovalCalculator(p.Resolver, dist.ClearcutRemovalPct, p.diag, logger).Calculate(events)
	p.Events = events

	path, err := p.tables.WriteEvents(events)
	if err != nil {
		return err
	}

	_, p.Mapping = disturbance.ArchiveSpecs(events, config.StandardDisturbances)
	if _, err := p.tables.WriteThinningMapping(p.Mapping); err != nil {
		return err
	}

	if p.metrics != nil {
		for kind, n := range disturbance.CountByKind(events) {
			p.metrics.EventsTotal.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
	recordOutput(state, StepIDDisturbances, path, len(events))
	return nil
}

func (p *Pipeline) transitions(ctx context.Context, state *OperationState) error {
	p.Transitions = transition.NewBuilder(config.ReplantSpecies, p.diag, infrastructure.LoggerFromContext(ctx)).
		Build(classifier.Index(p.Stands), p.Events)

	path, err := p.tables.WriteTransitions(p.Transitions)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.TransitionsTotal.Add(float64(len(p.Transitions)))
	}
	recordOutput(state, StepIDTransitions, path, len(p.Transitions))
	return nil
}

// classifiers runs after transitions so that every value a rule or curve
// can reach is declared.
func (p *Pipeline) classifiers(ctx context.Context, state *OperationState) error {
	ruleTuples := make([]domain.ClassifierTuple, 0, 2*len(p.Transitions))
	for _, r := range p.Transitions {
		ruleTuples = append(ruleTuples, r.Source, r.Target)
	}
	sets := classifier.ValueSets(classifier.Tuples(p.Stands), yield.Tuples(p.Curves), ruleTuples)

	path, err := p.tables.WriteClassifiers(sets)
	if err != nil {
		return err
	}
	recordOutput(state, StepIDClassifiers, path, len(sets))
	return nil
}

func (p *Pipeline) archiveStep() Step {
	return NewFuncStep(StepIDArchive, StepNameArchive, p.archive).
		WithSkip(func(*OperationState) (string, bool) {
			if p.opts.SkipArchive || p.cfg.Archive.Skip {
				return "archive update disabled", true
			}
			return "", false
		})
}

// ArchiveDSN returns the archive location for this run. Relative SQLite
// paths are resolved against the root directory.
func (p *Pipeline) ArchiveDSN() string {
	dsn := p.cfg.Archive.DSN
	if p.opts.ArchiveDSN != "" {
		dsn = p.opts.ArchiveDSN
	}
	if p.cfg.Archive.Driver == dmatrix.DriverSQLite && dsn != "" && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(p.paths.RootDir, dsn)
	}
	return dsn
}

// ArchiveTemplates converts the configured templates.
func ArchiveTemplates(cfg config.ArchiveConfig) []dmatrix.Template {
	out := make([]dmatrix.Template, 0, len(cfg.Templates))
	for _, t := range cfg.Templates {
		out = append(out, dmatrix.Template{
			Category:    domain.RemovalCategory(t.Category),
			DMID:        t.DMID,
			Baseline:    t.Baseline,
			StructureID: t.StructureID,
		})
	}
	return out
}

func (p *Pipeline) archive(ctx context.Context, state *OperationState) error {
	logger := infrastructure.LoggerFromContext(ctx)
	specs, _ := disturbance.ArchiveSpecs(p.Events, config.StandardDisturbances)

	dsn := p.ArchiveDSN()
	if p.cfg.Archive.Driver == dmatrix.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	db, err := dmatrix.Open(ctx, p.cfg.Archive.Driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	store := dmatrix.NewStore(db, dmatrix.Options{
		Driver:    p.cfg.Archive.Driver,
		Templates: ArchiveTemplates(p.cfg.Archive),
		Tolerance: p.cfg.Archive.Tolerance,
	}, p.diag, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	results, err := store.EnsureAll(ctx, specs, p.opts.DryRun)
	if err != nil {
		return err
	}
	p.Archive = results

	path, err := p.tables.WriteArchiveResults(results)
	if err != nil {
		return err
	}

	created := 0
	for _, r := range results {
		if r.Created {
			created++
		}
		if p.metrics != nil {
			p.metrics.ArchiveOperations.WithLabelValues(archiveOutcome(r)).Inc()
		}
	}
	recordOutput(state, StepIDArchive, path, len(results))
	s := state.GetStage(StepIDArchive)
	s.SetMetadata(MetaCreated, created)
	s.SetMetadata(MetaDryRun, p.opts.DryRun)
	return nil
}

func archiveOutcome(r domain.EnsureResult) string {
	switch {
	case r.Warning != "":
		return "warning"
	case r.DryRun:
		return "dry_run"
	case r.Created:
		return "created"
	default:
		return "existing"
	}
}

// Finish counts the run's diagnostics, logs a sample of them and writes the
// metrics textfile when one is configured.
func (p *Pipeline) Finish(ctx context.Context) error {
	if p.metrics != nil {
		for t, n := range p.diag.CountByType() {
			p.metrics.DiagnosticsTotal.WithLabelValues(string(t)).Add(float64(n))
		}
	}
	p.diag.LogSummary(ctx, p.logger, 20)

	file := p.cfg.Telemetry.MetricsFile
	if file == "" {
		return nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.paths.RootDir, file)
	}
	return p.metrics.WriteTextfile(file)
}
