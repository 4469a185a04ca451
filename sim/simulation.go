// Package sim drives the ecosystem: bootstrapping from a store, running
// stages, collecting telemetry and saving after every stage.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/storage"
	"github.com/pthm-cable/ecosim/systems"
	"github.com/pthm-cable/ecosim/telemetry"
)

// perfWindow is the number of stages averaged by the perf collector.
const perfWindow = 10

// Options holds driver settings that do not live in the config file.
type Options struct {
	Logger *slog.Logger

	// OutputDir overrides telemetry.output_dir when non-empty.
	OutputDir string

	// StatsCallback, if set, receives every stage's stats.
	StatsCallback func(telemetry.StageStats)
}

// Simulation owns the environments for the whole run.
type Simulation struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	rules  systems.Rules

	envs  []*systems.Environment
	rngs  []*rand.Rand
	seed  int64
	stage int

	pool          *workerPool
	detectors     map[string]*telemetry.BookmarkDetector
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	statsCallback func(telemetry.StageStats)

	saveFailures int
}

// New creates a driver. Call Bootstrap before Run.
func New(cfg *config.Config, store storage.Store, opts Options) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulation{
		cfg:           cfg,
		store:         store,
		logger:        logger,
		rules:         systems.RulesFromConfig(cfg),
		seed:          seed,
		pool:          newWorkerPool(cfg.Simulation.Workers),
		detectors:     make(map[string]*telemetry.BookmarkDetector),
		collector:     telemetry.NewCollector(),
		perf:          telemetry.NewPerfCollector(perfWindow),
		outputManager: om,
		statsCallback: opts.StatsCallback,
	}, nil
}

// Bootstrap loads the persisted ecosystem, or builds the starter ecosystem
// when the store is unavailable, empty or holds no usable environment.
// Store failures are logged and never returned.
func (s *Simulation) Bootstrap(ctx context.Context) error {
	envs := s.loadFromStore(ctx)
	if len(envs) == 0 {
		starter, err := StarterEnvironments(s.cfg, s.rules)
		if err != nil {
			return err
		}
		envs = starter
		s.logger.Info("starting fresh ecosystem", "environments", len(envs))
	}

	s.envs = envs
	s.rngs = make([]*rand.Rand, len(envs))
	for i, env := range envs {
		s.rngs[i] = rand.New(rand.NewSource(s.seed + int64(i)))
		s.detectors[env.Name()] = telemetry.NewBookmarkDetector(s.cfg.Bookmarks)
	}
	return nil
}

func (s *Simulation) loadFromStore(ctx context.Context) []*systems.Environment {
	if err := s.store.Init(ctx); err != nil {
		s.logger.Warn("store unavailable, saves will fail", "error", err)
		return nil
	}

	snap, ok, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load ecosystem", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	envs, warnings := telemetry.Restore(snap, s.cfg.LoadDefaults, s.rules)
	for _, w := range warnings {
		s.logger.Warn("skipped species entry", "error", w)
	}
	if len(envs) > 0 {
		s.logger.Info("loaded existing ecosystem", "environments", len(envs))
	}
	return envs
}

// Environments returns the in-memory state in processing order.
func (s *Simulation) Environments() []*systems.Environment { return s.envs }

// Stage returns the number of completed stages.
func (s *Simulation) Stage() int { return s.stage }

// SaveFailures returns how many saves have failed so far.
func (s *Simulation) SaveFailures() int { return s.saveFailures }

// Summaries returns per-environment totals for the stages run so far.
func (s *Simulation) Summaries() []telemetry.RunSummary { return s.collector.Summaries() }

// Run executes simulation.stages stages, pausing simulation.stage_delay
// between them. Zero stages runs until ctx is cancelled. Cancellation is
// only observed between stages.
func (s *Simulation) Run(ctx context.Context) error {
	total := s.cfg.Simulation.Stages
	delay := s.cfg.Derived.StageDelay

	s.logger.Info("starting simulation",
		"seed", s.seed,
		"stages", total,
		"workers", s.pool.numWorkers,
		"stage_delay", delay,
	)

	for n := 0; total == 0 || n < total; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step(ctx)

		if delay > 0 && (total == 0 || n < total-1) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	s.logSummary()
	return nil
}

// Step runs one stage: climate events, both phases for every environment,
// telemetry, then a save.
func (s *Simulation) Step(ctx context.Context) {
	s.stage++
	s.perf.StartStage()

	s.applyClimateEvents()

	results := s.pool.run(s.envs, s.rngs)
	for _, r := range results {
		s.perf.AddPhase(telemetry.PhaseInteraction, r.interactionTime)
		s.perf.AddPhase(telemetry.PhaseBalancing, r.balancingTime)
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.recordTelemetry(results)

	s.perf.StartPhase(telemetry.PhasePersist)
	s.persist(ctx)

	s.perf.EndStage()
	if err := s.outputManager.WritePerf(s.perf.Stats(), s.stage); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}
}

func (s *Simulation) applyClimateEvents() {
	for _, ev := range s.cfg.ClimateEvents {
		if ev.Stage != s.stage {
			continue
		}
		for _, env := range s.envs {
			if ev.Environment != "" && ev.Environment != env.Name() {
				continue
			}
			prev := env.AdjustClimate(ev.Climate)
			s.logger.Info("climate changed",
				"stage", s.stage,
				"environment", env.Name(),
				"from", prev,
				"to", ev.Climate,
			)
		}
	}
}

func (s *Simulation) recordTelemetry(results []stageResult) {
	for i, env := range s.envs {
		stats := telemetry.NewStageStats(s.stage, env, results[i].interaction, results[i].balance)
		s.collector.Record(stats)

		if s.statsCallback != nil {
			s.statsCallback(stats)
		}
		if s.cfg.Telemetry.LogStats {
			stats.LogStats(s.logger)
		}
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			s.logger.Error("failed to write telemetry", "error", err)
		}

		for _, bm := range s.detectors[env.Name()].Check(stats, env) {
			bm.LogBookmark(s.logger)
			s.collector.RecordBookmark(bm)
			if err := s.outputManager.WriteBookmarks(bm); err != nil {
				s.logger.Error("failed to write bookmark", "error", err)
			}
		}
	}
}

// persist saves the current state. A failed save keeps the in-memory state
// and the run continues.
func (s *Simulation) persist(ctx context.Context) {
	desc := s.describeStage()
	if err := s.store.Save(ctx, telemetry.Capture(s.envs), desc); err != nil {
		s.saveFailures++
		s.logger.Warn("failed to save ecosystem", "stage", s.stage, "error", err)
		return
	}
	s.logger.Debug("ecosystem saved", "stage", s.stage, "description", desc)
}

func (s *Simulation) describeStage() string {
	format := s.cfg.Storage.Description
	if strings.Contains(format, "%d") {
		return fmt.Sprintf(format, s.stage)
	}
	return format
}

func (s *Simulation) logSummary() {
	for _, sum := range s.collector.Summaries() {
		s.logger.Info("run summary", "summary", sum)
	}
	if s.saveFailures > 0 {
		s.logger.Warn("some stages were not saved", "failures", s.saveFailures, "stages", s.stage)
	}
	if s.cfg.Telemetry.PerfLog {
		s.perf.Stats().LogStats(s.logger)
	}
}

// Close stops the worker pool and flushes telemetry output.
// The store is owned by the caller.
func (s *Simulation) Close() error {
	s.pool.stop()
	return s.outputManager.Close()
}
