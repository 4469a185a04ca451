package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/sim"
	"github.com/pthm-cable/ecosim/storage"
	"github.com/pthm-cable/ecosim/telemetry"
)

// FitnessEvaluator runs in-memory simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxStages  int
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu            sync.Mutex
	bestFitness   float64
	bestSummaries []telemetry.RunSummary
	lastQuality   float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxStages int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxStages:   maxStages,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestSummaries returns the run summaries from the best evaluation.
func (fe *FitnessEvaluator) BestSummaries() []telemetry.RunSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestSummaries
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A species below minViablePop for more than extinctionGraceStages
// consecutive stages counts as functionally extinct.
const (
	minViablePop          = 2
	extinctionGraceStages = 5
	warmupStages          = 3 // stages before extinction checks start
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalStages int // stages before functional extinction (or maxStages if survived)
	stageStats     []telemetry.StageStats
	summaries      []telemetry.RunSummary
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness   float64
	quality   float64
	summaries []telemetry.RunSummary
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness:   fe.computeFitness(result),
				quality:   computeQuality(result.stageStats),
				summaries: result.summaries,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedSummaries []telemetry.RunSummary

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedSummaries = r.summaries
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestSummaries = bestSeedSummaries
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes one in-memory run until functional extinction or
// maxStages, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.Seed = seed
	cfg.Simulation.StageDelay = 0
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.LogStats = false
	cfg.ComputeDerived()

	result := &runResult{survivalStages: fe.maxStages}

	s, err := sim.New(cfg, storage.NewMemoryStore(), sim.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		StatsCallback: func(stats telemetry.StageStats) {
			result.stageStats = append(result.stageStats, stats)
		},
	})
	if err != nil {
		result.survivalStages = 0
		return result
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		result.survivalStages = 0
		return result
	}

	// Consecutive stages each species has spent below minViablePop
	below := make(map[string]int)

	for s.Stage() < fe.maxStages {
		s.Step(ctx)

		stage := s.Stage()
		if stage <= warmupStages {
			continue
		}
		if fe.extinct(s, below) {
			result.survivalStages = stage
			break
		}
	}

	result.summaries = s.Summaries()
	return result
}

// extinct reports whether any species is gone or has stayed below the
// viable population for too long.
func (fe *FitnessEvaluator) extinct(s *sim.Simulation, below map[string]int) bool {
	for _, env := range s.Environments() {
		for _, sp := range env.Species() {
			t := sp.Base()
			key := env.Name() + "/" + t.Name

			// Hard extinction
			if t.Population == 0 {
				return true
			}

			// Functional extinction
			if t.Population < minViablePop {
				below[key]++
			} else {
				below[key] = 0
			}
			if below[key] > extinctionGraceStages {
				return true
			}
		}
	}
	return false
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	data, err := yaml.Marshal(fe.baseConfig)
	if err != nil {
		return config.Default()
	}
	cfg := &config.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return config.Default()
	}
	return cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalStages × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalStages)
	quality := computeQuality(r.stageStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightEvenness  = 0.40
	qualityWeightStability = 0.35
	qualityWeightResources = 0.25
)

// computeQuality computes ecosystem quality ∈ [0, 1] from stage stats.
func computeQuality(stages []telemetry.StageStats) float64 {
	if len(stages) <= warmupStages {
		return 0
	}
	valid := stages[warmupStages:]

	var evennessSum float64
	var healthy int
	pops := make([]float64, 0, len(valid))

	for _, st := range valid {
		evennessSum += st.Evenness
		if !st.Collapsed {
			healthy++
		}
		pops = append(pops, float64(st.TotalPopulation))
	}

	n := float64(len(valid))
	evennessScore := evennessSum / n
	resourceScore := float64(healthy) / n

	// Population stability (CV across all valid stages)
	stabilityScore := 0.0
	if len(pops) >= 2 {
		mean, std := stat.MeanStdDev(pops, nil)
		if mean > 0 {
			cv := std / mean
			stabilityScore = math.Exp(-cv * cv)
		}
	}

	quality := qualityWeightEvenness*evennessScore +
		qualityWeightStability*stabilityScore +
		qualityWeightResources*resourceScore

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
