package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/ecosim/systems"
)

// StageStats holds the statistics of one environment after one stage.
type StageStats struct {
	Stage       int    `csv:"stage"`
	Environment string `csv:"environment"`
	Climate     string `csv:"climate"`

	// Resource pool
	Resources      float64 `csv:"resources"`
	ResourceChange float64 `csv:"resource_change"` // Interaction phase delta
	Capacity       float64 `csv:"capacity"`

	// Populations at stage end
	Species         int `csv:"species"`
	LivingSpecies   int `csv:"living_species"`
	TotalPopulation int `csv:"total_population"`

	// Events during the stage
	Births         int `csv:"births"`
	Kills          int `csv:"kills"`
	Decompositions int `csv:"decompositions"`
	Reductions     int `csv:"reductions"`
	Boosts         int `csv:"boosts"`

	// Diversity
	Shannon  float64 `csv:"shannon"`
	Evenness float64 `csv:"evenness"`

	Collapsed bool `csv:"collapsed"`
}

// NewStageStats collects the stats of env after a stage.
func NewStageStats(stage int, env *systems.Environment, interaction systems.InteractionReport, balance systems.BalanceReport) StageStats {
	pops := make([]int, 0, env.SpeciesCount())
	living := 0
	for _, s := range env.Species() {
		p := s.Base().Population
		pops = append(pops, p)
		if p > 0 {
			living++
		}
	}
	shannon, evenness := ComputeDiversity(pops)

	return StageStats{
		Stage:           stage,
		Environment:     env.Name(),
		Climate:         env.Climate(),
		Resources:       env.Resources(),
		ResourceChange:  interaction.ResourcesAfter - interaction.ResourcesBefore,
		Capacity:        balance.Capacity,
		Species:         env.SpeciesCount(),
		LivingSpecies:   living,
		TotalPopulation: env.TotalPopulation(),
		Births:          interaction.Births,
		Kills:           interaction.Kills,
		Decompositions:  interaction.Decompositions,
		Reductions:      balance.Reductions(),
		Boosts:          balance.Boosts(),
		Shannon:         shannon,
		Evenness:        evenness,
		Collapsed:       env.Collapsed(),
	}
}

// ComputeDiversity returns the Shannon index H of the population
// distribution and Pielou's evenness H/ln(S), where S counts living species.
// Evenness is 0 when fewer than two species are alive.
func ComputeDiversity(pops []int) (shannon, evenness float64) {
	var total float64
	living := 0
	for _, p := range pops {
		if p > 0 {
			total += float64(p)
			living++
		}
	}
	if total == 0 {
		return 0, 0
	}

	probs := make([]float64, 0, living)
	for _, p := range pops {
		if p > 0 {
			probs = append(probs, float64(p)/total)
		}
	}
	shannon = stat.Entropy(probs)
	if living > 1 {
		evenness = shannon / math.Log(float64(living))
	}
	return shannon, evenness
}

// LogValue implements slog.LogValuer for structured logging.
func (s StageStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("stage", s.Stage),
		slog.String("environment", s.Environment),
		slog.String("climate", s.Climate),
		slog.Float64("resources", s.Resources),
		slog.Float64("resource_change", s.ResourceChange),
		slog.Float64("capacity", s.Capacity),
		slog.Int("species", s.Species),
		slog.Int("living_species", s.LivingSpecies),
		slog.Int("total_population", s.TotalPopulation),
		slog.Int("births", s.Births),
		slog.Int("kills", s.Kills),
		slog.Int("decompositions", s.Decompositions),
		slog.Int("reductions", s.Reductions),
		slog.Int("boosts", s.Boosts),
		slog.Float64("shannon", s.Shannon),
		slog.Float64("evenness", s.Evenness),
		slog.Bool("collapsed", s.Collapsed),
	)
}

// LogStats logs the stage stats using slog.
func (s StageStats) LogStats(logger *slog.Logger) {
	logger.Info("stats",
		"stage", s.Stage,
		"environment", s.Environment,
		"resources", s.Resources,
		"resource_change", s.ResourceChange,
		"species", s.Species,
		"total_population", s.TotalPopulation,
		"births", s.Births,
		"kills", s.Kills,
		"decompositions", s.Decompositions,
		"reductions", s.Reductions,
		"boosts", s.Boosts,
		"shannon", s.Shannon,
	)
}
