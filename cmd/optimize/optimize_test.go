package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()

	for i, spec := range pv.Specs {
		if def[i] < spec.Min || def[i] > spec.Max {
			t.Errorf("%s default %v outside [%v, %v]", spec.Name, def[i], spec.Min, spec.Max)
		}
	}

	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: round trip %v -> %v", pv.Specs[i].Name, def[i], back[i])
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	values := pv.DefaultVector()
	values[0] = 100 // producer_energy_production above Max
	values[1] = -1  // producer_reproduction_rate below Min

	cfg := config.Default()
	pv.ApplyToConfig(cfg, values)

	if got := cfg.SpeciesDefaults.Producer.EnergyProduction; got != pv.Specs[0].Max {
		t.Errorf("energy_production = %v, want %v", got, pv.Specs[0].Max)
	}
	if got := cfg.SpeciesDefaults.Producer.ReproductionRate; got != pv.Specs[1].Min {
		t.Errorf("reproduction_rate = %v, want %v", got, pv.Specs[1].Min)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("tuned config invalid: %v", err)
	}
}

func TestComputeQuality(t *testing.T) {
	steady := make([]telemetry.StageStats, 20)
	for i := range steady {
		steady[i] = telemetry.StageStats{TotalPopulation: 100, Evenness: 0.9}
	}
	swinging := make([]telemetry.StageStats, 20)
	for i := range swinging {
		pop := 20
		if i%2 == 0 {
			pop = 200
		}
		swinging[i] = telemetry.StageStats{TotalPopulation: pop, Evenness: 0.9, Collapsed: i%3 == 0}
	}

	if q := computeQuality(steady[:warmupStages]); q != 0 {
		t.Errorf("quality during warmup = %v, want 0", q)
	}
	qs, qw := computeQuality(steady), computeQuality(swinging)
	if qs <= qw {
		t.Errorf("steady quality %v should beat swinging %v", qs, qw)
	}
	if qs < 0 || qs > 1 {
		t.Errorf("quality %v outside [0,1]", qs)
	}
}

func plantWorld(rabbitRate float64) *config.Config {
	cfg := config.Default()
	cfg.Starter = []config.EnvironmentConfig{{
		Name:      "Meadow",
		Resources: 200,
		Species: []config.SpeciesConfig{
			{Type: "Plant", Name: "Clover", Population: 50},
		},
	}}
	if rabbitRate >= 0 {
		cfg.Starter[0].Resources = 5
		cfg.Balance.MinCapacity = 1e12 // no boosts, so a taken rabbit stays gone
		cfg.Starter[0].Species = append(cfg.Starter[0].Species,
			config.SpeciesConfig{Type: "Animal", Name: "Rabbit", Population: 1, ReproductionRate: &rabbitRate},
			config.SpeciesConfig{Type: "Animal", Name: "Fox", Population: 3, Prey: []string{"Rabbit"}},
		)
	}
	return cfg
}

func TestRunSimulationSurvival(t *testing.T) {
	pv := NewParamVector()

	fe := NewFitnessEvaluator(pv, 12, []int64{1}, plantWorld(-1))
	if r := fe.runSimulation(pv.DefaultVector(), 1); r.survivalStages != 12 || len(r.stageStats) != 12 {
		t.Errorf("plant world survived %d stages with %d stats, want 12", r.survivalStages, len(r.stageStats))
	}

	fe = NewFitnessEvaluator(pv, 12, []int64{1}, plantWorld(0))
	if r := fe.runSimulation(pv.DefaultVector(), 1); r.survivalStages != warmupStages+1 {
		t.Errorf("rabbit world survived %d stages, want %d", r.survivalStages, warmupStages+1)
	}
}

func TestEvaluateTracksBest(t *testing.T) {
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 8, []int64{1, 2}, plantWorld(-1))

	fitness := fe.Evaluate(pv.DefaultVector())
	if fitness > -8 {
		t.Errorf("fitness = %v, want <= -8", fitness)
	}
	if sums := fe.BestSummaries(); len(sums) != 1 || sums[0].Environment != "Meadow" {
		t.Errorf("best summaries = %+v", sums)
	}
}
