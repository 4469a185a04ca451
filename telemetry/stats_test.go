package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/ecosim/systems"
)

func TestComputeDiversity(t *testing.T) {
	tests := []struct {
		name         string
		pops         []int
		wantShannon  float64
		wantEvenness float64
	}{
		{"empty", nil, 0, 0},
		{"all extinct", []int{0, 0}, 0, 0},
		{"single species", []int{42}, 0, 0},
		{"two equal", []int{10, 10}, math.Ln2, 1},
		{"four equal", []int{5, 5, 5, 5}, math.Log(4), 1},
		{"extinct ignored", []int{7, 0, 7}, math.Ln2, 1},
		{"skewed", []int{90, 10}, -(0.9*math.Log(0.9) + 0.1*math.Log(0.1)), -(0.9*math.Log(0.9) + 0.1*math.Log(0.1)) / math.Ln2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := ComputeDiversity(tt.pops)
			if math.Abs(h-tt.wantShannon) > 1e-9 {
				t.Errorf("shannon = %v, want %v", h, tt.wantShannon)
			}
			if math.Abs(e-tt.wantEvenness) > 1e-9 {
				t.Errorf("evenness = %v, want %v", e, tt.wantEvenness)
			}
		})
	}
}

func TestNewStageStats(t *testing.T) {
	env := buildEarth(t)
	interaction := env.SimulateInteractions(rand.New(rand.NewSource(5)))
	balance := env.MonitorBiodiversity()

	s := NewStageStats(3, env, interaction, balance)

	if s.Stage != 3 || s.Environment != "Earth" || s.Climate != "tropical" {
		t.Errorf("identity fields = %d/%s/%s", s.Stage, s.Environment, s.Climate)
	}
	if s.Species != 4 || s.LivingSpecies != 4 {
		t.Errorf("species = %d living = %d, want 4/4", s.Species, s.LivingSpecies)
	}
	if s.TotalPopulation != env.TotalPopulation() {
		t.Errorf("total population = %d, want %d", s.TotalPopulation, env.TotalPopulation())
	}
	if s.Resources != env.Resources() || s.Collapsed != env.Collapsed() {
		t.Errorf("resource fields out of sync")
	}
	if s.Kills != interaction.Kills || s.Reductions != balance.Reductions() || s.Boosts != balance.Boosts() {
		t.Errorf("event counts out of sync: %+v", s)
	}
	if s.Shannon <= 0 || s.Evenness <= 0 || s.Evenness > 1 {
		t.Errorf("diversity = %v/%v", s.Shannon, s.Evenness)
	}
}

func TestStageStatsLogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("stage", "stats", StageStats{Stage: 2, Environment: "Earth", TotalPopulation: 175})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	group, ok := rec["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats not logged as a group: %v", rec)
	}
	if group["environment"] != "Earth" || group["total_population"] != float64(175) {
		t.Errorf("unexpected group %v", group)
	}
}

func TestStageStatsEmptyEnvironment(t *testing.T) {
	env := systems.NewEnvironment("Void", "moderate", -5, systems.DefaultRules())
	interaction := env.SimulateInteractions(rand.New(rand.NewSource(1)))
	balance := env.MonitorBiodiversity()

	s := NewStageStats(1, env, interaction, balance)
	if s.Species != 0 || s.Shannon != 0 || !s.Collapsed {
		t.Errorf("unexpected stats %+v", s)
	}
}
