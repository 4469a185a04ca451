package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/ecosim/components"
	"github.com/pthm-cable/ecosim/config"
)

// scriptedRand replays fixed draws. Once a script is exhausted Float64
// returns 0.999 (every trial fails) and Intn returns 0.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptedRand) Float64() float64 {
	if r.fi >= len(r.floats) {
		return 0.999
	}
	v := r.floats[r.fi]
	r.fi++
	return v
}

func (r *scriptedRand) Intn(n int) int {
	if r.ii >= len(r.ints) {
		return 0
	}
	v := r.ints[r.ii] % n
	r.ii++
	return v
}

// never fails every Bernoulli trial and picks the first candidate.
func never() *scriptedRand { return &scriptedRand{} }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ---------- Traits ----------

func TestReproduce(t *testing.T) {
	tests := []struct {
		name string
		draw float64
		rate float64
		want int
	}{
		{"draw below rate", 0.4, 0.5, 11},
		{"draw equal to rate", 0.5, 0.5, 10},
		{"draw above rate", 0.6, 0.5, 10},
		{"zero rate", 0.0, 0.0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Traits{Name: "x", Population: 10, ReproductionRate: tt.rate}
			tr.Reproduce(&scriptedRand{floats: []float64{tt.draw}})
			if tr.Population != tt.want {
				t.Errorf("population = %d, want %d", tr.Population, tt.want)
			}
		})
	}
}

func TestConsumeEnergy(t *testing.T) {
	tests := []struct {
		pop   int
		needs float64
		want  float64
	}{
		{0, 2.5, 0},
		{1, 2.5, 2.5},
		{4, 2.5, 10},
		{100, 0.5, 50},
	}

	for _, tt := range tests {
		tr := Traits{Population: tt.pop, EnergyNeeds: tt.needs}
		if got := tr.ConsumeEnergy(); !approx(got, tt.want) {
			t.Errorf("ConsumeEnergy(pop=%d, needs=%v) = %v, want %v", tt.pop, tt.needs, got, tt.want)
		}
	}
}

func TestPopulationClamp(t *testing.T) {
	tr := Traits{Population: 3}
	if applied := tr.AddPopulation(-10); applied != -3 {
		t.Errorf("applied = %d, want -3", applied)
	}
	if tr.Population != 0 {
		t.Errorf("population = %d, want 0", tr.Population)
	}
	tr.SetPopulation(-7)
	if tr.Population != 0 {
		t.Errorf("SetPopulation(-7) left %d", tr.Population)
	}

	tr.SetPopulation(math.MaxInt - 1)
	if applied := tr.AddPopulation(10); applied != 1 || tr.Population != math.MaxInt {
		t.Errorf("AddPopulation near MaxInt applied %d, population %d", applied, tr.Population)
	}
}

func TestSpeciesString(t *testing.T) {
	p := NewProducer("Sunflower", 2, 0.05)
	p.Population = 50
	if got := p.String(); got != "Sunflower (Population: 50)" {
		t.Errorf("String() = %q", got)
	}
}

// ---------- Producer ----------

func TestProducerStep(t *testing.T) {
	p := NewProducer("Grass", 2, 0.5)
	p.Population = 10
	env := NewEnvironment("test", "moderate", 0, DefaultRules())

	d := p.Step(env, &scriptedRand{floats: []float64{0.1}})

	if !d.Reproduced || p.Population != 11 {
		t.Fatalf("expected reproduction, population = %d", p.Population)
	}
	if d.Consumed != 0 {
		t.Errorf("producer consumed %v, want 0", d.Consumed)
	}
	if !approx(d.Produced, 22) {
		t.Errorf("produced = %v, want 22", d.Produced)
	}
	if !approx(d.Net(), 22) {
		t.Errorf("net = %v, want 22", d.Net())
	}
}

// ---------- Consumer ----------

func TestHuntNoEligiblePrey(t *testing.T) {
	tests := []struct {
		name     string
		foxPop   int
		rabbit   int
		prey     []string
		resource float64
	}{
		{"prey extinct", 5, 0, []string{"Rabbit"}, 100},
		{"prey absent", 5, 10, []string{"Mouse"}, 100},
		{"empty prey list", 5, 10, nil, 100},
		{"predator extinct", 0, 10, []string{"Rabbit"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvironment("test", "moderate", tt.resource, DefaultRules())
			rabbit := NewConsumer("Rabbit", 2, nil, 0)
			rabbit.Population = tt.rabbit
			fox := NewConsumer("Fox", 2, tt.prey, 0)
			fox.Population = tt.foxPop
			mustIntroduce(t, env, rabbit, fox)

			gain, prey := fox.Hunt(env, never())

			if gain != 0 || prey != "" {
				t.Errorf("Hunt = (%v, %q), want (0, \"\")", gain, prey)
			}
			if env.Resources() != tt.resource {
				t.Errorf("resources changed to %v", env.Resources())
			}
			if rabbit.Population != tt.rabbit || fox.Population != tt.foxPop {
				t.Errorf("populations changed: rabbit=%d fox=%d", rabbit.Population, fox.Population)
			}
		})
	}
}

func TestHuntPicksUniformlyAmongEligible(t *testing.T) {
	env := NewEnvironment("test", "moderate", 100, DefaultRules())
	mouse := NewConsumer("Mouse", 1, nil, 0)
	mouse.Population = 4
	vole := NewConsumer("Vole", 1, nil, 0)
	vole.Population = 0
	rabbit := NewConsumer("Rabbit", 1, nil, 0)
	rabbit.Population = 9
	owl := NewConsumer("Owl", 3, []string{"Rabbit", "Vole", "Mouse"}, 0)
	owl.Population = 2
	mustIntroduce(t, env, mouse, vole, rabbit, owl)

	// Eligible in introduction order: Mouse, Rabbit
	if got := env.EligiblePrey(owl.Prey); len(got) != 2 || got[0] != "Mouse" || got[1] != "Rabbit" {
		t.Fatalf("EligiblePrey = %v", got)
	}

	gain, prey := owl.Hunt(env, &scriptedRand{ints: []int{1}})
	if gain != 3 || prey != "Rabbit" {
		t.Errorf("Hunt = (%v, %q), want (3, Rabbit)", gain, prey)
	}
	// Hunt itself never mutates the prey
	if rabbit.Population != 9 {
		t.Errorf("Hunt mutated prey population: %d", rabbit.Population)
	}
}

func TestConsumerStep(t *testing.T) {
	env := NewEnvironment("test", "moderate", 100, DefaultRules())
	grass := NewProducer("Grass", 1, 0)
	grass.Population = 3
	rabbit := NewConsumer("Rabbit", 2, []string{"Grass"}, 0.5)
	rabbit.Population = 4
	mustIntroduce(t, env, grass, rabbit)

	d := rabbit.Step(env, &scriptedRand{floats: []float64{0.9}})

	if d.Reproduced {
		t.Error("unexpected reproduction")
	}
	if !approx(d.Consumed, 8) || !approx(d.HuntDebit, 2) || d.PreyTaken != "Grass" {
		t.Errorf("unexpected delta %+v", d)
	}
	if !approx(d.Net(), -10) {
		t.Errorf("net = %v, want -10", d.Net())
	}
}

// ---------- Decomposer ----------

func TestDecompose(t *testing.T) {
	env := NewEnvironment("test", "moderate", 0, DefaultRules())

	m := NewDecomposer("Bacteria", 0.2, 0)
	m.Population = 100

	credit, returned, ok := m.Decompose(env, &scriptedRand{floats: []float64{0.1}})
	if !ok || !approx(credit, 10) || !approx(returned, 5) {
		t.Errorf("success Decompose = (%v, %v, %v), want (10, 5, true)", credit, returned, ok)
	}

	credit, returned, ok = m.Decompose(env, &scriptedRand{floats: []float64{0.2}})
	if ok || credit != 0 || returned != 0 {
		t.Errorf("failed Decompose = (%v, %v, %v), want zeros", credit, returned, ok)
	}

	m.Population = 0
	if _, _, ok := m.Decompose(env, &scriptedRand{floats: []float64{0.0}}); ok {
		t.Error("empty population must not decompose")
	}
}

func TestDecomposerStepChargesUpkeepTwice(t *testing.T) {
	env := NewEnvironment("test", "moderate", 0, DefaultRules())
	m := NewDecomposer("Bacteria", 0.2, 0)
	m.Population = 100

	// Reproduction draw fails, decomposition draw succeeds
	d := m.Step(env, &scriptedRand{floats: []float64{0.99, 0.1}})

	if !approx(d.Consumed, 50) || !approx(d.Upkeep, 50) {
		t.Errorf("consumed=%v upkeep=%v, want 50/50", d.Consumed, d.Upkeep)
	}
	if !d.Decomposed || !approx(d.DecomposeCredit, 10) || !approx(d.DecomposeReturn, 5) {
		t.Errorf("unexpected decomposition in %+v", d)
	}
	if !approx(d.Net(), -85) {
		t.Errorf("net = %v, want -85", d.Net())
	}
}

// ---------- Factory ----------

func TestNewSpeciesFromParams(t *testing.T) {
	defaults := config.Default().SpeciesDefaults

	tests := []struct {
		kind  components.Kind
		p     config.SpeciesParams
		needs float64
	}{
		{components.KindProducer, defaults.Producer, 0},
		{components.KindConsumer, defaults.Consumer, 2},
		{components.KindDecomposer, defaults.Decomposer, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			s, err := NewSpecies(tt.kind, "x", tt.p, []string{"y"})
			if err != nil {
				t.Fatal(err)
			}
			if s.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", s.Kind(), tt.kind)
			}
			if s.Base().EnergyNeeds != tt.needs {
				t.Errorf("energy needs = %v, want %v", s.Base().EnergyNeeds, tt.needs)
			}
		})
	}

	if _, err := NewSpecies(components.Kind(9), "x", config.SpeciesParams{}, nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func mustIntroduce(t *testing.T, env *Environment, species ...Species) {
	t.Helper()
	for _, s := range species {
		if err := env.IntroduceSpecies(s); err != nil {
			t.Fatalf("IntroduceSpecies(%s): %v", s.Base().Name, err)
		}
	}
}
