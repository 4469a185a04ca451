// Package systems implements the species behavior model and the per-stage
// environment protocol: interaction phase followed by balancing phase.
package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/ecosim/components"
	"github.com/pthm-cable/ecosim/config"
)

// Species is one population group inside an environment.
// The variant set is closed: *Producer, *Consumer and *Decomposer.
type Species interface {
	fmt.Stringer

	// Kind reports the variant.
	Kind() components.Kind
	// Base exposes the state shared by every variant.
	Base() *Traits
	// Step runs reproduce, consume and the variant action, returning the
	// effects for the habitat to apply.
	Step(h Habitat, rng Rand) Delta

	isSpecies()
}

// Habitat is the part of an environment a species may observe during its step.
type Habitat interface {
	// EligiblePrey returns, in introduction order, the names listed in prey
	// whose population is above zero.
	EligiblePrey(prey []string) []string
	// Rules returns the environment's numeric constants.
	Rules() Rules
}

// Traits holds the state common to every species.
type Traits struct {
	Name             string
	Population       int
	EnergyNeeds      float64 // Energy drawn per individual per step
	ReproductionRate float64 // Probability of +1 individual per step
}

// Base returns the traits themselves so embedding types satisfy Species.
func (t *Traits) Base() *Traits { return t }

// Reproduce adds one individual with probability ReproductionRate.
func (t *Traits) Reproduce(rng Rand) bool {
	if rng.Float64() < t.ReproductionRate {
		t.Population++
		return true
	}
	return false
}

// ConsumeEnergy returns the energy the population needs this step.
// It does not touch any pool; the caller applies the result.
func (t *Traits) ConsumeEnergy() float64 {
	if t.Population > 0 {
		return float64(t.Population) * t.EnergyNeeds
	}
	return 0
}

// SetPopulation sets the population, clamped at zero.
func (t *Traits) SetPopulation(n int) {
	if n < 0 {
		n = 0
	}
	t.Population = n
}

// AddPopulation changes the population by delta, clamped at zero and
// saturating at math.MaxInt.
// Returns the change actually applied.
func (t *Traits) AddPopulation(delta int) int {
	before := t.Population
	switch {
	case delta > 0 && before > math.MaxInt-delta:
		t.SetPopulation(math.MaxInt)
	case delta < 0 && before < math.MinInt-delta:
		t.SetPopulation(0)
	default:
		t.SetPopulation(before + delta)
	}
	return t.Population - before
}

func (t *Traits) String() string {
	return fmt.Sprintf("%s (Population: %d)", t.Name, t.Population)
}

// NewSpecies builds a species of the given kind from configured parameters.
// Prey is only used by consumers.
func NewSpecies(kind components.Kind, name string, p config.SpeciesParams, prey []string) (Species, error) {
	switch kind {
	case components.KindProducer:
		s := NewProducer(name, p.EnergyProduction, p.ReproductionRate)
		s.EnergyNeeds = p.EnergyNeeds
		return s, nil
	case components.KindConsumer:
		return NewConsumer(name, p.EnergyNeeds, prey, p.ReproductionRate), nil
	case components.KindDecomposer:
		s := NewDecomposer(name, p.DecompositionRate, p.ReproductionRate)
		s.EnergyNeeds = p.EnergyNeeds
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported species kind %d", kind)
	}
}
