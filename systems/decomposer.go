package systems

import "github.com/pthm-cable/ecosim/components"

// DefaultDecomposerNeeds is the energy need of a freshly created decomposer.
const DefaultDecomposerNeeds = 0.5

// Decomposer recycles matter into the resource pool, e.g. bacteria.
type Decomposer struct {
	Traits
	DecompositionRate float64 // Probability of a decomposition event per step
}

// NewDecomposer creates a decomposer with no population.
func NewDecomposer(name string, decompositionRate, reproductionRate float64) *Decomposer {
	return &Decomposer{
		Traits: Traits{
			Name:             name,
			EnergyNeeds:      DefaultDecomposerNeeds,
			ReproductionRate: reproductionRate,
		},
		DecompositionRate: decompositionRate,
	}
}

func (m *Decomposer) Kind() components.Kind { return components.KindDecomposer }
func (m *Decomposer) isSpecies()            {}

// Decompose runs one decomposition trial. On success it reports the pool
// credit (population*CreditFactor) and the returned amount
// (population*ReturnFactor). On failure both are zero and ok is false.
func (m *Decomposer) Decompose(h Habitat, rng Rand) (credit, returned float64, ok bool) {
	if m.Population <= 0 {
		return 0, 0, false
	}
	if rng.Float64() >= m.DecompositionRate {
		return 0, 0, false
	}
	rules := h.Rules()
	pop := float64(m.Population)
	return pop * rules.CreditFactor, pop * rules.ReturnFactor, true
}

// Step reproduces, draws its needs, decomposes and pays its upkeep.
// Upkeep is a second charge equal to the base consumption.
func (m *Decomposer) Step(h Habitat, rng Rand) Delta {
	var d Delta
	d.Reproduced = m.Reproduce(rng)
	d.Consumed = m.ConsumeEnergy()
	d.DecomposeCredit, d.DecomposeReturn, d.Decomposed = m.Decompose(h, rng)
	d.Upkeep = m.ConsumeEnergy()
	return d
}
