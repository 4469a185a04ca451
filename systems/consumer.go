package systems

import "github.com/pthm-cable/ecosim/components"

// Consumer hunts the species named in Prey, e.g. animals.
type Consumer struct {
	Traits
	Prey []string // Names of species this consumer may hunt
}

// NewConsumer creates a consumer with no population.
func NewConsumer(name string, energyNeeds float64, prey []string, reproductionRate float64) *Consumer {
	if prey == nil {
		prey = []string{}
	}
	return &Consumer{
		Traits: Traits{
			Name:             name,
			EnergyNeeds:      energyNeeds,
			ReproductionRate: reproductionRate,
		},
		Prey: prey,
	}
}

func (c *Consumer) Kind() components.Kind { return components.KindConsumer }
func (c *Consumer) isSpecies()            {}

// Hunt picks one eligible prey species uniformly at random.
// On success it returns EnergyNeeds and the prey name; the caller removes
// one individual from that species. A single predation event happens per
// call regardless of the consumer's population.
func (c *Consumer) Hunt(h Habitat, rng Rand) (float64, string) {
	if c.Population <= 0 || len(c.Prey) == 0 {
		return 0, ""
	}
	candidates := h.EligiblePrey(c.Prey)
	if len(candidates) == 0 {
		return 0, ""
	}
	return c.EnergyNeeds, choice(rng, candidates)
}

// Step reproduces, draws its needs and hunts once.
func (c *Consumer) Step(h Habitat, rng Rand) Delta {
	var d Delta
	d.Reproduced = c.Reproduce(rng)
	d.Consumed = c.ConsumeEnergy()
	d.HuntDebit, d.PreyTaken = c.Hunt(h, rng)
	return d
}
