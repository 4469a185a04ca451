package systems

import "github.com/pthm-cable/ecosim/components"

// Producer feeds the resource pool, e.g. plants.
type Producer struct {
	Traits
	EnergyProduction float64 // Energy added per individual per step
}

// NewProducer creates a producer with no population and no energy needs.
func NewProducer(name string, energyProduction, reproductionRate float64) *Producer {
	return &Producer{
		Traits: Traits{
			Name:             name,
			ReproductionRate: reproductionRate,
		},
		EnergyProduction: energyProduction,
	}
}

func (p *Producer) Kind() components.Kind { return components.KindProducer }
func (p *Producer) isSpecies()            {}

// ProduceEnergy returns the energy the population adds this step.
func (p *Producer) ProduceEnergy() float64 {
	return float64(p.Population) * p.EnergyProduction
}

// Step reproduces, draws its needs and adds its production.
func (p *Producer) Step(_ Habitat, rng Rand) Delta {
	var d Delta
	d.Reproduced = p.Reproduce(rng)
	d.Consumed = p.ConsumeEnergy()
	d.Produced = p.ProduceEnergy()
	return d
}
