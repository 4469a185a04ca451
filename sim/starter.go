package sim

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/ecosim/components"
	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/systems"
)

// StarterEnvironments builds the configured starter ecosystem, sorted by
// environment name. Rates missing from a species entry come from
// species_defaults for its kind.
func StarterEnvironments(cfg *config.Config, rules systems.Rules) ([]*systems.Environment, error) {
	envs := make([]*systems.Environment, 0, len(cfg.Starter))

	for _, ec := range cfg.Starter {
		climate := ec.Climate
		if climate == "" {
			climate = cfg.LoadDefaults.Climate
		}
		env := systems.NewEnvironment(ec.Name, climate, ec.Resources, rules)

		for _, sc := range ec.Species {
			sp, err := starterSpecies(cfg.SpeciesDefaults, sc)
			if err != nil {
				return nil, fmt.Errorf("starter %s: %w", ec.Name, err)
			}
			if err := env.IntroduceSpecies(sp); err != nil {
				return nil, fmt.Errorf("starter: %w", err)
			}
		}
		envs = append(envs, env)
	}

	sort.Slice(envs, func(i, j int) bool { return envs[i].Name() < envs[j].Name() })
	return envs, nil
}

func starterSpecies(defaults config.SpeciesDefaultsConfig, sc config.SpeciesConfig) (systems.Species, error) {
	kind, err := components.ParseKind(sc.Type)
	if err != nil {
		return nil, fmt.Errorf("species %q: %w", sc.Name, err)
	}

	var p config.SpeciesParams
	switch kind {
	case components.KindProducer:
		p = defaults.Producer
	case components.KindConsumer:
		p = defaults.Consumer
	case components.KindDecomposer:
		p = defaults.Decomposer
	}
	override(&p.EnergyNeeds, sc.EnergyNeeds)
	override(&p.ReproductionRate, sc.ReproductionRate)
	override(&p.EnergyProduction, sc.EnergyProduction)
	override(&p.DecompositionRate, sc.DecompositionRate)

	sp, err := systems.NewSpecies(kind, sc.Name, p, sc.Prey)
	if err != nil {
		return nil, err
	}
	sp.Base().SetPopulation(sc.Population)
	return sp, nil
}

func override(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
