package systems

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/ecosim/components"
)

// ErrDuplicateSpecies is returned when a species name is already present.
var ErrDuplicateSpecies = errors.New("duplicate species name")

// Phase is the environment's position in the per-stage cycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseInteracting
	PhaseBalancing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInteracting:
		return "interacting"
	case PhaseBalancing:
		return "balancing"
	default:
		return "unknown"
	}
}

// Environment owns an ordered species list and a shared resource pool.
// It is not safe for concurrent use; one goroutine must own it for a stage.
type Environment struct {
	name      string
	climate   string
	resources float64
	species   []Species
	byName    map[string]int // name -> index into species
	rules     Rules
	phase     Phase
}

// NewEnvironment creates an empty environment.
func NewEnvironment(name, climate string, resources float64, rules Rules) *Environment {
	return &Environment{
		name:      name,
		climate:   climate,
		resources: resources,
		byName:    make(map[string]int),
		rules:     rules,
	}
}

func (e *Environment) Name() string       { return e.name }
func (e *Environment) Climate() string    { return e.climate }
func (e *Environment) Resources() float64 { return e.resources }
func (e *Environment) Phase() Phase       { return e.phase }
func (e *Environment) Rules() Rules       { return e.rules }
func (e *Environment) Collapsed() bool    { return e.resources < 0 }
func (e *Environment) SpeciesCount() int  { return len(e.species) }
func (e *Environment) Species() []Species { return e.species }

// Lookup returns the species with the given name.
func (e *Environment) Lookup(name string) (Species, bool) {
	i, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return e.species[i], true
}

// IntroduceSpecies appends a species. Names must be unique within the
// environment so prey matching is unambiguous.
func (e *Environment) IntroduceSpecies(s Species) error {
	name := s.Base().Name
	if _, exists := e.byName[name]; exists {
		return fmt.Errorf("introduce %q into %q: %w", name, e.name, ErrDuplicateSpecies)
	}
	e.byName[name] = len(e.species)
	e.species = append(e.species, s)
	return nil
}

// AdjustClimate replaces the climate label. Climate has no effect on rates.
func (e *Environment) AdjustClimate(climate string) (previous string) {
	previous = e.climate
	e.climate = climate
	return previous
}

// TotalPopulation sums the population of every species.
func (e *Environment) TotalPopulation() int {
	total := 0
	for _, s := range e.species {
		total += s.Base().Population
	}
	return total
}

// EligiblePrey implements Habitat.
func (e *Environment) EligiblePrey(prey []string) []string {
	if len(prey) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(prey))
	for _, name := range prey {
		wanted[name] = struct{}{}
	}
	var out []string
	for _, s := range e.species {
		b := s.Base()
		if _, ok := wanted[b.Name]; ok && b.Population > 0 {
			out = append(out, b.Name)
		}
	}
	return out
}

// SpeciesDelta pairs a species with the effects of its step.
type SpeciesDelta struct {
	Species string
	Kind    components.Kind
	Delta   Delta
}

// InteractionReport summarizes one interaction phase.
type InteractionReport struct {
	ResourcesBefore float64
	ResourcesAfter  float64
	Births          int
	Kills           int
	Decompositions  int
	Steps           []SpeciesDelta
}

// SimulateInteractions runs the interaction phase. Species are processed in
// introduction order and each delta is applied before the next species
// steps, so later species see populations already reduced by earlier hunts.
func (e *Environment) SimulateInteractions(rng Rand) InteractionReport {
	e.phase = PhaseInteracting
	defer func() { e.phase = PhaseIdle }()

	report := InteractionReport{
		ResourcesBefore: e.resources,
		Steps:           make([]SpeciesDelta, 0, len(e.species)),
	}

	for _, s := range e.species {
		d := s.Step(e, rng)
		e.apply(d)

		if d.Reproduced {
			report.Births++
		}
		if d.PreyTaken != "" {
			report.Kills++
		}
		if d.Decomposed {
			report.Decompositions++
		}
		report.Steps = append(report.Steps, SpeciesDelta{
			Species: s.Base().Name,
			Kind:    s.Kind(),
			Delta:   d,
		})
	}

	report.ResourcesAfter = e.resources
	return report
}

// apply commits a species delta to the pool and to the prey population.
func (e *Environment) apply(d Delta) {
	e.resources += d.Net()
	if d.PreyTaken == "" {
		return
	}
	if prey, ok := e.Lookup(d.PreyTaken); ok {
		prey.Base().AddPopulation(-1)
	}
}
