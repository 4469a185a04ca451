package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pthm-cable/ecosim/components"
	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/systems"
)

// Snapshot is the persisted ecosystem document.
type Snapshot struct {
	Environments map[string]EnvironmentState `json:"environments"`
}

// EnvironmentState holds one environment. Missing fields take load defaults.
type EnvironmentState struct {
	Climate   *string        `json:"climate,omitempty"`
	Resources *float64       `json:"resources,omitempty"`
	Species   []SpeciesState `json:"species"`
}

// SpeciesState holds one species entry. Which optional fields are present
// depends on Type.
type SpeciesState struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Population *int   `json:"population,omitempty"`

	EnergyProduction  *float64  `json:"energy_production,omitempty"`  // Plant
	EnergyNeeds       *float64  `json:"energy_needs,omitempty"`       // Animal, Microorganism
	Prey              *[]string `json:"prey,omitempty"`               // Animal
	ReproductionRate  *float64  `json:"reproduction_rate,omitempty"`  // all
	DecompositionRate *float64  `json:"decomposition_rate,omitempty"` // Microorganism
}

// Capture serializes the current in-memory state of the given environments.
func Capture(envs []*systems.Environment) *Snapshot {
	snap := &Snapshot{Environments: make(map[string]EnvironmentState, len(envs))}
	for _, env := range envs {
		climate := env.Climate()
		resources := env.Resources()
		state := EnvironmentState{
			Climate:   &climate,
			Resources: &resources,
			Species:   make([]SpeciesState, 0, env.SpeciesCount()),
		}
		for _, s := range env.Species() {
			state.Species = append(state.Species, captureSpecies(s))
		}
		snap.Environments[env.Name()] = state
	}
	return snap
}

func captureSpecies(s systems.Species) SpeciesState {
	b := s.Base()
	pop := b.Population
	repro := b.ReproductionRate
	st := SpeciesState{
		Type:             s.Kind().Tag(),
		Name:             b.Name,
		Population:       &pop,
		ReproductionRate: &repro,
	}

	switch v := s.(type) {
	case *systems.Producer:
		prod := v.EnergyProduction
		st.EnergyProduction = &prod
	case *systems.Consumer:
		needs := v.EnergyNeeds
		prey := append([]string{}, v.Prey...)
		st.EnergyNeeds = &needs
		st.Prey = &prey
	case *systems.Decomposer:
		needs := v.EnergyNeeds
		rate := v.DecompositionRate
		st.EnergyNeeds = &needs
		st.DecompositionRate = &rate
	}
	return st
}

// EnvironmentNames returns the environment names in sorted order.
func (s *Snapshot) EnvironmentNames() []string {
	names := make([]string, 0, len(s.Environments))
	for name := range s.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Restore reconstructs environments from a document, in sorted-name order.
// Shape problems never fail the load: missing fields take defaults, and
// species entries that cannot be built are skipped and reported as warnings.
func Restore(s *Snapshot, defaults config.LoadDefaultsConfig, rules systems.Rules) ([]*systems.Environment, []error) {
	if s == nil {
		return nil, nil
	}

	var warnings []error
	envs := make([]*systems.Environment, 0, len(s.Environments))

	for _, name := range s.EnvironmentNames() {
		state := s.Environments[name]
		env := systems.NewEnvironment(name,
			orString(state.Climate, defaults.Climate),
			orFloat(state.Resources, defaults.Resources),
			rules)

		for i, st := range state.Species {
			sp, err := restoreSpecies(st, defaults)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("environment %q species #%d: %w", name, i, err))
				continue
			}
			if err := env.IntroduceSpecies(sp); err != nil {
				warnings = append(warnings, fmt.Errorf("environment %q species #%d: %w", name, i, err))
			}
		}
		envs = append(envs, env)
	}
	return envs, warnings
}

func restoreSpecies(st SpeciesState, d config.LoadDefaultsConfig) (systems.Species, error) {
	if st.Name == "" {
		return nil, fmt.Errorf("species without a name")
	}
	kind, err := components.ParseKind(st.Type)
	if err != nil {
		return nil, err
	}

	repro := orFloat(st.ReproductionRate, d.ReproductionRate)
	if err := checkRate("reproduction_rate", repro); err != nil {
		return nil, err
	}

	var sp systems.Species
	switch kind {
	case components.KindProducer:
		sp = systems.NewProducer(st.Name, orFloat(st.EnergyProduction, d.EnergyProduction), repro)
	case components.KindConsumer:
		var prey []string
		if st.Prey != nil {
			prey = *st.Prey
		}
		sp = systems.NewConsumer(st.Name, orFloat(st.EnergyNeeds, d.EnergyNeeds), prey, repro)
	case components.KindDecomposer:
		rate := orFloat(st.DecompositionRate, d.DecompositionRate)
		if err := checkRate("decomposition_rate", rate); err != nil {
			return nil, err
		}
		m := systems.NewDecomposer(st.Name, rate, repro)
		m.EnergyNeeds = orFloat(st.EnergyNeeds, d.EnergyNeeds)
		sp = m
	}

	if st.Population != nil {
		sp.Base().SetPopulation(*st.Population)
	}
	return sp, nil
}

// checkRate rejects rates outside [0,1); a rate of 1 or more would
// reproduce or decompose every stage.
func checkRate(field string, v float64) error {
	if v < 0 || v >= 1 {
		return fmt.Errorf("%s must be in [0,1), got %v", field, v)
	}
	return nil
}

func orString(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func orFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// EncodeSnapshotJSON renders a document as indented JSON.
func EncodeSnapshotJSON(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON parses a document. An empty or whitespace-only input
// yields an empty document.
func DecodeSnapshotJSON(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if len(bytes.TrimSpace(data)) == 0 {
		snap.Environments = map[string]EnvironmentState{}
		return snap, nil
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Environments == nil {
		snap.Environments = map[string]EnvironmentState{}
	}
	return snap, nil
}

// SaveSnapshot writes a document to path, creating parent directories.
func SaveSnapshot(s *Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := EncodeSnapshotJSON(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a document from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return DecodeSnapshotJSON(data)
}
