package main

import (
	"github.com/pthm-cable/ecosim/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	Set func(cfg *config.Config, v float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Species defaults
			{Name: "producer_energy_production", Path: "species_defaults.producer.energy_production", Min: 0.5, Max: 5.0, Default: 2.0,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Producer.EnergyProduction = v }},
			{Name: "producer_reproduction_rate", Path: "species_defaults.producer.reproduction_rate", Min: 0.01, Max: 0.3, Default: 0.05,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Producer.ReproductionRate = v }},
			{Name: "consumer_energy_needs", Path: "species_defaults.consumer.energy_needs", Min: 0.5, Max: 5.0, Default: 2.0,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Consumer.EnergyNeeds = v }},
			{Name: "consumer_reproduction_rate", Path: "species_defaults.consumer.reproduction_rate", Min: 0.01, Max: 0.3, Default: 0.08,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Consumer.ReproductionRate = v }},
			{Name: "decomposer_reproduction_rate", Path: "species_defaults.decomposer.reproduction_rate", Min: 0.01, Max: 0.3, Default: 0.15,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Decomposer.ReproductionRate = v }},
			{Name: "decomposer_decomposition_rate", Path: "species_defaults.decomposer.decomposition_rate", Min: 0.05, Max: 0.6, Default: 0.2,
				Set: func(c *config.Config, v float64) { c.SpeciesDefaults.Decomposer.DecompositionRate = v }},
			// Balancing
			{Name: "capacity_divisor", Path: "balance.capacity_divisor", Min: 2, Max: 50, Default: 10,
				Set: func(c *config.Config, v float64) { c.Balance.CapacityDivisor = v }},
			{Name: "reduction_fraction", Path: "balance.reduction_fraction", Min: 0.01, Max: 0.5, Default: 0.1,
				Set: func(c *config.Config, v float64) { c.Balance.ReductionFraction = v }},
			{Name: "boost_fraction", Path: "balance.boost_fraction", Min: 0.01, Max: 0.3, Default: 0.05,
				Set: func(c *config.Config, v float64) { c.Balance.BoostFraction = v }},
			// Decomposition
			{Name: "credit_factor", Path: "decomposition.credit_factor", Min: 0.01, Max: 0.5, Default: 0.1,
				Set: func(c *config.Config, v float64) { c.Decomposition.CreditFactor = v }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].Set(cfg, v)
	}
}
