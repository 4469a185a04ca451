package systems

import "github.com/pthm-cable/ecosim/config"

// Rules holds the numeric constants of the interaction and balancing phases.
type Rules struct {
	// Balancing
	CapacityDivisor   float64 // capacity = resources / this
	OverFactor        float64 // population > capacity*OverFactor is reduced
	ReductionFraction float64 // reduction = floor(population*ReductionFraction)
	UnderFactor       float64 // population < capacity*UnderFactor is boosted
	MinCapacity       float64 // boosts only apply when capacity > MinCapacity
	BoostFraction     float64 // boost = floor(capacity*BoostFraction)

	// Decomposition yield per individual
	CreditFactor float64
	ReturnFactor float64
}

// DefaultRules returns the stock balancing and decomposition constants.
func DefaultRules() Rules {
	return Rules{
		CapacityDivisor:   10,
		OverFactor:        2,
		ReductionFraction: 0.1,
		UnderFactor:       0.1,
		MinCapacity:       10,
		BoostFraction:     0.05,
		CreditFactor:      0.1,
		ReturnFactor:      0.05,
	}
}

// RulesFromConfig builds Rules from the balance and decomposition sections.
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		CapacityDivisor:   cfg.Balance.CapacityDivisor,
		OverFactor:        cfg.Balance.OverFactor,
		ReductionFraction: cfg.Balance.ReductionFraction,
		UnderFactor:       cfg.Balance.UnderFactor,
		MinCapacity:       cfg.Balance.MinCapacity,
		BoostFraction:     cfg.Balance.BoostFraction,
		CreditFactor:      cfg.Decomposition.CreditFactor,
		ReturnFactor:      cfg.Decomposition.ReturnFactor,
	}
}
