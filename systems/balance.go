package systems

import "math"

// Adjustment records one population change made by the balancing phase.
type Adjustment struct {
	Species string
	Before  int
	After   int
}

// Change returns After - Before.
func (a Adjustment) Change() int { return a.After - a.Before }

// BalanceReport summarizes one balancing phase.
type BalanceReport struct {
	SpeciesCount    int
	TotalPopulation int // Measured before adjustments
	Capacity        float64
	Adjustments     []Adjustment
}

// Reductions counts species whose population was cut.
func (r BalanceReport) Reductions() int {
	n := 0
	for _, a := range r.Adjustments {
		if a.Change() < 0 {
			n++
		}
	}
	return n
}

// Boosts counts species whose population was raised.
func (r BalanceReport) Boosts() int {
	n := 0
	for _, a := range r.Adjustments {
		if a.Change() > 0 {
			n++
		}
	}
	return n
}

// Capacity returns the resource-derived population proxy used for balancing.
func (e *Environment) Capacity() float64 {
	return e.resources / e.rules.CapacityDivisor
}

// MonitorBiodiversity runs the balancing phase. Populations far above
// capacity lose a fraction of their members; populations far below a
// sufficiently large capacity gain a fraction of it. Zero-change
// adjustments are not recorded.
func (e *Environment) MonitorBiodiversity() BalanceReport {
	e.phase = PhaseBalancing
	defer func() { e.phase = PhaseIdle }()

	capacity := e.Capacity()
	report := BalanceReport{
		SpeciesCount:    len(e.species),
		TotalPopulation: e.TotalPopulation(),
		Capacity:        capacity,
	}

	for _, s := range e.species {
		b := s.Base()
		pop := float64(b.Population)
		var delta int

		switch {
		case pop > capacity*e.rules.OverFactor:
			delta = -floorInt(pop * e.rules.ReductionFraction)
		case pop < capacity*e.rules.UnderFactor && capacity > e.rules.MinCapacity:
			delta = floorInt(capacity * e.rules.BoostFraction)
		}
		if delta == 0 {
			continue
		}

		before := b.Population
		b.AddPopulation(delta)
		report.Adjustments = append(report.Adjustments, Adjustment{
			Species: b.Name,
			Before:  before,
			After:   b.Population,
		})
	}

	return report
}

// floorInt floors x into an int, saturating at the int range.
func floorInt(x float64) int {
	x = math.Floor(x)
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt:
		return math.MaxInt
	case x <= math.MinInt:
		return math.MinInt
	}
	return int(x)
}
