package systems

// Delta records every effect of one species' step. The environment applies it;
// species never write to the resource pool or to other species directly.
type Delta struct {
	Reproduced bool

	Consumed        float64 // Base metabolic draw, population*energy_needs
	Produced        float64 // Producer output
	HuntDebit       float64 // Energy removed from the pool by a successful hunt
	DecomposeCredit float64 // Matter returned to the pool by decomposition
	DecomposeReturn float64 // Amount handed back by Decompose, added by the caller
	Upkeep          float64 // Decomposer's second consumption charge

	Decomposed bool
	PreyTaken  string // Name of the species that lost one individual, "" if none
}

// Net returns the total change to the resource pool.
func (d Delta) Net() float64 {
	return d.Produced + d.DecomposeCredit + d.DecomposeReturn -
		d.Consumed - d.HuntDebit - d.Upkeep
}
