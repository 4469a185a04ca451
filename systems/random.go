package systems

// Rand is the randomness capability injected into every stochastic operation.
// *math/rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n). n must be > 0.
	Intn(n int) int
}

// choice picks one element uniformly at random. Returns "" for an empty list.
func choice(rng Rand, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[rng.Intn(len(items))]
}
