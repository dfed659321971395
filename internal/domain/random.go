package domain

import "math/rand/v2"

// RandomSource supplies every random draw made while deriving weather.
// *rand.Rand satisfies it.
type RandomSource interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
	// NormFloat64 returns a standard normal deviate.
	NormFloat64() float64
}

// NewRandomSource returns a PCG-backed source; equal seeds give equal sequences.
func NewRandomSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewClockSeededSource seeds a source from the package clock.
func NewClockSeededSource() *rand.Rand {
	return NewRandomSource(uint64(clock.Now().UnixNano()))
}

func uniform(r RandomSource, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

func gauss(r RandomSource, mean, sigma float64) int {
	return int(mean + sigma*r.NormFloat64())
}
