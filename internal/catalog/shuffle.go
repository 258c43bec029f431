package catalog

import (
	"math/rand/v2"
	"slices"
)

const seedMix = 0x9e3779b97f4a7c15

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedMix))
}

// Shuffle returns a shuffled copy of cams. The input is not modified.
func Shuffle(cams []Cam, rng *rand.Rand) []Cam {
	out := slices.Clone(cams)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}

// Order applies the configured seed: zero keeps catalog order.
func Order(cams []Cam, seed uint64) []Cam {
	if seed == 0 {
		return slices.Clone(cams)
	}

	return Shuffle(cams, NewRand(seed))
}
