// Package randx provides seeded random selection helpers shared by the
// generalisation and exploration code. All callers thread a single *rand.Rand
// so runs can be reproduced by pinning the seed.
package randx

import "math/rand"

// Pick returns a uniformly random element of items. Panics on empty input.
func Pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

// PickWeighted returns an element of items sampled proportionally to weights.
// Non-positive total weight falls back to a uniform pick.
func PickWeighted[T any](rng *rand.Rand, items []T, weights []float64) T {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return Pick(rng, items)
	}

	target := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return items[i]
		}
	}
	return items[len(items)-1]
}

// Shuffle returns a shuffled copy of items, leaving the input untouched.
func Shuffle[T any](rng *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
