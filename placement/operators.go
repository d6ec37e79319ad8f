package placement

import "math/rand/v2"

// individual is one member of the population. rank and crowding are set
// by the survival step.
type individual struct {
	active    []bool
	key       string
	obj       Objectives
	evaluated bool
	rank      int
	crowding  float64
}

func newIndividual(active []bool) *individual {
	return &individual{active: active, key: bitKey(active)}
}

// sampleVector activates each bit independently with probability p.
func sampleVector(rng *rand.Rand, n int, p float64) []bool {
	x := make([]bool, n)
	for i := range x {
		x[i] = rng.Float64() < p
	}
	return x
}

// tournament picks the better of two random members: lower rank wins,
// then larger crowding distance, then a coin flip.
func tournament(rng *rand.Rand, pop []*individual) *individual {
	a := pop[rng.IntN(len(pop))]
	b := pop[rng.IntN(len(pop))]
	switch {
	case a.rank < b.rank:
		return a
	case b.rank < a.rank:
		return b
	case a.crowding > b.crowding:
		return a
	case b.crowding > a.crowding:
		return b
	case rng.IntN(2) == 0:
		return a
	default:
		return b
	}
}

// twoPointCrossover swaps the segment [lo, hi) between copies of the
// parents with probability prob; otherwise the children are plain copies.
func twoPointCrossover(rng *rand.Rand, a, b []bool, prob float64) ([]bool, []bool) {
	c1 := append([]bool(nil), a...)
	c2 := append([]bool(nil), b...)
	n := len(a)
	if n < 2 || rng.Float64() >= prob {
		return c1, c2
	}
	lo := rng.IntN(n)
	hi := rng.IntN(n)
	if lo > hi {
		lo, hi = hi, lo
	}
	hi++
	for i := lo; i < hi; i++ {
		c1[i], c2[i] = c2[i], c1[i]
	}
	return c1, c2
}

// bitFlip flips each bit of x in place with probability prob.
func bitFlip(rng *rand.Rand, x []bool, prob float64) {
	for i := range x {
		if rng.Float64() < prob {
			x[i] = !x[i]
		}
	}
}
