package placement

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestTwoPointCrossover(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := []bool{true, true, true, true, true, true}
	b := make([]bool, 6)

	c1, c2 := twoPointCrossover(rng, a, b, 0)
	if !reflect.DeepEqual(c1, a) || !reflect.DeepEqual(c2, b) {
		t.Fatalf("probability 0 must copy parents, got %v %v", c1, c2)
	}
	c1[0] = false
	if !a[0] {
		t.Fatalf("children must not alias parents")
	}

	for i := 0; i < 50; i++ {
		c1, c2 = twoPointCrossover(rng, a, b, 1)
		for k := range c1 {
			if c1[k] == c2[k] {
				t.Fatalf("bit %d present in both children: %v %v", k, c1, c2)
			}
		}
		if n := activeCount(c2); n == 0 {
			t.Fatalf("crossover swapped nothing: %v", c2)
		}
	}
}

func TestBitFlip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := []bool{true, false, true}
	bitFlip(rng, x, 1)
	if !reflect.DeepEqual(x, []bool{false, true, false}) {
		t.Fatalf("bitFlip(p=1) = %v", x)
	}
	bitFlip(rng, x, 0)
	if !reflect.DeepEqual(x, []bool{false, true, false}) {
		t.Fatalf("bitFlip(p=0) changed %v", x)
	}
}

func TestTournamentPrefersRankThenCrowding(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	good := &individual{rank: 0, crowding: 1}
	bad := &individual{rank: 1, crowding: 10}
	// bad only wins when it is drawn twice
	losses := 0
	for i := 0; i < 400; i++ {
		if tournament(rng, []*individual{good, bad}) == bad {
			losses++
		}
	}
	if losses > 160 {
		t.Fatalf("higher rank won %d/400 tournaments", losses)
	}
	pop := []*individual{good}
	if tournament(rng, pop) != good {
		t.Fatalf("single-member tournament must return it")
	}

	wide := &individual{rank: 0, crowding: 5}
	wins := 0
	for i := 0; i < 200; i++ {
		if tournament(rng, []*individual{good, wide}) == wide {
			wins++
		}
	}
	if wins < 120 {
		t.Fatalf("wider crowding won %d/200, want a clear majority", wins)
	}
}
