package placement

import (
	"math"
	"sort"
)

// nonDominatedSort partitions objs into fronts of indices. Front 0 holds
// the non-dominated points; every later front is non-dominated once the
// earlier ones are removed. Indices inside a front are ascending.
func nonDominatedSort(objs []Objectives) [][]int {
	n := len(objs)
	dominatedBy := make([][]int, n)
	counts := make([]int, n)

	var current []int
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			if p == q {
				continue
			}
			switch {
			case objs[p].Dominates(objs[q]):
				dominatedBy[p] = append(dominatedBy[p], q)
			case objs[q].Dominates(objs[p]):
				counts[p]++
			}
		}
		if counts[p] == 0 {
			current = append(current, p)
		}
	}

	var fronts [][]int
	for len(current) > 0 {
		fronts = append(fronts, current)
		var next []int
		for _, p := range current {
			for _, q := range dominatedBy[p] {
				counts[q]--
				if counts[q] == 0 {
					next = append(next, q)
				}
			}
		}
		sort.Ints(next)
		current = next
	}
	return fronts
}

// crowdingDistances returns the crowding distance of each member of front,
// aligned with front. Boundary points get +Inf; an objective with no
// spread contributes nothing.
func crowdingDistances(objs []Objectives, front []int) []float64 {
	dist := make([]float64, len(front))
	if len(front) <= 2 {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	values := [2]func(Objectives) float64{
		func(o Objectives) float64 { return float64(o.Uncovered) },
		func(o Objectives) float64 { return float64(o.Routers) },
	}
	order := make([]int, len(front))
	for _, value := range values {
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return value(objs[front[order[a]]]) < value(objs[front[order[b]]])
		})

		lo := value(objs[front[order[0]]])
		hi := value(objs[front[order[len(order)-1]]])
		dist[order[0]] = math.Inf(1)
		dist[order[len(order)-1]] = math.Inf(1)
		if hi == lo {
			continue
		}
		for k := 1; k < len(order)-1; k++ {
			prev := value(objs[front[order[k-1]]])
			next := value(objs[front[order[k+1]]])
			dist[order[k]] += (next - prev) / (hi - lo)
		}
	}
	return dist
}
