package placement

import (
	"fmt"
	"math/rand/v2"
)

// BaselineResult summarises a non-evolutionary placement strategy for a
// fixed router count.
type BaselineResult struct {
	Name         string  `json:"name"`
	Routers      int     `json:"routers"`
	Trials       int     `json:"trials"`
	MeanCoverage float64 `json:"mean_coverage_pct"`
	BestCoverage float64 `json:"best_coverage_pct"`
	Best         []bool  `json:"best"`
}

// RandomBaseline places routers on uniformly random distinct candidates,
// trials times, and reports mean and best coverage.
func RandomBaseline(p *Problem, routers, trials int, seed uint64) (BaselineResult, error) {
	n := p.NumCandidates()
	if err := checkRouters(routers, n); err != nil {
		return BaselineResult{}, err
	}
	if trials < 1 {
		return BaselineResult{}, fmt.Errorf("%w: trials %d must be positive", ErrInvalidConfig, trials)
	}

	rng := rand.New(rand.NewPCG(seed, pcgStream))
	res := BaselineResult{Name: "random", Routers: routers, Trials: trials}
	total := 0.0
	for t := 0; t < trials; t++ {
		x := make([]bool, n)
		for _, i := range rng.Perm(n)[:routers] {
			x[i] = true
		}
		cov, err := p.CoveragePercent(x)
		if err != nil {
			return BaselineResult{}, err
		}
		total += cov
		if res.Best == nil || cov > res.BestCoverage {
			res.BestCoverage, res.Best = cov, x
		}
	}
	res.MeanCoverage = total / float64(trials)
	return res, nil
}

// GridBaseline activates every k-th candidate, k = n/routers, taking the
// first routers of them. Candidates are in grid order, so the picks are
// spread through the building.
func GridBaseline(p *Problem, routers int) (BaselineResult, error) {
	n := p.NumCandidates()
	if err := checkRouters(routers, n); err != nil {
		return BaselineResult{}, err
	}

	x := make([]bool, n)
	if routers > 0 {
		step := max(1, n/routers)
		for i, picked := 0, 0; i < n && picked < routers; i, picked = i+step, picked+1 {
			x[i] = true
		}
	}
	cov, err := p.CoveragePercent(x)
	if err != nil {
		return BaselineResult{}, err
	}
	return BaselineResult{
		Name:         "grid",
		Routers:      routers,
		Trials:       1,
		MeanCoverage: cov,
		BestCoverage: cov,
		Best:         x,
	}, nil
}

func checkRouters(routers, candidates int) error {
	if routers < 0 || routers > candidates {
		return fmt.Errorf("%w: %d routers for %d candidates", ErrInvalidConfig, routers, candidates)
	}
	return nil
}
