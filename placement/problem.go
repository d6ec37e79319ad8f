// Package placement encodes router placement as a two-objective binary
// problem over a loss matrix and searches it with an NSGA-II style
// evolutionary optimizer.
package placement

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/router-placement/core"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrVectorLength = errors.New("activation vector length mismatch")
	ErrNilMatrix    = errors.New("nil loss matrix")
)

// Objectives are both minimised: sensors left without coverage, and
// routers deployed.
type Objectives struct {
	Uncovered int `json:"uncovered"`
	Routers   int `json:"routers"`
}

// Dominates reports whether o is no worse than other in both objectives
// and strictly better in at least one.
func (o Objectives) Dominates(other Objectives) bool {
	if o.Uncovered > other.Uncovered || o.Routers > other.Routers {
		return false
	}
	return o.Uncovered < other.Uncovered || o.Routers < other.Routers
}

// Less orders objectives by uncovered sensors, then routers.
func (o Objectives) Less(other Objectives) bool {
	if o.Uncovered != other.Uncovered {
		return o.Uncovered < other.Uncovered
	}
	return o.Routers < other.Routers
}

// Evaluator scores activation vectors. Implementations must be safe for
// concurrent use.
type Evaluator interface {
	Evaluate(x []bool) (Objectives, error)
	NumCandidates() int
	NumSensors() int
}

// Problem scores placements against a fixed loss matrix. It holds no
// mutable state after construction.
type Problem struct {
	rows        [][]float64
	nSensors    int
	allowableDB float64
}

var _ Evaluator = (*Problem)(nil)

// NewProblem snapshots the matrix rows and the link budget.
func NewProblem(lm *core.LossMatrix, budget core.LinkBudget) (*Problem, error) {
	if lm == nil {
		return nil, ErrNilMatrix
	}
	n, m := lm.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = lm.Row(i)
	}
	return &Problem{
		rows:        rows,
		nSensors:    m,
		allowableDB: budget.AllowableLossDB(),
	}, nil
}

// NumCandidates is the activation vector length.
func (p *Problem) NumCandidates() int { return len(p.rows) }

// NumSensors is the number of matrix columns.
func (p *Problem) NumSensors() int { return p.nSensors }

// AllowableLossDB is the largest loss at which a sensor is still covered.
func (p *Problem) AllowableLossDB() float64 { return p.allowableDB }

// Evaluate returns (uncovered sensors, active routers). The empty
// placement leaves every sensor uncovered.
func (p *Problem) Evaluate(x []bool) (Objectives, error) {
	best, routers, err := p.bestLoss(x)
	if err != nil {
		return Objectives{}, err
	}
	if routers == 0 {
		return Objectives{Uncovered: p.nSensors}, nil
	}
	covered := floats.Count(p.coveredDB, best)
	return Objectives{Uncovered: p.nSensors - covered, Routers: routers}, nil
}

// Covered reports, per sensor, whether some active router reaches it.
func (p *Problem) Covered(x []bool) ([]bool, error) {
	best, routers, err := p.bestLoss(x)
	if err != nil {
		return nil, err
	}
	out := make([]bool, p.nSensors)
	if routers == 0 {
		return out, nil
	}
	for j, db := range best {
		out[j] = p.coveredDB(db)
	}
	return out, nil
}

// CoveragePercent is the share of covered sensors in [0, 100]. A problem
// without sensors reports 0.
func (p *Problem) CoveragePercent(x []bool) (float64, error) {
	obj, err := p.Evaluate(x)
	if err != nil {
		return 0, err
	}
	if p.nSensors == 0 {
		return 0, nil
	}
	return 100 * float64(p.nSensors-obj.Uncovered) / float64(p.nSensors), nil
}

func (p *Problem) coveredDB(db float64) bool {
	return db <= p.allowableDB
}

// bestLoss is the per-sensor minimum over active rows. best is nil when
// nothing is active.
func (p *Problem) bestLoss(x []bool) ([]float64, int, error) {
	if len(x) != len(p.rows) {
		return nil, 0, fmt.Errorf("%w: got %d, want %d", ErrVectorLength, len(x), len(p.rows))
	}
	var best []float64
	routers := 0
	for i, on := range x {
		if !on {
			continue
		}
		routers++
		if best == nil {
			best = append([]float64(nil), p.rows[i]...)
			continue
		}
		for j, db := range p.rows[i] {
			best[j] = min(best[j], db)
		}
	}
	return best, routers, nil
}

// activeCount counts true bits.
func activeCount(x []bool) int {
	n := 0
	for _, on := range x {
		if on {
			n++
		}
	}
	return n
}

// bitKey renders x as a '0'/'1' string; used for duplicate detection and
// cache keys.
func bitKey(x []bool) string {
	b := make([]byte, len(x))
	for i, on := range x {
		if on {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
