package placement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/router-placement/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/router-placement/placement"

// pcgStream is the fixed second word of the PCG seed; Config.Seed picks
// the first.
const pcgStream = 0x9e3779b97f4a7c15

// maxAttemptsPerSlot bounds how many candidates are drawn per population
// slot while looking for a vector not seen before.
const maxAttemptsPerSlot = 100

// OptimizerMetricsRecorder receives progress from a run.
type OptimizerMetricsRecorder interface {
	ObserveEvaluations(evaluations, cacheHits int)
	ObserveGeneration()
	SetFrontSize(size int)
}

// Solution is one placement on the returned Pareto front.
type Solution struct {
	Active []bool `json:"active"`
	Objectives
}

// ActiveIndices lists the candidate indices switched on.
func (s Solution) ActiveIndices() []int {
	out := make([]int, 0, activeCount(s.Active))
	for i, on := range s.Active {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Front is a set of mutually non-dominated solutions ordered by router
// count.
type Front []Solution

// BestCoverage returns the solution with the fewest uncovered sensors,
// preferring fewer routers on ties.
func (f Front) BestCoverage() (Solution, bool) {
	if len(f) == 0 {
		return Solution{}, false
	}
	best := f[0]
	for _, s := range f[1:] {
		if s.Objectives.Less(best.Objectives) {
			best = s
		}
	}
	return best, true
}

// Result is the outcome of Optimizer.Run.
type Result struct {
	Front       Front
	Generations int
	Evaluations int

	// Cache counters are zero when the cache is disabled. CacheEntries
	// is the number of distinct vectors held at the end of the run.
	CacheHits    int64
	CacheMisses  int64
	CacheEntries int
}

// Optimizer runs an NSGA-II search over activation vectors.
type Optimizer struct {
	eval    Evaluator
	cache   *CachedEvaluator
	cfg     Config
	log     logging.Logger
	metrics OptimizerMetricsRecorder
}

// Option customises an Optimizer.
type Option func(*Optimizer)

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithOptimizerMetrics attaches an optional metrics recorder.
func WithOptimizerMetrics(r OptimizerMetricsRecorder) Option {
	return func(o *Optimizer) {
		o.metrics = r
	}
}

// NewOptimizer validates cfg and wraps eval in an evaluation cache when
// cfg.CacheSize is positive.
func NewOptimizer(eval Evaluator, cfg Config, opts ...Option) (*Optimizer, error) {
	if eval == nil {
		return nil, fmt.Errorf("%w: nil evaluator", ErrInvalidConfig)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{eval: eval, cfg: cfg, log: logging.Noop()}
	if cached, ok := eval.(*CachedEvaluator); ok {
		o.cache = cached
	} else if cfg.CacheSize > 0 {
		cached, err := NewCachedEvaluator(eval, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		o.eval, o.cache = cached, cached
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Run executes the configured number of generations and returns the
// first front of the final population. Cancelling ctx stops the run
// between generations.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	n := o.eval.NumCandidates()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Optimizer/Run", trace.WithAttributes(
		attribute.Int("candidates", n),
		attribute.Int("sensors", o.eval.NumSensors()),
		attribute.Int("population", o.cfg.PopulationSize),
		attribute.Int("generations", o.cfg.Generations),
	))
	defer span.End()

	res, err := o.run(ctx, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("front_size", len(res.Front)))
	if o.metrics != nil {
		o.metrics.SetFrontSize(len(res.Front))
	}
	return res, nil
}

func (o *Optimizer) run(ctx context.Context, n int) (*Result, error) {
	start := time.Now()
	if n == 0 {
		obj, err := o.eval.Evaluate([]bool{})
		if err != nil {
			return nil, err
		}
		o.log.Info(ctx, "no candidate sites; returning empty placement",
			logging.Int("uncovered", obj.Uncovered))
		return &Result{
			Front:       Front{{Active: []bool{}, Objectives: obj}},
			Evaluations: 1,
		}, nil
	}

	r := &run{
		opt:      o,
		rng:      rand.New(rand.NewPCG(o.cfg.Seed, pcgStream)),
		n:        n,
		mutation: o.cfg.mutationRate(n),
	}

	pop := r.initialPopulation()
	if err := r.evaluate(ctx, pop); err != nil {
		return nil, err
	}
	pop = r.survive(pop)

	gen := 0
	for ; gen < o.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			o.log.Warn(ctx, "optimizer cancelled", logging.Int("generation", gen), logging.Error(err))
			return nil, err
		}
		offspring := r.offspring(pop)
		if err := r.evaluate(ctx, offspring); err != nil {
			return nil, err
		}
		pop = r.survive(append(pop, offspring...))
		if o.metrics != nil {
			o.metrics.ObserveGeneration()
		}
		o.log.Debug(ctx, "generation complete",
			logging.Int("generation", gen+1),
			logging.Int("offspring", len(offspring)),
			logging.Int("first_front", countRank(pop, 0)),
		)
	}

	res := &Result{
		Front:       paretoFront(pop),
		Generations: gen,
		Evaluations: r.evaluations,
	}
	if o.cache != nil {
		res.CacheHits = o.cache.Hits()
		res.CacheMisses = o.cache.Misses()
		res.CacheEntries = o.cache.Len()
	}
	fields := []logging.Field{
		logging.Int("generations", res.Generations),
		logging.Int("evaluations", res.Evaluations),
		logging.Int("front_size", len(res.Front)),
		logging.Int64("cache_hits", res.CacheHits),
		logging.Int64("cache_misses", res.CacheMisses),
		logging.Duration("elapsed", time.Since(start)),
	}
	if best, ok := res.Front.BestCoverage(); ok {
		fields = append(fields,
			logging.Int("best_uncovered", best.Uncovered),
			logging.Int("best_routers", best.Routers))
	}
	o.log.Info(ctx, "optimization finished", fields...)
	return res, nil
}

// run is the mutable state of one Optimizer.Run. The rng is only touched
// from the loop goroutine.
type run struct {
	opt         *Optimizer
	rng         *rand.Rand
	n           int
	mutation    float64
	evaluations int
}

// initialPopulation samples distinct vectors with the sparse activation
// rate. It may come up short when n admits few distinct vectors.
func (r *run) initialPopulation() []*individual {
	size := r.opt.cfg.PopulationSize
	rate := r.opt.cfg.activationRate(r.n)
	seen := make(map[string]struct{}, size)
	pop := make([]*individual, 0, size)
	for attempts := 0; len(pop) < size && attempts < size*maxAttemptsPerSlot; attempts++ {
		ind := newIndividual(sampleVector(r.rng, r.n, rate))
		if _, dup := seen[ind.key]; dup {
			continue
		}
		seen[ind.key] = struct{}{}
		pop = append(pop, ind)
	}
	return pop
}

// offspring runs selection and variation until it has a full brood of
// vectors that appear neither in pop nor earlier in the brood.
func (r *run) offspring(pop []*individual) []*individual {
	size := r.opt.cfg.PopulationSize
	seen := make(map[string]struct{}, len(pop)+size)
	for _, ind := range pop {
		seen[ind.key] = struct{}{}
	}

	out := make([]*individual, 0, size)
	for attempts := 0; len(out) < size && attempts < size*maxAttemptsPerSlot; attempts += 2 {
		a := tournament(r.rng, pop)
		b := tournament(r.rng, pop)
		c1, c2 := twoPointCrossover(r.rng, a.active, b.active, r.opt.cfg.CrossoverProbability)
		for _, child := range [2][]bool{c1, c2} {
			bitFlip(r.rng, child, r.mutation)
			ind := newIndividual(child)
			if _, dup := seen[ind.key]; dup || len(out) == size {
				continue
			}
			seen[ind.key] = struct{}{}
			out = append(out, ind)
		}
	}
	return out
}

// evaluate scores every unevaluated individual. Workers write disjoint
// slots, so results do not depend on the worker count. The first error
// by population order is returned.
func (r *run) evaluate(ctx context.Context, pop []*individual) error {
	pending := make([]*individual, 0, len(pop))
	for _, ind := range pop {
		if !ind.evaluated {
			pending = append(pending, ind)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var hitsBefore int64
	if r.opt.cache != nil {
		hitsBefore = r.opt.cache.Hits()
	}

	errs := make([]error, len(pending))
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(r.opt.cfg.Workers, len(pending)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				obj, err := r.opt.eval.Evaluate(pending[i].active)
				pending[i].obj, errs[i] = obj, err
				pending[i].evaluated = err == nil
			}
		}()
	}
	var ctxErr error
	for i := range pending {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		next <- i
	}
	close(next)
	wg.Wait()
	if ctxErr != nil {
		return ctxErr
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	r.evaluations += len(pending)
	if r.opt.metrics != nil {
		hits := 0
		if r.opt.cache != nil {
			hits = int(r.opt.cache.Hits() - hitsBefore)
		}
		r.opt.metrics.ObserveEvaluations(len(pending), hits)
	}
	return nil
}

// survive keeps at most PopulationSize members of pool, front by front.
// The front that does not fit is cut by descending crowding distance.
// Rank and crowding of every survivor are updated.
func (r *run) survive(pool []*individual) []*individual {
	size := r.opt.cfg.PopulationSize
	objs := make([]Objectives, len(pool))
	for i, ind := range pool {
		objs[i] = ind.obj
	}

	out := make([]*individual, 0, min(size, len(pool)))
	for rank, front := range nonDominatedSort(objs) {
		dist := crowdingDistances(objs, front)
		members := make([]*individual, len(front))
		for k, idx := range front {
			ind := pool[idx]
			ind.rank, ind.crowding = rank, dist[k]
			members[k] = ind
		}
		room := size - len(out)
		if len(members) <= room {
			out = append(out, members...)
			continue
		}
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].crowding > members[b].crowding
		})
		out = append(out, members[:room]...)
		break
	}
	return out
}

// paretoFront collapses rank-0 members to one solution per objective pair,
// keeping the lexicographically smallest activation key.
func paretoFront(pop []*individual) Front {
	byObj := make(map[Objectives]*individual)
	for _, ind := range pop {
		if ind.rank != 0 {
			continue
		}
		if cur, ok := byObj[ind.obj]; !ok || ind.key < cur.key {
			byObj[ind.obj] = ind
		}
	}
	front := make(Front, 0, len(byObj))
	for obj, ind := range byObj {
		front = append(front, Solution{
			Active:     append([]bool(nil), ind.active...),
			Objectives: obj,
		})
	}
	sort.Slice(front, func(a, b int) bool {
		if front[a].Routers != front[b].Routers {
			return front[a].Routers < front[b].Routers
		}
		return front[a].Uncovered < front[b].Uncovered
	})
	return front
}

func countRank(pop []*individual, rank int) int {
	n := 0
	for _, ind := range pop {
		if ind.rank == rank {
			n++
		}
	}
	return n
}
