package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/signalsfoundry/router-placement/internal/logging"
	"github.com/signalsfoundry/router-placement/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tracerName = "github.com/signalsfoundry/router-placement/core"

// LossMatrix holds the total path loss in dB from every candidate router
// site (rows) to every sensor (columns). It is immutable once built.
type LossMatrix struct {
	candidates []model.Point
	sensors    []model.Point

	// data is nil when either dimension is zero.
	data *mat.Dense
}

// NewLossMatrix wraps losses computed elsewhere. rows must be
// len(candidates) slices of len(sensors) values; the values are copied.
func NewLossMatrix(candidates, sensors []model.Point, rows [][]float64) (*LossMatrix, error) {
	m := &LossMatrix{
		candidates: append([]model.Point(nil), candidates...),
		sensors:    append([]model.Point(nil), sensors...),
	}
	if len(rows) != len(candidates) {
		return nil, fmt.Errorf("loss matrix: %d rows for %d candidates", len(rows), len(candidates))
	}
	if len(candidates) == 0 || len(sensors) == 0 {
		return m, nil
	}
	m.data = mat.NewDense(len(candidates), len(sensors), nil)
	for i, row := range rows {
		if len(row) != len(sensors) {
			return nil, fmt.Errorf("loss matrix: row %d has %d values for %d sensors", i, len(row), len(sensors))
		}
		m.data.SetRow(i, row)
	}
	return m, nil
}

// Dims returns (candidates, sensors).
func (m *LossMatrix) Dims() (int, int) {
	return len(m.candidates), len(m.sensors)
}

// At returns the loss from candidate i to sensor j.
func (m *LossMatrix) At(i, j int) float64 {
	if m.data == nil {
		if i < 0 || i >= len(m.candidates) {
			panic(mat.ErrRowAccess)
		}
		panic(mat.ErrColAccess)
	}
	return m.data.At(i, j)
}

// Row returns a copy of candidate i's losses to every sensor.
func (m *LossMatrix) Row(i int) []float64 {
	if m.data == nil {
		if i < 0 || i >= len(m.candidates) {
			panic(mat.ErrRowAccess)
		}
		return []float64{}
	}
	return mat.Row(nil, i, m.data)
}

// Candidates returns a copy of the candidate sites, in row order.
func (m *LossMatrix) Candidates() []model.Point {
	return append([]model.Point(nil), m.candidates...)
}

// Sensors returns a copy of the sensor sites, in column order.
func (m *LossMatrix) Sensors() []model.Point {
	return append([]model.Point(nil), m.sensors...)
}

// Summary returns the minimum, maximum and mean loss. All three are zero
// for an empty matrix.
func (m *LossMatrix) Summary() (minDB, maxDB, meanDB float64) {
	if m.data == nil {
		return 0, 0, 0
	}
	values := m.data.RawMatrix().Data
	return floats.Min(values), floats.Max(values), floats.Sum(values) / float64(len(values))
}

// MatrixMetricsRecorder receives build statistics.
type MatrixMetricsRecorder interface {
	ObserveMatrixBuild(pairs, walls int, elapsed time.Duration)
}

// MatrixBuilder turns a building and two point sets into a LossMatrix.
type MatrixBuilder struct {
	cfg      PropagationConfig
	pathLoss *PathLossModel
	workers  int
	log      logging.Logger
	metrics  MatrixMetricsRecorder
}

// BuilderOption customises a MatrixBuilder.
type BuilderOption func(*MatrixBuilder)

// WithWorkers sets how many goroutines trace obstruction rows. Values
// below 1 select GOMAXPROCS.
func WithWorkers(n int) BuilderOption {
	return func(b *MatrixBuilder) {
		b.workers = n
	}
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) BuilderOption {
	return func(b *MatrixBuilder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMatrixMetrics attaches an optional metrics recorder.
func WithMatrixMetrics(r MatrixMetricsRecorder) BuilderOption {
	return func(b *MatrixBuilder) {
		b.metrics = r
	}
}

// NewMatrixBuilder validates cfg and prepares the path loss model.
func NewMatrixBuilder(cfg PropagationConfig, opts ...BuilderOption) (*MatrixBuilder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pl, err := NewPathLossModel(cfg.FrequencyHz, cfg.PathLossExponent, cfg.ReferenceDistanceM)
	if err != nil {
		return nil, err
	}
	b := &MatrixBuilder{
		cfg:      cfg,
		pathLoss: pl,
		workers:  1,
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b, nil
}

// PathLoss exposes the distance model used by the builder.
func (b *MatrixBuilder) PathLoss() *PathLossModel {
	return b.pathLoss
}

// PairLossDB computes a single matrix cell from scratch. Build produces
// the same value for the same pair.
func (b *MatrixBuilder) PairLossDB(building *model.Building, candidate, sensor model.Point) float64 {
	tracer := NewObstructionTracer(building, b.cfg.FloorAttenuationDB)
	return b.pathLoss.LossDB(candidate.DistanceTo(sensor)) + tracer.LossDB(candidate, sensor)
}

// Build computes the loss matrix. Distances and path loss are filled for
// every pair first; the obstruction pass then traces each candidate row
// on the worker pool. Rows are disjoint so workers share no mutable
// state. The building's walls and each point's floor are read once at the
// start of the build.
func (b *MatrixBuilder) Build(ctx context.Context, building *model.Building, candidates, sensors []model.Point) (*LossMatrix, error) {
	if building == nil {
		return nil, model.ErrNilBuilding
	}
	if ctx == nil {
		ctx = context.Background()
	}

	walls := building.Walls()
	n, m := len(candidates), len(sensors)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "LossMatrix/Build", trace.WithAttributes(
		attribute.Int("candidates", n),
		attribute.Int("sensors", m),
		attribute.Int("walls", len(walls)),
	))
	defer span.End()

	start := time.Now()
	out := &LossMatrix{
		candidates: append([]model.Point(nil), candidates...),
		sensors:    append([]model.Point(nil), sensors...),
	}
	if n == 0 || m == 0 {
		b.record(ctx, out, len(walls), time.Since(start))
		return out, nil
	}

	total := pairwiseDistances(out.candidates, out.sensors)
	total.Apply(func(_, _ int, d float64) float64 {
		return b.pathLoss.LossDB(d)
	}, total)

	candidateFloors := floorLevels(building, out.candidates)
	sensorFloors := floorLevels(building, out.sensors)

	obstruction := mat.NewDense(n, m, nil)
	err := b.forEachRow(ctx, n, func(i int) {
		row := obstruction.RawRowView(i)
		c := out.candidates[i]
		for j, s := range out.sensors {
			row[j] = WallLossDB(c, s, walls) +
				floorPenalty(candidateFloors[i], sensorFloors[j], b.cfg.FloorAttenuationDB)
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.log.Warn(ctx, "loss matrix build aborted", logging.Error(err))
		return nil, err
	}

	total.Add(total, obstruction)
	out.data = total
	b.record(ctx, out, len(walls), time.Since(start))
	return out, nil
}

func (b *MatrixBuilder) record(ctx context.Context, m *LossMatrix, walls int, elapsed time.Duration) {
	rows, cols := m.Dims()
	if b.metrics != nil {
		b.metrics.ObserveMatrixBuild(rows*cols, walls, elapsed)
	}
	b.log.Info(ctx, "loss matrix computed",
		logging.Int("candidates", rows),
		logging.Int("sensors", cols),
		logging.Int("walls", walls),
		logging.Duration("elapsed", elapsed),
	)
}

// forEachRow hands row indices to the worker pool. It stops dispatching
// when ctx is cancelled and reports ctx.Err().
func (b *MatrixBuilder) forEachRow(ctx context.Context, rows int, fn func(i int)) error {
	workers := min(b.workers, rows)
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}

	var err error
	for i := 0; i < rows; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		next <- i
	}
	close(next)
	wg.Wait()
	return err
}

func pairwiseDistances(a, b []model.Point) *mat.Dense {
	d := mat.NewDense(len(a), len(b), nil)
	for i, p := range a {
		row := d.RawRowView(i)
		for j, q := range b {
			row[j] = p.DistanceTo(q)
		}
	}
	return d
}

func floorLevels(b *model.Building, points []model.Point) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = b.FloorLevelAt(p.Z)
	}
	return out
}
