package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/router-placement/model"
	"gonum.org/v1/gonum/mat"
)

type fakeMatrixMetrics struct {
	builds int
	pairs  int
	walls  int
}

func (f *fakeMatrixMetrics) ObserveMatrixBuild(pairs, walls int, _ time.Duration) {
	f.builds++
	f.pairs = pairs
	f.walls = walls
}

func demoPoints(t *testing.T, b *model.Building, spacing, height float64) []model.Point {
	t.Helper()
	pts, err := model.GridPoints(b, model.GridSpec{Spacing: spacing, Margin: 1, HeightAboveFloor: height})
	if err != nil {
		t.Fatalf("GridPoints: %v", err)
	}
	return pts
}

func TestBuildMatchesScalarRecomputation(t *testing.T) {
	b := model.DemoBuilding()
	candidates := demoPoints(t, b, 20, 3.5)
	sensors := demoPoints(t, b, 13, 1.0)

	builder, err := NewMatrixBuilder(DefaultPropagationConfig(), WithWorkers(3))
	if err != nil {
		t.Fatalf("NewMatrixBuilder: %v", err)
	}
	lm, err := builder.Build(context.Background(), b, candidates, sensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	rows, cols := lm.Dims()
	if rows != len(candidates) || cols != len(sensors) {
		t.Fatalf("Dims() = (%d, %d), want (%d, %d)", rows, cols, len(candidates), len(sensors))
	}
	for i, c := range candidates {
		for j, s := range sensors {
			want := builder.PairLossDB(b, c, s)
			if got := lm.At(i, j); math.Abs(got-want) > 1e-9 {
				t.Fatalf("matrix[%d][%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestBuildIndependentOfWorkerCount(t *testing.T) {
	b := model.DemoBuilding()
	candidates := demoPoints(t, b, 15, 3.5)
	sensors := demoPoints(t, b, 11, 1.0)

	serial, _ := NewMatrixBuilder(DefaultPropagationConfig(), WithWorkers(1))
	parallel, _ := NewMatrixBuilder(DefaultPropagationConfig(), WithWorkers(0))

	a, err := serial.Build(context.Background(), b, candidates, sensors)
	if err != nil {
		t.Fatalf("serial Build: %v", err)
	}
	c, err := parallel.Build(context.Background(), b, candidates, sensors)
	if err != nil {
		t.Fatalf("parallel Build: %v", err)
	}
	for i := range candidates {
		ra, rc := a.Row(i), c.Row(i)
		for j := range ra {
			if ra[j] != rc[j] {
				t.Fatalf("row %d col %d differs: %v vs %v", i, j, ra[j], rc[j])
			}
		}
	}
}

func TestBuildComponents(t *testing.T) {
	b := model.NewBuilding("split")
	r := model.NewRoom("hall", 0, 3)
	if err := r.AddWall(model.Point{X: 5, Y: 0}, model.Point{X: 5, Y: 10}, model.MaterialConcrete); err != nil {
		t.Fatalf("AddWall: %v", err)
	}
	_ = b.AddRoom(r)

	builder, _ := NewMatrixBuilder(DefaultPropagationConfig())
	candidates := []model.Point{{X: 2, Y: 5, Z: 1}}
	sensors := []model.Point{{X: 2, Y: 5, Z: 1}, {X: 4, Y: 5, Z: 1}, {X: 8, Y: 5, Z: 1}}
	lm, err := builder.Build(context.Background(), b, candidates, sensors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pl := builder.PathLoss()
	if got, want := lm.At(0, 0), pl.LossDB(0); got != want {
		t.Fatalf("co-located loss = %v, want floored path loss %v", got, want)
	}
	if got, want := lm.At(0, 1), pl.LossDB(2); got != want {
		t.Fatalf("same-side loss = %v, want %v", got, want)
	}
	if got, want := lm.At(0, 2), pl.LossDB(6)+15; math.Abs(got-want) > 1e-12 {
		t.Fatalf("through-wall loss = %v, want %v", got, want)
	}
}

func TestBuildEmptyDimensions(t *testing.T) {
	b := model.DemoBuilding()
	metrics := &fakeMatrixMetrics{}
	builder, _ := NewMatrixBuilder(DefaultPropagationConfig(), WithMatrixMetrics(metrics))

	lm, err := builder.Build(context.Background(), b, nil, []model.Point{{X: 1, Y: 1, Z: 1}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rows, cols := lm.Dims(); rows != 0 || cols != 1 {
		t.Fatalf("Dims() = (%d, %d), want (0, 1)", rows, cols)
	}
	lm, err = builder.Build(context.Background(), b, []model.Point{{X: 1, Y: 1, Z: 1}}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := lm.Row(0); len(got) != 0 {
		t.Fatalf("Row(0) = %v, want empty", got)
	}
	if minDB, maxDB, meanDB := lm.Summary(); minDB != 0 || maxDB != 0 || meanDB != 0 {
		t.Fatalf("Summary() on empty matrix = (%v, %v, %v)", minDB, maxDB, meanDB)
	}
	if metrics.builds != 2 || metrics.pairs != 0 {
		t.Fatalf("metrics = %+v, want 2 builds with 0 pairs", metrics)
	}
}

func TestBuildRecordsMetrics(t *testing.T) {
	b := model.DemoBuilding()
	metrics := &fakeMatrixMetrics{}
	builder, _ := NewMatrixBuilder(DefaultPropagationConfig(), WithMatrixMetrics(metrics))
	candidates := []model.Point{{X: 5, Y: 5, Z: 3}, {X: 40, Y: 30, Z: 10}}
	sensors := []model.Point{{X: 10, Y: 10, Z: 1}, {X: 50, Y: 30, Z: 1}, {X: 20, Y: 35, Z: 15}}
	if _, err := builder.Build(context.Background(), b, candidates, sensors); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if metrics.builds != 1 || metrics.pairs != 6 || metrics.walls != 48 {
		t.Fatalf("metrics = %+v, want 1 build, 6 pairs, 48 walls", metrics)
	}
}

func TestBuildErrors(t *testing.T) {
	builder, _ := NewMatrixBuilder(DefaultPropagationConfig())
	if _, err := builder.Build(context.Background(), nil, nil, nil); !errors.Is(err, model.ErrNilBuilding) {
		t.Fatalf("Build(nil building) error = %v, want ErrNilBuilding", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pts := []model.Point{{X: 1, Y: 1, Z: 1}}
	if _, err := builder.Build(ctx, model.DemoBuilding(), pts, pts); !errors.Is(err, context.Canceled) {
		t.Fatalf("Build(cancelled) error = %v, want context.Canceled", err)
	}

	bad := DefaultPropagationConfig()
	bad.FrequencyHz = 0
	if _, err := NewMatrixBuilder(bad); !errors.Is(err, ErrInvalidPropagation) {
		t.Fatalf("NewMatrixBuilder(bad) error = %v, want ErrInvalidPropagation", err)
	}
}

func TestLossMatrixAccessorsCopy(t *testing.T) {
	candidates := []model.Point{{X: 1}, {X: 2}}
	sensors := []model.Point{{Y: 1}, {Y: 2}, {Y: 3}}
	lm, err := NewLossMatrix(candidates, sensors, [][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("NewLossMatrix: %v", err)
	}
	row := lm.Row(1)
	row[0] = 100
	if lm.At(1, 0) != 4 {
		t.Fatalf("Row must return a copy")
	}
	cs := lm.Candidates()
	cs[0].X = 42
	if lm.Candidates()[0].X != 1 {
		t.Fatalf("Candidates must return a copy")
	}
	minDB, maxDB, meanDB := lm.Summary()
	if minDB != 1 || maxDB != 6 || meanDB != 3.5 {
		t.Fatalf("Summary() = (%v, %v, %v), want (1, 6, 3.5)", minDB, maxDB, meanDB)
	}

	if _, err := NewLossMatrix(candidates, sensors, [][]float64{{1, 2, 3}}); err == nil {
		t.Fatalf("expected error for missing row")
	}
	if _, err := NewLossMatrix(candidates, sensors, [][]float64{{1, 2, 3}, {4, 5}}); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func BenchmarkBuildDemoBuilding(b *testing.B) {
	building := model.DemoBuilding()
	candidates, _ := model.GridPoints(building, model.GridSpec{Spacing: 5, Margin: 1, HeightAboveFloor: 3.5})
	sensors, _ := model.GridPoints(building, model.GridSpec{Spacing: 3, Margin: 1, HeightAboveFloor: 1})
	builder, err := NewMatrixBuilder(DefaultPropagationConfig(), WithWorkers(0))
	if err != nil {
		b.Fatalf("NewMatrixBuilder: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(context.Background(), building, candidates, sensors); err != nil {
			b.Fatalf("Build: %v", err)
		}
	}
}

func TestPairLossDBAddsTracedObstruction(t *testing.T) {
	b := model.DemoBuilding()
	cfg := DefaultPropagationConfig()
	builder, err := NewMatrixBuilder(cfg)
	if err != nil {
		t.Fatalf("NewMatrixBuilder: %v", err)
	}
	c := model.Point{X: 10, Y: 10, Z: 3.5}
	s := model.Point{X: 45, Y: 30, Z: 8}
	tracer := NewObstructionTracer(b, cfg.FloorAttenuationDB)
	want := builder.PathLoss().LossDB(c.DistanceTo(s)) + tracer.LossDB(c, s)
	if got := builder.PairLossDB(b, c, s); math.Abs(got-want) > 1e-9 {
		t.Fatalf("PairLossDB = %v, want %v", got, want)
	}
	if tracer.LossDB(c, s) < cfg.FloorAttenuationDB {
		t.Fatalf("tracer loss = %v, want at least one floor crossing", tracer.LossDB(c, s))
	}
}

func TestLossMatrixAtOutOfRangeOnEmptyMatrix(t *testing.T) {
	lm, err := NewLossMatrix([]model.Point{{X: 1}}, nil, [][]float64{nil})
	if err != nil {
		t.Fatalf("NewLossMatrix: %v", err)
	}
	atPanic := func(i, j int) (v any) {
		defer func() { v = recover() }()
		lm.At(i, j)
		return nil
	}
	if got := atPanic(0, 0); got != mat.ErrColAccess {
		t.Fatalf("At(0, 0) panic = %v, want %v", got, mat.ErrColAccess)
	}
	if got := atPanic(1, 0); got != mat.ErrRowAccess {
		t.Fatalf("At(1, 0) panic = %v, want %v", got, mat.ErrRowAccess)
	}
}
