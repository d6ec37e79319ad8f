package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/router-placement/core"
	"github.com/signalsfoundry/router-placement/internal/config"
	"github.com/signalsfoundry/router-placement/internal/logging"
	"github.com/signalsfoundry/router-placement/internal/observability"
	"github.com/signalsfoundry/router-placement/internal/store"
	"github.com/signalsfoundry/router-placement/model"
	"github.com/signalsfoundry/router-placement/placement"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type runOptions struct {
	configPath string
	layout     string
	overrides  map[string]bool

	seed            uint64
	generations     int
	population      int
	workers         int
	archive         string
	metricsTextfile string
	metricsAddr     string
	skipBaselines   bool
	json            bool
}

// report is everything a run prints.
type report struct {
	RunID       string  `json:"run_id"`
	Building    string  `json:"building"`
	Floors      int     `json:"floors"`
	Walls       int     `json:"walls"`
	Candidates  int     `json:"candidates"`
	Sensors     int     `json:"sensors"`
	AllowableDB float64 `json:"allowable_loss_db"`

	Matrix matrixSummary `json:"matrix"`

	Generations int                 `json:"generations"`
	Evaluations int                 `json:"evaluations"`
	CacheHits   int64               `json:"cache_hits"`
	CacheMisses int64               `json:"cache_misses"`
	Front       placement.Front     `json:"front"`
	Best        *placement.Solution `json:"best,omitempty"`
	BestPercent float64             `json:"best_coverage_pct"`
	BestSites   []model.Point       `json:"best_sites,omitempty"`
	Uncovered   []model.Point       `json:"uncovered_sensors,omitempty"`

	Baselines []placement.BaselineResult `json:"baselines,omitempty"`
	Elapsed   string                     `json:"elapsed"`
}

type matrixSummary struct {
	MinDB  float64 `json:"min_db"`
	MaxDB  float64 `json:"max_db"`
	MeanDB float64 `json:"mean_db"`
}

// loadConfig resolves the file (or defaults), the environment and then
// explicitly set flags, in that order.
func loadConfig(opts runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	set := opts.overrides
	if opts.layout != "" {
		cfg.Layout = opts.layout
	}
	if set["seed"] {
		cfg.Optimizer.Seed = opts.seed
	}
	if set["generations"] {
		cfg.Optimizer.Generations = opts.generations
	}
	if set["population"] {
		cfg.Optimizer.PopulationSize = opts.population
	}
	if set["workers"] {
		cfg.Optimizer.Workers = opts.workers
	}
	if set["archive"] {
		cfg.Output.Archive = opts.archive
	}
	if set["metrics-textfile"] {
		cfg.Output.MetricsTextfile = opts.metricsTextfile
	}
	if set["metrics-addr"] {
		cfg.Output.MetricsAddr = opts.metricsAddr
	}
	if opts.skipBaselines {
		cfg.Baseline.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadBuilding(ctx context.Context, cfg config.Config, log logging.Logger) (*model.Building, error) {
	if cfg.Layout == "" {
		b := model.DemoBuilding()
		log.Info(ctx, "using demo building", logging.String("name", b.Name))
		return b, nil
	}
	b, summary, err := core.LoadLayoutFile(cfg.Layout, cfg.Propagation.Materials)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "loaded layout",
		logging.String("path", cfg.Layout),
		logging.String("name", summary.Name),
		logging.Int("rooms", len(summary.RoomNames)),
		logging.Int("walls", summary.Walls),
		logging.Int("floors", summary.Floors),
	)
	return b, nil
}

// sitePoints lays the candidate and sensor grids over b.
func sitePoints(cfg config.Config, b *model.Building) ([]model.Point, []model.Point, error) {
	candidates, err := model.GridPoints(b, cfg.Candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("candidate grid: %w", err)
	}
	sensors, err := model.GridPoints(b, cfg.Sensors)
	if err != nil {
		return nil, nil, fmt.Errorf("sensor grid: %w", err)
	}
	return candidates, sensors, nil
}

func runPlan(ctx context.Context, opts runOptions, out io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	ctx, log := logging.WithRunLogger(ctx, logging.New(cfg.Logging))
	runID := logging.RunIDFromContext(ctx)

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	ctx, span := observability.StartSpan(ctx, "Planner/Run", attribute.String("run_id", runID))
	defer span.End()

	collector, err := observability.NewPlannerCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		collector.RecordRun(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if cfg.Output.MetricsTextfile != "" {
			if werr := collector.WriteTextfile(cfg.Output.MetricsTextfile); werr != nil {
				log.Warn(ctx, "metrics textfile not written", logging.Error(werr))
			}
		}
	}()
	if srv := serveMetrics(cfg.Output.MetricsAddr, collector, log); srv != nil {
		defer srv.Close()
	}

	building, err := loadBuilding(ctx, cfg, log)
	if err != nil {
		return err
	}
	candidates, sensors, err := sitePoints(cfg, building)
	if err != nil {
		return err
	}

	builder, err := core.NewMatrixBuilder(cfg.Propagation,
		core.WithWorkers(cfg.Optimizer.Workers),
		core.WithLogger(log),
		core.WithMatrixMetrics(collector),
	)
	if err != nil {
		return err
	}
	lm, err := builder.Build(ctx, building, candidates, sensors)
	if err != nil {
		return err
	}

	problem, err := placement.NewProblem(lm, cfg.Propagation.Budget)
	if err != nil {
		return err
	}
	optimizer, err := placement.NewOptimizer(problem, cfg.Optimizer,
		placement.WithLogger(log),
		placement.WithOptimizerMetrics(collector),
	)
	if err != nil {
		return err
	}
	res, err := optimizer.Run(ctx)
	if err != nil {
		return err
	}

	rep := report{
		RunID:       runID,
		Building:    building.Name,
		Floors:      building.Floors(),
		Walls:       len(building.Walls()),
		Candidates:  len(candidates),
		Sensors:     len(sensors),
		AllowableDB: problem.AllowableLossDB(),
		Generations: res.Generations,
		Evaluations: res.Evaluations,
		CacheHits:   res.CacheHits,
		CacheMisses: res.CacheMisses,
		Front:       res.Front,
	}
	rep.Matrix.MinDB, rep.Matrix.MaxDB, rep.Matrix.MeanDB = lm.Summary()

	if best, ok := res.Front.BestCoverage(); ok {
		rep.Best = &best
		if rep.BestPercent, err = problem.CoveragePercent(best.Active); err != nil {
			return err
		}
		for _, i := range best.ActiveIndices() {
			rep.BestSites = append(rep.BestSites, candidates[i])
		}
		covered, err := problem.Covered(best.Active)
		if err != nil {
			return err
		}
		for j, ok := range covered {
			if !ok {
				rep.Uncovered = append(rep.Uncovered, sensors[j])
			}
		}
		if cfg.Baseline.Enabled {
			if rep.Baselines, err = runBaselines(problem, best.Routers, cfg.Baseline); err != nil {
				return err
			}
		}
	}

	if cfg.Output.Archive != "" {
		if err := archiveRun(ctx, cfg, rep); err != nil {
			return err
		}
		log.Info(ctx, "run archived", logging.String("path", cfg.Output.Archive))
	}

	rep.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(out, rep)
	return nil
}

func runBaselines(p *placement.Problem, routers int, cfg config.BaselineConfig) ([]placement.BaselineResult, error) {
	random, err := placement.RandomBaseline(p, routers, cfg.Trials, cfg.Seed)
	if err != nil {
		return nil, err
	}
	grid, err := placement.GridBaseline(p, routers)
	if err != nil {
		return nil, err
	}
	return []placement.BaselineResult{random, grid}, nil
}

func archiveRun(ctx context.Context, cfg config.Config, rep report) error {
	archive, err := store.Open(cfg.Output.Archive)
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.SaveRun(ctx, store.Run{
		ID:          rep.RunID,
		CreatedAt:   time.Now(),
		Building:    rep.Building,
		Candidates:  rep.Candidates,
		Sensors:     rep.Sensors,
		Seed:        cfg.Optimizer.Seed,
		Generations: rep.Generations,
		Evaluations: rep.Evaluations,
		Front:       rep.Front,
	})
}

func runMatrix(ctx context.Context, configPath, layout string, workers int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(runOptions{configPath: configPath, layout: layout})
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging)

	building, err := loadBuilding(ctx, cfg, log)
	if err != nil {
		return err
	}
	candidates, sensors, err := sitePoints(cfg, building)
	if err != nil {
		return err
	}
	builder, err := core.NewMatrixBuilder(cfg.Propagation, core.WithWorkers(workers), core.WithLogger(log))
	if err != nil {
		return err
	}
	start := time.Now()
	lm, err := builder.Build(ctx, building, candidates, sensors)
	if err != nil {
		return err
	}
	problem, err := placement.NewProblem(lm, cfg.Propagation.Budget)
	if err != nil {
		return err
	}
	printMatrix(out, building, lm, problem, time.Since(start))
	return nil
}

func runLayout(configPath, layout string, out io.Writer) error {
	cfg, err := loadConfig(runOptions{configPath: configPath, layout: layout})
	if err != nil {
		return err
	}
	building, err := loadBuilding(context.Background(), cfg, logging.Noop())
	if err != nil {
		return err
	}
	candidates, sensors, err := sitePoints(cfg, building)
	if err != nil {
		return err
	}
	printLayout(out, building, len(candidates), len(sensors))
	return nil
}

func runHistory(ctx context.Context, path, id string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	archive, err := store.Open(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	if id == "" {
		ids, err := archive.ListRuns(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}
	run, err := archive.LoadRun(ctx, id)
	if err != nil {
		return err
	}
	printArchivedRun(out, run)
	return nil
}

func serveMetrics(addr string, collector *observability.PlannerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Error(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
