package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/router-placement/core"
	"github.com/signalsfoundry/router-placement/internal/store"
	"github.com/signalsfoundry/router-placement/model"
	"github.com/signalsfoundry/router-placement/placement"
)

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "Building: %s (%d floors, %d walls)\n", r.Building, r.Floors, r.Walls)
	fmt.Fprintf(w, "Grid: %d candidate sites, %d sensors\n", r.Candidates, r.Sensors)
	fmt.Fprintf(w, "Loss matrix: min %.1f dB, max %.1f dB, mean %.1f dB (budget %.1f dB)\n",
		r.Matrix.MinDB, r.Matrix.MaxDB, r.Matrix.MeanDB, r.AllowableDB)
	fmt.Fprintf(w, "Optimizer: %d generations, %d evaluations, %d cache hits, %d misses\n",
		r.Generations, r.Evaluations, r.CacheHits, r.CacheMisses)
	fmt.Fprintln(w)

	printFront(w, r.Front, r.Sensors)

	if r.Best != nil {
		fmt.Fprintf(w, "Best coverage: %d routers, %d uncovered sensors (%.2f%%)\n",
			r.Best.Routers, r.Best.Uncovered, r.BestPercent)
		for _, p := range r.BestSites {
			fmt.Fprintf(w, "  router at (%.1f, %.1f, %.1f)\n", p.X, p.Y, p.Z)
		}
	}

	if len(r.Baselines) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Baselines:")
		for _, b := range r.Baselines {
			if b.Trials > 1 {
				fmt.Fprintf(w, "  %-8s %d routers: mean %.2f%%, best %.2f%% over %d trials\n",
					b.Name, b.Routers, b.MeanCoverage, b.BestCoverage, b.Trials)
			} else {
				fmt.Fprintf(w, "  %-8s %d routers: %.2f%%\n", b.Name, b.Routers, b.BestCoverage)
			}
		}
	}
	fmt.Fprintf(w, "\nElapsed: %s\n", r.Elapsed)
}

func printFront(w io.Writer, front placement.Front, sensors int) {
	fmt.Fprintf(w, "PARETO FRONT (%d):\n", len(front))
	fmt.Fprintf(w, "  %7s  %9s  %8s  %s\n", "routers", "uncovered", "coverage", "sites")
	for _, s := range front {
		pct := 0.0
		if sensors > 0 {
			pct = 100 * float64(sensors-s.Uncovered) / float64(sensors)
		}
		fmt.Fprintf(w, "  %7d  %9d  %7.2f%%  %s\n", s.Routers, s.Uncovered, pct, formatIndices(s.ActiveIndices()))
	}
	fmt.Fprintln(w)
}

func printMatrix(w io.Writer, b *model.Building, lm *core.LossMatrix, p *placement.Problem, elapsed time.Duration) {
	rows, cols := lm.Dims()
	minDB, maxDB, meanDB := lm.Summary()
	fmt.Fprintf(w, "Building: %s\n", b.Name)
	fmt.Fprintf(w, "Matrix: %d candidates x %d sensors (%d pairs) in %s\n",
		rows, cols, rows*cols, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Loss: min %.1f dB, max %.1f dB, mean %.1f dB\n", minDB, maxDB, meanDB)

	all := make([]bool, rows)
	for i := range all {
		all[i] = true
	}
	if pct, err := p.CoveragePercent(all); err == nil {
		fmt.Fprintf(w, "Coverage with every candidate active: %.2f%% (budget %.1f dB)\n", pct, p.AllowableLossDB())
	}
}

func printLayout(w io.Writer, b *model.Building, candidates, sensors int) {
	ext := b.Extent()
	fmt.Fprintf(w, "Building: %s\n", b.Name)
	fmt.Fprintf(w, "Extent: x %.1f..%.1f, y %.1f..%.1f, z %.1f..%.1f\n",
		ext.MinX, ext.MaxX, ext.MinY, ext.MaxY, ext.MinZ, ext.MaxZ)
	fmt.Fprintf(w, "Floors: %d, rooms: %d, walls: %d\n", b.Floors(), len(b.Rooms), len(b.Walls()))

	materials := map[string]int{}
	for _, wall := range b.Walls() {
		materials[wall.Material]++
	}
	names := make([]string, 0, len(materials))
	for name := range materials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %d walls\n", name, materials[name])
	}

	for _, r := range b.Rooms {
		fmt.Fprintf(w, "  floor %d  %-20s %d walls\n", r.FloorLevel, r.Name, len(r.Walls))
	}
	fmt.Fprintf(w, "Grid: %d candidate sites, %d sensors\n", candidates, sensors)
}

func printArchivedRun(w io.Writer, run store.Run) {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Building: %s, %d candidates, %d sensors, seed %d\n",
		run.Building, run.Candidates, run.Sensors, run.Seed)
	fmt.Fprintf(w, "Optimizer: %d generations, %d evaluations\n\n", run.Generations, run.Evaluations)
	printFront(w, run.Front, run.Sensors)
}

func formatIndices(idx []int) string {
	if len(idx) == 0 {
		return "-"
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
