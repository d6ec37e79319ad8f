package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "planner",
		Short:        "Plan indoor router placement against a sensor grid",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML or JSON planner config (defaults built in)")

	root.AddCommand(runCmd(&configPath))
	root.AddCommand(matrixCmd(&configPath))
	root.AddCommand(layoutCmd(&configPath))
	root.AddCommand(historyCmd())
	return root
}

func runCmd(configPath *string) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [layout.json]",
		Short: "Build the loss matrix, optimise placement and compare against baselines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = *configPath
			if len(args) == 1 {
				opts.layout = args[0]
			}
			opts.overrides = overridesFrom(cmd)
			return runPlan(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Uint64Var(&opts.seed, "seed", 1, "optimizer random seed")
	f.IntVar(&opts.generations, "generations", 50, "optimizer generations")
	f.IntVar(&opts.population, "population", 50, "optimizer population size")
	f.IntVar(&opts.workers, "workers", 1, "parallel evaluation and tracing workers")
	f.StringVar(&opts.archive, "archive", "", "SQLite file to archive the run in")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file when done")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
	f.BoolVar(&opts.skipBaselines, "no-baselines", false, "skip the random and grid baselines")
	f.BoolVar(&opts.json, "json", false, "print the report as JSON")
	return cmd
}

func matrixCmd(configPath *string) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "matrix [layout.json]",
		Short: "Build the candidate-to-sensor loss matrix and summarise it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := ""
			if len(args) == 1 {
				layout = args[0]
			}
			return runMatrix(cmd.Context(), *configPath, layout, workers, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "tracing workers (0 uses every CPU)")
	return cmd
}

func layoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "layout [layout.json]",
		Short: "Load a building layout and describe it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := ""
			if len(args) == 1 {
				layout = args[0]
			}
			return runLayout(*configPath, layout, cmd.OutOrStdout())
		},
	}
}

func historyCmd() *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List archived runs, or show the front of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(cmd.Context(), archive, id, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&archive, "archive", "planner.db", "SQLite run archive")
	return cmd
}

// overridesFrom records which run flags were set explicitly so they can
// win over the config file.
func overridesFrom(cmd *cobra.Command) map[string]bool {
	set := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})
	return set
}
