package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/logging"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/simulation"
	"github.com/nvandessel/paysim/internal/store"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate annual review cycles and track inequality",
		Long: `Generate a population and run annual review cycles over it. Each cycle
evolves ratings (sticky with --consistency), applies uplifts and records
Gini, gender gap and pay-performance correlation.

The run is stored unless --no-save is given. At debug or trace log level
every cycle is also written to ~/.paysim/decisions.jsonl.

Examples:
  paysim simulate --cycles 10
  paysim simulate --cycles 20 --consistency 0.9 --label sticky
  paysim simulate --stop-on-convergence=false --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			if cmd.Flags().Changed("cycles") {
				cfg.Simulation.Cycles, _ = cmd.Flags().GetInt("cycles")
			}
			if cmd.Flags().Changed("consistency") {
				cfg.Simulation.PerformanceConsistency, _ = cmd.Flags().GetFloat64("consistency")
			}
			if cmd.Flags().Changed("stop-on-convergence") {
				stop, _ := cmd.Flags().GetBool("stop-on-convergence")
				if stop && cfg.Simulation.Convergence.Lookback < 1 {
					cfg.Simulation.Convergence = simulation.DefaultConvergenceConfig()
				}
				cfg.Simulation.Convergence.Enabled = stop
			}
			label, _ := cmd.Flags().GetString("label")
			noSave, _ := cmd.Flags().GetBool("no-save")

			opts := populationOptions(cmd, cfg, logger)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid simulation settings: %w", err)
			}

			pop, err := population.Generate(opts)
			if err != nil {
				return fmt.Errorf("failed to generate population: %w", err)
			}

			runID := uuid.NewString()
			var decisions *logging.DecisionLogger
			if dir, err := store.GlobalPaysimPath(); err == nil {
				decisions = logging.NewDecisionLogger(dir, cfg.Logging.Level)
				decisions.SetRunID(runID)
			}
			defer decisions.Close()

			sim, err := simulation.NewSimulator(pop, cfg.SimulatorConfig(logger, decisions))
			if err != nil {
				return fmt.Errorf("failed to create simulator: %w", err)
			}
			result, err := sim.Run(cfg.Simulation.Cycles, cfg.Simulation.PerformanceConsistency)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			run := store.NewRun(store.RunParams{
				ID:                     runID,
				Label:                  label,
				RandomSeed:             opts.RandomSeed,
				CyclesRequested:        cfg.Simulation.Cycles,
				PerformanceConsistency: cfg.Simulation.PerformanceConsistency,
			}, pop, result)

			if !noSave {
				s, err := openStore(cfg, logger)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.SaveRun(cmd.Context(), run); err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
			}

			analysis := simulation.FinalAnalysis(result.Progression)
			if jsonOutput(cmd) {
				out := map[string]any{
					"run_id":                 run.ID,
					"saved":                  !noSave,
					"seed":                   opts.RandomSeed,
					"cycles_requested":       cfg.Simulation.Cycles,
					"cycles_completed":       run.CyclesCompleted(),
					"converged":              result.Converged,
					"inequality_progression": result.Progression,
					"analysis":               analysis,
				}
				if result.Converged {
					out["converged_cycle"] = result.ConvergedCycle
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Simulated %d of %d cycles over %d employees (seed %d)",
				run.CyclesCompleted(), cfg.Simulation.Cycles, len(pop), opts.RandomSeed)
			if result.Converged {
				fmt.Fprintf(w, ", converged at cycle %d", result.ConvergedCycle)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w)
			printProgression(w, result.Progression)
			fmt.Fprintln(w)
			printAnalysis(w, analysis)
			if !noSave {
				fmt.Fprintf(w, "\nSaved as run %s\n", run.ID)
			}
			return nil
		},
	}

	addPopulationFlags(cmd)
	cmd.Flags().Int("cycles", constants.DefaultCycles, "Number of annual review cycles (0-50)")
	cmd.Flags().Float64("consistency", constants.DefaultPerformanceConsistency, "Probability a rating stays close to the previous one (0-1)")
	cmd.Flags().Bool("stop-on-convergence", true, "Stop early once Gini and gender gap stabilise")
	cmd.Flags().String("label", "", "Label for the stored run")
	cmd.Flags().Bool("no-save", false, "Do not store the run")

	return cmd
}

func printProgression(w io.Writer, progression []models.InequalitySnapshot) {
	fmt.Fprintf(w, "%-6s %8s %8s %12s %10s %10s\n", "Cycle", "Gini", "CV", "Median", "Gap", "PerfCorr")
	for _, snap := range progression {
		fmt.Fprintf(w, "%-6d %8.4f %8.4f %12.2f %9.2f%% %10.3f\n",
			snap.Cycle, snap.GiniCoefficient, snap.CoefficientOfVariation, snap.MedianSalary,
			snap.GenderGapPercent, snap.PerformanceSalaryCorrelation)
	}
}

func printAnalysis(w io.Writer, a simulation.Analysis) {
	if !a.Sufficient {
		fmt.Fprintln(w, "Not enough cycles for an outcome analysis.")
		return
	}
	fmt.Fprintln(w, "Outcome:")
	fmt.Fprintf(w, "  Gini:            %.4f -> %.4f (%.1f%% reduction)\n", a.InitialGini, a.FinalGini, a.GiniReductionPercent)
	fmt.Fprintf(w, "  Gender gap:      %.2f%% -> %.2f%% (%.2f points)\n", a.InitialGenderGap, a.FinalGenderGap, a.GenderGapReduction)
	fmt.Fprintf(w, "  Median salary:   +%.2f (%.1f%%)\n", a.MedianSalaryIncrease, a.MedianSalaryIncreasePercent)
	fmt.Fprintf(w, "  Perf. corr.:     %+.3f\n", a.PerformanceCorrelationImprovement)
	if a.CyclesToHalveGini != nil {
		fmt.Fprintf(w, "  Gini halved at cycle %d\n", *a.CyclesToHalveGini)
	}
	if a.CyclesToGenderParity != nil {
		fmt.Fprintf(w, "  Gender parity at cycle %d\n", *a.CyclesToGenderParity)
	}
}
