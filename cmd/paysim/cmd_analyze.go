package main

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nvandessel/paysim/internal/config"
	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/convergence"
	"github.com/nvandessel/paysim/internal/intervention"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse pay gaps in a generated population or a stored run",
		Long: `Analyse a population for below-median pay or for gender pay gap
remediation options.

The population is generated from the population flags, or loaded from a
stored run with --run (final population unless --phase initial).

Examples:
  paysim analyze below-median --size 500
  paysim analyze below-median --run <id> --phase initial --limit 10
  paysim analyze remediation --gap 15 --budget 0.03`,
	}

	cmd.AddCommand(
		newAnalyzeBelowMedianCmd(),
		newAnalyzeRemediationCmd(),
	)

	return cmd
}

// addSourceFlags registers the flags that select the analysed population.
func addSourceFlags(cmd *cobra.Command) {
	addPopulationFlags(cmd)
	cmd.Flags().String("run", "", "Analyse a stored run instead of generating")
	cmd.Flags().String("phase", string(constants.PhaseFinal), "Run population to analyse: initial or final")
}

// loadPopulation resolves the population selected by the source flags.
func loadPopulation(cmd *cobra.Command, cfg *config.PaysimConfig, logger *slog.Logger) (models.Population, string, error) {
	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		if cmd.Flags().Changed("phase") {
			return nil, "", fmt.Errorf("--phase requires --run")
		}
		opts := populationOptions(cmd, cfg, logger)
		pop, err := population.Generate(opts)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate population: %w", err)
		}
		return pop, fmt.Sprintf("generated %d employees (seed %d)", len(pop), opts.RandomSeed), nil
	}

	for _, name := range []string{"size", "seed", "gap"} {
		if cmd.Flags().Changed(name) {
			return nil, "", fmt.Errorf("--%s cannot be combined with --run", name)
		}
	}
	phaseFlag, _ := cmd.Flags().GetString("phase")
	phase := constants.Phase(phaseFlag)
	if !phase.Valid() {
		return nil, "", fmt.Errorf("invalid phase %q (must be %s or %s)", phaseFlag, constants.PhaseInitial, constants.PhaseFinal)
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()

	run, err := s.GetRun(cmd.Context(), runID)
	if err != nil {
		return nil, "", err
	}
	if phase == constants.PhaseInitial {
		return run.Initial, fmt.Sprintf("run %s (initial population)", run.ID), nil
	}
	return run.Final, fmt.Sprintf("run %s (final population)", run.ID), nil
}

func newAnalyzeBelowMedianCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "below-median",
		Short: "Find employees paid below their level median and recommend a strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			minGap := cfg.Analysis.MinGapPercent
			if cmd.Flags().Changed("min-gap") {
				minGap, _ = cmd.Flags().GetFloat64("min-gap")
			}
			if minGap < 0 {
				return fmt.Errorf("--min-gap must be non-negative, got %v", minGap)
			}
			excludeGender, _ := cmd.Flags().GetBool("exclude-gender")
			limit, _ := cmd.Flags().GetInt("limit")

			pop, source, err := loadPopulation(cmd, cfg, logger)
			if err != nil {
				return err
			}
			analyzer, err := convergence.NewAnalyzer(pop, convergence.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("failed to analyse population: %w", err)
			}
			analysis := analyzer.IdentifyBelowMedian(minGap, !excludeGender)
			rec := analyzer.RecommendStrategies(analysis)

			employees := slices.Clone(analysis.Employees)
			slices.SortStableFunc(employees, func(a, b convergence.BelowMedianEmployee) int {
				return cmp.Compare(b.GapPercent, a.GapPercent)
			})
			if limit > 0 && len(employees) > limit {
				employees = employees[:limit]
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"source":         source,
					"analysis":       analysis,
					"recommendation": rec,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Source: %s\n\n", source)
			fmt.Fprintf(w, "Below median (gap >= %.1f%%): %d of %d employees (%.1f%%)\n",
				minGap, analysis.BelowMedianCount, analysis.TotalEmployees, analysis.BelowMedianPercent)
			if analysis.BelowMedianCount == 0 {
				return nil
			}
			st := analysis.Statistics
			fmt.Fprintf(w, "Gap:   average %.2f (%.1f%%), median %.2f (%.1f%%), total %.2f\n",
				st.AverageGapAmount, st.AverageGapPercent, st.MedianGapAmount, st.MedianGapPercent, st.TotalGapAmount)
			if ga := analysis.GenderAnalysis; ga != nil {
				fmt.Fprintf(w, "Gender: %d male (avg %.1f%%), %d female (avg %.1f%%)",
					ga.Male.Count, ga.Male.AverageGapPercent, ga.Female.Count, ga.Female.AverageGapPercent)
				if ga.Disparity != nil {
					fmt.Fprintf(w, ", disparity %+.1f points", *ga.Disparity)
					if ga.DisparitySignificant {
						fmt.Fprint(w, " (significant)")
					}
				}
				fmt.Fprintln(w)
			}
			p := rec.Prioritization
			fmt.Fprintf(w, "Priority: %d high, %d medium, %d low\n\n", p.High, p.Medium, p.Low)

			fmt.Fprintf(w, "%-28s %10s %14s %8s %8s\n", "Strategy", "Affected", "Cost", "Months", "Success")
			for _, s := range rec.Strategies {
				if !s.Applicable {
					continue
				}
				marker := " "
				if s.Name == rec.Primary.Name {
					marker = "*"
				}
				fmt.Fprintf(w, "%s%-27s %10d %14s %8d %7.0f%%\n",
					marker, s.Name.Title(), s.AffectedEmployees, s.TotalCost.StringFixed(2), s.TimelineMonths, s.SuccessProbability*100)
			}
			cb := rec.CostBenefit
			fmt.Fprintf(w, "\nRecommended: %s\n", rec.Primary.Name.Title())
			fmt.Fprintf(w, "Investment %s, benefit %s, ROI %.2f, payback %d months\n",
				cb.TotalInvestment.StringFixed(2), cb.TotalBenefit.StringFixed(2), cb.ROIRatio, cb.PaybackMonths)

			fmt.Fprintln(w, "\nTimeline:")
			for _, m := range rec.Timeline {
				fmt.Fprintf(w, "  month %-3d %s\n", m.Month, m.Milestone)
			}

			fmt.Fprintf(w, "\nLargest gaps (%d shown):\n", len(employees))
			fmt.Fprintf(w, "%-6s %-6s %-7s %12s %12s %8s %7s\n", "ID", "Level", "Gender", "Salary", "Median", "Gap", "Tenure")
			for _, e := range employees {
				fmt.Fprintf(w, "%-6d %-6d %-7s %12.2f %12.2f %7.1f%% %6.1fy\n",
					e.EmployeeID, e.Level, e.Gender, e.Salary, e.LevelMedian, e.GapPercent, e.TenureYears)
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Float64("min-gap", constants.DefaultMinGapPercent, "Minimum gap below the level median, in percent")
	cmd.Flags().Bool("exclude-gender", false, "Skip the gender breakdown")
	cmd.Flags().Int("limit", 20, "Employees to list, largest gap first (0 for all)")

	return cmd
}

func newAnalyzeRemediationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remediation",
		Short: "Model strategies for closing the gender pay gap within a budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			params := cfg.Analysis.RemediationParams()
			if cmd.Flags().Changed("target") {
				params.TargetGapPercent, _ = cmd.Flags().GetFloat64("target")
			}
			if cmd.Flags().Changed("max-years") {
				params.MaxYears, _ = cmd.Flags().GetInt("max-years")
			}
			if cmd.Flags().Changed("budget") {
				params.BudgetConstraint, _ = cmd.Flags().GetFloat64("budget")
			}
			if err := params.Validate(); err != nil {
				return err
			}

			pop, source, err := loadPopulation(cmd, cfg, logger)
			if err != nil {
				return err
			}
			modeller, err := intervention.NewModeller(pop, intervention.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("failed to model population: %w", err)
			}
			rem, err := modeller.ModelRemediation(params)
			if err != nil {
				return fmt.Errorf("failed to model remediation: %w", err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"source":      source,
					"remediation": rem,
				})
			}

			w := cmd.OutOrStdout()
			cs := rem.CurrentState
			fmt.Fprintf(w, "Source: %s\n\n", source)
			fmt.Fprintf(w, "Gender pay gap: %.2f%% (male median %.2f, female median %.2f)\n",
				cs.GenderPayGapPercent, cs.MaleMedianSalary, cs.FemaleMedianSalary)
			fmt.Fprintf(w, "Underpaid women: %d\n", cs.AffectedFemaleEmployees)
			fmt.Fprintf(w, "Payroll %s, budget limit %s (%.1f%%)\n\n",
				cs.TotalPayroll.StringFixed(2), rem.TargetState.BudgetConstraintAmount.StringFixed(2), params.BudgetConstraint*100)

			fmt.Fprintf(w, "%-28s %14s %7s %10s %10s %8s\n", "Strategy", "Cost", "Years", "Final gap", "Feasible", "Score")
			for _, ev := range rem.Evaluations {
				s := ev.Strategy
				fmt.Fprintf(w, "%-28s %14s %7.1f %9.2f%% %10s %8.1f\n",
					s.Name.Title(), s.TotalCost.StringFixed(2), s.TimelineYears, s.ProjectedFinalGap, s.Feasibility, ev.Scores.Overall)
			}
			for _, s := range rem.Strategies {
				if !s.Applicable {
					fmt.Fprintf(w, "%-28s not applicable: %s\n", s.Name.Title(), s.Reason)
				}
			}

			rec := rem.Recommended
			fmt.Fprintf(w, "\nRecommended: %s (%s confidence)\n", rec.Strategy.Name.Title(), rec.Confidence)
			if len(rem.Plan) > 0 {
				fmt.Fprintln(w, "\nPlan:")
				for _, phase := range rem.Plan {
					fmt.Fprintf(w, "  %d. %s (%d months)\n", phase.Phase, phase.Activity, phase.TimelineMonths)
				}
			}
			roi := rem.ROI
			fmt.Fprintf(w, "\nROI: investment %s, annual benefit %s, 3-year ROI %.1f%%",
				roi.TotalInvestment.StringFixed(2), roi.AnnualBenefits.StringFixed(2), roi.ROI3Year)
			if roi.PaybackYears != nil {
				fmt.Fprintf(w, ", payback %.1f years", *roi.PaybackYears)
			}
			fmt.Fprintln(w)

			risk := rem.RiskAssessment
			fmt.Fprintf(w, "\nRisk: %s\n", risk.Level)
			for _, f := range risk.Factors {
				fmt.Fprintf(w, "  - %s\n", f)
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Float64("target", constants.DefaultTargetGapPercent, "Target gender pay gap percent")
	cmd.Flags().Int("max-years", constants.DefaultMaxYears, "Longest acceptable timeline in years")
	cmd.Flags().Float64("budget", constants.DefaultBudgetConstraint, "Budget as a fraction of payroll (0-1]")

	return cmd
}
