package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/spf13/cobra"
)

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project individual salary progression and growth arithmetic",
		Long: `Project how an employee's salary evolves over the coming years under
conservative, realistic and optimistic performance scenarios, and compare
the outcome with their level.

The population is generated from the population flags, or loaded from a
stored run with --run (final population unless --phase initial).

Examples:
  paysim forecast project --id 17 --years 5
  paysim forecast batch --ids 3,17,42 --run <id>
  paysim forecast medians --years 10
  paysim forecast cagr --start 80000 --end 100000 --years 5`,
	}

	cmd.AddCommand(
		newForecastProjectCmd(),
		newForecastBatchCmd(),
		newForecastMediansCmd(),
		newForecastCAGRCmd(),
		newForecastCompoundCmd(),
		newForecastTimeToTargetCmd(),
	)

	return cmd
}

// newProjector loads the selected population and builds a projector over it.
func newProjector(cmd *cobra.Command) (*forecast.Projector, string, int, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", 0, err
	}
	logger := newLogger(cmd, cfg)

	years := cfg.Forecast.Years
	if cmd.Flags().Changed("years") {
		years, _ = cmd.Flags().GetInt("years")
	}
	if years < 1 || years > forecast.MaxYears {
		return nil, "", 0, fmt.Errorf("--years must be between 1 and %d, got %d", forecast.MaxYears, years)
	}
	if noMarket, _ := cmd.Flags().GetBool("no-market"); noMarket {
		cfg.Forecast.MarketAdjustments = false
	}

	pop, source, err := loadPopulation(cmd, cfg, logger)
	if err != nil {
		return nil, "", 0, err
	}
	p, err := forecast.NewProjector(pop, cfg.ProjectorOptions(logger))
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to build projector: %w", err)
	}
	return p, source, years, nil
}

func addProjectionFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	cmd.Flags().Int("years", forecast.DefaultYears, "Years to project (default from config)")
	cmd.Flags().Bool("no-market", false, "Skip market adjustment boosts")
}

func newForecastProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project one employee's salary under performance scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt("id")
			names, _ := cmd.Flags().GetStringSlice("scenarios")
			var scenarios []forecast.Scenario
			for _, name := range names {
				sc, err := forecast.ParseScenario(strings.TrimSpace(name))
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}

			p, source, years, err := newProjector(cmd)
			if err != nil {
				return err
			}
			proj, err := p.ProjectID(id, years, scenarios...)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"source":     source,
					"projection": proj,
				})
			}
			printProjection(cmd.OutOrStdout(), source, proj)
			return nil
		},
	}

	addProjectionFlags(cmd)
	cmd.Flags().Int("id", 0, "Employee id to project (required)")
	cmd.Flags().StringSlice("scenarios", nil, "Scenarios to model: conservative, realistic, optimistic (default all)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func printProjection(w io.Writer, source string, proj forecast.Projection) {
	c := proj.Current
	fmt.Fprintf(w, "Source: %s\n\n", source)
	fmt.Fprintf(w, "Employee %d: level %d, %s, salary %.2f, %.1f years at company\n\n",
		proj.EmployeeID, c.Level, c.PerformanceRating, c.Salary, c.TenureYears)

	fmt.Fprintf(w, "%-14s %14s %14s %8s  %s\n", "Scenario", "Final", "Increase", "CAGR", "Ratings")
	for _, sc := range forecast.Scenarios {
		s, ok := proj.Projections[sc]
		if !ok {
			continue
		}
		ratings := make([]string, len(s.PerformancePath))
		for i, r := range s.PerformancePath {
			ratings[i] = string(r)
		}
		fmt.Fprintf(w, "%-14s %14.2f %14.2f %7.2f%%  %s\n",
			sc, s.FinalSalary, s.TotalIncrease, s.CAGR*100, strings.Join(ratings, " > "))
	}

	a := proj.Analysis
	fmt.Fprintf(w, "\nConfidence interval of path salaries: %.2f - %.2f\n", a.ConfidenceInterval.Lower, a.ConfidenceInterval.Upper)
	mc := a.MedianComparison
	fmt.Fprintf(w, "Level median: now %s (%+.1f%%), projected %s (%+.1f%%)\n",
		mc.CurrentStatus, mc.CurrentGapPercent, mc.ProjectedStatus, mc.ProjectedGapPercent)
	mp := a.MarketPosition
	fmt.Fprintf(w, "Level range: now %.0fth percentile (%s), projected %.0fth (%s)\n",
		mp.CurrentPercentile, mp.CurrentQuartile, mp.ProjectedPercentile, mp.ProjectedQuartile)

	if len(a.Risks) > 0 {
		fmt.Fprintln(w, "\nRisks:")
		for _, r := range a.Risks {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	rec := proj.Recommendation
	fmt.Fprintf(w, "\nRecommended: %s (%s)\n", rec.PrimaryAction, rec.Timeline)
	if rec.Rationale != "" {
		fmt.Fprintf(w, "  %s\n", rec.Rationale)
	}
	for _, action := range rec.SecondaryActions {
		fmt.Fprintf(w, "  + %s\n", action)
	}
}

func newForecastBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Summarise projections for several employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, _ := cmd.Flags().GetIntSlice("ids")
			if len(ids) == 0 {
				return fmt.Errorf("--ids must list at least one employee id")
			}
			detailed, _ := cmd.Flags().GetBool("detailed")

			p, source, years, err := newProjector(cmd)
			if err != nil {
				return err
			}
			batch, err := p.ProjectMany(ids, years)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				out := map[string]any{
					"source":      source,
					"years":       years,
					"missing_ids": batch.Missing,
				}
				if detailed {
					out["projections"] = batch.Projections
				} else {
					out["summaries"] = batch.Summaries()
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Source: %s\n\n", source)
			fmt.Fprintf(w, "%-6s %14s %14s %8s %-13s %s\n", "ID", "Current", "Realistic", "CAGR", "Median", "Recommendation")
			for _, s := range batch.Summaries() {
				fmt.Fprintf(w, "%-6d %14.2f %14.2f %7.2f%% %-13s %s\n",
					s.EmployeeID, s.CurrentSalary, s.RealisticSalary, s.RealisticCAGR*100, s.MedianStatus, s.KeyRecommendation)
			}
			if len(batch.Missing) > 0 {
				fmt.Fprintf(w, "\nNot found: %v\n", batch.Missing)
			}
			return nil
		},
	}

	addProjectionFlags(cmd)
	cmd.Flags().IntSlice("ids", nil, "Employee ids to project, comma separated (required)")
	cmd.Flags().Bool("detailed", false, "Include full projections in JSON output")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}

func newForecastMediansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medians",
		Short: "Project level medians forward at market inflation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			years := cfg.Forecast.Years
			if cmd.Flags().Changed("years") {
				years, _ = cmd.Flags().GetInt("years")
			}
			inflation := cfg.Forecast.MarketInflationRate
			if cmd.Flags().Changed("inflation") {
				inflation, _ = cmd.Flags().GetFloat64("inflation")
			}
			if years < 0 || years > forecast.MaxYears {
				return fmt.Errorf("--years must be between 0 and %d, got %d", forecast.MaxYears, years)
			}
			if !(inflation > -1 && inflation < 1) {
				return fmt.Errorf("--inflation must be between -1 and 1 exclusive, got %v", inflation)
			}

			pop, source, err := loadPopulation(cmd, cfg, logger)
			if err != nil {
				return err
			}
			levels, err := forecast.MedianProgression(pop, years, inflation)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"source":    source,
					"inflation": inflation,
					"levels":    levels,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Source: %s\n", source)
			fmt.Fprintf(w, "Growth: %.2f%% a year (inflation %.2f%% + %.2f%%)\n\n",
				(inflation+forecast.MedianGrowthPremium)*100, inflation*100, forecast.MedianGrowthPremium*100)
			fmt.Fprintf(w, "%-6s %14s %14s\n", "Level", "Now", fmt.Sprintf("Year %d", years))
			for _, l := range levels {
				fmt.Fprintf(w, "%-6d %14.2f %14.2f\n", l.Level, l.Medians[0], l.Medians[len(l.Medians)-1])
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Int("years", forecast.DefaultYears, "Years to project (default from config)")
	cmd.Flags().Float64("inflation", forecast.DefaultMarketInflationRate, "Annual market inflation (default from config)")

	return cmd
}

// writeCalculation prints one growth calculation result.
func writeCalculation(cmd *cobra.Command, name string, inputs map[string]float64, result float64, text string) error {
	if jsonOutput(cmd) {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"calculation": name,
			"inputs":      inputs,
			"result":      result,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func newForecastCAGRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cagr",
		Short: "Compound annual growth rate between two salaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetFloat64("start")
			end, _ := cmd.Flags().GetFloat64("end")
			years, _ := cmd.Flags().GetFloat64("years")
			rate, err := forecast.CAGR(start, end, years)
			if err != nil {
				return err
			}
			return writeCalculation(cmd, "cagr",
				map[string]float64{"start": start, "end": end, "years": years}, rate,
				fmt.Sprintf("CAGR: %.4f%%", rate*100))
		},
	}
	cmd.Flags().Float64("start", 0, "Starting salary")
	cmd.Flags().Float64("end", 0, "Ending salary")
	cmd.Flags().Float64("years", 0, "Years between them")
	return cmd
}

func newForecastCompoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compound",
		Short: "Grow a salary at a fixed annual rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, _ := cmd.Flags().GetFloat64("initial")
			rate, _ := cmd.Flags().GetFloat64("rate")
			years, _ := cmd.Flags().GetFloat64("years")
			value, err := forecast.CompoundGrowth(initial, rate, years)
			if err != nil {
				return err
			}
			return writeCalculation(cmd, "compound_growth",
				map[string]float64{"initial": initial, "rate": rate, "years": years}, value,
				fmt.Sprintf("Projected salary: %.2f", value))
		},
	}
	cmd.Flags().Float64("initial", 0, "Current salary")
	cmd.Flags().Float64("rate", 0, "Annual growth rate as a fraction")
	cmd.Flags().Float64("years", 0, "Years to grow")
	return cmd
}

func newForecastTimeToTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time-to-target",
		Short: "Years for a salary to reach a target at a fixed annual rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, _ := cmd.Flags().GetFloat64("current")
			target, _ := cmd.Flags().GetFloat64("target")
			rate, _ := cmd.Flags().GetFloat64("rate")
			years, err := forecast.TimeToTarget(current, target, rate)
			if err != nil {
				return err
			}
			return writeCalculation(cmd, "time_to_target",
				map[string]float64{"current": current, "target": target, "rate": rate}, years,
				fmt.Sprintf("Years to target: %.2f", years))
		},
	}
	cmd.Flags().Float64("current", 0, "Current salary")
	cmd.Flags().Float64("target", 0, "Target salary")
	cmd.Flags().Float64("rate", 0, "Annual growth rate as a fraction")
	return cmd
}
