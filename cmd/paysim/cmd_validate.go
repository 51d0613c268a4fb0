package main

import (
	"fmt"

	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/nvandessel/paysim/internal/review"
	"github.com/nvandessel/paysim/internal/simulation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Self-check uplift, inequality and forecast calculations",
		Long: `Cross-check the uplift table for every rating and level against
independently computed expectations at a standard salary, run the Gini
coefficient sanity checks, and recompute reference growth figures.

Exits non-zero if any check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			verbose, _ := cmd.Flags().GetBool("verbose")

			cases, upliftOK := review.ValidateUpliftCalculations(logger)
			checks, inequalityOK := simulation.ValidateInequalityCalculations(logger)
			growth, forecastOK := forecast.ValidateCalculations(logger)

			if jsonOutput(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{
					"uplift_cases":      cases,
					"uplift_passed":     upliftOK,
					"inequality_checks": checks,
					"inequality_passed": inequalityOK,
					"forecast_checks":   growth,
					"forecast_passed":   forecastOK,
					"passed":            upliftOK && inequalityOK && forecastOK,
				}); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				failed := 0
				for _, c := range cases {
					if !c.Passed {
						failed++
					}
					if verbose || !c.Passed {
						status := "PASS"
						if !c.Passed {
							status = "FAIL"
						}
						fmt.Fprintf(w, "  [%s] %-20s level %d: expected %.2f, got %.2f\n",
							status, c.Rating, c.Level, c.ExpectedNewSalary, c.ActualNewSalary)
					}
				}
				fmt.Fprintf(w, "Uplift calculations: %d/%d passed (base salary %.0f)\n",
					len(cases)-failed, len(cases), review.ValidationSalary)

				fmt.Fprintln(w, "Inequality checks:")
				for _, c := range checks {
					status := "PASS"
					if !c.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(w, "  [%s] %-32s %.4f\n", status, c.Name, c.Value)
				}

				fmt.Fprintln(w, "Forecast checks:")
				for _, c := range growth {
					status := "PASS"
					if !c.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(w, "  [%s] %-32s expected %.4f, got %.4f\n", status, c.Name, c.Expected, c.Actual)
				}
			}

			if !upliftOK || !inequalityOK || !forecastOK {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show every uplift case, not only failures")

	return cmd
}
