package forecast

import (
	"log/slog"
	"math"

	"github.com/nvandessel/paysim/internal/models"
)

// Check is one cross-check of the growth arithmetic against a known value.
type Check struct {
	Name      string  `json:"name"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
}

// ValidateCalculations recomputes reference values for CAGR, compound
// growth, uplift and time to target. It returns the checks and whether all
// passed.
func ValidateCalculations(logger *slog.Logger) ([]Check, bool) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	run := func(name string, expected, tolerance float64, fn func() (float64, error)) Check {
		c := Check{Name: name, Expected: expected, Tolerance: tolerance}
		actual, err := fn()
		if err != nil {
			logger.Error("forecast calculation failed", "check", name, "error", err)
			return c
		}
		c.Actual = actual
		c.Passed = math.Abs(actual-expected) <= tolerance
		return c
	}

	checks := []Check{
		run("cagr", 0.04564, 0.001, func() (float64, error) {
			return CAGR(80000, 100000, 5)
		}),
		run("compound_growth", 92610, 1, func() (float64, error) {
			return CompoundGrowth(80000, 0.05, 3)
		}),
		run("uplift", 83400, 1, func() (float64, error) {
			return UpliftedSalary(80000, 5, models.RatingHighPerforming)
		}),
		run("time_to_target", 4.56, 0.1, func() (float64, error) {
			return TimeToTarget(80000, 100000, 0.05)
		}),
	}

	allPassed := true
	for _, c := range checks {
		if !c.Passed {
			allPassed = false
			logger.Error("forecast validation failed", "check", c.Name, "expected", c.Expected, "actual", c.Actual)
		}
	}
	if allPassed {
		logger.Info("all forecast calculations validated", "checks", len(checks))
	}
	return checks, allPassed
}
