package review

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
)

// ValidationSalary is the reference salary used by ValidateUpliftCalculations.
const ValidationSalary = 85000.0

// validationTolerance is one penny, and 0.01 percentage points for uplifts.
var validationTolerance = decimal.RequireFromString("0.01")

// ValidationCase is one (rating, level) cross-check.
type ValidationCase struct {
	Rating              models.Rating `json:"performance"`
	Level               int           `json:"level"`
	BaseSalary          float64       `json:"base_salary"`
	ExpectedTotalUplift float64       `json:"expected_total_uplift"`
	ActualTotalUplift   float64       `json:"actual_total_uplift"`
	ExpectedNewSalary   float64       `json:"expected_new_salary"`
	ActualNewSalary     float64       `json:"actual_new_salary"`
	Passed              bool          `json:"passed"`
}

// ValidateUpliftCalculations recomputes every rating and level combination
// independently in decimal arithmetic and compares it with
// CalculateSalaryUplift. It returns the per-case results and whether all passed.
func ValidateUpliftCalculations(logger *slog.Logger) ([]ValidationCase, bool) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var cases []ValidationCase
	allPassed := true
	hundred := decimal.NewFromInt(100)
	base := decimal.NewFromFloat(ValidationSalary)

	for _, rating := range models.Ratings {
		for level := models.MinLevel; level <= models.MaxLevel; level++ {
			emp := models.Employee{Level: level, Salary: ValidationSalary, PerformanceRating: rating}
			got, err := CalculateSalaryUplift(emp)
			if err != nil {
				logger.Error("uplift calculation failed", "rating", rating, "level", level, "error", err)
				allPassed = false
				cases = append(cases, ValidationCase{Rating: rating, Level: level, BaseSalary: ValidationSalary})
				continue
			}

			comp := constants.UpliftTable[rating]
			tier := constants.LevelTiers[level]
			expBaseline := decimal.NewFromFloat(comp.Baseline).Mul(hundred)
			expPerformance := decimal.NewFromFloat(comp.Performance).Mul(hundred)
			expCareer := decimal.NewFromFloat(comp.Career(tier)).Mul(hundred)
			expTotal := expBaseline.Add(expPerformance).Add(expCareer)
			expSalary := base.Mul(decimal.NewFromInt(1).Add(expTotal.Div(hundred)))

			passed := within(got.BaselineUplift, expBaseline) &&
				within(got.PerformanceUplift, expPerformance) &&
				within(got.CareerUplift, expCareer) &&
				within(got.UpliftPercentage, expTotal) &&
				within(got.NewSalary, expSalary)

			c := ValidationCase{
				Rating:              rating,
				Level:               level,
				BaseSalary:          ValidationSalary,
				ExpectedTotalUplift: expTotal.InexactFloat64(),
				ActualTotalUplift:   got.UpliftPercentage,
				ExpectedNewSalary:   expSalary.InexactFloat64(),
				ActualNewSalary:     got.NewSalary,
				Passed:              passed,
			}
			cases = append(cases, c)

			if !passed {
				allPassed = false
				logger.Error("uplift validation failed",
					"rating", rating, "level", level,
					"expected_uplift", c.ExpectedTotalUplift, "actual_uplift", c.ActualTotalUplift,
					"expected_salary", c.ExpectedNewSalary, "actual_salary", c.ActualNewSalary)
			}
		}
	}

	if allPassed {
		logger.Info("all uplift calculations validated", "cases", len(cases))
	}
	return cases, allPassed
}

func within(actual float64, expected decimal.Decimal) bool {
	return decimal.NewFromFloat(actual).Sub(expected).Abs().LessThan(validationTolerance)
}
