// Package review assigns annual performance ratings and applies the
// rating- and level-driven salary uplift to a population.
package review

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
	"github.com/nvandessel/paysim/internal/stats"
)

// UpliftResult is the outcome of one uplift calculation. Percentages are in
// percent units.
type UpliftResult struct {
	OldSalary         float64 `json:"old_salary"`
	NewSalary         float64 `json:"new_salary"`
	UpliftPercentage  float64 `json:"uplift_percentage"`
	BaselineUplift    float64 `json:"baseline_uplift"`
	PerformanceUplift float64 `json:"performance_uplift"`
	CareerUplift      float64 `json:"career_uplift"`
}

// CalculateSalaryUplift is a pure function of the employee's rating, level
// and salary. The three components are summed as decimals before being
// applied, so the result is reproducible bit for bit.
func CalculateSalaryUplift(e models.Employee) (UpliftResult, error) {
	if !models.ValidLevel(e.Level) {
		return UpliftResult{}, &models.MissingFieldError{EmployeeID: e.EmployeeID, Field: "level"}
	}
	if !e.PerformanceRating.Valid() {
		return UpliftResult{}, &models.MissingFieldError{EmployeeID: e.EmployeeID, Field: "performance_rating"}
	}
	comp, tier, err := constants.UpliftFor(e.PerformanceRating, e.Level)
	if err != nil {
		return UpliftResult{}, err
	}

	baseline := comp.Baseline
	performance := comp.Performance
	career := comp.Career(tier)
	total := baseline + performance + career

	return UpliftResult{
		OldSalary:         e.Salary,
		NewSalary:         e.Salary * (1 + total),
		UpliftPercentage:  total * 100,
		BaselineUplift:    baseline * 100,
		PerformanceUplift: performance * 100,
		CareerUplift:      career * 100,
	}, nil
}

// Engine draws ratings from level-category weight tables using a shared RNG.
type Engine struct {
	rng     *randutil.RNG
	weights constants.CategoryWeights
	logger  *slog.Logger
}

// NewEngine returns an Engine drawing from rng. A nil logger discards output.
func NewEngine(rng *randutil.RNG, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		rng:     rng,
		weights: constants.ReviewRatingWeights,
		logger:  logger,
	}
}

// DrawRating draws a fresh rating for an employee at level.
func (e *Engine) DrawRating(level int) models.Rating {
	return models.Ratings[e.rng.Choice(e.weights[models.CategoryForLevel(level)])]
}

// AssignPerformanceRatings overwrites every employee's rating with a fresh
// draw. Employees are visited in shuffled order.
func (e *Engine) AssignPerformanceRatings(pop models.Population) error {
	for i := range pop {
		if !models.ValidLevel(pop[i].Level) {
			return &models.MissingFieldError{EmployeeID: pop[i].EmployeeID, Field: "level"}
		}
	}

	order := e.rng.Perm(len(pop))
	for _, i := range order {
		pop[i].PerformanceRating = e.DrawRating(pop[i].Level)
	}

	e.logDistribution(pop)
	return nil
}

// ApplyAnnualReview assigns fresh ratings and then applies uplifts for reviewYear.
func (e *Engine) ApplyAnnualReview(pop models.Population, reviewYear int) ([]models.ReviewRecord, error) {
	e.logger.Info("applying annual performance review", "year", reviewYear, "employees", len(pop))
	if err := e.AssignPerformanceRatings(pop); err != nil {
		return nil, err
	}
	return e.ApplyUplifts(pop, reviewYear)
}

// ApplyUplifts applies the uplift for each employee's current rating, updates
// salaries in place and appends a review record to each history. The
// population is validated before anything is mutated.
func (e *Engine) ApplyUplifts(pop models.Population, reviewYear int) ([]models.ReviewRecord, error) {
	if err := pop.Validate(); err != nil {
		return nil, fmt.Errorf("review year %d: %w", reviewYear, err)
	}

	records := make([]models.ReviewRecord, 0, len(pop))
	uplifts := make([]float64, 0, len(pop))
	var totalOld, totalNew float64

	for i := range pop {
		emp := &pop[i]
		res, err := CalculateSalaryUplift(*emp)
		if err != nil {
			return nil, err
		}
		emp.Salary = res.NewSalary

		rec := models.ReviewRecord{
			EmployeeID:        emp.EmployeeID,
			ReviewYear:        reviewYear,
			PerformanceRating: emp.PerformanceRating,
			Level:             emp.Level,
			Gender:            emp.Gender,
			OldSalary:         res.OldSalary,
			NewSalary:         res.NewSalary,
			UpliftPercentage:  res.UpliftPercentage,
			BaselineUplift:    res.BaselineUplift,
			PerformanceUplift: res.PerformanceUplift,
			CareerUplift:      res.CareerUplift,
		}
		emp.ReviewHistory = append(emp.ReviewHistory, rec)
		records = append(records, rec)

		totalOld += res.OldSalary
		totalNew += res.NewSalary
		uplifts = append(uplifts, res.UpliftPercentage)
	}

	e.logger.Info("applied salary adjustments",
		"year", reviewYear,
		"count", len(records),
		"total_increase", totalNew-totalOld,
		"avg_uplift_percent", stats.Mean(uplifts),
		"median_uplift_percent", stats.Median(uplifts))

	return records, nil
}

func (e *Engine) logDistribution(pop models.Population) {
	counts := make(map[models.Rating]int)
	for _, emp := range pop {
		counts[emp.PerformanceRating]++
	}
	for _, r := range models.Ratings {
		e.logger.Debug("performance rating distribution", "rating", r, "count", counts[r], "total", len(pop))
	}
}
