// Package intervention models strategies for closing the gender pay gap of
// a population under a payroll budget.
package intervention

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/stats"
)

var (
	// ErrEmptyPopulation is returned when a modeller is built over no employees.
	ErrEmptyPopulation = errors.New("population is empty")

	// ErrInvalidParams is wrapped by errors caused by bad remediation parameters.
	ErrInvalidParams = errors.New("invalid remediation parameters")
)

// Baseline describes the population before any intervention. When either
// gender is absent both medians equal the overall median and the gap is 0.
type Baseline struct {
	TotalEmployees      int             `json:"total_employees"`
	MaleEmployees       int             `json:"male_employees"`
	FemaleEmployees     int             `json:"female_employees"`
	TotalPayroll        decimal.Decimal `json:"total_payroll"`
	OverallMedianSalary float64         `json:"overall_median_salary"`
	MaleMedianSalary    float64         `json:"male_median_salary"`
	FemaleMedianSalary  float64         `json:"female_median_salary"`
	GenderPayGapPercent float64         `json:"gender_pay_gap_percent"`
	GenderPayGapAmount  float64         `json:"gender_pay_gap_amount"`
}

// UnderpaidEmployee is a female employee paid below the male median of her
// level.
type UnderpaidEmployee struct {
	EmployeeID        int           `json:"employee_id"`
	Level             int           `json:"level"`
	CurrentSalary     float64       `json:"current_salary"`
	MaleLevelMedian   float64       `json:"male_level_median"`
	GapAmount         float64       `json:"gap_amount"`
	GapPercent        float64       `json:"gap_percent"`
	PerformanceRating models.Rating `json:"performance_rating"`
}

// Options configures a Modeller.
type Options struct {
	Logger *slog.Logger
}

// Modeller evaluates remediation strategies for a fixed population.
type Modeller struct {
	baseline  Baseline
	underpaid []UnderpaidEmployee
	logger    *slog.Logger
}

// NewModeller validates pop and computes its baseline and underpaid females.
func NewModeller(pop models.Population, opts Options) (*Modeller, error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	if err := pop.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Modeller{
		baseline:  baselineMetrics(pop),
		underpaid: underpaidFemales(pop, logger),
		logger:    logger,
	}
	logger.Info("initialized remediation modeller",
		"employees", m.baseline.TotalEmployees,
		"gender_pay_gap_percent", m.baseline.GenderPayGapPercent,
		"total_payroll", m.baseline.TotalPayroll.StringFixed(0))
	return m, nil
}

// Baseline returns the pre-intervention metrics.
func (m *Modeller) Baseline() Baseline { return m.baseline }

// Underpaid returns the underpaid female employees, largest gap first.
func (m *Modeller) Underpaid() []UnderpaidEmployee { return slices.Clone(m.underpaid) }

func baselineMetrics(pop models.Population) Baseline {
	salaries := pop.Salaries()
	male, female := pop.SalariesByGender()

	payroll := decimal.Zero
	for _, s := range salaries {
		payroll = payroll.Add(decimal.NewFromFloat(s))
	}

	b := Baseline{
		TotalEmployees:      len(pop),
		MaleEmployees:       len(male),
		FemaleEmployees:     len(female),
		TotalPayroll:        payroll,
		OverallMedianSalary: stats.Median(salaries),
	}
	if len(male) == 0 || len(female) == 0 {
		b.MaleMedianSalary = b.OverallMedianSalary
		b.FemaleMedianSalary = b.OverallMedianSalary
		return b
	}
	b.MaleMedianSalary = stats.Median(male)
	b.FemaleMedianSalary = stats.Median(female)
	b.GenderPayGapAmount = b.MaleMedianSalary - b.FemaleMedianSalary
	b.GenderPayGapPercent = b.GenderPayGapAmount / b.MaleMedianSalary * 100
	return b
}

func underpaidFemales(pop models.Population, logger *slog.Logger) []UnderpaidEmployee {
	byLevel := pop.ByLevel()
	levels := make([]int, 0, len(byLevel))
	for level := range byLevel {
		levels = append(levels, level)
	}
	slices.Sort(levels)

	var out []UnderpaidEmployee
	for _, level := range levels {
		members := byLevel[level]
		male, female := members.SalariesByGender()
		if len(male) == 0 || len(female) == 0 {
			logger.Debug("skipping level without both genders", "level", level,
				"males", len(male), "females", len(female))
			continue
		}
		maleMedian := stats.Median(male)
		for _, e := range members {
			if e.Gender != models.GenderFemale || e.Salary >= maleMedian {
				continue
			}
			gap := maleMedian - e.Salary
			out = append(out, UnderpaidEmployee{
				EmployeeID:        e.EmployeeID,
				Level:             level,
				CurrentSalary:     e.Salary,
				MaleLevelMedian:   maleMedian,
				GapAmount:         gap,
				GapPercent:        gap / maleMedian * 100,
				PerformanceRating: e.PerformanceRating,
			})
		}
	}

	slices.SortStableFunc(out, func(a, b UnderpaidEmployee) int {
		return cmp.Compare(b.GapAmount, a.GapAmount)
	})
	if len(out) > 0 {
		logger.Debug("identified underpaid female employees",
			"count", len(out), "largest_gap", out[0].GapAmount, "largest_gap_percent", out[0].GapPercent)
	}
	return out
}

// Params bounds a remediation model.
type Params struct {
	// TargetGapPercent is the gap to reach; 0 means full parity.
	TargetGapPercent float64 `json:"target_gap_percent"`

	// MaxYears caps the natural convergence timeline.
	MaxYears int `json:"max_years"`

	// BudgetConstraint is the largest fraction of payroll any strategy may spend.
	BudgetConstraint float64 `json:"budget_constraint"`
}

// Validate reports parameter values the model cannot use.
func (p Params) Validate() error {
	switch {
	case !(p.TargetGapPercent >= 0):
		return fmt.Errorf("%w: target gap must be non-negative, got %v", ErrInvalidParams, p.TargetGapPercent)
	case p.MaxYears < 1:
		return fmt.Errorf("%w: max years must be at least 1, got %d", ErrInvalidParams, p.MaxYears)
	case !(p.BudgetConstraint > 0 && p.BudgetConstraint <= 1):
		return fmt.Errorf("%w: budget constraint must be in (0, 1], got %v", ErrInvalidParams, p.BudgetConstraint)
	}
	return nil
}

// CurrentState summarises the population the model starts from.
type CurrentState struct {
	GenderPayGapPercent     float64         `json:"gender_pay_gap_percent"`
	MaleMedianSalary        float64         `json:"male_median_salary"`
	FemaleMedianSalary      float64         `json:"female_median_salary"`
	AffectedFemaleEmployees int             `json:"affected_female_employees"`
	TotalPayroll            decimal.Decimal `json:"total_payroll"`
}

// TargetState restates the model parameters with the budget in currency.
type TargetState struct {
	TargetGapPercent        float64         `json:"target_gap_percent"`
	MaxTimelineYears        int             `json:"max_timeline_years"`
	BudgetConstraintPercent float64         `json:"budget_constraint_percent"`
	BudgetConstraintAmount  decimal.Decimal `json:"budget_constraint_amount"`
}

// Remediation is the full result of ModelRemediation.
type Remediation struct {
	CurrentState   CurrentState   `json:"current_state"`
	TargetState    TargetState    `json:"target_state"`
	Strategies     []Strategy     `json:"available_strategies"`
	Evaluations    []Evaluation   `json:"strategy_evaluation"`
	Ranking        []StrategyName `json:"ranking"`
	Recommended    Recommendation `json:"recommended_strategy"`
	Plan           []PlanPhase    `json:"implementation_plan"`
	ROI            ROIAnalysis    `json:"roi_analysis"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
}

// ModelRemediation models every strategy under p, ranks the applicable ones
// and details the winner.
func (m *Modeller) ModelRemediation(p Params) (*Remediation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	budgetLimit := m.baseline.TotalPayroll.Mul(decimal.NewFromFloat(p.BudgetConstraint))
	m.logger.Info("modelling gender gap remediation",
		"current_gap_percent", m.baseline.GenderPayGapPercent,
		"target_gap_percent", p.TargetGapPercent,
		"budget_limit", budgetLimit.StringFixed(0))

	strategies := []Strategy{
		m.immediateAdjustment(p.TargetGapPercent, budgetLimit),
		m.gradual(p.TargetGapPercent, 3, budgetLimit),
		m.gradual(p.TargetGapPercent, 5, budgetLimit),
		m.naturalConvergence(p.TargetGapPercent, p.MaxYears),
		m.targetedIntervention(budgetLimit),
	}
	evaluations := m.evaluate(strategies, p.BudgetConstraint)
	ranking := make([]StrategyName, len(evaluations))
	for i, ev := range evaluations {
		ranking[i] = ev.Strategy.Name
	}
	rec := recommend(evaluations)

	r := &Remediation{
		CurrentState: CurrentState{
			GenderPayGapPercent:     m.baseline.GenderPayGapPercent,
			MaleMedianSalary:        m.baseline.MaleMedianSalary,
			FemaleMedianSalary:      m.baseline.FemaleMedianSalary,
			AffectedFemaleEmployees: len(m.underpaid),
			TotalPayroll:            m.baseline.TotalPayroll,
		},
		TargetState: TargetState{
			TargetGapPercent:        p.TargetGapPercent,
			MaxTimelineYears:        p.MaxYears,
			BudgetConstraintPercent: p.BudgetConstraint,
			BudgetConstraintAmount:  budgetLimit.Round(2),
		},
		Strategies:     strategies,
		Evaluations:    evaluations,
		Ranking:        ranking,
		Recommended:    rec,
		Plan:           implementationPlan(rec.Strategy),
		ROI:            m.roi(rec.Strategy),
		RiskAssessment: m.assessRisks(rec.Strategy),
	}

	m.logger.Info("recommended remediation strategy",
		"strategy", rec.Strategy.Name,
		"score", rec.Scores.Overall,
		"cost", rec.Strategy.TotalCost.StringFixed(0),
		"timeline_years", rec.Strategy.TimelineYears)
	return r, nil
}
