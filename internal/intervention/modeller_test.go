package intervention

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/paysim/internal/models"
)

// fixture has a 6000/44000 overall gap and three females below their male
// level median, with gaps of 6000, 4000 and 3000. Payroll is 275000.
func fixture() models.Population {
	e := func(id, level int, salary float64, g models.Gender) models.Employee {
		return models.Employee{EmployeeID: id, Level: level, Salary: salary, Gender: g, PerformanceRating: models.RatingAchieving}
	}
	return models.Population{
		e(1, 1, 40000, models.GenderMale),
		e(2, 1, 44000, models.GenderMale),
		e(3, 1, 36000, models.GenderFemale),
		e(4, 1, 38000, models.GenderFemale),
		e(5, 2, 60000, models.GenderMale),
		e(6, 2, 57000, models.GenderFemale),
	}
}

func newModeller(t *testing.T, pop models.Population) *Modeller {
	t.Helper()
	m, err := NewModeller(pop, Options{})
	require.NoError(t, err)
	return m
}

func defaultParams() Params {
	return Params{TargetGapPercent: 0, MaxYears: 5, BudgetConstraint: 0.05}
}

func strategyByName(t *testing.T, r *Remediation, name StrategyName) Strategy {
	t.Helper()
	for _, s := range r.Strategies {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("strategy %s not modelled", name)
	return Strategy{}
}

func TestNewModeller_Errors(t *testing.T) {
	_, err := NewModeller(nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyPopulation)

	pop := fixture()
	pop[0].Salary = 0
	_, err = NewModeller(pop, Options{})
	var mfe *models.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "salary", mfe.Field)
}

func TestBaseline(t *testing.T) {
	b := newModeller(t, fixture()).Baseline()

	assert.Equal(t, 6, b.TotalEmployees)
	assert.Equal(t, 3, b.MaleEmployees)
	assert.Equal(t, 3, b.FemaleEmployees)
	assert.True(t, b.TotalPayroll.Equal(decimal.NewFromInt(275000)))
	assert.Equal(t, 44000.0, b.MaleMedianSalary)
	assert.Equal(t, 38000.0, b.FemaleMedianSalary)
	assert.Equal(t, 6000.0, b.GenderPayGapAmount)
	assert.InDelta(t, 6000.0/44000*100, b.GenderPayGapPercent, 1e-9)
}

func TestBaseline_SingleGender(t *testing.T) {
	pop := fixture()
	for i := range pop {
		pop[i].Gender = models.GenderMale
	}
	b := newModeller(t, pop).Baseline()
	assert.Zero(t, b.GenderPayGapPercent)
	assert.Equal(t, b.OverallMedianSalary, b.MaleMedianSalary)
	assert.Equal(t, b.OverallMedianSalary, b.FemaleMedianSalary)
}

func TestUnderpaid_SortedByGap(t *testing.T) {
	underpaid := newModeller(t, fixture()).Underpaid()
	require.Len(t, underpaid, 3)

	var ids []int
	for _, u := range underpaid {
		ids = append(ids, u.EmployeeID)
	}
	assert.Equal(t, []int{3, 4, 6}, ids)
	assert.Equal(t, 42000.0, underpaid[0].MaleLevelMedian)
	assert.Equal(t, 6000.0, underpaid[0].GapAmount)
	assert.InDelta(t, 5.0, underpaid[2].GapPercent, 1e-9)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", defaultParams(), false},
		{"negative target", Params{TargetGapPercent: -1, MaxYears: 5, BudgetConstraint: 0.005}, true},
		{"zero years", Params{MaxYears: 0, BudgetConstraint: 0.005}, true},
		{"zero budget", Params{MaxYears: 5, BudgetConstraint: 0}, true},
		{"budget above payroll", Params{MaxYears: 5, BudgetConstraint: 1.5}, true},
		{"NaN target", Params{TargetGapPercent: math.NaN(), MaxYears: 5, BudgetConstraint: 0.005}, true},
		{"NaN budget", Params{MaxYears: 5, BudgetConstraint: math.NaN()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestModelRemediation(t *testing.T) {
	m := newModeller(t, fixture())
	r, err := m.ModelRemediation(defaultParams())
	require.NoError(t, err)

	assert.Equal(t, 3, r.CurrentState.AffectedFemaleEmployees)
	assert.Equal(t, "13750.00", r.TargetState.BudgetConstraintAmount.StringFixed(2))
	require.Len(t, r.Strategies, 5)

	immediate := strategyByName(t, r, StrategyImmediateAdjustment)
	assert.Equal(t, "13000.00", immediate.TotalCost.StringFixed(2))
	assert.Equal(t, GradeHigh, immediate.Feasibility)
	assert.InDelta(t, 0, immediate.ProjectedFinalGap, 1e-9)
	assert.InDelta(t, 13000.0/13750, immediate.BudgetUtilization, 1e-9)
	assert.Equal(t, "4333.33", immediate.AverageAdjustment.StringFixed(2))

	gradual := strategyByName(t, r, StrategyGradual3Year)
	assert.Equal(t, "13000.00", gradual.TotalCost.StringFixed(2))
	assert.Equal(t, "4333.33", gradual.AnnualCost.StringFixed(2))
	assert.InDelta(t, immediate.GapReductionPercent, gradual.GapReductionPercent, 1e-9)

	natural := strategyByName(t, r, StrategyNaturalConvergence)
	assert.Equal(t, 5.0, natural.TimelineYears)
	assert.InDelta(t, 2.5, natural.GapReductionPercent, 1e-9)
	assert.True(t, natural.TotalCost.IsZero())

	targeted := strategyByName(t, r, StrategyTargetedIntervention)
	assert.Equal(t, 1, targeted.AffectedEmployees)
	assert.Equal(t, "4500.00", targeted.TotalCost.StringFixed(2))
	assert.InDelta(t, 6000.0/44000*100*(6000.0/13000)*0.75, targeted.GapReductionPercent, 1e-9)

	assert.Equal(t, []StrategyName{
		StrategyImmediateAdjustment,
		StrategyGradual3Year,
		StrategyGradual5Year,
		StrategyNaturalConvergence,
		StrategyTargetedIntervention,
	}, r.Ranking)
	for i := 1; i < len(r.Evaluations); i++ {
		assert.GreaterOrEqual(t, r.Evaluations[i-1].Scores.Overall, r.Evaluations[i].Scores.Overall)
	}

	rec := r.Recommended
	assert.Equal(t, StrategyImmediateAdjustment, rec.Strategy.Name)
	assert.InDelta(t, 0.7886, rec.Scores.Overall, 1e-3)
	assert.Equal(t, GradeMedium, rec.Confidence)
	assert.Len(t, r.Plan, 3)

	assert.Equal(t, "27500.00", r.ROI.AnnualBenefits.StringFixed(2))
	assert.Equal(t, "20625.00", r.ROI.RetentionBenefit.StringFixed(2))
	assert.Equal(t, "6500.00", r.ROI.LegalRiskReductionValue.StringFixed(2))
	require.NotNil(t, r.ROI.PaybackYears)
	assert.InDelta(t, 13000.0/27500, *r.ROI.PaybackYears, 1e-6)
	assert.InDelta(t, (82500.0-13000)/13000, r.ROI.ROI3Year, 1e-6)

	assert.Equal(t, []string{RiskHighBudgetUtilization, RiskLargeEmployeeImpact, RiskAggressiveTimeline}, r.RiskAssessment.Factors)
	assert.Equal(t, GradeHigh, r.RiskAssessment.Level)
	assert.Len(t, r.RiskAssessment.Mitigations, 3)
}

func TestModelRemediation_BudgetCapped(t *testing.T) {
	m := newModeller(t, fixture())
	r, err := m.ModelRemediation(Params{MaxYears: 5, BudgetConstraint: 0.01})
	require.NoError(t, err)

	immediate := strategyByName(t, r, StrategyImmediateAdjustment)
	assert.Equal(t, "2750.00", immediate.TotalCost.StringFixed(2))
	assert.Equal(t, GradeMedium, immediate.Feasibility)
	assert.InDelta(t, 1.0, immediate.BudgetUtilization, 1e-9)
	gap := m.Baseline().GenderPayGapPercent
	assert.InDelta(t, gap*2750/13000, immediate.GapReductionPercent, 1e-9)

	targeted := strategyByName(t, r, StrategyTargetedIntervention)
	assert.Equal(t, "2750.00", targeted.TotalCost.StringFixed(2))
}

func TestModelRemediation_PartialTarget(t *testing.T) {
	m := newModeller(t, fixture())
	gap := m.Baseline().GenderPayGapPercent
	r, err := m.ModelRemediation(Params{TargetGapPercent: gap / 2, MaxYears: 5, BudgetConstraint: 0.05})
	require.NoError(t, err)

	immediate := strategyByName(t, r, StrategyImmediateAdjustment)
	assert.Equal(t, "6500.00", immediate.TotalCost.StringFixed(2))
	assert.InDelta(t, gap/2, immediate.ProjectedFinalGap, 1e-9)
}

func TestModelRemediation_NoGap(t *testing.T) {
	pop := fixture()
	for i := range pop {
		pop[i].Gender = models.GenderMale
	}
	r, err := newModeller(t, pop).ModelRemediation(defaultParams())
	require.NoError(t, err)

	for _, s := range r.Strategies {
		if s.Name == StrategyNaturalConvergence {
			assert.True(t, s.Applicable)
			continue
		}
		assert.False(t, s.Applicable, s.Name)
		assert.NotEmpty(t, s.Reason)
	}
	assert.Equal(t, []StrategyName{StrategyNaturalConvergence}, r.Ranking)
	assert.Equal(t, StrategyNaturalConvergence, r.Recommended.Strategy.Name)
	assert.InDelta(t, 0.98, r.Recommended.Scores.Overall, 1e-9)
	assert.Equal(t, GradeHigh, r.Recommended.Confidence)
	assert.Nil(t, r.ROI.PaybackYears)
	assert.Empty(t, r.RiskAssessment.Factors)
	assert.Equal(t, GradeLow, r.RiskAssessment.Level)
	assert.Len(t, r.Plan, 2)
}

func TestModelRemediation_InvalidParams(t *testing.T) {
	_, err := newModeller(t, fixture()).ModelRemediation(Params{MaxYears: 5})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestImplementationPlan_Gradual(t *testing.T) {
	plan := implementationPlan(Strategy{Name: StrategyGradual5Year, TimelineYears: 5})
	require.Len(t, plan, 5)
	assert.Equal(t, 60, plan[4].TimelineMonths)
	assert.Equal(t, "Year 1: Implement 20% of salary adjustments", plan[0].Activity)
}

func TestStrategyName_Title(t *testing.T) {
	assert.Equal(t, "Gradual 3 Year", StrategyGradual3Year.Title())
	assert.Equal(t, "Natural Convergence", StrategyNaturalConvergence.Title())
}
