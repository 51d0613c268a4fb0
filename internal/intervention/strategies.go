package intervention

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StrategyName identifies a remediation strategy.
type StrategyName string

const (
	StrategyImmediateAdjustment  StrategyName = "immediate_adjustment"
	StrategyGradual3Year         StrategyName = "gradual_3_year"
	StrategyGradual5Year         StrategyName = "gradual_5_year"
	StrategyNaturalConvergence   StrategyName = "natural_convergence"
	StrategyTargetedIntervention StrategyName = "targeted_intervention"

	// StrategyNone is recommended when no strategy is applicable.
	StrategyNone StrategyName = "no_viable_strategy"
)

// Title returns the name formatted for reports, e.g. "Gradual 3 Year".
func (n StrategyName) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(n), "_", " "))
}

// Grade is a coarse none/low/medium/high rating of a strategy property.
type Grade string

const (
	GradeNone   Grade = "none"
	GradeLow    Grade = "low"
	GradeMedium Grade = "medium"
	GradeHigh   Grade = "high"
)

const (
	// NaturalGapReductionPerYear is the gap, in percentage points, that closes
	// each year without intervention.
	NaturalGapReductionPerYear = 0.5

	// TargetedClosureFraction is the share of each targeted gap that is closed.
	TargetedClosureFraction = 0.75

	// ImmediateTimelineYears is the time to roll out an immediate adjustment.
	ImmediateTimelineYears = 0.25
)

// Strategy is one modelled remediation strategy. Inapplicable strategies
// carry only Name, Applicable and Reason.
type Strategy struct {
	Name                StrategyName    `json:"strategy_name"`
	Applicable          bool            `json:"applicable"`
	Reason              string          `json:"reason,omitempty"`
	TimelineYears       float64         `json:"timeline_years"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	AnnualCost          decimal.Decimal `json:"annual_cost"`
	CostPercentPayroll  float64         `json:"cost_as_percent_payroll"`
	AffectedEmployees   int             `json:"affected_employees"`
	AverageAdjustment   decimal.Decimal `json:"average_adjustment"`
	ProjectedFinalGap   float64         `json:"projected_final_gap"`
	GapReductionPercent float64         `json:"gap_reduction_percent"`
	BudgetUtilization   float64         `json:"budget_utilization"`
	Feasibility         Grade           `json:"feasibility"`
	Complexity          Grade           `json:"implementation_complexity"`
	LegalRiskReduction  Grade           `json:"legal_risk_reduction"`
	Description         string          `json:"description"`
}

func notApplicable(name StrategyName) Strategy {
	return Strategy{Name: name, Reason: "no underpaid female employees identified"}
}

func (m *Modeller) percentOfPayroll(cost decimal.Decimal) float64 {
	if !m.baseline.TotalPayroll.IsPositive() {
		return 0
	}
	return cost.Div(m.baseline.TotalPayroll).InexactFloat64()
}

func utilization(cost, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}
	return cost.Div(limit).InexactFloat64()
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// immediateAdjustment raises every underpaid female toward the male level
// median, scaled to the target gap and capped at the budget.
func (m *Modeller) immediateAdjustment(target float64, budgetLimit decimal.Decimal) Strategy {
	if len(m.underpaid) == 0 {
		return notApplicable(StrategyImmediateAdjustment)
	}
	gap := m.baseline.GenderPayGapPercent

	needed := decimal.Zero
	for _, e := range m.underpaid {
		needed = needed.Add(decimal.NewFromFloat(e.GapAmount))
	}
	factor := 0.0
	if gap > 0 {
		factor = max(0, (gap-target)/gap)
	}
	cost := needed.Mul(decimal.NewFromFloat(factor))

	feasibility := GradeHigh
	reduction := gap * factor
	if cost.GreaterThan(budgetLimit) {
		scale := budgetLimit.Div(cost).InexactFloat64()
		cost = budgetLimit
		reduction *= scale
		feasibility = GradeMedium
	}

	return Strategy{
		Name:                StrategyImmediateAdjustment,
		Applicable:          true,
		TimelineYears:       ImmediateTimelineYears,
		TotalCost:           cost.Round(2),
		AnnualCost:          cost.Round(2),
		CostPercentPayroll:  m.percentOfPayroll(cost),
		AffectedEmployees:   len(m.underpaid),
		AverageAdjustment:   average(cost, len(m.underpaid)),
		ProjectedFinalGap:   gap - reduction,
		GapReductionPercent: reduction,
		BudgetUtilization:   utilization(cost, budgetLimit),
		Feasibility:         feasibility,
		Complexity:          GradeLow,
		LegalRiskReduction:  GradeHigh,
		Description:         "Immediate salary adjustments to reduce gender pay gap",
	}
}

// gradual spreads the immediate adjustment evenly over years, holding each
// year to its share of the budget.
func (m *Modeller) gradual(target float64, years int, budgetLimit decimal.Decimal) Strategy {
	name := StrategyName(fmt.Sprintf("gradual_%d_year", years))
	immediate := m.immediateAdjustment(target, budgetLimit)
	if !immediate.Applicable {
		return notApplicable(name)
	}

	n := decimal.NewFromInt(int64(years))
	total := immediate.TotalCost
	annual := total.Div(n)
	annualLimit := budgetLimit.Div(n)

	feasibility := GradeHigh
	scale := 1.0
	if annual.GreaterThan(annualLimit) {
		annual = annualLimit
		scaled := annualLimit.Mul(n)
		if total.IsPositive() {
			scale = scaled.Div(total).InexactFloat64()
		}
		total = scaled
		feasibility = GradeMedium
	}
	reduction := immediate.GapReductionPercent * scale

	return Strategy{
		Name:                name,
		Applicable:          true,
		TimelineYears:       float64(years),
		TotalCost:           total.Round(2),
		AnnualCost:          annual.Round(2),
		CostPercentPayroll:  m.percentOfPayroll(total),
		AffectedEmployees:   immediate.AffectedEmployees,
		AverageAdjustment:   average(total, immediate.AffectedEmployees),
		ProjectedFinalGap:   m.baseline.GenderPayGapPercent - reduction,
		GapReductionPercent: reduction,
		BudgetUtilization:   utilization(total, budgetLimit),
		Feasibility:         feasibility,
		Complexity:          GradeMedium,
		LegalRiskReduction:  GradeMedium,
		Description:         fmt.Sprintf("Gradual salary adjustments over %d years", years),
	}
}

// naturalConvergence spends nothing and lets the gap close at
// NaturalGapReductionPerYear, for at most maxYears.
func (m *Modeller) naturalConvergence(target float64, maxYears int) Strategy {
	gap := m.baseline.GenderPayGapPercent
	yearsToTarget := max(1, (gap-target)/NaturalGapReductionPerYear)
	timeline := min(yearsToTarget, float64(maxYears))
	closed := NaturalGapReductionPerYear * timeline

	return Strategy{
		Name:                StrategyNaturalConvergence,
		Applicable:          true,
		TimelineYears:       timeline,
		TotalCost:           decimal.Zero,
		AnnualCost:          decimal.Zero,
		AverageAdjustment:   decimal.Zero,
		ProjectedFinalGap:   max(target, gap-closed),
		GapReductionPercent: min(gap-target, closed),
		Feasibility:         GradeHigh,
		Complexity:          GradeNone,
		LegalRiskReduction:  GradeLow,
		Description:         "Allow natural market forces and progression to reduce gap",
	}
}

// targetedIntervention closes TargetedClosureFraction of the largest half of
// the underpaid gaps within one year.
func (m *Modeller) targetedIntervention(budgetLimit decimal.Decimal) Strategy {
	if len(m.underpaid) == 0 {
		return notApplicable(StrategyTargetedIntervention)
	}
	top := m.underpaid[:len(m.underpaid)/2]

	closure := decimal.NewFromFloat(TargetedClosureFraction)
	cost, represented, all := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range top {
		gap := decimal.NewFromFloat(e.GapAmount)
		cost = cost.Add(gap.Mul(closure))
		represented = represented.Add(gap)
	}
	for _, e := range m.underpaid {
		all = all.Add(decimal.NewFromFloat(e.GapAmount))
	}

	scale := 1.0
	if cost.GreaterThan(budgetLimit) {
		scale = budgetLimit.Div(cost).InexactFloat64()
		cost = budgetLimit
	}
	ratio := 0.0
	if all.IsPositive() {
		ratio = represented.Div(all).InexactFloat64()
	}
	reduction := m.baseline.GenderPayGapPercent * ratio * TargetedClosureFraction * scale

	return Strategy{
		Name:                StrategyTargetedIntervention,
		Applicable:          true,
		TimelineYears:       1,
		TotalCost:           cost.Round(2),
		AnnualCost:          cost.Round(2),
		CostPercentPayroll:  m.percentOfPayroll(cost),
		AffectedEmployees:   len(top),
		AverageAdjustment:   average(cost, len(top)),
		ProjectedFinalGap:   m.baseline.GenderPayGapPercent - reduction,
		GapReductionPercent: reduction,
		BudgetUtilization:   utilization(cost, budgetLimit),
		Feasibility:         GradeHigh,
		Complexity:          GradeMedium,
		LegalRiskReduction:  GradeHigh,
		Description:         "Target highest-impact salary adjustments for maximum gap reduction",
	}
}
