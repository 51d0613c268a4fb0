package intervention

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Weights of the component scores in the overall score. Risk enters as
// 1 - risk so that safer strategies score higher.
const (
	EffectivenessWeight  = 0.30
	FeasibilityWeight    = 0.25
	RiskWeight           = 0.20
	CostEfficiencyWeight = 0.25
)

var (
	complexityFeasibility = map[Grade]float64{GradeNone: 1.0, GradeLow: 0.9, GradeMedium: 0.7, GradeHigh: 0.5}
	complexityRisk        = map[Grade]float64{GradeNone: 0.1, GradeLow: 0.2, GradeMedium: 0.5, GradeHigh: 0.8}
	legalRiskReduction    = map[Grade]float64{GradeLow: 0.8, GradeMedium: 0.5, GradeHigh: 0.2}
)

// Scores are the component scores of one strategy, each in [0, 1] except
// feasibility, which can exceed 1 for timelines shorter than a year.
type Scores struct {
	Overall        float64 `json:"overall_score"`
	Effectiveness  float64 `json:"effectiveness_score"`
	Feasibility    float64 `json:"feasibility_score"`
	Risk           float64 `json:"risk_score"`
	CostEfficiency float64 `json:"cost_efficiency_score"`
}

// Evaluation pairs a strategy with its scores.
type Evaluation struct {
	Strategy Strategy `json:"strategy_details"`
	Scores   Scores   `json:"scores"`
}

// evaluate scores the applicable strategies and returns them best first.
// Equal scores keep their modelling order.
func (m *Modeller) evaluate(strategies []Strategy, budgetConstraint float64) []Evaluation {
	var out []Evaluation
	for _, s := range strategies {
		if !s.Applicable {
			continue
		}
		sc := Scores{
			Effectiveness:  m.effectiveness(s),
			Feasibility:    feasibility(s, budgetConstraint),
			Risk:           risk(s),
			CostEfficiency: m.costEfficiency(s),
		}
		sc.Overall = sc.Effectiveness*EffectivenessWeight +
			sc.Feasibility*FeasibilityWeight +
			(1-sc.Risk)*RiskWeight +
			sc.CostEfficiency*CostEfficiencyWeight
		out = append(out, Evaluation{Strategy: s, Scores: sc})
	}
	slices.SortStableFunc(out, func(a, b Evaluation) int {
		return cmp.Compare(b.Scores.Overall, a.Scores.Overall)
	})
	return out
}

func (m *Modeller) effectiveness(s Strategy) float64 {
	gap := m.baseline.GenderPayGapPercent
	if gap == 0 {
		return 1
	}
	return min(1, s.GapReductionPercent/gap)
}

func feasibility(s Strategy, budgetConstraint float64) float64 {
	budget := 1.0
	if budgetConstraint > 0 {
		budget = max(0, 1-s.CostPercentPayroll/budgetConstraint)
	}
	timeline := max(0.2, 1-(s.TimelineYears-1)*0.1)
	complexity, ok := complexityFeasibility[s.Complexity]
	if !ok {
		complexity = complexityFeasibility[GradeMedium]
	}
	return (budget + timeline + complexity) / 3
}

func risk(s Strategy) float64 {
	legal, ok := legalRiskReduction[s.LegalRiskReduction]
	if !ok {
		legal = legalRiskReduction[GradeMedium]
	}
	implementation, ok := complexityRisk[s.Complexity]
	if !ok {
		implementation = complexityRisk[GradeMedium]
	}
	return (min(1, s.BudgetUtilization) + implementation + (1 - legal)) / 3
}

// costEfficiency normalises the cost per gap point against total payroll.
func (m *Modeller) costEfficiency(s Strategy) float64 {
	free := s.TotalCost.IsZero()
	switch {
	case s.GapReductionPercent == 0 && free:
		return 1
	case s.GapReductionPercent == 0:
		return 0
	case free:
		return 1
	}
	payroll := m.baseline.TotalPayroll.InexactFloat64()
	perPoint := s.TotalCost.InexactFloat64() / s.GapReductionPercent
	return max(0, 1-perPoint/payroll)
}

// Recommendation is the top ranked strategy.
type Recommendation struct {
	Strategy   Strategy `json:"strategy"`
	Scores     Scores   `json:"scores"`
	Confidence Grade    `json:"confidence_level"`
}

func recommend(ranked []Evaluation) Recommendation {
	if len(ranked) == 0 {
		return Recommendation{
			Strategy:   Strategy{Name: StrategyNone, Reason: "no applicable strategies found"},
			Confidence: GradeLow,
		}
	}
	top := ranked[0]
	confidence := GradeLow
	switch {
	case top.Scores.Overall > 0.8:
		confidence = GradeHigh
	case top.Scores.Overall > 0.6:
		confidence = GradeMedium
	}
	return Recommendation{Strategy: top.Strategy, Scores: top.Scores, Confidence: confidence}
}

// PlanPhase is one step of an implementation plan.
type PlanPhase struct {
	Phase          int    `json:"phase"`
	TimelineMonths int    `json:"timeline_months"`
	Activity       string `json:"activity"`
}

func implementationPlan(s Strategy) []PlanPhase {
	switch s.Name {
	case StrategyImmediateAdjustment:
		return []PlanPhase{
			{1, 1, "Legal and HR review of adjustments"},
			{2, 2, "Employee communication and adjustment implementation"},
			{3, 3, "Monitor impact and address any issues"},
		}
	case StrategyGradual3Year, StrategyGradual5Year:
		years := int(s.TimelineYears)
		phases := make([]PlanPhase, 0, years)
		for year := 1; year <= years; year++ {
			phases = append(phases, PlanPhase{
				Phase:          year,
				TimelineMonths: year * 12,
				Activity:       fmt.Sprintf("Year %d: Implement %.0f%% of salary adjustments", year, 100/float64(years)),
			})
		}
		return phases
	case StrategyNaturalConvergence:
		return []PlanPhase{
			{1, 12, "Monitor natural progression and market trends"},
			{2, 24, "Evaluate progress and adjust if needed"},
		}
	default:
		return []PlanPhase{
			{1, 3, "Strategy planning and approval"},
			{2, 12, "Implementation and monitoring"},
		}
	}
}

// ROIAnalysis estimates the annual return of a strategy. PaybackYears is nil
// when the strategy yields no annual benefit.
type ROIAnalysis struct {
	TotalInvestment         decimal.Decimal `json:"total_investment"`
	AnnualBenefits          decimal.Decimal `json:"annual_benefits"`
	PaybackYears            *float64        `json:"payback_years,omitempty"`
	ROI3Year                float64         `json:"roi_3_year"`
	RetentionBenefit        decimal.Decimal `json:"retention_benefit"`
	ProductivityBenefit     decimal.Decimal `json:"productivity_benefit"`
	LegalRiskReductionValue decimal.Decimal `json:"legal_risk_reduction_value"`
}

func (m *Modeller) roi(s Strategy) ROIAnalysis {
	retentionImprovement := 0.05
	if s.LegalRiskReduction == GradeHigh {
		retentionImprovement = 0.10
	}
	productivityGain := 0.0
	if s.AffectedEmployees > 0 {
		productivityGain = 0.05
	}

	affected := decimal.NewFromInt(int64(s.AffectedEmployees))
	avgSalary := m.baseline.TotalPayroll.Div(decimal.NewFromInt(int64(max(m.baseline.TotalEmployees, 1))))
	retention := affected.Mul(avgSalary).
		Mul(decimal.NewFromFloat(retentionImprovement)).
		Mul(decimal.NewFromFloat(1.5))
	productivity := affected.Mul(avgSalary).Mul(decimal.NewFromFloat(productivityGain))
	annual := retention.Add(productivity)

	r := ROIAnalysis{
		TotalInvestment:         s.TotalCost,
		AnnualBenefits:          annual.Round(2),
		RetentionBenefit:        retention.Round(2),
		ProductivityBenefit:     productivity.Round(2),
		LegalRiskReductionValue: s.TotalCost.Mul(decimal.NewFromFloat(0.5)).Round(2),
	}
	if annual.IsPositive() {
		payback := s.TotalCost.Div(annual).InexactFloat64()
		r.PaybackYears = &payback
	}
	if s.TotalCost.IsPositive() {
		r.ROI3Year = annual.Mul(decimal.NewFromInt(3)).Sub(s.TotalCost).Div(s.TotalCost).InexactFloat64()
	}
	return r
}

// Risk factors reported by assessRisks.
const (
	RiskHighBudgetUtilization    = "high_budget_utilization"
	RiskLargeEmployeeImpact      = "large_employee_impact"
	RiskAggressiveTimeline       = "aggressive_timeline"
	RiskImplementationComplexity = "implementation_complexity"
)

var mitigations = map[string]string{
	RiskHighBudgetUtilization:    "Consider phased implementation to spread costs",
	RiskLargeEmployeeImpact:      "Implement comprehensive change management and communication plan",
	RiskAggressiveTimeline:       "Build buffer time and have contingency plans",
	RiskImplementationComplexity: "Engage external consultants and establish project management office",
}

// RiskAssessment lists the risk factors of a strategy and how to mitigate them.
type RiskAssessment struct {
	Factors     []string `json:"risk_factors"`
	Level       Grade    `json:"overall_risk_level"`
	Mitigations []string `json:"mitigation_strategies"`
}

func (m *Modeller) assessRisks(s Strategy) RiskAssessment {
	var factors []string
	if s.BudgetUtilization > 0.8 {
		factors = append(factors, RiskHighBudgetUtilization)
	}
	if float64(s.AffectedEmployees) > float64(m.baseline.TotalEmployees)*0.3 {
		factors = append(factors, RiskLargeEmployeeImpact)
	}
	if s.Applicable && s.TimelineYears < 0.5 {
		factors = append(factors, RiskAggressiveTimeline)
	}
	if s.Complexity == GradeHigh {
		factors = append(factors, RiskImplementationComplexity)
	}

	ra := RiskAssessment{Factors: factors, Level: GradeLow}
	switch {
	case len(factors) >= 3:
		ra.Level = GradeHigh
	case len(factors) >= 1:
		ra.Level = GradeMedium
	}
	for _, f := range factors {
		ra.Mitigations = append(ra.Mitigations, mitigations[f])
	}
	return ra
}
