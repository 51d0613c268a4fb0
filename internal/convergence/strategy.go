package convergence

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nvandessel/paysim/internal/models"
)

// StrategyName identifies a below-median intervention strategy.
type StrategyName string

const (
	StrategyImmediateAdjustment     StrategyName = "immediate_adjustment"
	StrategyPerformanceAcceleration StrategyName = "performance_acceleration"
	StrategyNaturalProgression      StrategyName = "natural_progression"
	StrategyTargetedDevelopment     StrategyName = "targeted_development"
)

// StrategyOrder is the order strategies are evaluated and reported in. Ties
// in scoring go to the earlier strategy.
var StrategyOrder = []StrategyName{
	StrategyImmediateAdjustment,
	StrategyPerformanceAcceleration,
	StrategyNaturalProgression,
	StrategyTargetedDevelopment,
}

// Title returns the name formatted for reports, e.g. "Immediate Adjustment".
func (n StrategyName) Title() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(n), "_", " "))
}

const (
	// HighPriorityGapPercent and HighPriorityTenureYears put an employee in
	// the high priority bucket when either is exceeded.
	HighPriorityGapPercent  = 20.0
	HighPriorityTenureYears = 5.0

	// MediumPriorityGapPercent is the gap above which an employee is medium priority.
	MediumPriorityGapPercent = 10.0

	// GapClosureFraction is the share of the gap closed by an adjustment.
	GapClosureFraction = 0.7

	// RetentionRate and ReplacementCostMultiplier value the retention benefit
	// of closing gaps.
	RetentionRate             = 0.15
	ReplacementCostMultiplier = 1.5

	// MinPaybackMonths is the floor on reported payback periods.
	MinPaybackMonths = 12
)

var (
	accelerationCostPerEmployee = decimal.NewFromInt(2000)
	developmentCostPerEmployee  = decimal.NewFromInt(1500)
)

// Strategy is the costed form of one intervention.
type Strategy struct {
	Name               StrategyName    `json:"name"`
	Applicable         bool            `json:"applicable"`
	Reason             string          `json:"reason,omitempty"`
	AffectedEmployees  int             `json:"affected_employees"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	CostPerEmployee    decimal.Decimal `json:"cost_per_employee"`
	TimelineMonths     int             `json:"timeline_months"`
	SuccessProbability float64         `json:"success_probability"`
	Description        string          `json:"description"`
}

// Score ranks applicable strategies: success probability per unit of cost
// per affected employee, with costs below 1 treated as 1.
func (s Strategy) Score() float64 {
	if !s.Applicable {
		return 0
	}
	perHead := s.TotalCost.Div(decimal.NewFromInt(int64(max(s.AffectedEmployees, 1))))
	return s.SuccessProbability / max(perHead.InexactFloat64(), 1)
}

// Prioritization counts below-median employees per urgency bucket.
type Prioritization struct {
	High   int `json:"high_priority"`
	Medium int `json:"medium_priority"`
	Low    int `json:"low_priority"`
}

// CostBenefit estimates the return on the recommended strategy.
type CostBenefit struct {
	TotalInvestment       decimal.Decimal `json:"total_investment"`
	PotentialSalaryImpact decimal.Decimal `json:"potential_salary_impact"`
	RetentionBenefit      decimal.Decimal `json:"retention_benefit"`
	TotalBenefit          decimal.Decimal `json:"total_benefit"`
	ROIRatio              float64         `json:"roi_ratio"`
	PaybackMonths         int             `json:"payback_months"`
}

// Milestone is one step of an implementation timeline.
type Milestone struct {
	Month     int    `json:"month"`
	Milestone string `json:"milestone"`
}

// Recommendation is the result of RecommendStrategies.
type Recommendation struct {
	Prioritization      Prioritization  `json:"employee_prioritization"`
	Strategies          []Strategy      `json:"available_strategies"`
	Primary             Strategy        `json:"recommended_strategy"`
	Alternatives        []StrategyName  `json:"alternative_strategies"`
	TotalBudgetRequired decimal.Decimal `json:"total_budget_required"`
	CostBenefit         CostBenefit     `json:"cost_benefit_analysis"`
	Timeline            []Milestone     `json:"implementation_timeline"`
}

// Priority is the urgency bucket of a below-median employee.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Prioritize buckets a below-median employee by urgency.
func Prioritize(e BelowMedianEmployee) Priority {
	switch {
	case e.GapPercent > HighPriorityGapPercent || e.TenureYears > HighPriorityTenureYears:
		return PriorityHigh
	case e.GapPercent > MediumPriorityGapPercent:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RecommendStrategies costs the four strategies over the below-median
// employees of analysis and picks the best scoring one.
func (a *Analyzer) RecommendStrategies(analysis BelowMedianAnalysis) Recommendation {
	var high, medium, low []BelowMedianEmployee
	for _, e := range analysis.Employees {
		switch Prioritize(e) {
		case PriorityHigh:
			high = append(high, e)
		case PriorityMedium:
			medium = append(medium, e)
		default:
			low = append(low, e)
		}
	}

	strategies := []Strategy{
		immediateAdjustment(high),
		performanceAcceleration(append(slices.Clone(high), medium...)),
		naturalProgression(low),
		targetedDevelopment(analysis.Employees),
	}

	primary := strategies[2]
	best := -1.0
	for _, s := range strategies {
		if !s.Applicable {
			continue
		}
		if score := s.Score(); score > best {
			best, primary = score, s
		}
	}
	var alternatives []StrategyName
	for _, s := range strategies {
		if s.Applicable && s.Name != primary.Name {
			alternatives = append(alternatives, s.Name)
		}
	}

	rec := Recommendation{
		Prioritization:      Prioritization{High: len(high), Medium: len(medium), Low: len(low)},
		Strategies:          strategies,
		Primary:             primary,
		Alternatives:        alternatives,
		TotalBudgetRequired: primary.TotalCost,
		CostBenefit:         costBenefit(primary, analysis.Employees),
		Timeline:            implementationTimeline(primary.TimelineMonths),
	}
	a.logger.Info("recommended below-median strategy",
		"primary", primary.Name,
		"high", rec.Prioritization.High,
		"medium", rec.Prioritization.Medium,
		"low", rec.Prioritization.Low,
		"budget", primary.TotalCost.StringFixed(2))
	return rec
}

func immediateAdjustment(high []BelowMedianEmployee) Strategy {
	s := Strategy{
		Name:               StrategyImmediateAdjustment,
		TimelineMonths:     3,
		SuccessProbability: 0.95,
		Description:        "Immediate salary adjustments to 70% gap closure for high-priority employees",
	}
	if len(high) == 0 {
		s.Reason = "no high priority employees"
		return s
	}
	closure := decimal.NewFromFloat(GapClosureFraction)
	total := decimal.Zero
	for _, e := range high {
		total = total.Add(decimal.NewFromFloat(e.GapAmount).Mul(closure))
	}
	s.Applicable = true
	s.AffectedEmployees = len(high)
	s.TotalCost = total.Round(2)
	s.CostPerEmployee = total.Div(decimal.NewFromInt(int64(len(high)))).Round(2)
	return s
}

func performanceAcceleration(targets []BelowMedianEmployee) Strategy {
	s := Strategy{
		Name:               StrategyPerformanceAcceleration,
		TimelineMonths:     12,
		SuccessProbability: 0.75,
		Description:        "Performance acceleration through development programs",
	}
	if len(targets) == 0 {
		s.Reason = "no target employees"
		return s
	}
	s.Applicable = true
	s.AffectedEmployees = len(targets)
	s.CostPerEmployee = accelerationCostPerEmployee
	s.TotalCost = accelerationCostPerEmployee.Mul(decimal.NewFromInt(int64(len(targets))))
	return s
}

func naturalProgression(low []BelowMedianEmployee) Strategy {
	return Strategy{
		Name:               StrategyNaturalProgression,
		Applicable:         true,
		AffectedEmployees:  len(low),
		TotalCost:          decimal.Zero,
		CostPerEmployee:    decimal.Zero,
		TimelineMonths:     36,
		SuccessProbability: 0.60,
		Description:        "Allow natural market forces and performance progression",
	}
}

func targetedDevelopment(all []BelowMedianEmployee) Strategy {
	candidates := 0
	for _, e := range all {
		if e.PerformanceRating == models.RatingPartiallyMet || e.PerformanceRating == models.RatingAchieving {
			candidates++
		}
	}
	return Strategy{
		Name:               StrategyTargetedDevelopment,
		Applicable:         true,
		AffectedEmployees:  candidates,
		TotalCost:          developmentCostPerEmployee.Mul(decimal.NewFromInt(int64(candidates))),
		CostPerEmployee:    developmentCostPerEmployee,
		TimelineMonths:     18,
		SuccessProbability: 0.80,
		Description:        "Targeted skill development for performance improvement",
	}
}

// costBenefit values closing GapClosureFraction of the average gap for every
// employee the strategy reaches. An empty population yields zero benefit.
func costBenefit(s Strategy, employees []BelowMedianEmployee) CostBenefit {
	cb := CostBenefit{
		TotalInvestment:       s.TotalCost,
		PotentialSalaryImpact: decimal.Zero,
		RetentionBenefit:      decimal.Zero,
		TotalBenefit:          decimal.Zero,
		PaybackMonths:         MinPaybackMonths,
	}
	if len(employees) == 0 {
		return cb
	}

	totalGap := decimal.Zero
	for _, e := range employees {
		totalGap = totalGap.Add(decimal.NewFromFloat(e.GapAmount))
	}
	averageGap := totalGap.Div(decimal.NewFromInt(int64(len(employees))))
	impact := averageGap.
		Mul(decimal.NewFromFloat(GapClosureFraction)).
		Mul(decimal.NewFromInt(int64(s.AffectedEmployees)))
	retention := impact.
		Mul(decimal.NewFromFloat(RetentionRate)).
		Mul(decimal.NewFromFloat(ReplacementCostMultiplier))
	benefit := impact.Add(retention)

	cb.PotentialSalaryImpact = impact.Round(2)
	cb.RetentionBenefit = retention.Round(2)
	cb.TotalBenefit = benefit.Round(2)
	cb.ROIRatio = benefit.Div(decimal.Max(s.TotalCost, decimal.NewFromInt(1))).InexactFloat64()
	if impact.IsPositive() {
		months := int(s.TotalCost.Div(impact).Mul(decimal.NewFromInt(12)).IntPart())
		cb.PaybackMonths = max(MinPaybackMonths, months)
	}
	return cb
}

func implementationTimeline(months int) []Milestone {
	if months <= 6 {
		return []Milestone{
			{Month: 1, Milestone: "Strategy approval and budget allocation"},
			{Month: 2, Milestone: "Employee selection and communication"},
			{Month: months, Milestone: "Implementation complete"},
		}
	}
	return []Milestone{
		{Month: 1, Milestone: "Strategy approval and budget allocation"},
		{Month: 2, Milestone: "Phase 1 rollout (high priority employees)"},
		{Month: months / 2, Milestone: "Mid-point review and adjustments"},
		{Month: months, Milestone: "Full implementation complete"},
	}
}
