package mcp

import (
	"github.com/nvandessel/paysim/internal/convergence"
	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/nvandessel/paysim/internal/intervention"
	"github.com/nvandessel/paysim/internal/simulation"
	"github.com/nvandessel/paysim/internal/store"
)

// Tool outputs are validated against schemas inferred from these types, so
// money travels as fixed two-decimal strings and per-level maps become lists.

// PopulationSource selects the population an analysis tool works on: a
// stored run, or a freshly generated population when RunID is empty.
type PopulationSource struct {
	RunID               string   `json:"run_id,omitempty" jsonschema:"Analyse a stored run instead of generating a fresh population"`
	Phase               string   `json:"phase,omitempty" jsonschema:"Which population of the stored run to analyse: initial or final (default final)"`
	Size                int      `json:"size,omitempty" jsonschema:"Number of employees to generate when no run_id is given"`
	Seed                *int64   `json:"seed,omitempty" jsonschema:"Random seed for generation (default from configuration)"`
	GenderPayGapPercent *float64 `json:"gender_pay_gap_percent,omitempty" jsonschema:"Explicit gender pay gap to inject, 0 to 50 percent"`
}

// GenerateInput defines the input for paysim_generate tool.
type GenerateInput struct {
	Size                int      `json:"size,omitempty" jsonschema:"Number of employees to generate (default from configuration)"`
	Seed                *int64   `json:"seed,omitempty" jsonschema:"Random seed (default from configuration)"`
	GenderPayGapPercent *float64 `json:"gender_pay_gap_percent,omitempty" jsonschema:"Explicit gender pay gap to inject, 0 to 50 percent"`
	Save                bool     `json:"save,omitempty" jsonschema:"Persist the population as a run with zero cycles"`
	Label               string   `json:"label,omitempty" jsonschema:"Label stored with the run when save is set"`
}

// GenerateOutput defines the output for paysim_generate tool.
type GenerateOutput struct {
	RunID              string            `json:"run_id,omitempty" jsonschema:"ID of the saved run, if saved"`
	Seed               int64             `json:"seed" jsonschema:"Seed the population was generated with"`
	Summary            PopulationSummary `json:"summary" jsonschema:"Headline statistics of the generated population"`
	SeniorMedian       float64           `json:"senior_median" jsonschema:"Median salary of levels 4 to 6"`
	SeniorMedianPassed bool              `json:"senior_median_passed" jsonschema:"Whether the senior median falls inside its target band"`
	Message            string            `json:"message" jsonschema:"Human-readable result message"`
}

// PopulationSummary is the flattened form of population.Summary.
type PopulationSummary struct {
	Total            int            `json:"total"`
	MaleCount        int            `json:"male_count"`
	FemaleCount      int            `json:"female_count"`
	SalaryMin        float64        `json:"salary_min"`
	SalaryMax        float64        `json:"salary_max"`
	MedianSalary     float64        `json:"median_salary"`
	MaleMedian       float64        `json:"male_median"`
	FemaleMedian     float64        `json:"female_median"`
	GenderGapPercent float64        `json:"gender_gap_percent"`
	Levels           []LevelSummary `json:"levels"`
}

// LevelSummary describes the salaries of one level.
type LevelSummary struct {
	Level  int     `json:"level"`
	Count  int     `json:"count"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// SimulateInput defines the input for paysim_simulate tool.
type SimulateInput struct {
	Size                   int      `json:"size,omitempty" jsonschema:"Number of employees to generate (default from configuration)"`
	Seed                   *int64   `json:"seed,omitempty" jsonschema:"Random seed shared by generation and simulation (default from configuration)"`
	GenderPayGapPercent    *float64 `json:"gender_pay_gap_percent,omitempty" jsonschema:"Explicit gender pay gap to inject, 0 to 50 percent"`
	Cycles                 *int     `json:"cycles,omitempty" jsonschema:"Number of annual review cycles to run (default from configuration)"`
	PerformanceConsistency *float64 `json:"performance_consistency,omitempty" jsonschema:"Probability an employee keeps a similar rating between cycles, 0 to 1"`
	StopOnConvergence      *bool    `json:"stop_on_convergence,omitempty" jsonschema:"Stop early once Gini and gender gap stop moving (default from configuration)"`
	Label                  string   `json:"label,omitempty" jsonschema:"Label stored with the run"`
}

// SimulateOutput defines the output for paysim_simulate tool.
type SimulateOutput struct {
	RunID           string              `json:"run_id" jsonschema:"ID of the stored run"`
	Seed            int64               `json:"seed" jsonschema:"Seed used for generation and simulation"`
	CyclesRequested int                 `json:"cycles_requested"`
	CyclesCompleted int                 `json:"cycles_completed"`
	Converged       bool                `json:"converged" jsonschema:"Whether the run stopped early on convergence"`
	ConvergedCycle  int                 `json:"converged_cycle,omitempty"`
	Progression     []SnapshotSummary   `json:"progression" jsonschema:"Inequality metrics per cycle, starting at cycle 0"`
	Analysis        simulation.Analysis `json:"analysis" jsonschema:"Comparison of the first and last cycles"`
	Message         string              `json:"message" jsonschema:"Human-readable result message"`
}

// SnapshotSummary is the flattened form of models.InequalitySnapshot.
type SnapshotSummary struct {
	Cycle                        int        `json:"cycle"`
	GiniCoefficient              float64    `json:"gini_coefficient"`
	CoefficientOfVariation       float64    `json:"coefficient_of_variation"`
	MedianSalary                 float64    `json:"median_salary"`
	MeanSalary                   float64    `json:"mean_salary"`
	GenderGapPercent             float64    `json:"gender_gap_percent"`
	PerformanceSalaryCorrelation float64    `json:"performance_salary_correlation"`
	LevelSalaryCorrelation       float64    `json:"level_salary_correlation"`
	GenderGapByLevel             []LevelGap `json:"gender_gap_by_level"`
}

// LevelGap is the gender pay gap within one level.
type LevelGap struct {
	Level      int     `json:"level"`
	GapPercent float64 `json:"gap_percent"`
}

// BelowMedianInput defines the input for paysim_below_median tool.
type BelowMedianInput struct {
	PopulationSource
	MinGapPercent *float64 `json:"min_gap_percent,omitempty" jsonschema:"How far below the level median, in percent, an employee must be (default from configuration)"`
	ExcludeGender bool     `json:"exclude_gender,omitempty" jsonschema:"Skip the gender breakdown of below-median gaps"`
	Limit         int      `json:"limit,omitempty" jsonschema:"Maximum employees to list, largest gap first (default 20)"`
}

// BelowMedianOutput defines the output for paysim_below_median tool.
type BelowMedianOutput struct {
	Source             string                            `json:"source" jsonschema:"Where the analysed population came from"`
	TotalEmployees     int                               `json:"total_employees"`
	BelowMedianCount   int                               `json:"below_median_count"`
	BelowMedianPercent float64                           `json:"below_median_percent"`
	Statistics         convergence.GapStatistics         `json:"statistics"`
	GenderAnalysis     *convergence.GenderAnalysis       `json:"gender_analysis,omitempty"`
	Prioritization     convergence.Prioritization        `json:"prioritization"`
	Recommended        StrategySummary                   `json:"recommended" jsonschema:"Strategy with the best success probability per unit cost"`
	Strategies         []StrategySummary                 `json:"strategies"`
	TotalBudget        string                            `json:"total_budget" jsonschema:"Budget required by the recommended strategy"`
	CostBenefit        CostBenefitSummary                `json:"cost_benefit"`
	Timeline           []convergence.Milestone           `json:"timeline"`
	Employees          []convergence.BelowMedianEmployee `json:"employees" jsonschema:"Below-median employees, largest gap first, truncated to limit"`
}

// StrategySummary is the flattened form of convergence.Strategy.
type StrategySummary struct {
	Name               string  `json:"name"`
	Title              string  `json:"title"`
	Applicable         bool    `json:"applicable"`
	Reason             string  `json:"reason,omitempty"`
	AffectedEmployees  int     `json:"affected_employees"`
	TotalCost          string  `json:"total_cost"`
	CostPerEmployee    string  `json:"cost_per_employee"`
	TimelineMonths     int     `json:"timeline_months"`
	SuccessProbability float64 `json:"success_probability"`
	Description        string  `json:"description"`
}

// CostBenefitSummary is the flattened form of convergence.CostBenefit.
type CostBenefitSummary struct {
	TotalInvestment       string  `json:"total_investment"`
	PotentialSalaryImpact string  `json:"potential_salary_impact"`
	RetentionBenefit      string  `json:"retention_benefit"`
	TotalBenefit          string  `json:"total_benefit"`
	ROIRatio              float64 `json:"roi_ratio"`
	PaybackMonths         int     `json:"payback_months"`
}

// RemediationInput defines the input for paysim_remediation tool.
type RemediationInput struct {
	PopulationSource
	TargetGapPercent *float64 `json:"target_gap_percent,omitempty" jsonschema:"Gender pay gap to reach, 0 for parity (default from configuration)"`
	MaxYears         int      `json:"max_years,omitempty" jsonschema:"Longest acceptable timeline in years (default from configuration)"`
	BudgetConstraint *float64 `json:"budget_constraint,omitempty" jsonschema:"Largest fraction of payroll any strategy may spend, above 0 and at most 1"`
}

// RemediationOutput defines the output for paysim_remediation tool.
type RemediationOutput struct {
	Source              string                      `json:"source" jsonschema:"Where the analysed population came from"`
	GenderPayGapPercent float64                     `json:"gender_pay_gap_percent"`
	MaleMedianSalary    float64                     `json:"male_median_salary"`
	FemaleMedianSalary  float64                     `json:"female_median_salary"`
	TotalPayroll        string                      `json:"total_payroll"`
	UnderpaidFemales    int                         `json:"underpaid_females" jsonschema:"Female employees paid below the male median of their level"`
	BudgetLimit         string                      `json:"budget_limit"`
	Evaluations         []EvaluationSummary         `json:"evaluations" jsonschema:"Applicable strategies, best first"`
	Inapplicable        []string                    `json:"inapplicable,omitempty" jsonschema:"Strategies that could not be applied"`
	Recommended         string                      `json:"recommended"`
	RecommendedTitle    string                      `json:"recommended_title"`
	Confidence          string                      `json:"confidence"`
	Plan                []intervention.PlanPhase    `json:"plan"`
	ROI                 ROISummary                  `json:"roi"`
	RiskAssessment      intervention.RiskAssessment `json:"risk_assessment"`
	Message             string                      `json:"message" jsonschema:"Human-readable result message"`
}

// EvaluationSummary is one scored remediation strategy.
type EvaluationSummary struct {
	Name                string  `json:"name"`
	Title               string  `json:"title"`
	TotalCost           string  `json:"total_cost"`
	AnnualCost          string  `json:"annual_cost"`
	CostPercentPayroll  float64 `json:"cost_percent_payroll"`
	TimelineYears       float64 `json:"timeline_years"`
	AffectedEmployees   int     `json:"affected_employees"`
	ProjectedFinalGap   float64 `json:"projected_final_gap"`
	GapReductionPercent float64 `json:"gap_reduction_percent"`
	Feasibility         string  `json:"feasibility"`
	OverallScore        float64 `json:"overall_score"`
	Effectiveness       float64 `json:"effectiveness"`
	FeasibilityScore    float64 `json:"feasibility_score"`
	Risk                float64 `json:"risk"`
	CostEfficiency      float64 `json:"cost_efficiency"`
}

// ROISummary is the flattened form of intervention.ROIAnalysis.
type ROISummary struct {
	TotalInvestment  string   `json:"total_investment"`
	AnnualBenefits   string   `json:"annual_benefits"`
	PaybackYears     *float64 `json:"payback_years,omitempty"`
	ROI3Year         float64  `json:"roi_3_year"`
	RetentionBenefit string   `json:"retention_benefit"`
}

// ForecastInput defines the input for paysim_forecast tool.
type ForecastInput struct {
	PopulationSource
	EmployeeIDs       []int    `json:"employee_ids" jsonschema:"Employees to project, at most 50"`
	Years             int      `json:"years,omitempty" jsonschema:"Years to project, 1 to 30 (default from configuration)"`
	Scenarios         []string `json:"scenarios,omitempty" jsonschema:"Scenarios to model: conservative, realistic, optimistic (default all; realistic is always included)"`
	MarketAdjustments *bool    `json:"market_adjustments,omitempty" jsonschema:"Apply one-off market boosts (default from configuration)"`
	Detailed          bool     `json:"detailed,omitempty" jsonschema:"Return full year-by-year projections as well as summaries"`
}

// ForecastOutput defines the output for paysim_forecast tool.
type ForecastOutput struct {
	Source       string                      `json:"source" jsonschema:"Where the projected population came from"`
	Years        int                         `json:"years"`
	Summaries    []forecast.Summary          `json:"summaries" jsonschema:"One line per projected employee, in request order"`
	Projections  []ProjectionDetail          `json:"projections,omitempty" jsonschema:"Full projections when detailed is set"`
	Missing      []int                       `json:"missing_ids,omitempty" jsonschema:"Requested ids absent from the population"`
	LevelMedians []forecast.LevelProgression `json:"level_medians" jsonschema:"Level medians projected at market inflation, year 0 first"`
	Message      string                      `json:"message" jsonschema:"Human-readable result message"`
}

// ProjectionDetail is the flattened form of forecast.Projection.
type ProjectionDetail struct {
	EmployeeID     int                           `json:"employee_id"`
	Current        forecast.CurrentState         `json:"current_state"`
	Scenarios      []forecast.ScenarioProjection `json:"scenarios" jsonschema:"Projected scenarios from most to least cautious"`
	Analysis       forecast.Analysis             `json:"analysis"`
	Recommendation forecast.Recommendation       `json:"recommendation"`
}

// RunsInput defines the input for paysim_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to list, newest first (default all)"`
}

// RunsOutput defines the output for paysim_runs tool.
type RunsOutput struct {
	Runs  []store.RunSummary `json:"runs" jsonschema:"Stored runs, newest first"`
	Count int                `json:"count" jsonschema:"Number of runs listed"`
}

// ValidateInput defines the input for paysim_validate tool.
type ValidateInput struct{}

// ValidateOutput defines the output for paysim_validate tool.
type ValidateOutput struct {
	UpliftCases      int                          `json:"uplift_cases" jsonschema:"Rating and level combinations checked"`
	UpliftPassed     bool                         `json:"uplift_passed"`
	UpliftFailures   []string                     `json:"uplift_failures,omitempty"`
	InequalityChecks []simulation.InequalityCheck `json:"inequality_checks"`
	InequalityPassed bool                         `json:"inequality_passed"`
	ForecastChecks   []forecast.Check             `json:"forecast_checks"`
	ForecastPassed   bool                         `json:"forecast_passed"`
	Passed           bool                         `json:"passed" jsonschema:"Whether every check passed"`
}
