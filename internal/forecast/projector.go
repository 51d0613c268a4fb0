package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
	"github.com/nvandessel/paysim/internal/stats"
)

const (
	// DefaultYears is the projection horizon when none is given.
	DefaultYears = 5

	// MaxYears bounds the projection horizon.
	MaxYears = 30

	// DefaultMarketInflationRate is the annual market inflation assumed by
	// a Projector.
	DefaultMarketInflationRate = 0.04

	// SeniorLevel is the first level whose ratings move at most one step a year.
	SeniorLevel = 4

	// NewJoinerTenureYears and LongTenureYears bound the tenure adaptations.
	NewJoinerTenureYears = 2.0
	LongTenureYears      = 5.0

	// LowGrowthCAGR is the realistic growth rate below which progression is
	// flagged as slow, and HighGrowthCAGR the rate above which a risk-free
	// employee is recommended for retention.
	LowGrowthCAGR  = 0.025
	HighGrowthCAGR = 0.06

	// LowMarketPercentile is the position in the level range below which an
	// employee is flagged.
	LowMarketPercentile = 25.0
)

// DefaultMarketAdjustmentYears are the zero-based path years that receive a
// market boost.
var DefaultMarketAdjustmentYears = []int{2, 5, 8}

var (
	// ErrEmptyPopulation is returned when a projector is built over no employees.
	ErrEmptyPopulation = errors.New("population is empty")

	// ErrEmployeeNotFound is returned for an id absent from the population.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Options configures a Projector.
type Options struct {
	// ConfidenceLevel defaults to DefaultConfidenceLevel.
	ConfidenceLevel float64

	// MarketInflationRate defaults to DefaultMarketInflationRate.
	MarketInflationRate float64

	// SkipMarketAdjustments projects on the uplift table alone.
	SkipMarketAdjustments bool

	// MarketAdjustmentYears defaults to DefaultMarketAdjustmentYears.
	MarketAdjustmentYears []int

	// RandomSeed seeds the market boosts. Each employee draws from its own
	// stream so a projection does not depend on call order.
	RandomSeed int64

	// Now is used to compute tenure from hire dates. Defaults to time.Now.
	Now func() time.Time

	// DefaultTenureYears is assumed for employees without a hire date.
	DefaultTenureYears float64

	Logger *slog.Logger
}

// LevelRange is the salary distribution of one level.
type LevelRange struct {
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Projector projects employees of a fixed population. It is safe for
// concurrent use.
type Projector struct {
	population models.Population
	index      map[int]int
	ranges     map[int]LevelRange
	opts       Options
	logger     *slog.Logger
}

// NewProjector validates pop and precomputes its level ranges.
func NewProjector(pop models.Population, opts Options) (*Projector, error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	if err := pop.Validate(); err != nil {
		return nil, err
	}
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = DefaultConfidenceLevel
	}
	if !(opts.ConfidenceLevel > 0 && opts.ConfidenceLevel < 1) {
		return nil, fmt.Errorf("%w: confidence level must be in (0, 1), got %v", ErrInvalidInput, opts.ConfidenceLevel)
	}
	if opts.MarketInflationRate == 0 {
		opts.MarketInflationRate = DefaultMarketInflationRate
	}
	if math.IsNaN(opts.MarketInflationRate) {
		return nil, fmt.Errorf("%w: market inflation rate is not a number", ErrInvalidInput)
	}
	if opts.MarketAdjustmentYears == nil {
		opts.MarketAdjustmentYears = DefaultMarketAdjustmentYears
	}
	opts.MarketAdjustmentYears = slices.Clone(opts.MarketAdjustmentYears)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultTenureYears <= 0 {
		opts.DefaultTenureYears = constants.DefaultTenureYears
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Projector{
		population: pop.Clone(),
		index:      make(map[int]int, len(pop)),
		ranges:     make(map[int]LevelRange),
		opts:       opts,
		logger:     logger,
	}
	for i, e := range p.population {
		p.index[e.EmployeeID] = i
	}
	for level, members := range pop.ByLevel() {
		salaries := members.Salaries()
		lo, hi := stats.MinMax(salaries)
		p.ranges[level] = LevelRange{
			Min:    lo,
			Q25:    stats.Quantile(salaries, 0.25),
			Median: stats.Median(salaries),
			Q75:    stats.Quantile(salaries, 0.75),
			Max:    hi,
		}
		logger.Debug("level range", "level", level, "median", p.ranges[level].Median)
	}
	logger.Info("initialized progression projector", "employees", len(pop), "levels", len(p.ranges))
	return p, nil
}

// LevelRange returns the salary range of level and whether it is populated.
func (p *Projector) LevelRange(level int) (LevelRange, bool) {
	r, ok := p.ranges[level]
	return r, ok
}

// Employee returns the employee with id.
func (p *Projector) Employee(id int) (models.Employee, error) {
	i, ok := p.index[id]
	if !ok {
		return models.Employee{}, fmt.Errorf("%w: %d", ErrEmployeeNotFound, id)
	}
	return p.population[i].Clone(), nil
}

// MedianProgression projects the population's level medians at the
// projector's inflation rate.
func (p *Projector) MedianProgression(years int) ([]LevelProgression, error) {
	return MedianProgression(p.population, years, p.opts.MarketInflationRate)
}

// ScenarioProjection is one scenario's year-by-year outlook. SalaryPath has
// Years+1 entries starting at the current salary.
type ScenarioProjection struct {
	Scenario        Scenario        `json:"scenario"`
	PerformancePath []models.Rating `json:"performance_path"`
	SalaryPath      []float64       `json:"salary_progression"`
	FinalSalary     float64         `json:"final_salary"`
	TotalIncrease   float64         `json:"total_increase"`
	CAGR            float64         `json:"cagr"`
	Years           int             `json:"years_projected"`
}

// CurrentState is the employee as projected from.
type CurrentState struct {
	Level             int           `json:"level"`
	Salary            float64       `json:"salary"`
	PerformanceRating models.Rating `json:"performance_rating"`
	Gender            models.Gender `json:"gender"`
	TenureYears       float64       `json:"years_at_company"`
}

// MedianStatus places a salary relative to its level median.
type MedianStatus string

const (
	AboveMedian MedianStatus = "above_median"
	BelowMedian MedianStatus = "below_median"
)

func medianStatus(gap float64) MedianStatus {
	if gap > 0 {
		return AboveMedian
	}
	return BelowMedian
}

// MedianComparison compares current and realistic final salary with today's
// level median.
type MedianComparison struct {
	CurrentStatus       MedianStatus `json:"current_status"`
	CurrentGapAmount    float64      `json:"current_gap_amount"`
	CurrentGapPercent   float64      `json:"current_gap_percent"`
	ProjectedStatus     MedianStatus `json:"projected_status"`
	ProjectedGapAmount  float64      `json:"projected_gap_amount"`
	ProjectedGapPercent float64      `json:"projected_gap_percent"`
}

// Quartile places a salary within its level distribution.
type Quartile string

const (
	BottomQuartile Quartile = "bottom_quartile"
	SecondQuartile Quartile = "second_quartile"
	ThirdQuartile  Quartile = "third_quartile"
	TopQuartile    Quartile = "top_quartile"
)

func (r LevelRange) quartile(salary float64) Quartile {
	switch {
	case salary <= r.Q25:
		return BottomQuartile
	case salary <= r.Median:
		return SecondQuartile
	case salary <= r.Q75:
		return ThirdQuartile
	}
	return TopQuartile
}

// percentile is the position of salary between the level minimum and
// maximum, clipped to [0, 100]. A level without spread sits at 50.
func (r LevelRange) percentile(salary float64) float64 {
	span := r.Max - r.Min
	if span <= 0 {
		return 50
	}
	return stats.Clip((salary-r.Min)/span*100, 0, 100)
}

// MarketPosition locates current and realistic final salary within today's
// level range.
type MarketPosition struct {
	CurrentPercentile   float64  `json:"current_percentile"`
	ProjectedPercentile float64  `json:"projected_percentile"`
	CurrentQuartile     Quartile `json:"current_quartile"`
	ProjectedQuartile   Quartile `json:"projected_quartile"`
}

// Risk is a factor that threatens an employee's progression.
type Risk string

const (
	RiskPerformanceConsistency Risk = "performance_consistency"
	RiskBelowMedianSalary      Risk = "below_median_salary"
	RiskLowGrowthTrajectory    Risk = "low_growth_trajectory"
	RiskLowMarketPosition      Risk = "low_market_position"
	RiskCareerStagnation       Risk = "career_progression_stagnation"
)

// Action is a recommended management action.
type Action string

const (
	ActionMonitorProgress            Action = "monitor_progress"
	ActionSalaryAdjustmentReview     Action = "salary_adjustment_review"
	ActionMarketBenchmarking         Action = "market_salary_benchmarking"
	ActionPerformanceImprovementPlan Action = "performance_improvement_plan"
	ActionSkillDevelopment           Action = "skill_development"
	ActionMentoring                  Action = "mentoring_assignment"
	ActionCareerDevelopment          Action = "career_development_discussion"
	ActionPromotionAssessment        Action = "level_promotion_assessment"
	ActionRoleExpansion              Action = "role_expansion"
	ActionClarifyExpectations        Action = "performance_expectations_clarification"
	ActionGrowthAcceleration         Action = "growth_acceleration_plan"
	ActionRecognitionRetention       Action = "recognition_and_retention"
	ActionStretchAssignments         Action = "stretch_assignments"
	ActionLeadershipDevelopment      Action = "leadership_development"
)

// Timeline is when a recommendation should be acted on.
type Timeline string

const (
	TimelineNextReview Timeline = "next_review_cycle"
	TimelineImmediate  Timeline = "immediate"
)

// Recommendation is the action plan derived from the risks.
type Recommendation struct {
	PrimaryAction    Action   `json:"primary_action"`
	SecondaryActions []Action `json:"secondary_actions"`
	Timeline         Timeline `json:"timeline"`
	Rationale        string   `json:"rationale"`
}

// Analysis summarises a projection.
type Analysis struct {
	ConfidenceInterval Interval         `json:"confidence_interval_final"`
	MedianComparison   MedianComparison `json:"median_comparison"`
	MarketPosition     MarketPosition   `json:"market_competitiveness"`
	Risks              []Risk           `json:"risk_factors"`
}

// Projection is the full progression outlook for one employee.
type Projection struct {
	EmployeeID     int                             `json:"employee_id"`
	Current        CurrentState                    `json:"current_state"`
	Projections    map[Scenario]ScenarioProjection `json:"projections"`
	Analysis       Analysis                        `json:"analysis"`
	Recommendation Recommendation                  `json:"recommendations"`
}

// Realistic returns the realistic scenario, which every projection carries.
func (p Projection) Realistic() ScenarioProjection {
	return p.Projections[ScenarioRealistic]
}

// ProjectID projects the employee with id.
func (p *Projector) ProjectID(id, years int, scenarios ...Scenario) (Projection, error) {
	e, err := p.Employee(id)
	if err != nil {
		return Projection{}, err
	}
	return p.Project(e, years, scenarios...)
}

// Project projects e for years under scenarios, all three when none are
// given. The realistic scenario is always included because the analysis is
// based on it. e's level must be populated in the projector's population.
func (p *Projector) Project(e models.Employee, years int, scenarios ...Scenario) (Projection, error) {
	if years < 1 || years > MaxYears {
		return Projection{}, fmt.Errorf("%w: years must be in [1, %d], got %d", ErrInvalidInput, MaxYears, years)
	}
	if err := e.Validate(); err != nil {
		return Projection{}, err
	}
	levelRange, ok := p.ranges[e.Level]
	if !ok {
		return Projection{}, fmt.Errorf("%w: level %d has no employees to compare against", ErrInvalidInput, e.Level)
	}
	if len(scenarios) == 0 {
		scenarios = Scenarios
	}
	for _, sc := range scenarios {
		if !slices.Contains(Scenarios, sc) {
			return Projection{}, fmt.Errorf("%w: unknown scenario %q", ErrInvalidInput, sc)
		}
	}
	if !slices.Contains(scenarios, ScenarioRealistic) {
		scenarios = append(slices.Clone(scenarios), ScenarioRealistic)
	}

	tenure, ok := e.TenureYears(p.opts.Now())
	if !ok {
		tenure = p.opts.DefaultTenureYears
	}
	rng := randutil.New(p.opts.RandomSeed + int64(e.EmployeeID))

	out := Projection{
		EmployeeID: e.EmployeeID,
		Current: CurrentState{
			Level:             e.Level,
			Salary:            e.Salary,
			PerformanceRating: e.PerformanceRating,
			Gender:            e.Gender,
			TenureYears:       tenure,
		},
		Projections: make(map[Scenario]ScenarioProjection, len(scenarios)),
	}

	var allValues []float64
	for _, sc := range Scenarios {
		if !slices.Contains(scenarios, sc) {
			continue
		}
		proj, err := p.projectScenario(e, tenure, years, sc, rng)
		if err != nil {
			return Projection{}, err
		}
		out.Projections[sc] = proj
		allValues = append(allValues, proj.SalaryPath...)
	}

	ci, err := ConfidenceInterval(allValues, p.opts.ConfidenceLevel)
	if err != nil {
		return Projection{}, err
	}
	realistic := out.Realistic()
	out.Analysis = Analysis{
		ConfidenceInterval: ci,
		MedianComparison:   compareMedian(e.Salary, realistic.FinalSalary, levelRange.Median),
		MarketPosition: MarketPosition{
			CurrentPercentile:   levelRange.percentile(e.Salary),
			ProjectedPercentile: levelRange.percentile(realistic.FinalSalary),
			CurrentQuartile:     levelRange.quartile(e.Salary),
			ProjectedQuartile:   levelRange.quartile(realistic.FinalSalary),
		},
	}
	out.Analysis.Risks = identifyRisks(e.Level, tenure, realistic, out.Analysis)
	out.Recommendation = recommend(out.Analysis.Risks, realistic.CAGR)

	p.logger.Info("projected salary progression",
		"employee_id", e.EmployeeID,
		"years", years,
		"realistic_final", realistic.FinalSalary,
		"primary_action", out.Recommendation.PrimaryAction)
	return out, nil
}

func (p *Projector) projectScenario(e models.Employee, tenure float64, years int, sc Scenario, rng *randutil.RNG) (ScenarioProjection, error) {
	ratings := fitPath(adaptPath(ScenarioPath(e.PerformanceRating, sc), e.Level, tenure), years)

	salaries := make([]float64, 0, years+1)
	salaries = append(salaries, e.Salary)
	current := e.Salary
	for _, r := range ratings {
		next, err := UpliftedSalary(current, e.Level, r)
		if err != nil {
			return ScenarioProjection{}, err
		}
		salaries = append(salaries, next)
		current = next
	}
	if !p.opts.SkipMarketAdjustments {
		salaries = ApplyMarketAdjustments(salaries, p.opts.MarketAdjustmentYears, rng)
	}

	final := salaries[len(salaries)-1]
	cagr, err := CAGR(e.Salary, final, float64(years))
	if err != nil {
		return ScenarioProjection{}, err
	}
	p.logger.Debug("scenario projected", "employee_id", e.EmployeeID, "scenario", sc, "final_salary", final)
	return ScenarioProjection{
		Scenario:        sc,
		PerformancePath: ratings,
		SalaryPath:      salaries,
		FinalSalary:     final,
		TotalIncrease:   final - e.Salary,
		CAGR:            cagr,
		Years:           years,
	}, nil
}

// compareMedian holds the level median constant over the horizon.
func compareMedian(current, final, median float64) MedianComparison {
	gap := current - median
	finalGap := final - median
	return MedianComparison{
		CurrentStatus:       medianStatus(gap),
		CurrentGapAmount:    gap,
		CurrentGapPercent:   gap / median * 100,
		ProjectedStatus:     medianStatus(finalGap),
		ProjectedGapAmount:  finalGap,
		ProjectedGapPercent: finalGap / median * 100,
	}
}

func identifyRisks(level int, tenure float64, realistic ScenarioProjection, a Analysis) []Risk {
	risks := make([]Risk, 0)
	if slices.Contains(realistic.PerformancePath, models.RatingNotMet) {
		risks = append(risks, RiskPerformanceConsistency)
	}
	if a.MedianComparison.CurrentStatus == BelowMedian {
		risks = append(risks, RiskBelowMedianSalary)
	}
	if realistic.CAGR < LowGrowthCAGR {
		risks = append(risks, RiskLowGrowthTrajectory)
	}
	if a.MarketPosition.CurrentPercentile < LowMarketPercentile {
		risks = append(risks, RiskLowMarketPosition)
	}
	if tenure > LongTenureYears && level < SeniorLevel {
		risks = append(risks, RiskCareerStagnation)
	}
	return risks
}

// recommend applies the rules in order; a later rule overrides the primary
// action of an earlier one.
func recommend(risks []Risk, realisticCAGR float64) Recommendation {
	rec := Recommendation{
		PrimaryAction:    ActionMonitorProgress,
		SecondaryActions: make([]Action, 0),
		Timeline:         TimelineNextReview,
	}
	if slices.Contains(risks, RiskBelowMedianSalary) {
		rec.PrimaryAction = ActionSalaryAdjustmentReview
		rec.SecondaryActions = append(rec.SecondaryActions, ActionMarketBenchmarking)
		rec.Rationale = "below level median, salary review required"
	}
	if slices.Contains(risks, RiskPerformanceConsistency) {
		rec.PrimaryAction = ActionPerformanceImprovementPlan
		rec.SecondaryActions = append(rec.SecondaryActions, ActionSkillDevelopment, ActionMentoring)
		rec.Rationale = "inconsistent performance, focus on development"
	}
	if slices.Contains(risks, RiskCareerStagnation) {
		rec.PrimaryAction = ActionCareerDevelopment
		rec.SecondaryActions = append(rec.SecondaryActions, ActionPromotionAssessment, ActionRoleExpansion)
		rec.Timeline = TimelineImmediate
		rec.Rationale = "long tenure with limited progression, career path review needed"
	}
	if slices.Contains(risks, RiskLowGrowthTrajectory) {
		rec.SecondaryActions = append(rec.SecondaryActions, ActionClarifyExpectations)
		if rec.PrimaryAction == ActionMonitorProgress {
			rec.PrimaryAction = ActionGrowthAcceleration
		}
	}
	if realisticCAGR > HighGrowthCAGR && len(risks) == 0 {
		rec.PrimaryAction = ActionRecognitionRetention
		rec.SecondaryActions = append(rec.SecondaryActions, ActionStretchAssignments, ActionLeadershipDevelopment)
		rec.Rationale = "strong performer with high growth potential"
	}
	return rec
}

// Summary is the condensed outlook returned for batch requests.
type Summary struct {
	EmployeeID        int          `json:"employee_id"`
	CurrentSalary     float64      `json:"current_salary"`
	RealisticSalary   float64      `json:"projected_salary_realistic"`
	RealisticCAGR     float64      `json:"cagr_realistic"`
	MedianStatus      MedianStatus `json:"median_status"`
	KeyRecommendation Action       `json:"key_recommendation"`
}

// Summarize condenses a projection.
func (p Projection) Summarize() Summary {
	r := p.Realistic()
	return Summary{
		EmployeeID:        p.EmployeeID,
		CurrentSalary:     p.Current.Salary,
		RealisticSalary:   r.FinalSalary,
		RealisticCAGR:     r.CAGR,
		MedianStatus:      p.Analysis.MedianComparison.CurrentStatus,
		KeyRecommendation: p.Recommendation.PrimaryAction,
	}
}

// BatchResult holds projections in request order plus the ids that were not
// in the population.
type BatchResult struct {
	Projections []Projection `json:"projections"`
	Missing     []int        `json:"missing_ids,omitempty"`
}

// Summaries condenses every projection in the batch.
func (b BatchResult) Summaries() []Summary {
	out := make([]Summary, len(b.Projections))
	for i, p := range b.Projections {
		out[i] = p.Summarize()
	}
	return out
}

// ProjectMany projects every id over years, with all scenarios when none
// are given. Unknown ids are skipped and reported in Missing.
func (p *Projector) ProjectMany(ids []int, years int, scenarios ...Scenario) (BatchResult, error) {
	result := BatchResult{Projections: make([]Projection, 0, len(ids))}
	for _, id := range ids {
		proj, err := p.ProjectID(id, years, scenarios...)
		if errors.Is(err, ErrEmployeeNotFound) {
			p.logger.Warn("employee not in population", "employee_id", id)
			result.Missing = append(result.Missing, id)
			continue
		}
		if err != nil {
			return BatchResult{}, err
		}
		result.Projections = append(result.Projections, proj)
	}
	p.logger.Info("batch projection complete", "requested", len(ids), "projected", len(result.Projections))
	return result, nil
}
