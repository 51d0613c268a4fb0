// Package convergence finds employees paid below the median for their level
// and recommends how to bring them up to it.
package convergence

import (
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/stats"
)

// DisparitySignificanceThreshold is the female minus male average gap, in
// percentage points, above which a gender disparity is flagged.
const DisparitySignificanceThreshold = 5.0

// ErrEmptyPopulation is returned when an analyzer is built over no employees.
var ErrEmptyPopulation = errors.New("population is empty")

// Options configures an Analyzer.
type Options struct {
	// Now is used to compute tenure from hire dates. Defaults to time.Now.
	Now func() time.Time

	// DefaultTenureYears is assumed for employees without a hire date.
	DefaultTenureYears float64

	Logger *slog.Logger
}

// Analyzer holds level medians for a fixed population snapshot.
type Analyzer struct {
	population    models.Population
	medians       map[int]float64
	genderMedians map[int]map[models.Gender]float64
	opts          Options
	logger        *slog.Logger
}

// NewAnalyzer validates pop and precomputes its level medians.
func NewAnalyzer(pop models.Population, opts Options) (*Analyzer, error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	if err := pop.Validate(); err != nil {
		return nil, err
	}
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

	a := &Analyzer{
		population:    pop.Clone(),
		medians:       make(map[int]float64),
		genderMedians: make(map[int]map[models.Gender]float64),
		opts:          opts,
		logger:        logger,
	}
	for level, members := range pop.ByLevel() {
		a.medians[level] = stats.Median(members.Salaries())
		male, female := members.SalariesByGender()
		byGender := make(map[models.Gender]float64, 2)
		if len(male) > 0 {
			byGender[models.GenderMale] = stats.Median(male)
		}
		if len(female) > 0 {
			byGender[models.GenderFemale] = stats.Median(female)
		}
		a.genderMedians[level] = byGender
	}

	levels := make([]int, 0, len(a.medians))
	for level := range a.medians {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	for _, level := range levels {
		logger.Debug("level median", "level", level, "median", a.medians[level])
	}
	logger.Info("initialized below-median analyzer", "employees", len(pop))
	return a, nil
}

// LevelMedian returns the median salary of level and whether the level is
// populated.
func (a *Analyzer) LevelMedian(level int) (float64, bool) {
	m, ok := a.medians[level]
	return m, ok
}

// LevelGenderMedian returns the median salary of one gender within a level.
func (a *Analyzer) LevelGenderMedian(level int, gender models.Gender) (float64, bool) {
	m, ok := a.genderMedians[level][gender]
	return m, ok
}

// BelowMedianEmployee is one employee paid at least the minimum gap below
// their level median.
type BelowMedianEmployee struct {
	EmployeeID        int           `json:"employee_id"`
	Level             int           `json:"level"`
	Salary            float64       `json:"salary"`
	Gender            models.Gender `json:"gender"`
	PerformanceRating models.Rating `json:"performance_rating"`
	LevelMedian       float64       `json:"level_median"`
	GapAmount         float64       `json:"gap_amount"`
	GapPercent        float64       `json:"gap_percent"`
	TenureYears       float64       `json:"tenure_years"`
}

// GapStatistics summarises the gaps of a below-median group.
type GapStatistics struct {
	Count             int     `json:"count"`
	AverageGapAmount  float64 `json:"average_gap_amount"`
	MedianGapAmount   float64 `json:"median_gap_amount"`
	AverageGapPercent float64 `json:"average_gap_percent"`
	MedianGapPercent  float64 `json:"median_gap_percent"`
	TotalGapAmount    float64 `json:"total_gap_amount"`
	MaxGapAmount      float64 `json:"max_gap_amount"`
	MinGapAmount      float64 `json:"min_gap_amount"`
}

// GenderGapSummary describes the below-median members of one gender.
type GenderGapSummary struct {
	Count             int     `json:"count"`
	AverageGapPercent float64 `json:"average_gap_percent"`
	MedianGapPercent  float64 `json:"median_gap_percent"`
}

// GenderAnalysis compares below-median gaps between genders. Disparity is
// only set when both genders have below-median members.
type GenderAnalysis struct {
	Male                 GenderGapSummary `json:"male"`
	Female               GenderGapSummary `json:"female"`
	Disparity            *float64         `json:"gender_disparity,omitempty"`
	DisparitySignificant bool             `json:"disparity_significant"`
}

// BelowMedianAnalysis is the result of IdentifyBelowMedian.
type BelowMedianAnalysis struct {
	TotalEmployees     int                   `json:"total_employees"`
	BelowMedianCount   int                   `json:"below_median_count"`
	BelowMedianPercent float64               `json:"below_median_percent"`
	Employees          []BelowMedianEmployee `json:"employees"`
	Statistics         GapStatistics         `json:"summary_statistics"`
	GenderAnalysis     *GenderAnalysis       `json:"gender_analysis,omitempty"`
}

// IdentifyBelowMedian returns every employee whose salary is at least
// minGapPercent below the median of their level, in population order.
func (a *Analyzer) IdentifyBelowMedian(minGapPercent float64, includeGender bool) BelowMedianAnalysis {
	now := a.opts.Now()
	below := make([]BelowMedianEmployee, 0)
	for _, e := range a.population {
		median := a.medians[e.Level]
		gap := median - e.Salary
		gapPercent := gap / median * 100
		if gapPercent < minGapPercent {
			continue
		}
		tenure, ok := e.TenureYears(now)
		if !ok {
			tenure = a.opts.DefaultTenureYears
		}
		below = append(below, BelowMedianEmployee{
			EmployeeID:        e.EmployeeID,
			Level:             e.Level,
			Salary:            e.Salary,
			Gender:            e.Gender,
			PerformanceRating: e.PerformanceRating,
			LevelMedian:       median,
			GapAmount:         gap,
			GapPercent:        gapPercent,
			TenureYears:       tenure,
		})
	}

	result := BelowMedianAnalysis{
		TotalEmployees:     len(a.population),
		BelowMedianCount:   len(below),
		BelowMedianPercent: float64(len(below)) / float64(len(a.population)) * 100,
		Employees:          below,
		Statistics:         gapStatistics(below),
	}
	if includeGender {
		ga := genderAnalysis(below)
		result.GenderAnalysis = &ga
	}

	a.logger.Info("identified below-median employees",
		"min_gap_percent", minGapPercent,
		"count", result.BelowMedianCount,
		"percent", result.BelowMedianPercent)
	return result
}

func gapStatistics(below []BelowMedianEmployee) GapStatistics {
	if len(below) == 0 {
		return GapStatistics{}
	}
	amounts := make([]float64, len(below))
	percents := make([]float64, len(below))
	for i, e := range below {
		amounts[i] = e.GapAmount
		percents[i] = e.GapPercent
	}
	lo, hi := stats.MinMax(amounts)
	return GapStatistics{
		Count:             len(below),
		AverageGapAmount:  stats.Mean(amounts),
		MedianGapAmount:   stats.Median(amounts),
		AverageGapPercent: stats.Mean(percents),
		MedianGapPercent:  stats.Median(percents),
		TotalGapAmount:    stats.Sum(amounts),
		MaxGapAmount:      hi,
		MinGapAmount:      lo,
	}
}

func genderAnalysis(below []BelowMedianEmployee) GenderAnalysis {
	var male, female []float64
	for _, e := range below {
		switch e.Gender {
		case models.GenderMale:
			male = append(male, e.GapPercent)
		case models.GenderFemale:
			female = append(female, e.GapPercent)
		}
	}

	summarize := func(gaps []float64) GenderGapSummary {
		if len(gaps) == 0 {
			return GenderGapSummary{}
		}
		return GenderGapSummary{
			Count:             len(gaps),
			AverageGapPercent: stats.Mean(gaps),
			MedianGapPercent:  stats.Median(gaps),
		}
	}

	ga := GenderAnalysis{Male: summarize(male), Female: summarize(female)}
	if ga.Male.Count > 0 && ga.Female.Count > 0 {
		d := ga.Female.AverageGapPercent - ga.Male.AverageGapPercent
		ga.Disparity = &d
		ga.DisparitySignificant = math.Abs(d) > DisparitySignificanceThreshold
	}
	return ga
}
