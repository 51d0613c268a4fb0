package population

import (
	"math"
	"slices"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/stats"
)

// Summary describes a population for logs and reports.
type Summary struct {
	Total            int                       `json:"total"`
	SalaryMin        float64                   `json:"salary_min"`
	SalaryMax        float64                   `json:"salary_max"`
	MedianSalary     float64                   `json:"median_salary"`
	LevelStatistics  map[int]models.LevelStats `json:"level_statistics"`
	GenderCounts     map[models.Gender]int     `json:"gender_counts"`
	MaleMedian       float64                   `json:"male_median"`
	FemaleMedian     float64                   `json:"female_median"`
	GenderGapPercent float64                   `json:"gender_gap_percent"`
}

// Levels returns the levels present in the summary in ascending order.
func (s Summary) Levels() []int {
	levels := make([]int, 0, len(s.LevelStatistics))
	for level := range s.LevelStatistics {
		levels = append(levels, level)
	}
	slices.Sort(levels)
	return levels
}

// Summarize computes headline statistics for pop.
func Summarize(pop models.Population) Summary {
	salaries := pop.Salaries()
	lo, hi := stats.MinMax(salaries)
	s := Summary{
		Total:           len(pop),
		SalaryMin:       lo,
		SalaryMax:       hi,
		MedianSalary:    stats.Median(salaries),
		LevelStatistics: LevelStatistics(pop),
		GenderCounts:    make(map[models.Gender]int),
	}
	for _, e := range pop {
		s.GenderCounts[e.Gender]++
	}

	male, female := pop.SalariesByGender()
	s.MaleMedian = stats.Median(male)
	s.FemaleMedian = stats.Median(female)
	if gap, ok := stats.GenderGapPercent(male, female); ok {
		s.GenderGapPercent = gap
	}
	return s
}

// LevelStatistics computes count, median, mean and std per level.
func LevelStatistics(pop models.Population) map[int]models.LevelStats {
	out := make(map[int]models.LevelStats)
	for level, members := range pop.ByLevel() {
		salaries := members.Salaries()
		out[level] = models.LevelStats{
			Count:  len(members),
			Median: stats.Median(salaries),
			Mean:   stats.Mean(salaries),
			Std:    stats.Std(salaries),
		}
	}
	return out
}

// SeniorMedianCheck is the outcome of ValidateSalaryConstraints.
type SeniorMedianCheck struct {
	SeniorCount  int     `json:"senior_count"`
	SeniorMedian float64 `json:"senior_median"`
	Target       float64 `json:"target"`
	Difference   float64 `json:"difference"`
	Passed       bool    `json:"passed"`
}

// ValidateSalaryConstraints checks that the levels 4-6 median sits within
// tolerance of the senior target. A population without seniors fails.
func ValidateSalaryConstraints(pop models.Population) SeniorMedianCheck {
	var senior []float64
	for _, e := range pop {
		if models.CategoryForLevel(e.Level) == models.CategorySenior {
			senior = append(senior, e.Salary)
		}
	}
	check := SeniorMedianCheck{SeniorCount: len(senior), Target: constants.SeniorMedianTarget}
	if len(senior) == 0 {
		return check
	}
	check.SeniorMedian = stats.Median(senior)
	check.Difference = math.Abs(check.SeniorMedian - check.Target)
	check.Passed = check.Difference <= constants.MedianTolerance
	return check
}
