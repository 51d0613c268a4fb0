package simulation

import (
	"time"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/stats"
)

// ComputeMetrics computes the inequality snapshot for pop at cycle. Empty
// populations yield zero-valued metrics. Every employee must carry a valid
// level, gender and rating.
func ComputeMetrics(pop models.Population, cycle int, now time.Time) (models.InequalitySnapshot, error) {
	snap := models.InequalitySnapshot{
		Cycle:            cycle,
		GenderGapByLevel: make(map[int]float64),
		LevelStatistics:  make(map[int]models.LevelStats),
		PopulationSize:   len(pop),
		Timestamp:        now,
	}
	if len(pop) == 0 {
		return snap, nil
	}
	if err := pop.Validate(); err != nil {
		return models.InequalitySnapshot{}, err
	}

	salaries := pop.Salaries()
	snap.GiniCoefficient = stats.Gini(salaries)
	snap.CoefficientOfVariation = stats.CoefficientOfVariation(salaries)
	snap.MedianSalary = stats.Median(salaries)
	snap.MeanSalary = stats.Mean(salaries)
	snap.SalaryStd = stats.Std(salaries)
	lo, hi := stats.MinMax(salaries)
	snap.SalaryRange = hi - lo

	male, female := pop.SalariesByGender()
	if gap, ok := stats.GenderGapPercent(male, female); ok {
		snap.GenderGapPercent = gap
	}

	for level, members := range pop.ByLevel() {
		m, f := members.SalariesByGender()
		if gap, ok := stats.GenderGapPercent(m, f); ok {
			snap.GenderGapByLevel[level] = gap
		}
	}
	snap.LevelStatistics = population.LevelStatistics(pop)

	ratings := make([]float64, len(pop))
	levels := make([]float64, len(pop))
	for i, e := range pop {
		ratings[i] = float64(e.PerformanceRating.Score())
		levels[i] = float64(e.Level)
	}
	snap.PerformanceSalaryCorrelation = stats.Pearson(ratings, salaries)
	snap.LevelSalaryCorrelation = stats.Pearson(levels, salaries)

	return snap, nil
}
