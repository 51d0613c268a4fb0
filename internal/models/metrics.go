package models

import "time"

// SalaryBand is the configured salary range and median target for a level.
type SalaryBand struct {
	Min          float64 `json:"min" yaml:"min"`
	Max          float64 `json:"max" yaml:"max"`
	MedianTarget float64 `json:"median_target" yaml:"median_target"`
}

// LevelStats summarises salaries within a single level.
type LevelStats struct {
	Count  int     `json:"count"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// InequalitySnapshot is the metric set computed after each simulation cycle.
// Cycle 0 describes the initial population.
type InequalitySnapshot struct {
	Cycle                        int                `json:"cycle"`
	GiniCoefficient              float64            `json:"gini_coefficient"`
	CoefficientOfVariation       float64            `json:"coefficient_of_variation"`
	MedianSalary                 float64            `json:"median_salary"`
	MeanSalary                   float64            `json:"mean_salary"`
	SalaryRange                  float64            `json:"salary_range"`
	SalaryStd                    float64            `json:"salary_std"`
	GenderGapPercent             float64            `json:"gender_gap_percent"`
	GenderGapByLevel             map[int]float64    `json:"gender_gap_by_level"`
	PerformanceSalaryCorrelation float64            `json:"performance_salary_correlation"`
	LevelSalaryCorrelation       float64            `json:"level_salary_correlation"`
	LevelStatistics              map[int]LevelStats `json:"level_statistics"`
	PopulationSize               int                `json:"population_size"`
	Timestamp                    time.Time          `json:"timestamp"`
}
