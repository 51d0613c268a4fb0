// Package constants provides named constants used throughout the paysim codebase.
// This centralizes the organisational policy numbers the generator, review
// engine and simulator agree on.
package constants

import "github.com/nvandessel/paysim/internal/models"

// DefaultLevelDistribution is the headcount share for levels 1..6.
var DefaultLevelDistribution = []float64{0.25, 0.25, 0.20, 0.15, 0.10, 0.05}

// LevelDistributionTolerance is how far a level distribution may sum from 1.0.
const LevelDistributionTolerance = 0.001

// DefaultSalaryConstraints returns a fresh copy of the default per-level bands.
func DefaultSalaryConstraints() map[int]models.SalaryBand {
	return map[int]models.SalaryBand{
		1: {Min: 28000, Max: 35000, MedianTarget: 30000},
		2: {Min: 45000, Max: 72000, MedianTarget: 60000},
		3: {Min: 72000, Max: 95000, MedianTarget: 83939},
		4: {Min: 76592, Max: 103624, MedianTarget: 90108},
		5: {Min: 76592, Max: 103624, MedianTarget: 90108},
		6: {Min: 76592, Max: 103624, MedianTarget: 90108},
	}
}

// Gender draw weights.
const (
	MaleProbability   = 0.65
	FemaleProbability = 0.35
)

// Median-constrained sampling.
const (
	// MedianMaxIterations bounds the nudging loop for one level.
	MedianMaxIterations = 100

	// MedianTolerance is the acceptable absolute distance from the median target.
	MedianTolerance = 50.0

	// MedianStep is the fraction of the median error applied per iteration.
	MedianStep = 0.1
)

// NegotiationPolicy describes how many hires at a level negotiated a higher
// starting salary and by how much.
type NegotiationPolicy struct {
	Rate     float64
	BoostMin float64
	BoostMax float64

	// ExtendCap lets boosted salaries exceed the band maximum by up to BoostMax.
	ExtendCap bool
}

// NegotiationPolicies is keyed by level.
var NegotiationPolicies = map[int]NegotiationPolicy{
	1: {Rate: 0.05, BoostMin: 2000, BoostMax: 5000},
	2: {Rate: 0.15, BoostMin: 3000, BoostMax: 8000},
	3: {Rate: 0.30, BoostMin: 5000, BoostMax: 18000, ExtendCap: true},
	4: {Rate: 0.25, BoostMin: 2000, BoostMax: 10000},
	5: {Rate: 0.20, BoostMin: 2000, BoostMax: 10000},
	6: {Rate: 0.15, BoostMin: 2000, BoostMax: 10000},
}

// Inequality injection.
const (
	// MaleGapShare and FemaleGapShare split an injected gender gap between genders.
	MaleGapShare   = 0.6
	FemaleGapShare = 0.4

	// Default pattern applied when no explicit gap is requested.
	DefaultMaleBoostProbability     = 0.3
	DefaultMaleBoostFactor          = 1.05
	DefaultFemalePenaltyProbability = 0.2
	DefaultFemalePenaltyFactor      = 0.95

	// Level exceptions: a share of core staff paid above band, a share of
	// senior staff paid below.
	CoreExceptionShare   = 0.10
	CoreExceptionMean    = 5000.0
	CoreExceptionStd     = 2000.0
	SeniorExceptionShare = 0.15
	SeniorExceptionMean  = 8000.0
	SeniorExceptionStd   = 3000.0
)

// Senior (levels 4-6) median enforcement after inequality injection.
const (
	SeniorMedianTarget = 90108.0
	SeniorSalaryMin    = 76591.80
	SeniorSalaryMax    = 103624.20
)

// Hire-date window relative to generation time.
const (
	HireWindowDays  = 5 * 365
	HireRecencyDays = 30
)

// CategoryWeights holds the rating distribution for core and senior staff,
// ordered as models.Ratings.
type CategoryWeights map[models.Category][]float64

// InitialRatingWeights seed performance ratings at generation time.
var InitialRatingWeights = CategoryWeights{
	models.CategoryCore:   {0.05, 0.10, 0.60, 0.20, 0.05},
	models.CategorySenior: {0.02, 0.08, 0.50, 0.30, 0.10},
}

// ReviewRatingWeights are used by the review engine for fresh rating draws.
var ReviewRatingWeights = CategoryWeights{
	models.CategoryCore:   {0.05, 0.15, 0.55, 0.22, 0.03},
	models.CategorySenior: {0.02, 0.08, 0.40, 0.40, 0.10},
}

// Simulation defaults.
const (
	DefaultCycles                 = 5
	MaxCycles                     = 50
	DefaultPerformanceConsistency = 0.7

	// A rating evolving under the similar-rating rule stays put with
	// RatingStayProbability and steps down with the next RatingStepDownProbability.
	RatingStayProbability     = 0.8
	RatingStepDownProbability = 0.1

	ConvergenceLookback      = 3
	ConvergenceGiniThreshold = 0.001
	ConvergenceGapThreshold  = 0.1
)

// Analysis defaults.
const (
	DefaultMinGapPercent    = 5.0
	DefaultTargetGapPercent = 0.0
	DefaultMaxYears         = 5
	DefaultBudgetConstraint = 0.005

	// DefaultTenureYears stands in when a hire date is missing.
	DefaultTenureYears = 2.5
)
