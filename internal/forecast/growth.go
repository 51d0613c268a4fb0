// Package forecast projects salaries forward: compound growth arithmetic,
// scenario-driven performance paths and per-employee progression analysis
// built on the annual uplift table.
package forecast

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
	"github.com/nvandessel/paysim/internal/review"
	"github.com/nvandessel/paysim/internal/stats"
)

const (
	// DefaultConfidenceLevel is the two-sided confidence used for intervals.
	DefaultConfidenceLevel = 0.95

	// MinMarketBoost and MaxMarketBoost bound a one-off market adjustment.
	MinMarketBoost = 0.02
	MaxMarketBoost = 0.04

	// MedianGrowthPremium is how far level medians outgrow inflation.
	MedianGrowthPremium = 0.01
)

// ErrInvalidInput is wrapped by every error caused by out-of-domain arguments.
var ErrInvalidInput = errors.New("invalid forecast input")

// CAGR returns the compound annual growth rate taking start to end over years.
func CAGR(start, end, years float64) (float64, error) {
	if !(start > 0 && end > 0 && years > 0) {
		return 0, fmt.Errorf("%w: cagr needs positive start, end and years, got %v, %v, %v", ErrInvalidInput, start, end, years)
	}
	return math.Pow(end/start, 1/years) - 1, nil
}

// CompoundGrowth returns initial grown at rate for years.
func CompoundGrowth(initial, rate, years float64) (float64, error) {
	if !(initial > 0) || !(years >= 0) || math.IsNaN(rate) {
		return 0, fmt.Errorf("%w: compound growth needs positive initial and non-negative years, got %v, %v", ErrInvalidInput, initial, years)
	}
	return initial * math.Pow(1+rate, years), nil
}

// TimeToTarget returns the years needed for current to reach target growing
// at rate.
func TimeToTarget(current, target, rate float64) (float64, error) {
	switch {
	case !(current > 0):
		return 0, fmt.Errorf("%w: current salary must be positive, got %v", ErrInvalidInput, current)
	case !(target > current):
		return 0, fmt.Errorf("%w: target %v must exceed current %v", ErrInvalidInput, target, current)
	case !(rate > 0):
		return 0, fmt.Errorf("%w: growth rate must be positive, got %v", ErrInvalidInput, rate)
	}
	return math.Log(target/current) / math.Log(1+rate), nil
}

// UpliftedSalary returns salary after one annual review at level with rating.
func UpliftedSalary(salary float64, level int, rating models.Rating) (float64, error) {
	if !(salary > 0) {
		return 0, fmt.Errorf("%w: salary must be positive, got %v", ErrInvalidInput, salary)
	}
	res, err := review.CalculateSalaryUplift(models.Employee{Level: level, Salary: salary, PerformanceRating: rating})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return res.NewSalary, nil
}

// Interval is a closed range of values.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ConfidenceInterval returns the t interval for the mean of values. A single
// value yields a zero-width interval.
func ConfidenceInterval(values []float64, confidence float64) (Interval, error) {
	if len(values) == 0 {
		return Interval{}, fmt.Errorf("%w: no values for confidence interval", ErrInvalidInput)
	}
	if !(confidence > 0 && confidence < 1) {
		return Interval{}, fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidInput, confidence)
	}
	lo, hi := stats.MeanConfidenceInterval(values, confidence)
	return Interval{Lower: lo, Upper: hi}, nil
}

// ApplyMarketAdjustments returns a copy of path where each listed year that
// falls inside the path receives a boost drawn from
// [MinMarketBoost, MaxMarketBoost). A boost carries into every later year.
func ApplyMarketAdjustments(path []float64, years []int, rng *randutil.RNG) []float64 {
	out := slices.Clone(path)
	for _, y := range years {
		if y < 0 || y >= len(out) {
			continue
		}
		boost := 1 + rng.Uniform(MinMarketBoost, MaxMarketBoost)
		for i := y; i < len(out); i++ {
			out[i] *= boost
		}
	}
	return out
}

// LevelProgression is the projected median of one level, year 0 first.
type LevelProgression struct {
	Level   int       `json:"level"`
	Medians []float64 `json:"medians"`
}

// MedianProgression projects every level median forward for years, growing
// at inflation plus MedianGrowthPremium. Levels are returned in order.
func MedianProgression(pop models.Population, years int, inflation float64) ([]LevelProgression, error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	if years < 0 || math.IsNaN(inflation) {
		return nil, fmt.Errorf("%w: years must be non-negative, got %d", ErrInvalidInput, years)
	}
	rate := 1 + inflation + MedianGrowthPremium

	var out []LevelProgression
	for level, members := range pop.ByLevel() {
		base := stats.Median(members.Salaries())
		medians := make([]float64, years+1)
		for y := range medians {
			medians[y] = base * math.Pow(rate, float64(y))
		}
		out = append(out, LevelProgression{Level: level, Medians: medians})
	}
	slices.SortFunc(out, func(a, b LevelProgression) int { return cmp.Compare(a.Level, b.Level) })
	return out, nil
}
