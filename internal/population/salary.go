package population

import (
	"log/slog"
	"math"
	"slices"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
	"github.com/nvandessel/paysim/internal/stats"
)

// MedianResult reports how median-constrained sampling finished.
type MedianResult struct {
	Iterations  int
	Converged   bool
	FinalMedian float64
}

// MedianConstrained draws size salaries from a normal distribution centred on
// band.MedianTarget with std (max-min)/6, then shifts every value by 10% of
// the median error per iteration until the median is within tolerance or
// maxIterations is exhausted. Values always stay within [band.Min, band.Max].
func MedianConstrained(rng *randutil.RNG, band models.SalaryBand, size, maxIterations int, tolerance float64) ([]float64, MedianResult) {
	salaries := rng.Normals(band.MedianTarget, (band.Max-band.Min)/6, size)
	stats.ClipAll(salaries, band.Min, band.Max)

	result := MedianResult{}
	for iter := 0; iter < maxIterations; iter++ {
		median := stats.Median(salaries)
		if math.Abs(median-band.MedianTarget) < tolerance {
			result.Iterations = iter + 1
			result.Converged = true
			break
		}
		adjustment := (band.MedianTarget - median) * constants.MedianStep
		for i := range salaries {
			salaries[i] += adjustment
		}
		stats.ClipAll(salaries, band.Min, band.Max)
		result.Iterations = iter + 1
	}
	result.FinalMedian = stats.Median(salaries)
	return salaries, result
}

// constrainedSalaries generates salaries level by level in ascending order.
func (g *Generator) constrainedSalaries(levels []int) []float64 {
	salaries := make([]float64, len(levels))
	byLevel := levelIndices(levels)

	for level := models.MinLevel; level <= models.MaxLevel; level++ {
		idx := byLevel[level]
		if len(idx) == 0 {
			continue
		}
		band := g.opts.SalaryConstraints[level]

		levelSalaries, res := MedianConstrained(g.rng, band, len(idx),
			g.opts.MedianMaxIterations, g.opts.MedianTolerance)
		if !res.Converged {
			g.logger.Warn("median-constrained sampling did not converge",
				"level", level,
				"final_median", res.FinalMedian,
				"target", band.MedianTarget,
				"iterations", res.Iterations)
		} else {
			g.logger.Debug("median-constrained sampling converged",
				"level", level, "iterations", res.Iterations, "final_median", res.FinalMedian)
		}

		g.applyNegotiation(levelSalaries, level, band)

		for j, i := range idx {
			salaries[i] = levelSalaries[j]
		}

		lo, hi := stats.MinMax(levelSalaries)
		g.logger.Debug("level salaries generated",
			"level", level, "count", len(idx), "min", lo, "max", hi, "median", stats.Median(levelSalaries))
	}
	return salaries
}

// applyNegotiation boosts a random subset of one level's salaries.
func (g *Generator) applyNegotiation(salaries []float64, level int, band models.SalaryBand) {
	policy, ok := constants.NegotiationPolicies[level]
	if !ok {
		return
	}
	count := int(float64(len(salaries)) * policy.Rate)
	if count == 0 {
		return
	}

	chosen := g.rng.Sample(len(salaries), count)
	boosts := make([]float64, count)
	for i := range boosts {
		boosts[i] = g.rng.Uniform(policy.BoostMin, policy.BoostMax)
	}

	ceiling := band.Max
	if policy.ExtendCap {
		ceiling += slices.Max(boosts)
	}
	for j, i := range chosen {
		salaries[i] = stats.Clip(salaries[i]+boosts[j], band.Min, ceiling)
	}

	g.logger.Debug("applied negotiation boosts",
		"level", level, "negotiators", count, "avg_boost", stats.Mean(boosts))
}

// enforceSeniorMedian shifts levels 4-6 so their joint median returns to the
// senior target, then re-clips to the senior bounds.
func (g *Generator) enforceSeniorMedian(salaries []float64, levels []int) {
	var idx []int
	for i, level := range levels {
		if models.CategoryForLevel(level) == models.CategorySenior {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}

	senior := make([]float64, len(idx))
	for j, i := range idx {
		senior[j] = salaries[i]
	}
	current := stats.Median(senior)
	if math.Abs(current-constants.SeniorMedianTarget) <= constants.MedianTolerance {
		return
	}

	adjustment := constants.SeniorMedianTarget - current
	for j, i := range idx {
		salaries[i] = stats.Clip(senior[j]+adjustment, constants.SeniorSalaryMin, constants.SeniorSalaryMax)
		senior[j] = salaries[i]
	}
	g.logger.Debug("adjusted senior median",
		slog.Float64("from", current), slog.Float64("to", stats.Median(senior)))
}
