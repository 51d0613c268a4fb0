package simulation

import (
	"math"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
)

// ConvergenceConfig controls early termination of a simulation.
type ConvergenceConfig struct {
	// Enabled turns the convergence check on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Lookback is the number of most recent snapshots compared.
	Lookback int `json:"lookback" yaml:"lookback"`

	// GiniThreshold is the minimum Gini reduction across the window that
	// still counts as progress.
	GiniThreshold float64 `json:"gini_threshold" yaml:"gini_threshold"`

	// GapThreshold is the minimum reduction in absolute gender gap
	// percentage points across the window that still counts as progress.
	GapThreshold float64 `json:"gap_threshold" yaml:"gap_threshold"`
}

// DefaultConvergenceConfig returns the standard convergence settings.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:       true,
		Lookback:      constants.ConvergenceLookback,
		GiniThreshold: constants.ConvergenceGiniThreshold,
		GapThreshold:  constants.ConvergenceGapThreshold,
	}
}

// ConvergenceCheck explains a convergence decision.
type ConvergenceCheck struct {
	Converged       bool    `json:"converged"`
	GiniImprovement float64 `json:"gini_improvement"`
	GapImprovement  float64 `json:"gap_improvement"`
}

// CheckConvergence reports whether inequality has stopped improving. It is
// only evaluated from cycle Lookback+1 onward; both the Gini and the absolute
// gender gap must have improved by less than their thresholds between the
// first and last of the most recent Lookback snapshots.
func CheckConvergence(progression []models.InequalitySnapshot, cycle int, cfg ConvergenceConfig) ConvergenceCheck {
	if !cfg.Enabled || cfg.Lookback <= 0 {
		return ConvergenceCheck{}
	}
	if cycle < cfg.Lookback+1 || len(progression) < cfg.Lookback {
		return ConvergenceCheck{}
	}

	recent := progression[len(progression)-cfg.Lookback:]
	first, last := recent[0], recent[len(recent)-1]

	check := ConvergenceCheck{
		GiniImprovement: first.GiniCoefficient - last.GiniCoefficient,
		GapImprovement:  math.Abs(first.GenderGapPercent) - math.Abs(last.GenderGapPercent),
	}
	check.Converged = check.GiniImprovement < cfg.GiniThreshold && check.GapImprovement < cfg.GapThreshold
	return check
}
