package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
)

// reference1000 is 1,000 employees generated with seed 42 and a 15% gap.
func reference1000(t *testing.T) models.Population {
	t.Helper()
	gap := 15.0
	pop, err := population.Generate(population.Options{
		PopulationSize:      1000,
		RandomSeed:          42,
		GenderPayGapPercent: &gap,
		Now:                 fixedClock(),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return pop
}

func TestEndToEnd_GenerateThenSimulate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end run in short mode")
	}

	sim, err := NewSimulator(reference1000(t), Config{RandomSeed: 42, Now: fixedClock()})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	result, err := sim.Run(5, 0.7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	AssertProgressionLength(t, result, 6)
	AssertGiniBounded(t, result)
	AssertGiniStepBounded(t, result, 0.02)
	AssertHistoryAppendOnly(t, result.FinalPopulation, 5)

	initial := result.Progression[0]
	// The gap is tied to seed 42; other seeds land further from 15%.
	if math.Abs(initial.GenderGapPercent-15) > 2 {
		t.Errorf("initial gender gap = %.2f%%, want within 2 points of the injected 15%%", initial.GenderGapPercent)
	}
	if initial.PopulationSize != 1000 || result.Progression[5].PopulationSize != 1000 {
		t.Errorf("population size changed during the run")
	}

	analysis := FinalAnalysis(result.Progression)
	if !analysis.Sufficient || analysis.TotalCycles != 5 {
		t.Errorf("analysis = %+v", analysis)
	}
	if analysis.MedianSalaryIncrease <= 0 {
		t.Errorf("median salary increase = %.2f, want positive after five cycles of uplifts", analysis.MedianSalaryIncrease)
	}
}

func TestEndToEnd_DefaultConvergenceStopsEarly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end run in short mode")
	}

	sim, err := NewSimulator(reference1000(t), Config{
		RandomSeed:  42,
		Convergence: DefaultConvergenceConfig(),
		Now:         fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	result, err := sim.Run(5, 0.7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Gini creeps up under the uplift table, so there is no improvement to
	// wait for and the first eligible check stops the run.
	if !result.Converged || result.ConvergedCycle != 4 {
		t.Fatalf("Converged = %v at cycle %d, want convergence at cycle 4", result.Converged, result.ConvergedCycle)
	}
	AssertProgressionLength(t, result, 5)
	AssertHistoryAppendOnly(t, result.FinalPopulation, 4)

	first, last := result.Progression[0], result.Progression[len(result.Progression)-1]
	if last.GiniCoefficient < first.GiniCoefficient {
		t.Errorf("Gini fell from %.5f to %.5f, want the uplift table to widen dispersion", first.GiniCoefficient, last.GiniCoefficient)
	}
}
