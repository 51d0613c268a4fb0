package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/paysim/internal/models"
)

// AssertProgressionLength asserts the run produced exactly want snapshots
// numbered 0..want-1.
func AssertProgressionLength(t *testing.T, result *Result, want int) {
	t.Helper()
	if len(result.Progression) != want {
		t.Fatalf("AssertProgressionLength: got %d snapshots, want %d", len(result.Progression), want)
	}
	for i, snap := range result.Progression {
		if snap.Cycle != i {
			t.Errorf("AssertProgressionLength: snapshot %d has cycle %d", i, snap.Cycle)
		}
	}
}

// AssertGiniBounded asserts every snapshot's Gini lies in [0, 1].
func AssertGiniBounded(t *testing.T, result *Result) {
	t.Helper()
	for _, snap := range result.Progression {
		if snap.GiniCoefficient < 0 || snap.GiniCoefficient > 1 {
			t.Errorf("AssertGiniBounded: cycle %d: gini %.6f outside [0, 1]", snap.Cycle, snap.GiniCoefficient)
		}
	}
}

// AssertGiniStepBounded asserts that the Gini never moves by more than
// maxStep between consecutive cycles.
func AssertGiniStepBounded(t *testing.T, result *Result, maxStep float64) {
	t.Helper()
	for i := 1; i < len(result.Progression); i++ {
		prev, cur := result.Progression[i-1], result.Progression[i]
		if d := math.Abs(cur.GiniCoefficient - prev.GiniCoefficient); d > maxStep {
			t.Errorf("AssertGiniStepBounded: cycle %d: gini moved %.6f (max %.6f)", cur.Cycle, d, maxStep)
		}
	}
}

// AssertHistoryAppendOnly asserts every employee has exactly cycles review
// records with strictly increasing review years, each continuing from the
// previous record's salary.
func AssertHistoryAppendOnly(t *testing.T, pop models.Population, cycles int) {
	t.Helper()
	for _, e := range pop {
		if len(e.ReviewHistory) != cycles {
			t.Errorf("AssertHistoryAppendOnly: employee %d has %d records, want %d", e.EmployeeID, len(e.ReviewHistory), cycles)
			continue
		}
		for i := 1; i < len(e.ReviewHistory); i++ {
			prev, cur := e.ReviewHistory[i-1], e.ReviewHistory[i]
			if cur.ReviewYear <= prev.ReviewYear {
				t.Errorf("AssertHistoryAppendOnly: employee %d: year %d follows %d", e.EmployeeID, cur.ReviewYear, prev.ReviewYear)
			}
			if cur.OldSalary != prev.NewSalary {
				t.Errorf("AssertHistoryAppendOnly: employee %d: cycle salary %.2f does not continue from %.2f",
					e.EmployeeID, cur.OldSalary, prev.NewSalary)
			}
		}
		if n := len(e.ReviewHistory); n > 0 && e.ReviewHistory[n-1].NewSalary != e.Salary {
			t.Errorf("AssertHistoryAppendOnly: employee %d: salary %.2f differs from last record %.2f",
				e.EmployeeID, e.Salary, e.ReviewHistory[n-1].NewSalary)
		}
	}
}

// AssertPopulationUnchanged asserts that after has the same salaries and
// empty histories as before.
func AssertPopulationUnchanged(t *testing.T, before, after models.Population) {
	t.Helper()
	if len(before) != len(after) {
		t.Fatalf("AssertPopulationUnchanged: length %d, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i].Salary != after[i].Salary || before[i].PerformanceRating != after[i].PerformanceRating {
			t.Errorf("AssertPopulationUnchanged: employee %d changed", before[i].EmployeeID)
		}
		if len(after[i].ReviewHistory) != len(before[i].ReviewHistory) {
			t.Errorf("AssertPopulationUnchanged: employee %d history grew to %d", before[i].EmployeeID, len(after[i].ReviewHistory))
		}
	}
}
