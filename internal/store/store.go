// Package store persists simulation runs: the initial and final population,
// per-cycle review records and the inequality progression.
package store

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/sanitize"
	"github.com/nvandessel/paysim/internal/simulation"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is a complete simulation run as persisted.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label,omitempty"`

	RandomSeed             int64   `json:"random_seed"`
	CyclesRequested        int     `json:"cycles_requested"`
	PerformanceConsistency float64 `json:"performance_consistency"`

	Converged      bool `json:"converged"`
	ConvergedCycle int  `json:"converged_cycle,omitempty"`

	Initial models.Population `json:"initial_population"`
	Final   models.Population `json:"final_population"`

	// Reviews holds the review records of cycle i+1 at index i.
	Reviews   [][]models.ReviewRecord     `json:"reviews"`
	Snapshots []models.InequalitySnapshot `json:"snapshots"`
}

// RunParams are the inputs of a simulation worth keeping with its result.
type RunParams struct {
	// ID replaces the generated id when set.
	ID                     string
	Label                  string
	RandomSeed             int64
	CyclesRequested        int
	PerformanceConsistency float64
}

// NewRun assembles a Run from a simulation result, generating an id unless
// p.ID is set. The label is sanitized. Review records are rounded to pennies
// here, never inside the simulation.
func NewRun(p RunParams, initial models.Population, result *simulation.Result) *Run {
	run := &Run{
		ID:                     cmp.Or(p.ID, uuid.NewString()),
		CreatedAt:              time.Now().UTC(),
		Label:                  sanitize.Label(p.Label),
		RandomSeed:             p.RandomSeed,
		CyclesRequested:        p.CyclesRequested,
		PerformanceConsistency: p.PerformanceConsistency,
		Initial:                initial.Clone(),
	}
	if result == nil {
		run.Final = initial.Clone()
		return run
	}
	run.Converged = result.Converged
	run.ConvergedCycle = result.ConvergedCycle
	run.Final = result.FinalPopulation.Clone()
	run.Snapshots = result.Progression
	run.Reviews = make([][]models.ReviewRecord, len(result.CycleHistory))
	for i, records := range result.CycleHistory {
		run.Reviews[i] = RoundReviews(records)
	}
	return run
}

// CyclesCompleted is the number of review cycles the run actually applied.
func (r *Run) CyclesCompleted() int {
	return len(r.Reviews)
}

// Summary returns the listing view of the run.
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		Label:           r.Label,
		RandomSeed:      r.RandomSeed,
		PopulationSize:  len(r.Initial),
		CyclesRequested: r.CyclesRequested,
		CyclesCompleted: r.CyclesCompleted(),
		Converged:       r.Converged,
	}
	if n := len(r.Snapshots); n > 0 {
		s.FinalGini = r.Snapshots[n-1].GiniCoefficient
		s.FinalGenderGap = r.Snapshots[n-1].GenderGapPercent
	}
	return s
}

// RunSummary is a run without its populations and history.
type RunSummary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Label           string    `json:"label,omitempty"`
	RandomSeed      int64     `json:"random_seed"`
	PopulationSize  int       `json:"population_size"`
	CyclesRequested int       `json:"cycles_requested"`
	CyclesCompleted int       `json:"cycles_completed"`
	Converged       bool      `json:"converged"`
	FinalGini       float64   `json:"final_gini"`
	FinalGenderGap  float64   `json:"final_gender_gap_percent"`
}

// RunStore persists simulation runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns summaries, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
	DeleteRun(ctx context.Context, id string) error
	Close() error
}

// Pennies rounds a currency amount to two decimal places, half away from zero.
func Pennies(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// RoundReviews returns a copy of records with every currency field rounded
// to pennies. Uplift fractions are left untouched.
func RoundReviews(records []models.ReviewRecord) []models.ReviewRecord {
	out := make([]models.ReviewRecord, len(records))
	for i, r := range records {
		r.OldSalary = Pennies(r.OldSalary)
		r.NewSalary = Pennies(r.NewSalary)
		out[i] = r
	}
	return out
}
