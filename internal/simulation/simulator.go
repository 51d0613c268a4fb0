package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/logging"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
	"github.com/nvandessel/paysim/internal/review"
)

// ErrInvalidRun is wrapped by errors caused by bad Run arguments.
var ErrInvalidRun = errors.New("invalid simulation run")

// Config configures a Simulator.
type Config struct {
	RandomSeed int64

	// Convergence enables early termination. The zero value disables it.
	Convergence ConvergenceConfig

	// Now stamps snapshots. Defaults to time.Now.
	Now func() time.Time

	Logger    *slog.Logger
	Decisions *logging.DecisionLogger
}

// Result is the outcome of Run.
type Result struct {
	// Progression holds one snapshot per completed cycle, starting at cycle 0.
	Progression []models.InequalitySnapshot `json:"inequality_progression"`

	// CycleHistory holds the review records produced by each cycle.
	CycleHistory [][]models.ReviewRecord `json:"cycle_history"`

	// Converged is true when the run stopped before the requested cycle count.
	Converged      bool `json:"converged"`
	ConvergedCycle int  `json:"converged_cycle,omitempty"`

	// FinalPopulation is a copy of the population after the last cycle.
	FinalPopulation models.Population `json:"final_population"`
}

// Simulator runs review cycles over a privately owned copy of a population.
// It is not safe for concurrent use.
type Simulator struct {
	population models.Population
	rng        *randutil.RNG
	engine     *review.Engine
	cfg        Config
	logger     *slog.Logger
	decisions  *logging.DecisionLogger
}

// NewSimulator validates initial and deep-copies it. The caller's population
// is never mutated.
func NewSimulator(initial models.Population, cfg Config) (*Simulator, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial population: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rng := randutil.New(cfg.RandomSeed)
	s := &Simulator{
		population: initial.Clone(),
		rng:        rng,
		engine:     review.NewEngine(rng, logger),
		cfg:        cfg,
		logger:     logger,
		decisions:  cfg.Decisions,
	}
	logger.Info("initialized review cycle simulator", "employees", len(s.population), "seed", cfg.RandomSeed)
	return s, nil
}

// Population returns a copy of the simulator's current population.
func (s *Simulator) Population() models.Population {
	return s.population.Clone()
}

// Run simulates up to numCycles review cycles. consistency is the
// probability that an employee with review history keeps a rating close to
// their current one.
func (s *Simulator) Run(numCycles int, consistency float64) (*Result, error) {
	if numCycles < 0 {
		return nil, fmt.Errorf("%w: cycles must be non-negative, got %d", ErrInvalidRun, numCycles)
	}
	if consistency < 0 || consistency > 1 {
		return nil, fmt.Errorf("%w: performance consistency must be in [0, 1], got %v", ErrInvalidRun, consistency)
	}

	s.logger.Info("starting simulation",
		"cycles", numCycles, "employees", len(s.population), "performance_consistency", consistency)

	initial, err := ComputeMetrics(s.population, 0, s.cfg.Now())
	if err != nil {
		return nil, err
	}
	result := &Result{Progression: []models.InequalitySnapshot{initial}}
	s.logSnapshot(initial)

	for cycle := 1; cycle <= numCycles; cycle++ {
		s.evolveRatings(consistency)

		records, err := s.engine.ApplyUplifts(s.population, cycle)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		result.CycleHistory = append(result.CycleHistory, records)

		snap, err := ComputeMetrics(s.population, cycle, s.cfg.Now())
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		result.Progression = append(result.Progression, snap)
		s.logSnapshot(snap)

		check := CheckConvergence(result.Progression, cycle, s.cfg.Convergence)
		if check.Converged {
			s.logger.Info("inequality metrics converged", "cycle", cycle,
				"gini_improvement", check.GiniImprovement, "gap_improvement", check.GapImprovement)
			s.decisions.Log(map[string]any{
				"event":            "convergence",
				"cycle":            cycle,
				"gini_improvement": check.GiniImprovement,
				"gap_improvement":  check.GapImprovement,
			})
			result.Converged = true
			result.ConvergedCycle = cycle
			break
		}
	}

	result.FinalPopulation = s.population.Clone()

	analysis := FinalAnalysis(result.Progression)
	s.logger.Info("simulation complete",
		"cycles", analysis.TotalCycles,
		"gini_reduction_percent", analysis.GiniReductionPercent,
		"gender_gap_reduction", analysis.GenderGapReduction,
		"median_salary_increase", analysis.MedianSalaryIncrease)

	return result, nil
}

// evolveRatings moves each rating for the coming cycle. Employees with
// review history keep a similar rating with probability consistency; all
// others receive a fresh draw.
func (s *Simulator) evolveRatings(consistency float64) {
	consistent, changed := 0, 0
	for i := range s.population {
		emp := &s.population[i]
		if len(emp.ReviewHistory) > 0 && s.rng.Float64() < consistency {
			emp.PerformanceRating = s.similarRating(emp.PerformanceRating)
			consistent++
			continue
		}
		emp.PerformanceRating = s.engine.DrawRating(emp.Level)
		changed++
	}
	s.logger.Debug("performance evolution", "consistent", consistent, "changed", changed)
}

// similarRating keeps the rating with probability 0.8 and otherwise moves it
// one step down or up, clamped at the ends of the scale.
func (s *Simulator) similarRating(current models.Rating) models.Rating {
	r := s.rng.Float64()
	switch {
	case r < constants.RatingStayProbability:
		return current
	case r < constants.RatingStayProbability+constants.RatingStepDownProbability:
		return current.Step(-1)
	default:
		return current.Step(1)
	}
}

func (s *Simulator) logSnapshot(snap models.InequalitySnapshot) {
	s.logger.Info("cycle metrics",
		"cycle", snap.Cycle,
		"gini", snap.GiniCoefficient,
		"gender_gap_percent", snap.GenderGapPercent,
		"median_salary", snap.MedianSalary,
		"performance_salary_correlation", snap.PerformanceSalaryCorrelation)
	s.decisions.Log(map[string]any{
		"event":              "cycle_metrics",
		"cycle":              snap.Cycle,
		"gini_coefficient":   snap.GiniCoefficient,
		"gender_gap_percent": snap.GenderGapPercent,
		"median_salary":      snap.MedianSalary,
		"population_size":    snap.PopulationSize,
	})
}
