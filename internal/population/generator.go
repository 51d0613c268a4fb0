// Package population generates synthetic employee populations with
// level-constrained salaries, negotiation effects and configurable
// gender pay inequality.
package population

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
)

// ErrInvalidConfig is wrapped by every configuration error returned from this package.
var ErrInvalidConfig = errors.New("invalid population config")

// MaxGenderPayGapPercent bounds the requested gender pay gap.
const MaxGenderPayGapPercent = 50.0

// Options configures a Generator. Zero values select defaults.
type Options struct {
	PopulationSize int
	RandomSeed     int64

	// LevelDistribution is the headcount share for levels 1..6.
	LevelDistribution []float64

	// GenderPayGapPercent injects an explicit gap when non-nil. When nil a
	// default random advantage/disadvantage pattern is applied instead.
	GenderPayGapPercent *float64

	SalaryConstraints map[int]models.SalaryBand

	// MedianMaxIterations and MedianTolerance bound median-constrained sampling.
	MedianMaxIterations int
	MedianTolerance     float64

	// Now anchors hire dates. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LevelDistribution == nil {
		o.LevelDistribution = constants.DefaultLevelDistribution
	}
	if o.SalaryConstraints == nil {
		o.SalaryConstraints = constants.DefaultSalaryConstraints()
	}
	if o.MedianMaxIterations <= 0 {
		o.MedianMaxIterations = constants.MedianMaxIterations
	}
	if o.MedianTolerance <= 0 {
		o.MedianTolerance = constants.MedianTolerance
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Validate reports configuration errors. All returned errors wrap ErrInvalidConfig.
func (o Options) Validate() error {
	if o.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be positive, got %d", ErrInvalidConfig, o.PopulationSize)
	}

	if o.LevelDistribution != nil {
		if len(o.LevelDistribution) != models.MaxLevel {
			return fmt.Errorf("%w: level distribution must have exactly %d values, got %d",
				ErrInvalidConfig, models.MaxLevel, len(o.LevelDistribution))
		}
		sum := 0.0
		for i, w := range o.LevelDistribution {
			if !(w >= 0) {
				return fmt.Errorf("%w: level %d weight must be non-negative, got %v", ErrInvalidConfig, i+1, w)
			}
			sum += w
		}
		if !(math.Abs(sum-1) <= constants.LevelDistributionTolerance) {
			return fmt.Errorf("%w: level distribution must sum to 1.0, got %v", ErrInvalidConfig, sum)
		}
	}

	if o.GenderPayGapPercent != nil {
		gap := *o.GenderPayGapPercent
		if !(gap >= 0 && gap <= MaxGenderPayGapPercent) {
			return fmt.Errorf("%w: gender pay gap percent must be between 0 and %v, got %v",
				ErrInvalidConfig, MaxGenderPayGapPercent, gap)
		}
	}

	if o.SalaryConstraints != nil {
		for level := models.MinLevel; level <= models.MaxLevel; level++ {
			band, ok := o.SalaryConstraints[level]
			if !ok {
				return fmt.Errorf("%w: salary constraints missing level %d", ErrInvalidConfig, level)
			}
			if !(band.Min > 0 && band.Min <= band.Max) {
				return fmt.Errorf("%w: level %d salary band min %v / max %v is invalid",
					ErrInvalidConfig, level, band.Min, band.Max)
			}
			if !(band.MedianTarget >= band.Min && band.MedianTarget <= band.Max) {
				return fmt.Errorf("%w: level %d median target %v outside [%v, %v]",
					ErrInvalidConfig, level, band.MedianTarget, band.Min, band.Max)
			}
		}
	}

	return nil
}

// Generator produces one population per call from a single seeded RNG.
type Generator struct {
	opts   Options
	rng    *randutil.RNG
	logger *slog.Logger
}

// NewGenerator validates opts and returns a Generator seeded from opts.RandomSeed.
func NewGenerator(opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return &Generator{
		opts:   opts,
		rng:    randutil.New(opts.RandomSeed),
		logger: opts.Logger,
	}, nil
}

// Generate is shorthand for NewGenerator(opts) followed by Generate.
func Generate(opts Options) (models.Population, error) {
	g, err := NewGenerator(opts)
	if err != nil {
		return nil, err
	}
	return g.Generate(), nil
}

// Generate builds a population. Draws happen in a fixed order: levels,
// genders, per-level salaries with negotiation, inequality patterns, level
// exceptions, hire dates, then initial ratings.
func (g *Generator) Generate() models.Population {
	n := g.opts.PopulationSize
	g.logger.Info("generating employee population", "size", n, "seed", g.opts.RandomSeed)
	if g.opts.GenderPayGapPercent != nil {
		g.logger.Info("target gender pay gap", "percent", *g.opts.GenderPayGapPercent)
	}

	levels := g.drawLevels(n)
	genders := g.drawGenders(n)

	salaries := g.constrainedSalaries(levels)
	g.applyInequality(salaries, genders, levels)
	g.applyLevelExceptions(salaries, levels)
	g.enforceSeniorMedian(salaries, levels)

	hireDates := g.hireDates(n)

	pop := make(models.Population, n)
	for i := range pop {
		pop[i] = models.Employee{
			EmployeeID:        i + 1,
			Level:             levels[i],
			Salary:            salaries[i],
			Gender:            genders[i],
			PerformanceRating: g.initialRating(levels[i]),
			HireDate:          hireDates[i],
		}
	}

	summary := Summarize(pop)
	g.logger.Info("generated employee population",
		"employees", summary.Total,
		"salary_min", summary.SalaryMin,
		"salary_max", summary.SalaryMax,
		"median_salary", summary.MedianSalary,
		"gender_gap_percent", summary.GenderGapPercent)
	for _, level := range summary.Levels() {
		ls := summary.LevelStatistics[level]
		g.logger.Debug("level statistics",
			"level", level, "category", models.CategoryForLevel(level),
			"count", ls.Count, "median", ls.Median, "mean", ls.Mean)
	}

	return pop
}

func (g *Generator) drawLevels(n int) []int {
	levels := make([]int, n)
	for i := range levels {
		levels[i] = g.rng.Choice(g.opts.LevelDistribution) + models.MinLevel
	}
	return levels
}

func (g *Generator) drawGenders(n int) []models.Gender {
	weights := []float64{constants.MaleProbability, constants.FemaleProbability}
	genders := make([]models.Gender, n)
	for i := range genders {
		if g.rng.Choice(weights) == 0 {
			genders[i] = models.GenderMale
		} else {
			genders[i] = models.GenderFemale
		}
	}
	return genders
}

func (g *Generator) initialRating(level int) models.Rating {
	weights := constants.InitialRatingWeights[models.CategoryForLevel(level)]
	return models.Ratings[g.rng.Choice(weights)]
}

func (g *Generator) hireDates(n int) []string {
	now := g.opts.Now()
	start := now.AddDate(0, 0, -constants.HireWindowDays)
	end := now.AddDate(0, 0, -constants.HireRecencyDays)
	daysDiff := int(end.Sub(start).Hours() / 24)

	dates := make([]string, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, g.rng.IntN(daysDiff)).Format(models.HireDateLayout)
	}
	return dates
}

// levelIndices returns the positions of employees at each level.
func levelIndices(levels []int) map[int][]int {
	out := make(map[int][]int)
	for i, level := range levels {
		out[level] = append(out[level], i)
	}
	return out
}
