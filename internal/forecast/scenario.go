package forecast

import (
	"fmt"
	"slices"

	"github.com/nvandessel/paysim/internal/models"
)

// Scenario names a performance trajectory.
type Scenario string

const (
	ScenarioConservative Scenario = "conservative"
	ScenarioRealistic    Scenario = "realistic"
	ScenarioOptimistic   Scenario = "optimistic"
)

// Scenarios lists every scenario from most to least cautious.
var Scenarios = []Scenario{ScenarioConservative, ScenarioRealistic, ScenarioOptimistic}

// ParseScenario returns the Scenario named by s.
func ParseScenario(s string) (Scenario, error) {
	sc := Scenario(s)
	if !slices.Contains(Scenarios, sc) {
		return "", fmt.Errorf("%w: unknown scenario %q", ErrInvalidInput, s)
	}
	return sc, nil
}

const (
	nm = models.RatingNotMet
	pm = models.RatingPartiallyMet
	ac = models.RatingAchieving
	hp = models.RatingHighPerforming
	ex = models.RatingExceeding
)

// scenarioPaths are five-year rating sequences keyed by the current rating.
var scenarioPaths = map[models.Rating]map[Scenario][]models.Rating{
	nm: {
		ScenarioConservative: {nm, nm, pm, pm, ac},
		ScenarioRealistic:    {nm, pm, ac, ac, hp},
		ScenarioOptimistic:   {pm, ac, hp, hp, ex},
	},
	pm: {
		ScenarioConservative: {pm, pm, ac, ac, ac},
		ScenarioRealistic:    {pm, ac, ac, hp, hp},
		ScenarioOptimistic:   {ac, hp, hp, ex, ex},
	},
	ac: {
		ScenarioConservative: {ac, ac, ac, hp, hp},
		ScenarioRealistic:    {ac, ac, hp, hp, ex},
		ScenarioOptimistic:   {ac, hp, hp, ex, ex},
	},
	hp: {
		ScenarioConservative: {hp, hp, hp, hp, ex},
		ScenarioRealistic:    {hp, hp, ex, ex, ex},
		ScenarioOptimistic:   {hp, ex, ex, ex, ex},
	},
	ex: {
		ScenarioConservative: {ex, ex, hp, hp, ex},
		ScenarioRealistic:    {ex, ex, ex, ex, ex},
		ScenarioOptimistic:   {ex, ex, ex, ex, ex},
	},
}

// ScenarioPath returns the base rating sequence for an employee currently
// rated current. Unknown ratings follow the Achieving paths and unknown
// scenarios the realistic one.
func ScenarioPath(current models.Rating, sc Scenario) []models.Rating {
	paths, ok := scenarioPaths[current]
	if !ok {
		paths = scenarioPaths[models.RatingAchieving]
	}
	path, ok := paths[sc]
	if !ok {
		path = paths[ScenarioRealistic]
	}
	return slices.Clone(path)
}

// adaptPath tailors a base path to the employee's career stage.
func adaptPath(path []models.Rating, level int, tenure float64) []models.Rating {
	out := slices.Clone(path)

	// Senior staff move at most one rating per year.
	if level >= SeniorLevel {
		for i := 1; i < len(out); i++ {
			prev, cur := rank(out[i-1]), rank(out[i])
			switch {
			case cur > prev+1:
				out[i] = models.Ratings[prev].Step(1)
			case cur < prev-1:
				out[i] = models.Ratings[prev].Step(-1)
			}
		}
	}

	// Newer core staff recover from a partial year.
	if tenure < NewJoinerTenureYears && level < SeniorLevel {
		for i := 0; i < len(out)-1; i++ {
			if out[i] == models.RatingPartiallyMet {
				out[i+1] = models.RatingAchieving
			}
		}
	}

	// Long-serving staff smooth out single-year blips.
	if tenure > LongTenureYears && len(out) >= 3 {
		for i := 1; i < len(out)-1; i++ {
			if out[i-1] == out[i+1] {
				out[i] = out[i-1]
			}
		}
	}
	return out
}

// rank is Rating.Index with unknown ratings treated as Achieving.
func rank(r models.Rating) int {
	if idx := r.Index(); idx >= 0 {
		return idx
	}
	return models.RatingAchieving.Index()
}

// fitPath truncates path to years or extends it with its last rating.
func fitPath(path []models.Rating, years int) []models.Rating {
	if len(path) >= years {
		return path[:years]
	}
	last := path[len(path)-1]
	for len(path) < years {
		path = append(path, last)
	}
	return path
}
