package population

import (
	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/stats"
)

// applyInequality injects either the requested gender gap or the default
// random advantage/disadvantage pattern.
func (g *Generator) applyInequality(salaries []float64, genders []models.Gender, levels []int) {
	if g.opts.GenderPayGapPercent != nil {
		g.applyGenderGap(salaries, genders, levels, *g.opts.GenderPayGapPercent)
		return
	}

	var male, female []int
	for i, gender := range genders {
		if gender == models.GenderMale {
			male = append(male, i)
		} else {
			female = append(female, i)
		}
	}

	maleDraws := make([]float64, len(male))
	for i := range maleDraws {
		maleDraws[i] = g.rng.Float64()
	}
	femaleDraws := make([]float64, len(female))
	for i := range femaleDraws {
		femaleDraws[i] = g.rng.Float64()
	}

	for j, i := range male {
		if maleDraws[j] < constants.DefaultMaleBoostProbability {
			salaries[i] *= constants.DefaultMaleBoostFactor
		}
	}
	for j, i := range female {
		if femaleDraws[j] < constants.DefaultFemalePenaltyProbability {
			salaries[i] *= constants.DefaultFemalePenaltyFactor
		}
	}
	g.logger.Debug("applied default inequality pattern", "male", len(male), "female", len(female))
}

// applyGenderGap raises male and lowers female salaries level by level,
// splitting the gap factor 60/40. Levels missing either gender are skipped.
func (g *Generator) applyGenderGap(salaries []float64, genders []models.Gender, levels []int, gapPercent float64) {
	var hasMale, hasFemale bool
	for _, gender := range genders {
		switch gender {
		case models.GenderMale:
			hasMale = true
		case models.GenderFemale:
			hasFemale = true
		}
	}
	if !hasMale || !hasFemale {
		g.logger.Warn("cannot apply gender pay gap: population lacks male or female employees")
		return
	}

	factor := gapPercent / 100
	maleAdj := 1 + factor*constants.MaleGapShare
	femaleAdj := 1 - factor*constants.FemaleGapShare

	byLevel := levelIndices(levels)
	for level := models.MinLevel; level <= models.MaxLevel; level++ {
		var male, female []int
		for _, i := range byLevel[level] {
			if genders[i] == models.GenderMale {
				male = append(male, i)
			} else {
				female = append(female, i)
			}
		}
		if len(male) == 0 || len(female) == 0 {
			g.logger.Debug("skipping gender gap for level", "level", level, "male", len(male), "female", len(female))
			continue
		}
		for _, i := range male {
			salaries[i] *= maleAdj
		}
		for _, i := range female {
			salaries[i] *= femaleAdj
		}
	}

	var maleSalaries, femaleSalaries []float64
	for i, gender := range genders {
		if gender == models.GenderMale {
			maleSalaries = append(maleSalaries, salaries[i])
		} else {
			femaleSalaries = append(femaleSalaries, salaries[i])
		}
	}
	actual, _ := stats.GenderGapPercent(maleSalaries, femaleSalaries)
	g.logger.Info("applied gender pay gap", "actual_percent", actual, "target_percent", gapPercent)
}

// applyLevelExceptions pays a random share of core staff above their level
// and a random share of senior staff below it.
func (g *Generator) applyLevelExceptions(salaries []float64, levels []int) {
	var core, senior []int
	for i, level := range levels {
		if models.CategoryForLevel(level) == models.CategoryCore {
			core = append(core, i)
		} else {
			senior = append(senior, i)
		}
	}

	if len(core) > 0 {
		count := max(1, int(float64(len(core))*constants.CoreExceptionShare))
		for _, j := range g.rng.Sample(len(core), count) {
			salaries[core[j]] += g.rng.Normal(constants.CoreExceptionMean, constants.CoreExceptionStd)
		}
		g.logger.Debug("applied core exception bonuses", "count", count)
	}

	if len(senior) > 0 {
		count := max(1, int(float64(len(senior))*constants.SeniorExceptionShare))
		for _, j := range g.rng.Sample(len(senior), count) {
			salaries[senior[j]] -= g.rng.Normal(constants.SeniorExceptionMean, constants.SeniorExceptionStd)
		}
		g.logger.Debug("applied senior exception penalties", "count", count)
	}
}
