package constants

import (
	"fmt"

	"github.com/nvandessel/paysim/internal/models"
)

// UpliftComponents are the decimal salary uplifts for one performance rating.
// Career uplift depends on the tier of the employee's level.
type UpliftComponents struct {
	Baseline    float64
	Performance float64
	Competent   float64
	Advanced    float64
	Expert      float64
}

// Career returns the career uplift for tier.
func (u UpliftComponents) Career(tier models.Tier) float64 {
	switch tier {
	case models.TierCompetent:
		return u.Competent
	case models.TierAdvanced:
		return u.Advanced
	case models.TierExpert:
		return u.Expert
	}
	return 0
}

// UpliftTable maps every rating to its uplift components.
var UpliftTable = map[models.Rating]UpliftComponents{
	models.RatingNotMet:         {Baseline: 0.0125, Performance: 0, Competent: 0, Advanced: 0.0075, Expert: 0.01},
	models.RatingPartiallyMet:   {Baseline: 0.0125, Performance: 0, Competent: 0, Advanced: 0.0075, Expert: 0.01},
	models.RatingAchieving:      {Baseline: 0.0125, Performance: 0.0125, Competent: 0.005, Advanced: 0.0075, Expert: 0.01},
	models.RatingHighPerforming: {Baseline: 0.0125, Performance: 0.0225, Competent: 0.005, Advanced: 0.0075, Expert: 0.01},
	models.RatingExceeding:      {Baseline: 0.0125, Performance: 0.030, Competent: 0.005, Advanced: 0.0075, Expert: 0.01},
}

// LevelTiers maps levels 1..6 to career tiers.
var LevelTiers = map[int]models.Tier{
	1: models.TierCompetent,
	2: models.TierAdvanced,
	3: models.TierExpert,
	4: models.TierCompetent,
	5: models.TierAdvanced,
	6: models.TierExpert,
}

// TierForLevel returns the career tier for level.
func TierForLevel(level int) (models.Tier, error) {
	tier, ok := LevelTiers[level]
	if !ok {
		return "", fmt.Errorf("invalid level %d", level)
	}
	return tier, nil
}

// UpliftFor returns the components and tier for a rating at a level.
func UpliftFor(rating models.Rating, level int) (UpliftComponents, models.Tier, error) {
	comp, ok := UpliftTable[rating]
	if !ok {
		return UpliftComponents{}, "", fmt.Errorf("invalid performance rating %q", rating)
	}
	tier, err := TierForLevel(level)
	if err != nil {
		return UpliftComponents{}, "", err
	}
	return comp, tier, nil
}
