package models

import (
	"fmt"
	"time"
)

// Gender is the binary gender attribute carried by every employee.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Valid reports whether g is a recognised gender.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// Rating is an annual performance rating.
type Rating string

const (
	RatingNotMet         Rating = "Not met"
	RatingPartiallyMet   Rating = "Partially met"
	RatingAchieving      Rating = "Achieving"
	RatingHighPerforming Rating = "High Performing"
	RatingExceeding      Rating = "Exceeding"
)

// Ratings lists every rating from lowest to highest.
var Ratings = []Rating{
	RatingNotMet,
	RatingPartiallyMet,
	RatingAchieving,
	RatingHighPerforming,
	RatingExceeding,
}

// Index returns the zero-based position of r in Ratings, or -1 if r is unknown.
func (r Rating) Index() int {
	for i, candidate := range Ratings {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Score maps the rating onto 1..5 for correlation work. Unknown ratings score 0.
func (r Rating) Score() int {
	return r.Index() + 1
}

// Valid reports whether r is one of the five recognised ratings.
func (r Rating) Valid() bool {
	return r.Index() >= 0
}

// Step moves the rating delta places along the ordered scale, clamped at both ends.
func (r Rating) Step(delta int) Rating {
	idx := r.Index()
	if idx < 0 {
		return r
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(Ratings)-1 {
		idx = len(Ratings) - 1
	}
	return Ratings[idx]
}

// ParseRating returns the Rating named by s.
func ParseRating(s string) (Rating, error) {
	r := Rating(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown performance rating %q", s)
	}
	return r, nil
}

// Tier is the career-progression tier a level maps onto.
type Tier string

const (
	TierCompetent Tier = "competent"
	TierAdvanced  Tier = "advanced"
	TierExpert    Tier = "expert"
)

// Category splits levels into core (1-3) and senior (4-6) bands.
type Category string

const (
	CategoryCore   Category = "core"
	CategorySenior Category = "senior"
)

const (
	MinLevel = 1
	MaxLevel = 6
)

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// CategoryForLevel returns the core/senior band for level.
func CategoryForLevel(level int) Category {
	if level <= 3 {
		return CategoryCore
	}
	return CategorySenior
}

// HireDateLayout is the calendar-date format used for hire dates.
const HireDateLayout = "2006-01-02"

// ReviewRecord captures one employee's outcome from one review cycle.
// Percentages are expressed in percent units (2.5 means 2.5%).
type ReviewRecord struct {
	EmployeeID        int     `json:"employee_id"`
	ReviewYear        int     `json:"review_year"`
	PerformanceRating Rating  `json:"performance_rating"`
	Level             int     `json:"level"`
	Gender            Gender  `json:"gender"`
	OldSalary         float64 `json:"old_salary"`
	NewSalary         float64 `json:"new_salary"`
	UpliftPercentage  float64 `json:"uplift_percentage"`
	BaselineUplift    float64 `json:"baseline_uplift"`
	PerformanceUplift float64 `json:"performance_uplift"`
	CareerUplift      float64 `json:"career_uplift"`
}

// Employee is one member of a synthetic population.
type Employee struct {
	EmployeeID        int            `json:"employee_id"`
	Level             int            `json:"level"`
	Salary            float64        `json:"salary"`
	Gender            Gender         `json:"gender"`
	PerformanceRating Rating         `json:"performance_rating"`
	HireDate          string         `json:"hire_date,omitempty"`
	ReviewHistory     []ReviewRecord `json:"review_history,omitempty"`
}

// MissingFieldError reports an employee record lacking a field required downstream.
type MissingFieldError struct {
	EmployeeID int
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("employee %d: missing or invalid field %q", e.EmployeeID, e.Field)
}

// Validate checks the fields every downstream stage depends on.
func (e *Employee) Validate() error {
	switch {
	case e.EmployeeID <= 0:
		return &MissingFieldError{EmployeeID: e.EmployeeID, Field: "employee_id"}
	case !ValidLevel(e.Level):
		return &MissingFieldError{EmployeeID: e.EmployeeID, Field: "level"}
	case e.Salary <= 0:
		return &MissingFieldError{EmployeeID: e.EmployeeID, Field: "salary"}
	case !e.Gender.Valid():
		return &MissingFieldError{EmployeeID: e.EmployeeID, Field: "gender"}
	case !e.PerformanceRating.Valid():
		return &MissingFieldError{EmployeeID: e.EmployeeID, Field: "performance_rating"}
	}
	return nil
}

// Clone returns a deep copy including the review history.
func (e Employee) Clone() Employee {
	if e.ReviewHistory != nil {
		history := make([]ReviewRecord, len(e.ReviewHistory))
		copy(history, e.ReviewHistory)
		e.ReviewHistory = history
	}
	return e
}

// TenureYears returns years of service at now. ok is false when the hire
// date is absent or unparseable.
func (e Employee) TenureYears(now time.Time) (years float64, ok bool) {
	if e.HireDate == "" {
		return 0, false
	}
	hired, err := time.Parse(HireDateLayout, e.HireDate)
	if err != nil {
		return 0, false
	}
	days := now.Sub(hired).Hours() / 24
	return days / 365.25, true
}

// Population is an ordered collection of employees.
type Population []Employee

// Clone deep-copies the population so mutations never reach the source.
func (p Population) Clone() Population {
	if p == nil {
		return nil
	}
	out := make(Population, len(p))
	for i, e := range p {
		out[i] = e.Clone()
	}
	return out
}

// Validate runs Employee.Validate across the population.
func (p Population) Validate() error {
	for i := range p {
		if err := p[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Salaries returns the salary column in population order.
func (p Population) Salaries() []float64 {
	out := make([]float64, len(p))
	for i, e := range p {
		out[i] = e.Salary
	}
	return out
}

// ByLevel groups employees by level, preserving population order within each level.
func (p Population) ByLevel() map[int]Population {
	out := make(map[int]Population)
	for _, e := range p {
		out[e.Level] = append(out[e.Level], e)
	}
	return out
}

// SalariesByGender splits the salary column by gender.
func (p Population) SalariesByGender() (male, female []float64) {
	for _, e := range p {
		switch e.Gender {
		case GenderMale:
			male = append(male, e.Salary)
		case GenderFemale:
			female = append(female, e.Salary)
		}
	}
	return male, female
}
