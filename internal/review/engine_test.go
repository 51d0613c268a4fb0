package review

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/randutil"
)

func samplePopulation(n int) models.Population {
	pop := make(models.Population, n)
	for i := range pop {
		gender := models.GenderMale
		if i%3 == 0 {
			gender = models.GenderFemale
		}
		pop[i] = models.Employee{
			EmployeeID:        i + 1,
			Level:             i%6 + 1,
			Salary:            50000 + float64(i)*100,
			Gender:            gender,
			PerformanceRating: models.RatingAchieving,
		}
	}
	return pop
}

func TestCalculateSalaryUplift(t *testing.T) {
	tests := []struct {
		name      string
		rating    models.Rating
		level     int
		salary    float64
		wantTotal float64
	}{
		{"achieving L1", models.RatingAchieving, 1, 30000, 3.0},
		{"exceeding L6", models.RatingExceeding, 6, 100000, 5.25},
		{"not met L1", models.RatingNotMet, 1, 30000, 1.25},
		{"not met L3", models.RatingNotMet, 3, 80000, 2.25},
		{"high performing L5", models.RatingHighPerforming, 5, 90000, 4.25},
		{"partially met L2", models.RatingPartiallyMet, 2, 60000, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CalculateSalaryUplift(models.Employee{
				EmployeeID: 1, Level: tt.level, Salary: tt.salary, PerformanceRating: tt.rating,
			})
			if err != nil {
				t.Fatalf("CalculateSalaryUplift() error = %v", err)
			}
			if math.Abs(res.UpliftPercentage-tt.wantTotal) > 1e-9 {
				t.Errorf("UpliftPercentage = %v, want %v", res.UpliftPercentage, tt.wantTotal)
			}
			wantSalary := tt.salary * (1 + tt.wantTotal/100)
			if math.Abs(res.NewSalary-wantSalary) > 0.01 {
				t.Errorf("NewSalary = %v, want %v", res.NewSalary, wantSalary)
			}
			if res.OldSalary != tt.salary {
				t.Errorf("OldSalary = %v, want %v", res.OldSalary, tt.salary)
			}
			sum := res.BaselineUplift + res.PerformanceUplift + res.CareerUplift
			if math.Abs(sum-res.UpliftPercentage) > 1e-9 {
				t.Errorf("components sum to %v, total %v", sum, res.UpliftPercentage)
			}
		})
	}
}

func TestCalculateSalaryUplift_Pure(t *testing.T) {
	emp := models.Employee{EmployeeID: 9, Level: 3, Salary: 77777.77, PerformanceRating: models.RatingHighPerforming}
	a, _ := CalculateSalaryUplift(emp)
	b, _ := CalculateSalaryUplift(emp)
	if a != b {
		t.Errorf("repeated calls differ: %+v vs %+v", a, b)
	}
}

func TestCalculateSalaryUplift_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		emp   models.Employee
		field string
	}{
		{"no rating", models.Employee{EmployeeID: 1, Level: 2, Salary: 1}, "performance_rating"},
		{"bad level", models.Employee{EmployeeID: 1, Level: 0, Salary: 1, PerformanceRating: models.RatingAchieving}, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateSalaryUplift(tt.emp)
			var mfe *models.MissingFieldError
			if !errors.As(err, &mfe) || mfe.Field != tt.field {
				t.Errorf("error = %v, want missing %q", err, tt.field)
			}
		})
	}
}

func TestValidateUpliftCalculations(t *testing.T) {
	cases, ok := ValidateUpliftCalculations(nil)
	if !ok {
		for _, c := range cases {
			if !c.Passed {
				t.Errorf("case %s L%d failed: %+v", c.Rating, c.Level, c)
			}
		}
	}
	if len(cases) != len(models.Ratings)*models.MaxLevel {
		t.Errorf("len(cases) = %d, want %d", len(cases), len(models.Ratings)*models.MaxLevel)
	}
}

func TestAssignPerformanceRatings(t *testing.T) {
	pop := samplePopulation(600)
	for i := range pop {
		pop[i].PerformanceRating = ""
	}
	engine := NewEngine(randutil.New(42), nil)
	if err := engine.AssignPerformanceRatings(pop); err != nil {
		t.Fatalf("AssignPerformanceRatings() error = %v", err)
	}

	counts := make(map[models.Rating]int)
	for _, e := range pop {
		if !e.PerformanceRating.Valid() {
			t.Fatalf("employee %d has invalid rating %q", e.EmployeeID, e.PerformanceRating)
		}
		counts[e.PerformanceRating]++
	}
	if counts[models.RatingAchieving] < counts[models.RatingExceeding] {
		t.Errorf("expected Achieving to dominate, got %v", counts)
	}
}

func TestAssignPerformanceRatings_Deterministic(t *testing.T) {
	a, b := samplePopulation(100), samplePopulation(100)
	if err := NewEngine(randutil.New(7), nil).AssignPerformanceRatings(a); err != nil {
		t.Fatal(err)
	}
	if err := NewEngine(randutil.New(7), nil).AssignPerformanceRatings(b); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].PerformanceRating != b[i].PerformanceRating {
			t.Fatalf("employee %d rating differs: %q vs %q", i, a[i].PerformanceRating, b[i].PerformanceRating)
		}
	}
}

func TestAssignPerformanceRatings_BadLevel(t *testing.T) {
	pop := samplePopulation(3)
	pop[1].Level = 9
	err := NewEngine(randutil.New(1), nil).AssignPerformanceRatings(pop)
	var mfe *models.MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("error = %v, want MissingFieldError", err)
	}
}

func TestApplyAnnualReview(t *testing.T) {
	pop := samplePopulation(60)
	before := pop.Salaries()

	engine := NewEngine(randutil.New(42), nil)
	records, err := engine.ApplyAnnualReview(pop, 2025)
	if err != nil {
		t.Fatalf("ApplyAnnualReview() error = %v", err)
	}
	if len(records) != len(pop) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(pop))
	}

	for i, e := range pop {
		if len(e.ReviewHistory) != 1 {
			t.Fatalf("employee %d history length = %d, want 1", e.EmployeeID, len(e.ReviewHistory))
		}
		rec := e.ReviewHistory[0]
		if rec != records[i] {
			t.Errorf("history record differs from returned record for employee %d", e.EmployeeID)
		}
		if rec.ReviewYear != 2025 || rec.OldSalary != before[i] || rec.NewSalary != e.Salary {
			t.Errorf("unexpected record %+v", rec)
		}
		if e.Salary <= before[i] {
			t.Errorf("employee %d salary did not rise: %v -> %v", e.EmployeeID, before[i], e.Salary)
		}
	}
}

func TestApplyUplifts_KeepsRatings(t *testing.T) {
	pop := samplePopulation(12)
	for i := range pop {
		pop[i].PerformanceRating = models.RatingExceeding
	}
	records, err := NewEngine(randutil.New(1), nil).ApplyUplifts(pop, 2030)
	if err != nil {
		t.Fatalf("ApplyUplifts() error = %v", err)
	}
	for _, rec := range records {
		if rec.PerformanceRating != models.RatingExceeding {
			t.Errorf("rating changed to %q", rec.PerformanceRating)
		}
	}
}

func TestApplyUplifts_MissingFieldLeavesPopulationUntouched(t *testing.T) {
	pop := samplePopulation(5)
	pop[3].Gender = ""
	before := pop.Salaries()

	_, err := NewEngine(randutil.New(1), nil).ApplyUplifts(pop, 2025)
	var mfe *models.MissingFieldError
	if !errors.As(err, &mfe) || mfe.Field != "gender" {
		t.Fatalf("error = %v, want missing gender", err)
	}
	for i, e := range pop {
		if e.Salary != before[i] || len(e.ReviewHistory) != 0 {
			t.Errorf("employee %d mutated despite error", e.EmployeeID)
		}
	}
}
