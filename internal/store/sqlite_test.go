package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/simulation"
)

var testEpoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// simulatedRun generates a small population and runs cycles over it.
func simulatedRun(t *testing.T, seed int64, cycles int) *Run {
	t.Helper()
	clock := func() time.Time { return testEpoch }

	pop, err := population.Generate(population.Options{PopulationSize: 40, RandomSeed: seed, Now: clock})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	sim, err := simulation.NewSimulator(pop, simulation.Config{RandomSeed: seed, Now: clock})
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	result, err := sim.Run(cycles, 0.7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return NewRun(RunParams{Label: "test", RandomSeed: seed, CyclesRequested: cycles, PerformanceConsistency: 0.7}, pop, result)
}

func assertSameEmployee(t *testing.T, got, want models.Employee) {
	t.Helper()
	if got.EmployeeID != want.EmployeeID || got.Level != want.Level || got.Salary != want.Salary ||
		got.Gender != want.Gender || got.PerformanceRating != want.PerformanceRating || got.HireDate != want.HireDate {
		t.Errorf("employee = %+v, want %+v", got, want)
	}
}

func newTestStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	s, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), "data", DBFile), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteRunStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", DBFile)

	s, err := NewSQLiteRunStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening an existing database takes the integrity-check path.
	s, err = NewSQLiteRunStore(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	version, err := getSchemaVersion(context.Background(), s.db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestSQLiteRunStore_SaveGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := simulatedRun(t, 7, 3)

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}

	if got.Label != "test" || got.RandomSeed != 7 || got.CyclesRequested != 3 {
		t.Errorf("run metadata = %+v", got.Summary())
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if len(got.Initial) != 40 || len(got.Final) != 40 {
		t.Fatalf("populations = %d/%d, want 40/40", len(got.Initial), len(got.Final))
	}
	for i := range got.Initial {
		assertSameEmployee(t, got.Initial[i], run.Initial[i])
		assertSameEmployee(t, got.Final[i], run.Final[i])
		if len(got.Final[i].ReviewHistory) != len(run.Final[i].ReviewHistory) {
			t.Errorf("final[%d] history = %d records, want %d",
				i, len(got.Final[i].ReviewHistory), len(run.Final[i].ReviewHistory))
		}
	}

	if got.CyclesCompleted() != run.CyclesCompleted() {
		t.Fatalf("cycles completed = %d, want %d", got.CyclesCompleted(), run.CyclesCompleted())
	}
	for c := range run.Reviews {
		if len(got.Reviews[c]) != len(run.Reviews[c]) {
			t.Fatalf("cycle %d reviews = %d, want %d", c+1, len(got.Reviews[c]), len(run.Reviews[c]))
		}
		for i := range run.Reviews[c] {
			if got.Reviews[c][i] != run.Reviews[c][i] {
				t.Errorf("cycle %d review %d = %+v, want %+v", c+1, i, got.Reviews[c][i], run.Reviews[c][i])
			}
		}
	}

	if len(got.Snapshots) != len(run.Snapshots) {
		t.Fatalf("snapshots = %d, want %d", len(got.Snapshots), len(run.Snapshots))
	}
	for i, snap := range got.Snapshots {
		want := run.Snapshots[i]
		if snap.Cycle != want.Cycle || snap.GiniCoefficient != want.GiniCoefficient {
			t.Errorf("snapshot %d = cycle %d gini %v, want cycle %d gini %v",
				i, snap.Cycle, snap.GiniCoefficient, want.Cycle, want.GiniCoefficient)
		}
		if len(snap.LevelStatistics) != len(want.LevelStatistics) {
			t.Errorf("snapshot %d level statistics = %d entries, want %d",
				i, len(snap.LevelStatistics), len(want.LevelStatistics))
		}
	}
}

func TestSQLiteRunStore_ReviewsStoredInPennies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:        "pennies",
		CreatedAt: testEpoch,
		Initial: models.Population{
			{EmployeeID: 1, Level: 1, Salary: 30000.123456, Gender: models.GenderMale, PerformanceRating: models.RatingAchieving},
		},
		Reviews: [][]models.ReviewRecord{{
			{EmployeeID: 1, ReviewYear: 2025, PerformanceRating: models.RatingAchieving, Level: 1,
				Gender: models.GenderMale, OldSalary: 30000.123456, NewSalary: 30750.126543, UpliftPercentage: 2.5},
		}},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "pennies")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	r := got.Reviews[0][0]
	if r.OldSalary != 30000.12 || r.NewSalary != 30750.13 {
		t.Errorf("review salaries = %v -> %v, want 30000.12 -> 30750.13", r.OldSalary, r.NewSalary)
	}
	if got.Initial[0].Salary != 30000.123456 {
		t.Errorf("employee salary = %v, should keep full precision", got.Initial[0].Salary)
	}
}

func TestSQLiteRunStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := simulatedRun(t, 3, 2)

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	run.Label = "renamed"
	run.Reviews = run.Reviews[:1]
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Label != "renamed" || got.CyclesCompleted() != 1 {
		t.Errorf("label = %q cycles = %d, want renamed/1", got.Label, got.CyclesCompleted())
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns() = %d runs, want 1", len(runs))
	}
}

func TestSQLiteRunStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := simulatedRun(t, 1, 1)
	older.CreatedAt = testEpoch
	newer := simulatedRun(t, 2, 2)
	newer.CreatedAt = testEpoch.Add(time.Hour)

	for _, run := range []*Run{older, newer} {
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("ListRuns() order = %s, %s, want newest first", runs[0].ID, runs[1].ID)
	}
	want := newer.Summary()
	if runs[0].PopulationSize != 40 || runs[0].CyclesCompleted != want.CyclesCompleted || runs[0].FinalGini != want.FinalGini {
		t.Errorf("summary = %+v, want %+v", runs[0], want)
	}
}

func TestSQLiteRunStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := simulatedRun(t, 5, 1)

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
	}

	// Child rows go with the run.
	for _, table := range []string{"employees", "reviews", "snapshots"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", run.ID).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s still has %d rows after delete", table, n)
		}
	}

	if err := s.DeleteRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteRunStore_RejectsRunWithoutID(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRun(context.Background(), &Run{}); err == nil {
		t.Error("SaveRun() accepted a run without an id")
	}
	if err := s.SaveRun(context.Background(), nil); err == nil {
		t.Error("SaveRun() accepted nil")
	}
}

func TestValidateIntegrity(t *testing.T) {
	s := newTestStore(t)
	if err := ValidateIntegrity(context.Background(), s.db); err != nil {
		t.Errorf("ValidateIntegrity() on fresh database = %v", err)
	}
}
