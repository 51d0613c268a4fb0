package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
)

var _ RunStore = (*SQLiteRunStore)(nil)

// timeLayout has fixed-width fractional seconds so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore on a single SQLite file.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// NewSQLiteRunStore opens (creating if needed) the database at dbPath.
// A nil logger discards output.
func NewSQLiteRunStore(dbPath string, logger *slog.Logger) (*SQLiteRunStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("opened run store", "path", dbPath)
	return &SQLiteRunStore{db: db, dbPath: dbPath, logger: logger}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun writes run and all of its rows in one transaction. Saving an
// existing id replaces it.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	summary := run.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, label, random_seed, population_size,
			cycles_requested, cycles_completed, performance_consistency,
			converged, converged_cycle, final_gini, final_gender_gap
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), nullString(run.Label),
		run.RandomSeed, summary.PopulationSize,
		run.CyclesRequested, summary.CyclesCompleted, run.PerformanceConsistency,
		boolToInt(run.Converged), run.ConvergedCycle, summary.FinalGini, summary.FinalGenderGap,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertEmployees(ctx, tx, run.ID, constants.PhaseInitial, run.Initial); err != nil {
		return err
	}
	if err := insertEmployees(ctx, tx, run.ID, constants.PhaseFinal, run.Final); err != nil {
		return err
	}
	if err := insertReviews(ctx, tx, run.ID, run.Reviews); err != nil {
		return err
	}
	if err := insertSnapshots(ctx, tx, run.ID, run.Snapshots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("saved run", "run_id", run.ID, "employees", summary.PopulationSize, "cycles", summary.CyclesCompleted)
	return nil
}

func insertEmployees(ctx context.Context, tx *sql.Tx, runID string, phase constants.Phase, pop models.Population) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO employees (run_id, phase, employee_id, level, salary, gender, performance_rating, hire_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare employee insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range pop {
		if _, err := stmt.ExecContext(ctx, runID, phase.String(), e.EmployeeID, e.Level, e.Salary,
			string(e.Gender), string(e.PerformanceRating), nullString(e.HireDate)); err != nil {
			return fmt.Errorf("failed to insert %s employee %d: %w", phase, e.EmployeeID, err)
		}
	}
	return nil
}

func insertReviews(ctx context.Context, tx *sql.Tx, runID string, cycles [][]models.ReviewRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (
			run_id, cycle, employee_id, review_year, performance_rating, level, gender,
			old_salary, new_salary, uplift_percentage, baseline_uplift, performance_uplift, career_uplift
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare review insert: %w", err)
	}
	defer stmt.Close()

	for i, records := range cycles {
		cycle := i + 1
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, runID, cycle, r.EmployeeID, r.ReviewYear,
				string(r.PerformanceRating), r.Level, string(r.Gender),
				Pennies(r.OldSalary), Pennies(r.NewSalary),
				r.UpliftPercentage, r.BaselineUplift, r.PerformanceUplift, r.CareerUplift); err != nil {
				return fmt.Errorf("failed to insert review of employee %d in cycle %d: %w", r.EmployeeID, cycle, err)
			}
		}
	}
	return nil
}

func insertSnapshots(ctx context.Context, tx *sql.Tx, runID string, snapshots []models.InequalitySnapshot) error {
	for _, snap := range snapshots {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot %d: %w", snap.Cycle, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (run_id, cycle, gini_coefficient, gender_gap_percent, median_salary, data)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, snap.Cycle, snap.GiniCoefficient, snap.GenderGapPercent, snap.MedianSalary, string(data)); err != nil {
			return fmt.Errorf("failed to insert snapshot %d: %w", snap.Cycle, err)
		}
	}
	return nil
}

// GetRun loads a run with its populations, reviews and snapshots.
// Returns ErrRunNotFound for an unknown id.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := &Run{ID: id}
	var createdAt string
	var label sql.NullString
	var converged int
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, label, random_seed, cycles_requested, performance_consistency, converged, converged_cycle
		FROM runs WHERE id = ?`, id).Scan(
		&createdAt, &label, &run.RandomSeed, &run.CyclesRequested, &run.PerformanceConsistency,
		&converged, &run.ConvergedCycle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	run.Label = label.String
	run.Converged = converged != 0

	if run.Initial, err = s.loadEmployees(ctx, id, constants.PhaseInitial); err != nil {
		return nil, err
	}
	if run.Final, err = s.loadEmployees(ctx, id, constants.PhaseFinal); err != nil {
		return nil, err
	}
	if run.Reviews, err = s.loadReviews(ctx, id); err != nil {
		return nil, err
	}
	if run.Snapshots, err = s.loadSnapshots(ctx, id); err != nil {
		return nil, err
	}
	attachHistory(run.Final, run.Reviews)
	return run, nil
}

// attachHistory rebuilds each final employee's review history from the
// per-cycle records, which are stored once rather than per employee.
func attachHistory(final models.Population, cycles [][]models.ReviewRecord) {
	index := make(map[int]int, len(final))
	for i, e := range final {
		index[e.EmployeeID] = i
	}
	for _, records := range cycles {
		for _, r := range records {
			if i, ok := index[r.EmployeeID]; ok {
				final[i].ReviewHistory = append(final[i].ReviewHistory, r)
			}
		}
	}
}

func (s *SQLiteRunStore) loadEmployees(ctx context.Context, runID string, phase constants.Phase) (models.Population, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, level, salary, gender, performance_rating, hire_date
		FROM employees WHERE run_id = ? AND phase = ? ORDER BY employee_id`, runID, phase.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s employees: %w", phase, err)
	}
	defer rows.Close()

	var pop models.Population
	for rows.Next() {
		var e models.Employee
		var gender, rating string
		var hireDate sql.NullString
		if err := rows.Scan(&e.EmployeeID, &e.Level, &e.Salary, &gender, &rating, &hireDate); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.Gender = models.Gender(gender)
		e.PerformanceRating = models.Rating(rating)
		e.HireDate = hireDate.String
		pop = append(pop, e)
	}
	return pop, rows.Err()
}

func (s *SQLiteRunStore) loadReviews(ctx context.Context, runID string) ([][]models.ReviewRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, employee_id, review_year, performance_rating, level, gender,
			old_salary, new_salary, uplift_percentage, baseline_uplift, performance_uplift, career_uplift
		FROM reviews WHERE run_id = ? ORDER BY cycle, employee_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var cycles [][]models.ReviewRecord
	for rows.Next() {
		var cycle int
		var r models.ReviewRecord
		var rating, gender string
		if err := rows.Scan(&cycle, &r.EmployeeID, &r.ReviewYear, &rating, &r.Level, &gender,
			&r.OldSalary, &r.NewSalary, &r.UpliftPercentage,
			&r.BaselineUplift, &r.PerformanceUplift, &r.CareerUplift); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.PerformanceRating = models.Rating(rating)
		r.Gender = models.Gender(gender)
		for len(cycles) < cycle {
			cycles = append(cycles, nil)
		}
		cycles[cycle-1] = append(cycles[cycle-1], r)
	}
	return cycles, rows.Err()
}

func (s *SQLiteRunStore) loadSnapshots(ctx context.Context, runID string) ([]models.InequalitySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM snapshots WHERE run_id = ? ORDER BY cycle`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.InequalitySnapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		var snap models.InequalitySnapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// ListRuns returns run summaries, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, label, random_seed, population_size, cycles_requested, cycles_completed,
			converged, final_gini, final_gender_gap
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var createdAt string
		var label sql.NullString
		var converged int
		var gini, gap sql.NullFloat64
		if err := rows.Scan(&rs.ID, &createdAt, &label, &rs.RandomSeed, &rs.PopulationSize,
			&rs.CyclesRequested, &rs.CyclesCompleted, &converged, &gini, &gap); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rs.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		rs.Label = label.String
		rs.Converged = converged != 0
		rs.FinalGini = gini.Float64
		rs.FinalGenderGap = gap.Float64
		out = append(out, rs)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, through cascading foreign keys, its rows.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// ExportJSONL writes run id to dir. See ExportRun for the layout.
func (s *SQLiteRunStore) ExportJSONL(ctx context.Context, id, dir string) (*ExportResult, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return ExportRun(run, dir)
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
