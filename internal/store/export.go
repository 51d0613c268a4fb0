package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/models"
)

// Export file names.
const (
	RunFile       = "run.json"
	EmployeesFile = "employees.jsonl"
	ReviewsFile   = "reviews.jsonl"
	SnapshotsFile = "snapshots.jsonl"
)

// ExportResult describes what ExportRun wrote.
type ExportResult struct {
	Dir       string   `json:"dir"`
	Files     []string `json:"files"`
	Employees int      `json:"employees"`
	Reviews   int      `json:"reviews"`
	Snapshots int      `json:"snapshots"`
}

// employeeLine is one employees.jsonl entry.
type employeeLine struct {
	Phase constants.Phase `json:"phase"`
	models.Employee
}

// reviewLine is one reviews.jsonl entry.
type reviewLine struct {
	Cycle int `json:"cycle"`
	models.ReviewRecord
}

// ExportRun writes run into dir as run.json plus one JSONL file each for
// employees (tagged with phase), reviews (tagged with cycle, in pennies) and
// snapshots. dir is created if missing.
func ExportRun(run *Run, dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	res := &ExportResult{Dir: dir}

	summary, err := json.MarshalIndent(struct {
		RunSummary
		PerformanceConsistency float64 `json:"performance_consistency"`
		ConvergedCycle         int     `json:"converged_cycle,omitempty"`
	}{run.Summary(), run.PerformanceConsistency, run.ConvergedCycle}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	runPath := filepath.Join(dir, RunFile)
	if err := os.WriteFile(runPath, append(summary, '\n'), 0600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", RunFile, err)
	}
	res.Files = append(res.Files, runPath)

	err = writeJSONL(filepath.Join(dir, EmployeesFile), res, func(enc *json.Encoder) error {
		for _, phase := range []struct {
			phase constants.Phase
			pop   models.Population
		}{{constants.PhaseInitial, run.Initial}, {constants.PhaseFinal, run.Final}} {
			for _, e := range phase.pop {
				if err := enc.Encode(employeeLine{Phase: phase.phase, Employee: e}); err != nil {
					return err
				}
				res.Employees++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = writeJSONL(filepath.Join(dir, ReviewsFile), res, func(enc *json.Encoder) error {
		for i, records := range run.Reviews {
			for _, r := range RoundReviews(records) {
				if err := enc.Encode(reviewLine{Cycle: i + 1, ReviewRecord: r}); err != nil {
					return err
				}
				res.Reviews++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = writeJSONL(filepath.Join(dir, SnapshotsFile), res, func(enc *json.Encoder) error {
		for _, snap := range run.Snapshots {
			if err := enc.Encode(snap); err != nil {
				return err
			}
			res.Snapshots++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func writeJSONL(path string, res *ExportResult, write func(*json.Encoder) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := write(json.NewEncoder(w)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	res.Files = append(res.Files, path)
	return nil
}
