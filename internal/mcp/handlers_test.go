package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/ratelimit"
)

func ptr[T any](v T) *T { return &v }

// simulateRun stores a run through the simulate handler and returns its ID.
func simulateRun(t *testing.T, server *Server, seed int64, cycles int) string {
	t.Helper()
	_, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{
		Seed:              ptr(seed),
		Cycles:            ptr(cycles),
		StopOnConvergence: ptr(false),
		Label:             "test",
	})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	return out.RunID
}

func readAudit(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid audit line: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestHandleGenerate(t *testing.T) {
	server, auditDir := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleGenerate(ctx, &sdk.CallToolRequest{}, GenerateInput{Size: 60, Seed: ptr(int64(7))})
	if err != nil {
		t.Fatalf("handleGenerate failed: %v", err)
	}

	if out.RunID != "" {
		t.Errorf("RunID = %q, want empty when not saving", out.RunID)
	}
	if out.Seed != 7 {
		t.Errorf("Seed = %d, want 7", out.Seed)
	}
	if out.Summary.Total != 60 {
		t.Errorf("Total = %d, want 60", out.Summary.Total)
	}
	if out.Summary.MaleCount+out.Summary.FemaleCount != 60 {
		t.Errorf("gender counts %d + %d do not add up to 60", out.Summary.MaleCount, out.Summary.FemaleCount)
	}
	counted := 0
	for i, ls := range out.Summary.Levels {
		counted += ls.Count
		if i > 0 && ls.Level <= out.Summary.Levels[i-1].Level {
			t.Errorf("levels not ascending: %v", out.Summary.Levels)
		}
	}
	if counted != 60 {
		t.Errorf("level counts sum to %d, want 60", counted)
	}
	if out.Summary.SalaryMin <= 0 || out.Summary.SalaryMin > out.Summary.SalaryMax {
		t.Errorf("salary range = [%v, %v]", out.Summary.SalaryMin, out.Summary.SalaryMax)
	}

	// Same seed, same population.
	_, again, err := server.handleGenerate(ctx, &sdk.CallToolRequest{}, GenerateInput{Size: 60, Seed: ptr(int64(7))})
	if err != nil {
		t.Fatalf("second handleGenerate failed: %v", err)
	}
	if again.Summary.MedianSalary != out.Summary.MedianSalary || again.Summary.GenderGapPercent != out.Summary.GenderGapPercent {
		t.Error("generation with the same seed is not reproducible")
	}

	entries := readAudit(t, auditDir)
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	e := entries[0]
	if e.Tool != "paysim_generate" || e.Status != "success" {
		t.Errorf("audit entry = %+v", e)
	}
	if e.Params["size"] != "60" || e.Params["seed"] != "7" || e.Params["_param_count"] != "2" {
		t.Errorf("audit params = %v", e.Params)
	}
}

func TestHandleGenerate_Save(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleGenerate(ctx, &sdk.CallToolRequest{}, GenerateInput{Save: true, Label: "baseline"})
	if err != nil {
		t.Fatalf("handleGenerate failed: %v", err)
	}
	if out.RunID == "" {
		t.Fatal("RunID is empty for a saved population")
	}
	if !strings.Contains(out.Message, out.RunID) {
		t.Errorf("Message = %q, want it to mention the run", out.Message)
	}

	run, err := server.store.GetRun(ctx, out.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Label != "baseline" || run.CyclesCompleted() != 0 || len(run.Final) != 60 {
		t.Errorf("stored run = %+v", run.Summary())
	}
}

func TestHandleGenerate_InvalidArgs(t *testing.T) {
	server, auditDir := setupTestServer(t)

	tests := []struct {
		name string
		args GenerateInput
	}{
		{"negative size", GenerateInput{Size: -1}},
		{"oversized", GenerateInput{Size: maxToolPopulation + 1}},
		{"gap above 50 percent", GenerateInput{GenderPayGapPercent: ptr(60.0)}},
		{"negative gap", GenerateInput{GenderPayGapPercent: ptr(-1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := server.handleGenerate(context.Background(), &sdk.CallToolRequest{}, tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}

	for _, e := range readAudit(t, auditDir) {
		if e.Status != "error" || e.Error == "" {
			t.Errorf("audit entry for failed call = %+v", e)
		}
	}
}

func TestHandleSimulate(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleSimulate(ctx, &sdk.CallToolRequest{}, SimulateInput{
		Seed:                   ptr(int64(11)),
		Cycles:                 ptr(3),
		PerformanceConsistency: ptr(0.7),
		StopOnConvergence:      ptr(false),
	})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}

	if out.RunID == "" {
		t.Fatal("RunID is empty")
	}
	if out.CyclesRequested != 3 || out.CyclesCompleted != 3 || out.Converged {
		t.Errorf("cycles = %d/%d converged=%v, want 3/3 without convergence",
			out.CyclesCompleted, out.CyclesRequested, out.Converged)
	}
	if len(out.Progression) != 4 {
		t.Fatalf("progression = %d snapshots, want 4", len(out.Progression))
	}
	for i, snap := range out.Progression {
		if snap.Cycle != i {
			t.Errorf("progression[%d].Cycle = %d", i, snap.Cycle)
		}
		for j := 1; j < len(snap.GenderGapByLevel); j++ {
			if snap.GenderGapByLevel[j].Level <= snap.GenderGapByLevel[j-1].Level {
				t.Errorf("cycle %d level gaps not ascending: %v", i, snap.GenderGapByLevel)
			}
		}
	}
	if !out.Analysis.Sufficient || out.Analysis.TotalCycles != 3 {
		t.Errorf("Analysis = %+v", out.Analysis)
	}
	if out.Analysis.MedianSalaryIncrease <= 0 {
		t.Errorf("MedianSalaryIncrease = %v, want positive after three reviews", out.Analysis.MedianSalaryIncrease)
	}

	run, err := server.store.GetRun(ctx, out.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.CyclesCompleted() != 3 || run.PerformanceConsistency != 0.7 || run.RandomSeed != 11 {
		t.Errorf("stored run = %+v", run.Summary())
	}
}

func TestHandleSimulate_UsesConfiguredDefaults(t *testing.T) {
	server, _ := setupTestServer(t)
	server.settings.Simulation.Convergence.Enabled = false

	_, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if out.CyclesRequested != 2 || out.CyclesCompleted != 2 {
		t.Errorf("cycles = %d/%d, want the configured 2", out.CyclesCompleted, out.CyclesRequested)
	}
	if out.Seed != server.settings.Population.RandomSeed {
		t.Errorf("Seed = %d, want configured %d", out.Seed, server.settings.Population.RandomSeed)
	}
	if out.Progression[0].GiniCoefficient <= 0 {
		t.Errorf("initial Gini = %v", out.Progression[0].GiniCoefficient)
	}
}

func TestHandleSimulate_ZeroCycles(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, SimulateInput{Cycles: ptr(0)})
	if err != nil {
		t.Fatalf("handleSimulate failed: %v", err)
	}
	if len(out.Progression) != 1 || out.CyclesCompleted != 0 {
		t.Errorf("progression = %d, cycles = %d, want 1 snapshot and no cycles", len(out.Progression), out.CyclesCompleted)
	}
	if out.Analysis.Sufficient {
		t.Error("Analysis should be insufficient for a single snapshot")
	}
}

func TestHandleSimulate_InvalidArgs(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name string
		args SimulateInput
	}{
		{"negative cycles", SimulateInput{Cycles: ptr(-1)}},
		{"too many cycles", SimulateInput{Cycles: ptr(constants.MaxCycles + 1)}},
		{"consistency above one", SimulateInput{PerformanceConsistency: ptr(1.5)}},
		{"negative size", SimulateInput{Size: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := server.handleSimulate(context.Background(), &sdk.CallToolRequest{}, tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}

	runs, err := server.store.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("failed simulations stored %d runs", len(runs))
	}
}

func TestHandleBelowMedian_Generated(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleBelowMedian(context.Background(), &sdk.CallToolRequest{}, BelowMedianInput{
		PopulationSource: PopulationSource{Size: 200, Seed: ptr(int64(5))},
		Limit:            5,
	})
	if err != nil {
		t.Fatalf("handleBelowMedian failed: %v", err)
	}

	if out.TotalEmployees != 200 {
		t.Errorf("TotalEmployees = %d, want 200", out.TotalEmployees)
	}
	if !strings.Contains(out.Source, "generated 200 employees") {
		t.Errorf("Source = %q", out.Source)
	}
	if out.BelowMedianCount == 0 {
		t.Fatal("expected some employees below their level median")
	}
	if len(out.Employees) != min(out.BelowMedianCount, 5) {
		t.Errorf("listed %d employees, want min(%d, 5)", len(out.Employees), out.BelowMedianCount)
	}
	for i, e := range out.Employees {
		if e.GapPercent < constants.DefaultMinGapPercent {
			t.Errorf("employee %d gap %.2f%% is below the %.0f%% threshold", e.EmployeeID, e.GapPercent, constants.DefaultMinGapPercent)
		}
		if i > 0 && e.GapPercent > out.Employees[i-1].GapPercent {
			t.Errorf("employees not sorted by gap: %.2f after %.2f", e.GapPercent, out.Employees[i-1].GapPercent)
		}
	}

	p := out.Prioritization
	if p.High+p.Medium+p.Low != out.BelowMedianCount {
		t.Errorf("prioritization %+v does not cover %d employees", p, out.BelowMedianCount)
	}
	if len(out.Strategies) != 4 {
		t.Errorf("strategies = %d, want 4", len(out.Strategies))
	}
	if out.Recommended.Name == "" || out.Recommended.Title == "" {
		t.Errorf("Recommended = %+v", out.Recommended)
	}
	if _, err := decimal.NewFromString(out.TotalBudget); err != nil {
		t.Errorf("TotalBudget %q is not a decimal: %v", out.TotalBudget, err)
	}
	if out.GenderAnalysis == nil {
		t.Error("GenderAnalysis should be included by default")
	}
	if len(out.Timeline) == 0 {
		t.Error("Timeline is empty")
	}
}

func TestHandleBelowMedian_ExcludeGender(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleBelowMedian(context.Background(), &sdk.CallToolRequest{}, BelowMedianInput{ExcludeGender: true})
	if err != nil {
		t.Fatalf("handleBelowMedian failed: %v", err)
	}
	if out.GenderAnalysis != nil {
		t.Errorf("GenderAnalysis = %+v, want nil", out.GenderAnalysis)
	}
}

func TestHandleBelowMedian_HighThresholdFindsNobody(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleBelowMedian(context.Background(), &sdk.CallToolRequest{}, BelowMedianInput{MinGapPercent: ptr(100.0)})
	if err != nil {
		t.Fatalf("handleBelowMedian failed: %v", err)
	}
	if out.BelowMedianCount != 0 || len(out.Employees) != 0 {
		t.Errorf("below median = %d, want 0 at a 100%% threshold", out.BelowMedianCount)
	}
}

func TestHandleBelowMedian_FromRun(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	runID := simulateRun(t, server, 3, 2)

	for _, phase := range []string{"", "initial", "final"} {
		t.Run("phase="+phase, func(t *testing.T) {
			_, out, err := server.handleBelowMedian(ctx, &sdk.CallToolRequest{}, BelowMedianInput{
				PopulationSource: PopulationSource{RunID: runID, Phase: phase},
			})
			if err != nil {
				t.Fatalf("handleBelowMedian failed: %v", err)
			}
			if out.TotalEmployees != 60 {
				t.Errorf("TotalEmployees = %d, want 60", out.TotalEmployees)
			}
			want := "final"
			if phase != "" {
				want = phase
			}
			if !strings.Contains(out.Source, runID) || !strings.Contains(out.Source, want) {
				t.Errorf("Source = %q, want run %s (%s)", out.Source, runID, want)
			}
		})
	}
}

func TestHandleBelowMedian_InvalidArgs(t *testing.T) {
	server, _ := setupTestServer(t)
	runID := simulateRun(t, server, 3, 1)

	tests := []struct {
		name        string
		args        BelowMedianInput
		errContains string
	}{
		{"unknown run", BelowMedianInput{PopulationSource: PopulationSource{RunID: "missing"}}, "run not found"},
		{"bad phase", BelowMedianInput{PopulationSource: PopulationSource{RunID: runID, Phase: "middle"}}, "invalid phase"},
		{"phase without run", BelowMedianInput{PopulationSource: PopulationSource{Phase: "initial"}}, "requires run_id"},
		{"run with size", BelowMedianInput{PopulationSource: PopulationSource{RunID: runID, Size: 10}}, "cannot be combined"},
		{"negative min gap", BelowMedianInput{MinGapPercent: ptr(-1.0)}, "min_gap_percent"},
		{"negative limit", BelowMedianInput{Limit: -1}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleBelowMedian(context.Background(), &sdk.CallToolRequest{}, tt.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestHandleRemediation(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRemediation(context.Background(), &sdk.CallToolRequest{}, RemediationInput{
		PopulationSource: PopulationSource{Size: 200, Seed: ptr(int64(9)), GenderPayGapPercent: ptr(10.0)},
		BudgetConstraint: ptr(0.02),
	})
	if err != nil {
		t.Fatalf("handleRemediation failed: %v", err)
	}

	if out.GenderPayGapPercent <= 0 {
		t.Errorf("GenderPayGapPercent = %v, want a positive gap after injecting 10%%", out.GenderPayGapPercent)
	}
	if out.UnderpaidFemales == 0 {
		t.Error("expected underpaid female employees")
	}
	if len(out.Evaluations)+len(out.Inapplicable) != 5 {
		t.Errorf("evaluations %d + inapplicable %d, want 5 strategies", len(out.Evaluations), len(out.Inapplicable))
	}
	for i := 1; i < len(out.Evaluations); i++ {
		if out.Evaluations[i].OverallScore > out.Evaluations[i-1].OverallScore {
			t.Errorf("evaluations not ranked: %v after %v", out.Evaluations[i].OverallScore, out.Evaluations[i-1].OverallScore)
		}
	}
	if len(out.Evaluations) > 0 && out.Recommended != out.Evaluations[0].Name {
		t.Errorf("Recommended = %q, want top ranked %q", out.Recommended, out.Evaluations[0].Name)
	}
	if out.RecommendedTitle == "" || out.Confidence == "" {
		t.Errorf("recommendation = %q (%q)", out.RecommendedTitle, out.Confidence)
	}

	payroll, err := decimal.NewFromString(out.TotalPayroll)
	if err != nil {
		t.Fatalf("TotalPayroll %q is not a decimal: %v", out.TotalPayroll, err)
	}
	limit, err := decimal.NewFromString(out.BudgetLimit)
	if err != nil {
		t.Fatalf("BudgetLimit %q is not a decimal: %v", out.BudgetLimit, err)
	}
	want := payroll.Mul(decimal.NewFromFloat(0.02))
	if limit.Sub(want).Abs().GreaterThan(decimal.NewFromFloat(0.05)) {
		t.Errorf("BudgetLimit = %s, want 2%% of payroll (%s)", limit, want.StringFixed(2))
	}
}

func TestHandleRemediation_FromRun(t *testing.T) {
	server, _ := setupTestServer(t)
	runID := simulateRun(t, server, 4, 2)

	_, out, err := server.handleRemediation(context.Background(), &sdk.CallToolRequest{}, RemediationInput{
		PopulationSource: PopulationSource{RunID: runID, Phase: "initial"},
	})
	if err != nil {
		t.Fatalf("handleRemediation failed: %v", err)
	}
	if !strings.Contains(out.Source, runID) {
		t.Errorf("Source = %q", out.Source)
	}
}

func TestHandleRemediation_InvalidParams(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name string
		args RemediationInput
	}{
		{"zero budget", RemediationInput{BudgetConstraint: ptr(0.0)}},
		{"budget above payroll", RemediationInput{BudgetConstraint: ptr(1.5)}},
		{"negative target", RemediationInput{TargetGapPercent: ptr(-1.0)}},
		{"negative years", RemediationInput{MaxYears: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := server.handleRemediation(context.Background(), &sdk.CallToolRequest{}, tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHandleForecast(t *testing.T) {
	server, auditDir := setupTestServer(t)

	_, out, err := server.handleForecast(context.Background(), &sdk.CallToolRequest{}, ForecastInput{
		PopulationSource: PopulationSource{Seed: ptr(int64(5))},
		EmployeeIDs:      []int{1, 2, 999},
		Years:            3,
		Scenarios:        []string{"optimistic"},
		Detailed:         true,
	})
	if err != nil {
		t.Fatalf("handleForecast failed: %v", err)
	}

	if out.Years != 3 {
		t.Errorf("Years = %d, want 3", out.Years)
	}
	if len(out.Summaries) != 2 || out.Summaries[0].EmployeeID != 1 || out.Summaries[1].EmployeeID != 2 {
		t.Fatalf("Summaries = %+v, want employees 1 and 2", out.Summaries)
	}
	if len(out.Missing) != 1 || out.Missing[0] != 999 {
		t.Errorf("Missing = %v, want [999]", out.Missing)
	}
	for _, sum := range out.Summaries {
		if sum.CurrentSalary <= 0 || sum.RealisticSalary < sum.CurrentSalary {
			t.Errorf("summary %+v, want a non-decreasing realistic projection", sum)
		}
		if sum.KeyRecommendation == "" {
			t.Errorf("employee %d has no recommendation", sum.EmployeeID)
		}
	}

	if len(out.Projections) != 2 {
		t.Fatalf("Projections = %d, want 2 when detailed", len(out.Projections))
	}
	detail := out.Projections[0]
	if len(detail.Scenarios) != 2 ||
		detail.Scenarios[0].Scenario != forecast.ScenarioRealistic ||
		detail.Scenarios[1].Scenario != forecast.ScenarioOptimistic {
		t.Errorf("scenarios = %+v, want realistic then optimistic", detail.Scenarios)
	}
	for _, sc := range detail.Scenarios {
		if len(sc.PerformancePath) != 3 || sc.Years != 3 {
			t.Errorf("%s path = %v over %d years, want 3", sc.Scenario, sc.PerformancePath, sc.Years)
		}
	}
	if detail.Analysis.ConfidenceInterval.Lower > detail.Analysis.ConfidenceInterval.Upper {
		t.Errorf("confidence interval %+v is inverted", detail.Analysis.ConfidenceInterval)
	}
	if len(out.LevelMedians) == 0 {
		t.Error("no level medians reported")
	}

	entries := readAudit(t, auditDir)
	last := entries[len(entries)-1]
	if last.Tool != "paysim_forecast" || last.Params["employee_ids"] != "3" || last.Params["scenarios"] != "(set)" {
		t.Errorf("audit entry = %+v", last)
	}
}

func TestHandleForecast_FromRun(t *testing.T) {
	server, _ := setupTestServer(t)
	runID := simulateRun(t, server, 6, 2)

	_, out, err := server.handleForecast(context.Background(), &sdk.CallToolRequest{}, ForecastInput{
		PopulationSource:  PopulationSource{RunID: runID},
		EmployeeIDs:       []int{10},
		MarketAdjustments: ptr(false),
	})
	if err != nil {
		t.Fatalf("handleForecast failed: %v", err)
	}
	if out.Years != forecast.DefaultYears {
		t.Errorf("Years = %d, want configured default %d", out.Years, forecast.DefaultYears)
	}
	if !strings.Contains(out.Source, runID) {
		t.Errorf("Source = %q", out.Source)
	}
	if len(out.Summaries) != 1 || out.Projections != nil {
		t.Errorf("out = %+v, want one summary and no detail", out)
	}
}

func TestHandleForecast_InvalidArgs(t *testing.T) {
	server, _ := setupTestServer(t)

	many := make([]int, maxForecastEmployees+1)
	for i := range many {
		many[i] = i + 1
	}
	tests := []struct {
		name        string
		args        ForecastInput
		errContains string
	}{
		{"no ids", ForecastInput{}, "at least one"},
		{"too many ids", ForecastInput{EmployeeIDs: many}, "at most"},
		{"negative years", ForecastInput{EmployeeIDs: []int{1}, Years: -1}, "years"},
		{"years above max", ForecastInput{EmployeeIDs: []int{1}, Years: forecast.MaxYears + 1}, "years"},
		{"unknown scenario", ForecastInput{EmployeeIDs: []int{1}, Scenarios: []string{"rosy"}}, "unknown scenario"},
		{"unknown run", ForecastInput{EmployeeIDs: []int{1}, PopulationSource: PopulationSource{RunID: "missing"}}, "run not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleForecast(context.Background(), &sdk.CallToolRequest{}, tt.args)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestHandleRuns(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 0 || out.Runs == nil {
		t.Errorf("empty store: Count = %d, Runs = %v", out.Count, out.Runs)
	}

	first := simulateRun(t, server, 1, 1)
	second := simulateRun(t, server, 2, 1)

	_, out, err = server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}
	ids := map[string]bool{out.Runs[0].ID: true, out.Runs[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("runs = %v, want %s and %s", out.Runs, first, second)
	}

	_, out, err = server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{Limit: 1})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 1 || len(out.Runs) != 1 {
		t.Errorf("limited Count = %d, want 1", out.Count)
	}

	if _, _, err := server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{Limit: -1}); err == nil {
		t.Error("negative limit should be rejected")
	}
}

func TestHandleValidate(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleValidate(context.Background(), &sdk.CallToolRequest{}, ValidateInput{})
	if err != nil {
		t.Fatalf("handleValidate failed: %v", err)
	}
	if !out.Passed || !out.UpliftPassed || !out.InequalityPassed {
		t.Errorf("validation failed: %+v", out)
	}
	if want := len(models.Ratings) * models.MaxLevel; out.UpliftCases != want {
		t.Errorf("UpliftCases = %d, want %d", out.UpliftCases, want)
	}
	if len(out.UpliftFailures) != 0 {
		t.Errorf("UpliftFailures = %v", out.UpliftFailures)
	}
	if len(out.InequalityChecks) == 0 {
		t.Error("no inequality checks reported")
	}
	if !out.ForecastPassed || len(out.ForecastChecks) != 4 {
		t.Errorf("ForecastPassed = %v with %d checks, want 4 passing", out.ForecastPassed, len(out.ForecastChecks))
	}
}

func TestHandlers_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	server.toolLimiters = ratelimit.ToolLimiters{"paysim_runs": ratelimit.NewLimiter(0.001, 1)}
	ctx := context.Background()

	if _, _, err := server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_, _, err := server.handleRuns(ctx, &sdk.CallToolRequest{}, RunsInput{})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("second call error = %v, want rate limit", err)
	}
}

func readResource(t *testing.T, server *Server, uri string, handler func(context.Context, *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error)) (string, error) {
	t.Helper()
	res, err := handler(context.Background(), &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: uri}})
	if err != nil {
		return "", err
	}
	if len(res.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(res.Contents))
	}
	if res.Contents[0].MIMEType != "text/markdown" {
		t.Errorf("MIMEType = %q", res.Contents[0].MIMEType)
	}
	return res.Contents[0].Text, nil
}

func TestHandleRunsResource(t *testing.T) {
	server, _ := setupTestServer(t)

	text, err := readResource(t, server, "paysim://runs", server.handleRunsResource)
	if err != nil {
		t.Fatalf("handleRunsResource failed: %v", err)
	}
	if !strings.Contains(text, "No runs stored yet") {
		t.Errorf("empty listing = %q", text)
	}

	runID := simulateRun(t, server, 8, 1)
	text, err = readResource(t, server, "paysim://runs", server.handleRunsResource)
	if err != nil {
		t.Fatalf("handleRunsResource failed: %v", err)
	}
	if !strings.Contains(text, runID) {
		t.Errorf("listing does not mention run %s:\n%s", runID, text)
	}
}

func TestHandleRunResource(t *testing.T) {
	server, _ := setupTestServer(t)
	runID := simulateRun(t, server, 8, 2)

	text, err := readResource(t, server, runURIPrefix+runID, server.handleRunResource)
	if err != nil {
		t.Fatalf("handleRunResource failed: %v", err)
	}
	for _, want := range []string{
		"# Run: test (" + runID + ")",
		"**Cycles:** 2 of 2",
		"## Inequality by Cycle",
		"## Outcome",
		"## Below-Median Intervention",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	if _, err := readResource(t, server, runURIPrefix+"missing", server.handleRunResource); err == nil {
		t.Error("unknown run should fail")
	}
	if _, err := readResource(t, server, runURIPrefix, server.handleRunResource); err == nil {
		t.Error("empty run ID should fail")
	}
	if _, err := readResource(t, server, "other://runs/x", server.handleRunResource); err == nil {
		t.Error("foreign URI should fail")
	}
}
