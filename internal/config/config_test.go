package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/paysim/internal/constants"
)

func ptr[T any](v T) *T { return &v }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	if config.Population.Size != 1000 {
		t.Errorf("expected Population.Size 1000, got %d", config.Population.Size)
	}
	if config.Population.GenderPayGapPercent != nil {
		t.Errorf("expected no injected gap by default, got %v", *config.Population.GenderPayGapPercent)
	}
	if config.Simulation.Cycles != constants.DefaultCycles {
		t.Errorf("expected Cycles %d, got %d", constants.DefaultCycles, config.Simulation.Cycles)
	}
	if !config.Simulation.Convergence.Enabled {
		t.Error("expected convergence to be enabled by default")
	}
	if config.Analysis.BudgetConstraint != constants.DefaultBudgetConstraint {
		t.Errorf("expected BudgetConstraint %f, got %f", constants.DefaultBudgetConstraint, config.Analysis.BudgetConstraint)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	// Defaults must not alias the shared distribution.
	config.Population.LevelDistribution[0] = 0.9
	if constants.DefaultLevelDistribution[0] == 0.9 {
		t.Error("Default() aliased constants.DefaultLevelDistribution")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
population:
  size: 250
  random_seed: 7
  gender_pay_gap_percent: 12.5
  salary_constraints:
    1:
      min: 25000
      max: 32000
      median_target: 28000

simulation:
  cycles: 8
  performance_consistency: 0.5
  convergence:
    enabled: false

analysis:
  budget_constraint: 0.02

forecast:
  years: 8
  market_adjustments: false
`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Population.Size != 250 || config.Population.RandomSeed != 7 {
		t.Errorf("population = %+v", config.Population)
	}
	if config.Population.GenderPayGapPercent == nil || *config.Population.GenderPayGapPercent != 12.5 {
		t.Errorf("expected gender gap 12.5, got %v", config.Population.GenderPayGapPercent)
	}
	if band := config.Population.SalaryConstraints[1]; band.MedianTarget != 28000 {
		t.Errorf("expected level 1 median target 28000, got %+v", band)
	}
	if config.Simulation.Cycles != 8 || config.Simulation.PerformanceConsistency != 0.5 {
		t.Errorf("simulation = %+v", config.Simulation)
	}
	if config.Simulation.Convergence.Enabled {
		t.Error("expected convergence disabled")
	}
	if config.Analysis.BudgetConstraint != 0.02 {
		t.Errorf("expected BudgetConstraint 0.02, got %f", config.Analysis.BudgetConstraint)
	}

	if config.Forecast.Years != 8 || config.Forecast.MarketAdjustments {
		t.Errorf("forecast = %+v", config.Forecast)
	}

	// Keys absent from the file keep their defaults.
	if config.Forecast.ConfidenceLevel != 0.95 {
		t.Errorf("expected default confidence level, got %f", config.Forecast.ConfidenceLevel)
	}
	if config.Analysis.MaxYears != constants.DefaultMaxYears {
		t.Errorf("expected MaxYears default %d, got %d", constants.DefaultMaxYears, config.Analysis.MaxYears)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected default log level, got %q", config.Logging.Level)
	}
	if len(config.Population.LevelDistribution) != 6 {
		t.Errorf("expected default level distribution, got %v", config.Population.LevelDistribution)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "population: [not, a, map")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFromFile_ExpandsStoragePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PAYSIM_TEST_DATA", dir)

	path := writeConfig(t, "storage:\n  path: ${PAYSIM_TEST_DATA}/runs.db\n")
	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if want := dir + "/runs.db"; config.Storage.Path != want {
		t.Errorf("expected Storage.Path %q, got %q", want, config.Storage.Path)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PAYSIM_POPULATION_SIZE", "300")
	t.Setenv("PAYSIM_RANDOM_SEED", "99")
	t.Setenv("PAYSIM_GENDER_PAY_GAP", "8")
	t.Setenv("PAYSIM_CYCLES", "3")
	t.Setenv("PAYSIM_CONSISTENCY", "0.9")
	t.Setenv("PAYSIM_DB_PATH", "/tmp/paysim.db")
	t.Setenv("PAYSIM_LOG_LEVEL", "debug")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides failed: %v", err)
	}

	if config.Population.Size != 300 || config.Population.RandomSeed != 99 {
		t.Errorf("population = %+v", config.Population)
	}
	if config.Population.GenderPayGapPercent == nil || *config.Population.GenderPayGapPercent != 8 {
		t.Errorf("expected gender gap 8, got %v", config.Population.GenderPayGapPercent)
	}
	if config.Simulation.Cycles != 3 || config.Simulation.PerformanceConsistency != 0.9 {
		t.Errorf("simulation = %+v", config.Simulation)
	}
	if config.Storage.Path != "/tmp/paysim.db" {
		t.Errorf("expected Storage.Path override, got %q", config.Storage.Path)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got %q", config.Logging.Level)
	}
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"size", "PAYSIM_POPULATION_SIZE"},
		{"seed", "PAYSIM_RANDOM_SEED"},
		{"gap", "PAYSIM_GENDER_PAY_GAP"},
		{"cycles", "PAYSIM_CYCLES"},
		{"consistency", "PAYSIM_CONSISTENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, "lots")
			err := applyEnvOverrides(Default())
			if err == nil {
				t.Fatalf("expected error for %s=lots", tt.key)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PaysimConfig)
		wantErr bool
	}{
		{"defaults", func(*PaysimConfig) {}, false},
		{"zero population", func(c *PaysimConfig) { c.Population.Size = 0 }, true},
		{"distribution not summing to one", func(c *PaysimConfig) {
			c.Population.LevelDistribution = []float64{0.5, 0.5, 0.5, 0, 0, 0}
		}, true},
		{"negative cycles", func(c *PaysimConfig) { c.Simulation.Cycles = -1 }, true},
		{"too many cycles", func(c *PaysimConfig) { c.Simulation.Cycles = constants.MaxCycles + 1 }, true},
		{"zero cycles", func(c *PaysimConfig) { c.Simulation.Cycles = 0 }, false},
		{"consistency above one", func(c *PaysimConfig) { c.Simulation.PerformanceConsistency = 1.1 }, true},
		{"consistency zero", func(c *PaysimConfig) { c.Simulation.PerformanceConsistency = 0 }, false},
		{"convergence without lookback", func(c *PaysimConfig) { c.Simulation.Convergence.Lookback = 0 }, true},
		{"disabled convergence ignores lookback", func(c *PaysimConfig) {
			c.Simulation.Convergence.Enabled = false
			c.Simulation.Convergence.Lookback = 0
		}, false},
		{"NaN consistency", func(c *PaysimConfig) { c.Simulation.PerformanceConsistency = math.NaN() }, true},
		{"NaN gender gap", func(c *PaysimConfig) { c.Population.GenderPayGapPercent = ptr(math.NaN()) }, true},
		{"NaN gini threshold", func(c *PaysimConfig) { c.Simulation.Convergence.GiniThreshold = math.NaN() }, true},
		{"negative min gap", func(c *PaysimConfig) { c.Analysis.MinGapPercent = -1 }, true},
		{"NaN min gap", func(c *PaysimConfig) { c.Analysis.MinGapPercent = math.NaN() }, true},
		{"zero budget", func(c *PaysimConfig) { c.Analysis.BudgetConstraint = 0 }, true},
		{"zero max years", func(c *PaysimConfig) { c.Analysis.MaxYears = 0 }, true},
		{"zero forecast years", func(c *PaysimConfig) { c.Forecast.Years = 0 }, true},
		{"forecast confidence one", func(c *PaysimConfig) { c.Forecast.ConfidenceLevel = 1 }, true},
		{"NaN forecast confidence", func(c *PaysimConfig) { c.Forecast.ConfidenceLevel = math.NaN() }, true},
		{"zero inflation", func(c *PaysimConfig) { c.Forecast.MarketInflationRate = 0 }, true},
		{"negative adjustment year", func(c *PaysimConfig) { c.Forecast.MarketAdjustmentYears = []int{2, -1} }, true},
		{"no adjustment years", func(c *PaysimConfig) { c.Forecast.MarketAdjustmentYears = []int{} }, false},
		{"unknown log level", func(c *PaysimConfig) { c.Logging.Level = "verbose" }, true},
		{"empty log level", func(c *PaysimConfig) { c.Logging.Level = "" }, false},
		{"warn log level", func(c *PaysimConfig) { c.Logging.Level = "warn" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := Default()
	gap := 10.0
	config.Population.GenderPayGapPercent = &gap
	config.Simulation.Cycles = 12
	if err := config.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Simulation.Cycles != 12 {
		t.Errorf("expected Cycles 12, got %d", loaded.Simulation.Cycles)
	}
	if loaded.Population.GenderPayGapPercent == nil || *loaded.Population.GenderPayGapPercent != 10 {
		t.Errorf("expected gender gap 10, got %v", loaded.Population.GenderPayGapPercent)
	}
}

func TestConverters(t *testing.T) {
	config := Default()
	config.Population.RandomSeed = 5

	opts := config.Population.Options(nil)
	if opts.PopulationSize != config.Population.Size || opts.RandomSeed != 5 {
		t.Errorf("Options() = %+v", opts)
	}

	sim := config.SimulatorConfig(nil, nil)
	if sim.RandomSeed != 5 || sim.Convergence != config.Simulation.Convergence {
		t.Errorf("SimulatorConfig() = %+v", sim)
	}

	proj := config.ProjectorOptions(nil)
	if proj.RandomSeed != 5 || proj.SkipMarketAdjustments || proj.ConfidenceLevel != config.Forecast.ConfidenceLevel {
		t.Errorf("ProjectorOptions() = %+v", proj)
	}
	config.Forecast.MarketAdjustments = false
	if !config.ProjectorOptions(nil).SkipMarketAdjustments {
		t.Error("ProjectorOptions() ignored disabled market adjustments")
	}

	params := config.Analysis.RemediationParams()
	if params.MaxYears != config.Analysis.MaxYears || params.BudgetConstraint != config.Analysis.BudgetConstraint {
		t.Errorf("RemediationParams() = %+v", params)
	}
}
