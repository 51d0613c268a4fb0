// Package config provides unified configuration loading for paysim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/paysim/internal/constants"
	"github.com/nvandessel/paysim/internal/forecast"
	"github.com/nvandessel/paysim/internal/intervention"
	"github.com/nvandessel/paysim/internal/logging"
	"github.com/nvandessel/paysim/internal/models"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/simulation"
)

// PaysimConfig contains all paysim configuration settings.
type PaysimConfig struct {
	// Population controls synthetic population generation.
	Population PopulationConfig `json:"population" yaml:"population"`

	// Simulation controls multi-cycle review simulation.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Analysis holds defaults for the below-median and remediation analyses.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Forecast holds defaults for individual salary progression projections.
	Forecast ForecastConfig `json:"forecast" yaml:"forecast"`

	// Storage locates the run database.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// PopulationConfig mirrors population.Options in file form.
type PopulationConfig struct {
	Size       int   `json:"size" yaml:"size"`
	RandomSeed int64 `json:"random_seed" yaml:"random_seed"`

	// LevelDistribution is the headcount share for levels 1..6 and must sum to 1.
	LevelDistribution []float64 `json:"level_distribution" yaml:"level_distribution"`

	// GenderPayGapPercent injects an explicit gap. Leave unset for the
	// default random pattern.
	GenderPayGapPercent *float64 `json:"gender_pay_gap_percent,omitempty" yaml:"gender_pay_gap_percent,omitempty"`

	// SalaryConstraints overrides the built-in salary band per level.
	SalaryConstraints map[int]models.SalaryBand `json:"salary_constraints,omitempty" yaml:"salary_constraints,omitempty"`

	MedianMaxIterations int     `json:"median_max_iterations" yaml:"median_max_iterations"`
	MedianTolerance     float64 `json:"median_tolerance" yaml:"median_tolerance"`
}

// Options converts the section into generator options.
func (p PopulationConfig) Options(logger *slog.Logger) population.Options {
	return population.Options{
		PopulationSize:      p.Size,
		RandomSeed:          p.RandomSeed,
		LevelDistribution:   p.LevelDistribution,
		GenderPayGapPercent: p.GenderPayGapPercent,
		SalaryConstraints:   p.SalaryConstraints,
		MedianMaxIterations: p.MedianMaxIterations,
		MedianTolerance:     p.MedianTolerance,
		Logger:              logger,
	}
}

// SimulationConfig configures review cycle simulation.
type SimulationConfig struct {
	Cycles int `json:"cycles" yaml:"cycles"`

	// PerformanceConsistency is the probability an employee keeps a rating
	// close to their previous one. Range: 0.0 to 1.0
	PerformanceConsistency float64 `json:"performance_consistency" yaml:"performance_consistency"`

	Convergence simulation.ConvergenceConfig `json:"convergence" yaml:"convergence"`
}

// SimulatorConfig builds the simulator settings. The simulator shares the
// population seed so a run is reproducible from one number.
func (c *PaysimConfig) SimulatorConfig(logger *slog.Logger, decisions *logging.DecisionLogger) simulation.Config {
	return simulation.Config{
		RandomSeed:  c.Population.RandomSeed,
		Convergence: c.Simulation.Convergence,
		Logger:      logger,
		Decisions:   decisions,
	}
}

// AnalysisConfig holds analyzer defaults.
type AnalysisConfig struct {
	// MinGapPercent is how far below the level median an employee must be
	// to count as below median.
	MinGapPercent float64 `json:"min_gap_percent" yaml:"min_gap_percent"`

	TargetGapPercent float64 `json:"target_gap_percent" yaml:"target_gap_percent"`
	MaxYears         int     `json:"max_years" yaml:"max_years"`

	// BudgetConstraint is the largest fraction of payroll a remediation may spend.
	BudgetConstraint float64 `json:"budget_constraint" yaml:"budget_constraint"`
}

// RemediationParams converts the section into remediation parameters.
func (a AnalysisConfig) RemediationParams() intervention.Params {
	return intervention.Params{
		TargetGapPercent: a.TargetGapPercent,
		MaxYears:         a.MaxYears,
		BudgetConstraint: a.BudgetConstraint,
	}
}

// ForecastConfig holds progression projection defaults.
type ForecastConfig struct {
	Years           int     `json:"years" yaml:"years"`
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level"`

	// MarketInflationRate drives the projected growth of level medians.
	MarketInflationRate float64 `json:"market_inflation_rate" yaml:"market_inflation_rate"`

	// MarketAdjustments applies one-off market boosts in the listed
	// zero-based years of each projection.
	MarketAdjustments     bool  `json:"market_adjustments" yaml:"market_adjustments"`
	MarketAdjustmentYears []int `json:"market_adjustment_years" yaml:"market_adjustment_years"`
}

// ProjectorOptions builds the projector settings. Market boosts draw from
// the population seed.
func (c *PaysimConfig) ProjectorOptions(logger *slog.Logger) forecast.Options {
	f := c.Forecast
	return forecast.Options{
		ConfidenceLevel:       f.ConfidenceLevel,
		MarketInflationRate:   f.MarketInflationRate,
		SkipMarketAdjustments: !f.MarketAdjustments,
		MarketAdjustmentYears: f.MarketAdjustmentYears,
		RandomSeed:            c.Population.RandomSeed,
		Logger:                logger,
	}
}

// StorageConfig locates persisted runs.
type StorageConfig struct {
	// Path is the SQLite database file. Supports ${VAR} syntax. Empty means
	// ~/.paysim/runs.db.
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig configures paysim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "warn", "info" (default), "debug", or "trace".
	// "debug" and "trace" enable decision logging to decisions.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a PaysimConfig with sensible defaults.
func Default() *PaysimConfig {
	return &PaysimConfig{
		Population: PopulationConfig{
			Size:                1000,
			RandomSeed:          42,
			LevelDistribution:   append([]float64(nil), constants.DefaultLevelDistribution...),
			MedianMaxIterations: constants.MedianMaxIterations,
			MedianTolerance:     constants.MedianTolerance,
		},
		Simulation: SimulationConfig{
			Cycles:                 constants.DefaultCycles,
			PerformanceConsistency: constants.DefaultPerformanceConsistency,
			Convergence:            simulation.DefaultConvergenceConfig(),
		},
		Analysis: AnalysisConfig{
			MinGapPercent:    constants.DefaultMinGapPercent,
			TargetGapPercent: constants.DefaultTargetGapPercent,
			MaxYears:         constants.DefaultMaxYears,
			BudgetConstraint: constants.DefaultBudgetConstraint,
		},
		Forecast: ForecastConfig{
			Years:                 forecast.DefaultYears,
			ConfidenceLevel:       forecast.DefaultConfidenceLevel,
			MarketInflationRate:   forecast.DefaultMarketInflationRate,
			MarketAdjustments:     true,
			MarketAdjustmentYears: append([]int(nil), forecast.DefaultMarketAdjustmentYears...),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.paysim/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".paysim", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.paysim/config.yaml -> environment variables
func Load() (*PaysimConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*PaysimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Storage.Path = expandEnvVars(config.Storage.Path)

	return config, nil
}

// LoadFile loads path and then applies environment overrides, for use with
// an explicit --config flag.
func LoadFile(path string) (*PaysimConfig, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *PaysimConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *PaysimConfig) Validate() error {
	if err := c.Population.Options(nil).Validate(); err != nil {
		return err
	}

	if c.Simulation.Cycles < 0 || c.Simulation.Cycles > constants.MaxCycles {
		return fmt.Errorf("cycles must be between 0 and %d, got %d", constants.MaxCycles, c.Simulation.Cycles)
	}

	if !(c.Simulation.PerformanceConsistency >= 0 && c.Simulation.PerformanceConsistency <= 1) {
		return fmt.Errorf("performance_consistency must be between 0 and 1, got %f", c.Simulation.PerformanceConsistency)
	}

	if conv := c.Simulation.Convergence; conv.Enabled {
		if conv.Lookback < 1 {
			return fmt.Errorf("convergence lookback must be at least 1, got %d", conv.Lookback)
		}
		if !(conv.GiniThreshold >= 0 && conv.GapThreshold >= 0) {
			return fmt.Errorf("convergence thresholds must be non-negative")
		}
	}

	if !(c.Analysis.MinGapPercent >= 0) {
		return fmt.Errorf("min_gap_percent must be non-negative, got %f", c.Analysis.MinGapPercent)
	}

	if err := c.Analysis.RemediationParams().Validate(); err != nil {
		return err
	}

	if f := c.Forecast; f.Years < 1 || f.Years > forecast.MaxYears {
		return fmt.Errorf("forecast years must be between 1 and %d, got %d", forecast.MaxYears, f.Years)
	}
	if !(c.Forecast.ConfidenceLevel > 0 && c.Forecast.ConfidenceLevel < 1) {
		return fmt.Errorf("forecast confidence_level must be between 0 and 1 exclusive, got %f", c.Forecast.ConfidenceLevel)
	}
	if !(c.Forecast.MarketInflationRate > 0 && c.Forecast.MarketInflationRate < 1) {
		return fmt.Errorf("forecast market_inflation_rate must be between 0 and 1 exclusive, got %f", c.Forecast.MarketInflationRate)
	}
	for _, y := range c.Forecast.MarketAdjustmentYears {
		if y < 0 {
			return fmt.Errorf("forecast market_adjustment_years must be non-negative, got %d", y)
		}
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies PAYSIM_* environment variable overrides to the
// config. Malformed numbers are reported rather than ignored.
func applyEnvOverrides(config *PaysimConfig) error {
	if v := os.Getenv("PAYSIM_POPULATION_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAYSIM_POPULATION_SIZE: %w", err)
		}
		config.Population.Size = n
	}

	if v := os.Getenv("PAYSIM_RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PAYSIM_RANDOM_SEED: %w", err)
		}
		config.Population.RandomSeed = n
	}

	if v := os.Getenv("PAYSIM_GENDER_PAY_GAP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAYSIM_GENDER_PAY_GAP: %w", err)
		}
		config.Population.GenderPayGapPercent = &f
	}

	if v := os.Getenv("PAYSIM_CYCLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAYSIM_CYCLES: %w", err)
		}
		config.Simulation.Cycles = n
	}

	if v := os.Getenv("PAYSIM_CONSISTENCY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAYSIM_CONSISTENCY: %w", err)
		}
		config.Simulation.PerformanceConsistency = f
	}

	if v := os.Getenv("PAYSIM_DB_PATH"); v != "" {
		config.Storage.Path = expandEnvVars(v)
	}

	if v := os.Getenv("PAYSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
