package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/nvandessel/paysim/internal/config"
	"github.com/nvandessel/paysim/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage paysim configuration",
		Long: `View and modify paysim configuration settings.

Configuration is stored in ~/.paysim/config.yaml unless --config is given.
PAYSIM_* environment variables override file values at load time.

Examples:
  paysim config list                              # Show effective settings
  paysim config get simulation.cycles             # Get a specific setting
  paysim config set population.size 2500          # Set a setting
  paysim config set population.gender_pay_gap_percent 12`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			// File values only; environment overrides must not be written back.
			cfg, err := loadConfigFile(path)
			if err != nil {
				return err
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
					"path":   path,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configPath returns --config or ~/.paysim/config.yaml.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// loadConfigFile reads path, falling back to defaults when it does not exist yet.
func loadConfigFile(path string) (*config.PaysimConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.PaysimConfig, key string) (any, bool) {
	switch key {
	case "population.size":
		return cfg.Population.Size, true
	case "population.random_seed":
		return cfg.Population.RandomSeed, true
	case "population.level_distribution":
		return cfg.Population.LevelDistribution, true
	case "population.gender_pay_gap_percent":
		if cfg.Population.GenderPayGapPercent == nil {
			return "(random)", true
		}
		return *cfg.Population.GenderPayGapPercent, true
	case "population.median_max_iterations":
		return cfg.Population.MedianMaxIterations, true
	case "population.median_tolerance":
		return cfg.Population.MedianTolerance, true
	case "simulation.cycles":
		return cfg.Simulation.Cycles, true
	case "simulation.performance_consistency":
		return cfg.Simulation.PerformanceConsistency, true
	case "simulation.convergence.enabled":
		return cfg.Simulation.Convergence.Enabled, true
	case "simulation.convergence.lookback":
		return cfg.Simulation.Convergence.Lookback, true
	case "simulation.convergence.gini_threshold":
		return cfg.Simulation.Convergence.GiniThreshold, true
	case "simulation.convergence.gap_threshold":
		return cfg.Simulation.Convergence.GapThreshold, true
	case "analysis.min_gap_percent":
		return cfg.Analysis.MinGapPercent, true
	case "analysis.target_gap_percent":
		return cfg.Analysis.TargetGapPercent, true
	case "analysis.max_years":
		return cfg.Analysis.MaxYears, true
	case "analysis.budget_constraint":
		return cfg.Analysis.BudgetConstraint, true
	case "forecast.years":
		return cfg.Forecast.Years, true
	case "forecast.confidence_level":
		return cfg.Forecast.ConfidenceLevel, true
	case "forecast.market_inflation_rate":
		return cfg.Forecast.MarketInflationRate, true
	case "forecast.market_adjustments":
		return cfg.Forecast.MarketAdjustments, true
	case "forecast.market_adjustment_years":
		return cfg.Forecast.MarketAdjustmentYears, true
	case "storage.path":
		return valueOrDefault(cfg.Storage.Path, "(default)"), true
	case "logging.level":
		return valueOrDefault(cfg.Logging.Level, "info"), true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to PaysimConfig.Validate.
func setConfigValue(cfg *config.PaysimConfig, key, value string) error {
	var err error
	switch key {
	case "population.size":
		cfg.Population.Size, err = strconv.Atoi(value)
	case "population.random_seed":
		cfg.Population.RandomSeed, err = strconv.ParseInt(value, 10, 64)
	case "population.gender_pay_gap_percent":
		if value == "" || value == "random" {
			cfg.Population.GenderPayGapPercent = nil
			return nil
		}
		var gap float64
		gap, err = strconv.ParseFloat(value, 64)
		cfg.Population.GenderPayGapPercent = &gap
	case "population.median_max_iterations":
		cfg.Population.MedianMaxIterations, err = strconv.Atoi(value)
	case "population.median_tolerance":
		cfg.Population.MedianTolerance, err = strconv.ParseFloat(value, 64)
	case "simulation.cycles":
		cfg.Simulation.Cycles, err = strconv.Atoi(value)
	case "simulation.performance_consistency":
		cfg.Simulation.PerformanceConsistency, err = strconv.ParseFloat(value, 64)
	case "simulation.convergence.enabled":
		cfg.Simulation.Convergence.Enabled, err = strconv.ParseBool(value)
	case "simulation.convergence.lookback":
		cfg.Simulation.Convergence.Lookback, err = strconv.Atoi(value)
	case "simulation.convergence.gini_threshold":
		cfg.Simulation.Convergence.GiniThreshold, err = strconv.ParseFloat(value, 64)
	case "simulation.convergence.gap_threshold":
		cfg.Simulation.Convergence.GapThreshold, err = strconv.ParseFloat(value, 64)
	case "analysis.min_gap_percent":
		cfg.Analysis.MinGapPercent, err = strconv.ParseFloat(value, 64)
	case "analysis.target_gap_percent":
		cfg.Analysis.TargetGapPercent, err = strconv.ParseFloat(value, 64)
	case "analysis.max_years":
		cfg.Analysis.MaxYears, err = strconv.Atoi(value)
	case "analysis.budget_constraint":
		cfg.Analysis.BudgetConstraint, err = strconv.ParseFloat(value, 64)
	case "forecast.years":
		cfg.Forecast.Years, err = strconv.Atoi(value)
	case "forecast.confidence_level":
		cfg.Forecast.ConfidenceLevel, err = strconv.ParseFloat(value, 64)
	case "forecast.market_inflation_rate":
		cfg.Forecast.MarketInflationRate, err = strconv.ParseFloat(value, 64)
	case "forecast.market_adjustments":
		cfg.Forecast.MarketAdjustments, err = strconv.ParseBool(value)
	case "storage.path":
		cfg.Storage.Path = value
	case "logging.level":
		if value != "" && !logging.ValidLevel(value) {
			return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace)", value)
		}
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
