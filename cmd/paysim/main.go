package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nvandessel/paysim/internal/config"
	"github.com/nvandessel/paysim/internal/logging"
	"github.com/nvandessel/paysim/internal/population"
	"github.com/nvandessel/paysim/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paysim",
		Short: "Pay equity simulation - synthetic workforces and annual review cycles",
		Long: `paysim generates synthetic employee populations with realistic pay
inequality, simulates annual performance reviews over them, and analyses
how the Gini coefficient and gender pay gap evolve.

Simulated runs are stored in ~/.paysim/runs.db and can be analysed,
inspected and exported later.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.paysim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newReviewCmd(),
		newSimulateCmd(),
		newAnalyzeCmd(),
		newForecastCmd(),
		newValidateCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads --config or the default config file, applies --log-level
// and validates the result.
func loadConfig(cmd *cobra.Command) (*config.PaysimConfig, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.PaysimConfig
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes operational logs to stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.PaysimConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// openStore opens the configured run database, defaulting to ~/.paysim/runs.db.
func openStore(cfg *config.PaysimConfig, logger *slog.Logger) (*store.SQLiteRunStore, error) {
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		if err := store.EnsureGlobalPaysimDir(); err != nil {
			return nil, err
		}
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	s, err := store.NewSQLiteRunStore(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return s, nil
}

// addPopulationFlags registers the flags shared by every command that
// generates a population.
func addPopulationFlags(cmd *cobra.Command) {
	cmd.Flags().Int("size", 0, "Number of employees (default from config)")
	cmd.Flags().Int64("seed", 0, "Random seed (default from config)")
	cmd.Flags().Float64("gap", 0, "Inject an explicit gender pay gap percent (0-50)")
}

// populationOptions layers population flags over the configured defaults.
func populationOptions(cmd *cobra.Command, cfg *config.PaysimConfig, logger *slog.Logger) population.Options {
	if cmd.Flags().Changed("size") {
		cfg.Population.Size, _ = cmd.Flags().GetInt("size")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Population.RandomSeed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("gap") {
		gap, _ := cmd.Flags().GetFloat64("gap")
		cfg.Population.GenderPayGapPercent = &gap
	}
	return cfg.Population.Options(logger)
}

func jsonOutput(cmd *cobra.Command) bool {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return jsonOut
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
