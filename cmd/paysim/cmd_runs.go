package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/paysim/internal/pathutil"
	"github.com/nvandessel/paysim/internal/simulation"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect, export and delete stored simulation runs",
		Long: `Manage runs stored by 'paysim simulate' and 'paysim generate --save'.

Examples:
  paysim runs list                       # Newest first
  paysim runs show <id>                  # Progression and outcome
  paysim runs export <id>                # JSONL files under ~/.paysim/exports/<id>
  paysim runs export <id> --dir ./out    # Into a directory below the working directory
  paysim runs delete <id>`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsExportCmd(),
		newRunsDeleteCmd(),
	)

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openStore(cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"runs": runs, "count": len(runs)})
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs stored yet. Use 'paysim simulate' to create one.")
				return nil
			}
			fmt.Fprintf(w, "%-36s  %-20s  %-16s %6s %7s %8s %9s\n", "ID", "Created", "Label", "Size", "Cycles", "Gini", "Gap")
			for _, r := range runs {
				fmt.Fprintf(w, "%-36s  %-20s  %-16s %6d %3d/%-3d %8.4f %8.2f%%\n",
					r.ID, r.CreatedAt.Format(time.DateTime), r.Label, r.PopulationSize,
					r.CyclesCompleted, r.CyclesRequested, r.FinalGini, r.FinalGenderGap)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 0, "Show at most this many runs (0 for all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run's inequality progression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			analysis := simulation.FinalAnalysis(run.Snapshots)

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"run":                     run.Summary(),
					"performance_consistency": run.PerformanceConsistency,
					"inequality_progression":  run.Snapshots,
					"analysis":                analysis,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:         %s\n", run.ID)
			if run.Label != "" {
				fmt.Fprintf(w, "Label:       %s\n", run.Label)
			}
			fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "Seed:        %d\n", run.RandomSeed)
			fmt.Fprintf(w, "Employees:   %d\n", len(run.Initial))
			fmt.Fprintf(w, "Cycles:      %d of %d", run.CyclesCompleted(), run.CyclesRequested)
			if run.Converged {
				fmt.Fprintf(w, " (converged at cycle %d)", run.ConvergedCycle)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Consistency: %.2f\n", run.PerformanceConsistency)
			if len(run.Snapshots) > 0 {
				fmt.Fprintln(w)
				printProgression(w, run.Snapshots)
			}
			fmt.Fprintln(w)
			printAnalysis(w, analysis)
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a run as JSONL files",
		Long: `Write run.json, employees.jsonl, reviews.jsonl and snapshots.jsonl for a
stored run. Review salaries are exported in pennies.

The directory must be under ~/.paysim/exports or the current working
directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runID := args[0]

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				exportRoot, err := pathutil.DefaultExportDir()
				if err != nil {
					return err
				}
				dir = filepath.Join(exportRoot, runID)
			}

			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			allowed, err := pathutil.AllowedExportDirs(workDir)
			if err != nil {
				return err
			}
			if err := pathutil.ValidatePath(dir, allowed); err != nil {
				return fmt.Errorf("export directory rejected: %w", err)
			}

			s, err := openStore(cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.ExportJSONL(cmd.Context(), runID, dir)
			if err != nil {
				return fmt.Errorf("failed to export run: %w", err)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported run %s to %s (%d employees, %d reviews, %d snapshots)\n",
				runID, res.Dir, res.Employees, res.Reviews, res.Snapshots)
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Output directory (default ~/.paysim/exports/<id>)")

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"status": "deleted", "id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
