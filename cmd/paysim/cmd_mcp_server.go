package main

import (
	"fmt"

	"github.com/nvandessel/paysim/internal/logging"
	"github.com/nvandessel/paysim/internal/mcp"
	"github.com/nvandessel/paysim/internal/store"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout so AI assistants
can generate populations, run simulations and analyse pay gaps.

Runs created through the server are stored in the same database as
'paysim simulate'. Tool calls are audited to ~/.paysim/audit.jsonl.

Example client configuration:
  {"mcpServers": {"paysim": {"command": "paysim", "args": ["mcp-server"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol, so logs go to stderr as JSON.
			logger := logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr())

			noAudit, _ := cmd.Flags().GetBool("no-audit")
			var auditDir string
			if !noAudit {
				auditDir, err = store.GlobalPaysimPath()
				if err != nil {
					return err
				}
			}

			runStore, err := openStore(cfg, logger)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "paysim",
				Version:  version,
				Store:    runStore,
				Settings: cfg,
				AuditDir: auditDir,
				Logger:   logger,
			})
			if err != nil {
				runStore.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Bool("no-audit", false, "Disable the tool call audit log")

	return cmd
}
