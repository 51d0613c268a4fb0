// Package mcp provides an MCP (Model Context Protocol) server for paysim.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/paysim/internal/config"
	"github.com/nvandessel/paysim/internal/ratelimit"
	"github.com/nvandessel/paysim/internal/store"
)

// Server wraps the MCP SDK server and exposes paysim's generation,
// simulation and analysis as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	settings     *config.PaysimConfig
	logger       *slog.Logger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
	now          func() time.Time
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "paysim")
	Version string // Server version

	// Store persists simulated runs. Nil keeps runs in memory for the
	// lifetime of the server. The server closes the store on Close.
	Store store.RunStore

	// Settings supplies defaults for omitted tool arguments. Nil means
	// config.Default().
	Settings *config.PaysimConfig

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with paysim tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	runStore := cfg.Store
	if runStore == nil {
		runStore = store.NewInMemoryRunStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		Instructions: "Generate synthetic employee populations, simulate annual pay reviews, analyse pay inequality " +
			"and forecast individual salary progression. " +
			"Simulated runs are stored and can be analysed again by run_id.",
	})

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		settings:     settings,
		logger:       logger,
		auditLogger:  NewAuditLogger(cfg.AuditDir),
		toolLimiters: ratelimit.NewToolLimiters(),
		now:          time.Now,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			s.logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server listening on stdio", "audit_log", s.auditLogger.Path())
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the run store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	s.auditLogger = nil
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
