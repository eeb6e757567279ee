// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Serves semantic_search, find_related and get_context_blocks over stdio
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs vaultsearch as an MCP (Model Context Protocol) server on stdio so
LLM agents can search the vault by meaning.

The vault is loaded when the client sends initialize. A bad
OBSIDIAN_VAULT_PATH or a corrupt index fails that request and the
server keeps waiting for a corrected initialize.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by the agent host)
  OBSIDIAN_VAULT_PATH=~/Notes vaultsearch mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "vault": {
  #       "command": "vaultsearch",
  #       "args": ["mcp"],
  #       "env": {"OBSIDIAN_VAULT_PATH": "/Users/me/Notes"}
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger, err := setupLogging()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var rt *runtime
	defer func() {
		if rt != nil {
			rt.Close()
		}
	}()

	loader := func(ctx context.Context) (mcp.Searcher, error) {
		if rt == nil {
			// configuration is re-read on each attempt so a fixed env takes effect
			fresh, err := newRuntime(logger)
			if err != nil {
				return nil, err
			}
			rt = fresh
		}
		svc, err := rt.openService(ctx)
		if err != nil {
			rt.Close()
			rt = nil
			return nil, err
		}
		return svc, nil
	}

	server := mcp.NewProtocolServer("vaultsearch", versionInfo.Version, loader, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio")
	if err := server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
