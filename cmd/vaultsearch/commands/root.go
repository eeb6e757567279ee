// ABOUTME: Root Cobra command and global flags for the vaultsearch CLI
// ABOUTME: Wires subcommands and the shared --verbose, --quiet and --format flags
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
██╗   ██╗ █████╗ ██╗   ██╗██╗  ████████╗
██║   ██║██╔══██╗██║   ██║██║  ╚══██╔══╝
██║   ██║███████║██║   ██║██║     ██║
╚██╗ ██╔╝██╔══██║██║   ██║██║     ██║
 ╚████╔╝ ██║  ██║╚██████╔╝███████╗██║
  ╚═══╝  ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝   search
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultsearch",
		Short: "Semantic search over an Obsidian vault",
		Long: banner + `
Semantic retrieval over an Obsidian vault indexed by Smart Connections.

Ranks notes and passages by cosine similarity to a query or to an
existing note, from the command line or as an MCP server for LLM agents.

Set OBSIDIAN_VAULT_PATH to the vault root. Query embeddings come from any
OpenAI-compatible /v1/embeddings endpoint (VAULTSEARCH_EMBEDDING_BASE_URL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "json", "table":
				return nil
			}
			return fmt.Errorf("--format must be auto, json or table, got %q", outputFormat)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging to stderr")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json, table")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewMCPCmd(),
		NewSearchCmd(),
		NewRelatedCmd(),
		NewBlocksCmd(),
		NewStatsCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
