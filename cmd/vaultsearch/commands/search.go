// ABOUTME: CLI commands for one-shot queries against the vault
// ABOUTME: search, related and blocks mirror the three MCP tools
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/search"
)

var (
	searchLimit   int
	searchMinSim  float64
	relatedLimit  int
	blocksMaxHits int
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes by meaning",
		Long: `Search notes by meaning.

Embeds the query and ranks whole notes by semantic similarity.

Examples:
  vaultsearch search "sourdough starter"
  vaultsearch search --limit 3 --min-similarity 0.5 "tax deadlines"
  vaultsearch search --format json "travel plans"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "Maximum results to return")
	cmd.Flags().Float64Var(&searchMinSim, "min-similarity", 0, "Minimum similarity (0-1)")

	return cmd
}

// NewRelatedCmd creates the related command
func NewRelatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related <path>",
		Short: "Find notes related to a note",
		Long: `Find notes related to an existing note using its stored embedding.

Examples:
  vaultsearch related DailyNotes/2025-10-25.md
  vaultsearch related --limit 3 Projects/garden.md`,
		Args: cobra.ExactArgs(1),
		RunE: runRelated,
	}

	cmd.Flags().IntVar(&relatedLimit, "limit", search.DefaultLimit, "Maximum results to return")

	return cmd
}

// NewBlocksCmd creates the blocks command
func NewBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocks <query>",
		Short: "Find the passages most relevant to a query",
		Long: `Find the passages most relevant to a query, with their line ranges.

Examples:
  vaultsearch blocks "what did I decide about the roof"
  vaultsearch blocks --max-blocks 3 --format json "meeting notes"`,
		Args: cobra.ExactArgs(1),
		RunE: runBlocks,
	}

	cmd.Flags().IntVar(&blocksMaxHits, "max-blocks", search.DefaultMaxBlocks, "Maximum passages to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}
	if err := validateUnit(searchMinSim, "min-similarity"); err != nil {
		return err
	}

	rt, svc, err := openCLI(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	results, err := svc.SemanticSearch(cmd.Context(), args[0], searchLimit, searchMinSim)
	if err != nil {
		return err
	}
	return printResults(cmd, results, fmt.Sprintf("No notes found for query: %s", args[0]))
}

func runRelated(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(relatedLimit, "limit"); err != nil {
		return err
	}

	rt, svc, err := openCLI(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	results, err := svc.FindRelated(cmd.Context(), args[0], relatedLimit)
	if err != nil {
		return err
	}
	return printResults(cmd, results, fmt.Sprintf("No notes related to %s", args[0]))
}

func runBlocks(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(blocksMaxHits, "max-blocks"); err != nil {
		return err
	}

	rt, svc, err := openCLI(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	blocks, err := svc.GetContextBlocks(cmd.Context(), args[0], blocksMaxHits)
	if err != nil {
		return err
	}
	return printBlocks(cmd, blocks, fmt.Sprintf("No passages found for query: %s", args[0]))
}

func printResults(cmd *cobra.Command, results []models.SearchResult, empty string) error {
	if outputFormat == "json" {
		return printJSON(cmd, results)
	}
	if len(results) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), empty)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tPATH\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t----\t-------\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", r.Similarity, truncate(r.Path, 40), truncate(oneLine(r.TextPreview), 60))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
	}
	return nil
}

func printBlocks(cmd *cobra.Command, blocks []models.ContextBlock, empty string) error {
	if outputFormat == "json" {
		return printJSON(cmd, blocks)
	}
	if len(blocks) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), empty)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tPATH\tLINES\tTEXT\n")
	fmt.Fprintf(w, "-----\t----\t-----\t----\n")
	for _, b := range blocks {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", b.Similarity, truncate(b.Path, 40), b.Lines, truncate(oneLine(b.Text), 60))
	}
	_ = w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d passage(s)\n", len(blocks))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}

// oneLine collapses whitespace so previews fit a table row
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
