// ABOUTME: Stats command reports what was loaded from the vault
// ABOUTME: Shows index counts, dimension, skipped lines and missing notes
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Load the vault and report index statistics.

Useful to check OBSIDIAN_VAULT_PATH and the embedding model key before
pointing an agent at the vault.`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	rt, svc, err := openCLI(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	st := svc.Stats()
	if outputFormat == "json" {
		return printJSON(cmd, st)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Vault:\t%s\n", rt.cfg.VaultPath)
	fmt.Fprintf(w, "Model key:\t%s\n", rt.cfg.ModelKey)
	fmt.Fprintf(w, "Index files:\t%d\n", st.Files)
	fmt.Fprintf(w, "Notes:\t%d (%d missing on disk)\n", st.Notes, st.MissingNotes)
	fmt.Fprintf(w, "Source vectors:\t%d\n", st.Sources)
	fmt.Fprintf(w, "Block vectors:\t%d (%d overlapping dropped)\n", st.Blocks, st.DroppedBlocks)
	fmt.Fprintf(w, "Dimension:\t%d\n", st.Dimension)
	fmt.Fprintf(w, "Skipped lines:\t%d\n", st.Skipped)
	fmt.Fprintf(w, "Block mode:\t%s\n", st.BlockMode)
	if st.Model != "" {
		fmt.Fprintf(w, "Embedding model:\t%s\n", st.Model)
	} else {
		fmt.Fprintf(w, "Embedding model:\t(not configured)\n")
	}
	return w.Flush()
}
