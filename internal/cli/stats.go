package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	st, err := documentService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}
	cmd.Printf("Documents: %d\n", st.TotalDocuments)
	cmd.Printf("Chunks:    %d\n", st.TotalChunks)
	printBreakdown(cmd, "By country", st.ByCountry)
	printBreakdown(cmd, "By type", st.ByType)
	printBreakdown(cmd, "By status", st.ByStatus)
	return nil
}

func printBreakdown(cmd *cobra.Command, title string, m map[string]int64) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmd.Println()
	cmd.Println(title + ":")
	for _, k := range keys {
		cmd.Printf("  %-16s %d\n", k, m[k])
	}
}
