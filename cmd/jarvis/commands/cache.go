// ABOUTME: CLI commands to inspect and manage the semantic response cache
// ABOUTME: Provides cache stats and cache clear subcommands
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

// NewCacheCmd creates the cache command with its subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
		Long: `Inspect and manage the response cache.

Examples:
  jarvis cache stats
  jarvis cache stats --format json
  jarvis cache clear`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage statistics",
		RunE:  runCacheStats,
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE:  runCacheClear,
	}
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	stats := eng.cache.Stats()

	if outputFormat == "json" {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Entries:\t%d\n", stats.TotalEntries)
	fmt.Fprintf(w, "Cache file:\t%s\n", formatBytes(stats.CacheSizeBytes))
	fmt.Fprintf(w, "Vector file:\t%s\n", formatBytes(stats.VectorSizeBytes))
	for _, st := range []models.SourceType{models.SourceDirect, models.SourceRAG, models.SourceWebSearch} {
		if n := stats.SourceTypeCounts[st]; n > 0 {
			fmt.Fprintf(w, "  %s:\t%d\n", st, n)
		}
	}
	if stats.OldestEntry != nil {
		fmt.Fprintf(w, "Oldest:\t%s (%s)\n", stats.OldestEntry.Question, formatTime(stats.OldestEntry.CreatedAt))
	}
	if stats.NewestEntry != nil {
		fmt.Fprintf(w, "Newest:\t%s (%s)\n", stats.NewestEntry.Question, formatTime(stats.NewestEntry.CreatedAt))
	}
	if stats.MostAccessed != nil {
		fmt.Fprintf(w, "Most accessed:\t%s (%d hits)\n", stats.MostAccessed.Question, stats.MostAccessed.AccessCount)
	}
	return w.Flush()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	removed := eng.cache.Len()
	eng.cache.Clear()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached response(s)\n", removed)
	}
	return nil
}
