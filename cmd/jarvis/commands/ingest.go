// ABOUTME: CLI command to ingest documents into the knowledge base
// ABOUTME: Chunks, embeds and indexes a file or a whole directory
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var ingestDir bool

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a document into the knowledge base",
		Long: `Ingest a document into the knowledge base.

The document is split into overlapping chunks, embedded, and added to the
local vector store. Supported file types: .txt, .md.

Examples:
  jarvis ingest notes.txt
  jarvis ingest --dir docs/`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().BoolVar(&ingestDir, "dir", false, "Ingest every supported file under a directory")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	eng, err := buildEngine()
	if err != nil {
		return err
	}
	if eng.client == nil {
		return fmt.Errorf("OPENAI_API_KEY is required to ingest documents")
	}

	path := args[0]

	if ingestDir {
		added := eng.coordinator.IngestDirectory(path)
		if added == 0 {
			return fmt.Errorf("no usable chunks found under %s", path)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d chunk(s) from %s (%d total in store)\n",
				added, path, eng.coordinator.Store().Len())
		}
		return nil
	}

	if !eng.coordinator.Ingest(path) {
		return fmt.Errorf("no usable chunks found in %s", path)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s (%d chunk(s) in store)\n",
			path, eng.coordinator.Store().Len())
	}
	return nil
}
