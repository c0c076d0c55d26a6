// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Wires config, OpenAI client, vector store, coordinator and cache
package commands

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AustinKang666/jarvis-assistant/internal/cache"
	"github.com/AustinKang666/jarvis-assistant/internal/config"
	"github.com/AustinKang666/jarvis-assistant/internal/llm"
	"github.com/AustinKang666/jarvis-assistant/internal/rag"
	"github.com/AustinKang666/jarvis-assistant/internal/websearch"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
     ██╗ █████╗ ██████╗ ██╗   ██╗██╗███████╗
     ██║██╔══██╗██╔══██╗██║   ██║██║██╔════╝
     ██║███████║██████╔╝██║   ██║██║███████╗
██   ██║██╔══██║██╔══██╗╚██╗ ██╔╝██║╚════██║
╚█████╔╝██║  ██║██║  ██║ ╚████╔╝ ██║███████║
 ╚════╝ ╚═╝  ╚═╝╚═╝  ╚═╝  ╚═══╝  ╚═╝╚══════╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jarvis",
		Short: "Document-grounded answering with a semantic response cache",
		Long: banner + `
Jarvis augments a conversational assistant with document-grounded answers
and avoids redundant model calls through a similarity-aware response cache.

Ingest documents into a local vector store, ask questions with
retrieval-augmented prompts, and inspect cache usage.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// engine bundles the wired components a command needs
type engine struct {
	cfg         *config.Config
	client      *llm.OpenAIClient // nil when OPENAI_API_KEY is unset
	coordinator *rag.Coordinator
	cache       *cache.ResponseCache
}

// buildEngine loads configuration and wires the retrieval pipeline and the
// response cache. A missing OpenAI key degrades to exact-only caching and
// disables embedding-dependent features instead of failing.
func buildEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var client *llm.OpenAIClient
	if cfg.OpenAIKey != "" {
		client, err = llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:         cfg.OpenAIKey,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.Timeout,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
		})
		if err != nil {
			return nil, err
		}
	} else if !quiet {
		log.Printf("Warning: OPENAI_API_KEY not set, running in degraded mode (exact-match cache only, no retrieval)")
	}

	storePath := filepath.Join(cfg.DataDir, "vector_store", "store")
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		log.Printf("Warning: creating vector store directory: %v", err)
	}
	store, err := rag.LoadVectorStore(storePath, 0)
	if err != nil {
		return nil, err
	}
	if verbose {
		log.Printf("Vector store loaded: %d chunk(s), dimension %d", store.Len(), store.Dimension())
	}

	// A typed nil *OpenAIClient must not end up inside the interfaces
	var encoder rag.Encoder
	var cacheEncoder cache.Encoder
	if client != nil {
		encoder = client
		cacheEncoder = client
	}

	var searcher rag.Searcher
	if cfg.SerpAPIKey != "" {
		searcher = websearch.NewService(cfg.SerpAPIKey, cfg.Timeout)
	}

	retriever := rag.NewRetriever(store, encoder, cfg.TopK)
	processor := rag.NewDocumentProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	coordinator := rag.NewCoordinator(processor, store, retriever, encoder, searcher, storePath, cfg.MinContextChars)

	responseCache := cache.NewResponseCache(
		filepath.Join(cfg.DataDir, "cache"),
		cacheEncoder,
		cfg.SimilarityThreshold,
		cfg.CacheTTL(),
	)

	return &engine{
		cfg:         cfg,
		client:      client,
		coordinator: coordinator,
		cache:       responseCache,
	}, nil
}
