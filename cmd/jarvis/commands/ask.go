// ABOUTME: CLI command to answer a question with retrieval augmentation and caching
// ABOUTME: Checks the semantic cache, builds the augmented prompt, optionally generates
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AustinKang666/jarvis-assistant/internal/llm"
	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

const askSystemPrompt = "You are Jarvis, a helpful assistant. Answer using the provided context when it is relevant, and say so when it is not."

var (
	askWeb     bool
	askNoCache bool
	askDryRun  bool
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the knowledge base",
		Long: `Ask a question against the knowledge base.

The semantic response cache is consulted first; identical or sufficiently
similar questions return the cached answer without a model call. On a miss,
local context is retrieved and a retrieval-augmented prompt is built.

Examples:
  jarvis ask "What does the onboarding document say about laptops?"
  jarvis ask --web "Latest stock price of TSMC?"
  jarvis ask --dry-run "Show me the prompt that would be sent"`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askWeb, "web", false, "Allow the web-search supplement when local context is thin")
	cmd.Flags().BoolVar(&askNoCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().BoolVar(&askDryRun, "dry-run", false, "Print the augmented prompt without calling the model")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	question := args[0]

	if !askNoCache && !askDryRun {
		if hit, ok := eng.cache.Get(question); ok {
			eng.cache.UpdateStats(hit.Entry.Question)
			return printAnswer(cmd, hit.Entry.Response, hit)
		}
	}

	prompt, sourceType := eng.coordinator.QueryWithContext(question, askWeb)

	if askDryRun {
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	}

	if eng.client == nil {
		return fmt.Errorf("OPENAI_API_KEY is required to generate an answer (use --dry-run to inspect the prompt)")
	}

	answer, err := eng.client.Generate([]llm.Message{{Role: "user", Content: prompt}}, askSystemPrompt)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	eng.cache.Add(question, answer, sourceType, nil)

	return printAnswer(cmd, answer, nil)
}

// printAnswer writes the answer, annotating cache hits in verbose or JSON output
func printAnswer(cmd *cobra.Command, answer string, hit *models.CacheHit) error {
	if outputFormat == "json" {
		payload := map[string]interface{}{
			"answer": answer,
			"cached": hit != nil,
		}
		if hit != nil && hit.MatchedQuestion != "" {
			payload["similarity"] = hit.Similarity
			payload["matched_question"] = hit.MatchedQuestion
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	if hit != nil && !quiet {
		if hit.MatchedQuestion != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n(cached answer, similarity %.2f to %q)\n",
				hit.Similarity, truncate(hit.MatchedQuestion, 40))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "\n(cached answer)")
		}
	}
	return nil
}
