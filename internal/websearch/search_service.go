// ABOUTME: SerpAPI-backed web search used to supplement thin local context
// ABOUTME: Formats organic results into a context block for prompt building
package websearch

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	serpAPIEndpoint = "https://serpapi.com/search"

	// DefaultNumResults is how many organic results feed the context block
	DefaultNumResults = 5
	// maxDailyRequests caps outbound searches per process
	maxDailyRequests = 100
)

// Result is a single organic search result
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// serpResponse covers the part of the SerpAPI payload we consume
type serpResponse struct {
	OrganicResults []Result `json:"organic_results"`
}

// Service performs web searches through SerpAPI. A missing API key leaves
// the service constructed but inert: every lookup reports no results.
type Service struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client

	// Process-local cache and request budget; this service is consulted
	// only when local retrieval came up short, so both stay small
	cache    map[string][]Result
	requests int
}

// NewService creates a search service. An empty apiKey disables searching.
func NewService(apiKey string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if apiKey == "" {
		log.Printf("Warning: SerpAPI key not set, web search supplement disabled")
	}
	return &Service{
		apiKey:     apiKey,
		endpoint:   serpAPIEndpoint,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[string][]Result),
	}
}

// Search runs a web search and returns up to numResults organic results
func (s *Service) Search(query string, numResults int) ([]Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("missing SerpAPI key")
	}
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	cacheKey := query + "_" + strconv.Itoa(numResults)
	if results, ok := s.cache[cacheKey]; ok {
		return results, nil
	}

	if s.requests >= maxDailyRequests {
		return nil, fmt.Errorf("daily search limit reached (%d)", maxDailyRequests)
	}

	params := url.Values{}
	params.Set("q", query)
	// Ask for extra results; some come back without snippets
	params.Set("num", strconv.Itoa(numResults*3))
	params.Set("api_key", s.apiKey)
	params.Set("engine", "google")

	resp, err := s.httpClient.Get(s.endpoint + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("requesting search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := payload.OrganicResults
	if len(results) > numResults {
		results = results[:numResults]
	}

	s.cache[cacheKey] = results
	s.requests++
	return results, nil
}

// SearchContext formats search results into a context block for the prompt
// builder. ok is false when search is disabled, failed, or found nothing.
func (s *Service) SearchContext(query string) (string, bool) {
	results, err := s.Search(query, DefaultNumResults)
	if err != nil {
		log.Printf("Warning: web search failed: %v", err)
		return "", false
	}
	if len(results) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("Information found through web search:\n\n")
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, result.Title)
		if result.Snippet != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", result.Snippet)
		}
		if result.Link != "" {
			fmt.Fprintf(&b, "   Link: %s\n", result.Link)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), true
}
