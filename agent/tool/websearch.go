package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const ToolWebSearch = "web_search"

const (
	duckDuckGoEndpoint    = "https://html.duckduckgo.com/html/"
	maxSearchBodyBytes    = 4 << 20
	defaultSearchRegion   = "us-en"
	defaultSearchResults  = 5
	defaultSearchTimeout  = 15 * time.Second
	searchResultSelector  = "div.result"
	searchTitleSelector   = "h2.result__title a"
	searchSnippetSelector = "a.result__snippet"
)

// SearchResult is one parsed web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"href"`
	Snippet string `json:"body"`
}

// WebSearch queries the DuckDuckGo HTML endpoint and parses result blocks.
// All failure modes come back as textual content so the conversation can
// continue without the search backend.
type WebSearch struct {
	endpoint   string
	httpClient *http.Client
}

type WebSearchOption func(*WebSearch)

func WithSearchEndpoint(endpoint string) WebSearchOption {
	return func(w *WebSearch) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			w.endpoint = trimmed
		}
	}
}

func WithSearchHTTPClient(client *http.Client) WebSearchOption {
	return func(w *WebSearch) {
		if client != nil {
			w.httpClient = client
		}
	}
}

func NewWebSearch(opts ...WebSearchOption) *WebSearch {
	ws := &WebSearch{
		endpoint:   duckDuckGoEndpoint,
		httpClient: &http.Client{Timeout: defaultSearchTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ws)
		}
	}
	return ws
}

func WebSearchDescriptor() Descriptor {
	return Descriptor{
		Name: ToolWebSearch,
		Desc: "Search the web for updated information using DuckDuckGo.",
		Schema: InputSchema{
			Properties: map[string]Property{
				"keywords": {
					Type: "string",
					Desc: "The search query keywords.",
				},
				"region": {
					Type:    "string",
					Desc:    "The search region: wt-wt, us-en, uk-en, ru-ru, etc.",
					Default: defaultSearchRegion,
				},
				"max_results": {
					Type:    "integer",
					Desc:    "The maximum number of results to return.",
					Default: defaultSearchResults,
				},
			},
			Required: []string{"keywords"},
		},
	}
}

func (w *WebSearch) Handle(ctx context.Context, args map[string]any) (string, error) {
	keywords, _ := args["keywords"].(string)
	region, _ := args["region"].(string)
	maxResults := intArg(args["max_results"], defaultSearchResults)

	results, err := w.search(ctx, keywords, region, maxResults)
	if err != nil {
		// Degrade to content; the model can work around a dead backend.
		return fmt.Sprintf("Search error: %s", err), nil
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Sprintf("Search error: %s", err), nil
	}
	return string(encoded), nil
}

func (w *WebSearch) search(ctx context.Context, keywords, region string, maxResults int) ([]SearchResult, error) {
	form := url.Values{}
	form.Set("q", keywords)
	if strings.TrimSpace(region) != "" {
		form.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted {
		return nil, fmt.Errorf("rate limit reached, please try again later")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search http status=%d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxSearchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var results []SearchResult
	doc.Find(searchResultSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := sel.Find(searchTitleSelector)
		href, _ := title.Attr("href")
		result := SearchResult{
			Title:   strings.TrimSpace(title.Text()),
			URL:     strings.TrimSpace(href),
			Snippet: strings.TrimSpace(sel.Find(searchSnippetSelector).Text()),
		}
		if result.Title == "" && result.Snippet == "" {
			return true
		}
		results = append(results, result)
		return len(results) < maxResults
	})

	return results, nil
}

func intArg(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
