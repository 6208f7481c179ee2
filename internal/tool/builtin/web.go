package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/tool"
)

const (
	maxFetchBytes = 1 << 20
	maxFetchChars = 20000
	maxRedirects  = 5
	userAgent     = "crew/1.0 (+https://github.com/flemzord/crew)"
)

func fetchFactory(client *http.Client, filter *security.URLFilter) tool.Factory {
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		return filter.Check(req.URL.String())
	}
	fetch := &fetcher{client: &c, filter: filter}

	return func(tool.Runtime) tool.Tool {
		return &tool.Func{
			ToolName: WebFetch,
			Desc:     "Fetch a web page over HTTP(S) and return its readable text.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute http or https URL."}
  },
  "required": ["url"]
}`),
			Fn: fetch.run,
		}
	}
}

type fetcher struct {
	client *http.Client
	filter *security.URLFilter
}

func (f *fetcher) run(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	target := strings.TrimSpace(args.URL)
	if target == "" {
		return "", errors.New("url is required")
	}
	if err := f.filter.Check(target); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := string(body)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" || mediaType == "" && looksLikeHTML(text) {
		text = htmlText(text)
	}
	if strings.TrimSpace(text) == "" {
		return "(empty page)", nil
	}
	return truncateChars(text, maxFetchChars), nil
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s[:min(len(s), 512)]))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// htmlText extracts visible text, dropping script, style and similar
// elements, with one line per block of text.
func htmlText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			line := strings.Join(strings.Fields(string(z.Text())), " ")
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template", "svg", "head":
		return true
	}
	return false
}

// truncateChars cuts s to n runes, marking the cut.
func truncateChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "\n[truncated]"
		}
		count++
	}
	return s
}

// SearchConfig configures web_search against a Brave-compatible endpoint.
type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Count    int    `yaml:"count"`
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.Endpoint == "" {
		c.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	if c.Count <= 0 {
		c.Count = 5
	}
	return c
}

type searchResponse struct {
	Web struct {
		Results []searchResult `json:"results"`
	} `json:"web"`
}

type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// searchFactory yields nothing when no API key is configured, so agents
// asking for web_search simply do not get it.
func searchFactory(client *http.Client, cfg SearchConfig) tool.Factory {
	return func(tool.Runtime) tool.Tool {
		if cfg.APIKey == "" {
			return nil
		}
		return &tool.Func{
			ToolName: WebSearch,
			Desc:     "Search the web and return the top results with their titles, URLs and snippets.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The search query."}
  },
  "required": ["query"]
}`),
			Fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					Query string `json:"query"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				q := strings.TrimSpace(args.Query)
				if q == "" {
					return "", errors.New("query is required")
				}
				results, err := search(ctx, client, cfg, q)
				if err != nil {
					return "", err
				}
				return formatResults(q, results), nil
			},
		}
	}
}

func search(ctx context.Context, client *http.Client, cfg SearchConfig, q string) ([]searchResult, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("search endpoint: %w", err)
	}
	params := u.Query()
	params.Set("q", q)
	params.Set("count", fmt.Sprint(cfg.Count))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", cfg.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFetchBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := out.Web.Results
	if len(results) > cfg.Count {
		results = results[:cfg.Count]
	}
	return results, nil
}

func formatResults(q string, results []searchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.", q)
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   %s", i+1, r.Title, r.URL)
		if d := strings.TrimSpace(r.Description); d != "" {
			fmt.Fprintf(&b, "\n   %s", d)
		}
	}
	return b.String()
}
