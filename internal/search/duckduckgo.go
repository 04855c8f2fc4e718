package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultDuckDuckGoEndpoint is the JavaScript-free results page.
	DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

	ddgPageSize  = 30
	ddgMaxPages  = 5
	ddgMaxBody   = 1 << 20
	ddgMinPeriod = time.Second
)

// ddgLimiter spaces requests to the results page across all instances.
var ddgLimiter struct {
	mu   sync.Mutex
	last time.Time
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	endpoint   string
	client     *http.Client
	userAgents []string
	next       atomic.Uint32
	limit      bool
}

// DuckDuckGoOption configures a DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo)

// WithEndpoint overrides the results page URL.
func WithEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if endpoint != "" {
			d.endpoint = endpoint
			d.limit = endpoint == DefaultDuckDuckGoEndpoint
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if c != nil {
			d.client = c
		}
	}
}

// WithUserAgents sets the user agents rotated across requests.
func WithUserAgents(agents []string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if len(agents) > 0 {
			d.userAgents = agents
		}
	}
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts ...DuckDuckGoOption) *DuckDuckGo {
	d := &DuckDuckGo{
		endpoint: DefaultDuckDuckGoEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		limit: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements Provider.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search implements Provider. It pages through results until maxResults hits are
// collected, a page comes back empty, or the page cap is reached.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	var out []Result
	for page := 0; page < ddgMaxPages && len(out) < maxResults; page++ {
		results, err := d.fetchPage(ctx, query, page*ddgPageSize)
		if err != nil {
			if len(out) > 0 {
				break
			}
			return nil, err
		}
		if len(results) == 0 {
			break
		}
		out = append(out, results...)
	}

	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (d *DuckDuckGo) fetchPage(ctx context.Context, query string, offset int) ([]Result, error) {
	if d.limit {
		if err := waitTurn(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("q", query)
	if offset > 0 {
		params.Set("s", strconv.Itoa(offset))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent())
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, ddgMaxBody))
	if err != nil {
		return nil, fmt.Errorf("read results page: %w", err)
	}
	return parseResultsPage(string(body))
}

func (d *DuckDuckGo) userAgent() string {
	i := d.next.Add(1) - 1
	return d.userAgents[int(i)%len(d.userAgents)]
}

func waitTurn(ctx context.Context) error {
	ddgLimiter.mu.Lock()
	wait := time.Until(ddgLimiter.last.Add(ddgMinPeriod))
	if wait < 0 {
		wait = 0
	}
	ddgLimiter.last = time.Now().Add(wait)
	ddgLimiter.mu.Unlock()

	if wait == 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseResultsPage walks the results page. Each hit is a container whose class
// includes "result"; the title link carries "result__a" and the snippet "result__snippet".
func parseResultsPage(body string) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := extractResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) (Result, bool) {
	var r Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a") && r.URL == "":
				r.URL = unwrapRedirect(attr(n, "href"))
				r.Title = CleanText(textOf(n))
			case hasClass(n, "result__snippet") && r.Snippet == "":
				r.Snippet = CleanText(textOf(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.URL != ""
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg= redirect links to the target URL.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
