package scrape

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/Aman-CERP/amanscout/internal/rank"
)

const (
	defaultHTTPTimeout = 8 * time.Second
	maxBodyBytes       = 4 << 20
)

// skipTags are subtrees whose text is never page content.
var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "svg": true,
}

// StaticFetcher downloads HTML over plain HTTP and extracts visible text.
type StaticFetcher struct {
	client *http.Client
	agents *agentRotator
}

// NewStaticFetcher creates a static fetcher. A zero timeout uses 8s.
func NewStaticFetcher(timeout time.Duration, userAgents []string) *StaticFetcher {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &StaticFetcher{
		client: &http.Client{Timeout: timeout},
		agents: newAgentRotator(userAgents),
	}
}

// Strategy implements Fetcher.
func (s *StaticFetcher) Strategy() rank.Strategy { return rank.StrategyStatic }

// Fetch implements Fetcher.
func (s *StaticFetcher) Fetch(ctx context.Context, url string) Page {
	body, err := getHTML(ctx, s.client, url, s.agents.pick())
	if err != nil {
		return failed(err)
	}
	defer body.Close()

	doc, err := html.Parse(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return failed(fmt.Errorf("parse html: %w", err))
	}

	title, content := extractText(doc)
	if content == "" {
		return failed(fmt.Errorf("no text content"))
	}
	return Page{Success: true, Title: title, Content: content}
}

// getHTML performs a GET and returns the body of a 2xx HTML response.
func getHTML(ctx context.Context, client *http.Client, url, agent string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != "text/html" && mt != "application/xhtml+xml") {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unsupported content type %q", ct)
		}
	}
	return resp.Body, nil
}

// extractText returns the document title and the whitespace-joined visible text.
func extractText(doc *html.Node) (string, string) {
	var title string
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if n.Data == "title" && title == "" {
				title = strings.TrimSpace(nodeText(n))
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
