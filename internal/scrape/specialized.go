package scrape

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/rank"
)

const (
	minSpecializedWords = 10
	minMainContentChars = 100
)

// removeSelectors are stripped before content selection.
const removeSelectors = "script, style, nav, footer, header, aside, noscript, .ad, .advertisement, .ads"

// contentSelectors are tried in order; the first match with enough text wins.
var contentSelectors = []string{"main", "article", "[role=main]", ".content", ".main-content", "#content"}

var boilerplate = regexp.MustCompile(`(?i)accept cookies|privacy policy|terms of service|subscribe to newsletter|follow us on|share this article|sign in|register|advertisement|ad feedback|close`)

// crawlerFriendly lists domain fragments that benefit from this strategy.
var crawlerFriendly = []string{
	// news
	"cnn", "bbc", "reuters", "ap.org", "npr", "theguardian", "nytimes", "wsj", "bloomberg",
	// research
	"arxiv", "scholar.google", "researchgate", "ieee", "acm", "springer", "sciencedirect",
	// shopping
	"amazon", "ebay", "etsy", "shopify", "aliexpress", "walmart",
	// developer and community
	"medium", "dev.to", "stackoverflow", "reddit", "hackernews.ycombinator", "github",
}

// SpecializedFetcher extracts main content with CSS selectors over a shared,
// pre-warmed client and strips common boilerplate.
type SpecializedFetcher struct {
	mu      sync.Mutex
	client  *http.Client
	timeout time.Duration
	agents  *agentRotator
	retries int
	step    time.Duration
}

// SpecializedOption configures a SpecializedFetcher.
type SpecializedOption func(*SpecializedFetcher)

// WithRetries sets how many retries follow a failed attempt and the linear backoff step.
func WithRetries(n int, step time.Duration) SpecializedOption {
	return func(s *SpecializedFetcher) {
		if n >= 0 {
			s.retries = n
		}
		s.step = step
	}
}

// WithClient injects the HTTP client instead of warming one.
func WithClient(c *http.Client) SpecializedOption {
	return func(s *SpecializedFetcher) { s.client = c }
}

// NewSpecializedFetcher creates a specialized fetcher. The HTTP client is built by Warmup.
func NewSpecializedFetcher(timeout time.Duration, userAgents []string, opts ...SpecializedOption) *SpecializedFetcher {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	s := &SpecializedFetcher{
		timeout: timeout,
		agents:  newAgentRotator(userAgents),
		retries: 2,
		step:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warmup creates the shared client with a pooled transport. It is idempotent.
func (s *SpecializedFetcher) Warmup(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}
	s.client = &http.Client{
		Timeout: s.timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
	return nil
}

func (s *SpecializedFetcher) httpClient(ctx context.Context) *http.Client {
	_ = s.Warmup(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Strategy implements Fetcher.
func (s *SpecializedFetcher) Strategy() rank.Strategy { return rank.StrategySpecialized }

// BenefitsFrom reports whether url belongs to a site this strategy handles well.
func (s *SpecializedFetcher) BenefitsFrom(url string) bool {
	lower := strings.ToLower(url)
	for _, d := range crawlerFriendly {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// Fetch implements Fetcher, retrying with a linearly growing delay.
func (s *SpecializedFetcher) Fetch(ctx context.Context, url string) Page {
	client := s.httpClient(ctx)
	cfg := scerrors.LinearRetryConfig(s.retries, s.step)

	page, err := scerrors.RetryWithResult(ctx, cfg, func() (Page, error) {
		p := s.fetchOnce(ctx, client, url)
		if !p.Success {
			return p, p.Err
		}
		return p, nil
	})
	if err != nil {
		return failed(err)
	}
	return page
}

func (s *SpecializedFetcher) fetchOnce(ctx context.Context, client *http.Client, url string) Page {
	body, err := getHTML(ctx, client, url, s.agents.pick())
	if err != nil {
		return failed(err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return failed(fmt.Errorf("parse html: %w", err))
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	content := cleanBoilerplate(mainContent(doc))

	if n := len(strings.Fields(content)); n <= minSpecializedWords {
		return failed(fmt.Errorf("only %d words after cleanup", n))
	}
	return Page{Success: true, Title: title, Content: content}
}

// mainContent picks the first content container with enough text, then the
// paragraphs, then the whole body.
func mainContent(doc *goquery.Document) string {
	doc.Find(removeSelectors).Remove()

	for _, sel := range contentSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); len(text) > minMainContentChars {
			return text
		}
	}

	var paras []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) > 0 {
		return strings.Join(paras, " ")
	}
	return doc.Find("body").Text()
}

// cleanBoilerplate removes common chrome phrases, collapses whitespace and
// drops words of two characters or fewer.
func cleanBoilerplate(text string) string {
	text = boilerplate.ReplaceAllString(text, " ")
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if len([]rune(w)) > 2 {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
