package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/rank"
)

const (
	settleDelay  = 2 * time.Second
	closeTimeout = 5 * time.Second
)

// extractScript strips page chrome in the live DOM and returns {title, content} as JSON.
const extractScript = `() => {
	document.querySelectorAll('script, style, nav, footer, header, .ad, .advertisement, .ads')
		.forEach(el => el.remove());
	const selectors = ['main', 'article', '[role="main"]', '.content', '.main-content', '#content'];
	let content = '';
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el && el.innerText && el.innerText.trim().length > 100) {
			content = el.innerText.trim();
			break;
		}
	}
	if (!content) {
		content = Array.from(document.querySelectorAll('p'))
			.map(p => p.innerText.trim())
			.filter(t => t.length > 0)
			.join('\n\n');
	}
	if (!content && document.body) {
		content = document.body.innerText;
	}
	return JSON.stringify({title: document.title || '', content: content || ''});
}`

// DynamicConfig configures the headless browser.
type DynamicConfig struct {
	// Bin is the browser executable. Empty lets rod find or download one.
	Bin      string
	Headless bool
	Settle   time.Duration
	Logger   *slog.Logger
}

// DynamicFetcher renders pages in a shared headless browser. The browser is
// launched on first use; every fetch gets its own incognito context and page.
type DynamicFetcher struct {
	cfg DynamicConfig

	mu      sync.Mutex
	current *launch
}

// launch is one browser start shared by every fetch waiting on it.
type launch struct {
	done     chan struct{}
	cancel   context.CancelFunc
	browser  *rod.Browser
	launcher *launcher.Launcher
	err      error
}

// NewDynamicFetcher creates a dynamic fetcher. No browser is started yet.
func NewDynamicFetcher(cfg DynamicConfig) *DynamicFetcher {
	// negative disables the settle wait
	if cfg.Settle == 0 {
		cfg.Settle = settleDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DynamicFetcher{cfg: cfg}
}

// Strategy implements Fetcher.
func (d *DynamicFetcher) Strategy() rank.Strategy { return rank.StrategyDynamic }

// BrowserPath reports the browser rod would use, if one is installed locally.
func BrowserPath(bin string) (string, bool) {
	if bin != "" {
		return bin, true
	}
	return launcher.LookPath()
}

// ensureBrowser returns the shared browser, starting it if needed. The launch
// is not bound to ctx. A failed launch is retried by the next caller.
func (d *DynamicFetcher) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	d.mu.Lock()
	lc := d.current
	if lc != nil {
		select {
		case <-lc.done:
			if lc.err != nil {
				lc = nil
			}
		default:
		}
	}
	if lc == nil {
		lctx, cancel := context.WithCancel(context.Background())
		lc = &launch{done: make(chan struct{}), cancel: cancel}
		d.current = lc
		go d.start(lctx, lc)
	}
	d.mu.Unlock()

	select {
	case <-lc.done:
		return lc.browser, lc.err
	case <-ctx.Done():
		return nil, scerrors.New(scerrors.ErrCodeBrowserFailed, "launch browser", ctx.Err())
	}
}

func (d *DynamicFetcher) start(ctx context.Context, lc *launch) {
	defer close(lc.done)

	l := launcher.New().Context(ctx).Headless(d.cfg.Headless)
	if d.cfg.Bin != "" {
		l = l.Bin(d.cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		lc.cancel()
		lc.err = scerrors.New(scerrors.ErrCodeBrowserFailed, "launch browser", err)
		return
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		lc.cancel()
		lc.err = scerrors.New(scerrors.ErrCodeBrowserFailed, "connect to browser", err)
		return
	}

	d.cfg.Logger.Debug("browser launched", slog.String("control_url", controlURL))
	lc.browser = browser
	lc.launcher = l
}

// Fetch implements Fetcher.
func (d *DynamicFetcher) Fetch(ctx context.Context, url string) Page {
	browser, err := d.ensureBrowser(ctx)
	if err != nil {
		return failed(err)
	}

	incognito, err := browser.Context(ctx).Incognito()
	if err != nil {
		return failed(fmt.Errorf("incognito context: %w", err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = incognito.Context(cctx).Close()
	}()

	p, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return failed(fmt.Errorf("create page: %w", err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = p.Context(cctx).Close()
	}()

	if err := p.Navigate(url); err != nil {
		return failed(fmt.Errorf("navigate: %w", err))
	}
	if err := p.WaitLoad(); err != nil {
		return failed(fmt.Errorf("wait load: %w", err))
	}

	if d.cfg.Settle > 0 {
		t := time.NewTimer(d.cfg.Settle)
		select {
		case <-ctx.Done():
			t.Stop()
			return failed(ctx.Err())
		case <-t.C:
		}
	}

	res, err := p.Eval(extractScript)
	if err != nil {
		return failed(fmt.Errorf("extract content: %w", err))
	}

	var out struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return failed(fmt.Errorf("decode extraction: %w", err))
	}

	content := normalizeText(out.Content)
	if content == "" {
		return failed(fmt.Errorf("no text content"))
	}
	return Page{Success: true, Title: joinFields(out.Title), Content: content}
}

// Close shuts the browser down if it was started. A launch still in
// progress is cancelled and waited for.
func (d *DynamicFetcher) Close() error {
	d.mu.Lock()
	lc := d.current
	d.current = nil
	d.mu.Unlock()
	if lc == nil {
		return nil
	}

	select {
	case <-lc.done:
	default:
		lc.cancel()
		<-lc.done
	}
	if lc.err != nil {
		return nil
	}

	err := lc.browser.Close()
	lc.cancel()
	lc.launcher.Cleanup()
	return err
}

func joinFields(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeText collapses whitespace within each line and keeps paragraph
// breaks, squeezing runs of blank lines into one.
func normalizeText(s string) string {
	var paras []string
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = joinFields(line)
		if line == "" {
			if len(lines) > 0 {
				paras = append(paras, strings.Join(lines, "\n"))
				lines = nil
			}
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		paras = append(paras, strings.Join(lines, "\n"))
	}
	return strings.Join(paras, "\n\n")
}
