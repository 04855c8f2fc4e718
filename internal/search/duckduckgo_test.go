package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links results_links_deep web-result">
    <div class="links_main links_deep result__body">
      <h2 class="result__title">
        <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">The Go
          <b>Programming</b> Language</a>
      </h2>
      <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F">Documentation for   Go.</a>
    </div>
  </div>
  <div class="result result--ad results_links">
    <a class="result__a" href="https://ads.example.com/">Sponsored</a>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://example.org/direct">Direct link</a>
  </div>
</div>
</body></html>`

func TestParseResultsPage(t *testing.T) {
	// Given: a results page with a redirect link, an ad and a direct link
	got, err := parseResultsPage(resultsPage)

	// Then: the ad is skipped and redirect targets are unwrapped
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://go.dev/doc/", got[0].URL)
	assert.Equal(t, "The Go Programming Language", got[0].Title)
	assert.Equal(t, "Documentation for Go.", got[0].Snippet)
	assert.Equal(t, "https://example.org/direct", got[1].URL)
	assert.Empty(t, got[1].Snippet)
}

func TestDuckDuckGo_SearchAgainstServer(t *testing.T) {
	// Given: a server serving one page then an empty one
	var mu sync.Mutex
	var agents, offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		offsets = append(offsets, r.URL.Query().Get("s"))
		n := len(offsets)
		mu.Unlock()

		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		if n == 1 {
			fmt.Fprint(w, resultsPage)
			return
		}
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithUserAgents([]string{"ua-1", "ua-2"}))

	// When: asking for more than one page holds
	got, err := d.Search(context.Background(), "golang", 10)

	// Then: paging stops on the empty page and agents rotate
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"", "30"}, offsets)
	assert.Equal(t, []string{"ua-1", "ua-2"}, agents)
}

func TestDuckDuckGo_TruncatesToMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL))
	got, err := d.Search(context.Background(), "golang", 1)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDuckDuckGo_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL))
	_, err := d.Search(context.Background(), "golang", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	_, err := NewDuckDuckGo().Search(context.Background(), "  ", 5)
	assert.Error(t, err)
}
