// Package lifecycle prepares the local Ollama models the ranker and the
// embedder depend on.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/pkg/version"
)

const (
	// DefaultHost is the default Ollama API endpoint.
	DefaultHost = "http://localhost:11434"

	// ReadyPollInterval is the initial polling interval for WaitForReady.
	ReadyPollInterval = 100 * time.Millisecond

	// MaxReadyPollInterval caps the WaitForReady backoff.
	MaxReadyPollInterval = 2 * time.Second
)

// Manager talks to one Ollama server.
type Manager struct {
	host       string
	client     *http.Client
	pullClient *http.Client
}

// PullProgress is one line of the streaming pull response.
type PullProgress struct {
	Model     string
	Status    string
	Total     int64
	Completed int64
	Percent   float64
}

// ModelState reports whether a model is present.
type ModelState struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the client used for health and list calls.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// NewManager creates a manager for host, or DefaultHost when empty.
func NewManager(host string, opts ...Option) *Manager {
	if host == "" {
		host = DefaultHost
	}
	m := &Manager{
		host:       strings.TrimRight(host, "/"),
		client:     &http.Client{Timeout: 5 * time.Second},
		pullClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Host returns the configured Ollama host.
func (m *Manager) Host() string { return m.host }

// IsRemoteHost reports whether the host is not the local machine.
func (m *Manager) IsRemoteHost() bool {
	return !strings.Contains(m.host, "localhost") && !strings.Contains(m.host, "127.0.0.1")
}

// IsRunning reports whether Ollama answers /api/tags within two seconds.
func (m *Manager) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := m.get(ctx, "/api/tags")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// WaitForReady polls with exponential backoff until Ollama responds or timeout passes.
func (m *Manager) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := ReadyPollInterval
	for {
		if m.IsRunning(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return scerrors.New(scerrors.ErrCodeNetworkUnavailable,
				fmt.Sprintf("ollama at %s did not become ready", m.host), ctx.Err())
		case <-time.After(interval):
		}
		interval = min(interval*2, MaxReadyPollInterval)
	}
}

// ListModels returns the names of the installed models.
func (m *Manager) ListModels(ctx context.Context) ([]string, error) {
	resp, err := m.get(ctx, "/api/tags")
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeNetworkUnavailable, "failed to connect to Ollama", err).
			WithSuggestion(InstallInstructions())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, scerrors.Newf(scerrors.ErrCodeNetworkUnavailable, "ollama returned %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, scerrors.New(scerrors.ErrCodeMalformedResponse, "failed to decode model list", err)
	}

	models := make([]string, len(result.Models))
	for i, mod := range result.Models {
		models[i] = mod.Name
	}
	return models, nil
}

// HasModel reports whether model is installed. A name without a tag means ":latest".
func (m *Manager) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := canonicalModel(model)
	for _, available := range models {
		if canonicalModel(available) == want {
			return true, nil
		}
	}
	return false, nil
}

// Status reports which of models are installed.
func (m *Manager) Status(ctx context.Context, models ...string) ([]ModelState, error) {
	installed, err := m.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(installed))
	for _, name := range installed {
		have[canonicalModel(name)] = true
	}

	states := make([]ModelState, 0, len(models))
	for _, name := range models {
		states = append(states, ModelState{Name: name, Present: have[canonicalModel(name)]})
	}
	return states, nil
}

// PullModel downloads model, streaming progress to fn. Installed models are skipped.
func (m *Manager) PullModel(ctx context.Context, model string, fn func(PullProgress)) error {
	has, err := m.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	body, err := json.Marshal(map[string]any{"name": model, "stream": true})
	if err != nil {
		return fmt.Errorf("failed to marshal pull request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := m.pullClient.Do(req)
	if err != nil {
		return scerrors.New(scerrors.ErrCodeModelPullFailed, "failed to start pull of "+model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return scerrors.Newf(scerrors.ErrCodeModelPullFailed, "pull of %s failed with status %d: %s", model, resp.StatusCode, msg)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line struct {
			Status    string `json:"status"`
			Error     string `json:"error"`
			Total     int64  `json:"total"`
			Completed int64  `json:"completed"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Error != "" {
			return scerrors.Newf(scerrors.ErrCodeModelPullFailed, "pull of %s failed: %s", model, line.Error)
		}
		if fn == nil {
			continue
		}
		p := PullProgress{Model: model, Status: line.Status, Total: line.Total, Completed: line.Completed}
		if line.Total > 0 {
			p.Percent = float64(line.Completed) / float64(line.Total) * 100
		}
		fn(p)
	}
	if err := scanner.Err(); err != nil {
		return scerrors.New(scerrors.ErrCodeModelPullFailed, "error reading pull response", err)
	}
	return nil
}

func (m *Manager) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return m.client.Do(req)
}

func canonicalModel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.Contains(name, ":") {
		name += ":latest"
	}
	return name
}

// InstallInstructions returns platform-specific Ollama install steps.
func InstallInstructions() string {
	var install string
	switch runtime.GOOS {
	case "darwin":
		install = "Download from https://ollama.com/download or run: brew install ollama"
	case "linux":
		install = "Run: curl -fsSL https://ollama.com/install.sh | sh"
	default:
		install = "Download from https://ollama.com/download"
	}
	return install + ", start it with 'ollama serve', then run: amanscout setup"
}
