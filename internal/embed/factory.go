package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderGenAI  Provider = "genai"
	ProviderStatic Provider = "static"
)

// ParseProvider converts a config string to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOllama, "":
		return ProviderOllama, nil
	case ProviderGenAI, "gemini":
		return ProviderGenAI, nil
	case ProviderStatic:
		return ProviderStatic, nil
	}
	return "", fmt.Errorf("unknown embedder %q (want ollama, genai or static)", s)
}

// Options configures NewEmbedder.
type Options struct {
	Provider  Provider
	Model     string
	Host      string
	APIKey    string
	CacheSize int
	Logger    *slog.Logger
}

// NewEmbedder builds the configured embedder wrapped in an LRU cache. When the
// backend cannot be reached it falls back to the static embedder and logs why.
func NewEmbedder(ctx context.Context, opts Options) Embedder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inner, err := newBackend(ctx, opts)
	if err != nil {
		logger.Warn("embedder unavailable, using static fallback",
			slog.String("provider", string(opts.Provider)),
			slog.String("error", err.Error()))
		inner = NewStaticEmbedder()
	}

	logger.Debug("embedder ready",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))
	return NewCachedEmbedder(inner, opts.CacheSize)
}

func newBackend(ctx context.Context, opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderStatic:
		return NewStaticEmbedder(), nil
	case ProviderGenAI:
		return NewGenAIEmbedder(ctx, opts.APIKey, opts.Model)
	default:
		return NewOllamaEmbedder(ctx, OllamaConfig{Host: opts.Host, Model: opts.Model})
	}
}
