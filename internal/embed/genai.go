package embed

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
)

// DefaultGenAIModel is the Gemini embedding model used when none is configured.
const DefaultGenAIModel = "gemini-embedding-001"

// GenAIEmbedder generates embeddings with the Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string

	mu   sync.Mutex
	dims int
}

// NewGenAIEmbedder creates a Gemini-backed embedder.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, scerrors.New(scerrors.ErrCodeMissingAPIKey, "GenAI API key is required", nil)
	}
	if model == "" {
		model = DefaultGenAIModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	e := &GenAIEmbedder{client: client, model: model, dims: DefaultDimensions}
	if _, err := e.Embed(ctx, "dimension probe"); err != nil {
		return nil, err
	}
	return e, nil
}

// Embed implements Embedder.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder with one request for the whole batch.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, scerrors.New(scerrors.ErrCodeEmbeddingFailed, "GenAI embed failed", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, scerrors.Newf(scerrors.ErrCodeEmbeddingFailed, "got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = normalizeVector(emb.Values)
	}

	e.mu.Lock()
	e.dims = len(out[0])
	e.mu.Unlock()
	return out, nil
}

// Dimensions returns the size of the last returned vectors.
func (e *GenAIEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// ModelName implements Embedder.
func (e *GenAIEmbedder) ModelName() string { return e.model }

// Available reports whether a client was created.
func (e *GenAIEmbedder) Available(context.Context) bool { return e.client != nil }

// Close implements Embedder.
func (e *GenAIEmbedder) Close() error { return nil }
