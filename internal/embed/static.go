package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder hashes words and character trigrams into a fixed-size vector.
// It needs no network or model, is deterministic, and captures lexical overlap only.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var englishStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "it": true, "this": true,
	"that": true, "as": true, "at": true, "by": true, "from": true,
}

const (
	wordWeight    = 0.7
	trigramWeight = 0.3
)

// StaticModelName is the ModelName of the hash embedder.
const StaticModelName = "static"

// IsStatic reports whether e produces lexical hash vectors rather than
// semantic ones. Their similarities run far lower than a model's.
func IsStatic(e Embedder) bool {
	return e != nil && e.ModelName() == StaticModelName
}

// NewStaticEmbedder creates a static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("embedder is closed")
	}

	vec := make([]float32, StaticDimensions)
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return vec, nil
	}

	for _, w := range words(lower) {
		if englishStopWords[w] {
			continue
		}
		vec[bucket(w)] += wordWeight
	}

	letters := compact(lower)
	for i := 0; i+3 <= len(letters); i++ {
		vec[bucket(string(letters[i:i+3]))] += trigramWeight
	}

	return normalizeVector(vec), nil
}

// EmbedBatch implements Embedder.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName implements Embedder.
func (e *StaticEmbedder) ModelName() string { return StaticModelName }

// Available implements Embedder.
func (e *StaticEmbedder) Available(context.Context) bool { return !e.isClosed() }

// Close implements Embedder.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *StaticEmbedder) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// compact keeps letters and digits only, as runes.
func compact(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

func bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % StaticDimensions)
}
