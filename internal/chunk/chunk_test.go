package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentence(i int) string {
	return fmt.Sprintf("Sentence number %03d talks about goroutines and channels in some detail", i)
}

func TestSplit_Paragraphs(t *testing.T) {
	// Given: a source with one long-enough and one short paragraph
	long := strings.Repeat("x", 60)
	src := Source{Index: 3, URL: "https://a.com", Title: "A", QualityScore: 55,
		Text: long + "\n\n  short  \n\n" + long + " second"}

	// When: splitting
	chunks := Split([]Source{src})

	// Then: two paragraph chunks with sequential ids
	require.Len(t, chunks, 2)
	assert.Equal(t, "3-0", chunks[0].ID)
	assert.Equal(t, "3-1", chunks[1].ID)
	assert.Equal(t, KindParagraph, chunks[0].Kind)
	assert.Equal(t, 3, chunks[1].SourceIndex)
	assert.Equal(t, 1, chunks[1].Seq)
	assert.Equal(t, "https://a.com", chunks[1].URL)
	assert.Equal(t, 55, chunks[1].QualityScore)
}

func TestSplit_SkipsShortSources(t *testing.T) {
	chunks := Split([]Source{{Index: 0, Text: strings.Repeat("y", 99)}})
	assert.Empty(t, chunks)
}

func TestSplit_LongParagraphBecomesSentenceGroups(t *testing.T) {
	// Given: a single paragraph of 40 sentences (~2900 chars)
	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, sentence(i))
	}
	para := strings.Join(parts, ". ") + "."
	require.Greater(t, len(para), MaxChunkChars)

	// When: splitting
	chunks := Split([]Source{{Index: 0, Text: para}})

	// Then: several groups, each within bounds, preserving all sentences in order
	require.Greater(t, len(chunks), 1)
	var rebuilt []string
	for _, c := range chunks {
		assert.Equal(t, KindSentenceGroup, c.Kind)
		assert.LessOrEqual(t, len(c.Text), MaxChunkChars)
		assert.Greater(t, len(c.Text), MinGroupChars)
		rebuilt = append(rebuilt, c.Text)
	}
	assert.Equal(t, para, strings.Join(rebuilt, " "))
}

func TestSplit_OversizedSentenceIsCut(t *testing.T) {
	word := "αβγδεζηθικ " // multi-byte runes
	para := strings.Repeat(word, 200)

	chunks := Split([]Source{{Index: 1, Text: para}})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), MaxChunkChars)
		assert.True(t, strings.HasPrefix(c.Text, "α"), "chunk starts mid-word: %q", c.Text[:10])
	}
}

func TestSplit_DropsShortTrailingGroup(t *testing.T) {
	// Given: one sentence that nearly fills a group, then a tiny tail
	para := strings.Repeat("a", 995) + ". Tail."

	// When: splitting
	chunks := Split([]Source{{Index: 0, Text: para}})

	// Then: the tail forms its own group and is dropped as too short
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Repeat("a", 995)+".", chunks[0].Text)
}

func TestSplit_DeterministicAndUniqueIDs(t *testing.T) {
	text := strings.Repeat(strings.Repeat("z", 80)+"\n\n", 5)
	sources := []Source{{Index: 0, Text: text}, {Index: 1, Text: text}}

	a := Split(sources)
	b := Split(sources)

	assert.Equal(t, a, b)
	seen := map[string]bool{}
	for _, c := range a {
		assert.False(t, seen[c.ID], c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, a, 10)
}
