// Package chunk splits scraped page text into paragraph-sized pieces for embedding.
package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MinSourceChars is the shortest source text that is chunked at all.
	MinSourceChars = 100
	// MinParagraphChars is the shortest paragraph kept.
	MinParagraphChars = 50
	// MaxChunkChars is the largest chunk produced.
	MaxChunkChars = 1000
	// MinGroupChars is the length a sentence group must exceed to be kept.
	MinGroupChars = 50
)

// Kind tells how a chunk was produced.
type Kind string

const (
	KindParagraph     Kind = "paragraph"
	KindSentenceGroup Kind = "sentence_group"
)

// Source is one page to chunk. Index identifies it in the caller's list.
type Source struct {
	Index        int
	URL          string
	Title        string
	Text         string
	QualityScore int
}

// Chunk is a retrievable piece of one source.
type Chunk struct {
	ID           string `json:"id"`
	SourceIndex  int    `json:"source_index"`
	Seq          int    `json:"seq"`
	Kind         Kind   `json:"kind"`
	Text         string `json:"text"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	QualityScore int    `json:"quality_score"`
}

// Split chunks every source. The output is deterministic: the same input always
// yields the same chunks, and IDs ("<source index>-<seq>") are unique per call.
func Split(sources []Source) []Chunk {
	var out []Chunk
	for _, src := range sources {
		if len(src.Text) < MinSourceChars {
			continue
		}

		seq := 0
		emit := func(text string, kind Kind) {
			out = append(out, Chunk{
				ID:           fmt.Sprintf("%d-%d", src.Index, seq),
				SourceIndex:  src.Index,
				Seq:          seq,
				Kind:         kind,
				Text:         text,
				URL:          src.URL,
				Title:        src.Title,
				QualityScore: src.QualityScore,
			})
			seq++
		}

		for _, para := range strings.Split(src.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if len(para) < MinParagraphChars {
				continue
			}
			if len(para) <= MaxChunkChars {
				emit(para, KindParagraph)
				continue
			}
			for _, g := range groupSentences(para) {
				emit(g, KindSentenceGroup)
			}
		}
	}
	return out
}

// groupSentences packs ". "-separated sentences greedily into groups of at most
// MaxChunkChars. Sentences longer than that are cut at word boundaries.
// Groups of MinGroupChars or less are dropped.
func groupSentences(para string) []string {
	var groups []string
	var cur strings.Builder

	flush := func() {
		if g := strings.TrimSpace(cur.String()); len(g) > MinGroupChars {
			groups = append(groups, g)
		}
		cur.Reset()
	}

	for _, s := range strings.Split(para, ". ") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}

		for _, piece := range cutLong(s, MaxChunkChars) {
			sep := 0
			if cur.Len() > 0 {
				sep = 1
			}
			if cur.Len()+sep+len(piece) > MaxChunkChars {
				flush()
				sep = 0
			}
			if sep == 1 {
				cur.WriteByte(' ')
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return groups
}

// cutLong splits s into pieces of at most max bytes, preferring the last space
// before the limit and never splitting a rune.
func cutLong(s string, max int) []string {
	var out []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if sp := strings.LastIndexByte(s[:cut], ' '); sp > max/2 {
			cut = sp
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
