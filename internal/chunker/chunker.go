// Package chunker splits raw document text into bounded-size segments that a
// language model can digest in one call. Splits prefer sentence boundaries so
// no chunk cuts a sentence in half when a boundary is available nearby.
package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"

	"flashgen/internal/models"
)

const (
	// DefaultTargetSize is the upper bound on chunk length in bytes.
	DefaultTargetSize = 800

	// DefaultLookback is how far back from the target size we search for a
	// sentence boundary before giving up and forcing a split.
	DefaultLookback = 200
)

// Options tunes how a document is segmented. Zero values fall back to the
// package defaults.
type Options struct {
	TargetSize int
	Lookback   int
	Subject    string
}

// Chunker produces document chunks. It holds no per-document state, so one
// Chunker can be reused across runs.
type Chunker struct {
	target   int
	lookback int
	subject  string
}

func New(opts Options) *Chunker {
	if opts.TargetSize <= 0 {
		opts.TargetSize = DefaultTargetSize
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Lookback > opts.TargetSize {
		opts.Lookback = opts.TargetSize
	}
	return &Chunker{
		target:   opts.TargetSize,
		lookback: opts.Lookback,
		subject:  opts.Subject,
	}
}

// Chunks returns a lazy sequence of chunks in document order. The sequence is
// restartable: ranging over it twice yields the same chunks. An empty or
// whitespace-only document yields nothing.
func (c *Chunker) Chunks(document string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		if strings.TrimSpace(document) == "" {
			return
		}
		index := 0
		rest := document
		for len(rest) > 0 {
			cut := c.cut(rest)
			text := strings.TrimSpace(rest[:cut])
			rest = rest[cut:]
			if text == "" {
				continue
			}
			chunk := models.Chunk{Text: text, Index: index, SubjectHint: c.subject}
			if !yield(chunk) {
				return
			}
			index++
		}
	}
}

// Split collects the chunk sequence into a slice.
func (c *Chunker) Split(document string) []models.Chunk {
	var chunks []models.Chunk
	for chunk := range c.Chunks(document) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// cut returns how many bytes of s belong to the next chunk. It prefers the
// last sentence boundary within the lookback window; with no boundary in
// reach it forces a split at the target size so pathological input (one giant
// sentence) still terminates.
func (c *Chunker) cut(s string) int {
	if len(s) <= c.target {
		return len(s)
	}

	lo := c.target - c.lookback
	for i := c.target; i > lo; i-- {
		if isSentenceEnd(s[i-1]) && isSpace(s[i]) {
			return i
		}
	}

	// Forced split. Back up to a rune start so multi-byte characters stay
	// intact.
	cut := c.target
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		cut = c.target
	}
	return cut
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '?' || b == '!'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
