// Package parser extracts question/answer pairs from raw model output. The
// model promises nothing about structure, so parsing is an ordered set of
// pattern matchers tried most-specific first; when none of them recognizes
// the text the parser returns no pairs rather than inventing any.
package parser

import (
	"regexp"
	"strings"
)

// Pattern identifies which matcher recognized a response.
type Pattern string

const (
	PatternQAPrefixed  Pattern = "qa_prefixed"
	PatternNumbered    Pattern = "numbered"
	PatternPairedLines Pattern = "paired_lines"
	PatternNone        Pattern = "none"
)

// Pair is one extracted question/answer candidate, already trimmed.
type Pair struct {
	Question string
	Answer   string
}

// Result reports the extracted pairs, the pattern that produced them, and how
// many candidates were discarded for having an empty question or answer.
type Result struct {
	Pairs   []Pair
	Pattern Pattern
	Dropped int
}

var (
	questionMarker = regexp.MustCompile(`(?i)\bq(?:uestion)?\s*[0-9]*\s*:`)
	answerMarker   = regexp.MustCompile(`(?i)\ba(?:nswer)?\s*:`)
	numberedItem   = regexp.MustCompile(`^\s*\d+[.)]\s*(.*)$`)
	fenceLine      = regexp.MustCompile("^\\s*```")
)

// Parse never fails: malformed input only yields fewer (possibly zero) pairs.
func Parse(raw string) Result {
	raw = stripFences(raw)
	if strings.TrimSpace(raw) == "" {
		return Result{Pattern: PatternNone}
	}

	if pairs, dropped, ok := matchQAPrefixed(raw); ok {
		return Result{Pairs: pairs, Pattern: PatternQAPrefixed, Dropped: dropped}
	}
	if pairs, dropped, ok := matchNumbered(raw); ok {
		return Result{Pairs: pairs, Pattern: PatternNumbered, Dropped: dropped}
	}
	if pairs, dropped, ok := matchPairedLines(raw); ok {
		return Result{Pairs: pairs, Pattern: PatternPairedLines, Dropped: dropped}
	}
	return Result{Pattern: PatternNone}
}

// stripFences drops markdown code fence lines, which models wrap around
// output no matter how firmly the prompt forbids it.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if fenceLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// matchQAPrefixed handles "Q:"/"A:" and "Question:"/"Answer:" markers, both
// on one line ("Q: ... A: ...") and across lines.
func matchQAPrefixed(raw string) ([]Pair, int, bool) {
	locs := questionMarker.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil, 0, false
	}

	var pairs []Pair
	dropped := 0
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		part := raw[loc[1]:end]

		am := answerMarker.FindStringIndex(part)
		if am == nil {
			dropped++
			continue
		}
		question := strings.TrimSpace(part[:am[0]])
		answer := strings.TrimSpace(part[am[1]:])
		if question == "" || answer == "" {
			dropped++
			continue
		}
		pairs = append(pairs, Pair{Question: question, Answer: answer})
	}

	if len(pairs) == 0 && dropped == 0 {
		return nil, 0, false
	}
	return pairs, dropped, true
}

// matchNumbered handles numbered lists. Each numbered item opens a new card;
// the question ends at the item's first '?' (or its first line), and the rest
// of the item is the answer.
func matchNumbered(raw string) ([]Pair, int, bool) {
	lines := strings.Split(raw, "\n")

	var items []string
	current := -1
	for _, line := range lines {
		if m := numberedItem.FindStringSubmatch(line); m != nil {
			items = append(items, m[1])
			current = len(items) - 1
			continue
		}
		if current >= 0 {
			items[current] += "\n" + line
		}
	}
	if len(items) < 2 {
		return nil, 0, false
	}

	var pairs []Pair
	dropped := 0
	for _, item := range items {
		question, answer := splitItem(item)
		if question == "" || answer == "" {
			dropped++
			continue
		}
		pairs = append(pairs, Pair{Question: question, Answer: answer})
	}
	if len(pairs) == 0 {
		return nil, 0, false
	}
	return pairs, dropped, true
}

func splitItem(item string) (string, string) {
	item = strings.TrimSpace(item)
	if idx := strings.Index(item, "?"); idx >= 0 && idx+1 < len(item) {
		return strings.TrimSpace(item[:idx+1]), strings.TrimSpace(item[idx+1:])
	}
	if first, rest, ok := strings.Cut(item, "\n"); ok {
		return strings.TrimSpace(first), strings.TrimSpace(rest)
	}
	return "", ""
}

// matchPairedLines is the last-resort fallback: alternating lines read as
// question, answer, question, answer. Only accepted when the leading line
// actually reads like a question, so plain prose is rejected instead of
// being chopped into fake cards.
func matchPairedLines(raw string) ([]Pair, int, bool) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 2 || !strings.HasSuffix(lines[0], "?") {
		return nil, 0, false
	}

	var pairs []Pair
	for i := 0; i+1 < len(lines); i += 2 {
		pairs = append(pairs, Pair{Question: lines[i], Answer: lines[i+1]})
	}
	return pairs, 0, true
}
