// Package export serializes a finished flashcard set to exchange formats.
// All functions are pure: writing the result anywhere is the caller's job.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"flashgen/internal/models"
)

// ToCSV renders the set as RFC 4180 CSV with a question,answer,difficulty
// header. Embedded commas, quotes, and newlines are quoted by encoding/csv.
func ToCSV(set models.FlashcardSet) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"question", "answer", "difficulty"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, card := range set {
		if err := w.Write([]string{card.Question, card.Answer, string(card.Difficulty)}); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// ToJSON renders the set as an ordered JSON array of
// {question, answer, difficulty} objects.
func ToJSON(set models.FlashcardSet) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if set == nil {
		set = models.FlashcardSet{}
	}
	if err := enc.Encode(set); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FromJSON is the inverse of ToJSON; exporting and re-importing preserves
// every (question, answer, difficulty) tuple in order.
func FromJSON(data string) (models.FlashcardSet, error) {
	var set models.FlashcardSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return set, nil
}

// ToAnki renders the set in Anki's tab-separated import format, one
// question/answer per line. Tabs and newlines inside fields are softened to
// spaces since the format reserves them.
func ToAnki(set models.FlashcardSet) string {
	var b strings.Builder
	for _, card := range set {
		b.WriteString(flatten(card.Question))
		b.WriteString("\t")
		b.WriteString(flatten(card.Answer))
		b.WriteString("\n")
	}
	return b.String()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
