// Package prompt turns document chunks into model instructions.
package prompt

import (
	"fmt"
	"strings"

	"flashgen/internal/models"
)

const maxSubjectLen = 120

// Build renders the flashcard instruction for one chunk. It is a pure
// function of the chunk text and subject hint, so identical chunks always
// produce identical prompts.
func Build(chunk models.Chunk) string {
	var b strings.Builder

	subject := sanitize(chunk.SubjectHint, maxSubjectLen)
	if subject != "" {
		b.WriteString(fmt.Sprintf("In the context of %s, generate educational flashcards from the following text. ", subject))
	} else {
		b.WriteString("Generate educational flashcards from the following text. ")
	}
	b.WriteString("Create question-answer pairs that test understanding of key concepts, facts, and relationships. ")
	b.WriteString("Format each flashcard as 'Q: [question] A: [answer]'.\n\n")

	b.WriteString("Text: ")
	b.WriteString(chunk.Text)
	b.WriteString("\n\nFlashcards:")

	return b.String()
}

// sanitize collapses whitespace and truncates to limit runes, so a hostile or
// sloppy subject hint cannot distort the prompt layout.
func sanitize(input string, limit int) string {
	collapsed := strings.Join(strings.Fields(strings.TrimSpace(input)), " ")
	if limit <= 0 {
		return collapsed
	}
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	if limit > 3 {
		return string(runes[:limit-3]) + "..."
	}
	return string(runes[:limit])
}
