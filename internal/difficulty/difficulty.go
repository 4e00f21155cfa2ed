// Package difficulty labels flashcards Easy, Medium, or Hard from surface
// features of the pair alone; no model call is involved. The exact cutoffs
// are policy, not correctness: the guaranteed property is that a longer or
// more complex answer never scores below a shorter, simpler one.
package difficulty

import (
	"regexp"
	"strings"

	"flashgen/internal/models"
)

// Thresholds are the tunable word-count cutoffs for the answer.
type Thresholds struct {
	EasyMaxWords   int
	MediumMaxWords int
}

func DefaultThresholds() Thresholds {
	return Thresholds{EasyMaxWords: 8, MediumMaxWords: 20}
}

var (
	listMarker   = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	numericToken = regexp.MustCompile(`\d`)
)

// Assign labels one question/answer pair using the default thresholds.
func Assign(question, answer string) models.Difficulty {
	return DefaultThresholds().Assign(question, answer)
}

// Assign scores the pair against t. Enumerated sub-points in the answer mean
// Hard regardless of length; numeric content and a long, multi-clause
// question each bump the label one level.
func (t Thresholds) Assign(question, answer string) models.Difficulty {
	if t.EasyMaxWords <= 0 || t.MediumMaxWords <= t.EasyMaxWords {
		t = DefaultThresholds()
	}

	if countListItems(answer) >= 2 {
		return models.DifficultyHard
	}

	words := len(strings.Fields(answer))
	level := 0
	switch {
	case words > t.MediumMaxWords:
		level = 2
	case words > t.EasyMaxWords:
		level = 1
	}

	if numericToken.MatchString(answer) {
		level++
	}
	if isComplexQuestion(question) {
		level++
	}

	switch {
	case level >= 2:
		return models.DifficultyHard
	case level == 1:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

func countListItems(answer string) int {
	return len(listMarker.FindAllString(answer, -1))
}

// isComplexQuestion flags long questions with multi-clause structure.
func isComplexQuestion(question string) bool {
	if len(strings.Fields(question)) <= 12 {
		return false
	}
	return strings.Contains(question, ",") || strings.Contains(question, ";") ||
		strings.Contains(strings.ToLower(question), " and ")
}
