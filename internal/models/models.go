package models

import (
	"database/sql"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// Difficulty is the coarse complexity label assigned to a flashcard at
// creation time. It never changes afterwards.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Chunk is a bounded segment of the source document, fed to the model in one
// generation call. Chunks are immutable once produced.
type Chunk struct {
	Text        string
	Index       int
	SubjectHint string
}

// Flashcard is the unit of pipeline output: a question/answer pair with a
// difficulty label and the index of the chunk it came from.
type Flashcard struct {
	Question         string     `json:"question"`
	Answer           string     `json:"answer"`
	Difficulty       Difficulty `json:"difficulty"`
	SourceChunkIndex int        `json:"-"`
}

// FlashcardSet is the ordered, question-deduplicated collection produced by
// one generation run.
type FlashcardSet []Flashcard

// NormalizeQuestion lowercases and whitespace-collapses question text. Two
// cards whose questions normalize identically are duplicates.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// RunSummary reports what happened during a generation run. The run always
// completes; callers use these counts to tell the user how much of the
// document actually yielded cards.
type RunSummary struct {
	ChunksTotal       int `json:"chunksTotal"`
	ChunksFailed      int `json:"chunksFailed"`
	ChunksEmpty       int `json:"chunksEmpty"`
	PairsParsed       int `json:"pairsParsed"`
	PairsDropped      int `json:"pairsDropped"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// Run is a persisted generation run.
type Run struct {
	ID         int64
	SourceName string
	Subject    sql.NullString
	CardCount  int
	Summary    RunSummary
	CreatedAt  time.Time
}

// Document is an uploaded source file kept on disk for provenance.
type Document struct {
	ID           int64
	OriginalName string
	StoredPath   string
	UploadedAt   time.Time
}

// Card is a persisted flashcard with FSRS scheduling state. Level is the
// heuristic difficulty label; Stability/Difficulty and friends are the FSRS
// scheduler's own scalars.
type Card struct {
	ID            int64
	RunID         sql.NullInt64
	Question      string
	Answer        string
	Level         Difficulty
	ChunkIndex    int
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SourceName    sql.NullString
}

type ReviewLog struct {
	ID            int64
	CardID        int64
	Rating        int
	ScheduledDays int
	ElapsedDays   int
	State         int
	ReviewedAt    time.Time
}

func (c *Card) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(max(c.ElapsedDays, 0)),
		ScheduledDays: uint64(max(c.ScheduledDays, 0)),
		Reps:          uint64(max(c.Reps, 0)),
		Lapses:        uint64(max(c.Lapses, 0)),
		State:         fsrs.State(max(c.State, 0)),
	}
	if c.Due.Valid {
		card.Due = c.Due.Time
	}
	if c.LastReview.Valid {
		card.LastReview = c.LastReview.Time
	}
	return card
}

func (c *Card) ApplyFSRSCard(f fsrs.Card) {
	c.Due = sql.NullTime{Time: f.Due, Valid: !f.Due.IsZero()}
	c.Stability = f.Stability
	c.Difficulty = f.Difficulty
	c.ElapsedDays = int(f.ElapsedDays)
	c.ScheduledDays = int(f.ScheduledDays)
	c.Reps = int(f.Reps)
	c.Lapses = int(f.Lapses)
	c.State = int(f.State)
	c.LastReview = sql.NullTime{Time: f.LastReview, Valid: !f.LastReview.IsZero()}
}

func max[T ~int | ~int32 | ~int64](a, b T) T {
	if a > b {
		return a
	}
	return b
}
