package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"flashgen/internal/db"
	"flashgen/internal/models"
)

func newTestDB(t *testing.T) *FlashcardService {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewFlashcardService(conn)
}

func sampleSet() models.FlashcardSet {
	return models.FlashcardSet{
		{Question: "What is the powerhouse of the cell?", Answer: "The mitochondria.", Difficulty: models.DifficultyEasy, SourceChunkIndex: 0},
		{Question: "What does ATP stand for?", Answer: "Adenosine triphosphate.", Difficulty: models.DifficultyMedium, SourceChunkIndex: 1},
	}
}

func TestSaveRunAndReload(t *testing.T) {
	svc := newTestDB(t)
	ctx := context.Background()

	summary := models.RunSummary{ChunksTotal: 2, PairsParsed: 3, DuplicatesRemoved: 1}
	run, err := svc.SaveRun(ctx, "biology.txt", "biology", sampleSet(), summary)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be assigned")
	}
	if run.CardCount != 2 {
		t.Errorf("CardCount = %d, want 2", run.CardCount)
	}

	got, err := svc.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.SourceName != "biology.txt" {
		t.Errorf("SourceName = %q", got.SourceName)
	}
	if !got.Subject.Valid || got.Subject.String != "biology" {
		t.Errorf("Subject = %+v, want biology", got.Subject)
	}
	if got.Summary != summary {
		t.Errorf("Summary = %+v, want %+v", got.Summary, summary)
	}

	set, err := svc.GetSet(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetSet: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("got %d cards, want 2", len(set))
	}
	if set[0].Question != "What is the powerhouse of the cell?" || set[0].Difficulty != models.DifficultyEasy {
		t.Errorf("first card round-tripped wrong: %+v", set[0])
	}
	if set[1].SourceChunkIndex != 1 {
		t.Errorf("chunk index = %d, want 1", set[1].SourceChunkIndex)
	}
}

func TestGetRunNotFound(t *testing.T) {
	svc := newTestDB(t)
	if _, err := svc.GetRun(context.Background(), 9999); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := svc.GetSet(context.Background(), 9999); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from GetSet, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	svc := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := svc.SaveRun(ctx, name, "", sampleSet(), models.RunSummary{}); err != nil {
			t.Fatalf("SaveRun(%s): %v", name, err)
		}
	}

	runs, err := svc.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID < runs[1].ID {
		t.Errorf("runs not newest first: %d before %d", runs[0].ID, runs[1].ID)
	}
}

func TestNextCardEmpty(t *testing.T) {
	svc := newTestDB(t)
	if _, err := svc.NextCard(context.Background()); !errors.Is(err, ErrNoDueCards) {
		t.Fatalf("expected ErrNoDueCards, got %v", err)
	}
}

func TestReviewAdvancesSchedule(t *testing.T) {
	svc := newTestDB(t)
	ctx := context.Background()

	run, err := svc.SaveRun(ctx, "biology.txt", "", sampleSet(), models.RunSummary{})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// Fresh cards are due immediately.
	card, err := svc.NextCard(ctx)
	if err != nil {
		t.Fatalf("NextCard: %v", err)
	}
	if !card.RunID.Valid || card.RunID.Int64 != run.ID {
		t.Errorf("card run = %+v, want %d", card.RunID, run.ID)
	}
	if !strings.Contains(card.Question, "?") {
		t.Errorf("unexpected card question %q", card.Question)
	}

	reviewed, log, err := svc.ReviewCard(ctx, card.ID, fsrs.Good)
	if err != nil {
		t.Fatalf("ReviewCard: %v", err)
	}
	if reviewed.Reps != 1 {
		t.Errorf("Reps = %d, want 1 after first review", reviewed.Reps)
	}
	if !reviewed.Due.Valid || !reviewed.Due.Time.After(card.CreatedAt) {
		t.Errorf("Due not advanced: %+v", reviewed.Due)
	}
	if log.CardID != card.ID || log.Rating != int(fsrs.Good) {
		t.Errorf("review log = %+v", log)
	}

	// The second unreviewed card comes up before the one just scheduled.
	next, err := svc.NextCard(ctx)
	if err != nil {
		t.Fatalf("NextCard after review: %v", err)
	}
	if next.ID == card.ID {
		t.Error("just-reviewed card came back immediately")
	}
}
