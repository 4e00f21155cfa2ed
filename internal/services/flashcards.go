package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"flashgen/internal/models"
)

var (
	// ErrNoDueCards indicates that there are no cards ready to review.
	ErrNoDueCards = errors.New("no due cards")

	// ErrRunNotFound indicates an unknown generation run ID.
	ErrRunNotFound = errors.New("run not found")
)

// FlashcardService persists generation runs and schedules saved cards for
// review with FSRS.
type FlashcardService struct {
	db     *sql.DB
	params fsrs.Parameters
}

func NewFlashcardService(db *sql.DB) *FlashcardService {
	return &FlashcardService{db: db, params: fsrs.DefaultParam()}
}

// SaveRun stores a completed generation run with all its cards. New cards
// start in FSRS's initial state and become due immediately.
func (s *FlashcardService) SaveRun(
	ctx context.Context,
	sourceName, subject string,
	set models.FlashcardSet,
	summary models.RunSummary,
) (*models.Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	subjectValue := sql.NullString{String: subject, Valid: subject != ""}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		INSERT INTO runs (source_name, subject, card_count, chunks_total, chunks_failed,
		                  chunks_empty, pairs_parsed, pairs_dropped, duplicates_removed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, sourceName, subjectValue, len(set), summary.ChunksTotal, summary.ChunksFailed,
		summary.ChunksEmpty, summary.PairsParsed, summary.PairsDropped, summary.DuplicatesRemoved, now)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	runID, _ := res.LastInsertId()

	var stmt *sql.Stmt
	stmt, err = tx.PrepareContext(ctx, `
		INSERT INTO cards (run_id, question, answer, level, chunk_index, due, stability, difficulty,
		                   elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, NULL, ?, ?);
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare card insert: %w", err)
	}
	defer stmt.Close()

	for _, card := range set {
		if _, err = stmt.ExecContext(ctx,
			runID,
			card.Question,
			card.Answer,
			string(card.Difficulty),
			card.SourceChunkIndex,
			now,
			now,
			now,
		); err != nil {
			return nil, fmt.Errorf("insert card %q: %w", card.Question, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}

	return &models.Run{
		ID:         runID,
		SourceName: sourceName,
		Subject:    subjectValue,
		CardCount:  len(set),
		Summary:    summary,
		CreatedAt:  now,
	}, nil
}

func (s *FlashcardService) GetRun(ctx context.Context, id int64) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_name, subject, card_count, chunks_total, chunks_failed,
		       chunks_empty, pairs_parsed, pairs_dropped, duplicates_removed, created_at
		FROM runs WHERE id = ?;
	`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func (s *FlashcardService) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, subject, card_count, chunks_total, chunks_failed,
		       chunks_empty, pairs_parsed, pairs_dropped, duplicates_removed, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	if err := row.Scan(
		&run.ID,
		&run.SourceName,
		&run.Subject,
		&run.CardCount,
		&run.Summary.ChunksTotal,
		&run.Summary.ChunksFailed,
		&run.Summary.ChunksEmpty,
		&run.Summary.PairsParsed,
		&run.Summary.PairsDropped,
		&run.Summary.DuplicatesRemoved,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetSet reloads a run's cards as an ordered FlashcardSet for export.
func (s *FlashcardService) GetSet(ctx context.Context, runID int64) (models.FlashcardSet, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, level, chunk_index
		FROM cards
		WHERE run_id = ?
		ORDER BY id ASC;
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run cards: %w", err)
	}
	defer rows.Close()

	var set models.FlashcardSet
	for rows.Next() {
		var card models.Flashcard
		var level string
		if err := rows.Scan(&card.Question, &card.Answer, &level, &card.SourceChunkIndex); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		card.Difficulty = models.Difficulty(level)
		set = append(set, card)
	}
	return set, rows.Err()
}

// NextCard returns the next card to review: the earliest due card, or the
// oldest unseen one when nothing is due yet.
func (s *FlashcardService) NextCard(ctx context.Context) (*models.Card, error) {
	now := time.Now().UTC()

	card, err := s.fetchCard(ctx, `
		SELECT c.id, c.run_id, c.question, c.answer, c.level, c.chunk_index,
		       c.due, c.stability, c.difficulty, c.elapsed_days, c.scheduled_days,
		       c.reps, c.lapses, c.state, c.last_review, c.created_at, c.updated_at,
		       r.source_name
		FROM cards c
		LEFT JOIN runs r ON c.run_id = r.id
		WHERE c.due IS NOT NULL AND c.due <= ?
		ORDER BY c.due ASC
		LIMIT 1;
	`, now)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	card, err = s.fetchCard(ctx, `
		SELECT c.id, c.run_id, c.question, c.answer, c.level, c.chunk_index,
		       c.due, c.stability, c.difficulty, c.elapsed_days, c.scheduled_days,
		       c.reps, c.lapses, c.state, c.last_review, c.created_at, c.updated_at,
		       r.source_name
		FROM cards c
		LEFT JOIN runs r ON c.run_id = r.id
		WHERE c.due IS NULL
		ORDER BY c.created_at ASC
		LIMIT 1;
	`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDueCards
		}
		return nil, err
	}
	return card, nil
}

func (s *FlashcardService) fetchCard(ctx context.Context, query string, args ...any) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	card := &models.Card{}
	var level string
	if err := row.Scan(
		&card.ID,
		&card.RunID,
		&card.Question,
		&card.Answer,
		&level,
		&card.ChunkIndex,
		&card.Due,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.State,
		&card.LastReview,
		&card.CreatedAt,
		&card.UpdatedAt,
		&card.SourceName,
	); err != nil {
		return nil, err
	}
	card.Level = models.Difficulty(level)
	return card, nil
}

// ReviewCard updates the scheduling information based on the user's rating.
func (s *FlashcardService) ReviewCard(ctx context.Context, cardID int64, rating fsrs.Rating) (*models.Card, *models.ReviewLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	card := &models.Card{}
	var level string
	row := tx.QueryRowContext(ctx, `
		SELECT id, run_id, question, answer, level, chunk_index, due, stability, difficulty,
		       elapsed_days, scheduled_days, reps, lapses, state, last_review, created_at, updated_at
		FROM cards
		WHERE id = ?;
	`, cardID)
	if err = row.Scan(
		&card.ID,
		&card.RunID,
		&card.Question,
		&card.Answer,
		&level,
		&card.ChunkIndex,
		&card.Due,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.State,
		&card.LastReview,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, nil, fmt.Errorf("load card %d: %w", cardID, err)
	}
	card.Level = models.Difficulty(level)

	now := time.Now().UTC()
	scheduling := s.params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		err = fmt.Errorf("rating %d not supported", rating)
		return nil, nil, err
	}
	card.ApplyFSRSCard(info.Card)
	card.UpdatedAt = now

	if _, err = tx.ExecContext(ctx, `
		UPDATE cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
		    reps = ?, lapses = ?, state = ?, last_review = ?, updated_at = ?
		WHERE id = ?;
	`,
		nullTimePtr(card.Due),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.State,
		nullTimePtr(card.LastReview),
		card.UpdatedAt,
		card.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("update card %d: %w", card.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, rating, scheduled_days, elapsed_days, state, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, card.ID, int(info.ReviewLog.Rating), int(info.ReviewLog.ScheduledDays), int(info.ReviewLog.ElapsedDays), int(info.ReviewLog.State), now); err != nil {
		return nil, nil, fmt.Errorf("insert review log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit review: %w", err)
	}

	log := &models.ReviewLog{
		CardID:        card.ID,
		Rating:        int(info.ReviewLog.Rating),
		ScheduledDays: int(info.ReviewLog.ScheduledDays),
		ElapsedDays:   int(info.ReviewLog.ElapsedDays),
		State:         int(info.ReviewLog.State),
		ReviewedAt:    now,
	}
	return card, log, nil
}

func nullTimePtr(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}
