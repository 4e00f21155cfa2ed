// Package pipeline drives a full generation run: chunk the document, ask the
// model about each chunk in order, parse and score the answers, then merge
// everything into one deduplicated flashcard set. Chunks are processed
// sequentially because the model backend is a shared, heavy resource.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flashgen/internal/chunker"
	"flashgen/internal/difficulty"
	"flashgen/internal/generator"
	"flashgen/internal/models"
	"flashgen/internal/parser"
	"flashgen/internal/prompt"
)

// MinChunkChars is the smallest chunk worth a model call; shorter fragments
// rarely yield a usable card.
const MinChunkChars = 50

// topUpFactor and topUpChunks control the second pass that runs when a
// document produced fewer cards than requested: rechunk larger and feed a
// couple of the bigger chunks through again.
const (
	topUpFactor = 3.0 / 2.0
	topUpChunks = 2
)

// Options is the explicit run configuration, threaded through every stage so
// no pipeline state hides in globals.
type Options struct {
	TargetChunkSize int
	ChunkLookback   int
	Subject         string
	MinCards        int
	Generation      generator.Config
	Timeout         time.Duration // per-chunk model call budget; 0 means none
	Thresholds      difficulty.Thresholds
}

func (o Options) withDefaults() Options {
	if o.TargetChunkSize <= 0 {
		o.TargetChunkSize = chunker.DefaultTargetSize
	}
	if o.ChunkLookback <= 0 {
		o.ChunkLookback = chunker.DefaultLookback
	}
	if o.Thresholds.EasyMaxWords == 0 {
		o.Thresholds = difficulty.DefaultThresholds()
	}
	return o
}

// ProgressCallback reports run progress to the caller (job status, UI).
type ProgressCallback func(step, message string, current, total int)

// Pipeline owns the stateless stages; only a FlashcardSet grows during a run,
// and only after each chunk's full parse/score cycle completes.
type Pipeline struct {
	gen    generator.Generator
	logger *slog.Logger
}

func New(gen generator.Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{gen: gen, logger: logger}
}

// Run processes the whole document and returns the deduplicated set plus a
// summary of what each chunk contributed. Per-chunk generation failures are
// recorded and skipped; the run only stops early when ctx is cancelled, and
// then still returns everything aggregated so far alongside ctx's error.
func (p *Pipeline) Run(ctx context.Context, document string, opts Options) (models.FlashcardSet, models.RunSummary, error) {
	return p.RunWithProgress(ctx, document, opts, nil)
}

func (p *Pipeline) RunWithProgress(
	ctx context.Context,
	document string,
	opts Options,
	progress ProgressCallback,
) (models.FlashcardSet, models.RunSummary, error) {
	opts = opts.withDefaults()
	var summary models.RunSummary

	chunks := chunker.New(chunker.Options{
		TargetSize: opts.TargetChunkSize,
		Lookback:   opts.ChunkLookback,
		Subject:    opts.Subject,
	}).Split(document)
	summary.ChunksTotal = len(chunks)

	var perChunk [][]models.Flashcard
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			set, dups := Aggregate(perChunk)
			summary.DuplicatesRemoved = dups
			return set, summary, err
		}
		if progress != nil {
			progress("generate", fmt.Sprintf("Processing chunk %d of %d", i+1, len(chunks)), i, len(chunks))
		}
		cards := p.processChunk(ctx, chunk, opts, &summary)
		if len(cards) > 0 {
			perChunk = append(perChunk, cards)
		}
	}

	// Thin yield: rechunk larger and give the model more context per call.
	if opts.MinCards > 0 && countCards(perChunk) < opts.MinCards {
		if progress != nil {
			progress("topup", "Few cards produced, retrying with larger chunks", len(chunks), len(chunks))
		}
		perChunk = p.topUp(ctx, document, opts, perChunk, &summary)
	}

	set, dups := Aggregate(perChunk)
	summary.DuplicatesRemoved = dups

	if progress != nil {
		progress("complete", fmt.Sprintf("Generated %d flashcards", len(set)), len(chunks), len(chunks))
	}
	p.logger.Info("generation run complete",
		"cards", len(set),
		"chunks", summary.ChunksTotal,
		"failed", summary.ChunksFailed,
		"empty", summary.ChunksEmpty,
		"duplicates", summary.DuplicatesRemoved)

	return set, summary, nil
}

// processChunk runs one chunk through prompt, model, parser, and scorer. A
// failed or empty chunk costs nothing but its summary count.
func (p *Pipeline) processChunk(
	ctx context.Context,
	chunk models.Chunk,
	opts Options,
	summary *models.RunSummary,
) []models.Flashcard {
	if len(chunk.Text) < MinChunkChars {
		summary.ChunksEmpty++
		return nil
	}

	raw, err := p.invoke(ctx, prompt.Build(chunk), opts)
	if err != nil {
		summary.ChunksFailed++
		p.logger.Warn("chunk generation failed",
			"chunk", chunk.Index,
			"error", err)
		return nil
	}

	res := parser.Parse(raw)
	summary.PairsDropped += res.Dropped
	if len(res.Pairs) == 0 {
		summary.ChunksEmpty++
		return nil
	}
	summary.PairsParsed += len(res.Pairs)

	cards := make([]models.Flashcard, 0, len(res.Pairs))
	for _, pair := range res.Pairs {
		cards = append(cards, models.Flashcard{
			Question:         pair.Question,
			Answer:           pair.Answer,
			Difficulty:       opts.Thresholds.Assign(pair.Question, pair.Answer),
			SourceChunkIndex: chunk.Index,
		})
	}
	p.logger.Debug("chunk parsed",
		"chunk", chunk.Index,
		"pattern", string(res.Pattern),
		"pairs", len(res.Pairs))
	return cards
}

// invoke wraps the model call with the optional per-chunk timeout. A timeout
// expiry is indistinguishable from any other generation failure to callers.
func (p *Pipeline) invoke(ctx context.Context, promptText string, opts Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return p.gen.Generate(ctx, promptText, opts.Generation)
}

// topUp reruns up to topUpChunks of a coarser chunking. Their indexes
// continue after the first pass so provenance stays unambiguous.
func (p *Pipeline) topUp(
	ctx context.Context,
	document string,
	opts Options,
	perChunk [][]models.Flashcard,
	summary *models.RunSummary,
) [][]models.Flashcard {
	offset := summary.ChunksTotal
	large := chunker.New(chunker.Options{
		TargetSize: int(float64(opts.TargetChunkSize) * topUpFactor),
		Lookback:   opts.ChunkLookback,
		Subject:    opts.Subject,
	}).Split(document)

	if len(large) > topUpChunks {
		large = large[:topUpChunks]
	}
	for i, chunk := range large {
		if ctx.Err() != nil {
			return perChunk
		}
		chunk.Index = offset + i
		summary.ChunksTotal++
		if cards := p.processChunk(ctx, chunk, opts, summary); len(cards) > 0 {
			perChunk = append(perChunk, cards)
		}
	}
	return perChunk
}

// Aggregate flattens per-chunk results preserving chunk order and removes
// later cards whose normalized question matches an earlier one. It returns
// the set and the number of duplicates removed.
func Aggregate(perChunk [][]models.Flashcard) (models.FlashcardSet, int) {
	var set models.FlashcardSet
	seen := make(map[string]struct{})
	removed := 0

	for _, cards := range perChunk {
		for _, card := range cards {
			key := models.NormalizeQuestion(card.Question)
			if _, dup := seen[key]; dup {
				removed++
				continue
			}
			seen[key] = struct{}{}
			set = append(set, card)
		}
	}
	return set, removed
}

func countCards(perChunk [][]models.Flashcard) int {
	n := 0
	for _, cards := range perChunk {
		n += len(cards)
	}
	return n
}
