package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"flashgen/internal/export"
	"flashgen/internal/extract"
	"flashgen/internal/models"
	"flashgen/internal/pipeline"
	"flashgen/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

type Server struct {
	mux        *http.ServeMux
	pipeline   *pipeline.Pipeline
	flashcards *services.FlashcardService
	documents  *services.DocumentService
	extractor  *extract.Extractor
	jobs       *JobManager
	logger     *slog.Logger
	defaults   pipeline.Options
}

func NewServer(
	pipe *pipeline.Pipeline,
	flashcards *services.FlashcardService,
	documents *services.DocumentService,
	defaults pipeline.Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:        http.NewServeMux(),
		pipeline:   pipe,
		flashcards: flashcards,
		documents:  documents,
		extractor:  extract.NewExtractor(),
		jobs:       NewJobManager(),
		logger:     logger,
		defaults:   defaults,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/documents", s.handleUploadDocument)
	s.mux.HandleFunc("/api/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/runs", s.handleListRuns)
	s.mux.HandleFunc("/api/runs/", s.handleRunActions)
	s.mux.HandleFunc("/api/cards/next", s.handleGetNextCard)
	s.mux.HandleFunc("/api/cards/", s.handleCardActions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Text     string `json:"text"`
	Subject  string `json:"subject"`
	Source   string `json:"source"`
	MinCards int    `json:"minCards"`
}

// handleGenerate starts an async run over raw text. The response carries a
// job ID the client polls via /api/jobs/{id}.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	sourceName := strings.TrimSpace(payload.Source)
	if sourceName == "" {
		sourceName = "pasted text"
	}

	opts := s.defaults
	opts.Subject = strings.TrimSpace(payload.Subject)
	if payload.MinCards > 0 {
		opts.MinCards = payload.MinCards
	}

	jobID, snapshot := s.jobs.CreateJob(sourceName)
	go s.runGenerationJob(context.Background(), jobID, sourceName, payload.Text, opts)

	writeJSON(w, http.StatusAccepted, snapshot)
}

// handleUploadDocument stores the uploaded file, extracts its text, and runs
// generation asynchronously like /api/generate does.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	file := files[0]

	if !extract.Supported(file.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported file type, expected .txt or .pdf")
		return
	}

	doc, err := s.storeDocument(r.Context(), file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := s.defaults
	opts.Subject = strings.TrimSpace(r.FormValue("subject"))
	if minCards, err := strconv.Atoi(r.FormValue("minCards")); err == nil && minCards > 0 {
		opts.MinCards = minCards
	}

	jobID, snapshot := s.jobs.CreateJob(file.Filename)
	go func() {
		ctx := context.Background()
		text, err := s.extractor.FromPath(doc.StoredPath)
		if err != nil {
			s.jobs.MarkFailed(jobID, err.Error())
			return
		}
		s.runGenerationJob(ctx, jobID, file.Filename, text, opts)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"documentId": doc.ID,
		"job":        snapshot,
	})
}

func (s *Server) storeDocument(ctx context.Context, file *multipart.FileHeader) (*models.Document, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	doc, err := s.documents.Create(ctx, file.Filename, src)
	if err != nil {
		return nil, fmt.Errorf("store upload %s: %w", file.Filename, err)
	}
	return doc, nil
}

func (s *Server) runGenerationJob(ctx context.Context, jobID, sourceName, text string, opts pipeline.Options) {
	s.jobs.MarkProcessing(jobID)

	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}
	set, summary, err := s.pipeline.RunWithProgress(ctx, text, opts, progress)
	if err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}

	run, err := s.flashcards.SaveRun(ctx, sourceName, opts.Subject, set, summary)
	if err != nil {
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}

	s.jobs.MarkCompleted(jobID, run.ID, len(set), summary)
	s.logger.Info("generation job finished",
		"job", jobID,
		"run", run.ID,
		"source", sourceName,
		"cards", len(set))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID = strings.Trim(jobID, "/")
	if jobID == "" {
		http.NotFound(w, r)
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}

	runs, err := s.flashcards.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, runPayload(run.ID, run.SourceName, run.Subject, run.CardCount, run.Summary, run.CreatedAt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// handleRunActions serves /api/runs/{id} and /api/runs/{id}/export.
func (s *Server) handleRunActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")

	runID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	switch {
	case len(parts) == 1:
		s.serveRun(w, r, runID)
	case len(parts) == 2 && parts[1] == "export":
		s.serveExport(w, r, runID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveRun(w http.ResponseWriter, r *http.Request, runID int64) {
	run, err := s.flashcards.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	set, err := s.flashcards.GetSet(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := runPayload(run.ID, run.SourceName, run.Subject, run.CardCount, run.Summary, run.CreatedAt)
	payload["flashcards"] = set
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, runID int64) {
	set, err := s.flashcards.GetSet(r.Context(), runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var body, contentType, filename string
	switch format {
	case "csv":
		body, err = export.ToCSV(set)
		contentType = "text/csv; charset=utf-8"
		filename = fmt.Sprintf("run-%d.csv", runID)
	case "json":
		body, err = export.ToJSON(set)
		contentType = "application/json"
		filename = fmt.Sprintf("run-%d.json", runID)
	case "anki":
		body = export.ToAnki(set)
		contentType = "text/plain; charset=utf-8"
		filename = fmt.Sprintf("run-%d.txt", runID)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv, json, or anki")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleGetNextCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	card, err := s.flashcards.NextCard(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoDueCards) {
			writeJSON(w, http.StatusOK, map[string]any{
				"card":    nil,
				"message": "No cards due. Come back later!",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card": map[string]any{
			"id":        card.ID,
			"question":  card.Question,
			"answer":    card.Answer,
			"level":     card.Level,
			"due":       nullTimeToString(card.Due),
			"source":    nullString(card.SourceName),
			"state":     card.State,
			"stability": card.Stability,
		},
	})
}

type reviewRequest struct {
	Rating string `json:"rating"`
}

// handleCardActions serves POST /api/cards/{id}/review.
func (s *Server) handleCardActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/cards/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "review" {
		http.NotFound(w, r)
		return
	}

	cardID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, logEntry, err := s.flashcards.ReviewCard(r.Context(), cardID, rating)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card": map[string]any{
			"id":    card.ID,
			"due":   nullTimeToString(card.Due),
			"state": card.State,
		},
		"log": map[string]any{
			"rating":  logEntry.Rating,
			"due_in":  logEntry.ScheduledDays,
			"updated": logEntry.ReviewedAt.Format(timeLayout),
		},
	})
}

const timeLayout = time.RFC3339

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}

func runPayload(id int64, sourceName string, subject sql.NullString, cardCount int, summary any, createdAt time.Time) map[string]any {
	return map[string]any{
		"id":         id,
		"sourceName": sourceName,
		"subject":    nullString(subject),
		"cardCount":  cardCount,
		"summary":    summary,
		"createdAt":  createdAt.Format(timeLayout),
	}
}

func nullTimeToString(t sql.NullTime) *string {
	if t.Valid {
		str := t.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if v.Valid {
		str := v.String
		return &str
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
