package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"flashgen/internal/models"
)

// ErrDocumentNotFound indicates an unknown document ID.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService stores uploaded source files on disk and records them in
// the database so runs can reference their provenance.
type DocumentService struct {
	db        *sql.DB
	uploadDir string
}

func NewDocumentService(db *sql.DB, uploadDir string) *DocumentService {
	return &DocumentService{db: db, uploadDir: uploadDir}
}

// Create streams the uploaded file to the upload directory under a random
// name and records it. The original name is kept for display only.
func (s *DocumentService) Create(ctx context.Context, originalName string, r io.Reader) (*models.Document, error) {
	ext := filepath.Ext(originalName)
	storedPath := filepath.Join(s.uploadDir, uuid.NewString()+ext)

	f, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(storedPath)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (original_name, stored_path, uploaded_at)
		VALUES (?, ?, ?);
	`, originalName, storedPath, now)
	if err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.Document{
		ID:           id,
		OriginalName: originalName,
		StoredPath:   storedPath,
		UploadedAt:   now,
	}, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, original_name, stored_path, uploaded_at
		FROM documents WHERE id = ?;
	`, id).Scan(&doc.ID, &doc.OriginalName, &doc.StoredPath, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}
