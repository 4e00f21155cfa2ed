package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flashgen/internal/db"
)

func TestDocumentCreateAndGet(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	uploadDir := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		t.Fatal(err)
	}
	svc := NewDocumentService(conn, uploadDir)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "lecture notes.txt", strings.NewReader("Cells divide by mitosis."))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.OriginalName != "lecture notes.txt" {
		t.Errorf("OriginalName = %q", doc.OriginalName)
	}
	if filepath.Ext(doc.StoredPath) != ".txt" {
		t.Errorf("stored path should keep extension, got %q", doc.StoredPath)
	}

	data, err := os.ReadFile(doc.StoredPath)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "Cells divide by mitosis." {
		t.Errorf("stored content = %q", data)
	}

	got, err := svc.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.StoredPath != doc.StoredPath {
		t.Errorf("StoredPath = %q, want %q", got.StoredPath, doc.StoredPath)
	}

	if _, err := svc.GetByID(ctx, doc.ID+100); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
