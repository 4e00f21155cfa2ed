package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFromPathTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "First line.\r\n\r\n\r\n  Second line.  \r\nThird line."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := NewExtractor().FromPath(path)
	if err != nil {
		t.Fatalf("FromPath: %v", err)
	}
	want := "First line.\n\nSecond line.\nThird line."
	if text != want {
		t.Errorf("normalized text = %q, want %q", text, want)
	}
}

func TestFromPathEmptyTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\n  "), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewExtractor().FromPath(path)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestFromPathUnsupportedType(t *testing.T) {
	_, err := NewExtractor().FromPath("slides.pptx")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"notes.txt":  true,
		"BOOK.PDF":   true,
		"slides.ppt": false,
		"noext":      false,
	}
	for name, want := range cases {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}
