// Package extract pulls plain text out of uploaded source files. A failed
// extraction is fatal to a run: with no text there is nothing to chunk.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction wraps every failure to turn a file into text.
var ErrExtraction = errors.New("text extraction failed")

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// FromPath extracts normalized text from a .txt or .pdf file.
func (e *Extractor) FromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		return e.fromTXT(path)
	case ".pdf":
		return e.fromPDF(path)
	default:
		return "", fmt.Errorf("%w: unsupported file type %s", ErrExtraction, ext)
	}
}

// Supported reports whether a filename has an extractable extension, so
// uploads can be rejected before they are stored.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

func (e *Extractor) fromTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrExtraction, path, err)
	}
	text := Normalize(string(b))
	if text == "" {
		return "", fmt.Errorf("%w: text file is empty", ErrExtraction)
	}
	return text, nil
}

func (e *Extractor) fromPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtraction, err)
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := Normalize(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text found in pdf", ErrExtraction)
	}
	return text, nil
}

// Normalize squares away line endings, trims each line, and collapses blank
// runs, so the chunker sees consistent input no matter the source format.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf strings.Builder
	emptyCount := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}
	return strings.TrimSpace(buf.String())
}
