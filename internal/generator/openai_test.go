package generator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateNotConfigured(t *testing.T) {
	g := NewOpenAIGenerator("", "gpt-4o-mini", "")
	_, err := g.Generate(context.Background(), "prompt", DefaultConfig())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerateReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "Q: What is ATP? A: An energy carrier."}}
			]
		}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "gpt-4o-mini", srv.URL)
	out, err := g.Generate(context.Background(), "prompt", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Q: What is ATP? A: An energy carrier." {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "gpt-4o-mini", srv.URL)
	_, err := g.Generate(context.Background(), "prompt", DefaultConfig())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestGenerateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", "gpt-4o-mini", srv.URL)
	_, err := g.Generate(context.Background(), "prompt", DefaultConfig())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}
