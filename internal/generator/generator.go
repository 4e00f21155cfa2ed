// Package generator is the boundary between the flashcard pipeline and the
// external language model. The pipeline only ever sees the Generator
// interface, so any concrete model (or a scripted stub in tests) can sit
// behind it without touching pipeline logic.
package generator

import "context"

// Config carries the per-request generation parameters.
type Config struct {
	MaxOutputTokens int
	Temperature     float32
	Sampling        bool
	CandidateCount  int
}

// DefaultConfig mirrors the defaults the model was tuned around.
func DefaultConfig() Config {
	return Config{
		MaxOutputTokens: 400,
		Temperature:     0.7,
		Sampling:        true,
		CandidateCount:  1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.CandidateCount <= 0 {
		c.CandidateCount = d.CandidateCount
	}
	return c
}

// Generator produces raw model output for a prompt. Implementations must
// honor context cancellation; the response is free-form text with no
// guaranteed structure.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg Config) (string, error)
}
