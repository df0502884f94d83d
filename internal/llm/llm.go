// Package llm is the text generation service used by the agents.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Request is a single prompt sent to a model.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// Usage reports the tokens consumed by one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the generated text and its token usage.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// GenerationError is returned for any failed generation call.
type GenerationError struct {
	Provider string
	Model    string
	Timeout  bool
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s generation with %s timed out: %v", e.Provider, e.Model, e.Err)
	}
	return fmt.Sprintf("%s generation with %s failed: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func generationError(provider, model string, err error) error {
	return &GenerationError{
		Provider: provider,
		Model:    model,
		Timeout:  errors.Is(err, context.DeadlineExceeded),
		Err:      err,
	}
}

var fenceRe = regexp.MustCompile("(?s)^```[A-Za-z0-9_+.-]*[ \t]*\r?\n(.*?)\r?\n?```$")

// StripFences removes a single markdown code fence surrounding text.
// Anything else is returned trimmed but otherwise unchanged.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}
