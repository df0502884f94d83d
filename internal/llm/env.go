package llm

import (
	"context"
	"os"
	"strings"
	"time"
)

// Environment variables read by FromEnv.
const (
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvGeminiBaseURL = "GEMINI_BASE_URL"
	EnvAgentCmd      = "CARETAKER_AGENT_CMD"
)

// FromEnv wires OpenAI as the fallback provider, Gemini for "gemini" models
// and the CLI agent for "exec:" models. Providers missing credentials fail
// only when a request is routed to them.
func FromEnv(ctx context.Context, timeout time.Duration) *Router {
	var fallback Generator
	if g, err := NewOpenAI(OpenAIConfig{BaseURL: os.Getenv(EnvOpenAIBaseURL)}, nil); err != nil {
		fallback = Unavailable("openai", err)
	} else {
		fallback = g
	}
	r := NewRouter(fallback, timeout)

	if g, err := NewGemini(ctx, GeminiConfig{BaseURL: os.Getenv(EnvGeminiBaseURL)}, nil); err != nil {
		r.Route("gemini", Unavailable("gemini", err))
	} else {
		r.Route("gemini", g)
	}

	if g, err := NewExec(ExecConfig{Cmd: strings.Fields(os.Getenv(EnvAgentCmd)), Stderr: os.Stderr}); err != nil {
		r.Route(ExecPrefix, Unavailable("exec", err))
	} else {
		r.Route(ExecPrefix, g)
	}
	return r
}
