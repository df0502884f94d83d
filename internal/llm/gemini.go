package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiKeyEnv = "GEMINI_API_KEY"

// GeminiConfig configures the Gemini API provider.
type GeminiConfig struct {
	BaseURL   string
	APIKey    string
	APIKeyEnv string
}

// Gemini generates text with the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini constructs the provider.
func NewGemini(ctx context.Context, cfg GeminiConfig, httpClient *http.Client) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultGeminiKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required (set %s)", defaultGeminiKeyEnv)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Generate executes a single GenerateContent call.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	var gcc *genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		gcc = &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), gcc)
	if err != nil {
		return Response{}, generationError("gemini", req.Model, err)
	}
	text := resp.Text()
	if text == "" {
		return Response{}, generationError("gemini", req.Model, fmt.Errorf("response did not contain text"))
	}

	out := Response{Text: text, Model: req.Model}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return out, nil
}
