package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIKeyEnv = "OPENAI_API_KEY"

// OpenAIConfig configures the OpenAI chat completions provider.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	// SystemPrompt is sent ahead of every prompt when set.
	SystemPrompt string
}

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	client *openai.Client
	system string
}

// NewOpenAI constructs the provider. The API key is taken from cfg.APIKey or
// the environment variable named by cfg.APIKeyEnv (OPENAI_API_KEY by default).
func NewOpenAI(cfg OpenAIConfig, httpClient *http.Client) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultOpenAIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required (set %s)", defaultOpenAIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), system: cfg.SystemPrompt}, nil
}

// Generate executes a single chat completion.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if o.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	ccr := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		ccr.MaxCompletionTokens = req.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return Response{}, generationError("openai", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, generationError("openai", req.Model, fmt.Errorf("response contained no choices"))
	}
	log.Debug().Str("model", req.Model).Str("finish_reason", string(resp.Choices[0].FinishReason)).Msg("openai completion received")

	return Response{
		Text:  resp.Choices[0].Message.Content,
		Model: req.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
