package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/starford/govcal/internal/apperr"
)

const (
	defaultModel     = "gpt-4.1-mini"
	defaultMaxTokens = 1000
)

// OpenAIConfig configures the OpenAI-backed extractor.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// PromptSource supplies the instruction prompt for each call.
type PromptSource interface {
	Text() string
}

// OpenAI extracts events with a chat-completions vision model.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
	prompt    PromptSource
}

// NewOpenAI builds an extractor. A nil prompt means DefaultPrompt.
func NewOpenAI(cfg OpenAIConfig, prompt PromptSource) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if prompt == nil {
		prompt = staticPrompt(DefaultPrompt)
	}

	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		prompt:    prompt,
	}, nil
}

// Extract sends the prompt and the image in one user message and returns the
// first choice's content with any code fence removed.
func (o *OpenAI) Extract(ctx context.Context, img Image) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: o.prompt.Text()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", apperr.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choice list", apperr.ErrUpstreamUnparsable)
	}
	content := StripCodeFence(resp.Choices[0].Message.Content)
	if strings.TrimSpace(content) == "" {
		// A null message reads as an empty extraction.
		return "{}", nil
	}
	return content, nil
}

type staticPrompt string

func (s staticPrompt) Text() string { return string(s) }
