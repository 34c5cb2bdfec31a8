package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// OpenAIClient implements the Client interface for OpenAI-compatible chat
// completion APIs (OpenAI, DeepSeek, Ollama).
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates a new OpenAI-compatible client. Retries are left to WithRetry.
func NewOpenAIClient(cfg config.AIConfig, extra ...option.RequestOption) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "model name is required", nil)
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// Local servers such as Ollama accept any bearer token
		apiKey = cfg.Provider
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Complete sends the conversation and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    c.convertMessages(messages),
		Temperature: openai.Float(temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeProviderFailed, "OpenAI API call failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProviderFailed, "no completion choices returned", nil)
	}

	return completion.Choices[0].Message.Content, nil
}

// ModelName returns the model name
func (c *OpenAIClient) ModelName() string {
	return c.model
}

func (c *OpenAIClient) convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
