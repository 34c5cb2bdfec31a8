package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// anthropicMaxTemperature is the upper bound accepted by the Messages API
const anthropicMaxTemperature = 1.0

// AnthropicClient implements the Client interface for Anthropic Claude
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates a new Anthropic client. Retries are left to WithRetry.
func NewAnthropicClient(cfg config.AIConfig, extra ...option.RequestOption) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "model name is required", nil)
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Complete sends the conversation and returns the concatenated text blocks of the reply
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	system, turns := c.convertMessages(messages)

	if temperature > anthropicMaxTemperature {
		temperature = anthropicMaxTemperature
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Messages:    turns,
		Temperature: anthropic.Float(temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeProviderFailed, "Anthropic API call failed", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", apperrors.New(apperrors.ErrCodeProviderFailed, "no text content in response", nil)
	}
	return b.String(), nil
}

// ModelName returns the model name
func (c *AnthropicClient) ModelName() string {
	return c.model
}

// convertMessages lifts system messages into the system prompt and merges
// consecutive turns of the same role, since the Messages API requires
// alternating roles starting with the user.
func (c *AnthropicClient) convertMessages(messages []Message) (string, []anthropic.MessageParam) {
	var (
		system []string
		roles  []Role
		texts  []string
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		role := msg.Role
		if role != RoleAssistant {
			role = RoleUser
		}
		if len(roles) == 0 && role == RoleAssistant {
			roles = append(roles, RoleUser)
			texts = append(texts, "Continue.")
		}
		if n := len(roles); n > 0 && roles[n-1] == role {
			texts[n-1] += "\n\n" + msg.Content
			continue
		}
		roles = append(roles, role)
		texts = append(texts, msg.Content)
	}

	turns := make([]anthropic.MessageParam, 0, len(roles))
	for i, role := range roles {
		block := anthropic.NewTextBlock(texts[i])
		if role == RoleAssistant {
			turns = append(turns, anthropic.NewAssistantMessage(block))
		} else {
			turns = append(turns, anthropic.NewUserMessage(block))
		}
	}
	return strings.Join(system, "\n\n"), turns
}
