package llm

import (
	"context"
)

// Role identifies the author of a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface for LLM clients. Implementations are stateless:
// the full conversation is sent on every call.
type Client interface {
	// Complete sends the conversation and returns the raw text of the reply
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)

	// ModelName returns the name of the model being used
	ModelName() string
}

// SystemMessage returns a system-role message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user-role message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant-role message
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
