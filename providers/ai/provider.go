package ai

import (
	"context"
	"net/http"
)

// ChatCompletionProvider is the capability interface every chat-completion
// backend must satisfy. Node executors and the engine depend only on this
// interface and never branch on vendor identity.
type ChatCompletionProvider interface {
	// Complete sends a chat request to the provider and returns the finished
	// response. Failures are reported as *ProviderError so callers can
	// distinguish auth, rate-limit, timeout and malformed-response cases.
	Complete(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier ("openai", "gemini", ...).
	Name() string

	// WithAPIKey returns a derived provider authenticating with the given
	// key. Implementations must not mutate the receiver: providers are
	// shared across sessions.
	WithAPIKey(apiKey string) ChatCompletionProvider

	// WithBaseURL returns a derived provider targeting the given base URL.
	WithBaseURL(baseURL string) ChatCompletionProvider

	// WithHTTPClient returns a derived provider using the given HTTP client.
	WithHTTPClient(httpClient *http.Client) ChatCompletionProvider
}

// ChatRequest represents a single chat-completion call.
type ChatRequest struct {
	Model        string    `json:"model,omitempty"`
	Messages     []Message `json:"messages"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Temperature  float32   `json:"temperature,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
}

// Message is a single message in a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Usage carries token accounting returned by the provider, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse is the normalized result of a chat completion.
type ChatResponse struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}
