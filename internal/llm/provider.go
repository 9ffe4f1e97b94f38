package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoCandidate is returned when a provider answers without any usable completion.
	ErrNoCandidate = errors.New("no completion candidate returned")
	// ErrMissingCredential is returned when a provider that needs an API key has none.
	ErrMissingCredential = errors.New("missing API credential")
)

// Provider abstracts a chat-completion backend (OpenAI, Anthropic, Ollama).
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Models() []string
}

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest is the input for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the output from chat completions. Content holds the first
// candidate only.
type ChatResponse struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
}

// APIError carries the HTTP status a provider answered with.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s chat (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
