package service

import (
	"context"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LanguageOracle is the external completion service used for intent extraction,
// narrative generation and chunk classification
type LanguageOracle interface {
	Complete(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Embedder turns text into vectors
type Embedder interface {
	// Embed returns the embedding of a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per text, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Ensure OpenAIClient implements both collaborators
var (
	_ LanguageOracle = (*OpenAIClient)(nil)
	_ Embedder       = (*OpenAIClient)(nil)
)
