// Package llm provides the inference providers that answer a user's message.
package llm

import (
	"context"
	"fmt"
	"time"
)

// UserFacingMessage is what callers show when inference fails.
const UserFacingMessage = "Failed to get response from career assistant. Please try again."

// SystemPrompt frames the assistant for providers that accept instructions.
const SystemPrompt = "You are Karierin, an AI career assistant. Help the user explore their interests, " +
	"discover suitable career paths and plan their professional journey. Be concise and practical."

// Question is one message sent for inference.
type Question struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Asker is the interface for inference providers.
type Asker interface {
	// Ask sends one message and returns the reply text.
	Ask(ctx context.Context, q Question) (string, error)

	// Name returns the provider name.
	Name() string
}

// Error is returned by every provider for a failed call. Its message is the
// fixed user-facing string; the cause is only reachable through Unwrap.
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return UserFacingMessage
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause describes the underlying failure for logs.
func (e *Error) Cause() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Provider is the type of inference provider.
type Provider string

const (
	ProviderWebhook   Provider = "webhook"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Options configures NewAsker.
type Options struct {
	WebhookURL      string
	WebhookTimeout  time.Duration
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// NewAsker creates an inference provider. Unknown providers fall back to the webhook.
func NewAsker(provider Provider, opts Options) (Asker, error) {
	switch provider {
	case ProviderOpenAI:
		c, err := NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderAnthropic:
		c, err := NewAnthropicClient(opts.AnthropicAPIKey, opts.AnthropicModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return NewWebhookClient(opts.WebhookURL, opts.WebhookTimeout), nil
	}
}
