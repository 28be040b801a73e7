package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIClient answers questions with the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}

// Ask sends the question as a single-turn completion.
func (c *OpenAIClient) Ask(ctx context.Context, q Question) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: q.Message},
		},
		MaxTokens: 1024,
		User:      q.UserID,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &Error{Provider: c.Name(), StatusCode: apiErr.HTTPStatusCode, Err: err}
		}
		return "", &Error{Provider: c.Name(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Provider: c.Name(), Err: errors.New("completion returned no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}
