package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWebhookURL is the RAG webhook the assistant is wired to.
const DefaultWebhookURL = "https://unlatticed-lavone-uncomputably.ngrok-free.dev/webhook/bc3934df-8d10-48df-9960-f0db1e806328"

// maxReplyBytes bounds how much of a reply body is read.
const maxReplyBytes = 4 << 20

// WebhookClient asks the remote RAG webhook.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient creates a webhook client. A zero timeout leaves the
// request bounded only by the caller's context.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if url == "" {
		url = DefaultWebhookURL
	}
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *WebhookClient) Name() string {
	return string(ProviderWebhook)
}

// Ask posts the question and normalizes the reply.
func (c *WebhookClient) Ask(ctx context.Context, q Question) (string, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "webhook.ask")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", q.SessionID))

	body, err := json.Marshal(q)
	if err != nil {
		return "", c.fail(span, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", c.fail(span, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(span, 0, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxReplyBytes))
		return "", c.fail(span, resp.StatusCode, fmt.Errorf("RAG API error: %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", c.fail(span, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	reply, err := ParseReply(raw)
	if err != nil {
		return "", c.fail(span, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	span.SetAttributes(attribute.String("reply_kind", reply.Kind.String()))

	return reply.Text, nil
}

func (c *WebhookClient) fail(span trace.Span, status int, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &Error{Provider: c.Name(), StatusCode: status, Err: err}
}
