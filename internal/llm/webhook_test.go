package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookAskSendsQuestion(t *testing.T) {
	var got Question
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"Consider data engineering."}`))
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL, 0)
	reply, err := client.Ask(context.Background(), Question{
		Message:   "What should I study?",
		UserID:    "u1",
		SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("Ask error: %v", err)
	}

	if reply != "Consider data engineering." {
		t.Errorf("reply = %q", reply)
	}
	if got.Message != "What should I study?" || got.UserID != "u1" || got.SessionID != "s1" {
		t.Errorf("unexpected request body: %+v", got)
	}
}

func TestWebhookAskRequestFieldNames(t *testing.T) {
	var raw map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`"ok"`))
	}))
	defer server.Close()

	if _, err := NewWebhookClient(server.URL, 0).Ask(context.Background(), Question{Message: "m", UserID: "u", SessionID: "s"}); err != nil {
		t.Fatalf("Ask error: %v", err)
	}

	for _, key := range []string{"message", "user_id", "session_id"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("request body missing %q: %v", key, raw)
		}
	}
}

func TestWebhookAskNonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"response":"should be ignored"}`))
		}))

		_, err := NewWebhookClient(server.URL, 0).Ask(context.Background(), Question{Message: "hi"})
		server.Close()

		var llmErr *Error
		if !errors.As(err, &llmErr) {
			t.Fatalf("status %d: expected *Error, got %T (%v)", status, err, err)
		}
		if llmErr.StatusCode != status {
			t.Errorf("StatusCode = %d, want %d", llmErr.StatusCode, status)
		}
		if err.Error() != UserFacingMessage {
			t.Errorf("Error() = %q, want user-facing message", err.Error())
		}
	}
}

func TestWebhookAskTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewWebhookClient(url, 0).Ask(context.Background(), Question{Message: "hi"})
	var llmErr *Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if llmErr.Err == nil {
		t.Error("expected cause to be kept")
	}
}

func TestWebhookAskInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := NewWebhookClient(server.URL, 0).Ask(context.Background(), Question{Message: "hi"})
	var llmErr *Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
}

func TestWebhookAskHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewWebhookClient(server.URL, 0).Ask(ctx, Question{Message: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestNewAskerDefaultsToWebhook(t *testing.T) {
	asker, err := NewAsker("", Options{})
	if err != nil {
		t.Fatalf("NewAsker error: %v", err)
	}
	if asker.Name() != "webhook" {
		t.Errorf("Name() = %q, want webhook", asker.Name())
	}

	if _, err := NewAsker(ProviderOpenAI, Options{}); err == nil {
		t.Error("expected error for openai without key")
	}
	if _, err := NewAsker(ProviderAnthropic, Options{}); err == nil {
		t.Error("expected error for anthropic without key")
	}
}
