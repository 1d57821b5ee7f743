package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
)

func TestAnthropic_Extract(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "{\"tickets\":[{\"type\":\"Story\",\"title\":\"Login\"}],\"summary\":\"s\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	}))
	defer srv.Close()

	ex, err := NewAnthropic(Options{BaseURL: srv.URL, MaxTokens: 1000}, config.Credentials{AnthropicKey: "ant-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ex.Extract(context.Background(), "[00:00] hallo allemaal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Tickets) != 1 || got.Tickets[0].Title != "Login" {
		t.Errorf("unexpected draft: %+v", got)
	}

	if _, ok := gotBody["system"]; !ok {
		t.Error("expected system instruction in request")
	}
	if gotBody["max_tokens"] != float64(1000) {
		t.Errorf("expected max_tokens 1000, got %v", gotBody["max_tokens"])
	}
}

func TestAnthropic_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	ex, _ := NewAnthropic(Options{BaseURL: srv.URL}, config.Credentials{AnthropicKey: "k"})
	_, err := ex.Extract(context.Background(), "some transcript text")

	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected apperr.Error, got %v", err)
	}
	if e.Kind != apperr.KindUpstream || e.Status != http.StatusTooManyRequests {
		t.Errorf("unexpected error: %+v", e)
	}
}
