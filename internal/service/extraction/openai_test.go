package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
)

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestAzure_Extract(t *testing.T) {
	var gotPath, gotVersion, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("Api-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(`{"tickets":[{"type":"Task","title":"Upgrade"}],"summary":"ok"}`))
	}))
	defer srv.Close()

	ex, err := NewAzure(Options{}, config.Credentials{
		AzureKey:        "az-key",
		AzureEndpoint:   srv.URL + "/",
		AzureDeployment: "gpt-4o",
		AzureAPIVersion: "2025-01-01-preview",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ex.Extract(context.Background(), "[00:00] hallo allemaal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Tickets) != 1 || got.Tickets[0].Title != "Upgrade" {
		t.Errorf("unexpected draft: %+v", got)
	}
	if gotPath != "/openai/deployments/gpt-4o/chat/completions" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotVersion != "2025-01-01-preview" {
		t.Errorf("unexpected api version %s", gotVersion)
	}
	if gotKey != "az-key" {
		t.Errorf("expected api-key header, got %q", gotKey)
	}

	format, _ := gotBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", gotBody["response_format"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.HasPrefix(content, DefaultUserPrefix) || !strings.HasSuffix(content, "hallo allemaal") {
		t.Errorf("unexpected user message %v", user["content"])
	}
}

func TestOpenAI_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided: sk-123","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	ex, err := NewOpenAI(Options{BaseURL: srv.URL}, config.Credentials{OpenAIKey: "sk-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = ex.Extract(context.Background(), "some transcript text")
	if err == nil {
		t.Fatal("expected error")
	}

	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected apperr.Error, got %T", err)
	}
	if e.Kind != apperr.KindUpstream {
		t.Errorf("expected upstream kind, got %v", e.Kind)
	}
	if e.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", e.Status)
	}
	if strings.Contains(apperr.Public(err), "sk-123") {
		t.Errorf("public message leaks provider body: %s", apperr.Public(err))
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)
	}))
	defer srv.Close()

	ex, _ := NewOpenAI(Options{BaseURL: srv.URL}, config.Credentials{OpenAIKey: "k"})
	_, err := ex.Extract(context.Background(), "some transcript text")

	if apperr.KindOf(err) != apperr.KindEmptyResult {
		t.Errorf("expected empty result, got %v", err)
	}
}

func TestOpenAI_NonJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion("Sorry, I cannot help with that."))
	}))
	defer srv.Close()

	ex, _ := NewOpenAI(Options{BaseURL: srv.URL}, config.Credentials{OpenAIKey: "k"})
	_, err := ex.Extract(context.Background(), "some transcript text")

	if apperr.KindOf(err) != apperr.KindMalformedResponse {
		t.Errorf("expected malformed response, got %v", err)
	}
}

func TestOpenAI_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ex, _ := NewOpenAI(Options{BaseURL: srv.URL}, config.Credentials{OpenAIKey: "k"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ex.Extract(ctx, "some transcript text")
	if apperr.KindOf(err) != apperr.KindTimeout {
		t.Errorf("expected timeout, got %v", err)
	}
}
