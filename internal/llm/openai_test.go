package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/iabetor/aistory/internal/errs"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3},
	})
	return string(b)
}

func TestComplete_Normal(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("Once upon a time"))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(ModelConfig{APIURL: server.URL, APIKey: "test-key", Model: "test-model", MaxTokens: 100})
	got, err := provider.Complete(context.Background(), []Message{System("be brief"), User("hi")}, Options{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "Once upon a time" {
		t.Errorf("got %q", got)
	}

	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if _, ok := gotBody["response_format"]; ok {
		t.Error("response_format should be omitted when JSON is not requested")
	}
}

func TestComplete_JSONMode(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{"scenes":[]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(ModelConfig{APIURL: server.URL, APIKey: "k", Model: "m"})
	if _, err := provider.Complete(context.Background(), []Message{User("x")}, Options{JSON: true, Temperature: 0.2}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	rf, ok := gotBody["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotBody["response_format"])
	}
	if temp, _ := gotBody["temperature"].(float64); temp < 0.19 || temp > 0.21 {
		t.Errorf("temperature = %v, want 0.2", gotBody["temperature"])
	}
}

func TestComplete_Non200StatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(ModelConfig{APIURL: server.URL, APIKey: "key", Model: "model"})
	_, err := provider.Complete(context.Background(), []Message{User("hi")}, Options{})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if errs.KindOf(err) != errs.KindUpstream {
		t.Errorf("kind = %q, want upstream", errs.KindOf(err))
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusTooManyRequests {
		t.Errorf("expected wrapped APIError with 429, got %v", err)
	}
}

func TestComplete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("   "))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(ModelConfig{APIURL: server.URL, APIKey: "key", Model: "model"})
	_, err := provider.Complete(context.Background(), []Message{User("hi")}, Options{})
	if !errs.Is(err, errs.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestComplete_MissingKey(t *testing.T) {
	provider := NewOpenAIProvider(ModelConfig{APIURL: "http://127.0.0.1:1", Model: "m"})
	_, err := provider.Complete(context.Background(), []Message{User("hi")}, Options{})
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNew_Providers(t *testing.T) {
	for _, name := range []string{"", "openai", "deepseek", "gemini"} {
		if _, err := New(ModelConfig{Provider: name}); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New(ModelConfig{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(ctx context.Context, messages []Message, opts Options) (string, error) {
		return messages[len(messages)-1].Content, nil
	})
	got, err := p.Complete(context.Background(), []Message{User("echo")}, Options{})
	if err != nil || got != "echo" {
		t.Errorf("got %q, %v", got, err)
	}
}
