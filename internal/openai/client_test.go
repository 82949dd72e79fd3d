package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, model string, temperature float64, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIKey:      "test-key",
		Model:       model,
		BaseURL:     srv.URL,
		Temperature: temperature,
		MaxTokens:   500,
		HTTPClient:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
	})
	return string(body)
}

func TestChatCompletionGPT5ParameterRules(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, "gpt-5", 0.7, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(`{"ok":true}`)))
	})

	result, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("ChatCompletion returned error: %v", err)
	}
	if result.Content != `{"ok":true}` {
		t.Fatalf("Content = %q", result.Content)
	}
	if result.Usage.CompletionTokens != 20 {
		t.Fatalf("CompletionTokens = %d, want 20", result.Usage.CompletionTokens)
	}

	if _, ok := captured["temperature"]; ok {
		t.Fatal("gpt-5 with non-default temperature must omit the parameter")
	}
	if _, ok := captured["max_completion_tokens"]; !ok {
		t.Fatal("gpt-5 must use max_completion_tokens")
	}
	if _, ok := captured["max_tokens"]; ok {
		t.Fatal("gpt-5 must not send max_tokens")
	}
	if rf, ok := captured["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
		t.Fatalf("response_format missing: %#v", captured["response_format"])
	}
}

func TestChatCompletionGPT5DefaultTemperatureSent(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, "gpt-5", 1.0, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(chatReply("ok")))
	})
	if _, err := client.ChatCompletion(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}); err != nil {
		t.Fatalf("ChatCompletion returned error: %v", err)
	}
	if temp, ok := captured["temperature"]; !ok || temp != float64(1) {
		t.Fatalf("default temperature should be sent as 1, got %#v", captured["temperature"])
	}
}

func TestChatCompletionLegacyTokenParam(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, "gpt-3.5-turbo", 0.6, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(chatReply("ok")))
	})
	if _, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	}); err != nil {
		t.Fatalf("ChatCompletion returned error: %v", err)
	}
	if _, ok := captured["max_tokens"]; !ok {
		t.Fatal("legacy models must use max_tokens")
	}
	if captured["temperature"] != 0.6 {
		t.Fatalf("temperature = %#v, want 0.6", captured["temperature"])
	}
	if _, ok := captured["response_format"]; ok {
		t.Fatal("legacy models must not request json mode")
	}
}

func TestChatCompletionProviderError(t *testing.T) {
	client := newTestClient(t, "gpt-4o", 1.0, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := client.ChatCompletion(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestGenerateImages(t *testing.T) {
	client := newTestClient(t, "gpt-4o", 1.0, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["size"] != "1024x1024" {
			t.Fatalf("size = %#v", req["size"])
		}
		body, _ := json.Marshal(map[string]any{
			"data": []map[string]string{{"url": "https://img.example/1.png"}, {"url": "https://img.example/2.png"}},
		})
		_, _ = w.Write(body)
	})

	urls, err := client.GenerateImages(context.Background(), "a test prompt", "", "high", 2)
	if err != nil {
		t.Fatalf("GenerateImages returned error: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://img.example/1.png" {
		t.Fatalf("urls = %#v", urls)
	}
}

func TestGenerateImagesZeroCount(t *testing.T) {
	client := newTestClient(t, "gpt-4o", 1.0, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for zero images")
	})
	urls, err := client.GenerateImages(context.Background(), "prompt", "", "", 0)
	if err != nil || urls != nil {
		t.Fatalf("GenerateImages = %#v, %v", urls, err)
	}
}
