package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
)

type scriptedCaller struct {
	responses []string
	errs      []error
	jsonMode  bool
	calls     []ChatRequest
}

func (s *scriptedCaller) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, req)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx >= len(s.responses) {
		return nil, errors.New("no scripted response")
	}
	return &ChatResult{Content: s.responses[idx], Usage: Usage{PromptTokens: 5, CompletionTokens: 7}}, nil
}

func (s *scriptedCaller) SupportsJSONMode() bool { return s.jsonMode }

func TestCompleteFirstTierStrictParse(t *testing.T) {
	caller := &scriptedCaller{responses: []string{`{"a":1}`}, jsonMode: true}
	sc := NewStructuredClient(caller, zerolog.Nop())

	raw, usage, err := sc.Complete(context.Background(), []Message{{Role: "user", Content: "go"}}, "test")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("raw = %s", raw)
	}
	if usage.CompletionTokens != 7 {
		t.Fatalf("usage = %+v", usage)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(caller.calls))
	}
	if !caller.calls[0].JSONMode {
		t.Fatal("first call must request json mode")
	}
}

func TestCompleteExtractsFromWrappedOutput(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"Here you go:\n```json\n{\"a\":1}\n```"}, jsonMode: true}
	sc := NewStructuredClient(caller, zerolog.Nop())

	raw, _, err := sc.Complete(context.Background(), []Message{{Role: "user", Content: "go"}}, "test")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("raw = %s", raw)
	}
	if len(caller.calls) != 1 {
		t.Fatalf("fenced output must not cost a second call, got %d", len(caller.calls))
	}
}

func TestCompleteEscalatesThroughLadder(t *testing.T) {
	caller := &scriptedCaller{
		responses: []string{"garbage", "still garbage", `<pre>{"ok":true}</pre>`},
		jsonMode:  true,
	}
	sc := NewStructuredClient(caller, zerolog.Nop())

	messages := []Message{
		{Role: "system", Content: "original system"},
		{Role: "user", Content: "write"},
	}
	raw, _, err := sc.Complete(context.Background(), messages, "test")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("raw = %s", raw)
	}
	if len(caller.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(caller.calls))
	}

	second := caller.calls[1].Messages
	if second[len(second)-1].Content != jsonOnlyInstruction {
		t.Fatal("second tier must append the json-only instruction")
	}
	third := caller.calls[2].Messages
	if third[0].Role != "system" || third[0].Content == "original system" {
		t.Fatalf("third tier must replace the system message, got %+v", third[0])
	}
}

func TestCompleteTerminatesWithExtractionError(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"garbage", "garbage", "garbage"}, jsonMode: true}
	sc := NewStructuredClient(caller, zerolog.Nop())

	_, _, err := sc.Complete(context.Background(), []Message{{Role: "user", Content: "go"}}, "article_payload")
	if err == nil {
		t.Fatal("expected error after exhausting the ladder")
	}
	var extractionErr *domain.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("error type = %T, want *domain.ExtractionError", err)
	}
	if extractionErr.Context != "article_payload" {
		t.Fatalf("context label = %q", extractionErr.Context)
	}
	if len(caller.calls) != 3 {
		t.Fatalf("ladder must stop after 3 upstream calls, got %d", len(caller.calls))
	}
}

func TestCompleteRetriesTransportFailures(t *testing.T) {
	caller := &scriptedCaller{
		responses: []string{"", `{"a":1}`},
		errs:      []error{domain.ErrProviderFailure, nil},
		jsonMode:  true,
	}
	sc := NewStructuredClient(caller, zerolog.Nop())

	raw, _, err := sc.Complete(context.Background(), []Message{{Role: "user", Content: "go"}}, "test")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("raw = %s", raw)
	}
}

func TestCompleteInto(t *testing.T) {
	caller := &scriptedCaller{responses: []string{`{"title":"Hallo"}`}, jsonMode: true}
	sc := NewStructuredClient(caller, zerolog.Nop())

	var out struct {
		Title string `json:"title"`
	}
	if _, err := sc.CompleteInto(context.Background(), []Message{{Role: "user", Content: "go"}}, &out, "test"); err != nil {
		t.Fatalf("CompleteInto returned error: %v", err)
	}
	if out.Title != "Hallo" {
		t.Fatalf("Title = %q", out.Title)
	}
}
