package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
)

const jsonOnlyInstruction = "Return valid JSON only. No commentary, no HTML tags, no markdown fences, no explanations. Just the JSON object."

// promptTransform rewrites the conversation for one escalation tier.
type promptTransform func(messages []Message) []Message

// asIs sends the conversation unchanged.
func asIs(messages []Message) []Message { return messages }

// appendJSONOnly keeps the conversation and appends a user instruction
// demanding bare JSON.
func appendJSONOnly(messages []Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, Message{Role: "user", Content: jsonOnlyInstruction})
}

// replaceSystem swaps the system message for an unambiguous JSON-only
// directive and restates the instruction as user content.
func replaceSystem(messages []Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: "You are a JSON generator. Respond with JSON only."})
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		out = append(out, m)
	}
	return append(out, Message{Role: "user", Content: jsonOnlyInstruction})
}

// escalation is the fixed ladder: one call per entry, at most three
// upstream calls per logical request.
var escalation = []promptTransform{asIs, appendJSONOnly, replaceSystem}

// StructuredClient turns unreliable model output into validated JSON.
type StructuredClient struct {
	caller Caller
	logger zerolog.Logger
}

// NewStructuredClient wraps a Caller with the JSON-extraction retry ladder.
func NewStructuredClient(caller Caller, logger zerolog.Logger) *StructuredClient {
	return &StructuredClient{caller: caller, logger: logger}
}

// Complete runs the conversation through the escalation ladder until a
// parseable JSON document is recovered. contextLabel identifies the logical
// request in diagnostics only. On exhaustion the error is a
// *domain.ExtractionError; it never propagates a raw provider error past
// this boundary.
func (s *StructuredClient) Complete(ctx context.Context, messages []Message, contextLabel string) (json.RawMessage, Usage, error) {
	var total Usage
	var lastErr error

	for tier, transform := range escalation {
		if err := ctx.Err(); err != nil {
			return nil, total, &domain.ExtractionError{Context: contextLabel, Err: err}
		}

		result, err := s.caller.ChatCompletion(ctx, ChatRequest{
			Messages: transform(messages),
			JSONMode: tier == 0,
		})
		if err != nil {
			lastErr = err
			s.logger.Warn().Err(err).Str("context", contextLabel).Int("tier", tier+1).
				Msg("structured completion call failed")
			continue
		}
		total.Add(result.Usage)

		// First tier with structured-output mode: parse strictly before
		// falling back to defensive extraction of the same content.
		if tier == 0 && s.caller.SupportsJSONMode() {
			if raw, ok := strictParse(result.Content); ok {
				return raw, total, nil
			}
		}
		raw, err := extractAndValidate(result.Content)
		if err != nil {
			lastErr = err
			s.logger.Warn().Err(err).Str("context", contextLabel).Int("tier", tier+1).
				Msg("json extraction failed, escalating")
			continue
		}
		return raw, total, nil
	}

	if lastErr == nil {
		lastErr = errNoJSON
	}
	return nil, total, &domain.ExtractionError{Context: contextLabel, Err: lastErr}
}

// CompleteInto decodes the recovered JSON into out.
func (s *StructuredClient) CompleteInto(ctx context.Context, messages []Message, out any, contextLabel string) (Usage, error) {
	raw, usage, err := s.Complete(ctx, messages, contextLabel)
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return usage, &domain.ExtractionError{Context: contextLabel, Err: fmt.Errorf("decode into target: %w", err)}
	}
	return usage, nil
}

func strictParse(content string) (json.RawMessage, bool) {
	var probe any
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(content), true
}

func extractAndValidate(content string) (json.RawMessage, error) {
	extracted, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	var probe any
	if err := json.Unmarshal([]byte(extracted), &probe); err != nil {
		return nil, fmt.Errorf("extracted content is not valid json: %w", err)
	}
	return json.RawMessage(extracted), nil
}
