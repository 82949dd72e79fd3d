package openai

import (
	"errors"
	"strings"
)

var errNoJSON = errors.New("no json content found")

// ExtractJSON recovers a JSON document from model output that may be wrapped
// in markdown fences, <pre> tags, or surrounded by commentary. It strips the
// wrapping, finds the first '{' or '[', and brace-counts to the balanced
// close, ignoring unbalanced trailing content.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx != -1 {
		content = fencedBody(content, idx+len("```json"))
	} else if idx := strings.Index(content, "```"); idx != -1 {
		content = fencedBody(content, idx+len("```"))
	} else if idx := strings.Index(content, "<pre>"); idx != -1 {
		body := content[idx+len("<pre>"):]
		if end := strings.Index(body, "</pre>"); end != -1 {
			body = body[:end]
		}
		content = body
	}

	content = strings.ReplaceAll(content, "<pre>", "")
	content = strings.ReplaceAll(content, "</pre>", "")
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errNoJSON
	}

	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return "", errNoJSON
	}

	body := content[start:]
	end := balancedEnd(body)
	if end == -1 {
		return "", errNoJSON
	}
	return body[:end+1], nil
}

func fencedBody(content string, from int) string {
	body := content[from:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return body
}

// balancedEnd returns the index of the closing brace/bracket matching the
// first byte of s, or -1. Braces inside JSON strings are ignored.
func balancedEnd(s string) int {
	open := s[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
