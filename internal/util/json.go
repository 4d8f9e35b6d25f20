package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Precompiled regex patterns for performance (compiled once at package init)
var (
	jsonCodeBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

// ExtractJSON extracts the first JSON value from a model response that may be
// wrapped in prose or markdown code blocks. Truncated arrays and objects are
// closed where possible.
func ExtractJSON(s string) string {
	// Try to extract from markdown code blocks using precompiled regex
	matches := jsonCodeBlockRegex.FindStringSubmatch(s)
	if len(matches) > 1 {
		s = strings.TrimSpace(matches[1])
	} else {
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}

	openChar, closeChar := rune('{'), rune('}')
	if s[start] == '[' {
		openChar, closeChar = '[', ']'
	}

	if end := findMatchingBracket(s, start, openChar, closeChar); end != -1 {
		return s[start : end+1]
	}

	// Truncated value: drop a dangling separator and close what is open
	trimmed := strings.TrimRight(s[start:], " \n\t\r,:")
	if strings.Count(trimmed, "\"")%2 == 1 {
		trimmed += "\""
	}
	var closers strings.Builder
	for _, open := range unclosed(trimmed) {
		if open == '{' {
			closers.WriteByte('}')
		} else {
			closers.WriteByte(']')
		}
	}
	return trimmed + closers.String()
}

// DecodeJSON extracts, sanitizes and unmarshals a JSON value from a model response
func DecodeJSON(s string, v any) error {
	raw := SanitizeJSON(ExtractJSON(s))
	if raw == "" {
		return fmt.Errorf("no JSON found in response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// findMatchingBracket finds the matching closing bracket for an opening bracket
// using proper bracket matching that handles escaped quotes and strings
// Returns -1 if no matching bracket is found
func findMatchingBracket(s string, startPos int, openChar, closeChar rune) int {
	count := 0
	inString := false
	escaped := false

	for i := startPos; i < len(s); i++ {
		ch := rune(s[i])

		// Handle escape sequences
		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		// Handle strings
		if ch == '"' {
			inString = !inString
			continue
		}

		// Only count brackets outside of strings
		if !inString {
			if ch == openChar {
				count++
			} else if ch == closeChar {
				count--
				if count == 0 {
					return i
				}
			}
		}
	}

	return -1 // No matching bracket found
}

// unclosed returns the still-open brackets of s, innermost first
func unclosed(s string) []byte {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case (ch == '}' || ch == ']') && len(stack) > 0:
			stack = stack[:len(stack)-1]
		}
	}

	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// SanitizeJSON fixes common JSON issues from LLM responses
// Specifically handles unescaped newlines in string values
func SanitizeJSON(s string) string {
	var result strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			result.WriteByte(ch)
			escaped = false
			continue
		}

		if ch == '\\' {
			result.WriteByte(ch)
			escaped = true
			continue
		}

		if ch == '"' {
			result.WriteByte(ch)
			inString = !inString
			continue
		}

		// Replace literal newlines in strings with \n
		if inString && (ch == '\n' || ch == '\r') {
			result.WriteString("\\n")
			// Skip \r if followed by \n
			if ch == '\r' && i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			continue
		}

		result.WriteByte(ch)
	}

	return result.String()
}
