package util

import (
	"regexp"
	"strings"
)

// Precompiled regex patterns for think tag detection
var (
	// Matches various think/reasoning tag formats
	thinkTagRegex = regexp.MustCompile(`(?i)<think(?:ing)?>([\s\S]*?)</think(?:ing)?>`)
	// An opening tag whose block was cut off by the token limit
	openThinkTagRegex = regexp.MustCompile(`(?i)<think(?:ing)?>[\s\S]*$`)
)

// StripThinkTags removes reasoning blocks emitted by reasoning models and
// returns the final answer. A trailing unterminated block is dropped too.
func StripThinkTags(response string) string {
	result := thinkTagRegex.ReplaceAllString(response, "")
	result = openThinkTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}
