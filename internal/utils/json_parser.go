package utils

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSONObject is returned when a model answer contains no object candidate
var ErrNoJSONObject = errors.New("no JSON object found")

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAny  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
)

// ExtractJSONObject locates the JSON object inside free model text.
// A fenced code block holding an object wins; otherwise the span from the
// first '{' to the last '}' is returned. The result is not parsed.
func ExtractJSONObject(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrNoJSONObject
	}

	if fenced := extractFromMarkdown(input); strings.HasPrefix(fenced, "{") {
		return fenced, nil
	}

	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return input[start : end+1], nil
}

// DecodeJSONObject extracts the object from input and decodes it into a map of
// raw values so callers can tell missing keys from explicit nulls.
func DecodeJSONObject(input string) (map[string]json.RawMessage, error) {
	snippet, err := ExtractJSONObject(input)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(snippet), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// extractFromMarkdown extracts the body of the first markdown code block.
// Supports: ```json {...} ```, ```{...}```, or ```\n{...}\n```
func extractFromMarkdown(input string) string {
	if matches := fencedJSON.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := fencedAny.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// TruncateString shortens s for log output without splitting a UTF-8 sequence
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
