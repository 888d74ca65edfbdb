package prompt

import (
	"encoding/json"
	"regexp"
	"strings"

	"llama-stylist/internal/scene"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON finds the first balanced {...} block in text, starting at the
// first '{', and parses it. Prose and code fences around the block are ignored.
// A block that fails to parse is retried once with trailing commas removed.
func ExtractJSON(text string) (scene.Document, bool) {
	block, ok := firstObjectBlock(text)
	if !ok {
		return nil, false
	}
	if doc, ok := ParseObject(block); ok {
		return doc, true
	}
	return ParseObject(trailingComma.ReplaceAllString(block, "$1"))
}

// ParseObject parses the whole text as a JSON object.
func ParseObject(text string) (scene.Document, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil || doc == nil {
		return nil, false
	}
	return scene.Document(doc), true
}

// firstObjectBlock counts braces from the first '{'. Braces inside string
// literals do not count.
func firstObjectBlock(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
