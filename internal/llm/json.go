package llm

import (
	"strings"
)

// ExtractJSON returns the candidate JSON object embedded in an LLM reply.
// Code fence markers are stripped first; the candidate is the span from the
// first '{' to the last '}'. ok is false when no such span exists.
func ExtractJSON(text string) (candidate string, ok bool) {
	text = strings.TrimSpace(stripCodeFences(text))
	if text == "" {
		return "", false
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// stripCodeFences removes markdown fence lines (``` or ```json) wherever
// they appear, keeping the fenced content.
func stripCodeFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			// Inline fences such as ```json {"a":1}``` keep their payload.
			rest := strings.TrimPrefix(trimmed, "```")
			rest = strings.TrimSuffix(rest, "```")
			rest = strings.TrimPrefix(rest, "json")
			if strings.TrimSpace(rest) == "" {
				continue
			}
			line = rest
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
