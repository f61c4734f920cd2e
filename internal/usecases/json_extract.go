package usecases

import (
	"encoding/json"
	"strings"
)

// extractJSON pulls a JSON document out of raw model output. Models wrap
// payloads in prose, markdown fences, or both, so extraction is tried in
// order: the whole string, a fenced block, the outermost array, the
// outermost object.
func extractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	if fenced, ok := extractFenced(trimmed); ok {
		return fenced, true
	}
	if fragment, ok := extractDelimited(trimmed, '[', ']'); ok {
		return fragment, true
	}
	if fragment, ok := extractDelimited(trimmed, '{', '}'); ok {
		return fragment, true
	}
	return "", false
}

func extractFenced(s string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(s, marker)
		if start < 0 {
			continue
		}
		rest := s[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

func extractDelimited(s string, left, right byte) (string, bool) {
	start := strings.IndexByte(s, left)
	end := strings.LastIndexByte(s, right)
	if start < 0 || end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}
	return "", false
}

// decodeModelJSON extracts and unmarshals model output into dst.
func decodeModelJSON(raw string, dst interface{}) bool {
	fragment, ok := extractJSON(raw)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(fragment), dst) == nil
}
