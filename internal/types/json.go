package types

import "strings"

// CleanJSONFromMarkdown removes code fences and stray delimiter backticks
// around a JSON completion. Chat models often answer with ```json fences
// even when asked for the bare body, or echo the closing backtick of the
// extraction prompt.
func CleanJSONFromMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop an info string such as "json" or "JSON" up to the first newline
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[\"") {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")
	return strings.TrimSpace(s)
}
