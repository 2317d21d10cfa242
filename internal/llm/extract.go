package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError signals that model output could not be turned into a JSON
// value. Callers must treat it as a generation failure, not retry silently.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract json: %s", e.Reason)
}

// ExtractJSON locates the first balanced top-level JSON array or object in
// raw model output and returns it ready for unmarshalling. Models routinely
// wrap JSON in prose or markdown fences and emit literal control characters
// inside string values; those characters are replaced with spaces before
// validation.
func ExtractJSON(text string) (json.RawMessage, error) {
	candidate, ok := firstBalanced(text)
	if !ok {
		return nil, &ExtractionError{Reason: "no JSON array or object found"}
	}

	cleaned := scrubControlChars(candidate)
	if !json.Valid([]byte(cleaned)) {
		return nil, &ExtractionError{Reason: "extracted candidate is not valid JSON"}
	}
	return json.RawMessage(cleaned), nil
}

// firstBalanced scans for the first '[' or '{' that opens a balanced
// bracket structure, tracking string literals and escapes so brackets
// inside strings do not count.
func firstBalanced(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		open := text[start]
		if open != '[' && open != '{' {
			continue
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '[', '{':
				depth++
			case ']', '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		// Unclosed structure; try the next opener.
	}
	return "", false
}

// scrubControlChars replaces literal C0 and C1 control characters with
// spaces. Escaped sequences like \n survive because the backslash and 'n'
// are ordinary characters here.
func scrubControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return ' '
		}
		return r
	}, s)
}
