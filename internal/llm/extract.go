package llm

import (
	"errors"
	"strings"
)

// ErrMalformedCompletion means no JSON object boundary could be located in
// the completion text. It is distinct from a downstream parse failure: the
// extracted span may still be structurally invalid JSON, which callers must
// report separately.
var ErrMalformedCompletion = errors.New("no JSON object found in completion")

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// Extract isolates the JSON payload inside free-form model output. Content
// between a ```json fence and its closing fence is preferred; otherwise the
// span from the first '{' to the last '}' is used. The prompt asks for bare
// JSON, but that instruction is advisory only — models routinely wrap the
// object in prose or markdown.
func Extract(raw string) (string, error) {
	if i := strings.Index(raw, fenceOpen); i >= 0 {
		rest := raw[i+len(fenceOpen):]
		if j := strings.Index(rest, fenceClose); j >= 0 {
			return strings.TrimSpace(rest[:j]), nil
		}
		// Unterminated fence: fall through to the brace scan.
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", ErrMalformedCompletion
	}
	return strings.TrimSpace(raw[start : end+1]), nil
}
