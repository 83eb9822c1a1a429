package llmclient

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ExtractJSON strips an optional markdown code fence from an LLM response
// and returns the remaining text, ready for json.Unmarshal. Adapted from
// the teacher's extraction-response cleanup: models routinely wrap JSON
// payloads in ```json ... ``` even when told not to.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// objectPattern matches a single top-level-ish JSON object, used as a last
// resort when a response embeds a payload inside surrounding prose.
var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// arrayPattern matches a single top-level-ish JSON array, the other common
// shape for batch-style LLM responses.
var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// DecodeLenient unmarshals a cleaned LLM response into v, falling back to
// extracting the first brace- or bracket-delimited span in the text when a
// direct unmarshal fails — cheap recovery from a model prefacing its JSON
// with commentary.
func DecodeLenient(raw string, v any) error {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("llmclient: empty response")
	}

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	if m := objectPattern.FindString(cleaned); m != "" {
		if err := json.Unmarshal([]byte(m), v); err == nil {
			return nil
		}
	}
	if m := arrayPattern.FindString(cleaned); m != "" {
		if err := json.Unmarshal([]byte(m), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("llmclient: could not parse JSON payload from response")
}
