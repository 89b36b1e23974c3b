// Package textutil holds the heuristic text cleanup applied to raw model
// output at the collaborator boundary: fence stripping and best-effort JSON
// object extraction. Pure text in, text out; no pipeline logic lives here.
package textutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// StripCodeFences removes a single wrapping markdown code fence, including
// an optional language tag on the opening line.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	lines := strings.Split(cleaned, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractJSONObject pulls a JSON object out of free-form model output.
// It tries, in order: a direct parse, a parse after fence stripping, a scan
// for the first balanced object embedded in surrounding prose, and finally
// a jsonrepair pass over the stripped text.
func ExtractJSONObject(text string) (map[string]any, error) {
	stripped := StripCodeFences(text)

	if obj := tryParseObject(stripped); obj != nil {
		return obj, nil
	}

	if obj := scanForObject(stripped); obj != nil {
		return obj, nil
	}

	repaired, err := jsonrepair.JSONRepair(stripped)
	if err == nil {
		if obj := tryParseObject(repaired); obj != nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("no valid JSON object found in model output")
}

func tryParseObject(text string) map[string]any {
	var candidate map[string]any
	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&candidate); err != nil {
		return nil
	}
	return candidate
}

// scanForObject decodes from each '{' in turn, accepting the first prefix
// that parses as an object. Trailing prose after the object is tolerated.
func scanForObject(text string) map[string]any {
	for index := strings.Index(text, "{"); index != -1; {
		var candidate map[string]any
		decoder := json.NewDecoder(strings.NewReader(text[index:]))
		if err := decoder.Decode(&candidate); err == nil && candidate != nil {
			return candidate
		}

		next := strings.Index(text[index+1:], "{")
		if next == -1 {
			break
		}
		index += 1 + next
	}
	return nil
}
