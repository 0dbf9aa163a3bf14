package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("failed to parse character data from response")

// jsonObjectPattern spans from the first '{' to the last '}'.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractJSONObject returns the outermost JSON object embedded in a model
// reply, ignoring surrounding prose and markdown code fences.
func ExtractJSONObject(reply string) (string, error) {
	match := jsonObjectPattern.FindString(reply)
	if match == "" {
		return "", ErrNoJSON
	}
	return match, nil
}

// dialogues accepts exampleDialogues as a list of strings or of objects.
// Non-string entries are kept as compact JSON text.
type dialogues []string

func (d *dialogues) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A single string is a one-element list.
		var single string
		if err2 := json.Unmarshal(data, &single); err2 == nil {
			*d = dialogues{single}
			return nil
		}
		return err
	}

	out := make(dialogues, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, strings.TrimSpace(string(r)))
	}
	*d = out
	return nil
}
