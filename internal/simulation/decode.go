package simulation

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Decode parses a provider body into a Result. Before trusting the body it checks that
// every required key is present (top level and per timeline item); violations and
// malformed JSON are reported as ErrDecode. Values are not clamped or defaulted.
func Decode(body string) (Result, error) {
	text := stripFences(strings.TrimSpace(body))
	if text == "" {
		return Result{}, ErrEmptyResponse
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if missing := missingKeys(top, topLevelRequired); len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing required fields: %s", ErrDecode, strings.Join(missing, ", "))
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(top["timeline"], &items); err != nil {
		return Result{}, fmt.Errorf("%w: timeline: %w", ErrDecode, err)
	}
	for i, item := range items {
		if missing := missingKeys(item, timelineRequired); len(missing) > 0 {
			return Result{}, fmt.Errorf("%w: timeline[%d] missing required fields: %s", ErrDecode, i, strings.Join(missing, ", "))
		}
	}

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return res, nil
}

// missingKeys reports required keys that are absent or null, sorted for stable messages.
func missingKeys(obj map[string]json.RawMessage, required []string) []string {
	var missing []string
	for _, k := range required {
		v, ok := obj[k]
		if !ok || len(v) == 0 || string(v) == "null" {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// stripFences removes a surrounding ```json fence some providers add despite instructions.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
