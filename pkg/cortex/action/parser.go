package action

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stoewer/go-strcase"
)

// ErrNoPayload is matched by every ParseError
var ErrNoPayload = stderrors.New("no structured action found")

// ParseError reports that no JSON object could be recovered from a response
type ParseError struct {
	Raw string
	// Cause is the last decode error, if any candidate was tried
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause == nil {
		return ErrNoPayload.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoPayload.Error(), e.Cause)
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNoPayload}
	}
	return []error{ErrNoPayload, e.Cause}
}

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

var delegatePattern = regexp.MustCompile(`DELEGATE_TO:\s*([A-Za-z_]+)(?s:\s*Reason:\s*(.*))?`)

// Parse extracts a single action from free-form model text. Strategies are
// tried in order and the first decodable object wins: fenced blocks, the
// whole trimmed text, then every balanced {...} substring by position of its
// opening brace. A decoded object without a recognised action tag yields an
// Unknown payload, not an error. Plain-text "DELEGATE_TO: ROLE" handoffs are
// accepted when no object decodes.
func Parse(raw string) (Action, error) {
	var lastErr error

	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		obj, err := decodeObject(m[1])
		if err == nil {
			return build(obj), nil
		}
		lastErr = err
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		obj, err := decodeObject(trimmed)
		if err == nil {
			return build(obj), nil
		}
		lastErr = err
	}

	for _, candidate := range objectCandidates(raw) {
		obj, err := decodeObject(candidate)
		if err == nil {
			return build(obj), nil
		}
		lastErr = err
	}

	if m := delegatePattern.FindStringSubmatch(raw); m != nil {
		return Action{Payload: &Delegate{
			Role:   strings.ToUpper(m[1]),
			Reason: strings.TrimSpace(m[2]),
		}}, nil
	}

	return Action{}, &ParseError{Raw: raw, Cause: lastErr}
}

func decodeObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, stderrors.New("empty candidate")
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return obj, nil
}

// objectCandidates lists every balanced {...} substring in order of its
// opening brace. An opening brace that is never closed is skipped, so prose
// like "the set {ssh, http" does not hide a later object.
func objectCandidates(text string) []string {
	var out []string
	for open := strings.IndexByte(text, '{'); open >= 0; {
		if end, ok := closingBrace(text, open); ok {
			out = append(out, text[open:end+1])
		}
		next := strings.IndexByte(text[open+1:], '{')
		if next < 0 {
			break
		}
		open += next + 1
	}
	return out
}

// closingBrace finds the brace matching text[open]. Braces inside JSON
// strings are ignored.
func closingBrace(text string, open int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// build turns a decoded object into an Action. Keys are matched in snake
// case so nextStep and next_step are equivalent.
func build(raw map[string]any) Action {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		key := strcase.SnakeCase(strings.TrimSpace(k))
		if _, exists := fields[key]; !exists || k == key {
			fields[key] = v
		}
	}

	a := Action{
		Thought: coerceString(fields["thought"]),
		Memory:  memoryUpdate(fields["memory_update"]),
		Raw:     raw,
	}

	tag := coerceString(fields["action"])
	switch Kind(strcase.SnakeCase(tag)) {
	case KindExecute:
		a.Payload = &Execute{
			Command:     coerceString(fields["command"]),
			Explanation: coerceString(fields["explanation"]),
		}
	case KindAnalyze:
		a.Payload = &Analyze{
			Findings: coerceStringSlice(fields["findings"]),
			NextStep: coerceString(fields["next_step"]),
		}
	case KindAsk:
		a.Payload = &Ask{
			Question: coerceString(fields["question"]),
		}
	case KindExplain:
		commands := coerceStringSlice(fields["commands"])
		if len(commands) == 0 {
			commands = coerceStringSlice(fields["suggested_commands"])
		}
		a.Payload = &Explain{
			Title:             coerceString(fields["title"]),
			Explanation:       coerceString(fields["explanation"]),
			SuggestedCommands: commands,
		}
	case KindComplete:
		a.Payload = &Complete{
			Summary:         coerceString(fields["summary"]),
			Recommendations: coerceStringSlice(fields["recommendations"]),
		}
	case KindDelegate:
		role := coerceString(fields["role"])
		if role == "" {
			role = coerceString(fields["delegate_to"])
		}
		a.Payload = &Delegate{
			Role:   strings.ToUpper(role),
			Reason: coerceString(fields["reason"]),
		}
	default:
		a.Payload = &Unknown{Tag: tag}
	}
	return a
}

// memoryUpdate reads {"target": "...", "data": {...}}. A scalar data value
// is kept under "note". Updates without a target are dropped.
func memoryUpdate(v any) *MemoryUpdate {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	target := coerceString(m["target"])
	if target == "" {
		return nil
	}
	u := &MemoryUpdate{Target: target, Data: map[string]any{}}
	switch d := m["data"].(type) {
	case map[string]any:
		for k, val := range d {
			if k = strings.TrimSpace(k); k != "" {
				u.Data[k] = val
			}
		}
	default:
		if s := coerceString(d); s != "" {
			u.Data["note"] = s
		}
	}
	return u
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

func coerceStringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			return []string{trimmed}
		}
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
