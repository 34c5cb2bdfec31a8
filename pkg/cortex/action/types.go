package action

import (
	"fmt"
	"strings"
)

// Kind is the action tag declared by the model
type Kind string

const (
	KindExecute  Kind = "execute"
	KindAnalyze  Kind = "analyze"
	KindAsk      Kind = "ask"
	KindExplain  Kind = "explain"
	KindComplete Kind = "complete"
	KindDelegate Kind = "delegate"
	KindUnknown  Kind = "unknown"
)

// Kinds lists the recognised action tags in prompt order
var Kinds = []Kind{KindExecute, KindAnalyze, KindAsk, KindExplain, KindComplete, KindDelegate}

// Terminal reports whether the action ends the current objective
func (k Kind) Terminal() bool {
	return k == KindExplain || k == KindComplete
}

// Payload is the variant-specific part of an Action. Exactly one payload
// type is set per parsed response.
type Payload interface {
	Kind() Kind
}

// Execute asks the operator to run a shell command
type Execute struct {
	Command     string
	Explanation string
}

// Analyze reports findings and continues the loop
type Analyze struct {
	Findings []string
	NextStep string
}

// Ask requests free-text input from the operator
type Ask struct {
	Question string
}

// Explain answers the objective without running anything
type Explain struct {
	Title             string
	Explanation       string
	SuggestedCommands []string
}

// Complete closes the objective with a summary
type Complete struct {
	Summary         string
	Recommendations []string
}

// Delegate hands the objective to another agent role
type Delegate struct {
	Role   string
	Reason string
}

// Unknown is a decoded payload whose action tag is missing or unrecognised
type Unknown struct {
	Tag string
}

func (*Execute) Kind() Kind  { return KindExecute }
func (*Analyze) Kind() Kind  { return KindAnalyze }
func (*Ask) Kind() Kind      { return KindAsk }
func (*Explain) Kind() Kind  { return KindExplain }
func (*Complete) Kind() Kind { return KindComplete }
func (*Delegate) Kind() Kind { return KindDelegate }
func (*Unknown) Kind() Kind  { return KindUnknown }

// MemoryUpdate merges facts about one target into the session memory
type MemoryUpdate struct {
	Target string
	Data   map[string]any
}

// Action is a parsed model response
type Action struct {
	Thought string
	Payload Payload
	// Memory is the optional memory_update attached to any action
	Memory *MemoryUpdate
	// Raw is the decoded JSON object the action was built from
	Raw map[string]any
}

// Kind returns the payload's kind, or KindUnknown when no payload is set
func (a Action) Kind() Kind {
	if a.Payload == nil {
		return KindUnknown
	}
	return a.Payload.Kind()
}

// String renders a one-line description for logs
func (a Action) String() string {
	switch p := a.Payload.(type) {
	case *Execute:
		return fmt.Sprintf("execute: %s", p.Command)
	case *Analyze:
		return fmt.Sprintf("analyze: %d findings", len(p.Findings))
	case *Ask:
		return fmt.Sprintf("ask: %s", p.Question)
	case *Explain:
		return fmt.Sprintf("explain: %s", p.Title)
	case *Complete:
		return fmt.Sprintf("complete: %d recommendations", len(p.Recommendations))
	case *Delegate:
		return fmt.Sprintf("delegate: %s", p.Role)
	case *Unknown:
		if p.Tag == "" {
			return "unknown: missing action"
		}
		return fmt.Sprintf("unknown: %s", p.Tag)
	default:
		return string(KindUnknown)
	}
}

// KindList renders the recognised tags for prompts, e.g. "execute|analyze|..."
func KindList(sep string) string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, sep)
}
