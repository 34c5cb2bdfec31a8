package session

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultOutputBudget is the number of output runes kept per step
	DefaultOutputBudget = 500
	// DefaultMarker is appended to truncated output
	DefaultMarker = "..."
	// DefaultHistoryWindow is the number of steps rendered by HistoryDigest
	DefaultHistoryWindow = 8
	// DefaultSummaryWindow is the number of summary lines rendered by SummaryDigest
	DefaultSummaryWindow = 10
	// NoHistory is rendered when no step has been recorded
	NoHistory = "No history yet."
)

// Step is one recorded think/act/observe entry
type Step struct {
	Time    time.Time
	Thought string
	Action  string
	Output  string
}

// Status is a snapshot of the memory for status displays
type Status struct {
	StepCount    int
	SummaryCount int
	TargetCount  int
	FindingCount int
	LastStep     *Step
}

// Memory is an append-only log of steps plus a rolling summary that
// outlives individual objectives. It also keeps what the model learned per
// target and a deduplicated list of findings.
type Memory struct {
	mu            sync.RWMutex
	steps         []Step
	summary       []string
	targets       map[string]map[string]any
	findings      []string
	seenFindings  map[string]struct{}
	outputBudget  int
	marker        string
	historyWindow int
	now           func() time.Time
}

// Option configures a Memory
type Option func(*Memory)

// WithOutputBudget sets the per-step output budget in runes
func WithOutputBudget(n int) Option {
	return func(m *Memory) { m.outputBudget = n }
}

// WithHistoryWindow sets how many steps HistoryDigest renders
func WithHistoryWindow(n int) Option {
	return func(m *Memory) { m.historyWindow = n }
}

// WithClock overrides the step timestamp source
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty memory
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		outputBudget:  DefaultOutputBudget,
		marker:        DefaultMarker,
		historyWindow: DefaultHistoryWindow,
		now:           time.Now,
		targets:       map[string]map[string]any{},
		seenFindings:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordStep appends a step. Output longer than the budget is stored as the
// first budget runes followed by the marker.
func (m *Memory) RecordStep(thought, action, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, Step{
		Time:    m.now(),
		Thought: thought,
		Action:  action,
		Output:  Truncate(output, m.outputBudget, m.marker),
	})
}

// RecordSummaryLine appends a line to the cross-objective summary
func (m *Memory) RecordSummaryLine(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summary = append(m.summary, line)
}

// UpdateTarget merges data into the facts known about target. Later values
// win per key. Blank targets are ignored.
func (m *Memory) UpdateTarget(target string, data map[string]any) {
	target = strings.TrimSpace(target)
	if target == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	facts, ok := m.targets[target]
	if !ok {
		facts = map[string]any{}
		m.targets[target] = facts
	}
	maps.Copy(facts, data)
}

// RecordFinding appends a finding unless an identical one is already known.
// It reports whether the finding was new.
func (m *Memory) RecordFinding(finding string) bool {
	finding = strings.TrimSpace(finding)
	if finding == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seenFindings[finding]; dup {
		return false
	}
	m.seenFindings[finding] = struct{}{}
	m.findings = append(m.findings, finding)
	return true
}

// Targets returns a copy of the facts known per target
func (m *Memory) Targets() map[string]map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]any, len(m.targets))
	for target, facts := range m.targets {
		out[target] = maps.Clone(facts)
	}
	return out
}

// Findings returns a copy of the deduplicated findings in discovery order
func (m *Memory) Findings() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.findings))
	copy(out, m.findings)
	return out
}

// ExecutedCommands lists each distinct command that was run, in first-run order
func (m *Memory) ExecutedCommands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.executedLocked()
}

func (m *Memory) executedLocked() []string {
	seen := make(map[string]struct{}, len(m.steps))
	out := []string{}
	for _, step := range m.steps {
		if _, dup := seen[step.Action]; dup || step.Action == "" {
			continue
		}
		seen[step.Action] = struct{}{}
		out = append(out, step.Action)
	}
	return out
}

// StateJSON renders targets, findings and executed commands as indented
// JSON for the prompt. It returns "" while all three are empty.
func (m *Memory) StateJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	executed := m.executedLocked()
	if len(m.targets) == 0 && len(m.findings) == 0 && len(executed) == 0 {
		return ""
	}
	state := struct {
		Targets       map[string]map[string]any `json:"targets"`
		Findings      []string                  `json:"findings"`
		ExecutedTools []string                  `json:"executed_tools"`
	}{m.targets, m.findings, executed}
	if state.Findings == nil {
		state.Findings = []string{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(data)
}

// HistoryDigest renders the most recent steps, numbered from 1 within the window
func (m *Memory) HistoryDigest() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.steps) == 0 {
		return NoHistory
	}

	window := m.steps
	if len(window) > m.historyWindow {
		window = window[len(window)-m.historyWindow:]
	}

	lines := make([]string, len(window))
	for i, step := range window {
		lines[i] = fmt.Sprintf("Step %d [%s]: %s -> %s", i+1, step.Time.Format("15:04:05"), step.Action, step.Output)
	}
	return strings.Join(lines, "\n")
}

// SummaryDigest renders the last n summary lines in order. n <= 0 uses DefaultSummaryWindow.
func (m *Memory) SummaryDigest(n int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 {
		n = DefaultSummaryWindow
	}
	window := m.summary
	if len(window) > n {
		window = window[len(window)-n:]
	}
	return strings.Join(window, "\n")
}

// Steps returns a copy of all recorded steps
func (m *Memory) Steps() []Step {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// Summary returns a copy of all summary lines
func (m *Memory) Summary() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.summary))
	copy(out, m.summary)
	return out
}

// Status returns a snapshot of the memory
func (m *Memory) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		StepCount:    len(m.steps),
		SummaryCount: len(m.summary),
		TargetCount:  len(m.targets),
		FindingCount: len(m.findings),
	}
	if n := len(m.steps); n > 0 {
		last := m.steps[n-1]
		s.LastStep = &last
	}
	return s
}

// Truncate cuts s to budget runes and appends marker when s is longer
func Truncate(s string, budget int, marker string) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget]) + marker
}
