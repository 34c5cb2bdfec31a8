package executor

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/console"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/llm"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/metrics"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/session"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/tools"
)

const (
	DefaultMaxSteps       = 20
	DefaultCommandTimeout = 120 * time.Second
	DefaultTemperature    = 0.7
	DefaultSummaryWindow  = session.DefaultSummaryWindow
	// DefaultResultBudget caps the command output fed back to the model, in runes
	DefaultResultBudget = 4000
	DefaultExitWord     = "exit"
	// DefaultMaxHistory is the number of turns after the seed sent per request
	DefaultMaxHistory = 15
)

// UI is the human side of the loop. Reads report false when input is closed.
type UI interface {
	ReadLine(prompt string) (string, bool)
	Confirm(prompt string, defaultYes bool) (answer bool, closed bool)
	Panel(kind console.PanelKind, title, body string)
	Notice(level console.Level, msg string)
	Busy(label string) func()
}

// CommandRunner executes shell commands with a timeout
type CommandRunner interface {
	Execute(ctx context.Context, command string, timeout time.Duration) tools.Result
}

// HistoryStore persists command results and conversation turns. The loop
// only appends.
type HistoryStore interface {
	Append(ctx context.Context, target, kind, output, project string) error
	RecordMessage(ctx context.Context, project, sessionID, role, content string) error
}

// Deps are the collaborators injected into an Agent
type Deps struct {
	LLM     llm.Client
	Runner  CommandRunner
	Memory  *session.Memory
	Store   HistoryStore
	UI      UI
	Metrics *metrics.Recorder
	Logger  logr.Logger
}

// Options tune the loop
type Options struct {
	Project        string
	MaxSteps       int
	CommandTimeout time.Duration
	// ToolTimeouts overrides CommandTimeout per binary name
	ToolTimeouts  map[string]time.Duration
	AutoApprove   bool
	Temperature   float64
	SummaryWindow int
	ResultBudget  int
	ExitWord      string
	// MaxHistory caps the turns sent after the system prompt and seed
	MaxHistory int
}

// DefaultOptions returns the standard loop settings
func DefaultOptions() Options {
	return Options{
		Project:        "General",
		MaxSteps:       DefaultMaxSteps,
		CommandTimeout: DefaultCommandTimeout,
		Temperature:    DefaultTemperature,
		SummaryWindow:  DefaultSummaryWindow,
		ResultBudget:   DefaultResultBudget,
		ExitWord:       DefaultExitWord,
		MaxHistory:     DefaultMaxHistory,
	}
}

// Outcome is how an objective ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeExplained Outcome = "explained"
	OutcomeAborted   Outcome = "aborted"
)

// AbortReason explains an aborted objective
type AbortReason string

const (
	ReasonNone          AbortReason = ""
	ReasonParseFailure  AbortReason = "parse_failure"
	ReasonProviderError AbortReason = "provider_error"
	ReasonStepBudget    AbortReason = "step_budget"
	ReasonCancelled     AbortReason = "cancelled"
)

// ObjectiveSession is the state of one objective. It is discarded when the
// objective ends.
type ObjectiveSession struct {
	ID           string
	Objective    string
	Conversation []llm.Message
	Steps        int
	// Role is the persona the model currently answers as
	Role Role
}

// ObjectiveResult is returned by RunObjective
type ObjectiveResult struct {
	Session *ObjectiveSession
	Outcome Outcome
	Reason  AbortReason
	// Err carries the cause of an abort
	Err error
}
