package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/action"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/console"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/llm"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/metrics"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/session"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/tools"
)

// displayBudget caps command output shown in the output panel, in runes
const displayBudget = 2000

// Agent drives the think/act/observe loop for one operator
type Agent struct {
	llm     llm.Client
	runner  CommandRunner
	memory  *session.Memory
	store   HistoryStore
	ui      UI
	metrics *metrics.Recorder
	logger  logr.Logger
	opts    Options
}

// New creates an Agent. The LLM client and UI are required; the rest fall
// back to defaults.
func New(deps Deps, opts Options) (*Agent, error) {
	if deps.LLM == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "LLM client is required", nil)
	}
	if deps.UI == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "UI is required", nil)
	}

	defaults := DefaultOptions()
	if opts.Project == "" {
		opts.Project = defaults.Project
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaults.MaxSteps
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaults.CommandTimeout
	}
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = defaults.SummaryWindow
	}
	if opts.ResultBudget <= 0 {
		opts.ResultBudget = defaults.ResultBudget
	}
	if opts.ExitWord == "" {
		opts.ExitWord = defaults.ExitWord
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaults.MaxHistory
	}

	if deps.Runner == nil {
		deps.Runner = tools.DefaultRunner(deps.Logger)
	}
	if deps.Memory == nil {
		deps.Memory = session.NewMemory()
	}

	return &Agent{
		llm:     deps.LLM,
		runner:  deps.Runner,
		memory:  deps.Memory,
		store:   deps.Store,
		ui:      deps.UI,
		metrics: deps.Metrics,
		logger:  deps.Logger.WithName("agent").WithValues("project", opts.Project),
		opts:    opts,
	}, nil
}

// Memory returns the memory shared across objectives
func (a *Agent) Memory() *session.Memory {
	return a.memory
}

// Options returns the effective loop settings
func (a *Agent) Options() Options {
	return a.opts
}

// Run reads objectives until the exit word, closed input or cancellation.
// Only cancellation is reported as an error.
func (a *Agent) Run(ctx context.Context) error {
	a.ui.Notice(console.LevelInfo, fmt.Sprintf("Cortex ready on project %q. Type 'help' for commands, '%s' to quit.", a.opts.Project, a.opts.ExitWord))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, ok := a.ui.ReadLine("cortex> ")
		if !ok {
			a.ui.Notice(console.LevelInfo, "Input closed, leaving agent mode.")
			return nil
		}
		line = strings.TrimSpace(line)

		switch strings.ToLower(line) {
		case "":
			continue
		case strings.ToLower(a.opts.ExitWord):
			a.ui.Notice(console.LevelInfo, "Leaving agent mode.")
			return nil
		case "status":
			a.showStatus()
			continue
		case "help":
			a.ui.Panel(console.PanelInfo, "Help", helpText)
			continue
		}

		result := a.RunObjective(ctx, line)
		if result.Reason == ReasonCancelled {
			return ctx.Err()
		}
	}
}

// RunObjective works one objective until a terminal action or an abort
func (a *Agent) RunObjective(ctx context.Context, objective string) ObjectiveResult {
	sess := &ObjectiveSession{
		ID:        uuid.NewString(),
		Objective: objective,
		Role:      RoleManager,
	}
	log := a.logger.WithValues("session", sess.ID)
	log.Info("Objective started", "objective", objective)

	sess.Conversation = append(sess.Conversation, llm.SystemMessage(systemPrompt(sess.Role)))
	a.appendTurn(ctx, sess, llm.UserMessage(seedMessage(
		objective,
		a.memory.SummaryDigest(a.opts.SummaryWindow),
		a.memory.HistoryDigest(),
		a.memory.StateJSON(),
	)))

	result := a.loop(ctx, sess)
	result.Session = sess

	a.metrics.Objective(a.opts.Project, string(result.Outcome))
	if result.Outcome == OutcomeAborted {
		log.Info("Objective aborted", "reason", result.Reason, "steps", sess.Steps, "error", result.Err)
	} else {
		log.Info("Objective finished", "outcome", result.Outcome, "steps", sess.Steps)
	}
	return result
}

func (a *Agent) loop(ctx context.Context, sess *ObjectiveSession) ObjectiveResult {
	for sess.Steps < a.opts.MaxSteps {
		if err := ctx.Err(); err != nil {
			return aborted(ReasonCancelled, err)
		}

		raw, err := a.think(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				return aborted(ReasonCancelled, ctx.Err())
			}
			a.ui.Notice(console.LevelError, fmt.Sprintf("LLM request failed: %v", err))
			return aborted(ReasonProviderError, apperrors.New(apperrors.ErrCodeProviderFailed, "LLM request failed", err))
		}

		act, err := action.Parse(raw)
		if err != nil {
			a.ui.Panel(console.PanelRaw, "Unparseable response", raw)
			a.ui.Notice(console.LevelError, "Could not read an action from the model response.")
			return aborted(ReasonParseFailure, apperrors.New(apperrors.ErrCodeParseFailed, "could not parse model response", err))
		}

		a.metrics.Step(a.opts.Project, string(act.Kind()))
		a.logger.V(1).Info("Action", "session", sess.ID, "step", sess.Steps+1, "kind", act.Kind())
		if act.Thought != "" {
			a.ui.Panel(console.PanelInfo, "Thought", act.Thought)
		}
		if u := act.Memory; u != nil {
			a.memory.UpdateTarget(u.Target, u.Data)
			a.logger.V(1).Info("Memory updated", "session", sess.ID, "target", u.Target, "keys", len(u.Data))
		}

		switch p := act.Payload.(type) {
		case *action.Execute:
			a.handleExecute(ctx, sess, act, p, raw)
		case *action.Analyze:
			a.handleAnalyze(ctx, sess, p, raw)
		case *action.Ask:
			a.handleAsk(ctx, sess, p, raw)
		case *action.Explain:
			a.handleExplain(ctx, sess, p, raw)
			return ObjectiveResult{Outcome: OutcomeExplained}
		case *action.Complete:
			a.handleComplete(ctx, sess, p, raw)
			return ObjectiveResult{Outcome: OutcomeCompleted}
		case *action.Delegate:
			a.handleDelegate(ctx, sess, p, raw)
		case *action.Unknown:
			a.handleUnknown(ctx, sess, p.Tag, raw)
		default:
			a.handleUnknown(ctx, sess, string(act.Kind()), raw)
		}
	}

	a.ui.Notice(console.LevelError, fmt.Sprintf("Step budget of %d exhausted, objective aborted.", a.opts.MaxSteps))
	return aborted(ReasonStepBudget, apperrors.New(apperrors.ErrCodeStepBudgetExceeded,
		fmt.Sprintf("objective exceeded %d steps", a.opts.MaxSteps), nil))
}

func aborted(reason AbortReason, err error) ObjectiveResult {
	return ObjectiveResult{Outcome: OutcomeAborted, Reason: reason, Err: err}
}

// think sends the windowed conversation and returns the raw reply
func (a *Agent) think(ctx context.Context, sess *ObjectiveSession) (string, error) {
	stop := a.ui.Busy("Thinking...")
	raw, err := a.llm.Complete(ctx, window(sess.Conversation, a.opts.MaxHistory), a.opts.Temperature)
	stop()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.metrics.LLMCall(a.llm.ModelName(), outcome)
	return raw, err
}

// window keeps the system prompt and seed, then at most n later turns. The
// kept tail starts on an assistant turn so roles keep alternating.
func window(conv []llm.Message, n int) []llm.Message {
	const head = 2
	if n <= 0 || len(conv) <= head+n {
		return conv
	}
	tail := conv[len(conv)-n:]
	if tail[0].Role == llm.RoleUser {
		tail = tail[1:]
	}
	out := make([]llm.Message, 0, head+len(tail))
	out = append(out, conv[:head]...)
	return append(out, tail...)
}

func (a *Agent) handleExecute(ctx context.Context, sess *ObjectiveSession, act action.Action, p *action.Execute, raw string) {
	defer func() { sess.Steps++ }()

	command := strings.TrimSpace(p.Command)
	if command == "" {
		a.ui.Notice(console.LevelWarn, "The model asked to execute an empty command.")
		a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
		a.appendTurn(ctx, sess, llm.UserMessage(emptyCommandMessage))
		return
	}

	body := command
	if p.Explanation != "" {
		body += "\n\n" + p.Explanation
	}
	a.ui.Panel(console.PanelCommand, "Proposed command", body)

	if !a.opts.AutoApprove {
		approved, closed := a.ui.Confirm("Execute this command?", true)
		if !approved && !closed {
			feedback, ok := a.ui.ReadLine("Feedback for the agent: ")
			feedback = strings.TrimSpace(feedback)
			if !ok || feedback == "" {
				feedback = "skip"
			}
			a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
			a.appendTurn(ctx, sess, llm.UserMessage(declinedMessage(feedback)))
			return
		}
	}

	timeout := tools.TimeoutFor(command, a.opts.CommandTimeout, a.opts.ToolTimeouts)
	stop := a.ui.Busy("Running " + tools.Binary(command) + "...")
	res := a.runner.Execute(ctx, command, timeout)
	stop()

	a.metrics.Command(a.opts.Project, commandOutcome(res), res.Duration.Seconds())
	switch {
	case res.TimedOut:
		a.ui.Notice(console.LevelWarn, fmt.Sprintf("Command timed out after %s.", res.Timeout))
	case res.Cancelled:
		a.ui.Notice(console.LevelWarn, "Command cancelled.")
	case res.Err != nil:
		a.ui.Notice(console.LevelError, res.Err.Error())
	}

	observation := tools.Observation(res)
	a.ui.Panel(console.PanelRaw, "Output", session.Truncate(observation, displayBudget, session.DefaultMarker))

	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	a.appendTurn(ctx, sess, llm.UserMessage(resultMessage(
		session.Truncate(observation, a.opts.ResultBudget, session.DefaultMarker),
	)))

	a.memory.RecordStep(act.Thought, command, observation)
	if a.store != nil {
		// The store keeps the untruncated observation
		if err := a.store.Append(ctx, sess.Objective, "agent:"+tools.Binary(command), observation, a.opts.Project); err != nil {
			a.logger.Error(err, "Failed to save command result", "session", sess.ID, "command", command)
		}
	}
}

func commandOutcome(res tools.Result) string {
	switch {
	case res.TimedOut:
		return "timeout"
	case res.Cancelled:
		return "cancelled"
	case res.Err != nil:
		return "spawn_failed"
	case res.ExitCode != 0:
		return "failed"
	default:
		return "ok"
	}
}

func (a *Agent) handleAnalyze(ctx context.Context, sess *ObjectiveSession, p *action.Analyze, raw string) {
	var b strings.Builder
	for _, f := range p.Findings {
		fmt.Fprintf(&b, "- %s\n", f)
		a.memory.RecordSummaryLine(f)
		a.memory.RecordFinding(f)
	}
	if p.NextStep != "" {
		fmt.Fprintf(&b, "\nNext: %s", p.NextStep)
	}
	a.ui.Panel(console.PanelFindings, "Findings", strings.TrimSpace(b.String()))

	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	a.appendTurn(ctx, sess, llm.UserMessage(analyzeFollowUp(p.NextStep)))
	sess.Steps++
}

func (a *Agent) handleAsk(ctx context.Context, sess *ObjectiveSession, p *action.Ask, raw string) {
	a.ui.Panel(console.PanelQuestion, "Question", p.Question)

	answer, ok := a.ui.ReadLine("Your answer: ")
	answer = strings.TrimSpace(answer)
	if !ok || answer == "" {
		answer = "skip"
	}

	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	a.appendTurn(ctx, sess, llm.UserMessage(answer))
	sess.Steps++
}

func (a *Agent) handleExplain(ctx context.Context, sess *ObjectiveSession, p *action.Explain, raw string) {
	title := p.Title
	if title == "" {
		title = sess.Objective
	}

	body := p.Explanation
	if len(p.SuggestedCommands) > 0 {
		body += "\n\nSuggested commands:\n  " + strings.Join(p.SuggestedCommands, "\n  ")
	}
	a.ui.Panel(console.PanelExplain, title, strings.TrimSpace(body))

	a.memory.RecordSummaryLine("Explained: " + title)
	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	sess.Steps++
}

func (a *Agent) handleComplete(ctx context.Context, sess *ObjectiveSession, p *action.Complete, raw string) {
	body := p.Summary
	if len(p.Recommendations) > 0 {
		body += "\n\nRecommendations:\n- " + strings.Join(p.Recommendations, "\n- ")
	}
	a.ui.Panel(console.PanelComplete, "Objective complete", strings.TrimSpace(body))

	for _, r := range p.Recommendations {
		a.memory.RecordSummaryLine(r)
	}
	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	sess.Steps++
	a.ui.Notice(console.LevelSuccess, "Objective complete.")
}

func (a *Agent) handleDelegate(ctx context.Context, sess *ObjectiveSession, p *action.Delegate, raw string) {
	defer func() { sess.Steps++ }()
	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))

	role, ok := ParseRole(p.Role)
	if !ok {
		a.ui.Notice(console.LevelWarn, fmt.Sprintf("Unknown role %q, asking the model to correct it.", p.Role))
		a.appendTurn(ctx, sess, llm.UserMessage(unknownRoleMessage(p.Role)))
		return
	}

	a.logger.Info("Role switched", "session", sess.ID, "from", sess.Role, "to", role)
	sess.Role = role
	sess.Conversation[0] = llm.SystemMessage(systemPrompt(role))
	a.ui.Notice(console.LevelInfo, fmt.Sprintf("Role switched to %s.", role))
	a.appendTurn(ctx, sess, llm.UserMessage(roleSwitchMessage(role, p.Reason)))
}

func (a *Agent) handleUnknown(ctx context.Context, sess *ObjectiveSession, tag, raw string) {
	a.ui.Notice(console.LevelWarn, fmt.Sprintf("Unknown action %q, asking the model to correct it.", tag))
	a.appendTurn(ctx, sess, llm.AssistantMessage(raw))
	a.appendTurn(ctx, sess, llm.UserMessage(unknownActionMessage(tag)))
	sess.Steps++
}

// appendTurn adds a message to the conversation and mirrors it to the store
func (a *Agent) appendTurn(ctx context.Context, sess *ObjectiveSession, msg llm.Message) {
	sess.Conversation = append(sess.Conversation, msg)
	if a.store == nil {
		return
	}
	// Mirroring is best effort, a cancelled context must not hide the turn
	if err := a.store.RecordMessage(context.WithoutCancel(ctx), a.opts.Project, sess.ID, string(msg.Role), msg.Content); err != nil {
		a.logger.Error(err, "Failed to save conversation turn", "session", sess.ID)
	}
}

func (a *Agent) showStatus() {
	st := a.memory.Status()
	var b strings.Builder
	fmt.Fprintf(&b, "Project:        %s\n", a.opts.Project)
	fmt.Fprintf(&b, "Model:          %s\n", a.llm.ModelName())
	fmt.Fprintf(&b, "Steps recorded: %d\n", st.StepCount)
	fmt.Fprintf(&b, "Summary lines:  %d\n", st.SummaryCount)
	fmt.Fprintf(&b, "Targets:        %d\n", st.TargetCount)
	fmt.Fprintf(&b, "Findings:       %d\n", st.FindingCount)
	if st.LastStep != nil {
		fmt.Fprintf(&b, "Last command:   %s (%s)\n", st.LastStep.Action, st.LastStep.Time.Format("15:04:05"))
	}
	fmt.Fprintf(&b, "Auto-approve:   %t", a.opts.AutoApprove)
	a.ui.Panel(console.PanelInfo, "Status", b.String())
}

