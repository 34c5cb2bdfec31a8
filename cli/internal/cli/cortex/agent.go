package cortex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	redai "github.com/xaviserrafigueras/RedAI/pkg/cortex"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/console"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/executor"
)

// AgentConfig holds flags for the agent command
type AgentConfig struct {
	Project     string
	AutoApprove bool
	MaxSteps    int
	Timeout     time.Duration
	MetricsAddr string
	Task        string
}

// NewAgentCmd creates the agent command
func NewAgentCmd(global *GlobalOptions) *cobra.Command {
	cfg := &AgentConfig{}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the autonomous agent",
		Long: `Run Cortex, the autonomous agent. Describe an objective and the agent
plans, proposes and runs commands until the objective is complete.

Every command is shown before it runs and needs confirmation unless --auto
is set. Results are stored in the history database under the project.

Examples:
  redai agent
  redai agent --project acme --auto
  redai agent --max-steps 10 --timeout 5m
  redai agent --task "scan 10.0.0.5 for open services"
  redai agent --metrics-addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, global, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.Project, "project", "p", "", "Project name for stored results (default: agent.default_project)")
	cmd.Flags().BoolVar(&cfg.AutoApprove, "auto", false, "Run proposed commands without confirmation")
	cmd.Flags().IntVar(&cfg.MaxSteps, "max-steps", 0, "Maximum steps per objective (default: agent.max_steps)")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 0, "Default command timeout, rounded up to whole seconds (default: agent.command_timeout)")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve /health, /info and /metrics on this address")
	cmd.Flags().StringVar(&cfg.Task, "task", "", "Run a single objective and exit")

	return cmd
}

func runAgent(cmd *cobra.Command, global *GlobalOptions, flags *AgentConfig) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer rt.close()

	if flags.AutoApprove {
		rt.cfg.Agent.AutoApprove = true
	}
	if flags.MaxSteps > 0 {
		rt.cfg.Agent.MaxSteps = flags.MaxSteps
	}
	if flags.Timeout > 0 {
		rt.cfg.Agent.CommandTimeout = timeoutSeconds(flags.Timeout)
	}
	if flags.MetricsAddr != "" {
		rt.cfg.Metrics.Addr = flags.MetricsAddr
	}

	app, err := redai.NewApp(ctx, rt.cfg, rt.logger, rt.ui)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer app.Close()

	agent, err := app.Agent(flags.Project)
	if err != nil {
		return err
	}

	if addr := rt.cfg.Metrics.Addr; addr != "" {
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := app.Serve(serveCtx, addr); err != nil {
				rt.logger.Error(err, "Status server stopped", "addr", addr)
			}
		}()
	}

	opts := agent.Options()
	if rt.cfg.UI.ShowBanner && flags.Task == "" {
		rt.ui.Banner("RedAI Cortex", fmt.Sprintf("project %s | model %s | max %d steps", opts.Project, rt.cfg.AI.Model, opts.MaxSteps))
	}
	if opts.AutoApprove {
		rt.ui.Notice(console.LevelWarn, "Auto-approve is on: commands run without confirmation.")
	}

	if flags.Task != "" {
		result := agent.RunObjective(ctx, flags.Task)
		reportResult(rt.ui, result)
		return nil
	}

	if err := agent.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			rt.ui.Notice(console.LevelInfo, "Interrupted.")
			return nil
		}
		return err
	}
	return nil
}

// timeoutSeconds rounds up so any positive duration stays at least one second
func timeoutSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

func reportResult(ui *console.Console, result executor.ObjectiveResult) {
	steps := 0
	if result.Session != nil {
		steps = result.Session.Steps
	}
	switch result.Outcome {
	case executor.OutcomeAborted:
		ui.Notice(console.LevelError, fmt.Sprintf("Objective aborted after %d steps (%s).", steps, result.Reason))
	default:
		ui.Notice(console.LevelSuccess, fmt.Sprintf("Objective %s in %d steps.", result.Outcome, steps))
	}
}
