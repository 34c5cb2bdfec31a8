package cortex

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/console"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/logging"
)

// GlobalOptions holds flags shared by every command
type GlobalOptions struct {
	ConfigFile string
}

// NewRootCmd creates the redai root command
func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "redai",
		Short: "AI-assisted penetration testing from the terminal",
		Long: `RedAI plans and runs security tooling with an LLM in the loop.

Configuration is read from config.yaml (or --config), then overridden by
environment variables and a local .env file.

Available subcommands:
  agent       Run the autonomous agent (Cortex)
  history     Show stored command results
  projects    List projects with stored results
  config      Show or create the configuration file
  version     Print the version

Examples:
  redai agent --project acme
  redai agent --auto --max-steps 10
  redai history --project acme --limit 20
  redai config init`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "Path to the configuration file (default: ./config.yaml)")

	cmd.AddCommand(NewAgentCmd(opts))
	cmd.AddCommand(NewHistoryCmd(opts))
	cmd.AddCommand(NewProjectsCmd(opts))
	cmd.AddCommand(NewConfigCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// runtime is the per-command environment built from the global options
type runtime struct {
	cfg      *config.Config
	logger   logr.Logger
	ui       *console.Console
	closeLog func() error
}

func setup(cmd *cobra.Command, opts *GlobalOptions) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if cfg.UI.Verbose {
		level = "DEBUG"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:          level,
		Dir:            cfg.Paths.Logs,
		FileEnabled:    cfg.Logging.FileEnabled,
		ConsoleEnabled: cfg.Logging.ConsoleEnabled,
		Console:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		ui:       newConsole(cmd, cfg.UI.Width),
		closeLog: closeLog,
	}, nil
}

func (r *runtime) close() {
	_ = r.closeLog()
}

// newConsole uses the terminal when the command writes to stdout and plain
// streams otherwise
func newConsole(cmd *cobra.Command, width int) *console.Console {
	if cmd.OutOrStdout() == os.Stdout {
		return console.Stdio(width)
	}
	return console.New(cmd.InOrStdin(), cmd.OutOrStdout(), console.Options{Width: width})
}
