package cortex

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	redai "github.com/xaviserrafigueras/RedAI/pkg/cortex"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
)

// NewConfigCmd creates the config command
func NewConfigCmd(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
		Long: `Show the resolved configuration or write a default config.yaml.

API keys are never printed or written; set them in the environment or .env
(OPENAI_API_KEY, DEEPSEEK_API_KEY, CLAUDE_API_KEY or ANTHROPIC_API_KEY).

Examples:
  redai config show
  redai config init
  redai config init --force --config ./redai.yaml`,
	}

	cmd.AddCommand(newConfigShowCmd(global))
	cmd.AddCommand(newConfigInitCmd(global))

	return cmd
}

func newConfigShowCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.ConfigFile)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, string(data))
			key := "missing"
			if cfg.AI.APIKey != "" {
				key = "set"
			}
			if p, ok := config.LookupProvider(cfg.AI.Provider); ok && !p.RequiresKey() {
				key = "not required"
			}
			fmt.Fprintf(out, "# api key: %s\n", key)
			return nil
		},
	}
}

func newConfigInitCmd(global *GlobalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.ConfigFile
			if path == "" {
				path = config.DefaultConfigFiles[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redai %s\n", redai.Version)
		},
	}
}
