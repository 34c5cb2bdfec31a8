package cortex

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/session"
	"github.com/xaviserrafigueras/RedAI/pkg/cortex/store"
)

// outputPreview caps the output column of the history table, in runes
const outputPreview = 60

// HistoryConfig holds flags for the history command
type HistoryConfig struct {
	Project string
	Limit   int
}

// NewHistoryCmd creates the history command
func NewHistoryCmd(global *GlobalOptions) *cobra.Command {
	cfg := &HistoryConfig{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored command results",
		Long: `Show the most recent stored command results, newest first.

Examples:
  redai history
  redai history --project acme --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer rt.close()

			s, err := store.Open(cmd.Context(), rt.cfg.Database.Driver, rt.cfg.DatabaseDSN(), rt.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			results, err := s.History(cmd.Context(), cfg.Project, cfg.Limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				rt.ui.Println("No stored results.")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					fmt.Sprint(r.ID),
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.ProjectName,
					r.Target,
					r.CommandType,
					preview(r.Output),
				})
			}
			rt.ui.Table([]string{"ID", "Date", "Project", "Target", "Type", "Output"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Project, "project", "p", "", "Only show this project")
	cmd.Flags().IntVarP(&cfg.Limit, "limit", "n", 20, "Maximum rows to show (0 for all)")

	return cmd
}

// NewProjectsCmd creates the projects command
func NewProjectsCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with stored results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer rt.close()

			s, err := store.Open(cmd.Context(), rt.cfg.Database.Driver, rt.cfg.DatabaseDSN(), rt.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			projects, err := s.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				rt.ui.Println("No projects yet.")
				return nil
			}
			rows := make([][]string, len(projects))
			for i, p := range projects {
				rows[i] = []string{p}
			}
			rt.ui.Table([]string{"Project"}, rows)
			return nil
		},
	}
}

func preview(output string) string {
	line := strings.Join(strings.Fields(output), " ")
	return session.Truncate(line, outputPreview, session.DefaultMarker)
}
