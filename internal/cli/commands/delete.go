package commands

import (
	"github.com/spf13/cobra"

	"github.com/codesearch/codesearch/internal/cliopt"
)

func NewDeleteCmd(g *cliopt.GlobalOptions) *cobra.Command {
	var (
		projectID int64
		branch    string
	)
	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Remove file paths from a repository branch",
		Long: `Delete removes the path mappings only. File content no longer referenced
by any repository is removed later by "cleanup".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd, g, false)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.engine.DeleteRepositoryFiles(cmd.Context(), projectID, branch, args)
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d of %d paths\n", n, len(args))
			return nil
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&branch, "branch", "main", "branch")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
